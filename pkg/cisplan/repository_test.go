// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

package cisplan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepositoryLookups(t *testing.T) {
	repo := NewRepository(loadPlan(t))

	assert.Equal(t, 9, repo.Count())
	assert.Equal(t, "g-plan", repo.Root().GUID)

	asset := repo.Get("g-as1")
	require.NotNil(t, asset)
	assert.Equal(t, TypeAsset, asset.Type)
	assert.Nil(t, repo.Get("g-absent"))
}

func TestRepositoryParentChain(t *testing.T) {
	repo := NewRepository(loadPlan(t))

	parent := repo.ParentOf("g-sp1")
	require.NotNil(t, parent)
	assert.Equal(t, "g-gp1", parent.GUID)

	assert.Nil(t, repo.ParentOf("g-plan"), "root has no parent")
	assert.Nil(t, repo.ParentOf("g-absent"))

	path := repo.PathTo("g-sp1")
	require.Len(t, path, 8)
	var guids []string
	for _, e := range path {
		guids = append(guids, e.GUID)
	}
	assert.Equal(t, []string{"g-plan", "g-mn1", "g-ns1", "g-sd1", "g-hw1", "g-as1", "g-gp1", "g-sp1"}, guids)

	assert.Nil(t, repo.PathTo("g-absent"))
}

func TestRepositoryCountByType(t *testing.T) {
	repo := NewRepository(loadPlan(t))
	counts := repo.CountByType()

	assert.Equal(t, 1, counts[TypeCISPlan])
	assert.Equal(t, 1, counts[TypeAsset])
	assert.Equal(t, 1, counts[TypeSPInstance])
	assert.Equal(t, 0, counts[EntityType("bogus")])
}
