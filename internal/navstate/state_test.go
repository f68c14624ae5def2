// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

package navstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cisops/cisplan-scout/pkg/cisplan"
)

func pos(t cisplan.EntityType, id string) Position {
	return Position{
		Level: LevelFor(t),
		Type:  t,
		ID:    id,
		GUID:  "g-" + id,
		Name:  id,
	}
}

func TestActivateShiftsCurrentToPrevious(t *testing.T) {
	var s State

	s = s.Activate(pos(cisplan.TypeMissionNetwork, "MN-1"))
	assert.True(t, s.Previous.IsZero())
	assert.Equal(t, "MN-1", s.Current.ID)
	assert.Equal(t, "MN-1", s.Selected.ID)

	s = s.Activate(pos(cisplan.TypeNetworkSegment, "NS-1"))
	assert.Equal(t, "MN-1", s.Previous.ID)
	assert.Equal(t, "NS-1", s.Current.ID)
	assert.Equal(t, "NS-1", s.Selected.ID)
}

func TestSelectOnlyLeavesTreePositionAlone(t *testing.T) {
	var s State
	s = s.Activate(pos(cisplan.TypeMissionNetwork, "MN-1"))
	s = s.Activate(pos(cisplan.TypeNetworkSegment, "NS-1"))

	s = s.SelectOnly(pos(cisplan.TypeSecurityDomain, "SD-1"))
	assert.Equal(t, "MN-1", s.Previous.ID)
	assert.Equal(t, "NS-1", s.Current.ID)
	assert.Equal(t, "SD-1", s.Selected.ID)

	// Previous tracks the prior Current, never the prior Selected.
	s = s.Activate(pos(cisplan.TypeSecurityDomain, "SD-1"))
	assert.Equal(t, "NS-1", s.Previous.ID)
}

func TestResetClearsAllSlots(t *testing.T) {
	var s State
	s = s.Activate(pos(cisplan.TypeMissionNetwork, "MN-1"))
	s = s.SelectOnly(pos(cisplan.TypeNetworkSegment, "NS-1"))

	s = s.Reset()
	assert.True(t, s.Previous.IsZero())
	assert.True(t, s.Current.IsZero())
	assert.True(t, s.Selected.IsZero())
}

func TestAncestorTable(t *testing.T) {
	_, ok := AncestorOf(LevelCISPlan)
	assert.False(t, ok, "the root has no ancestor")

	tests := []struct {
		level      string
		parentType cisplan.EntityType
	}{
		{LevelMissionNetwork, cisplan.TypeCISPlan},
		{LevelNetworkSegment, cisplan.TypeMissionNetwork},
		{LevelSecurityDomain, cisplan.TypeNetworkSegment},
		{LevelHWStack, cisplan.TypeSecurityDomain},
		{LevelAsset, cisplan.TypeHWStack},
		{LevelNetworkInterface, cisplan.TypeAsset},
		{LevelGPInstance, cisplan.TypeAsset},
		{LevelSPInstance, cisplan.TypeGPInstance},
	}
	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			a, ok := AncestorOf(tt.level)
			require.True(t, ok)
			assert.Equal(t, tt.parentType, a.Type)
			assert.Equal(t, LevelFor(tt.parentType), a.Level)
			assert.Equal(t, ParentIDKey(tt.parentType), a.IDKey)
		})
	}
}

func TestPositionFromPath(t *testing.T) {
	root := &cisplan.Entity{ID: "PLAN-1", GUID: "g-plan", Name: "Plan",
		MissionNetworks: []*cisplan.Entity{
			{ID: "MN-1", GUID: "g-mn1", Name: "MN-1",
				NetworkSegments: []*cisplan.Entity{
					{ID: "NS-1", GUID: "g-ns1", Name: "NS-1"},
				},
			},
		},
	}
	require.NoError(t, cisplan.Normalize(root))
	repo := cisplan.NewRepository(root)

	p := PositionFromPath(repo.PathTo("g-ns1"))
	assert.Equal(t, LevelNetworkSegment, p.Level)
	assert.Equal(t, "NS-1", p.ID)
	assert.Equal(t, map[string]string{
		"cisplanId":        "PLAN-1",
		"missionNetworkId": "MN-1",
	}, p.ParentIDs)

	assert.True(t, PositionFromPath(nil).IsZero())
}
