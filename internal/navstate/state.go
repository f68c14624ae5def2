// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

// Package navstate tracks where the user is in the plan tree and what is
// shown in the details pane. The state is a value: every navigation event
// produces a new State, and exactly one owner (the explore model) holds
// the latest one.
package navstate

import (
	"github.com/cisops/cisplan-scout/pkg/cisplan"
)

// Level paths, one per entity type, root first. A level path names the
// full parent chain of a type, so it doubles as a breadcrumb pattern.
const (
	LevelCISPlan          = "cisplan"
	LevelMissionNetwork   = "cisplan/missionNetwork"
	LevelNetworkSegment   = "cisplan/missionNetwork/networkSegment"
	LevelSecurityDomain   = "cisplan/missionNetwork/networkSegment/securityDomain"
	LevelHWStack          = "cisplan/missionNetwork/networkSegment/securityDomain/hwStack"
	LevelAsset            = "cisplan/missionNetwork/networkSegment/securityDomain/hwStack/asset"
	LevelNetworkInterface = "cisplan/missionNetwork/networkSegment/securityDomain/hwStack/asset/networkInterface"
	LevelGPInstance       = "cisplan/missionNetwork/networkSegment/securityDomain/hwStack/asset/gpInstance"
	LevelSPInstance       = "cisplan/missionNetwork/networkSegment/securityDomain/hwStack/asset/gpInstance/spInstance"
)

var levelsByType = map[cisplan.EntityType]string{
	cisplan.TypeCISPlan:          LevelCISPlan,
	cisplan.TypeMissionNetwork:   LevelMissionNetwork,
	cisplan.TypeNetworkSegment:   LevelNetworkSegment,
	cisplan.TypeSecurityDomain:   LevelSecurityDomain,
	cisplan.TypeHWStack:          LevelHWStack,
	cisplan.TypeAsset:            LevelAsset,
	cisplan.TypeNetworkInterface: LevelNetworkInterface,
	cisplan.TypeGPInstance:       LevelGPInstance,
	cisplan.TypeSPInstance:       LevelSPInstance,
}

// LevelFor returns the level path of an entity type.
func LevelFor(t cisplan.EntityType) string {
	return levelsByType[t]
}

// ParentIDKey returns the key under which an ancestor of the given type is
// recorded in Position.ParentIDs.
func ParentIDKey(t cisplan.EntityType) string {
	return string(t) + "Id"
}

// Ancestor describes the immediate parent of a level: its level path, its
// type, and the ParentIDs key holding its identifier.
type Ancestor struct {
	Level string
	Type  cisplan.EntityType
	IDKey string
}

// AncestorOf maps each level path to its immediate parent. The root has
// none. Pure lookup, no computation.
func AncestorOf(level string) (Ancestor, bool) {
	a, ok := ancestors[level]
	return a, ok
}

var ancestors = map[string]Ancestor{
	LevelMissionNetwork:   {Level: LevelCISPlan, Type: cisplan.TypeCISPlan, IDKey: ParentIDKey(cisplan.TypeCISPlan)},
	LevelNetworkSegment:   {Level: LevelMissionNetwork, Type: cisplan.TypeMissionNetwork, IDKey: ParentIDKey(cisplan.TypeMissionNetwork)},
	LevelSecurityDomain:   {Level: LevelNetworkSegment, Type: cisplan.TypeNetworkSegment, IDKey: ParentIDKey(cisplan.TypeNetworkSegment)},
	LevelHWStack:          {Level: LevelSecurityDomain, Type: cisplan.TypeSecurityDomain, IDKey: ParentIDKey(cisplan.TypeSecurityDomain)},
	LevelAsset:            {Level: LevelHWStack, Type: cisplan.TypeHWStack, IDKey: ParentIDKey(cisplan.TypeHWStack)},
	LevelNetworkInterface: {Level: LevelAsset, Type: cisplan.TypeAsset, IDKey: ParentIDKey(cisplan.TypeAsset)},
	LevelGPInstance:       {Level: LevelAsset, Type: cisplan.TypeAsset, IDKey: ParentIDKey(cisplan.TypeAsset)},
	LevelSPInstance:       {Level: LevelGPInstance, Type: cisplan.TypeGPInstance, IDKey: ParentIDKey(cisplan.TypeGPInstance)},
}

// Position is one slot of the navigation state: a type, its level path,
// the entity's identifiers, and the identifiers of every ancestor.
type Position struct {
	Level     string
	Type      cisplan.EntityType
	ID        string
	GUID      string
	Name      string
	ParentIDs map[string]string
}

// IsZero reports whether the slot is unset.
func (p Position) IsZero() bool {
	return p.GUID == "" && p.Type == ""
}

// PositionFromPath builds a Position for the last entity of a root→entity
// ancestor chain, recording every ancestor's identifier. Ancestry always
// comes from a tree walk, never from back-references in the payload.
func PositionFromPath(path []*cisplan.Entity) Position {
	if len(path) == 0 {
		return Position{}
	}
	e := path[len(path)-1]
	p := Position{
		Level: LevelFor(e.Type),
		Type:  e.Type,
		ID:    e.ID,
		GUID:  e.GUID,
		Name:  e.Name,
	}
	if len(path) > 1 {
		p.ParentIDs = make(map[string]string, len(path)-1)
		for _, ancestor := range path[:len(path)-1] {
			p.ParentIDs[ParentIDKey(ancestor.Type)] = ancestor.ID
		}
	}
	return p
}

// State holds the three navigation slots. Current moves only on tree
// activation; Selected moves on either tree activation or an elements-pane
// selection; Previous always holds the prior Current.
type State struct {
	Previous Position
	Current  Position
	Selected Position
}

// Activate records a tree-node activation: the old Current becomes
// Previous, and both Current and Selected move to the new position.
func (s State) Activate(p Position) State {
	return State{
		Previous: s.Current,
		Current:  p,
		Selected: p,
	}
}

// SelectOnly records an elements-pane selection: only Selected moves, so
// the tree's position survives browsing children.
func (s State) SelectOnly(p Position) State {
	s.Selected = p
	return s
}

// Reset clears all three slots. Called on full data reloads.
func (s State) Reset() State {
	return State{}
}
