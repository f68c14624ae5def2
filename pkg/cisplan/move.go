// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

package cisplan

import "fmt"

// CandidateState classifies a node in a move plan.
type CandidateState int

const (
	// CandidateContext nodes are kept for navigation but cannot be chosen.
	CandidateContext CandidateState = iota
	// CandidateSelectable nodes are legal destinations.
	CandidateSelectable
	// CandidateCurrentParent is the entity's present parent: shown, but
	// moving there would be a no-op, so it cannot be chosen.
	CandidateCurrentParent
)

// MoveNode is a cloned tree node annotated with destination legality.
// The clone carries no child collections of the original entities; the
// source tree stays untouched while the dialog is open.
type MoveNode struct {
	ID       string
	GUID     string
	Name     string
	Type     EntityType
	State    CandidateState
	Children []*MoveNode
}

// MovePlan is everything the move dialog needs: the entity being moved,
// the parent type it may be dropped onto, and the annotated clone of the
// plan tree with the entity's own subtree removed.
type MovePlan struct {
	Entity     *Entity
	ParentType EntityType
	Root       *MoveNode
}

// RequiredParentType returns the one legal parent type for a child type.
// The plan root has no parent and is not movable.
func RequiredParentType(child EntityType) (EntityType, bool) {
	for parent, kids := range childEdges {
		for _, kid := range kids {
			if kid == child {
				return parent, true
			}
		}
	}
	return "", false
}

// BuildMovePlan computes the legality-annotated clone for relocating the
// entity with the given guid. It fails on the root, on unknown guids, and
// on mission networks (the only legal parent is the single plan root, so
// there is nowhere to move one).
func BuildMovePlan(repo *Repository, guid string) (*MovePlan, error) {
	entity := repo.Get(guid)
	if entity == nil {
		return nil, fmt.Errorf("no entity with guid %q", guid)
	}
	parentType, ok := RequiredParentType(entity.Type)
	if !ok {
		return nil, fmt.Errorf("a %s cannot be moved", entity.Type.Label())
	}
	if entity.Type == TypeMissionNetwork {
		return nil, fmt.Errorf("a %s cannot be moved: the plan root is its only parent", entity.Type.Label())
	}
	currentParent := repo.ParentOf(guid)

	root := cloneForMove(repo.Root(), entity, parentType, currentParent)
	if root == nil {
		return nil, fmt.Errorf("no entity with guid %q", guid)
	}
	return &MovePlan{Entity: entity, ParentType: parentType, Root: root}, nil
}

// cloneForMove walks the source tree, dropping the moved entity's subtree
// and marking every remaining node. Returns nil for pruned subtrees.
func cloneForMove(src, moving *Entity, parentType EntityType, currentParent *Entity) *MoveNode {
	if src.GUID == moving.GUID {
		return nil
	}
	node := &MoveNode{
		ID:    src.ID,
		GUID:  src.GUID,
		Name:  src.Name,
		Type:  src.Type,
		State: CandidateContext,
	}
	if src.Type == parentType {
		if currentParent != nil && src.GUID == currentParent.GUID {
			node.State = CandidateCurrentParent
		} else {
			node.State = CandidateSelectable
		}
	}
	for _, kid := range src.AllChildren() {
		if cloned := cloneForMove(kid, moving, parentType, currentParent); cloned != nil {
			node.Children = append(node.Children, cloned)
		}
	}
	return node
}

// FindMoveNode returns the move-plan node with the given guid, nil when
// absent (in particular for anything inside the moved entity's subtree).
func FindMoveNode(root *MoveNode, guid string) *MoveNode {
	if root == nil {
		return nil
	}
	if root.GUID == guid {
		return root
	}
	for _, kid := range root.Children {
		if found := FindMoveNode(kid, guid); found != nil {
			return found
		}
	}
	return nil
}
