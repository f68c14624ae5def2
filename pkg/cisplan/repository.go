// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

package cisplan

// Repository is an in-memory read-only view over a normalized plan tree.
// It indexes the tree once; ancestry always comes from that single walk,
// never from back-references carried in the payload.
type Repository struct {
	root   *Entity
	byGUID map[string]*Entity
	parent map[string]*Entity
}

// NewRepository indexes the given root. The root must have been passed
// through Normalize first.
func NewRepository(root *Entity) *Repository {
	r := &Repository{
		root:   root,
		byGUID: make(map[string]*Entity),
		parent: make(map[string]*Entity),
	}
	r.index(root, nil)
	return r
}

func (r *Repository) index(e *Entity, parent *Entity) {
	r.byGUID[e.GUID] = e
	if parent != nil {
		r.parent[e.GUID] = parent
	}
	for _, kid := range e.AllChildren() {
		r.index(kid, e)
	}
}

// Root returns the plan root.
func (r *Repository) Root() *Entity {
	return r.root
}

// Get returns the entity with the given guid, nil when absent.
func (r *Repository) Get(guid string) *Entity {
	return r.byGUID[guid]
}

// ParentOf returns the parent of the entity with the given guid. The root
// and unknown guids have no parent.
func (r *Repository) ParentOf(guid string) *Entity {
	return r.parent[guid]
}

// PathTo returns the root→entity ancestor chain including the entity
// itself, or nil when the guid is absent.
func (r *Repository) PathTo(guid string) []*Entity {
	e := r.byGUID[guid]
	if e == nil {
		return nil
	}
	var path []*Entity
	for e != nil {
		path = append([]*Entity{e}, path...)
		e = r.parent[e.GUID]
	}
	return path
}

// Count returns the number of entities in the plan, root included.
func (r *Repository) Count() int {
	return len(r.byGUID)
}

// CountByType returns per-type entity counts.
func (r *Repository) CountByType() map[EntityType]int {
	counts := make(map[EntityType]int, len(AllTypes))
	for _, e := range r.byGUID {
		counts[e.Type]++
	}
	return counts
}
