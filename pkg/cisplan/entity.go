// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

// Package cisplan defines the CIS Plan entity hierarchy and read-only
// lookups over a loaded plan document.
//
// A plan is a strict tree: every non-root entity has exactly one parent,
// reached through exactly one typed child collection. The edge table lives
// in ChildTypes; everything else in the package is derived from it.
package cisplan

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// EntityType identifies one of the nine node kinds in a CIS Plan tree.
type EntityType string

const (
	TypeCISPlan          EntityType = "cisplan"
	TypeMissionNetwork   EntityType = "missionNetwork"
	TypeNetworkSegment   EntityType = "networkSegment"
	TypeSecurityDomain   EntityType = "securityDomain"
	TypeHWStack          EntityType = "hwStack"
	TypeAsset            EntityType = "asset"
	TypeNetworkInterface EntityType = "networkInterface"
	TypeGPInstance       EntityType = "gpInstance"
	TypeSPInstance       EntityType = "spInstance"
)

// AllTypes lists every entity type in hierarchy order, root first.
var AllTypes = []EntityType{
	TypeCISPlan,
	TypeMissionNetwork,
	TypeNetworkSegment,
	TypeSecurityDomain,
	TypeHWStack,
	TypeAsset,
	TypeNetworkInterface,
	TypeGPInstance,
	TypeSPInstance,
}

// childEdges is the parent→child edge table. Asset is the only type with
// two child collections.
var childEdges = map[EntityType][]EntityType{
	TypeCISPlan:        {TypeMissionNetwork},
	TypeMissionNetwork: {TypeNetworkSegment},
	TypeNetworkSegment: {TypeSecurityDomain},
	TypeSecurityDomain: {TypeHWStack},
	TypeHWStack:        {TypeAsset},
	TypeAsset:          {TypeNetworkInterface, TypeGPInstance},
	TypeGPInstance:     {TypeSPInstance},
}

// collectionNames maps each child type to the JSON key of its collection.
var collectionNames = map[EntityType]string{
	TypeMissionNetwork:   "missionNetworks",
	TypeNetworkSegment:   "networkSegments",
	TypeSecurityDomain:   "securityDomains",
	TypeHWStack:          "hwStacks",
	TypeAsset:            "assets",
	TypeNetworkInterface: "networkInterfaces",
	TypeGPInstance:       "gpInstances",
	TypeSPInstance:       "spInstances",
}

// labels maps entity types to their display names.
var labels = map[EntityType]string{
	TypeCISPlan:          "CIS Plan",
	TypeMissionNetwork:   "Mission Network",
	TypeNetworkSegment:   "Network Segment",
	TypeSecurityDomain:   "Security Domain",
	TypeHWStack:          "HW Stack",
	TypeAsset:            "Asset",
	TypeNetworkInterface: "Network Interface",
	TypeGPInstance:       "GP Instance",
	TypeSPInstance:       "SP Instance",
}

// apiPaths maps entity types to the plural path segment of the REST API.
var apiPaths = map[EntityType]string{
	TypeCISPlan:          "cis_plans",
	TypeMissionNetwork:   "mission_networks",
	TypeNetworkSegment:   "network_segments",
	TypeSecurityDomain:   "security_domains",
	TypeHWStack:          "hw_stacks",
	TypeAsset:            "assets",
	TypeNetworkInterface: "network_interfaces",
	TypeGPInstance:       "gp_instances",
	TypeSPInstance:       "sp_instances",
}

// Valid reports whether t is one of the nine known entity types.
func (t EntityType) Valid() bool {
	_, ok := labels[t]
	return ok
}

// Label returns the human-readable name for the type.
func (t EntityType) Label() string {
	if l, ok := labels[t]; ok {
		return l
	}
	return string(t)
}

// APIPath returns the plural REST path segment for the type.
func (t EntityType) APIPath() string {
	return apiPaths[t]
}

// ChildTypes returns the child collection types of t in render order.
// Leaf types return nil.
func (t EntityType) ChildTypes() []EntityType {
	return childEdges[t]
}

// HasConfigItems reports whether entities of this type carry configuration
// items. Only the two leaf instance types do.
func (t EntityType) HasConfigItems() bool {
	return t == TypeNetworkInterface || t == TypeSPInstance
}

// ConfigurationItem is a name/value attribute attached to a network
// interface or SP instance. Items are not independently identified; they
// are looked up by name within their owner's collection.
type ConfigurationItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Entity is one node in the CIS Plan tree. ID is unique within the
// entity's type, GUID is unique across the whole plan.
type Entity struct {
	ID   string
	GUID string
	Name string

	// Type is assigned by Normalize from the node's position in the tree;
	// the wire format does not carry it.
	Type EntityType

	MissionNetworks   []*Entity
	NetworkSegments   []*Entity
	SecurityDomains   []*Entity
	HWStacks          []*Entity
	Assets            []*Entity
	NetworkInterfaces []*Entity
	GPInstances       []*Entity
	SPInstances       []*Entity

	ConfigItems []ConfigurationItem

	// Attrs holds the per-type scalar attributes of the entity
	// (classification, status, location, ...), keyed by wire field name.
	Attrs map[string]string
}

// Children returns the child collection of the given type, nil when the
// entity cannot carry it.
func (e *Entity) Children(t EntityType) []*Entity {
	switch t {
	case TypeMissionNetwork:
		return e.MissionNetworks
	case TypeNetworkSegment:
		return e.NetworkSegments
	case TypeSecurityDomain:
		return e.SecurityDomains
	case TypeHWStack:
		return e.HWStacks
	case TypeAsset:
		return e.Assets
	case TypeNetworkInterface:
		return e.NetworkInterfaces
	case TypeGPInstance:
		return e.GPInstances
	case TypeSPInstance:
		return e.SPInstances
	}
	return nil
}

func (e *Entity) setChildren(t EntityType, kids []*Entity) {
	switch t {
	case TypeMissionNetwork:
		e.MissionNetworks = kids
	case TypeNetworkSegment:
		e.NetworkSegments = kids
	case TypeSecurityDomain:
		e.SecurityDomains = kids
	case TypeHWStack:
		e.HWStacks = kids
	case TypeAsset:
		e.Assets = kids
	case TypeNetworkInterface:
		e.NetworkInterfaces = kids
	case TypeGPInstance:
		e.GPInstances = kids
	case TypeSPInstance:
		e.SPInstances = kids
	}
}

// AllChildren returns every direct child in edge-table order.
func (e *Entity) AllChildren() []*Entity {
	var out []*Entity
	for _, t := range e.Type.ChildTypes() {
		out = append(out, e.Children(t)...)
	}
	return out
}

// AttrNames returns the entity's attribute names sorted for stable
// rendering.
func (e *Entity) AttrNames() []string {
	names := make([]string, 0, len(e.Attrs))
	for name := range e.Attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FindConfigItem looks up a configuration item by name within the entity.
func (e *Entity) FindConfigItem(name string) (ConfigurationItem, bool) {
	for _, item := range e.ConfigItems {
		if item.Name == name {
			return item, true
		}
	}
	return ConfigurationItem{}, false
}

// UnmarshalJSON decodes an entity node. The parser is strict: known keys
// must have their documented shape, and any unknown key must be a scalar
// (it lands in Attrs). Nested values under unknown keys are an error, not
// something to sniff around.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("entity is not a JSON object: %w", err)
	}

	collections := make(map[string]EntityType, len(collectionNames))
	for t, name := range collectionNames {
		collections[name] = t
	}

	for key, val := range raw {
		switch key {
		case "id":
			if err := json.Unmarshal(val, &e.ID); err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
		case "guid":
			if err := json.Unmarshal(val, &e.GUID); err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
		case "name":
			if err := json.Unmarshal(val, &e.Name); err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
		case "configurationItems":
			if err := json.Unmarshal(val, &e.ConfigItems); err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
		default:
			if t, ok := collections[key]; ok {
				var kids []*Entity
				if err := json.Unmarshal(val, &kids); err != nil {
					return fmt.Errorf("collection %q: %w", key, err)
				}
				e.setChildren(t, kids)
				continue
			}
			s, err := scalarString(val)
			if err != nil {
				return fmt.Errorf("field %q: %w", key, err)
			}
			if s == "" {
				continue
			}
			if e.Attrs == nil {
				e.Attrs = make(map[string]string)
			}
			e.Attrs[key] = s
		}
	}
	return nil
}

// scalarString renders a scalar JSON value as a string. Objects and arrays
// are rejected.
func scalarString(raw json.RawMessage) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	switch val := v.(type) {
	case nil:
		return "", nil
	case string:
		return val, nil
	case bool:
		return strconv.FormatBool(val), nil
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("expected a scalar value, got %T", v)
	}
}

// MarshalJSON encodes the entity back into its wire shape. Used by the
// tree --json dump and the demo fixtures; round-trips what UnmarshalJSON
// accepts.
func (e *Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, 4+len(e.Attrs))
	out["id"] = e.ID
	out["guid"] = e.GUID
	out["name"] = e.Name
	for name, value := range e.Attrs {
		out[name] = value
	}
	for t, name := range collectionNames {
		if kids := e.Children(t); len(kids) > 0 {
			out[name] = kids
		}
	}
	if len(e.ConfigItems) > 0 {
		out["configurationItems"] = e.ConfigItems
	}
	return json.Marshal(out)
}

// Normalize assigns types from tree position, starting at the plan root,
// and validates the document against the edge table.
func Normalize(root *Entity) error {
	return NormalizeAs(root, TypeCISPlan)
}

// NormalizeAs assigns types from tree position starting at the given type.
// Used for single-entity fetches where the type comes from the request.
func NormalizeAs(e *Entity, t EntityType) error {
	if !t.Valid() {
		return fmt.Errorf("unknown entity type %q", t)
	}
	e.Type = t
	if e.GUID == "" {
		return fmt.Errorf("%s %q has no guid", t.Label(), e.Name)
	}

	allowed := make(map[EntityType]bool, 2)
	for _, ct := range t.ChildTypes() {
		allowed[ct] = true
	}
	for ct := range collectionNames {
		kids := e.Children(ct)
		if len(kids) == 0 {
			continue
		}
		if !allowed[ct] {
			return fmt.Errorf("%s %q carries a %s collection", t.Label(), e.Name, collectionNames[ct])
		}
		for _, kid := range kids {
			if err := NormalizeAs(kid, ct); err != nil {
				return err
			}
		}
	}
	if len(e.ConfigItems) > 0 && !t.HasConfigItems() {
		return fmt.Errorf("%s %q carries configuration items", t.Label(), e.Name)
	}
	return nil
}

// FindByGUID walks the tree depth-first and returns the entity whose GUID
// matches, or nil when the guid is absent anywhere in the tree. Callers
// must treat nil as not-found.
func FindByGUID(root *Entity, guid string) *Entity {
	if root == nil || guid == "" {
		return nil
	}
	if root.GUID == guid {
		return root
	}
	for _, t := range root.Type.ChildTypes() {
		for _, kid := range root.Children(t) {
			if found := FindByGUID(kid, guid); found != nil {
				return found
			}
		}
	}
	return nil
}
