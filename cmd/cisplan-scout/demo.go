// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cisops/cisplan-scout/pkg/cisplan"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Show the built-in demo plan",
	Long: `Summarize the generated demo plan.

The same plan backs 'explore --demo' and 'tree --demo', so this is a
quick way to see what those commands will show without a server.
`,
	RunE: runDemo,
}

func init() {
	rootCmd.AddCommand(demoCmd)
}

func runDemo(cmd *cobra.Command, args []string) error {
	root := demoPlan()
	repo := cisplan.NewRepository(root)

	fmt.Printf("%s%s%s\n", colorBold, root.Name, colorReset)
	fmt.Printf("%s%s, version %s%s\n\n", colorDim, root.Attrs["classification"], root.Attrs["version"], colorReset)

	counts := repo.CountByType()
	for _, t := range cisplan.AllTypes {
		if t == cisplan.TypeCISPlan {
			continue
		}
		fmt.Printf("  %-20s %d\n", pluralLabel(t), counts[t])
	}

	fmt.Println()
	fmt.Println("Browse it interactively:")
	fmt.Println("  cisplan-scout explore --demo")
	fmt.Println("  cisplan-scout tree --demo")
	return nil
}

// demoClient is an in-memory planClient so the explorer can run with no
// server. Mutations behave like the real API, including the server's
// move legality message, which keeps the whole move flow exercisable
// offline.
type demoClient struct {
	mu   sync.Mutex
	root *cisplan.Entity
}

func newDemoClient(root *cisplan.Entity) *demoClient {
	return &demoClient{root: root}
}

// cloneEntity deep-copies through the wire codec, so demo responses have
// exactly the shape a server response would.
func cloneEntity(e *cisplan.Entity, t cisplan.EntityType) (*cisplan.Entity, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var out cisplan.Entity
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	if err := cisplan.NormalizeAs(&out, t); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *demoClient) FetchTree(ctx context.Context) (*cisplan.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneEntity(c.root, cisplan.TypeCISPlan)
}

func (c *demoClient) findByTypeAndID(t cisplan.EntityType, id string) *cisplan.Entity {
	var found *cisplan.Entity
	var walk func(e *cisplan.Entity)
	walk = func(e *cisplan.Entity) {
		if found != nil {
			return
		}
		if e.Type == t && e.ID == id {
			found = e
			return
		}
		for _, kid := range e.AllChildren() {
			walk(kid)
		}
	}
	walk(c.root)
	return found
}

func (c *demoClient) FetchEntity(ctx context.Context, t cisplan.EntityType, id string) (*cisplan.Entity, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.findByTypeAndID(t, id)
	if e == nil {
		return nil, fmt.Errorf("no %s with id %q: status 404", t.Label(), id)
	}
	return cloneEntity(e, t)
}

// removeChild detaches the entity from its parent's typed collection.
func removeChild(parent, child *cisplan.Entity) {
	filter := func(kids []*cisplan.Entity) []*cisplan.Entity {
		out := kids[:0]
		for _, kid := range kids {
			if kid.GUID != child.GUID {
				out = append(out, kid)
			}
		}
		return out
	}
	switch child.Type {
	case cisplan.TypeMissionNetwork:
		parent.MissionNetworks = filter(parent.MissionNetworks)
	case cisplan.TypeNetworkSegment:
		parent.NetworkSegments = filter(parent.NetworkSegments)
	case cisplan.TypeSecurityDomain:
		parent.SecurityDomains = filter(parent.SecurityDomains)
	case cisplan.TypeHWStack:
		parent.HWStacks = filter(parent.HWStacks)
	case cisplan.TypeAsset:
		parent.Assets = filter(parent.Assets)
	case cisplan.TypeNetworkInterface:
		parent.NetworkInterfaces = filter(parent.NetworkInterfaces)
	case cisplan.TypeGPInstance:
		parent.GPInstances = filter(parent.GPInstances)
	case cisplan.TypeSPInstance:
		parent.SPInstances = filter(parent.SPInstances)
	}
}

// appendChild attaches the entity to its new parent's typed collection.
func appendChild(parent, child *cisplan.Entity) {
	switch child.Type {
	case cisplan.TypeMissionNetwork:
		parent.MissionNetworks = append(parent.MissionNetworks, child)
	case cisplan.TypeNetworkSegment:
		parent.NetworkSegments = append(parent.NetworkSegments, child)
	case cisplan.TypeSecurityDomain:
		parent.SecurityDomains = append(parent.SecurityDomains, child)
	case cisplan.TypeHWStack:
		parent.HWStacks = append(parent.HWStacks, child)
	case cisplan.TypeAsset:
		parent.Assets = append(parent.Assets, child)
	case cisplan.TypeNetworkInterface:
		parent.NetworkInterfaces = append(parent.NetworkInterfaces, child)
	case cisplan.TypeGPInstance:
		parent.GPInstances = append(parent.GPInstances, child)
	case cisplan.TypeSPInstance:
		parent.SPInstances = append(parent.SPInstances, child)
	}
}

func (c *demoClient) MoveEntity(ctx context.Context, elementID, newParentID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	repo := cisplan.NewRepository(c.root)
	entity := repo.Get(elementID)
	if entity == nil {
		return fmt.Errorf("no entity with guid %q: status 404", elementID)
	}
	newParent := repo.Get(newParentID)
	if newParent == nil {
		return fmt.Errorf("no entity with guid %q: status 404", newParentID)
	}

	required, ok := cisplan.RequiredParentType(entity.Type)
	if !ok || newParent.Type != required {
		// Same phrasing the plan server uses
		return &demoAPIError{message: fmt.Sprintf(
			"Invalid parent-child relationship: %s under %s. Valid parent type is: %s",
			entity.Type, newParent.Type, required)}
	}
	if cisplan.FindByGUID(entity, newParentID) != nil {
		return &demoAPIError{message: "Invalid parent-child relationship: destination is inside the moved element"}
	}

	oldParent := repo.ParentOf(elementID)
	if oldParent != nil {
		removeChild(oldParent, entity)
	}
	appendChild(newParent, entity)
	return nil
}

func (c *demoClient) UpdateEntity(ctx context.Context, t cisplan.EntityType, id string, fields map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.findByTypeAndID(t, id)
	if e == nil {
		return fmt.Errorf("no %s with id %q: status 404", t.Label(), id)
	}
	for name, value := range fields {
		if name == "name" {
			e.Name = value
			continue
		}
		if e.Attrs == nil {
			e.Attrs = make(map[string]string)
		}
		e.Attrs[name] = value
	}
	return nil
}

func (c *demoClient) DeleteEntity(ctx context.Context, t cisplan.EntityType, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := c.findByTypeAndID(t, id)
	if e == nil {
		return fmt.Errorf("no %s with id %q: status 404", t.Label(), id)
	}
	repo := cisplan.NewRepository(c.root)
	parent := repo.ParentOf(e.GUID)
	if parent == nil {
		return fmt.Errorf("cannot delete the plan root")
	}
	removeChild(parent, e)
	return nil
}

// demoAPIError mimics a server error envelope.
type demoAPIError struct {
	message string
}

func (e *demoAPIError) Error() string {
	return e.message
}

// Demo plan fixture

func demoEntity(id, name string, t cisplan.EntityType, attrs map[string]string) *cisplan.Entity {
	return &cisplan.Entity{
		ID:    id,
		GUID:  uuid.NewString(),
		Name:  name,
		Type:  t,
		Attrs: attrs,
	}
}

// demoPlan builds a small but structurally complete plan: two mission
// networks, an asset with both interface and GP children, and config
// items on the leaf instances.
func demoPlan() *cisplan.Entity {
	plan := demoEntity("PLAN-EX-26", "Exercise STEADFAST LYNX 26", cisplan.TypeCISPlan, map[string]string{
		"classification": "UNCLASSIFIED",
		"version":        "3.2",
	})

	mn1 := demoEntity("MN-001", "Mission Network Alpha", cisplan.TypeMissionNetwork, map[string]string{
		"operationalStatus": "active",
	})
	mn2 := demoEntity("MN-002", "Mission Network Bravo", cisplan.TypeMissionNetwork, map[string]string{
		"operationalStatus": "planned",
	})
	plan.MissionNetworks = []*cisplan.Entity{mn1, mn2}

	seg1 := demoEntity("NS-101", "Deployed HQ Segment", cisplan.TypeNetworkSegment, map[string]string{
		"location": "Main Operating Base",
	})
	seg2 := demoEntity("NS-102", "Forward Segment", cisplan.TypeNetworkSegment, map[string]string{
		"location": "Forward Operating Site",
	})
	mn1.NetworkSegments = []*cisplan.Entity{seg1, seg2}
	mn2.NetworkSegments = []*cisplan.Entity{
		demoEntity("NS-201", "Reachback Segment", cisplan.TypeNetworkSegment, nil),
	}

	sd1 := demoEntity("SD-11", "Mission Secret", cisplan.TypeSecurityDomain, map[string]string{
		"classification": "SECRET",
	})
	sd2 := demoEntity("SD-12", "Mission Unclassified", cisplan.TypeSecurityDomain, map[string]string{
		"classification": "UNCLASSIFIED",
	})
	seg1.SecurityDomains = []*cisplan.Entity{sd1, sd2}

	hw1 := demoEntity("HW-1", "HQ Rack A", cisplan.TypeHWStack, map[string]string{
		"rackUnits": "42",
	})
	hw2 := demoEntity("HW-2", "HQ Rack B", cisplan.TypeHWStack, map[string]string{
		"rackUnits": "24",
	})
	sd1.HWStacks = []*cisplan.Entity{hw1, hw2}

	router := demoEntity("AS-100", "Core Router", cisplan.TypeAsset, map[string]string{
		"serialNumber": "CR-5501-A",
		"vendor":       "Cisco",
	})
	server := demoEntity("AS-101", "App Server", cisplan.TypeAsset, map[string]string{
		"serialNumber": "SRV-88-C",
		"vendor":       "Dell",
	})
	hw1.Assets = []*cisplan.Entity{router}
	hw2.Assets = []*cisplan.Entity{server}

	ni1 := demoEntity("NI-1", "eth0", cisplan.TypeNetworkInterface, nil)
	ni1.ConfigItems = []cisplan.ConfigurationItem{
		{Name: "ipAddress", Value: "10.40.1.1"},
		{Name: "subnetMask", Value: "255.255.255.0"},
		{Name: "vlan", Value: "40"},
	}
	ni2 := demoEntity("NI-2", "eth1", cisplan.TypeNetworkInterface, nil)
	ni2.ConfigItems = []cisplan.ConfigurationItem{
		{Name: "ipAddress", Value: "10.40.2.1"},
	}
	router.NetworkInterfaces = []*cisplan.Entity{ni1, ni2}

	gp := demoEntity("GP-1", "Messaging Platform", cisplan.TypeGPInstance, map[string]string{
		"version": "12.4",
	})
	server.GPInstances = []*cisplan.Entity{gp}
	server.NetworkInterfaces = []*cisplan.Entity{
		demoEntity("NI-3", "bond0", cisplan.TypeNetworkInterface, nil),
	}

	sp := demoEntity("SP-1", "SMTP Relay", cisplan.TypeSPInstance, nil)
	sp.ConfigItems = []cisplan.ConfigurationItem{
		{Name: "listenPort", Value: "25"},
		{Name: "tlsRequired", Value: "true"},
	}
	gp.SPInstances = []*cisplan.Entity{sp}

	return plan
}
