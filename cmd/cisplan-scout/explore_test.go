// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/rs/zerolog"

	"github.com/cisops/cisplan-scout/pkg/cisplan"
)

// ent builds a typed entity for fixtures.
func ent(id, guid, name string, t cisplan.EntityType) *cisplan.Entity {
	return &cisplan.Entity{ID: id, GUID: guid, Name: name, Type: t}
}

// testPlan builds a small plan with fixed guids:
//
//	Test Plan
//	├── Mission Alpha
//	│   └── Segment One
//	│       └── Domain Secret
//	│           ├── Rack A
//	│           │   └── Router (eth0, Platform → Relay)
//	│           └── Rack B
//	└── Mission Bravo
func testPlan() *cisplan.Entity {
	plan := ent("PLAN-1", "g-plan", "Test Plan", cisplan.TypeCISPlan)
	mn1 := ent("MN-1", "g-mn1", "Mission Alpha", cisplan.TypeMissionNetwork)
	mn2 := ent("MN-2", "g-mn2", "Mission Bravo", cisplan.TypeMissionNetwork)
	ns1 := ent("NS-1", "g-ns1", "Segment One", cisplan.TypeNetworkSegment)
	sd1 := ent("SD-1", "g-sd1", "Domain Secret", cisplan.TypeSecurityDomain)
	hw1 := ent("HW-1", "g-hw1", "Rack A", cisplan.TypeHWStack)
	hw2 := ent("HW-2", "g-hw2", "Rack B", cisplan.TypeHWStack)
	as1 := ent("AS-1", "g-as1", "Router", cisplan.TypeAsset)
	ni1 := ent("NI-1", "g-ni1", "eth0", cisplan.TypeNetworkInterface)
	gp1 := ent("GP-1", "g-gp1", "Platform", cisplan.TypeGPInstance)
	sp1 := ent("SP-1", "g-sp1", "Relay", cisplan.TypeSPInstance)

	ni1.ConfigItems = []cisplan.ConfigurationItem{{Name: "ipAddress", Value: "10.0.0.1"}}
	sp1.ConfigItems = []cisplan.ConfigurationItem{{Name: "listenPort", Value: "25"}}

	plan.MissionNetworks = []*cisplan.Entity{mn1, mn2}
	mn1.NetworkSegments = []*cisplan.Entity{ns1}
	ns1.SecurityDomains = []*cisplan.Entity{sd1}
	sd1.HWStacks = []*cisplan.Entity{hw1, hw2}
	hw1.Assets = []*cisplan.Entity{as1}
	as1.NetworkInterfaces = []*cisplan.Entity{ni1}
	as1.GPInstances = []*cisplan.Entity{gp1}
	gp1.SPInstances = []*cisplan.Entity{sp1}

	return plan
}

// testExploreModel builds a ready model over the fixture plan, bypassing
// the initial load.
func testExploreModel() Model {
	root := testPlan()

	vp := viewport.New(40, 20)
	m := Model{
		client:      newDemoClient(root),
		log:         zerolog.Nop(),
		keymap:      defaultKeyMap(),
		spinner:     spinner.New(),
		detailsPane: vp,
		ready:       true,
		width:       120,
		height:      40,
	}
	m.repo = cisplan.NewRepository(root)
	m.root = &viewNode{entity: root}
	m.applyDefaultExpansion()
	m.rebuildFlatList()
	return m
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// press runs one message through Update and returns the new model.
func press(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	return next.(Model), cmd
}

func flatNames(m Model) []string {
	names := make([]string, len(m.flatList))
	for i, n := range m.flatList {
		names[i] = n.entity.Name
	}
	return names
}

func TestExploreInitialView(t *testing.T) {
	m := testExploreModel()
	view := m.View()

	if !strings.Contains(view, "CIS PLAN EXPLORER") {
		t.Errorf("expected header in view, got: %s", view[:min(len(view), 200)])
	}
	if !strings.Contains(view, "Mission Alpha") {
		t.Error("expected the expanded root's mission networks in the tree")
	}
	if strings.Contains(view, "Segment One") {
		t.Error("expected deeper levels collapsed by default")
	}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func TestDefaultExpansion(t *testing.T) {
	m := testExploreModel()

	// Root expanded, everything below collapsed
	want := []string{"Test Plan", "Mission Alpha", "Mission Bravo"}
	got := flatNames(m)
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestActivationIsExclusive(t *testing.T) {
	m := testExploreModel()

	// Activate Mission Alpha
	m.cursor = 1
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeGUID != "g-mn1" {
		t.Fatalf("expected active guid g-mn1, got %q", m.activeGUID)
	}
	if m.nav.Current.GUID != "g-mn1" {
		t.Fatalf("expected current position g-mn1, got %q", m.nav.Current.GUID)
	}
	if cmd == nil {
		t.Fatal("expected a details fetch command on activation")
	}

	// Activating Mission Bravo moves the single active flag
	for i, n := range m.flatList {
		if n.entity.GUID == "g-mn2" {
			m.cursor = i
		}
	}
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.activeGUID != "g-mn2" {
		t.Errorf("expected active guid g-mn2, got %q", m.activeGUID)
	}
	if m.nav.Previous.GUID != "g-mn1" {
		t.Errorf("expected previous position g-mn1, got %q", m.nav.Previous.GUID)
	}
}

func TestActivationExpandsAndBuildsElements(t *testing.T) {
	m := testExploreModel()

	m.cursor = 1 // Mission Alpha
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if len(m.elements) != 1 || m.elements[0].entity.GUID != "g-ns1" {
		t.Fatalf("expected one element card for Segment One, got %d cards", len(m.elements))
	}
	found := false
	for _, name := range flatNames(m) {
		if name == "Segment One" {
			found = true
		}
	}
	if !found {
		t.Error("expected activation to expand the node's children in the tree")
	}
}

func TestElementsSelectionKeepsTreePosition(t *testing.T) {
	m := testExploreModel()

	m.cursor = 1
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m.focus = focusElements

	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.nav.Selected.GUID != "g-ns1" {
		t.Fatalf("expected selected position g-ns1, got %q", m.nav.Selected.GUID)
	}
	if m.nav.Current.GUID != "g-mn1" {
		t.Errorf("selection must not move the tree position, got current %q", m.nav.Current.GUID)
	}
	if m.activeGUID != "g-mn1" {
		t.Errorf("selection must not move the active flag, got %q", m.activeGUID)
	}
	if cmd == nil {
		t.Error("expected a details fetch for the selected card")
	}
}

func TestElementsNavigateIntoMovesTree(t *testing.T) {
	m := testExploreModel()

	m.cursor = 1
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	m.focus = focusElements

	m, _ = press(t, m, keyRune('l'))
	if m.nav.Current.GUID != "g-ns1" {
		t.Fatalf("expected navigate-into to move the tree to g-ns1, got %q", m.nav.Current.GUID)
	}
	if m.focus != focusTree {
		t.Error("expected focus back on the tree after navigate-into")
	}
	if m.flatList[m.cursor].entity.GUID != "g-ns1" {
		t.Error("expected the tree cursor on the promoted child")
	}
}

func TestNavigateUp(t *testing.T) {
	m := testExploreModel()

	cmd := m.selectByGUID("g-as1")
	if cmd == nil {
		t.Fatal("expected details command from selection")
	}
	if m.nav.Current.GUID != "g-as1" {
		t.Fatalf("setup failed, current is %q", m.nav.Current.GUID)
	}

	m, _ = press(t, m, keyRune('u'))
	if m.nav.Current.GUID != "g-hw1" {
		t.Errorf("expected navigate-up to land on g-hw1, got %q", m.nav.Current.GUID)
	}

	// The root has no parent
	m.nav = m.nav.Activate(m.positionFor(m.repo.Root()))
	m, _ = press(t, m, keyRune('u'))
	if m.nav.Current.GUID != "g-plan" {
		t.Errorf("expected navigate-up on the root to stay put, got %q", m.nav.Current.GUID)
	}
}

func TestPositionParentIDs(t *testing.T) {
	m := testExploreModel()
	pos := m.positionFor(m.repo.Get("g-sd1"))

	if pos.ParentIDs["cisplanId"] != "PLAN-1" {
		t.Errorf("expected cisplanId PLAN-1, got %q", pos.ParentIDs["cisplanId"])
	}
	if pos.ParentIDs["missionNetworkId"] != "MN-1" {
		t.Errorf("expected missionNetworkId MN-1, got %q", pos.ParentIDs["missionNetworkId"])
	}
	if pos.ParentIDs["networkSegmentId"] != "NS-1" {
		t.Errorf("expected networkSegmentId NS-1, got %q", pos.ParentIDs["networkSegmentId"])
	}
}

func typeSearch(t *testing.T, m Model, query string) Model {
	t.Helper()
	m, _ = press(t, m, keyRune('/'))
	for _, r := range query {
		m, _ = press(t, m, keyRune(r))
	}
	return m
}

func TestSearchFilterShowsMatchChain(t *testing.T) {
	m := testExploreModel()
	m = typeSearch(t, m, "relay")

	want := []string{"Test Plan", "Mission Alpha", "Segment One", "Domain Secret", "Rack A", "Router", "Platform", "Relay"}
	got := flatNames(m)
	if strings.Join(got, "/") != strings.Join(want, "/") {
		t.Errorf("expected ancestor chain %v, got %v", want, got)
	}
	if len(m.searchMatches) != 1 {
		t.Errorf("expected exactly one direct match, got %d", len(m.searchMatches))
	}
	if m.flatList[m.cursor].entity.GUID != "g-sp1" {
		t.Errorf("expected cursor on the match, got %q", m.flatList[m.cursor].entity.GUID)
	}
}

func TestSearchFilterIsIdempotent(t *testing.T) {
	m := testExploreModel()
	initial := strings.Join(flatNames(m), "/")

	m = typeSearch(t, m, "rack")
	first := strings.Join(flatNames(m), "/")

	// Clearing restores the default view
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEscape})
	if got := strings.Join(flatNames(m), "/"); got != initial {
		t.Errorf("expected Esc to restore the default view, got %v", got)
	}
	if m.searchQuery != "" || m.filterActive {
		t.Error("expected search state cleared")
	}

	// The same query yields the same view, run after run
	m = typeSearch(t, m, "rack")
	if got := strings.Join(flatNames(m), "/"); got != first {
		t.Errorf("expected identical filter results, first %q then %q", first, got)
	}
}

func TestSearchLevelScope(t *testing.T) {
	m := testExploreModel()

	// "r" matches Router, Rack A, Rack B, Relay; scoped to HW stacks it
	// matches only the racks
	m = typeSearch(t, m, "r")
	m.searchLevel = cisplan.TypeHWStack
	m.rebuildFlatList()

	if len(m.searchMatches) != 2 {
		t.Fatalf("expected 2 matches at the hwStack level, got %d", len(m.searchMatches))
	}
	for _, idx := range m.searchMatches {
		if m.flatList[idx].entity.Type != cisplan.TypeHWStack {
			t.Errorf("match %q is not a hw stack", m.flatList[idx].entity.Name)
		}
	}
}

func TestSearchMatchCycling(t *testing.T) {
	m := testExploreModel()
	m = typeSearch(t, m, "rack")
	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyEnter}) // commit query

	firstCursor := m.cursor
	m, _ = press(t, m, keyRune('n'))
	if m.cursor == firstCursor {
		t.Error("expected n to move to the next match")
	}
	m, _ = press(t, m, keyRune('N'))
	if m.cursor != firstCursor {
		t.Error("expected N to move back to the first match")
	}
}

func TestStaleDetailsResponseDropped(t *testing.T) {
	m := testExploreModel()
	m.detailsSeq = 2
	m.detailsLoading = true

	stale := ent("NS-1", "g-ns1", "Segment One", cisplan.TypeNetworkSegment)
	m, _ = press(t, m, detailsLoadedMsg{seq: 1, entity: stale})
	if !m.detailsLoading {
		t.Error("a stale response must not settle the details pane")
	}

	fresh := ent("SD-1", "g-sd1", "Domain Secret", cisplan.TypeSecurityDomain)
	m, _ = press(t, m, detailsLoadedMsg{seq: 2, entity: fresh})
	if m.detailsLoading {
		t.Error("the matching response must settle the details pane")
	}
	if m.detailsEntity.GUID != "g-sd1" {
		t.Errorf("expected details for g-sd1, got %q", m.detailsEntity.GUID)
	}
}

func TestRootDetailsNeedNoFetch(t *testing.T) {
	m := testExploreModel()

	cmd := m.activateNode(m.root)
	if cmd != nil {
		t.Error("expected no fetch command for the plan root")
	}
	if !strings.Contains(m.detailsContent, "Inventory") {
		t.Error("expected local plan summary content")
	}
}

func TestGPInstanceDetailsShowSPItems(t *testing.T) {
	gp := testPlan()
	entity := cisplan.FindByGUID(gp, "g-gp1")

	content := buildEntityDetails(entity)
	if !strings.Contains(content, "Configuration Items") {
		t.Fatal("expected a configuration items section")
	}
	if !strings.Contains(content, "listenPort") {
		t.Error("expected the SP instance's items aggregated under the GP instance")
	}
}

func TestDetailsFetchRoundTrip(t *testing.T) {
	m := testExploreModel()

	cmd := m.selectByGUID("g-ns1")
	if cmd == nil {
		t.Fatal("expected a details command")
	}
	msg := cmd()
	loaded, ok := msg.(detailsLoadedMsg)
	if !ok {
		t.Fatalf("expected detailsLoadedMsg, got %T", msg)
	}
	if loaded.err != nil {
		t.Fatalf("unexpected fetch error: %v", loaded.err)
	}

	m, _ = press(t, m, loaded)
	if !strings.Contains(m.detailsContent, "NS-1") {
		t.Errorf("expected rendered details for NS-1, got: %s", m.detailsContent)
	}
}

func TestDeleteOverlayDefaultsToNo(t *testing.T) {
	m := testExploreModel()
	m.selectByGUID("g-hw2")

	m, _ = press(t, m, keyRune('d'))
	if !m.deleteMode {
		t.Fatal("expected the delete overlay to open")
	}
	if m.deleteCursor != 1 {
		t.Error("expected the overlay to default to No")
	}

	// Enter on No closes without deleting
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.deleteMode {
		t.Error("expected the overlay closed")
	}
	if cmd != nil {
		t.Error("expected no delete command when No is chosen")
	}
	if m.repo.Get("g-hw2") == nil {
		t.Error("entity must survive a declined delete")
	}
}

func TestDeleteConfirmRefreshes(t *testing.T) {
	m := testExploreModel()
	m.selectByGUID("g-hw2")

	m, _ = press(t, m, keyRune('d'))
	m, cmd := press(t, m, keyRune('y'))
	if cmd == nil {
		t.Fatal("expected a delete command on confirm")
	}

	msg := cmd()
	m, _ = press(t, m, msg)
	if m.deleteMode {
		t.Error("expected the overlay closed after a successful delete")
	}
	if !m.loading {
		t.Error("expected a full reload after the mutation")
	}
}

func TestRenameOverlaySeedsCurrentName(t *testing.T) {
	m := testExploreModel()
	m.selectByGUID("g-hw1")

	m, _ = press(t, m, keyRune('e'))
	if !m.editMode {
		t.Fatal("expected the rename overlay to open")
	}
	if m.editName != "Rack A" {
		t.Errorf("expected the current name seeded, got %q", m.editName)
	}

	// Blank names are rejected before any request
	m.editName = "  "
	m, cmd := press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil || m.editErr == nil {
		t.Error("expected a validation error for a blank name")
	}
}

func TestMutationsNeedASelection(t *testing.T) {
	m := testExploreModel()

	for _, r := range []rune{'e', 'd'} {
		next, cmd := press(t, m, keyRune(r))
		if next.editMode || next.deleteMode {
			t.Errorf("key %q must not open an overlay without a selection", r)
		}
		if cmd != nil {
			t.Errorf("key %q must not issue a command without a selection", r)
		}
		if next.statusMsg == "" {
			t.Errorf("key %q should explain why nothing happened", r)
		}
	}
}

func TestJourneyExploreSearchAndQuit(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	m := testExploreModel()

	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(120, 40))

	time.Sleep(50 * time.Millisecond)

	// Walk down and activate a mission network
	tm.Send(keyRune('j'))
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	time.Sleep(50 * time.Millisecond)

	// Search for the relay, then clear
	tm.Send(keyRune('/'))
	for _, r := range "relay" {
		tm.Send(keyRune(r))
	}
	time.Sleep(50 * time.Millisecond)
	tm.Send(tea.KeyMsg{Type: tea.KeyEscape})

	// Open and close help
	tm.Send(keyRune('?'))
	tm.Send(tea.KeyMsg{Type: tea.KeyEscape})

	tm.Send(keyRune('q'))
	finalModel := tm.FinalModel(t, teatest.WithFinalTimeout(2*time.Second))

	fm := finalModel.(Model)
	if fm.activeGUID != "g-mn1" {
		t.Errorf("expected Mission Alpha active at quit, got %q", fm.activeGUID)
	}
	if fm.searchQuery != "" {
		t.Errorf("expected search cleared at quit, got %q", fm.searchQuery)
	}
}
