// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cisops/cisplan-scout/internal/clierr"
	"github.com/cisops/cisplan-scout/internal/logging"
	"github.com/cisops/cisplan-scout/internal/navstate"
	"github.com/cisops/cisplan-scout/pkg/cisplan"
	"github.com/cisops/cisplan-scout/pkg/planapi"
)

// Types, styles, and constants are in explore_types.go

// Commands

func loadTreeCmd(client planClient) tea.Cmd {
	return func() tea.Msg {
		root, err := client.FetchTree(context.Background())
		if err != nil {
			return errMsg{err: err}
		}
		return dataLoadedMsg{root: root}
	}
}

func loadDetailsCmd(client planClient, t cisplan.EntityType, id string, seq int) tea.Cmd {
	return func() tea.Msg {
		e, err := client.FetchEntity(context.Background(), t, id)
		return detailsLoadedMsg{seq: seq, entity: e, err: err}
	}
}

func renameCmd(client planClient, t cisplan.EntityType, id, name string) tea.Cmd {
	return func() tea.Msg {
		err := client.UpdateEntity(context.Background(), t, id, map[string]string{"name": name})
		return mutationDoneMsg{action: "rename", err: err}
	}
}

func deleteCmd(client planClient, t cisplan.EntityType, id string) tea.Cmd {
	return func() tea.Msg {
		err := client.DeleteEntity(context.Background(), t, id)
		return mutationDoneMsg{action: "delete", err: err}
	}
}

// Model construction

func initialModel(client planClient) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	vp := viewport.New(40, 20)
	vp.MouseWheelEnabled = true

	return Model{
		client:          client,
		log:             logging.New("explore"),
		keymap:          defaultKeyMap(),
		spinner:         sp,
		detailsPane:     vp,
		loading:         true,
		pendingSnapshot: loadSessionSnapshot(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadTreeCmd(m.client))
}

// Tree bookkeeping

// rebuildFlatList recomputes the visible node list. With an active search
// filter, visibility is driven purely by matches plus their ancestor
// chains; expand flags are untouched, so repeating a search is idempotent
// and clearing it restores whatever expansion state is in force.
func (m *Model) rebuildFlatList() {
	m.flatList = nil
	m.matchCache = make(map[*viewNode]bool)
	if m.root == nil {
		return
	}

	if m.filterActive && m.searchQuery != "" {
		if m.nodeOrDescendantMatches(m.root) {
			m.appendFiltered(m.root)
		}
	} else {
		m.appendVisible(m.root)
	}

	if m.cursor >= len(m.flatList) {
		m.cursor = len(m.flatList) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}

	if m.searchQuery != "" {
		m.updateSearchMatches()
	}
}

func (m *Model) appendVisible(n *viewNode) {
	m.flatList = append(m.flatList, n)
	if n.expanded {
		n.materialize()
		for _, kid := range n.children {
			m.appendVisible(kid)
		}
	}
}

func (m *Model) appendFiltered(n *viewNode) {
	m.flatList = append(m.flatList, n)
	n.materialize()
	for _, kid := range n.children {
		if m.nodeOrDescendantMatches(kid) {
			m.appendFiltered(kid)
		}
	}
}

// applyDefaultExpansion restores the startup state: the root level is
// expanded, everything below is collapsed.
func (m *Model) applyDefaultExpansion() {
	if m.root == nil {
		return
	}
	var collapse func(n *viewNode)
	collapse = func(n *viewNode) {
		n.expanded = false
		for _, kid := range n.children {
			collapse(kid)
		}
	}
	collapse(m.root)
	m.root.materialize()
	m.root.expanded = true
}

// nodeMatchesQuery returns true if this node directly matches the search
// term and level scope.
func (m *Model) nodeMatchesQuery(n *viewNode) bool {
	if m.searchQuery == "" {
		return true
	}
	if m.searchLevel != "" && n.entity.Type != m.searchLevel {
		return false
	}
	query := strings.ToLower(m.searchQuery)
	return strings.Contains(strings.ToLower(n.entity.Name), query) ||
		strings.Contains(strings.ToLower(n.entity.ID), query)
}

// nodeOrDescendantMatches checks the whole subtree so ancestor chains of
// matches stay visible. Results are cached per rebuild.
func (m *Model) nodeOrDescendantMatches(n *viewNode) bool {
	if m.searchQuery == "" {
		return true
	}
	if result, ok := m.matchCache[n]; ok {
		return result
	}
	if m.nodeMatchesQuery(n) {
		m.matchCache[n] = true
		return true
	}
	n.materialize()
	for _, kid := range n.children {
		if m.nodeOrDescendantMatches(kid) {
			m.matchCache[n] = true
			return true
		}
	}
	m.matchCache[n] = false
	return false
}

func (m *Model) updateSearchMatches() {
	m.searchMatches = nil
	m.searchIndex = 0

	if m.searchQuery == "" {
		return
	}
	for i, n := range m.flatList {
		if m.nodeMatchesQuery(n) {
			m.searchMatches = append(m.searchMatches, i)
		}
	}
	if len(m.searchMatches) > 0 {
		for i, matchIdx := range m.searchMatches {
			if matchIdx >= m.cursor {
				m.searchIndex = i
				m.cursor = matchIdx
				return
			}
		}
		m.searchIndex = 0
		m.cursor = m.searchMatches[0]
	}
}

func (m *Model) nextSearchMatch() {
	if len(m.searchMatches) == 0 {
		return
	}
	m.searchIndex = (m.searchIndex + 1) % len(m.searchMatches)
	m.cursor = m.searchMatches[m.searchIndex]
}

func (m *Model) prevSearchMatch() {
	if len(m.searchMatches) == 0 {
		return
	}
	m.searchIndex--
	if m.searchIndex < 0 {
		m.searchIndex = len(m.searchMatches) - 1
	}
	m.cursor = m.searchMatches[m.searchIndex]
}

func (m *Model) isSearchMatch(idx int) bool {
	for _, matchIdx := range m.searchMatches {
		if matchIdx == idx {
			return true
		}
	}
	return false
}

// clearSearch drops the query and restores the default expansion.
func (m *Model) clearSearch() {
	m.searchMode = false
	m.searchQuery = ""
	m.searchLevel = ""
	m.searchMatches = nil
	m.filterActive = false
	m.applyDefaultExpansion()
	m.rebuildFlatList()
}

// searchLevels is the scope cycle for ctrl+l during search.
var searchLevels = []cisplan.EntityType{
	"",
	cisplan.TypeMissionNetwork,
	cisplan.TypeNetworkSegment,
	cisplan.TypeSecurityDomain,
	cisplan.TypeHWStack,
	cisplan.TypeAsset,
	cisplan.TypeNetworkInterface,
	cisplan.TypeGPInstance,
	cisplan.TypeSPInstance,
}

func (m *Model) cycleSearchLevel() {
	for i, level := range searchLevels {
		if level == m.searchLevel {
			m.searchLevel = searchLevels[(i+1)%len(searchLevels)]
			return
		}
	}
	m.searchLevel = ""
}

func (m *Model) searchLevelName() string {
	if m.searchLevel == "" {
		return "all levels"
	}
	return m.searchLevel.Label() + "s"
}

// Navigation

// positionFor derives a navigation position from a single tree walk.
func (m *Model) positionFor(e *cisplan.Entity) navstate.Position {
	return navstate.PositionFromPath(m.repo.PathTo(e.GUID))
}

// activateNode makes the node the tree's current position: the active
// flag moves here exclusively, children materialize, the elements pane
// rebuilds, and a details fetch starts.
func (m *Model) activateNode(n *viewNode) tea.Cmd {
	m.activeGUID = n.entity.GUID
	n.materialize()
	if n.hasChildren() {
		n.expanded = true
	}

	pos := m.positionFor(n.entity)
	m.nav = m.nav.Activate(pos)
	m.log.Debug().
		Str("type", string(n.entity.Type)).
		Str("id", n.entity.ID).
		Str("level", pos.Level).
		Msg("tree activation")

	m.buildElements()
	m.rebuildFlatList()
	return m.loadDetails(n.entity)
}

// selectByGUID expands every ancestor on the path to the entity, moves
// the cursor there, and activates it. Used by navigate-into, navigate-up,
// and anything else that asks the tree to reveal a node.
func (m *Model) selectByGUID(guid string) tea.Cmd {
	path := m.repo.PathTo(guid)
	if path == nil {
		m.statusMsg = "Entity not found in the loaded plan"
		return nil
	}
	node := m.root
	for _, e := range path[1:] {
		node.materialize()
		node.expanded = true
		var next *viewNode
		for _, kid := range node.children {
			if kid.entity.GUID == e.GUID {
				next = kid
				break
			}
		}
		if next == nil {
			m.statusMsg = "Entity not found in the loaded plan"
			return nil
		}
		node = next
	}

	cmd := m.activateNode(node)
	for i, n := range m.flatList {
		if n == node {
			m.cursor = i
			break
		}
	}
	m.focus = focusTree
	return cmd
}

// navigateUp activates the current node's parent.
func (m *Model) navigateUp() tea.Cmd {
	if m.nav.Current.IsZero() {
		return nil
	}
	if _, ok := navstate.AncestorOf(m.nav.Current.Level); !ok {
		m.statusMsg = "Already at the plan root"
		return nil
	}
	parent := m.repo.ParentOf(m.nav.Current.GUID)
	if parent == nil {
		return nil
	}
	return m.selectByGUID(parent.GUID)
}

// Elements pane

func pluralLabel(t cisplan.EntityType) string {
	return t.Label() + "s"
}

// buildElements rebuilds the cards from the tree's current entity.
func (m *Model) buildElements() {
	m.elements = nil
	m.elemCursor = 0
	if m.nav.Current.IsZero() {
		return
	}
	parent := m.repo.Get(m.nav.Current.GUID)
	if parent == nil {
		return
	}
	for _, ct := range parent.Type.ChildTypes() {
		for _, kid := range parent.Children(ct) {
			m.elements = append(m.elements, elementCard{
				section: pluralLabel(ct),
				entity:  kid,
			})
		}
	}
}

// selectCard records an elements-pane selection: only the details pane
// follows, the tree position stays put.
func (m *Model) selectCard(card elementCard) tea.Cmd {
	m.nav = m.nav.SelectOnly(m.positionFor(card.entity))
	m.log.Debug().
		Str("type", string(card.entity.Type)).
		Str("id", card.entity.ID).
		Msg("card selection")
	return m.loadDetails(card.entity)
}

// Details pane

// loadDetails starts a details fetch for the entity. The plan root is
// rendered from memory with no network call. Responses are sequenced so
// the pane always shows the most recently requested entity, not whichever
// response lands last.
func (m *Model) loadDetails(e *cisplan.Entity) tea.Cmd {
	m.detailsError = nil
	if e.Type == cisplan.TypeCISPlan {
		m.detailsLoading = false
		m.detailsEntity = e
		m.detailsContent = m.buildPlanSummary()
		m.detailsPane.SetContent(m.detailsContent)
		m.detailsPane.GotoTop()
		return nil
	}
	m.detailsLoading = true
	m.detailsSeq++
	return loadDetailsCmd(m.client, e.Type, e.ID, m.detailsSeq)
}

// buildPlanSummary renders the root metadata and per-type counts.
func (m *Model) buildPlanSummary() string {
	root := m.repo.Root()
	var b strings.Builder

	b.WriteString(attrRow("ID", root.ID))
	b.WriteString(attrRow("GUID", root.GUID))
	for _, name := range root.AttrNames() {
		b.WriteString(attrRow(titleCase(name), root.Attrs[name]))
	}
	b.WriteString("\n")
	b.WriteString(sectionStyle.Render("Inventory"))
	b.WriteString("\n")

	counts := m.repo.CountByType()
	for _, t := range cisplan.AllTypes {
		if t == cisplan.TypeCISPlan {
			continue
		}
		b.WriteString(attrRow(pluralLabel(t), fmt.Sprintf("%d", counts[t])))
	}
	return b.String()
}

func attrRow(name, value string) string {
	return fmt.Sprintf("%s %s\n", attrKeyStyle.Render(fmt.Sprintf("%-22s", name+":")), value)
}

// buildEntityDetails renders the type-specific attribute table, plus the
// configuration item tables where the type carries them. A GP instance
// shows the items of its SP instances.
func buildEntityDetails(e *cisplan.Entity) string {
	var b strings.Builder

	b.WriteString(attrRow("ID", e.ID))
	b.WriteString(attrRow("GUID", e.GUID))
	b.WriteString(attrRow("Name", e.Name))
	for _, name := range e.AttrNames() {
		b.WriteString(attrRow(titleCase(name), e.Attrs[name]))
	}

	for _, ct := range e.Type.ChildTypes() {
		b.WriteString(attrRow(pluralLabel(ct), fmt.Sprintf("%d", len(e.Children(ct)))))
	}

	if e.Type.HasConfigItems() {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Configuration Items"))
		b.WriteString("\n")
		b.WriteString(configItemTable(e.ConfigItems))
	}
	if e.Type == cisplan.TypeGPInstance {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Configuration Items"))
		b.WriteString("\n")
		var items []cisplan.ConfigurationItem
		for _, sp := range e.SPInstances {
			items = append(items, sp.ConfigItems...)
		}
		b.WriteString(configItemTable(items))
	}
	return b.String()
}

func configItemTable(items []cisplan.ConfigurationItem) string {
	if len(items) == 0 {
		return dimStyle.Render("(none)") + "\n"
	}
	sorted := make([]cisplan.ConfigurationItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	var b strings.Builder
	for _, item := range sorted {
		b.WriteString(attrRow(item.Name, item.Value))
	}
	return b.String()
}

// refreshAll reloads the whole tree and resets navigation state.
func (m *Model) refreshAll() tea.Cmd {
	m.loading = true
	m.nav = m.nav.Reset()
	m.activeGUID = ""
	m.elements = nil
	m.detailsContent = ""
	m.detailsEntity = nil
	m.detailsError = nil
	return loadTreeCmd(m.client)
}

// Update

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Move dialog owns the keyboard while open
		if m.move != nil {
			return m.updateMoveDialog(msg)
		}

		if m.editMode {
			return m.updateEditOverlay(msg)
		}

		if m.deleteMode {
			return m.updateDeleteOverlay(msg)
		}

		// Help overlay - dismiss on any key
		if m.helpMode {
			m.helpMode = false
			return m, nil
		}

		if m.searchMode {
			return m.updateSearchInput(msg)
		}

		// Details pane focus - route keys to the viewport
		if m.focus == focusDetails {
			switch msg.String() {
			case "j", "down":
				m.detailsPane.LineDown(1)
				return m, nil
			case "k", "up":
				m.detailsPane.LineUp(1)
				return m, nil
			case "ctrl+d":
				m.detailsPane.HalfViewDown()
				return m, nil
			case "ctrl+u":
				m.detailsPane.HalfViewUp()
				return m, nil
			case "g":
				m.detailsPane.GotoTop()
				return m, nil
			case "G":
				m.detailsPane.GotoBottom()
				return m, nil
			case "tab":
				m.focus = focusTree
				return m, nil
			case "esc":
				m.focus = focusTree
				return m, nil
			case "q", "ctrl+c":
				saveSessionSnapshot(&m)
				return m, tea.Quit
			default:
				return m, nil
			}
		}

		if m.focus == focusElements {
			return m.updateElementsPane(msg)
		}

		return m.updateTreePane(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resizePanes()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case dataLoadedMsg:
		m.loading = false
		m.err = nil
		m.statusMsg = ""
		m.repo = cisplan.NewRepository(msg.root)
		m.root = &viewNode{entity: msg.root}
		m.applyDefaultExpansion()
		m.restoreSnapshot()
		m.buildElements()
		m.rebuildFlatList()

	case errMsg:
		m.loading = false
		m.err = msg.err
		m.log.Error().Err(msg.err).Msg("tree load failed")

	case detailsLoadedMsg:
		if msg.seq != m.detailsSeq {
			// A newer fetch is already in flight; drop the stale response.
			return m, nil
		}
		m.detailsLoading = false
		if msg.err != nil {
			m.detailsError = msg.err
			m.detailsContent = errStyle.Render(clierr.Pretty(msg.err))
			m.detailsPane.SetContent(m.detailsContent)
			m.log.Error().Err(msg.err).Msg("details fetch failed")
			return m, nil
		}
		m.detailsEntity = msg.entity
		m.detailsContent = buildEntityDetails(msg.entity)
		m.detailsPane.SetContent(m.detailsContent)
		m.detailsPane.GotoTop()

	case moveTreeLoadedMsg:
		return m.handleMoveTreeLoaded(msg)

	case moveResultMsg:
		return m.handleMoveResult(msg)

	case mutationDoneMsg:
		if m.editMode {
			if msg.err != nil {
				m.editStep = confirmStepAsk
				m.editErr = msg.err
				return m, nil
			}
			m.editMode = false
			m.statusMsg = "Renamed"
			return m, m.refreshAll()
		}
		if m.deleteMode {
			if msg.err != nil {
				m.deleteStep = confirmStepAsk
				m.deleteErr = msg.err
				return m, nil
			}
			m.deleteMode = false
			m.statusMsg = "Deleted"
			return m, m.refreshAll()
		}
	}

	return m, nil
}

func (m *Model) resizePanes() {
	rightWidth := m.width - m.width*2/5 - 6
	detailsHeight := (m.height - 10) / 2
	if rightWidth < 20 {
		rightWidth = 20
	}
	if detailsHeight < 5 {
		detailsHeight = 5
	}
	m.detailsPane.Width = rightWidth
	m.detailsPane.Height = detailsHeight
}

// restoreSnapshot re-applies expanded paths and cursor from a saved
// session, once, right after the first data load.
func (m *Model) restoreSnapshot() {
	if m.pendingSnapshot == nil {
		return
	}
	snap := m.pendingSnapshot
	m.pendingSnapshot = nil

	expanded := make(map[string]bool, len(snap.ExpandedGUIDs))
	for _, guid := range snap.ExpandedGUIDs {
		expanded[guid] = true
	}
	var restore func(n *viewNode)
	restore = func(n *viewNode) {
		if expanded[n.entity.GUID] {
			n.materialize()
			n.expanded = true
		}
		for _, kid := range n.children {
			restore(kid)
		}
	}
	restore(m.root)

	m.rebuildFlatList()
	if snap.Cursor < len(m.flatList) {
		m.cursor = snap.Cursor
	}
}

func (m Model) updateTreePane(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Esc clears a committed search
	if msg.String() == "esc" && m.searchQuery != "" {
		m.clearSearch()
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		saveSessionSnapshot(&m)
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keymap.Down):
		if m.cursor < len(m.flatList)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keymap.Left):
		if m.cursor < len(m.flatList) {
			node := m.flatList[m.cursor]
			if node.expanded {
				node.expanded = false
				m.rebuildFlatList()
			} else if node.parent != nil {
				for i, n := range m.flatList {
					if n == node.parent {
						m.cursor = i
						break
					}
				}
			}
		}

	case key.Matches(msg, m.keymap.Right):
		if m.cursor < len(m.flatList) {
			node := m.flatList[m.cursor]
			if !node.expanded && node.hasChildren() {
				node.materialize()
				node.expanded = true
				m.rebuildFlatList()
			}
		}

	case key.Matches(msg, m.keymap.Enter):
		if m.cursor < len(m.flatList) {
			return m, m.activateNode(m.flatList[m.cursor])
		}

	case key.Matches(msg, m.keymap.Tab):
		m.focus = focusElements

	case key.Matches(msg, m.keymap.NavigateUp):
		return m, m.navigateUp()

	case key.Matches(msg, m.keymap.Search):
		m.searchMode = true
		m.searchQuery = ""
		m.searchMatches = nil

	case key.Matches(msg, m.keymap.NextMatch):
		m.nextSearchMatch()

	case key.Matches(msg, m.keymap.PrevMatch):
		m.prevSearchMatch()

	case key.Matches(msg, m.keymap.ToggleFilter):
		if m.searchQuery != "" {
			m.filterActive = !m.filterActive
			m.rebuildFlatList()
		}

	case key.Matches(msg, m.keymap.Refresh):
		return m, m.refreshAll()

	case key.Matches(msg, m.keymap.Help):
		m.helpMode = true

	case key.Matches(msg, m.keymap.Move):
		return m.openMoveDialog()

	case key.Matches(msg, m.keymap.Edit):
		return m.openEditOverlay()

	case key.Matches(msg, m.keymap.Delete):
		return m.openDeleteOverlay()
	}

	return m, nil
}

func (m Model) updateElementsPane(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		saveSessionSnapshot(&m)
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Up):
		if m.elemCursor > 0 {
			m.elemCursor--
		}

	case key.Matches(msg, m.keymap.Down):
		if m.elemCursor < len(m.elements)-1 {
			m.elemCursor++
		}

	case key.Matches(msg, m.keymap.Enter):
		// Single activation: the details pane follows, the tree stays
		if m.elemCursor < len(m.elements) {
			return m, m.selectCard(m.elements[m.elemCursor])
		}

	case key.Matches(msg, m.keymap.Right):
		// Navigate-into: promote the child to the tree's current position
		if m.elemCursor < len(m.elements) {
			return m, m.selectByGUID(m.elements[m.elemCursor].entity.GUID)
		}

	case key.Matches(msg, m.keymap.Left):
		m.focus = focusTree

	case key.Matches(msg, m.keymap.Tab):
		m.focus = focusDetails

	case key.Matches(msg, m.keymap.NavigateUp):
		return m, m.navigateUp()

	case key.Matches(msg, m.keymap.Move):
		return m.openMoveDialog()

	case key.Matches(msg, m.keymap.Edit):
		return m.openEditOverlay()

	case key.Matches(msg, m.keymap.Delete):
		return m.openDeleteOverlay()

	case key.Matches(msg, m.keymap.Help):
		m.helpMode = true

	default:
		if msg.String() == "esc" {
			m.focus = focusTree
		}
	}

	return m, nil
}

func (m Model) updateSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.clearSearch()
		return m, nil
	case "enter":
		// Keep query, matches, and filter for n/N navigation
		m.searchMode = false
		return m, nil
	case "ctrl+l":
		m.cycleSearchLevel()
		m.rebuildFlatList()
		return m, nil
	case "backspace":
		if len(m.searchQuery) > 0 {
			m.searchQuery = m.searchQuery[:len(m.searchQuery)-1]
			m.rebuildFlatList()
		}
		return m, nil
	default:
		if len(msg.String()) == 1 {
			m.searchQuery += strings.ToLower(msg.String())
			m.filterActive = true
			m.rebuildFlatList()
		}
		return m, nil
	}
}

// Edit overlay

func (m Model) openEditOverlay() (tea.Model, tea.Cmd) {
	if m.nav.Selected.IsZero() || m.nav.Selected.Type == cisplan.TypeCISPlan {
		m.statusMsg = "Select an entity to rename"
		return m, nil
	}
	m.editMode = true
	m.editStep = confirmStepAsk
	m.editName = m.nav.Selected.Name
	m.editErr = nil
	return m, nil
}

func (m Model) updateEditOverlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editStep == confirmStepBusy {
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.editMode = false
		return m, nil
	case "enter":
		if strings.TrimSpace(m.editName) == "" {
			m.editErr = fmt.Errorf("name cannot be empty")
			return m, nil
		}
		m.editStep = confirmStepBusy
		m.editErr = nil
		return m, renameCmd(m.client, m.nav.Selected.Type, m.nav.Selected.ID, strings.TrimSpace(m.editName))
	case "backspace":
		if len(m.editName) > 0 {
			m.editName = m.editName[:len(m.editName)-1]
		}
		return m, nil
	default:
		if len(msg.String()) == 1 {
			m.editName += msg.String()
		}
		return m, nil
	}
}

// Delete overlay

func (m Model) openDeleteOverlay() (tea.Model, tea.Cmd) {
	if m.nav.Selected.IsZero() || m.nav.Selected.Type == cisplan.TypeCISPlan {
		m.statusMsg = "Select an entity to delete"
		return m, nil
	}
	m.deleteMode = true
	m.deleteStep = confirmStepAsk
	m.deleteCursor = 1 // Default to "No" for safety
	m.deleteErr = nil
	return m, nil
}

func (m Model) updateDeleteOverlay(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.deleteStep == confirmStepBusy {
		return m, nil
	}
	switch msg.String() {
	case "esc", "n":
		m.deleteMode = false
		return m, nil
	case "left", "h", "right", "l", "tab":
		m.deleteCursor = 1 - m.deleteCursor
		return m, nil
	case "y":
		m.deleteCursor = 0
		fallthrough
	case "enter":
		if m.deleteCursor != 0 {
			m.deleteMode = false
			return m, nil
		}
		m.deleteStep = confirmStepBusy
		m.deleteErr = nil
		return m, deleteCmd(m.client, m.nav.Selected.Type, m.nav.Selected.ID)
	}
	return m, nil
}

// View

func (m Model) View() string {
	if !m.ready {
		return m.spinner.View() + " Initializing..."
	}

	if m.loading {
		msg := "Loading CIS Plan..."
		if m.statusMsg != "" {
			msg = m.statusMsg
		}
		return m.spinner.View() + " " + msg
	}

	if m.err != nil {
		return clierr.Pretty(m.err) + "\n\nPress q to quit, r to retry"
	}

	if m.move != nil {
		return m.renderMoveDialog()
	}
	if m.editMode {
		return m.renderEditOverlay()
	}
	if m.deleteMode {
		return m.renderDeleteOverlay()
	}
	if m.helpMode {
		return m.renderHelpOverlay()
	}

	var b strings.Builder

	header := headerStyle.Render(" ⚡ CIS PLAN EXPLORER ")
	b.WriteString(header)
	if m.repo != nil {
		planName := dimStyle.Render("plan: ") + sectionStyle.Render(m.repo.Root().Name)
		padding := m.width - lipgloss.Width(header) - lipgloss.Width(planName) - 4
		if padding < 2 {
			padding = 2
		}
		b.WriteString(strings.Repeat(" ", padding))
		b.WriteString(planName)
	}
	b.WriteString("\n\n")

	// Breadcrumb for the tree's current position
	if !m.nav.Current.IsZero() {
		b.WriteString(breadcrumbStyle.Render(m.buildBreadcrumb()))
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString(dimStyle.Render(m.statusMsg))
		b.WriteString("\n")
	}

	leftWidth := m.width * 2 / 5
	rightWidth := m.width - leftWidth - 6
	contentHeight := m.height - 9
	if contentHeight < 6 {
		contentHeight = 6
	}
	elementsHeight := contentHeight / 2
	detailsHeight := contentHeight - elementsHeight - 2

	treePane := m.paneBorder(focusTree).
		Width(leftWidth).
		Height(contentHeight).
		Render(m.renderTree())

	elementsPane := m.paneBorder(focusElements).
		Width(rightWidth).
		Height(elementsHeight).
		Render(m.renderElements())

	detailsPane := m.paneBorder(focusDetails).
		Width(rightWidth).
		Height(detailsHeight).
		Render(m.renderDetails())

	right := lipgloss.JoinVertical(lipgloss.Left, elementsPane, detailsPane)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, treePane, " ", right))
	b.WriteString("\n")

	if m.searchMode {
		b.WriteString(dimStyle.Render("Search: "))
		b.WriteString(m.searchQuery)
		b.WriteString("█")
		b.WriteString("  ")
		b.WriteString(searchInfoStyle.Render(fmt.Sprintf("[%s, ctrl+l to change]", m.searchLevelName())))
		if m.searchQuery != "" {
			b.WriteString("  ")
			b.WriteString(searchInfoStyle.Render(fmt.Sprintf("[%d matches]", len(m.searchMatches))))
		}
		b.WriteString("\n")
	} else if m.searchQuery != "" {
		filterStatus := "filter:on"
		if !m.filterActive {
			filterStatus = "filter:off"
		}
		b.WriteString(searchInfoStyle.Render(fmt.Sprintf("/%s  [%d matches in %s]  %s  f toggle  n/N jump  Esc clear",
			m.searchQuery, len(m.searchMatches), m.searchLevelName(), filterStatus)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelpBar())
	return b.String()
}

func (m Model) paneBorder(pane paneFocus) lipgloss.Style {
	if m.focus == pane {
		return paneActiveStyle
	}
	return paneStyle
}

func (m Model) buildBreadcrumb() string {
	path := m.repo.PathTo(m.nav.Current.GUID)
	var parts []string
	for _, e := range path {
		parts = append(parts, e.Name)
	}
	crumb := strings.Join(parts, " → ")
	if !m.nav.Previous.IsZero() {
		crumb += dimStyle.Render(fmt.Sprintf("   (from %s)", m.nav.Previous.Name))
	}
	return crumb
}

func (m Model) renderTree() string {
	var b strings.Builder

	for i, node := range m.flatList {
		isMatch := m.isSearchMatch(i)
		if i == m.cursor {
			if isMatch {
				b.WriteString(searchMatchStyle.Render("▸ "))
			} else {
				b.WriteString(activeStyle.Render("▸ "))
			}
		} else if isMatch {
			b.WriteString(searchMatchStyle.Render("● "))
		} else {
			b.WriteString("  ")
		}

		b.WriteString(strings.Repeat("  ", node.depth()))

		if node.hasChildren() {
			if node.expanded || (m.filterActive && m.searchQuery != "") {
				b.WriteString(iconExpanded + " ")
			} else {
				b.WriteString(iconCollapsed + " ")
			}
		} else {
			b.WriteString("  ")
		}

		if node.entity.GUID == m.activeGUID {
			b.WriteString(activeStyle.Render(iconActive) + " ")
			b.WriteString(typeIcon(node.entity.Type) + " ")
			b.WriteString(activeStyle.Render(node.entity.Name))
		} else {
			b.WriteString(dimStyle.Render(iconInactive) + " ")
			b.WriteString(typeIcon(node.entity.Type) + " ")
			b.WriteString(node.entity.Name)
		}

		b.WriteString("  ")
		b.WriteString(dimStyle.Render(node.entity.ID))
		b.WriteString("\n")
	}

	if len(m.flatList) == 0 {
		b.WriteString(dimStyle.Render("No matches in the plan tree"))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderElements() string {
	var b strings.Builder
	b.WriteString(detailsHeaderStyle.Render("Elements"))
	b.WriteString("\n")

	if m.nav.Current.IsZero() {
		b.WriteString(dimStyle.Render("Activate a node in the tree to browse its children."))
		return b.String()
	}

	parent := m.repo.Get(m.nav.Current.GUID)
	if parent == nil {
		b.WriteString(dimStyle.Render("Nothing selected."))
		return b.String()
	}

	childTypes := parent.Type.ChildTypes()
	if len(childTypes) == 0 {
		b.WriteString(dimStyle.Render(fmt.Sprintf("A %s has no child elements.", parent.Type.Label())))
		return b.String()
	}

	idx := 0
	for _, ct := range childTypes {
		b.WriteString(sectionStyle.Render(pluralLabel(ct)))
		b.WriteString("\n")
		kids := parent.Children(ct)
		if len(kids) == 0 {
			// Never an empty card grid: name what is missing.
			b.WriteString(dimStyle.Render(fmt.Sprintf("  No %s under this %s.", pluralLabel(ct), parent.Type.Label())))
			b.WriteString("\n")
			continue
		}
		for _, kid := range kids {
			cursor := "  "
			name := kid.Name
			if m.focus == focusElements && idx == m.elemCursor {
				cursor = activeStyle.Render("▸ ")
				name = activeStyle.Render(name)
			} else if kid.GUID == m.nav.Selected.GUID {
				cursor = activeStyle.Render(iconActive) + " "
			}
			b.WriteString(fmt.Sprintf("%s%s %s  %s\n", cursor, typeIcon(kid.Type), name, dimStyle.Render(kid.ID)))
			idx++
		}
	}
	return b.String()
}

func (m Model) renderDetails() string {
	var b strings.Builder

	title := "Details"
	if !m.nav.Selected.IsZero() {
		title = fmt.Sprintf("%s %s — %s", typeIcon(m.nav.Selected.Type), m.nav.Selected.Type.Label(), m.nav.Selected.Name)
	}
	b.WriteString(detailsHeaderStyle.Render(title))
	b.WriteString("\n")

	switch {
	case m.detailsLoading:
		b.WriteString(m.spinner.View() + dimStyle.Render(" Loading..."))
	case m.detailsError != nil:
		b.WriteString(errStyle.Render(clierr.Pretty(m.detailsError)))
	case m.detailsContent != "":
		b.WriteString(m.detailsPane.View())
	default:
		b.WriteString(dimStyle.Render("Select an entity to see its attributes."))
	}
	return b.String()
}

func (m Model) renderEditOverlay() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" RENAME "))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Rename %s %q\n\n", m.nav.Selected.Type.Label(), m.nav.Selected.Name))
	b.WriteString(promptStyle.Render("New name: "))
	b.WriteString(m.editName)
	b.WriteString("█\n")
	if m.editErr != nil {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(clierr.Pretty(m.editErr)))
		b.WriteString("\n")
	}
	if m.editStep == confirmStepBusy {
		b.WriteString("\n" + m.spinner.View() + " Saving...\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Enter to save · Esc to cancel"))
	return b.String()
}

func (m Model) renderDeleteOverlay() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" DELETE "))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Delete %s %q and everything beneath it?\n\n",
		m.nav.Selected.Type.Label(), m.nav.Selected.Name))

	yes, no := "  Yes  ", "  No  "
	if m.deleteCursor == 0 {
		yes = errStyle.Render("▸ Yes ◂")
	} else {
		no = activeStyle.Render("▸ No ◂")
	}
	b.WriteString(yes + "   " + no + "\n")

	if m.deleteErr != nil {
		b.WriteString("\n")
		b.WriteString(errStyle.Render(clierr.Pretty(m.deleteErr)))
		b.WriteString("\n")
	}
	if m.deleteStep == confirmStepBusy {
		b.WriteString("\n" + m.spinner.View() + " Deleting...\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("y/enter confirm · n/esc cancel"))
	return b.String()
}

func (m Model) renderHelpOverlay() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(" HELP "))
	b.WriteString("\n\n")

	section := func(title string, rows [][2]string) {
		b.WriteString(sectionStyle.Render(title))
		b.WriteString("\n")
		for _, row := range rows {
			b.WriteString(fmt.Sprintf("  %s  %s\n", helpKeyStyle.Render(fmt.Sprintf("%-10s", row[0])), row[1]))
		}
		b.WriteString("\n")
	}

	section("Tree", [][2]string{
		{"↑/k ↓/j", "move"},
		{"←/h →/l", "collapse / expand"},
		{"enter", "activate node (elements + details follow)"},
		{"u", "go to parent"},
	})
	section("Elements", [][2]string{
		{"enter", "show details (tree position kept)"},
		{"→/l", "navigate into (tree follows)"},
	})
	section("Search", [][2]string{
		{"/", "search by name or id"},
		{"ctrl+l", "cycle target level"},
		{"n/N", "next / previous match"},
		{"f", "toggle filter"},
		{"esc", "clear and restore default view"},
	})
	section("Actions", [][2]string{
		{"m", "move entity to a new parent"},
		{"e", "rename entity"},
		{"d/x", "delete entity"},
		{"r", "reload the plan"},
		{"tab", "switch pane"},
		{"q", "quit"},
	})
	b.WriteString(dimStyle.Render("Press any key to close"))
	return b.String()
}

func (m Model) renderHelpBar() string {
	dot := helpDotStyle.Render(" · ")
	item := func(key, action string) string {
		return helpKeyStyle.Render(key) + " " + helpActionStyle.Render(action)
	}

	switch m.focus {
	case focusDetails:
		return item("j/k", "scroll") + dot + item("g/G", "top/bottom") + dot +
			item("⇥", "tree") + dot + item("q", "quit")
	case focusElements:
		return item("↑↓", "move") + dot + item("⏎", "details") + dot + item("→", "navigate into") + dot +
			item("⇥", "pane") + dot + item("m", "move") + dot + item("q", "quit")
	default:
		return item("↑↓", "move") + dot + item("←→", "expand") + dot + item("⏎", "activate") + dot +
			item("⇥", "pane") + dot + item("/", "search") + dot + item("m", "move") + dot +
			item("e", "rename") + dot + item("d", "delete") + dot + item("?", "help") + dot + item("q", "quit")
	}
}

// Command

var exploreDemo bool

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Interactive CIS Plan explorer",
	Long: `Launch an interactive TUI to explore a CIS Plan hierarchy.

Navigate through Mission Networks, Network Segments, Security Domains,
HW Stacks, Assets, Network Interfaces, and GP/SP Instances in a tree
view with an elements pane and a details pane.

Navigation:
  ↑/k, ↓/j     Move up/down
  ←/h          Collapse node or go to parent
  →/l, Enter   Expand / activate node
  u            Go to the parent of the current node
  /            Search - ctrl+l cycles the target level
  n/N          Jump to next/previous match
  m            Move the selected entity to a new parent
  e            Rename the selected entity
  d/x          Delete the selected entity
  r            Reload the plan
  q            Quit

The elements pane lists the active node's children: Enter shows a child's
details without moving the tree, → makes the child the tree's position.
`,
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().BoolVar(&exploreDemo, "demo", false, "Browse a generated demo plan, no server required")
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, args []string) error {
	client, err := buildPlanClient(exploreDemo)
	if err != nil {
		return err
	}

	p := tea.NewProgram(initialModel(client), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}
	return nil
}

// buildPlanClient picks the real API client or the in-memory demo one.
func buildPlanClient(demo bool) (planClient, error) {
	if demo {
		return newDemoClient(demoPlan()), nil
	}
	cfg, err := planapi.LoadConfig()
	if err != nil {
		return nil, err
	}
	return planapi.NewClient(cfg), nil
}
