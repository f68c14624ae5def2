// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/cisops/cisplan-scout/internal/clierr"
	"github.com/cisops/cisplan-scout/pkg/cisplan"
)

// moveDialog drives the relocation flow: closed, awaiting-destination,
// ready-to-confirm, closed. It works on a freshly fetched, annotated
// clone of the tree, so the explorer's own tree is never touched until
// the server confirms the move.
type moveDialog struct {
	entity     *cisplan.Entity
	parentType cisplan.EntityType
	loading    bool

	plan   *cisplan.MovePlan
	flat   []*moveRow
	cursor int

	// destination, nil while awaiting a choice
	selected *cisplan.MoveNode

	busy bool
	hint string
}

type moveRow struct {
	node  *cisplan.MoveNode
	depth int
}

func moveTreeCmd(client planClient) tea.Cmd {
	return func() tea.Msg {
		root, err := client.FetchTree(context.Background())
		return moveTreeLoadedMsg{root: root, err: err}
	}
}

func moveCmd(client planClient, elementGUID, newParentGUID string) tea.Cmd {
	return func() tea.Msg {
		err := client.MoveEntity(context.Background(), elementGUID, newParentGUID)
		return moveResultMsg{err: err}
	}
}

// openMoveDialog starts the flow for the selected entity. With nothing
// selected, or an unmovable selection, nothing opens: a status line
// notification is the whole outcome.
func (m Model) openMoveDialog() (tea.Model, tea.Cmd) {
	if m.nav.Selected.IsZero() {
		m.statusMsg = "Select an entity to move"
		return m, nil
	}
	entity := m.repo.Get(m.nav.Selected.GUID)
	if entity == nil {
		m.statusMsg = "Select an entity to move"
		return m, nil
	}
	parentType, ok := cisplan.RequiredParentType(entity.Type)
	if !ok || entity.Type == cisplan.TypeMissionNetwork {
		m.statusMsg = fmt.Sprintf("A %s cannot be moved", entity.Type.Label())
		return m, nil
	}

	m.statusMsg = ""
	m.move = &moveDialog{
		entity:     entity,
		parentType: parentType,
		loading:    true,
	}
	m.log.Debug().
		Str("type", string(entity.Type)).
		Str("guid", entity.GUID).
		Msg("move dialog opened")
	return m, tea.Batch(m.spinner.Tick, moveTreeCmd(m.client))
}

// handleMoveTreeLoaded receives the fresh tree fetched for the dialog.
// A failed fetch closes the flow before the dialog ever shows.
func (m Model) handleMoveTreeLoaded(msg moveTreeLoadedMsg) (tea.Model, tea.Cmd) {
	if m.move == nil {
		return m, nil
	}
	if msg.err != nil {
		m.move = nil
		m.statusMsg = "Move unavailable: " + clierr.Pretty(msg.err)
		m.log.Error().Err(msg.err).Msg("move tree fetch failed")
		return m, nil
	}

	repo := cisplan.NewRepository(msg.root)
	plan, err := cisplan.BuildMovePlan(repo, m.move.entity.GUID)
	if err != nil {
		m.move = nil
		m.statusMsg = "Move unavailable: " + clierr.Pretty(err)
		return m, nil
	}

	m.move.loading = false
	m.move.plan = plan
	m.move.flat = flattenMoveTree(plan.Root, 0)

	// Land the cursor on the first legal destination
	for i, row := range m.move.flat {
		if row.node.State == cisplan.CandidateSelectable {
			m.move.cursor = i
			break
		}
	}
	return m, nil
}

func flattenMoveTree(n *cisplan.MoveNode, depth int) []*moveRow {
	rows := []*moveRow{{node: n, depth: depth}}
	for _, kid := range n.Children {
		rows = append(rows, flattenMoveTree(kid, depth+1)...)
	}
	return rows
}

func (m Model) updateMoveDialog(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.move
	if d.busy {
		return m, nil
	}

	switch msg.String() {
	case "esc", "q":
		m.move = nil
		return m, nil

	case "up", "k":
		if d.selected == nil && d.cursor > 0 {
			d.cursor--
		}

	case "down", "j":
		if d.selected == nil && d.cursor < len(d.flat)-1 {
			d.cursor++
		}

	case "backspace", "left", "h":
		// Back from confirm to destination choice
		d.selected = nil
		d.hint = ""

	case "enter":
		if d.loading {
			return m, nil
		}
		if d.selected != nil {
			d.busy = true
			d.hint = ""
			return m, moveCmd(m.client, d.entity.GUID, d.selected.GUID)
		}
		if d.cursor >= len(d.flat) {
			return m, nil
		}
		node := d.flat[d.cursor].node
		switch node.State {
		case cisplan.CandidateSelectable:
			d.selected = node
			d.hint = ""
		case cisplan.CandidateCurrentParent:
			d.hint = fmt.Sprintf("%q is already the parent of %q", node.Name, d.entity.Name)
		default:
			d.hint = fmt.Sprintf("Pick a %s as the destination", d.parentType.Label())
		}
	}

	return m, nil
}

// handleMoveResult finishes the flow. On failure the dialog stays open
// with a rewritten, user-facing hint; on success everything reloads.
func (m Model) handleMoveResult(msg moveResultMsg) (tea.Model, tea.Cmd) {
	if m.move == nil {
		return m, nil
	}
	if msg.err != nil {
		m.move.busy = false
		m.move.hint = clierr.MoveHint(msg.err)
		m.log.Error().Err(msg.err).Msg("move failed")
		return m, nil
	}

	moved := m.move.entity
	m.move = nil
	m.statusMsg = fmt.Sprintf("Moved %s %q", moved.Type.Label(), moved.Name)
	m.log.Info().
		Str("type", string(moved.Type)).
		Str("guid", moved.GUID).
		Msg("entity moved")
	return m, m.refreshAll()
}

func (m Model) renderMoveDialog() string {
	d := m.move
	var b strings.Builder

	b.WriteString(headerStyle.Render(" MOVE "))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("Moving %s %s %q\n", typeIcon(d.entity.Type), d.entity.Type.Label(), d.entity.Name))
	b.WriteString(dimStyle.Render(fmt.Sprintf("Destination must be a %s.", d.parentType.Label())))
	b.WriteString("\n\n")

	if d.loading {
		b.WriteString(m.spinner.View() + " Loading current plan...\n")
		return b.String()
	}

	if d.selected != nil {
		b.WriteString(fmt.Sprintf("Move %q under %s %q?\n\n",
			d.entity.Name, d.selected.Type.Label(), promptStyle.Render(d.selected.Name)))
		if d.busy {
			b.WriteString(m.spinner.View() + " Moving...\n")
		}
		if d.hint != "" {
			b.WriteString("\n" + errStyle.Render(d.hint) + "\n")
		}
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("Enter confirm · Backspace choose again · Esc cancel"))
		return b.String()
	}

	maxRows := m.height - 12
	if maxRows < 5 {
		maxRows = 5
	}
	start := 0
	if d.cursor >= maxRows {
		start = d.cursor - maxRows + 1
	}

	for i := start; i < len(d.flat) && i < start+maxRows; i++ {
		row := d.flat[i]
		cursor := "  "
		if i == d.cursor {
			cursor = activeStyle.Render("▸ ")
		}
		b.WriteString(cursor)
		b.WriteString(strings.Repeat("  ", row.depth))

		name := row.node.Name
		switch row.node.State {
		case cisplan.CandidateSelectable:
			b.WriteString(activeStyle.Render(iconCheckOK) + " " + typeIcon(row.node.Type) + " " + name)
		case cisplan.CandidateCurrentParent:
			b.WriteString(dimStyle.Render(iconBlocked) + " " + typeIcon(row.node.Type) + " " +
				dimStyle.Render(name+"  (current parent)"))
		default:
			b.WriteString("  " + typeIcon(row.node.Type) + " " + dimStyle.Render(name))
		}
		b.WriteString("\n")
	}

	if d.hint != "" {
		b.WriteString("\n" + errStyle.Render(d.hint) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("↑↓ move · Enter choose destination · Esc cancel"))
	return b.String()
}
