// Copyright (C) CISOps, Inc.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cisops/cisplan-scout/internal/navstate"
	"github.com/cisops/cisplan-scout/pkg/cisplan"
)

// Styles
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Background(lipgloss.Color("236")).
			Padding(0, 1)

	breadcrumbStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginBottom(1)

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("82")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("141")).
			Bold(true)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	searchMatchStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("226")).
				Foreground(lipgloss.Color("0"))

	searchInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	paneStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	paneActiveStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("212")).
			Padding(0, 1)

	detailsHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212")).
				MarginBottom(1)

	attrKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("81"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("228")).
			Bold(true)

	helpActionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	helpDotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

var titleCaser = cases.Title(language.English)

func titleCase(s string) string {
	return titleCaser.String(s)
}

// Tree icons
const (
	iconExpanded  = "▼"
	iconCollapsed = "▶"
	iconActive    = "●"
	iconInactive  = "○"
	iconBlocked   = "✗"
	iconCheckOK   = "✓"
)

// typeIcons maps entity types to their tree/card glyphs.
var typeIcons = map[cisplan.EntityType]string{
	cisplan.TypeCISPlan:          "📋",
	cisplan.TypeMissionNetwork:   "🌐",
	cisplan.TypeNetworkSegment:   "🔗",
	cisplan.TypeSecurityDomain:   "🛡",
	cisplan.TypeHWStack:          "🗄",
	cisplan.TypeAsset:            "🖥",
	cisplan.TypeNetworkInterface: "🔌",
	cisplan.TypeGPInstance:       "📦",
	cisplan.TypeSPInstance:       "⚙",
}

func typeIcon(t cisplan.EntityType) string {
	if icon, ok := typeIcons[t]; ok {
		return icon
	}
	return "•"
}

// planClient is the surface of the plan API the explorer needs. The real
// implementation is planapi.Client; demo mode substitutes an in-memory one.
type planClient interface {
	FetchTree(ctx context.Context) (*cisplan.Entity, error)
	FetchEntity(ctx context.Context, t cisplan.EntityType, id string) (*cisplan.Entity, error)
	MoveEntity(ctx context.Context, elementID, newParentID string) error
	UpdateEntity(ctx context.Context, t cisplan.EntityType, id string, fields map[string]string) error
	DeleteEntity(ctx context.Context, t cisplan.EntityType, id string) error
}

// viewNode wraps an entity for tree presentation. Children are
// materialized lazily on first expand.
type viewNode struct {
	entity   *cisplan.Entity
	parent   *viewNode
	children []*viewNode
	loaded   bool
	expanded bool
}

// materialize builds the child view nodes from the entity's collections.
func (n *viewNode) materialize() {
	if n.loaded {
		return
	}
	for _, kid := range n.entity.AllChildren() {
		n.children = append(n.children, &viewNode{entity: kid, parent: n})
	}
	n.loaded = true
}

func (n *viewNode) depth() int {
	d := 0
	for p := n.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// hasChildren reports whether the node can expand, without forcing
// materialization.
func (n *viewNode) hasChildren() bool {
	if n.loaded {
		return len(n.children) > 0
	}
	return len(n.entity.AllChildren()) > 0
}

// paneFocus identifies which pane receives keys.
type paneFocus int

const (
	focusTree paneFocus = iota
	focusElements
	focusDetails
)

// elementCard is one entry in the elements pane: a direct child of the
// tree's current entity, grouped under a section label for assets.
type elementCard struct {
	section string
	entity  *cisplan.Entity
}

// Pane and overlay state machines for edit/delete.
const (
	confirmStepAsk = iota
	confirmStepBusy
)

// Model represents the explorer TUI state.
type Model struct {
	client planClient
	log    zerolog.Logger

	root     *viewNode
	repo     *cisplan.Repository
	flatList []*viewNode
	cursor   int

	nav        navstate.State
	activeGUID string // at most one active node

	width   int
	height  int
	ready   bool
	loading bool
	err     error

	statusMsg string

	focus paneFocus

	// Elements pane
	elements   []elementCard
	elemCursor int

	// Details pane
	detailsPane    viewport.Model
	detailsContent string
	detailsEntity  *cisplan.Entity
	detailsLoading bool
	detailsError   error
	detailsSeq     int // stale async responses are dropped

	// Search state
	searchMode    bool
	searchQuery   string
	searchLevel   cisplan.EntityType // empty = every level
	searchMatches []int
	searchIndex   int
	filterActive  bool
	matchCache    map[*viewNode]bool

	// Edit overlay (rename)
	editMode bool
	editStep int
	editName string
	editErr  error

	// Delete overlay
	deleteMode   bool
	deleteStep   int
	deleteCursor int // 0=yes, 1=no
	deleteErr    error

	// Move dialog, nil when closed
	move *moveDialog

	helpMode bool

	keymap  keyMap
	spinner spinner.Model

	pendingSnapshot *sessionSnapshot
}

type keyMap struct {
	Up           key.Binding
	Down         key.Binding
	Left         key.Binding
	Right        key.Binding
	Enter        key.Binding
	Tab          key.Binding
	NavigateUp   key.Binding
	Quit         key.Binding
	Search       key.Binding
	NextMatch    key.Binding
	PrevMatch    key.Binding
	ToggleFilter key.Binding
	Refresh      key.Binding
	Help         key.Binding
	Move         key.Binding
	Edit         key.Binding
	Delete       key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←/h", "collapse"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→/l", "expand"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "activate"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		NavigateUp: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "go to parent"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		NextMatch: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "next match"),
		),
		PrevMatch: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "prev match"),
		),
		ToggleFilter: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "toggle filter"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Move: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "move"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "rename"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d", "x"),
			key.WithHelp("d/x", "delete"),
		),
	}
}

// Message types
type dataLoadedMsg struct {
	root *cisplan.Entity
}

type errMsg struct {
	err error
}

type detailsLoadedMsg struct {
	seq    int
	entity *cisplan.Entity
	err    error
}

type moveTreeLoadedMsg struct {
	root *cisplan.Entity
	err  error
}

type moveResultMsg struct {
	err error
}

type mutationDoneMsg struct {
	action string // "rename" or "delete"
	err    error
}

// sessionSnapshot is saved explorer state for resumption.
type sessionSnapshot struct {
	Version       string    `json:"version"`
	UpdatedAt     time.Time `json:"updated_at"`
	Cursor        int       `json:"cursor"`
	CurrentGUID   string    `json:"current_guid,omitempty"`
	ExpandedGUIDs []string  `json:"expanded_guids,omitempty"`
}

const sessionSnapshotVersion = "1.0"

func sessionSnapshotPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cisplan-scout", "sessions", "explore.json")
}

func loadSessionSnapshot() *sessionSnapshot {
	data, err := os.ReadFile(sessionSnapshotPath())
	if err != nil {
		return nil
	}
	var snap sessionSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil
	}
	// Only restore if the snapshot is less than 24 hours old
	if time.Since(snap.UpdatedAt) > 24*time.Hour {
		return nil
	}
	return &snap
}

func saveSessionSnapshot(m *Model) {
	if m.root == nil {
		return
	}

	var expanded []string
	var collect func(n *viewNode)
	collect = func(n *viewNode) {
		if n.expanded {
			expanded = append(expanded, n.entity.GUID)
		}
		for _, kid := range n.children {
			collect(kid)
		}
	}
	collect(m.root)

	snap := sessionSnapshot{
		Version:       sessionSnapshotVersion,
		UpdatedAt:     time.Now(),
		Cursor:        m.cursor,
		CurrentGUID:   m.nav.Current.GUID,
		ExpandedGUIDs: expanded,
	}

	path := sessionSnapshotPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return
	}
	_ = os.WriteFile(path, data, 0o644)
}
