// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"golang.org/x/time/rate"

	"github.com/lumenlabs/lumen-tui/internal/export"
	"github.com/lumenlabs/lumen-tui/internal/model"
	"github.com/lumenlabs/lumen-tui/internal/reconciler"
	"github.com/lumenlabs/lumen-tui/internal/store"
	"github.com/lumenlabs/lumen-tui/internal/ui/styles"
)

// maxRenderRate caps viewport redraws during streaming. Token bursts can
// arrive far faster than a terminal can usefully repaint.
const maxRenderRate = 30 // frames per second

// Deps carries the collaborators the chat view drives.
type Deps struct {
	Store      *store.Store
	Reconciler *reconciler.Reconciler
	Theme      *styles.Theme
	Markdown   bool
	ExportDir  string

	// DefaultModel is the configured fallback when the selected model
	// drops out of the fetched list.
	DefaultModel string
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	deps   Deps
	keyMap KeyMap

	// Latest conversation snapshot.
	conv  model.Conversation
	phase reconciler.Phase

	// Components.
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Markdown rendering (nil when disabled or unavailable).
	renderer *glamour.TermRenderer

	// Streaming redraw throttle. A dirty snapshot held back by the
	// limiter is flushed on the next permitted update or at finalize.
	limiter *rate.Limiter
	dirty   bool

	// Model capability list for selection and attachment filtering.
	models   []model.ModelCapability
	modelIdx int

	// Transient notice.
	notice    string
	noticeSeq int

	width  int
	height int
	ready  bool
}

// New creates the chat view.
func New(deps Deps) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = deps.Theme.InputPrompt.Render("> ")
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = deps.Theme.Spinner

	var renderer *glamour.TermRenderer
	if deps.Markdown {
		style := "dark"
		if !deps.Theme.IsDark {
			style = "light"
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(80),
		)
		if err == nil {
			renderer = r
		}
	}

	return Model{
		deps:     deps,
		keyMap:   DefaultKeyMap(),
		conv:     deps.Store.Read(),
		input:    input,
		spinner:  sp,
		renderer: renderer,
		limiter:  rate.NewLimiter(rate.Limit(maxRenderRate), 1),
	}
}

// Init starts the spinner tick.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// activeCapability returns the capability record of the selected model.
func (m Model) activeCapability() (model.ModelCapability, bool) {
	return model.FindModel(m.models, m.conv.Settings.Model)
}

// exportMarkdown renders the current conversation to a Markdown file.
func (m Model) exportMarkdown() tea.Cmd {
	conv := m.conv
	dir := m.deps.ExportDir
	return func() tea.Msg {
		opts := export.DefaultOptions()
		if dir != "" {
			opts.OutputDir = dir
		}
		path, err := export.ToFile(conv, export.NewMarkdownExporter(opts), opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}
