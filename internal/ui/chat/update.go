// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumenlabs/lumen-tui/internal/model"
	"github.com/lumenlabs/lumen-tui/internal/reconciler"
	"github.com/lumenlabs/lumen-tui/internal/store"
)

const noticeDuration = 4 * time.Second

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.refreshViewport(true)
		m.ready = true

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StoreUpdatedMsg:
		m.conv = msg.Conversation
		m.dirty = true
		if m.limiter.Allow() || m.phase == reconciler.PhaseIdle {
			m.refreshViewport(true)
		}

	case PhaseMsg:
		m.phase = msg.Phase
		if msg.Phase == reconciler.PhaseIdle && m.dirty {
			// Flush any snapshot the throttle held back.
			m.refreshViewport(true)
		}

	case NoticeMsg:
		m.notice = msg.Text
		m.noticeSeq++
		cmds = append(cmds, expireNotice(m.noticeSeq, noticeDuration))

	case noticeExpiredMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}

	case AuthExpiredMsg:
		m.notice = "session expired - sign in again to continue"
		m.noticeSeq++
		cmds = append(cmds, expireNotice(m.noticeSeq, noticeDuration))

	case RestoreInputMsg:
		m.input.SetValue(msg.Text)
		m.input.CursorEnd()

	case ModelsLoadedMsg:
		if msg.Err == nil {
			m.applyModelList(msg.Models)
		}

	case ExportDoneMsg:
		if msg.Err != nil {
			m.notice = "export failed: " + msg.Err.Error()
		} else {
			m.notice = "exported to " + msg.Path
		}
		m.noticeSeq++
		cmds = append(cmds, expireNotice(m.noticeSeq, noticeDuration))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.deps.Reconciler.Stop()
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Submit):
		text := m.input.Value()
		m.input.Reset()
		// Off the event loop: Send drains any superseded session, and the
		// store listener feeds this program's inbox. The reconciler
		// ignores a blank prompt with no attachments.
		rec := m.deps.Reconciler
		return m, func() tea.Msg {
			rec.Send(text)
			return nil
		}

	case key.Matches(msg, m.keyMap.Stop):
		m.deps.Reconciler.Stop()
		return m, nil

	case key.Matches(msg, m.keyMap.Undo):
		m.deps.Reconciler.Undo()
		return m, nil

	case key.Matches(msg, m.keyMap.Resend):
		if idxs := m.conv.UserTurnIndices(); len(idxs) > 0 {
			idx := idxs[len(idxs)-1]
			rec := m.deps.Reconciler
			return m, func() tea.Msg {
				rec.Resend(idx)
				return nil
			}
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Export):
		return m, m.exportMarkdown()

	case key.Matches(msg, m.keyMap.CycleModel):
		m.cycleModel()
		return m, nil

	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.ViewUp()
		return m, nil

	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.ViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// =============================================================================
// MODEL LIST HANDLING
// =============================================================================

// applyModelList installs a fresh capability list and re-validates the
// selected model against it.
func (m *Model) applyModelList(models []model.ModelCapability) {
	m.models = models
	resolved := model.ResolveModel(m.conv.Settings.Model, m.deps.DefaultModel, models)
	if resolved != m.conv.Settings.Model {
		m.conv = m.deps.Store.Update(store.SetModel(resolved))
	}
	for i, mc := range models {
		if mc.ID == resolved {
			m.modelIdx = i
			break
		}
	}
}

// cycleModel selects the next ready model in the list.
func (m *Model) cycleModel() {
	if len(m.models) == 0 {
		return
	}
	for step := 1; step <= len(m.models); step++ {
		next := (m.modelIdx + step) % len(m.models)
		if m.models[next].Ready() {
			m.modelIdx = next
			m.conv = m.deps.Store.Update(store.SetModel(m.models[next].ID))
			return
		}
	}
}

// =============================================================================
// LAYOUT
// =============================================================================

// layout recomputes component dimensions after a resize.
// Header (1) + viewport + input (3) + status (1) = height.
func (m *Model) layout() {
	vpHeight := m.height - 5
	if vpHeight < 1 {
		vpHeight = 1
	}
	if m.viewport.Width == 0 {
		m.viewport = viewport.New(m.width, vpHeight)
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
	}
	m.input.Width = m.width - 6
}
