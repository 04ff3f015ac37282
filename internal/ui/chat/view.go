// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/lumenlabs/lumen-tui/internal/model"
	"github.com/lumenlabs/lumen-tui/internal/reconciler"
)

// View renders the complete chat screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.deps.Theme.InputContainer.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderHeader() string {
	theme := m.deps.Theme
	title := theme.HeaderTitle.Render("lumen")
	modelName := theme.StatusModel.Render(m.conv.Settings.Model)
	return theme.Header.Width(m.width).Render(title + "  " + modelName)
}

func (m Model) renderStatusBar() string {
	theme := m.deps.Theme

	if m.notice != "" {
		return theme.Notice.Render(m.notice)
	}

	var status string
	switch m.phase {
	case reconciler.PhaseSending:
		status = m.spinner.View() + " sending..."
	case reconciler.PhaseStreaming:
		status = m.spinner.View() + " streaming (Esc to stop)"
	default:
		status = theme.StatusKey.Render("Enter") + " send  " +
			theme.StatusKey.Render("C-z") + " undo  " +
			theme.StatusKey.Render("C-r") + " resend  " +
			theme.StatusKey.Render("C-p") + " model  " +
			theme.StatusKey.Render("C-e") + " export"
	}
	return theme.StatusBar.Render(status)
}

// =============================================================================
// CONVERSATION RENDERING
// =============================================================================

// refreshViewport re-renders the conversation into the viewport. follow
// keeps the view pinned to the bottom.
func (m *Model) refreshViewport(follow bool) {
	m.viewport.SetContent(m.renderConversation())
	if follow {
		m.viewport.GotoBottom()
	}
	m.dirty = false
}

func (m Model) renderConversation() string {
	theme := m.deps.Theme
	var b strings.Builder

	for i, msg := range m.conv.Messages {
		// The trailing pending user message is the input box, not history.
		if i == len(m.conv.Messages)-1 && msg.Role == model.RoleUser {
			if atts := msg.Attachments(); len(atts) > 0 {
				b.WriteString(theme.AttachmentTag.Render(attachmentLine(atts)))
				b.WriteString("\n")
			}
			continue
		}

		switch msg.Role {
		case model.RoleSystem:
			continue // not rendered, always transmitted
		case model.RoleInfo:
			b.WriteString(theme.InfoText.Render(msg.Text()))
			b.WriteString("\n\n")
		case model.RoleUser:
			b.WriteString(theme.UserLabel.Render("You"))
			b.WriteString("\n")
			b.WriteString(theme.MessageBody.Render(msg.Text()))
			b.WriteString("\n")
			if atts := msg.Attachments(); len(atts) > 0 {
				b.WriteString(theme.AttachmentTag.Render(attachmentLine(atts)))
				b.WriteString("\n")
			}
			b.WriteString("\n")
		case model.RoleAssistant:
			b.WriteString(theme.AssistantLabel.Render("Assistant"))
			if msg.Loading {
				b.WriteString(" " + m.spinner.View())
			}
			b.WriteString("\n")
			b.WriteString(m.renderAssistantBody(msg))
			if msg.Error != "" {
				b.WriteString(theme.ErrorMarker.Render("✗ " + msg.Error))
				b.WriteString("\n")
			}
			b.WriteString("\n")
		}
	}

	return b.String()
}

// renderAssistantBody renders assistant text, through glamour when
// markdown is enabled and the message is final. In-flight text is shown
// raw: re-rendering markdown on every delta is wasteful and makes partial
// constructs flicker.
func (m Model) renderAssistantBody(msg model.Message) string {
	text := msg.Text()
	if text == "" {
		return ""
	}
	if m.renderer != nil && !msg.Loading {
		if out, err := m.renderer.Render(text); err == nil {
			return out
		}
	}
	return m.deps.Theme.MessageBody.Render(text) + "\n"
}

func attachmentLine(atts []model.ContentBlock) string {
	parts := make([]string, 0, len(atts))
	for _, a := range atts {
		parts = append(parts, fmt.Sprintf("[%s: %s]", a.Kind, a.Name))
	}
	return strings.Join(parts, " ")
}
