// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumenlabs/lumen-tui/internal/model"
	"github.com/lumenlabs/lumen-tui/internal/reconciler"
)

// =============================================================================
// MESSAGES
// =============================================================================

// StoreUpdatedMsg carries a fresh conversation snapshot from the store
// subscription into the Bubble Tea loop.
type StoreUpdatedMsg struct {
	Conversation model.Conversation
}

// PhaseMsg reports a reconciler phase change.
type PhaseMsg struct {
	Phase reconciler.Phase
}

// NoticeMsg shows a transient notice in the status line.
type NoticeMsg struct {
	Text string
}

// AuthExpiredMsg signals that the backend rejected the session.
type AuthExpiredMsg struct{}

// RestoreInputMsg restores prompt text to the input after an auth
// rollback.
type RestoreInputMsg struct {
	Text string
}

// ModelsLoadedMsg delivers the fetched model capability list.
type ModelsLoadedMsg struct {
	Models []model.ModelCapability
	Err    error
}

// ExportDoneMsg reports the result of an export triggered from the view.
type ExportDoneMsg struct {
	Path string
	Err  error
}

// noticeExpiredMsg clears a transient notice after its display window.
type noticeExpiredMsg struct {
	seq int
}

func expireNotice(seq int, after time.Duration) tea.Cmd {
	return tea.Tick(after, func(time.Time) tea.Msg {
		return noticeExpiredMsg{seq: seq}
	})
}
