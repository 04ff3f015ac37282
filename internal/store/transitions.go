// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"time"

	"github.com/lumenlabs/lumen-tui/internal/model"
)

// =============================================================================
// COMPOSITION TRANSITIONS
// =============================================================================

// SetPendingText replaces the pending user message's text.
func SetPendingText(text string) Transition {
	return func(c model.Conversation) model.Conversation {
		if len(c.Messages) == 0 {
			return c
		}
		last := len(c.Messages) - 1
		if c.Messages[last].Role != model.RoleUser {
			return c
		}
		c.Messages[last] = c.Messages[last].WithText(text)
		return touch(c)
	}
}

// AttachToPending appends attachment blocks to the pending user message.
func AttachToPending(blocks ...model.ContentBlock) Transition {
	return func(c model.Conversation) model.Conversation {
		if len(c.Messages) == 0 {
			return c
		}
		last := len(c.Messages) - 1
		if c.Messages[last].Role != model.RoleUser {
			return c
		}
		c.Messages[last] = c.Messages[last].WithAttachments(blocks...)
		return touch(c)
	}
}

// DetachFromPending removes the attachment at the given position (0 = first
// attachment block) from the pending user message.
func DetachFromPending(pos int) Transition {
	return func(c model.Conversation) model.Conversation {
		if len(c.Messages) == 0 {
			return c
		}
		last := len(c.Messages) - 1
		msg := c.Messages[last]
		if msg.Role != model.RoleUser {
			return c
		}
		i := pos + 1 // content[0] is the text block
		if i < 1 || i >= len(msg.Content) {
			return c
		}
		msg = msg.Clone()
		msg.Content = append(msg.Content[:i], msg.Content[i+1:]...)
		c.Messages[last] = msg
		return touch(c)
	}
}

// =============================================================================
// STREAMING TRANSITIONS
// =============================================================================

// BeginTurn finalizes the pending user message with the submitted text,
// then appends the loading assistant placeholder and a fresh pending slot.
// The conversation keeps its shape invariant: pending user message last.
func BeginTurn(text string) Transition {
	return func(c model.Conversation) model.Conversation {
		if len(c.Messages) == 0 {
			c.Messages = append(c.Messages, model.NewUserMessage(text))
		} else {
			last := len(c.Messages) - 1
			c.Messages[last] = c.Messages[last].WithText(text)
		}
		c.Messages = append(c.Messages, model.NewAssistantPlaceholder(), model.NewUserMessage(""))
		return touch(c)
	}
}

// AppendDelta appends a decoded chunk verbatim to the streaming assistant
// message. Pure append: no reordering, no de-duplication. The message is
// replaced wholesale so observers re-render incrementally.
func AppendDelta(delta string) Transition {
	return func(c model.Conversation) model.Conversation {
		_, i, ok := c.LastAssistantMessage()
		if !ok || !c.Messages[i].Loading {
			return c
		}
		c.Messages[i] = c.Messages[i].AppendText(delta)
		return touch(c)
	}
}

// FinalizeStream clears the streaming assistant message's loading flag and
// sets an optional inline error marker.
func FinalizeStream(errMarker string) Transition {
	return func(c model.Conversation) model.Conversation {
		_, i, ok := c.LastAssistantMessage()
		if !ok {
			return c
		}
		c.Messages[i] = c.Messages[i].Finalized(errMarker)
		return touch(c)
	}
}

// =============================================================================
// ROLLBACK & HISTORY TRANSITIONS
// =============================================================================

// DropTrailing removes the last n messages. This is the single rollback
// routine all failure paths share; callers differ only in how many
// trailing messages they drop and what they append afterwards.
func DropTrailing(n int) Transition {
	return func(c model.Conversation) model.Conversation {
		if n <= 0 {
			return c
		}
		if n > len(c.Messages) {
			n = len(c.Messages)
		}
		c.Messages = c.Messages[:len(c.Messages)-n]
		return touch(c)
	}
}

// AppendMessage appends a message verbatim (used to restore a saved
// pending user message after an auth rollback, and for info notices).
func AppendMessage(msg model.Message) Transition {
	return func(c model.Conversation) model.Conversation {
		c.Messages = append(c.Messages, msg.Clone())
		return touch(c)
	}
}

// UndoLastTurn removes the last completed user+assistant pair without
// touching the pending slot. Attachments of the removed user message are
// not deleted: they are reassociated onto the new last message's content.
func UndoLastTurn() Transition {
	return func(c model.Conversation) model.Conversation {
		// Shape: [..., user, assistant, pending].
		if len(c.Messages) < 3 {
			return c
		}
		n := len(c.Messages)
		user, assistant := c.Messages[n-3], c.Messages[n-2]
		if user.Role != model.RoleUser || assistant.Role != model.RoleAssistant {
			return c
		}
		pending := c.Messages[n-1]
		if moved := user.Attachments(); len(moved) > 0 {
			pending = pending.WithAttachments(moved...)
		}
		c.Messages = append(c.Messages[:n-3], pending)
		return touch(c)
	}
}

// TruncateForResend cuts the conversation back to just before the user
// message at msgIdx and installs a new pending user message carrying the
// given text plus the preserved attachments of the original turn.
func TruncateForResend(msgIdx int, text string, attachments []model.ContentBlock) Transition {
	return func(c model.Conversation) model.Conversation {
		if msgIdx < 0 || msgIdx >= len(c.Messages) || c.Messages[msgIdx].Role != model.RoleUser {
			return c
		}
		c.Messages = append(c.Messages[:msgIdx], model.NewUserMessage(text, attachments...))
		return touch(c)
	}
}

// =============================================================================
// SETTINGS TRANSITIONS
// =============================================================================

// SetSettings replaces the conversation settings.
func SetSettings(s model.Settings) Transition {
	return func(c model.Conversation) model.Conversation {
		c.Settings = s.Clone()
		return touch(c)
	}
}

// SetModel switches the selected model id.
func SetModel(id string) Transition {
	return func(c model.Conversation) model.Conversation {
		c.Settings.Model = id
		return touch(c)
	}
}

// SetArcana attaches or clears the document-folder context tag.
func SetArcana(tag string) Transition {
	return func(c model.Conversation) model.Conversation {
		c.Arcana = tag
		return touch(c)
	}
}

// Replace swaps in a whole conversation (used by import and session load).
func Replace(next model.Conversation) Transition {
	return func(model.Conversation) model.Conversation {
		return touch(next.Clone())
	}
}

func touch(c model.Conversation) model.Conversation {
	c.UpdatedAt = time.Now()
	return c
}
