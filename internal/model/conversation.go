// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SETTINGS
// =============================================================================

// Settings holds per-conversation generation parameters.
type Settings struct {
	Model        string          `json:"model"`
	Temperature  float64         `json:"temperature"`
	TopP         float64         `json:"top_p"`
	SystemPrompt string          `json:"system_prompt,omitempty"`
	EnableTools  bool            `json:"enable_tools,omitempty"`
	Tools        map[string]bool `json:"tools,omitempty"`
}

// DefaultSettings returns the settings a fresh conversation starts with.
func DefaultSettings() Settings {
	return Settings{
		Temperature: 0.7,
		TopP:        1.0,
	}
}

// Validate checks generation parameter bounds.
func (s Settings) Validate() error {
	if s.Temperature < 0 || s.Temperature > 2 {
		return fmt.Errorf("temperature %.2f out of range [0, 2]", s.Temperature)
	}
	if s.TopP < 0 || s.TopP > 1 {
		return fmt.Errorf("top_p %.2f out of range [0, 1]", s.TopP)
	}
	return nil
}

// Clone returns a deep copy of the settings.
func (s Settings) Clone() Settings {
	c := s
	if s.Tools != nil {
		c.Tools = make(map[string]bool, len(s.Tools))
		for k, v := range s.Tools {
			c.Tools[k] = v
		}
	}
	return c
}

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the unit of truth the rest of the system reads and
// mutates. Shape invariants:
//
//   - Messages always end with the pending user message being composed,
//     even while a stream is writing into the assistant message before it.
//   - Messages[0], when the conversation carries a system prompt, is the
//     single system message and is never duplicated.
type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title,omitempty"`
	Messages  []Message `json:"messages"`
	Settings  Settings  `json:"settings"`
	Arcana    string    `json:"arcana,omitempty"`
	Flush     bool      `json:"flush,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewConversation creates a conversation with a system message (when the
// settings carry a system prompt) and an empty pending user message.
func NewConversation(settings Settings) Conversation {
	now := time.Now()
	c := Conversation{
		ID:        "conv_" + uuid.NewString(),
		Settings:  settings.Clone(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if settings.SystemPrompt != "" {
		c.Messages = append(c.Messages, NewSystemMessage(settings.SystemPrompt))
	}
	c.Messages = append(c.Messages, NewUserMessage(""))
	return c
}

// Clone returns a deep copy of the conversation.
func (c Conversation) Clone() Conversation {
	cp := c
	cp.Settings = c.Settings.Clone()
	cp.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		cp.Messages[i] = m.Clone()
	}
	return cp
}

// =============================================================================
// DERIVED SELECTORS
// =============================================================================
//
// Named selectors replace ad hoc messages[len-1]/messages[len-2] index
// arithmetic everywhere, eliminating off-by-one errors as a class.

// PendingUserMessage returns the trailing user message being composed.
func (c Conversation) PendingUserMessage() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	last := c.Messages[len(c.Messages)-1]
	if last.Role != RoleUser {
		return Message{}, false
	}
	return last, true
}

// LastAssistantMessage returns the most recent assistant message.
func (c Conversation) LastAssistantMessage() (Message, int, bool) {
	for i := len(c.Messages) - 1; i >= 0; i-- {
		if c.Messages[i].Role == RoleAssistant {
			return c.Messages[i], i, true
		}
	}
	return Message{}, -1, false
}

// IsLoading reports whether a response is currently streaming: the
// second-to-last message is an assistant message still marked loading.
func (c Conversation) IsLoading() bool {
	if len(c.Messages) < 2 {
		return false
	}
	m := c.Messages[len(c.Messages)-2]
	return m.Role == RoleAssistant && m.Loading
}

// IsEmpty reports whether the conversation holds no completed turns:
// at most the system message and the pending user message.
func (c Conversation) IsEmpty() bool {
	return len(c.Messages) <= 2
}

// SystemMessage returns the instruction message at index 0 if present.
func (c Conversation) SystemMessage() (Message, bool) {
	if len(c.Messages) > 0 && c.Messages[0].Role == RoleSystem {
		return c.Messages[0], true
	}
	return Message{}, false
}

// =============================================================================
// TURN HELPERS
// =============================================================================

// UserTurnIndices returns the message indices of sent user messages, in
// order, excluding the trailing pending user message.
func (c Conversation) UserTurnIndices() []int {
	var idx []int
	for i, m := range c.Messages {
		if i == len(c.Messages)-1 {
			break // pending user message is not a turn
		}
		if m.Role == RoleUser {
			idx = append(idx, i)
		}
	}
	return idx
}

// TurnCount returns the number of sent user turns.
func (c Conversation) TurnCount() int {
	return len(c.UserTurnIndices())
}

// History returns the messages to transmit for a completion request taken
// mid-send: everything up to and including the just-sent user message,
// excluding the assistant placeholder and the fresh pending slot, and
// excluding display-only info messages.
func (c Conversation) History() []Message {
	if len(c.Messages) < 2 {
		return nil
	}
	upTo := c.Messages[:len(c.Messages)-2]
	out := make([]Message, 0, len(upTo))
	for _, m := range upTo {
		if !m.Role.Transmittable() {
			continue
		}
		if m.Loading {
			continue
		}
		out = append(out, m.Clone())
	}
	return out
}

// AutoTitle derives a title from the first sent user message when none has
// been set manually.
func (c Conversation) AutoTitle() string {
	if c.Title != "" {
		return c.Title
	}
	for _, i := range c.UserTurnIndices() {
		if p := c.Messages[i].Preview(50); p != "" {
			return p
		}
	}
	return "New conversation"
}
