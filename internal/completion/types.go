// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package completion

import (
	"github.com/lumenlabs/lumen-tui/internal/model"
)

// =============================================================================
// WIRE TYPES
// =============================================================================

// WireImageURL wraps an inline image data URL on the wire.
type WireImageURL struct {
	URL string `json:"url"`
}

// WireBlock is one content block in the request payload.
type WireBlock struct {
	Type     string        `json:"type"`
	Text     string        `json:"text,omitempty"`
	ImageURL *WireImageURL `json:"image_url,omitempty"`
	FileID   string        `json:"file_id,omitempty"`
}

// WireMessage is one message in the request payload.
type WireMessage struct {
	Role    string      `json:"role"`
	Content []WireBlock `json:"content"`
}

// ChatRequest is the completion request body.
type ChatRequest struct {
	Model       string        `json:"model"`
	Messages    []WireMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	TopP        float64       `json:"top_p"`
	Stream      bool          `json:"stream"`
	Arcana      string        `json:"arcana,omitempty"`
}

// apiError is the JSON error body some non-2xx responses carry.
type apiError struct {
	Error string `json:"error"`
}

// =============================================================================
// CONVERSION
// =============================================================================

// FromMessages converts conversation messages to the wire format.
func FromMessages(messages []model.Message) []WireMessage {
	out := make([]WireMessage, 0, len(messages))
	for _, m := range messages {
		wm := WireMessage{Role: string(m.Role), Content: make([]WireBlock, 0, len(m.Content))}
		for _, b := range m.Content {
			switch b.Type {
			case model.BlockText:
				wm.Content = append(wm.Content, WireBlock{Type: "text", Text: b.Text})
			case model.BlockImage:
				if b.ImageURL != nil {
					wm.Content = append(wm.Content, WireBlock{
						Type:     "image_url",
						ImageURL: &WireImageURL{URL: b.ImageURL.URL},
					})
				}
			case model.BlockFile:
				wm.Content = append(wm.Content, WireBlock{Type: "file_ref", FileID: b.FileID})
			}
		}
		out = append(out, wm)
	}
	return out
}
