// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lumenlabs/lumen-tui/internal/model"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// jsonDocument is the portable conversation format. The same shape is
// accepted by Import.
type jsonDocument struct {
	Title       string        `json:"title,omitempty"`
	Model       string        `json:"model,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	Arcana      string        `json:"arcana,omitempty"`
	Created     time.Time     `json:"created_at,omitempty"`
	Updated     time.Time     `json:"updated_at,omitempty"`
	Messages    []jsonMessage `json:"messages"`
}

type jsonMessage struct {
	Role        string           `json:"role"`
	Content     string           `json:"content"`
	Attachments []jsonAttachment `json:"attachments,omitempty"`
	Timestamp   time.Time        `json:"timestamp,omitempty"`
}

type jsonAttachment struct {
	Kind   string `json:"kind"`
	Name   string `json:"name,omitempty"`
	URL    string `json:"url,omitempty"`
	FileID string `json:"file_id,omitempty"`
}

// JSONExporter exports conversations as portable JSON documents.
type JSONExporter struct {
	options *Options
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter(opts *Options) *JSONExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JSONExporter{options: opts}
}

// Export renders the conversation as indented JSON.
func (e *JSONExporter) Export(conv model.Conversation) ([]byte, error) {
	msgs := exportable(conv)
	if len(msgs) == 0 {
		return nil, fmt.Errorf("conversation has no messages to export")
	}

	doc := jsonDocument{Messages: make([]jsonMessage, 0, len(msgs))}
	if e.options.IncludeMetadata {
		doc.Title = conv.Title
		if doc.Title == "" {
			doc.Title = conv.AutoTitle()
		}
		doc.Model = conv.Settings.Model
		temp, topP := conv.Settings.Temperature, conv.Settings.TopP
		doc.Temperature = &temp
		doc.TopP = &topP
		doc.Arcana = conv.Arcana
		doc.Created = conv.CreatedAt
		doc.Updated = conv.UpdatedAt
	}

	for _, msg := range msgs {
		jm := jsonMessage{
			Role:    string(msg.Role),
			Content: msg.Text(),
		}
		if e.options.IncludeTimestamps {
			jm.Timestamp = msg.Timestamp
		}
		for _, b := range msg.Attachments() {
			ja := jsonAttachment{Kind: string(b.Kind), Name: b.Name, FileID: b.FileID}
			if b.ImageURL != nil {
				ja.URL = b.ImageURL.URL
			}
			jm.Attachments = append(jm.Attachments, ja)
		}
		doc.Messages = append(doc.Messages, jm)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode conversation: %w", err)
	}
	return append(data, '\n'), nil
}

// FileExtension returns ".json".
func (e *JSONExporter) FileExtension() string { return ".json" }
