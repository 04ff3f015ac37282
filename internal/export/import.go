// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/text/unicode/norm"

	"github.com/lumenlabs/lumen-tui/internal/model"
)

// =============================================================================
// IMPORT
// =============================================================================

// validRoles are the roles an imported message may carry.
var validRoles = map[string]model.Role{
	"system":    model.RoleSystem,
	"user":      model.RoleUser,
	"assistant": model.RoleAssistant,
}

// ImportFile reads and imports a conversation from path.
func ImportFile(path string, settings model.Settings) (model.Conversation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Conversation{}, fmt.Errorf("failed to read import file: %w", err)
	}
	return Import(data, settings)
}

// Import parses a conversation from JSON. Both the document form produced
// by JSONExporter and a bare message array are accepted. The input is
// validated in full before a conversation is constructed, so a malformed
// document never yields a partial import.
func Import(data []byte, settings model.Settings) (model.Conversation, error) {
	doc, err := decodeDocument(data)
	if err != nil {
		return model.Conversation{}, err
	}
	if err := validateMessages(doc.Messages); err != nil {
		return model.Conversation{}, err
	}

	if doc.Model != "" {
		settings.Model = doc.Model
	}
	if doc.Temperature != nil {
		settings.Temperature = *doc.Temperature
	}
	if doc.TopP != nil {
		settings.TopP = *doc.TopP
	}
	if err := settings.Validate(); err != nil {
		return model.Conversation{}, fmt.Errorf("imported settings invalid: %w", err)
	}

	conv := model.NewConversation(settings)
	conv.Title = doc.Title
	conv.Arcana = doc.Arcana

	// Insert before the trailing pending user message, skipping an imported
	// system prompt when the settings already provided one.
	pending := conv.Messages[len(conv.Messages)-1]
	conv.Messages = conv.Messages[:len(conv.Messages)-1]
	for _, jm := range doc.Messages {
		role := validRoles[jm.Role]
		if role == model.RoleSystem {
			if _, ok := conv.SystemMessage(); ok {
				continue
			}
		}
		msg := model.NewMessage(role, norm.NFC.String(jm.Content))
		if !jm.Timestamp.IsZero() {
			msg.Timestamp = jm.Timestamp
		}
		for _, ja := range jm.Attachments {
			msg.Content = append(msg.Content, importAttachment(ja))
		}
		conv.Messages = append(conv.Messages, msg)
	}
	conv.Messages = append(conv.Messages, pending)

	return conv, nil
}

func decodeDocument(data []byte) (jsonDocument, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return jsonDocument{}, fmt.Errorf("import is empty")
	}

	var doc jsonDocument
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &doc.Messages); err != nil {
			return jsonDocument{}, fmt.Errorf("failed to parse message array: %w", err)
		}
		return doc, nil
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return jsonDocument{}, fmt.Errorf("failed to parse conversation document: %w", err)
	}
	return doc, nil
}

// validateMessages rejects documents the conversation shape cannot absorb.
func validateMessages(msgs []jsonMessage) error {
	if len(msgs) == 0 {
		return fmt.Errorf("import contains no messages")
	}
	for i, jm := range msgs {
		if _, ok := validRoles[jm.Role]; !ok {
			return fmt.Errorf("message %d has unknown role %q", i, jm.Role)
		}
		if jm.Content == "" && len(jm.Attachments) == 0 {
			return fmt.Errorf("message %d has no content", i)
		}
		if jm.Role == "system" && i != 0 {
			return fmt.Errorf("message %d: system message only allowed first", i)
		}
	}
	if last := msgs[len(msgs)-1]; last.Role == "user" {
		return fmt.Errorf("import ends with an unanswered user message")
	}
	return nil
}

func importAttachment(ja jsonAttachment) model.ContentBlock {
	kind := model.AttachmentKind(ja.Kind)
	if kind == model.KindImage && ja.URL != "" {
		return model.ImageBlock(ja.URL, ja.Name)
	}
	return model.FileBlock(ja.FileID, ja.Name, kind)
}
