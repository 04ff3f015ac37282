// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleInfo      Role = "info"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	case RoleInfo:
		return "Info"
	default:
		return string(r)
	}
}

// Transmittable reports whether messages of this role are sent to the
// completion endpoint. Info messages are display-only.
func (r Role) Transmittable() bool {
	return r == RoleSystem || r == RoleUser || r == RoleAssistant
}

// =============================================================================
// ATTACHMENT KIND
// =============================================================================

// AttachmentKind is the explicit media classification of an attachment.
// It is resolved exactly once when the attachment is created and carried on
// the content block, never re-derived from MIME prefixes by consumers.
type AttachmentKind string

const (
	KindImage    AttachmentKind = "image"
	KindAudio    AttachmentKind = "audio"
	KindVideo    AttachmentKind = "video"
	KindDocument AttachmentKind = "document"
)

// InputToken returns the model-capability input token matching this kind.
func (k AttachmentKind) InputToken() string {
	if k == KindDocument {
		return "file"
	}
	return string(k)
}

// =============================================================================
// CONTENT BLOCK
// =============================================================================

// BlockType discriminates the content block union.
type BlockType string

const (
	BlockText  BlockType = "text"
	BlockImage BlockType = "image_url"
	BlockFile  BlockType = "file_ref"
)

// ImageURL wraps an inline image data URL.
type ImageURL struct {
	URL string `json:"url"`
}

// ContentBlock is one unit of message content: text, an inline image, or a
// reference to an externally stored file blob. A block is owned by exactly
// one message; file blocks reference blobs owned by the attachment store.
type ContentBlock struct {
	Type BlockType `json:"type"`

	// Text is set for BlockText.
	Text string `json:"text,omitempty"`

	// ImageURL is set for BlockImage.
	ImageURL *ImageURL `json:"image_url,omitempty"`

	// FileID is set for BlockFile.
	FileID string `json:"file_id,omitempty"`

	// Name is the original filename for attachment blocks.
	Name string `json:"name,omitempty"`

	// Kind classifies attachment blocks (image/audio/video/document).
	Kind AttachmentKind `json:"kind,omitempty"`
}

// TextBlock creates a text content block.
func TextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// ImageBlock creates an inline image block from a data URL.
func ImageBlock(dataURL, name string) ContentBlock {
	return ContentBlock{
		Type:     BlockImage,
		ImageURL: &ImageURL{URL: dataURL},
		Name:     name,
		Kind:     KindImage,
	}
}

// FileBlock creates a stored-file reference block.
func FileBlock(fileID, name string, kind AttachmentKind) ContentBlock {
	return ContentBlock{Type: BlockFile, FileID: fileID, Name: name, Kind: kind}
}

// IsAttachment reports whether the block is an attachment (non-text) block.
func (b ContentBlock) IsAttachment() bool {
	return b.Type != BlockText
}

// Clone returns a deep copy of the block.
func (b ContentBlock) Clone() ContentBlock {
	c := b
	if b.ImageURL != nil {
		u := *b.ImageURL
		c.ImageURL = &u
	}
	return c
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single conversation entry. Content[0] is always a text block
// (possibly empty); subsequent blocks are attachments.
type Message struct {
	ID        string         `json:"id"`
	Role      Role           `json:"role"`
	Content   []ContentBlock `json:"content"`
	Timestamp time.Time      `json:"timestamp"`

	// Loading marks an assistant message whose stream is still open.
	Loading bool `json:"loading,omitempty"`

	// Error is the inline failure marker shown on the message.
	Error string `json:"error,omitempty"`
}

// NewMessage creates a message with a single text block.
func NewMessage(role Role, text string) Message {
	return Message{
		ID:        newMessageID(),
		Role:      role,
		Content:   []ContentBlock{TextBlock(text)},
		Timestamp: time.Now(),
	}
}

// NewUserMessage creates a user message with text plus attachment blocks.
func NewUserMessage(text string, attachments ...ContentBlock) Message {
	content := make([]ContentBlock, 0, len(attachments)+1)
	content = append(content, TextBlock(text))
	for _, a := range attachments {
		content = append(content, a.Clone())
	}
	return Message{
		ID:        newMessageID(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// NewSystemMessage creates the instruction message.
func NewSystemMessage(text string) Message {
	return NewMessage(RoleSystem, text)
}

// NewInfoMessage creates a display-only info message.
func NewInfoMessage(text string) Message {
	return NewMessage(RoleInfo, text)
}

// NewAssistantPlaceholder creates the empty assistant message a stream
// writes into.
func NewAssistantPlaceholder() Message {
	m := NewMessage(RoleAssistant, "")
	m.Loading = true
	return m
}

// =============================================================================
// MESSAGE METHODS
// =============================================================================

// Text returns the message's text content (Content[0]).
func (m Message) Text() string {
	if len(m.Content) == 0 {
		return ""
	}
	return m.Content[0].Text
}

// Attachments returns the attachment blocks (everything after Content[0]).
func (m Message) Attachments() []ContentBlock {
	if len(m.Content) <= 1 {
		return nil
	}
	return m.Content[1:]
}

// IsBlank reports whether the message has neither text nor attachments.
func (m Message) IsBlank() bool {
	return strings.TrimSpace(m.Text()) == "" && len(m.Attachments()) == 0
}

// WithText returns a copy with the text block replaced.
func (m Message) WithText(text string) Message {
	c := m.Clone()
	if len(c.Content) == 0 {
		c.Content = []ContentBlock{TextBlock(text)}
		return c
	}
	c.Content[0].Text = text
	return c
}

// AppendText returns a copy with delta appended verbatim to the text block.
func (m Message) AppendText(delta string) Message {
	c := m.Clone()
	if len(c.Content) == 0 {
		c.Content = []ContentBlock{TextBlock(delta)}
		return c
	}
	c.Content[0].Text += delta
	return c
}

// WithAttachments returns a copy with the given blocks appended.
func (m Message) WithAttachments(blocks ...ContentBlock) Message {
	c := m.Clone()
	for _, b := range blocks {
		c.Content = append(c.Content, b.Clone())
	}
	return c
}

// Finalized returns a copy with the loading flag cleared and an optional
// inline error marker set.
func (m Message) Finalized(errMarker string) Message {
	c := m.Clone()
	c.Loading = false
	c.Error = errMarker
	return c
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	c := m
	c.Content = make([]ContentBlock, len(m.Content))
	for i, b := range m.Content {
		c.Content[i] = b.Clone()
	}
	return c
}

// Preview returns a truncated single-line preview of the message text.
func (m Message) Preview(maxLen int) string {
	text := strings.TrimSpace(strings.ReplaceAll(m.Text(), "\n", " "))
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// newMessageID creates a unique message ID.
func newMessageID() string {
	return "msg_" + uuid.NewString()
}
