// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package attachment

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/lumenlabs/lumen-tui/internal/model"
)

// MaxFileSize is the largest file accepted as an attachment.
const MaxFileSize = 20 << 20 // 20 MiB

// BlobStore persists non-image attachment payloads.
type BlobStore interface {
	SaveFile(ctx context.Context, name, mimeType string, data []byte) (string, error)
	GetFile(ctx context.Context, id string) ([]byte, string, error)
}

// Manager converts files into content blocks.
type Manager struct {
	blobs   BlobStore
	maxSize int64
}

// NewManager creates an attachment manager backed by the given blob store.
func NewManager(blobs BlobStore) *Manager {
	return &Manager{blobs: blobs, maxSize: MaxFileSize}
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// extensionKinds maps file extensions to attachment kinds for files whose
// MIME type cannot be determined.
var extensionKinds = map[string]model.AttachmentKind{
	".png":  model.KindImage,
	".jpg":  model.KindImage,
	".jpeg": model.KindImage,
	".gif":  model.KindImage,
	".webp": model.KindImage,
	".mp3":  model.KindAudio,
	".wav":  model.KindAudio,
	".ogg":  model.KindAudio,
	".m4a":  model.KindAudio,
	".flac": model.KindAudio,
	".mp4":  model.KindVideo,
	".mov":  model.KindVideo,
	".webm": model.KindVideo,
	".mkv":  model.KindVideo,
}

// ClassifyKind determines the attachment kind for a file. mimeType may be
// empty, in which case the extension decides. Anything unrecognized is a
// document.
func ClassifyKind(name, mimeType string) model.AttachmentKind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return model.KindImage
	case strings.HasPrefix(mimeType, "audio/"):
		return model.KindAudio
	case strings.HasPrefix(mimeType, "video/"):
		return model.KindVideo
	}

	ext := strings.ToLower(filepath.Ext(name))
	if kind, ok := extensionKinds[ext]; ok {
		return kind
	}
	return model.KindDocument
}

// =============================================================================
// ATTACHING FILES
// =============================================================================

// Attach reads the file at path and returns a content block for it. Images
// become inline data URLs; everything else is written to the blob store and
// referenced by ID.
func (m *Manager) Attach(ctx context.Context, path string) (model.ContentBlock, error) {
	info, err := os.Stat(path)
	if err != nil {
		return model.ContentBlock{}, fmt.Errorf("failed to stat attachment: %w", err)
	}
	if info.Size() > m.maxSize {
		return model.ContentBlock{}, fmt.Errorf("file %s is %d bytes, exceeds %d byte limit",
			filepath.Base(path), info.Size(), m.maxSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return model.ContentBlock{}, fmt.Errorf("failed to read attachment: %w", err)
	}

	name := filepath.Base(path)
	mimeType := mime.TypeByExtension(filepath.Ext(path))
	kind := ClassifyKind(name, mimeType)

	if kind == model.KindImage {
		if mimeType == "" {
			mimeType = "image/png"
		}
		url := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
		return model.ImageBlock(url, name), nil
	}

	id, err := m.blobs.SaveFile(ctx, name, mimeType, data)
	if err != nil {
		return model.ContentBlock{}, fmt.Errorf("failed to store attachment: %w", err)
	}
	return model.FileBlock(id, name, kind), nil
}

// =============================================================================
// CAPABILITY FILTERING
// =============================================================================

// FilterForModel returns a copy of msgs with attachment blocks the model
// cannot accept removed. Text blocks always survive. The input slice is not
// modified; the full message stays in the conversation so a later model
// switch can transmit it intact.
func FilterForModel(msgs []model.Message, capability model.ModelCapability) []model.Message {
	out := make([]model.Message, 0, len(msgs))
	for _, msg := range msgs {
		filtered := msg.Clone()
		blocks := make([]model.ContentBlock, 0, len(msg.Content))
		for _, b := range msg.Content {
			if accepts(capability, b) {
				blocks = append(blocks, b)
			}
		}
		filtered.Content = blocks
		out = append(out, filtered)
	}
	return out
}

func accepts(capability model.ModelCapability, b model.ContentBlock) bool {
	switch b.Type {
	case model.BlockText:
		return true
	case model.BlockImage:
		return capability.AcceptsAttachment(model.KindImage)
	case model.BlockFile:
		return capability.AcceptsAttachment(b.Kind)
	default:
		return false
	}
}

// Dropped reports how many attachment blocks FilterForModel would remove
// for the given model, used to warn before sending.
func Dropped(msgs []model.Message, capability model.ModelCapability) int {
	var n int
	for _, msg := range msgs {
		for _, b := range msg.Content {
			if b.Type != model.BlockText && !accepts(capability, b) {
				n++
			}
		}
	}
	return n
}
