// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lumenlabs/lumen-tui/internal/model"
	"github.com/lumenlabs/lumen-tui/internal/util"
)

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter converts a conversation to a target format.
type Exporter interface {
	// Export renders the conversation and returns the file content.
	Export(conv model.Conversation) ([]byte, error)

	// FileExtension returns the extension for the format (e.g. ".md").
	FileExtension() string
}

// Options configures export behavior.
type Options struct {
	// OutputDir is where exported files are written. Default: ".".
	OutputDir string

	// IncludeMetadata adds a header with title, model, and timestamps.
	IncludeMetadata bool

	// IncludeTimestamps adds per-message timestamps.
	IncludeTimestamps bool
}

// DefaultOptions returns the default export options.
func DefaultOptions() *Options {
	return &Options{
		OutputDir:         ".",
		IncludeMetadata:   true,
		IncludeTimestamps: false,
	}
}

// =============================================================================
// EXPORT TO FILE
// =============================================================================

// ToFile exports a conversation using the given exporter and returns the
// output path. The trailing pending user message is excluded: exports
// capture the committed dialogue, not the draft input.
func ToFile(conv model.Conversation, exporter Exporter, opts *Options) (string, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	content, err := exporter.Export(conv)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	title := conv.Title
	if title == "" {
		title = conv.AutoTitle()
	}
	filename := fmt.Sprintf("conversation_%s_%s%s",
		sanitizeFilename(title),
		time.Now().Format("20060102_150405"),
		exporter.FileExtension(),
	)

	outputPath := filepath.Join(opts.OutputDir, filename)
	if err := util.AtomicWriteFile(outputPath, content, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return outputPath, nil
}

// exportable returns the messages worth exporting: committed dialogue
// without the pending draft, info notices, or an in-flight placeholder.
func exportable(conv model.Conversation) []model.Message {
	var out []model.Message
	for i, msg := range conv.Messages {
		if i == len(conv.Messages)-1 && msg.Role == model.RoleUser && msg.IsBlank() {
			continue
		}
		if msg.Role == model.RoleInfo || msg.Loading {
			continue
		}
		out = append(out, msg)
	}
	return out
}

// sanitizeFilename replaces characters that are invalid in filenames.
func sanitizeFilename(s string) string {
	s = util.Truncate(s, 50)
	replacer := strings.NewReplacer(
		"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
		"\"", "-", "<", "-", ">", "-", "|", "-", " ", "_",
	)
	s = replacer.Replace(s)
	if s == "" {
		s = "untitled"
	}
	return s
}
