// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lumenlabs/lumen-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// roleHeadings maps roles to their section headings.
var roleHeadings = map[model.Role]string{
	model.RoleSystem:    "System",
	model.RoleUser:      "User",
	model.RoleAssistant: "Assistant",
}

// Export converts a conversation to Markdown.
func (e *MarkdownExporter) Export(conv model.Conversation) ([]byte, error) {
	msgs := exportable(conv)
	if len(msgs) == 0 {
		return nil, fmt.Errorf("conversation has no messages to export")
	}

	var sb strings.Builder

	if e.options.IncludeMetadata {
		title := conv.Title
		if title == "" {
			title = conv.AutoTitle()
		}
		sb.WriteString("---\n")
		fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title))
		fmt.Fprintf(&sb, "model: %s\n", conv.Settings.Model)
		fmt.Fprintf(&sb, "date: %s\n", conv.CreatedAt.Format(time.RFC3339))
		fmt.Fprintf(&sb, "messages: %d\n", len(msgs))
		sb.WriteString("---\n\n")
	}

	for _, msg := range msgs {
		heading, ok := roleHeadings[msg.Role]
		if !ok {
			heading = string(msg.Role)
		}
		fmt.Fprintf(&sb, "## %s", heading)
		if e.options.IncludeTimestamps && !msg.Timestamp.IsZero() {
			fmt.Fprintf(&sb, " (%s)", msg.Timestamp.Format("2006-01-02 15:04"))
		}
		sb.WriteString("\n\n")

		if text := msg.Text(); text != "" {
			sb.WriteString(text)
			sb.WriteString("\n\n")
		}
		for _, b := range msg.Attachments() {
			fmt.Fprintf(&sb, "> attachment: %s (%s)\n", b.Name, b.Kind)
		}
		if len(msg.Attachments()) > 0 {
			sb.WriteString("\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns ".md".
func (e *MarkdownExporter) FileExtension() string { return ".md" }

// escapeYAML quotes a value when it would break YAML frontmatter.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#\"'\n") {
		return fmt.Sprintf("%q", strings.ReplaceAll(s, "\n", " "))
	}
	return s
}
