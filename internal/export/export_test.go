// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"golang.org/x/text/unicode/norm"

	"github.com/lumenlabs/lumen-tui/internal/model"
)

func sampleConversation() model.Conversation {
	settings := model.DefaultSettings()
	settings.Model = "lumen-mini"
	conv := model.NewConversation(settings)
	conv.Title = "greetings"
	conv.Messages = append(conv.Messages[:len(conv.Messages)-1],
		model.NewUserMessage("hello"),
		model.NewMessage(model.RoleAssistant, "hi there"),
		model.NewUserMessage("draft in progress"),
	)
	return conv
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func TestJSONExporter_ExcludesPendingDraft(t *testing.T) {
	data, err := NewJSONExporter(nil).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	var doc jsonDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("exported JSON invalid: %v", err)
	}
	for _, m := range doc.Messages {
		if m.Content == "draft in progress" {
			t.Error("pending draft must not be exported")
		}
	}
	if doc.Model != "lumen-mini" || doc.Title != "greetings" {
		t.Errorf("metadata = %q/%q", doc.Title, doc.Model)
	}
	if doc.Temperature == nil || *doc.Temperature != 0.7 {
		t.Errorf("temperature = %v", doc.Temperature)
	}
}

func TestMarkdownExporter_Sections(t *testing.T) {
	data, err := NewMarkdownExporter(nil).Export(sampleConversation())
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	out := string(data)
	if !strings.Contains(out, "## User\n\nhello") {
		t.Errorf("missing user section:\n%s", out)
	}
	if !strings.Contains(out, "## Assistant\n\nhi there") {
		t.Errorf("missing assistant section:\n%s", out)
	}
	if strings.Contains(out, "draft in progress") {
		t.Error("pending draft must not be exported")
	}
}

func TestToFile_WritesSanitizedFilename(t *testing.T) {
	dir := t.TempDir()
	conv := sampleConversation()
	conv.Title = "what/is: this?"

	path, err := ToFile(conv, NewJSONExporter(nil), &Options{OutputDir: dir, IncludeMetadata: true})
	if err != nil {
		t.Fatalf("ToFile() error = %v", err)
	}
	if strings.ContainsAny(path[len(dir):], ":?") {
		t.Errorf("unsanitized path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("exported file missing: %v", err)
	}
}

// =============================================================================
// IMPORT TESTS
// =============================================================================

func TestImport_BareArray(t *testing.T) {
	data := []byte(`[
		{"role":"user","content":"hi"},
		{"role":"assistant","content":"hello"}
	]`)

	conv, err := Import(data, model.DefaultSettings())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	last := conv.Messages[len(conv.Messages)-1]
	if last.Role != model.RoleUser || !last.IsBlank() {
		t.Errorf("conversation must end with empty pending user message, got %+v", last)
	}
	if conv.TurnCount() != 1 {
		t.Errorf("turn count = %d, want 1", conv.TurnCount())
	}
}

func TestImport_ObjectFormAppliesSettings(t *testing.T) {
	data := []byte(`{
		"model": "lumen-vision",
		"temperature": 1.2,
		"top_p": 0.9,
		"messages": [
			{"role":"system","content":"be brief"},
			{"role":"user","content":"hi"},
			{"role":"assistant","content":"hello"}
		]
	}`)

	settings := model.DefaultSettings()
	settings.SystemPrompt = ""
	conv, err := Import(data, settings)
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if conv.Settings.Model != "lumen-vision" {
		t.Errorf("model = %q", conv.Settings.Model)
	}
	if conv.Settings.Temperature != 1.2 || conv.Settings.TopP != 0.9 {
		t.Errorf("settings = %+v", conv.Settings)
	}
	if sys, ok := conv.SystemMessage(); !ok || sys.Text() != "be brief" {
		t.Errorf("system message = %+v, %v", sys, ok)
	}
}

func TestImport_RejectsUnansweredUserMessage(t *testing.T) {
	data := []byte(`[{"role":"user","content":"hi"}]`)
	if _, err := Import(data, model.DefaultSettings()); err == nil {
		t.Error("import ending in unanswered user message must be rejected")
	}
}

func TestImport_RejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty input", ``},
		{"empty array", `[]`},
		{"unknown role", `[{"role":"wizard","content":"x"},{"role":"assistant","content":"y"}]`},
		{"missing content", `[{"role":"user"},{"role":"assistant","content":"y"}]`},
		{"system not first", `[{"role":"user","content":"x"},{"role":"system","content":"s"},{"role":"assistant","content":"y"}]`},
		{"out of range temperature", `{"temperature":9,"messages":[{"role":"user","content":"x"},{"role":"assistant","content":"y"}]}`},
		{"not json", `hello`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Import([]byte(tc.data), model.DefaultSettings()); err == nil {
				t.Errorf("Import(%q) should fail", tc.data)
			}
		})
	}
}

func TestImport_NormalizesToNFC(t *testing.T) {
	// "café" with a combining acute accent (NFD form).
	decomposed := "cafe\u0301"
	data := []byte(`[
		{"role":"user","content":"` + decomposed + `"},
		{"role":"assistant","content":"ok"}
	]`)

	conv, err := Import(data, model.DefaultSettings())
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	idxs := conv.UserTurnIndices()
	if len(idxs) != 1 {
		t.Fatalf("user turn count = %d", len(idxs))
	}
	got := conv.Messages[idxs[0]].Text()
	if got != norm.NFC.String(decomposed) {
		t.Errorf("content = %q, want NFC form", got)
	}
	if got == decomposed {
		t.Error("content was not normalized")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	data, err := NewJSONExporter(nil).Export(sampleConversation())
	if err != nil {
		t.Fatal(err)
	}

	conv, err := Import(data, model.DefaultSettings())
	if err != nil {
		t.Fatalf("Import() of exported document error = %v", err)
	}
	if conv.TurnCount() != 1 {
		t.Errorf("round-tripped turn count = %d, want 1", conv.TurnCount())
	}
}
