// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage_ContentShape(t *testing.T) {
	img := ImageBlock("data:image/png;base64,AAAA", "shot.png")
	msg := NewUserMessage("hello", img)

	if len(msg.Content) != 2 {
		t.Fatalf("content length = %d, want 2", len(msg.Content))
	}
	if msg.Content[0].Type != BlockText {
		t.Errorf("Content[0].Type = %q, want text block first", msg.Content[0].Type)
	}
	if msg.Text() != "hello" {
		t.Errorf("Text() = %q, want %q", msg.Text(), "hello")
	}
	if got := msg.Attachments(); len(got) != 1 || got[0].Kind != KindImage {
		t.Errorf("Attachments() = %+v, want one image block", got)
	}
}

func TestMessage_IsBlank(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want bool
	}{
		{"empty text no attachments", NewUserMessage(""), true},
		{"whitespace only", NewUserMessage("  \n\t"), true},
		{"text present", NewUserMessage("hi"), false},
		{"attachment only", NewUserMessage("", FileBlock("f1", "a.pdf", KindDocument)), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.IsBlank(); got != tc.want {
				t.Errorf("IsBlank() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMessage_AppendText_DoesNotMutateOriginal(t *testing.T) {
	orig := NewAssistantPlaceholder()
	appended := orig.AppendText("Hel").AppendText("lo")

	if appended.Text() != "Hello" {
		t.Errorf("appended text = %q, want %q", appended.Text(), "Hello")
	}
	if orig.Text() != "" {
		t.Errorf("original mutated: text = %q, want empty", orig.Text())
	}
	if !appended.Loading {
		t.Error("AppendText should preserve the loading flag")
	}
}

func TestMessage_Finalized(t *testing.T) {
	msg := NewAssistantPlaceholder().AppendText("partial")

	done := msg.Finalized("")
	if done.Loading {
		t.Error("Finalized should clear Loading")
	}
	if done.Error != "" {
		t.Errorf("unexpected error marker %q", done.Error)
	}

	failed := msg.Finalized("connection reset")
	if failed.Error != "connection reset" {
		t.Errorf("error marker = %q", failed.Error)
	}
	if failed.Text() != "partial" {
		t.Error("Finalized should keep partial text")
	}
}

// =============================================================================
// CONVERSATION SELECTOR TESTS
// =============================================================================

func TestNewConversation_Shape(t *testing.T) {
	s := DefaultSettings()
	s.SystemPrompt = "be helpful"
	conv := NewConversation(s)

	if len(conv.Messages) != 2 {
		t.Fatalf("message count = %d, want 2 (system + pending)", len(conv.Messages))
	}
	if sys, ok := conv.SystemMessage(); !ok || sys.Text() != "be helpful" {
		t.Error("Messages[0] should be the system message")
	}
	if _, ok := conv.PendingUserMessage(); !ok {
		t.Error("last message should be the pending user message")
	}
	if !conv.IsEmpty() {
		t.Error("new conversation should be empty")
	}
	if conv.IsLoading() {
		t.Error("new conversation should not be loading")
	}
}

func TestConversation_IsLoading(t *testing.T) {
	conv := NewConversation(Settings{SystemPrompt: "sys"})

	// Simulate a send mid-stream: [system, user, assistant(loading), pending].
	conv.Messages = []Message{
		NewSystemMessage("sys"),
		NewUserMessage("question"),
		NewAssistantPlaceholder(),
		NewUserMessage(""),
	}
	if !conv.IsLoading() {
		t.Error("IsLoading() should be true while the assistant message streams")
	}

	conv.Messages[2] = conv.Messages[2].Finalized("")
	if conv.IsLoading() {
		t.Error("IsLoading() should be false after finalization")
	}
}

func TestConversation_History_ExcludesPlaceholderPendingAndInfo(t *testing.T) {
	conv := Conversation{
		Messages: []Message{
			NewSystemMessage("sys"),
			NewUserMessage("q1"),
			func() Message { m := NewMessage(RoleAssistant, "a1"); return m }(),
			NewInfoMessage("model switched"),
			NewUserMessage("q2"),
			NewAssistantPlaceholder(),
			NewUserMessage(""),
		},
	}

	hist := conv.History()
	if len(hist) != 4 {
		t.Fatalf("history length = %d, want 4 (system, q1, a1, q2)", len(hist))
	}
	if hist[len(hist)-1].Text() != "q2" {
		t.Errorf("last history message = %q, want the just-sent user message", hist[len(hist)-1].Text())
	}
	for _, m := range hist {
		if m.Role == RoleInfo {
			t.Error("info messages must not be transmitted")
		}
		if m.Loading {
			t.Error("loading placeholder must not be transmitted")
		}
	}
}

func TestConversation_TurnCount(t *testing.T) {
	conv := Conversation{
		Messages: []Message{
			NewSystemMessage("sys"),
			NewUserMessage("q1"),
			NewMessage(RoleAssistant, "a1"),
			NewUserMessage("q2"),
			NewMessage(RoleAssistant, "a2"),
			NewUserMessage(""),
		},
	}
	if got := conv.TurnCount(); got != 2 {
		t.Errorf("TurnCount() = %d, want 2", got)
	}
}

func TestConversation_Clone_IsDeep(t *testing.T) {
	conv := NewConversation(Settings{SystemPrompt: "sys", Tools: map[string]bool{"web": true}})
	cp := conv.Clone()

	cp.Messages[0].Content[0].Text = "changed"
	cp.Settings.Tools["web"] = false

	if conv.Messages[0].Text() != "sys" {
		t.Error("clone shares message content with original")
	}
	if !conv.Settings.Tools["web"] {
		t.Error("clone shares tools map with original")
	}
}

// =============================================================================
// SETTINGS TESTS
// =============================================================================

func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name    string
		s       Settings
		wantErr bool
	}{
		{"defaults valid", DefaultSettings(), false},
		{"temperature high", Settings{Temperature: 2.5, TopP: 1}, true},
		{"temperature negative", Settings{Temperature: -0.1, TopP: 1}, true},
		{"top_p high", Settings{Temperature: 1, TopP: 1.01}, true},
		{"bounds inclusive", Settings{Temperature: 2, TopP: 1}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.s.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

// =============================================================================
// MODEL CAPABILITY TESTS
// =============================================================================

func TestModelCapability_AcceptsAttachment(t *testing.T) {
	vision := ModelCapability{ID: "lumen-vision", Input: []string{"text", "image"}, Status: StatusReady}
	textOnly := ModelCapability{ID: "lumen-mini", Input: []string{"text"}, Status: StatusReady}

	if !vision.AcceptsAttachment(KindImage) {
		t.Error("vision model should accept images")
	}
	if textOnly.AcceptsAttachment(KindImage) {
		t.Error("text-only model should reject images")
	}
	if !textOnly.AcceptsInput("text") {
		t.Error("every model accepts text")
	}

	full := ModelCapability{ID: "lumen-omni", Input: []string{"text", "image", "audio", "video", "file"}}
	for _, kind := range []AttachmentKind{KindImage, KindAudio, KindVideo, KindDocument} {
		if !full.AcceptsAttachment(kind) {
			t.Errorf("omni model should accept %s attachments", kind)
		}
	}
}

func TestResolveModel(t *testing.T) {
	list := []ModelCapability{
		{ID: "lumen-pro", Status: StatusUnavailable},
		{ID: "lumen-mini", Status: StatusReady},
		{ID: "lumen-vision", Status: StatusReady},
	}

	tests := []struct {
		name     string
		selected string
		fallback string
		list     []ModelCapability
		want     string
	}{
		{"selected is valid", "lumen-vision", "lumen-mini", list, "lumen-vision"},
		{"selected missing, fallback valid", "gone", "lumen-mini", list, "lumen-mini"},
		{"both missing, first ready wins", "gone", "also-gone", list, "lumen-mini"},
		{"empty list keeps selection", "lumen-pro", "lumen-mini", nil, "lumen-pro"},
		{"empty list empty selection uses fallback", "", "lumen-mini", nil, "lumen-mini"},
		{
			"nothing ready falls back to first",
			"gone", "also-gone",
			[]ModelCapability{{ID: "a", Status: StatusUnavailable}, {ID: "b", Status: StatusUnavailable}},
			"a",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ResolveModel(tc.selected, tc.fallback, tc.list); got != tc.want {
				t.Errorf("ResolveModel() = %q, want %q", got, tc.want)
			}
		})
	}
}
