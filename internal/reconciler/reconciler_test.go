// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconciler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lumenlabs/lumen-tui/internal/completion"
	"github.com/lumenlabs/lumen-tui/internal/model"
	"github.com/lumenlabs/lumen-tui/internal/store"
)

// =============================================================================
// FAKES
// =============================================================================

// scriptStreamer emits a fixed chunk sequence and returns a fixed error.
type scriptStreamer struct {
	mu      sync.Mutex
	chunks  []string
	err     error
	calls   int
	lastReq completion.ChatRequest
}

func (f *scriptStreamer) Stream(_ context.Context, req completion.ChatRequest, fn completion.DeltaFunc) error {
	f.mu.Lock()
	f.calls++
	f.lastReq = req
	f.mu.Unlock()
	for _, c := range f.chunks {
		fn(c)
	}
	return f.err
}

func (f *scriptStreamer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *scriptStreamer) request() completion.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

// abortStreamer emits two chunks, waits for cancellation, then keeps
// emitting to prove late chunks are dropped.
type abortStreamer struct{}

func (f *abortStreamer) Stream(ctx context.Context, _ completion.ChatRequest, fn completion.DeltaFunc) error {
	fn("Par")
	fn("tial")
	<-ctx.Done()
	fn("MORE") // must not be applied
	return ctx.Err()
}

func newTestStore() *store.Store {
	settings := model.DefaultSettings()
	settings.Model = "lumen-mini"
	settings.SystemPrompt = "be helpful"
	return store.New(model.NewConversation(settings))
}

func waitIdle(t *testing.T, r *Reconciler) {
	t.Helper()
	r.Wait()
	deadline := time.After(2 * time.Second)
	for r.Phase() != PhaseIdle {
		select {
		case <-deadline:
			t.Fatal("reconciler did not return to idle")
		case <-time.After(time.Millisecond):
		}
	}
}

// =============================================================================
// SEND TESTS
// =============================================================================

func TestSend_StreamsChunksIntoAssistantMessage(t *testing.T) {
	s := newTestStore()
	streamer := &scriptStreamer{chunks: []string{"Hel", "lo, ", "world"}}

	var updates int
	var mu sync.Mutex
	s.Subscribe(func(model.Conversation) {
		mu.Lock()
		updates++
		mu.Unlock()
	})

	r := New(s, streamer, Hooks{}, nil)
	r.Send("hi")
	waitIdle(t, r)

	conv := s.Read()
	msg, _, ok := conv.LastAssistantMessage()
	if !ok {
		t.Fatal("no assistant message")
	}
	if msg.Text() != "Hello, world" {
		t.Errorf("assistant text = %q, want %q", msg.Text(), "Hello, world")
	}
	if msg.Loading {
		t.Error("loading flag must be cleared on completion")
	}

	// One update for the turn begin, one per chunk, one to finalize.
	mu.Lock()
	defer mu.Unlock()
	if updates != 5 {
		t.Errorf("store updates = %d, want 5 (begin + 3 chunks + finalize)", updates)
	}

	// Idle invariant: the conversation still ends with a pending user message.
	last := conv.Messages[len(conv.Messages)-1]
	if last.Role != model.RoleUser || !last.IsBlank() {
		t.Errorf("conversation must end with empty pending user message, got %+v", last)
	}
}

func TestSend_BlankPromptIsSilentlyIgnored(t *testing.T) {
	s := newTestStore()
	streamer := &scriptStreamer{chunks: []string{"never"}}

	var updates int
	s.Subscribe(func(model.Conversation) { updates++ })

	r := New(s, streamer, Hooks{}, nil)
	r.Send("")
	waitIdle(t, r)

	if streamer.callCount() != 0 {
		t.Error("blank prompt must not open a request")
	}
	if updates != 0 {
		t.Errorf("blank prompt must not mutate the store, saw %d updates", updates)
	}
}

func TestSend_WhitespacePromptIsSilentlyIgnored(t *testing.T) {
	s := newTestStore()
	streamer := &scriptStreamer{chunks: []string{"never"}}

	var updates int
	s.Subscribe(func(model.Conversation) { updates++ })

	r := New(s, streamer, Hooks{}, nil)
	r.Send("   \t\n")
	waitIdle(t, r)

	if streamer.callCount() != 0 {
		t.Error("whitespace-only prompt must not open a request")
	}
	if updates != 0 {
		t.Errorf("whitespace-only prompt must not mutate the store, saw %d updates", updates)
	}
}

func TestEditResend_WhitespaceTextIsSilentlyIgnored(t *testing.T) {
	s := newTestStore()
	streamer := &scriptStreamer{chunks: []string{"reply"}}

	r := New(s, streamer, Hooks{}, nil)
	r.Send("question")
	waitIdle(t, r)

	before := s.Read()
	idxs := before.UserTurnIndices()
	r.EditResend(idxs[len(idxs)-1], " \t ")
	waitIdle(t, r)

	if streamer.callCount() != 1 {
		t.Error("whitespace-only edit must not open a request")
	}
	if got := len(s.Read().Messages); got != len(before.Messages) {
		t.Errorf("conversation length changed from %d to %d", len(before.Messages), got)
	}
}

func TestSend_BlankPromptWithAttachmentIsSent(t *testing.T) {
	s := newTestStore()
	s.Update(store.AttachToPending(model.ImageBlock("data:image/png;base64,AA", "a.png")))
	streamer := &scriptStreamer{chunks: []string{"I see an image"}}

	r := New(s, streamer, Hooks{}, nil)
	r.Send("")
	waitIdle(t, r)

	if streamer.callCount() != 1 {
		t.Error("attachment-only prompt should open a request")
	}
}

func TestSend_RequestCarriesHistoryAndSettings(t *testing.T) {
	s := newTestStore()
	s.Update(store.SetArcana("research-notes"))
	streamer := &scriptStreamer{chunks: []string{"ok"}}

	r := New(s, streamer, Hooks{}, nil)
	r.Send("question")
	waitIdle(t, r)

	req := streamer.request()
	if !req.Stream {
		t.Error("request must set stream:true")
	}
	if req.Model != "lumen-mini" || req.Arcana != "research-notes" {
		t.Errorf("request = %+v", req)
	}
	// System prompt plus the committed user message.
	if len(req.Messages) != 2 {
		t.Fatalf("wire message count = %d, want 2", len(req.Messages))
	}
	if req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
		t.Errorf("wire roles = %q, %q", req.Messages[0].Role, req.Messages[1].Role)
	}
}

func TestSend_FiltersAttachmentsForTextOnlyModel(t *testing.T) {
	s := newTestStore()
	s.Update(store.AttachToPending(model.ImageBlock("data:image/png;base64,AA", "a.png")))
	streamer := &scriptStreamer{chunks: []string{"ok"}}

	capability := func(id string) (model.ModelCapability, bool) {
		return model.ModelCapability{ID: id, Input: []string{"text"}}, true
	}
	r := New(s, streamer, Hooks{}, capability)
	r.Send("describe")
	waitIdle(t, r)

	req := streamer.request()
	userMsg := req.Messages[len(req.Messages)-1]
	for _, b := range userMsg.Content {
		if b.Type != "text" {
			t.Errorf("non-text block %q transmitted to text-only model", b.Type)
		}
	}

	// The attachment stays on the stored conversation.
	conv := s.Read()
	idxs := conv.UserTurnIndices()
	if len(idxs) == 0 || len(conv.Messages[idxs[0]].Attachments()) != 1 {
		t.Error("filtering must not remove the attachment from the conversation")
	}
}

// =============================================================================
// ABORT TESTS
// =============================================================================

func TestStop_KeepsPartialTextAndDropsLateChunks(t *testing.T) {
	s := newTestStore()

	r := New(s, &abortStreamer{}, Hooks{}, nil)

	partial := make(chan struct{})
	var once sync.Once
	s.Subscribe(func(c model.Conversation) {
		if msg, _, ok := c.LastAssistantMessage(); ok && msg.Text() == "Partial" {
			once.Do(func() { close(partial) })
		}
	})

	r.Send("go")
	select {
	case <-partial:
	case <-time.After(2 * time.Second):
		t.Fatal("never saw partial text")
	}
	r.Stop()
	waitIdle(t, r)

	msg, _, ok := s.Read().LastAssistantMessage()
	if !ok {
		t.Fatal("assistant message missing after abort")
	}
	if msg.Text() != "Partial" {
		t.Errorf("assistant text = %q, want %q (late chunks dropped)", msg.Text(), "Partial")
	}
	if msg.Loading {
		t.Error("loading must be cleared on abort")
	}
	if msg.Error != "" {
		t.Errorf("abort is not an error, got marker %q", msg.Error)
	}
}

// =============================================================================
// FAILURE TESTS
// =============================================================================

func TestSend_AuthExpiredRollsBackAndRestoresInput(t *testing.T) {
	s := newTestStore()
	streamer := &scriptStreamer{err: completion.ErrAuthExpired}

	var restored string
	var authSignal bool
	hooks := Hooks{
		OnRestoreInput: func(text string) { restored = text },
		OnAuthExpired:  func() { authSignal = true },
	}

	before := s.Read()
	r := New(s, streamer, hooks, nil)
	r.Send("secret question")
	waitIdle(t, r)

	after := s.Read()
	if len(after.Messages) != len(before.Messages) {
		t.Errorf("conversation length = %d, want %d (unchanged)", len(after.Messages), len(before.Messages))
	}
	if _, _, ok := after.LastAssistantMessage(); ok {
		t.Error("assistant placeholder must be rolled back")
	}
	pending, _ := after.PendingUserMessage()
	if pending.Text() != "secret question" {
		t.Errorf("pending text = %q, want original prompt", pending.Text())
	}
	if restored != "secret question" {
		t.Errorf("restored input = %q", restored)
	}
	if !authSignal {
		t.Error("auth-expired signal not raised")
	}
}

func TestSend_AuthExpiredPreservesAttachments(t *testing.T) {
	s := newTestStore()
	s.Update(store.AttachToPending(
		model.FileBlock("f1", "a.pdf", model.KindDocument),
		model.FileBlock("f2", "b.pdf", model.KindDocument),
	))
	streamer := &scriptStreamer{err: completion.ErrAuthExpired}

	r := New(s, streamer, Hooks{}, nil)
	r.Send("read these")
	waitIdle(t, r)

	pending, _ := s.Read().PendingUserMessage()
	if len(pending.Attachments()) != 2 {
		t.Errorf("pending attachments = %d, want 2 preserved", len(pending.Attachments()))
	}
}

func TestSend_PayloadTooLargeTruncatesTurn(t *testing.T) {
	s := newTestStore()
	streamer := &scriptStreamer{err: completion.ErrPayloadTooLarge}

	var restoreCalled bool
	var notice string
	hooks := Hooks{
		OnRestoreInput: func(string) { restoreCalled = true },
		OnNotice:       func(text string) { notice = text },
	}

	before := s.Read()
	r := New(s, streamer, hooks, nil)
	r.Send("enormous prompt")
	waitIdle(t, r)

	after := s.Read()
	if len(after.Messages) != len(before.Messages) {
		t.Errorf("conversation length = %d, want %d", len(after.Messages), len(before.Messages))
	}
	pending, _ := after.PendingUserMessage()
	if !pending.IsBlank() {
		t.Errorf("pending input must NOT be restored, got %q", pending.Text())
	}
	if restoreCalled {
		t.Error("413 must not restore the input slot")
	}
	if notice == "" {
		t.Error("413 should surface a user-visible notice")
	}
}

func TestSend_GenericFailureKeepsTurnWithMarker(t *testing.T) {
	s := newTestStore()
	streamer := &scriptStreamer{
		chunks: []string{"half an "},
		err:    &completion.ClientError{Type: completion.ErrTypeConnection, Message: "connection reset"},
	}

	r := New(s, streamer, Hooks{}, nil)
	r.Send("hello")
	waitIdle(t, r)

	conv := s.Read()
	msg, _, ok := conv.LastAssistantMessage()
	if !ok {
		t.Fatal("assistant message must be kept on generic failure")
	}
	if msg.Text() != "half an " {
		t.Errorf("partial text = %q", msg.Text())
	}
	if msg.Error == "" {
		t.Error("assistant message should carry an inline error marker")
	}
	if msg.Loading {
		t.Error("loading must be cleared")
	}
}

// =============================================================================
// UNDO & RESEND TESTS
// =============================================================================

func completeTurn(t *testing.T, r *Reconciler, s *store.Store, streamer *scriptStreamer, prompt, reply string) {
	t.Helper()
	streamer.mu.Lock()
	streamer.chunks = []string{reply}
	streamer.err = nil
	streamer.mu.Unlock()
	r.Send(prompt)
	waitIdle(t, r)
}

func TestUndo_ReassignsAttachments(t *testing.T) {
	s := newTestStore()
	streamer := &scriptStreamer{}
	r := New(s, streamer, Hooks{}, nil)

	s.Update(store.AttachToPending(
		model.ImageBlock("data:image/png;base64,AA", "a.png"),
		model.FileBlock("f1", "b.pdf", model.KindDocument),
	))
	completeTurn(t, r, s, streamer, "two attachments", "noted")

	r.Undo()

	pending, _ := s.Read().PendingUserMessage()
	// One text block plus both reassociated attachments.
	if len(pending.Content) != 3 {
		t.Fatalf("pending content blocks = %d, want 3", len(pending.Content))
	}
	if len(pending.Attachments()) != 2 {
		t.Errorf("pending attachments = %d, want 2", len(pending.Attachments()))
	}
	if s.Read().TurnCount() != 0 {
		t.Errorf("turn count = %d, want 0 after undo", s.Read().TurnCount())
	}
}

func TestUndo_IgnoredWhileStreaming(t *testing.T) {
	s := newTestStore()
	r := New(s, &abortStreamer{}, Hooks{}, nil)

	partial := make(chan struct{})
	var once sync.Once
	s.Subscribe(func(c model.Conversation) {
		if msg, _, ok := c.LastAssistantMessage(); ok && msg.Text() == "Partial" {
			once.Do(func() { close(partial) })
		}
	})

	r.Send("go")
	<-partial
	lenBefore := len(s.Read().Messages)
	r.Undo()
	if got := len(s.Read().Messages); got != lenBefore {
		t.Errorf("undo during stream mutated conversation: %d -> %d", lenBefore, got)
	}
	r.Stop()
	waitIdle(t, r)
}

func TestResend_TruncatesAndReplays(t *testing.T) {
	s := newTestStore()
	streamer := &scriptStreamer{}
	r := New(s, streamer, Hooks{}, nil)

	completeTurn(t, r, s, streamer, "first", "answer one")
	completeTurn(t, r, s, streamer, "second", "answer two")

	conv := s.Read()
	idxs := conv.UserTurnIndices()
	if len(idxs) != 2 {
		t.Fatalf("turn count = %d", len(idxs))
	}

	// Resend the first turn: everything after it is discarded and a fresh
	// assistant reply is generated for the original prompt.
	streamer.mu.Lock()
	streamer.chunks = []string{"answer one, again"}
	streamer.mu.Unlock()
	r.Resend(idxs[0])
	waitIdle(t, r)

	conv = s.Read()
	// system + user + assistant + pending.
	if len(conv.Messages) != 4 {
		t.Fatalf("message count = %d, want 4", len(conv.Messages))
	}
	if conv.TurnCount() != 1 {
		t.Errorf("turn count = %d, want 1", conv.TurnCount())
	}
	msg, _, _ := conv.LastAssistantMessage()
	if msg.Text() != "answer one, again" {
		t.Errorf("assistant text = %q", msg.Text())
	}
	idxs = conv.UserTurnIndices()
	if conv.Messages[idxs[0]].Text() != "first" {
		t.Errorf("resent prompt = %q, want original text", conv.Messages[idxs[0]].Text())
	}
}

func TestEditResend_UsesEditedTextAndKeepsAttachments(t *testing.T) {
	s := newTestStore()
	streamer := &scriptStreamer{}
	r := New(s, streamer, Hooks{}, nil)

	s.Update(store.AttachToPending(model.FileBlock("f1", "data.csv", model.KindDocument)))
	completeTurn(t, r, s, streamer, "analyze this", "done")

	conv := s.Read()
	idxs := conv.UserTurnIndices()

	streamer.mu.Lock()
	streamer.chunks = []string{"re-analyzed"}
	streamer.mu.Unlock()
	r.EditResend(idxs[0], "analyze this more carefully")
	waitIdle(t, r)

	conv = s.Read()
	idxs = conv.UserTurnIndices()
	edited := conv.Messages[idxs[0]]
	if edited.Text() != "analyze this more carefully" {
		t.Errorf("edited prompt = %q", edited.Text())
	}
	if len(edited.Attachments()) != 1 {
		t.Errorf("attachments = %d, want 1 preserved across edit", len(edited.Attachments()))
	}
}

// =============================================================================
// SUPERSEDE TESTS
// =============================================================================

func TestSend_SupersedesActiveSession(t *testing.T) {
	s := newTestStore()

	// First session blocks until cancelled; second completes normally.
	first := &abortStreamer{}
	r := New(s, first, Hooks{}, nil)

	partial := make(chan struct{})
	var once sync.Once
	s.Subscribe(func(c model.Conversation) {
		if msg, _, ok := c.LastAssistantMessage(); ok && msg.Text() == "Partial" {
			once.Do(func() { close(partial) })
		}
	})

	r.Send("first prompt")
	<-partial

	// Swap in a completing streamer for the superseding send.
	r.client = &scriptStreamer{chunks: []string{"second answer"}}
	r.Send("second prompt")
	waitIdle(t, r)

	conv := s.Read()
	msg, _, _ := conv.LastAssistantMessage()
	if msg.Text() != "second answer" {
		t.Errorf("assistant text = %q", msg.Text())
	}
	// The superseded turn survives with its partial text.
	idxs := conv.UserTurnIndices()
	if len(idxs) != 2 {
		t.Fatalf("turn count = %d, want 2", len(idxs))
	}
	for _, m := range conv.Messages {
		if m.Role == model.RoleAssistant && m.Loading {
			t.Error("no assistant message may remain loading after supersede")
		}
	}
}
