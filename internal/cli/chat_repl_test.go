// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"sync"
	"testing"

	"github.com/lumenlabs/lumen-tui/internal/completion"
	"github.com/lumenlabs/lumen-tui/internal/model"
	"github.com/lumenlabs/lumen-tui/internal/reconciler"
	"github.com/lumenlabs/lumen-tui/internal/store"
)

type replStreamer struct {
	mu     sync.Mutex
	chunks []string
	calls  int
}

func (f *replStreamer) Stream(_ context.Context, _ completion.ChatRequest, fn completion.DeltaFunc) error {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	for _, c := range f.chunks {
		fn(c)
	}
	return nil
}

func (f *replStreamer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newReplFixture(chunks ...string) (*store.Store, *reconciler.Reconciler, *replStreamer) {
	settings := model.DefaultSettings()
	settings.Model = "lumen-mini"
	s := store.New(model.NewConversation(settings))
	streamer := &replStreamer{chunks: chunks}
	rec := reconciler.New(s, streamer, reconciler.Hooks{}, nil)
	return s, rec, streamer
}

func TestHandleReplCommand_EditReplaysLastTurn(t *testing.T) {
	s, rec, streamer := newReplFixture("second answer")
	s.Update(
		store.BeginTurn("first question"),
		store.AppendDelta("first answer"),
		store.FinalizeStream(""),
	)

	stream := func(start func()) {
		start()
		rec.Wait()
	}
	if quit := handleReplCommand(context.Background(), "/edit better question", s, rec, nil, stream); quit {
		t.Fatal("/edit must not quit the REPL")
	}

	conv := s.Read()
	idxs := conv.UserTurnIndices()
	if len(idxs) != 1 {
		t.Fatalf("want 1 user turn after edit, got %d", len(idxs))
	}
	if got := conv.Messages[idxs[0]].Text(); got != "better question" {
		t.Errorf("user turn text = %q, want rewritten prompt", got)
	}
	msg, _, ok := conv.LastAssistantMessage()
	if !ok || msg.Text() != "second answer" {
		t.Errorf("assistant reply = %q, want replayed answer", msg.Text())
	}
	if streamer.callCount() != 1 {
		t.Errorf("edit opened %d requests, want 1", streamer.callCount())
	}
}

func TestHandleReplCommand_EditWithoutTurnsIsRejected(t *testing.T) {
	s, rec, streamer := newReplFixture("never")

	streamed := false
	stream := func(start func()) {
		streamed = true
		start()
		rec.Wait()
	}
	handleReplCommand(context.Background(), "/edit anything", s, rec, nil, stream)

	if streamed || streamer.callCount() != 0 {
		t.Error("editing an empty conversation must not open a request")
	}
}
