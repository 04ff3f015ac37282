// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package reconciler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/lumenlabs/lumen-tui/internal/attachment"
	"github.com/lumenlabs/lumen-tui/internal/completion"
	"github.com/lumenlabs/lumen-tui/internal/logging"
	"github.com/lumenlabs/lumen-tui/internal/model"
	"github.com/lumenlabs/lumen-tui/internal/store"
)

// =============================================================================
// PHASES
// =============================================================================

// Phase is the reconciler's lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	PhaseStreaming
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseStreaming:
		return "streaming"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// =============================================================================
// COLLABORATOR CONTRACTS
// =============================================================================

// Streamer opens a streaming completion request. Implemented by
// completion.Client; replaced by fakes in tests.
type Streamer interface {
	Stream(ctx context.Context, req completion.ChatRequest, fn completion.DeltaFunc) error
}

// Hooks notify external surfaces about terminal conditions. All hooks are
// optional and are called from the session goroutine.
type Hooks struct {
	// OnPhase fires on every phase change.
	OnPhase func(Phase)

	// OnNotice carries a transient user-visible notice.
	OnNotice func(text string)

	// OnAuthExpired signals the external auth collaborator (401).
	OnAuthExpired func()

	// OnRestoreInput asks the input surface to restore prompt text after
	// an auth rollback.
	OnRestoreInput func(text string)
}

// Capability resolves the active model's capability record so attachments
// the model cannot accept are filtered from the request, not from the
// conversation. A nil resolver transmits everything.
type Capability func(modelID string) (model.ModelCapability, bool)

// =============================================================================
// RECONCILER
// =============================================================================

// Reconciler owns the stream session for one conversation.
type Reconciler struct {
	store      *store.Store
	client     Streamer
	hooks      Hooks
	capability Capability

	mu         sync.Mutex
	phase      Phase
	generation uint64
	done       chan struct{} // closed when the active session finishes
	cancelMgr  *cancelManager
}

// New creates a reconciler over a conversation store and completion client.
func New(s *store.Store, client Streamer, hooks Hooks, capability Capability) *Reconciler {
	return &Reconciler{
		store:      s,
		client:     client,
		hooks:      hooks,
		capability: capability,
		cancelMgr:  newCancelManager(),
	}
}

// Phase returns the current lifecycle phase.
func (r *Reconciler) Phase() Phase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.phase
}

// Wait blocks until the active session, if any, reaches a terminal state.
func (r *Reconciler) Wait() {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done != nil {
		<-done
	}
}

// =============================================================================
// OPERATIONS
// =============================================================================

// Send submits the pending user message with the given prompt text. A
// blank prompt with no attachments is silently ignored. An active session
// is cancelled and drained before the new turn begins.
func (r *Reconciler) Send(text string) {
	conv := r.store.Read()
	pending, ok := conv.PendingUserMessage()
	if !ok {
		return
	}
	if strings.TrimSpace(text) == "" && len(pending.Attachments()) == 0 {
		return
	}

	r.supersede()

	// Saved for the 401 rollback path: the original prompt plus any
	// attachments already on the pending message.
	saved := pending.WithText(text)

	snapshot := r.store.Update(store.BeginTurn(text))
	r.begin(snapshot, saved)
}

// Resend re-submits the user turn at msgIdx with its original text,
// truncating everything after it. Attachments of the original turn ride
// along.
func (r *Reconciler) Resend(msgIdx int) {
	conv := r.store.Read()
	if msgIdx < 0 || msgIdx >= len(conv.Messages) || conv.Messages[msgIdx].Role != model.RoleUser {
		return
	}
	msg := conv.Messages[msgIdx]
	r.resendWith(msgIdx, msg.Text(), msg.Attachments())
}

// EditResend re-submits the user turn at msgIdx with edited prompt text.
func (r *Reconciler) EditResend(msgIdx int, text string) {
	conv := r.store.Read()
	if msgIdx < 0 || msgIdx >= len(conv.Messages) || conv.Messages[msgIdx].Role != model.RoleUser {
		return
	}
	r.resendWith(msgIdx, text, conv.Messages[msgIdx].Attachments())
}

func (r *Reconciler) resendWith(msgIdx int, text string, attachments []model.ContentBlock) {
	if strings.TrimSpace(text) == "" && len(attachments) == 0 {
		return
	}

	r.supersede()

	r.store.Update(store.TruncateForResend(msgIdx, text, attachments))
	saved := model.NewUserMessage(text, attachments...)
	snapshot := r.store.Update(store.BeginTurn(text))
	r.begin(snapshot, saved)
}

// Undo removes the last completed user+assistant pair. Attachments of the
// removed user message are reassociated onto the pending message. Ignored
// while a stream is active.
func (r *Reconciler) Undo() {
	if r.Phase() != PhaseIdle {
		return
	}
	r.store.Update(store.UndoLastTurn())
}

// Stop cancels the active stream session, if any. The assistant message
// keeps whatever partial text arrived.
func (r *Reconciler) Stop() {
	r.cancelMgr.cancel()
}

// =============================================================================
// SESSION LIFECYCLE
// =============================================================================

// supersede cancels and drains any active session so two placeholders can
// never be written concurrently. Last writer wins on the cancel handle.
func (r *Reconciler) supersede() {
	r.cancelMgr.cancel()
	r.Wait()
}

func (r *Reconciler) setPhase(p Phase) {
	r.mu.Lock()
	r.phase = p
	r.mu.Unlock()
	if r.hooks.OnPhase != nil {
		r.hooks.OnPhase(p)
	}
}

// begin opens the stream session for the just-committed turn. snapshot is
// the conversation after BeginTurn; saved is the pending user message as
// it was before the turn, used to restore state on auth rollback.
func (r *Reconciler) begin(snapshot model.Conversation, saved model.Message) {
	ctx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.generation++
	gen := r.generation
	done := make(chan struct{})
	r.done = done
	r.mu.Unlock()

	r.cancelMgr.set(cancel)
	r.setPhase(PhaseSending)

	req := r.buildRequest(snapshot)

	go func() {
		defer close(done)
		defer r.cancelMgr.cancel()

		first := true
		err := r.client.Stream(ctx, req, func(delta string) {
			if ctx.Err() != nil || !r.current(gen) {
				return
			}
			if first {
				first = false
				r.setPhase(PhaseStreaming)
			}
			r.store.Update(store.AppendDelta(delta))
		})

		if !r.current(gen) {
			return
		}
		r.finish(err, saved)
	}()
}

func (r *Reconciler) current(gen uint64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation == gen
}

// buildRequest assembles the wire request from the committed history,
// filtered down to what the selected model can accept.
func (r *Reconciler) buildRequest(conv model.Conversation) completion.ChatRequest {
	history := conv.History()
	if r.capability != nil {
		if capability, ok := r.capability(conv.Settings.Model); ok {
			history = attachment.FilterForModel(history, capability)
		}
	}
	return completion.ChatRequest{
		Model:       conv.Settings.Model,
		Messages:    completion.FromMessages(history),
		Temperature: conv.Settings.Temperature,
		TopP:        conv.Settings.TopP,
		Stream:      true,
		Arcana:      conv.Arcana,
	}
}

// finish maps the stream's terminal condition onto store mutations.
func (r *Reconciler) finish(err error, saved model.Message) {
	defer r.setPhase(PhaseIdle)

	switch {
	case err == nil:
		r.store.Update(store.FinalizeStream(""))

	case errors.Is(err, context.Canceled):
		// Aborted: partial text survives, no error surfaced beyond a
		// transient notice.
		r.store.Update(store.FinalizeStream(""))
		r.notice("generation stopped")

	case completion.IsAuthExpired(err):
		// Roll the whole turn back and restore the prompt so the user can
		// retry after re-authenticating. Length is unchanged from before
		// the send.
		r.store.Update(
			store.DropTrailing(3),
			store.AppendMessage(saved),
		)
		if r.hooks.OnRestoreInput != nil {
			r.hooks.OnRestoreInput(saved.Text())
		}
		if r.hooks.OnAuthExpired != nil {
			r.hooks.OnAuthExpired()
		}
		logging.L().Warn("session expired, turn rolled back")

	case completion.IsPayloadTooLarge(err):
		// Truncate the turn; the prompt is not restored.
		r.store.Update(
			store.DropTrailing(3),
			store.AppendMessage(model.NewUserMessage("")),
		)
		r.notice("request too large for the selected model")
		logging.L().Warn("payload too large, turn truncated")

	default:
		// Transport or server failure: keep the turn, mark the assistant
		// message inline.
		r.store.Update(store.FinalizeStream(err.Error()))
		r.notice("response failed: " + err.Error())
		logging.L().Error("stream failed", zap.Error(err))
	}
}

func (r *Reconciler) notice(text string) {
	if r.hooks.OnNotice != nil {
		r.hooks.OnNotice(text)
	}
}
