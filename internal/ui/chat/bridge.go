// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/lumenlabs/lumen-tui/internal/model"
)

// Sender delivers messages into a running program's event loop.
// Implemented by *tea.Program.
type Sender interface {
	Send(tea.Msg)
}

// Bridge forwards conversation snapshots into the program without ever
// blocking the caller. Store listeners run on whichever goroutine issued
// the update, including the event loop itself; a synchronous Program.Send
// from there would wedge the loop on its own inbox.
type Bridge struct {
	updates chan model.Conversation
	done    chan struct{}
}

// NewBridge starts a forwarder that delivers each queued snapshot to p as
// a StoreUpdatedMsg. persist, when non-nil, is called for every forwarded
// snapshot on the forwarder goroutine, keeping disk writes off both the
// event loop and the stream session.
func NewBridge(p Sender, persist func(model.Conversation)) *Bridge {
	b := &Bridge{
		updates: make(chan model.Conversation, 64),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(b.done)
		for c := range b.updates {
			p.Send(StoreUpdatedMsg{Conversation: c})
			if persist != nil {
				persist(c)
			}
		}
	}()
	return b
}

// Notify queues a snapshot for delivery. When the queue is full the
// oldest queued snapshot is discarded; every message carries the complete
// conversation, so only the newest matters.
func (b *Bridge) Notify(c model.Conversation) {
	for {
		select {
		case b.updates <- c:
			return
		default:
		}
		select {
		case <-b.updates:
		default:
		}
	}
}

// Close drains queued snapshots and stops the forwarder. Callers must
// unsubscribe the store listener first.
func (b *Bridge) Close() {
	close(b.updates)
	<-b.done
}
