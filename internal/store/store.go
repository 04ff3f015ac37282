// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"

	"github.com/lumenlabs/lumen-tui/internal/model"
)

// Transition is a pure state transition: it receives a snapshot it may
// freely modify and returns the next state. Transitions must not retain
// references to the argument.
type Transition func(model.Conversation) model.Conversation

// Listener observes applied updates. Called synchronously, once per
// Update call, with a private snapshot.
type Listener func(model.Conversation)

// Store is the conversation state container. All access goes through
// Read and Update; concurrent renderers always observe a consistent
// snapshot.
type Store struct {
	mu        sync.Mutex
	state     model.Conversation
	listeners map[int]Listener
	nextSub   int
}

// New creates a store seeded with the given conversation.
func New(initial model.Conversation) *Store {
	return &Store{
		state:     initial.Clone(),
		listeners: make(map[int]Listener),
	}
}

// Read returns a deep-copied snapshot of the current state.
func (s *Store) Read() model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Update applies the transitions in order as one atomic update and
// notifies listeners once. Returns the resulting snapshot.
func (s *Store) Update(fns ...Transition) model.Conversation {
	s.mu.Lock()
	next := s.state.Clone()
	for _, fn := range fns {
		next = fn(next)
	}
	s.state = next
	snapshot := next.Clone()
	listeners := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()

	for _, l := range listeners {
		l(snapshot)
	}
	return snapshot
}

// Subscribe registers a listener and returns its unsubscribe function.
func (s *Store) Subscribe(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}
