// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the conversation view for the lumen TUI.
//
// The Bubble Tea model here is a thin surface over the conversation store
// and the streaming reconciler: key presses translate to reconciler
// operations, and store updates arrive as messages forwarded by the
// program runner. Rendering during a stream is throttled so fast token
// bursts do not redraw the terminal thousands of times per second.
package chat
