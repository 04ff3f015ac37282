// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package reconciler drives the streaming state machine.
//
// A reconciler owns at most one stream session per conversation. Sending
// finalizes the pending user message, appends a loading assistant
// placeholder, and streams deltas into it. Terminal conditions map to
// distinct store mutations:
//
//	Completed   - loading flag cleared, turn kept
//	Aborted     - partial text kept, loading cleared
//	AuthExpired - whole turn rolled back, prompt restored for retry
//	TooLarge    - turn rolled back, prompt not restored
//	other       - placeholder kept with an inline error marker
//
// Every failure is absorbed here and surfaced through Hooks; nothing
// above this package sees a raw transport error.
package reconciler
