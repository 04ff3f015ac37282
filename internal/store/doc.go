// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds client-local conversation state behind an explicit
// update contract: readers get immutable snapshots, writers express every
// mutation as a pure transition function, and observers are notified once
// per applied update. No ambient singletons; every mutation is observable
// and replay-safe.
package store
