// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations, messages,
// content blocks, and model capabilities.
//
// All types use value semantics: mutating helpers return copies, so a
// Conversation handed out by the store is a consistent snapshot that later
// transitions can never change under a reader.
package model
