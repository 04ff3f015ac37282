// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export converts conversations to and from portable formats.
//
// Exporters produce JSON or Markdown documents from a conversation.
// Import accepts either a bare message array or a full conversation
// object, validates the message shape before anything touches the live
// conversation, and normalizes text to NFC so imported content compares
// equal regardless of the producer's Unicode form.
package export
