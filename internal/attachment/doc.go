// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package attachment turns local files into message content blocks.
//
// Images are inlined as base64 data URLs so the backend receives them with
// the request. Audio, video, and document files are uploaded to blob
// storage and referenced by ID. Classification runs on MIME type first and
// falls back to the file extension.
//
// The package also filters attachments against a model's declared input
// capabilities without mutating the stored conversation, so switching to a
// more capable model restores the full message.
package attachment
