// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists conversations and attachment blobs in a local
// SQLite database.
//
// Conversations are stored as JSON documents keyed by ID with denormalized
// metadata columns for cheap listing and search. Attachment payloads live
// in a separate files table so large blobs never ride along with
// conversation queries.
//
// The database lives at ~/.lumen/lumen.db by default. All operations take
// a context and are safe for concurrent use; SQLite serializes writers
// internally.
package storage
