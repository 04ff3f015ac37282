// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package completion provides the HTTP client for the hosted completion
// endpoint. Responses stream as chunked UTF-8 text fragments consumed by
// asynchronous pull; cancellation is cooperative via context.
package completion
