// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small shared helpers for the lumen-tui application:
// atomic file writes and width-aware string truncation.
package util
