// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads and watches lumen configuration.
//
// Configuration lives at ~/.lumen/config.toml with built-in defaults and
// environment variable overrides (LUMEN_BASE_URL, LUMEN_API_KEY,
// LUMEN_MODEL). A file watcher reports edits so the running session can
// re-validate its selected model without a restart.
package config
