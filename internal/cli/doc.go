// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the lumen command line interface.
//
// Running lumen with no arguments starts the full-screen TUI. Subcommands
// cover the plain-terminal REPL (chat), model listing, stored session
// management, and import/export.
package cli
