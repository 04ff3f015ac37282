// lumen - a terminal client for the Lumen Labs assistant backend.
//
// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"github.com/lumenlabs/lumen-tui/internal/cli"
)

func main() {
	cli.Execute()
}
