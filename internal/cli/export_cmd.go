// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumenlabs/lumen-tui/internal/export"
)

var (
	exportFormat string
	exportDir    string
)

var exportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a stored conversation to JSON or Markdown",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStorage()
		if err != nil {
			return err
		}
		defer db.Close()

		conv, err := db.LoadConversation(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		opts := export.DefaultOptions()
		opts.OutputDir = exportDir

		var exporter export.Exporter
		switch exportFormat {
		case "json":
			exporter = export.NewJSONExporter(opts)
		case "md", "markdown":
			exporter = export.NewMarkdownExporter(opts)
		default:
			return fmt.Errorf("unknown format %q (want json or markdown)", exportFormat)
		}

		path, err := export.ToFile(conv, exporter, opts)
		if err != nil {
			return err
		}
		fmt.Println("exported to", path)
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a conversation from a JSON document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conv, err := export.ImportFile(args[0], cfg.Settings())
		if err != nil {
			return err
		}

		db, err := openStorage()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.SaveConversation(cmd.Context(), conv); err != nil {
			return err
		}
		fmt.Printf("imported %d turns as %s\n", conv.TurnCount(), conv.ID)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "output format (json|markdown)")
	exportCmd.Flags().StringVarP(&exportDir, "output", "o", ".", "output directory")
}
