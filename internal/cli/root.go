// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/lumenlabs/lumen-tui/internal/config"
	"github.com/lumenlabs/lumen-tui/internal/logging"
)

var (
	flagModel   string
	flagBaseURL string
	flagDebug   bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "lumen",
	Short: "lumen - multi-model chat assistant for the terminal",
	Long: `lumen is a terminal client for the Lumen Labs assistant backend.

Run without arguments to start the full-screen interface. Conversations
stream in real time, persist locally, and can be exported, resent,
edited, and undone.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if flagModel != "" {
			cfg.DefaultModel = flagModel
		}
		if flagBaseURL != "" {
			cfg.Backend.BaseURL = flagBaseURL
		}
		if flagDebug {
			cfg.Logging.Debug = true
		}
		if _, err := logging.Init(cfg.Logging.Path, cfg.Logging.Debug); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logging.Sync()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			return fmt.Errorf("the interactive interface needs a terminal; try %q for piped use", "lumen chat")
		}
		return runTUI(cfg)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "model id to use (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "backend base URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&flagDebug, "debug", "d", false, "verbose logging")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(modelsCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
