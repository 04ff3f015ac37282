// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lumenlabs/lumen-tui/internal/api"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available models and their capabilities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		client := api.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey)
		models, err := client.ListModels(ctx)
		if err != nil {
			return err
		}
		if len(models) == 0 {
			fmt.Println("no models available")
			return nil
		}

		fmt.Printf("%-20s %-24s %-24s %s\n", "ID", "NAME", "INPUT", "STATUS")
		for _, m := range models {
			marker := " "
			if m.ID == cfg.DefaultModel {
				marker = "*"
			}
			fmt.Printf("%s%-19s %-24s %-24s %s\n",
				marker, m.ID, m.Name, strings.Join(m.Input, ","), m.Status)
		}
		return nil
	},
}
