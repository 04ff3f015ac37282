// Copyright (c) 2025 Lumen Labs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lumenlabs/lumen-tui/internal/storage"
)

var sessionsSearch string

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List stored conversations",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStorage()
		if err != nil {
			return err
		}
		defer db.Close()

		var metas []storage.Meta
		if sessionsSearch != "" {
			metas, err = db.SearchConversations(cmd.Context(), sessionsSearch)
		} else {
			metas, err = db.ListConversations(cmd.Context())
		}
		if err != nil {
			return err
		}
		if len(metas) == 0 {
			fmt.Println("no stored conversations")
			return nil
		}

		for _, m := range metas {
			fmt.Printf("%-40s  %-20s  %2d turns  %s\n",
				m.ID, m.UpdatedAt.Format("2006-01-02 15:04"), m.MessageCount, m.Title)
		}
		return nil
	},
}

var sessionsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openStorage()
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.DeleteConversation(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println("deleted", args[0])
		return nil
	},
}

func openStorage() (*storage.Store, error) {
	path := cfg.Storage.DatabasePath
	if path == "" {
		path = storage.DefaultPath()
	}
	return storage.Open(path)
}

func init() {
	sessionsCmd.Flags().StringVarP(&sessionsSearch, "search", "s", "", "filter by title or preview")
	sessionsCmd.AddCommand(sessionsDeleteCmd)
}
