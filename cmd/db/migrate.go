package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garrettladley/imisrelay/internal/db"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig()
			if err != nil {
				return err
			}

			store, err := db.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() {
				_ = store.Close()
			}()

			fmt.Println("Migrations applied successfully")
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop and recreate the notifications and subscriptions tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := readConfig()
			if err != nil {
				return err
			}

			if err := db.Reset(cmd.Context(), cfg); err != nil {
				return fmt.Errorf("failed to reset database: %w", err)
			}

			fmt.Println("Initialized the database.")
			return nil
		},
	}
}
