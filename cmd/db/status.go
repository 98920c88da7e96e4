package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/garrettladley/imisrelay/internal/db"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show stored notification and subscription counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			cfg, err := readConfig()
			if err != nil {
				return err
			}

			store, err := db.Open(ctx, cfg)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() {
				_ = store.Close()
			}()

			snapshot, err := store.FetchSnapshot(ctx)
			if err != nil {
				return fmt.Errorf("failed to read database: %w", err)
			}

			fmt.Printf("Driver:               %s\n", cfg.Driver)
			fmt.Printf("Notifications:        %d\n", len(snapshot.Notifications))
			fmt.Printf("Active subscriptions: %d\n", len(snapshot.Subscriptions))
			for _, sub := range snapshot.Subscriptions {
				fmt.Printf("  %s  %s  %s\n", sub.ID, sub.Criteria, sub.OpenIMISURL)
			}
			if len(snapshot.Notifications) > 0 {
				fmt.Printf("Last received:        %s\n", snapshot.Notifications[0].ReceivedAt.Format(time.RFC3339))
			}

			return nil
		},
	}
}
