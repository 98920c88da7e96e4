package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/garrettladley/imisrelay/internal/client/sse"
	"github.com/garrettladley/imisrelay/internal/storage"
	"github.com/garrettladley/imisrelay/internal/version"
	"github.com/garrettladley/imisrelay/internal/xslog"
)

type config struct {
	RelayURL string `env:"RELAY_URL" envDefault:"http://localhost:80"`
}

func main() {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[config]()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var (
		history      int
		pollInterval time.Duration
	)

	rootCmd := &cobra.Command{
		Use:     "tail",
		Short:   "Follow notifications received by a running relay",
		Version: version.Get(),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			poller := sse.NewPollClient(cfg.RelayURL)

			if history > 0 {
				if err := printHistory(ctx, cmd, poller, history); err != nil {
					return err
				}
			}

			if pollInterval > 0 {
				return follow(ctx, cmd, poller, pollInterval)
			}

			logger := xslog.NewLoggerFromEnv(os.Stderr)
			client := sse.NewClient(cfg.RelayURL, sse.WithLogger(logger))
			err := client.Connect(ctx, func(n storage.Notification) {
				printNotification(cmd, n)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	rootCmd.Flags().StringVar(&cfg.RelayURL, "url", cfg.RelayURL, "relay base URL")
	rootCmd.Flags().IntVar(&history, "history", 0, "print the N most recent stored notifications first")
	rootCmd.Flags().DurationVar(&pollInterval, "poll", 0, "poll at this interval instead of streaming")

	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM)); err != nil {
		os.Exit(1)
	}
}

func printHistory(ctx context.Context, cmd *cobra.Command, poller *sse.PollClient, n int) error {
	snapshot, err := poller.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch history: %w", err)
	}

	recent := snapshot.Notifications[:min(n, len(snapshot.Notifications))]
	for i := len(recent) - 1; i >= 0; i-- {
		printNotification(cmd, recent[i])
	}
	return nil
}

// follow polls the way the dashboard page does: check the count, then
// refetch and print anything newer than the last id seen.
func follow(ctx context.Context, cmd *cobra.Command, poller *sse.PollClient, interval time.Duration) error {
	snapshot, err := poller.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch data: %w", err)
	}
	count := int64(len(snapshot.Notifications))
	var lastID int64
	if len(snapshot.Notifications) > 0 {
		lastID = snapshot.Notifications[0].ID
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		hasNew, err := poller.HasNewData(ctx, count)
		if err != nil {
			cmd.PrintErrln("poll failed:", err)
			continue
		}
		if !hasNew {
			continue
		}

		snapshot, err := poller.Snapshot(ctx)
		if err != nil {
			cmd.PrintErrln("fetch failed:", err)
			continue
		}
		count = int64(len(snapshot.Notifications))

		for i := len(snapshot.Notifications) - 1; i >= 0; i-- {
			if n := snapshot.Notifications[i]; n.ID > lastID {
				printNotification(cmd, n)
				lastID = n.ID
			}
		}
	}
}

func printNotification(cmd *cobra.Command, n storage.Notification) {
	fmt.Fprintf(cmd.OutOrStdout(), "%s  #%d  %s\n", n.ReceivedAt.Format(time.RFC3339), n.ID, n.Content)
}
