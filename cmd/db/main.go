package main

import (
	"context"
	"os"
	"syscall"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/garrettladley/imisrelay/internal/db"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "db",
		Short: "Database management commands",
	}
	rootCmd.AddCommand(newMigrationCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(resetCmd())
	rootCmd.AddCommand(statusCmd())

	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM)); err != nil {
		os.Exit(1)
	}
}

func readConfig() (db.Config, error) {
	cfg, err := env.ParseAsWithOptions[db.Config](env.Options{Prefix: "DATABASE_"})
	if err != nil {
		return db.Config{}, err
	}
	return cfg, cfg.Validate()
}
