package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/garrettladley/imisrelay/internal/client/fhir"
	"github.com/garrettladley/imisrelay/internal/config"
	"github.com/garrettladley/imisrelay/internal/db"
	xredis "github.com/garrettladley/imisrelay/internal/redis"
	"github.com/garrettladley/imisrelay/internal/server"
	"github.com/garrettladley/imisrelay/internal/service/notification"
	"github.com/garrettladley/imisrelay/internal/service/subscription"
	"github.com/garrettladley/imisrelay/internal/storage"
	"github.com/garrettladley/imisrelay/internal/xslog"
)

const (
	keyPort        = "port"
	keyEnv         = "env"
	keyGracePeriod = "grace_period"

	sseShutdownGracePeriod = 2 * time.Second
)

func main() {
	_ = godotenv.Load()

	logger := xslog.NewLoggerFromEnv(os.Stdout)
	slog.SetDefault(logger)

	ctx := context.Background()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", xslog.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := config.Read()
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	logger.InfoContext(ctx, "opening database", xslog.Driver(string(cfg.Database.Driver)))
	store, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close database", xslog.Error(err))
		}
	}()

	broker, err := initBroker(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize live broker: %w", err)
	}
	defer func() {
		if err := broker.Close(); err != nil {
			logger.ErrorContext(ctx, "failed to close broker", xslog.Error(err))
		}
	}()

	// Services
	notificationService := notification.NewStore(store, broker)
	subscriptionService := subscription.NewManager(store,
		cfg.OpenIMIS.Credentials(),
		fhir.WithTimeout(cfg.OpenIMIS.Timeout),
	)

	handler := server.NewHandler(logger, server.Deps{
		Store:         store,
		Notifications: notificationService,
		Subscriptions: subscriptionService,
	})

	shutdownCoordinator := server.NewShutdownCoordinator(sseShutdownGracePeriod)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      0, // disabled for SSE; use SetWriteDeadline per-request
		IdleTimeout:       60 * time.Second,
		BaseContext: func(_ net.Listener) context.Context {
			return shutdownCoordinator.BaseContext()
		},
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting server",
			xslog.Version(),
			slog.String(keyPort, cfg.Port),
			slog.String(keyEnv, string(cfg.Env)))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-done:
		logger.InfoContext(ctx, "shutdown signal received, initiating graceful shutdown")
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	// cancel base context and wait grace period for SSE connections to close
	shutdownCoordinator.InitiateShutdown(ctx)
	logger.InfoContext(ctx, "SSE grace period complete, shutting down server",
		slog.Duration(keyGracePeriod, sseShutdownGracePeriod))

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.InfoContext(ctx, "server stopped")
	return nil
}

// initBroker fans out across processes through Redis when configured and
// falls back to an in-process broker otherwise.
func initBroker(ctx context.Context, cfg config.Config, logger *slog.Logger) (storage.Broker, error) {
	if !cfg.Redis.Enabled() {
		logger.InfoContext(ctx, "initializing in-memory live broker")
		return storage.NewMemoryBroker(), nil
	}

	logger.InfoContext(ctx, "initializing Redis live broker")
	client, err := xredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	return storage.NewRedisBroker(storage.RedisConfig{Client: client}), nil
}
