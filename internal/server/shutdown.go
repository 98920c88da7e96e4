package server

import (
	"context"
	"time"

	"github.com/garrettladley/imisrelay/internal/xcontext"
)

// ShutdownCoordinator gives long-lived streams a chance to say goodbye
// before the HTTP server stops accepting work.
type ShutdownCoordinator struct {
	baseCtx     context.Context
	cancel      context.CancelCauseFunc
	gracePeriod time.Duration
}

func NewShutdownCoordinator(gracePeriod time.Duration) *ShutdownCoordinator {
	ctx, cancel := context.WithCancelCause(context.Background())
	return &ShutdownCoordinator{
		baseCtx:     ctx,
		cancel:      cancel,
		gracePeriod: gracePeriod,
	}
}

// BaseContext is the parent of every request context. It is cancelled
// with xcontext.ErrShutdown when shutdown begins.
func (sc *ShutdownCoordinator) BaseContext() context.Context {
	return sc.baseCtx
}

// InitiateShutdown cancels the base context and blocks for the grace
// period, or until ctx is done.
func (sc *ShutdownCoordinator) InitiateShutdown(ctx context.Context) {
	sc.cancel(xcontext.ErrShutdown)

	timer := time.NewTimer(sc.gracePeriod)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
