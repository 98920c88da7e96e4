package notification

import (
	"context"
	"errors"

	"github.com/garrettladley/imisrelay/internal/storage"
)

var ErrInvalidPayload = errors.New("payload is not valid JSON")

type Service interface {
	// Snapshot returns active subscriptions and all stored notifications.
	Snapshot(ctx context.Context) (*storage.Snapshot, error)

	// HasNewData reports whether more notifications are stored than the
	// caller last saw.
	HasNewData(ctx context.Context, lastKnownCount int64) (bool, error)

	// Receive stores a callback payload and publishes it to live listeners.
	// Returns ErrInvalidPayload if payload is not JSON.
	Receive(ctx context.Context, payload []byte) (*storage.Notification, error)

	// Subscribe creates a subscription for live notifications.
	// Returns a channel that receives notifications and an unsubscribe function.
	Subscribe(ctx context.Context) (<-chan storage.Notification, func(), error)
}
