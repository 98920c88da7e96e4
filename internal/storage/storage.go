package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

type Status string

const (
	StatusActive Status = "active"
	StatusOff    Status = "off"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusOff
}

type Notification struct {
	ID         int64     `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	// Content is the serialized JSON payload exactly as stored.
	Content string `json:"content"`
}

type Subscription struct {
	ID          string    `json:"id"`
	Criteria    string    `json:"criteria"`
	Status      Status    `json:"status"`
	OpenIMISURL string    `json:"openimis_url"`
	CreatedAt   time.Time `json:"created_at"`
}

type Snapshot struct {
	Subscriptions []Subscription `json:"subscriptions"`
	Notifications []Notification `json:"notifications"`
}

type UpsertSubscriptionParams struct {
	ID          string
	Criteria    string
	Status      Status
	OpenIMISURL string
}

type Store interface {
	// FetchSnapshot returns active subscriptions (newest first) and every
	// notification (newest first).
	FetchSnapshot(ctx context.Context) (*Snapshot, error)

	CountNotifications(ctx context.Context) (int64, error)

	// InsertNotification appends content with the current timestamp.
	InsertNotification(ctx context.Context, content []byte) (*Notification, error)

	// UpsertSubscription replaces any existing row with the same id,
	// resetting created_at.
	UpsertSubscription(ctx context.Context, params UpsertSubscriptionParams) (*Subscription, error)

	// SetSubscriptionStatus returns ErrNotFound if no row has the id.
	SetSubscriptionStatus(ctx context.Context, id string, status Status) error

	// GetSubscription returns ErrNotFound if no row has the id.
	GetSubscription(ctx context.Context, id string) (*Subscription, error)

	Ping(ctx context.Context) error

	Close() error
}

// Broker fans newly stored notifications out to live listeners.
type Broker interface {
	Publish(ctx context.Context, n Notification) error

	// Subscribe returns a channel that receives published notifications.
	// The returned function should be called to unsubscribe.
	Subscribe(ctx context.Context) (<-chan Notification, func(), error)

	Close() error
}

// Clock lets tests pin timestamps.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }
