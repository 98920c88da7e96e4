package notification

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	go_json "github.com/goccy/go-json"

	"github.com/garrettladley/imisrelay/internal/storage"
	"github.com/garrettladley/imisrelay/internal/xslog"
)

type Store struct {
	store  storage.Store
	broker storage.Broker
}

var _ Service = (*Store)(nil)

func NewStore(store storage.Store, broker storage.Broker) *Store {
	return &Store{store: store, broker: broker}
}

func (s *Store) Snapshot(ctx context.Context) (*storage.Snapshot, error) {
	snapshot, err := s.store.FetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}

	if snapshot.Subscriptions == nil {
		snapshot.Subscriptions = []storage.Subscription{}
	}
	if snapshot.Notifications == nil {
		snapshot.Notifications = []storage.Notification{}
	}

	return snapshot, nil
}

func (s *Store) HasNewData(ctx context.Context, lastKnownCount int64) (bool, error) {
	count, err := s.store.CountNotifications(ctx)
	if err != nil {
		return false, err
	}

	xslog.FromContext(ctx).DebugContext(ctx, "checked for updates",
		xslog.TotalCount(count),
		slog.Int64("last_known", lastKnownCount),
	)

	return count > lastKnownCount, nil
}

func (s *Store) Receive(ctx context.Context, payload []byte) (*storage.Notification, error) {
	if !go_json.Valid(payload) || !utf8.Valid(payload) {
		return nil, ErrInvalidPayload
	}

	var buf bytes.Buffer
	if err := go_json.Compact(&buf, payload); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	n, err := s.store.InsertNotification(ctx, buf.Bytes())
	if err != nil {
		return nil, err
	}

	logger := xslog.FromContext(ctx)
	logger.InfoContext(ctx, "stored notification",
		xslog.NotificationID(n.ID),
		xslog.ResourceType(resourceType(payload)),
		xslog.Bytes(buf.Len()),
	)

	if s.broker != nil {
		if err := s.broker.Publish(ctx, *n); err != nil {
			logger.WarnContext(ctx, "failed to publish notification",
				xslog.Error(err),
				xslog.NotificationID(n.ID),
			)
		}
	}

	return n, nil
}

func (s *Store) Subscribe(ctx context.Context) (<-chan storage.Notification, func(), error) {
	if s.broker == nil {
		return nil, nil, fmt.Errorf("live notifications unavailable")
	}
	return s.broker.Subscribe(ctx)
}

// resourceType extracts the FHIR resourceType for logging. Payloads that are
// not objects yield an empty string.
func resourceType(payload []byte) string {
	var resource struct {
		ResourceType string `json:"resourceType"`
	}
	if err := go_json.Unmarshal(payload, &resource); err != nil {
		return ""
	}
	return resource.ResourceType
}
