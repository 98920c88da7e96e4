package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

var _ Store = (*SQLiteStore)(nil)

type SQLiteStore struct {
	db  *sql.DB
	now Clock
}

type SQLiteOption func(*SQLiteStore)

func WithSQLiteClock(now Clock) SQLiteOption {
	return func(s *SQLiteStore) { s.now = now }
}

// NewSQLiteStore wraps an already migrated database.
func NewSQLiteStore(db *sql.DB, opts ...SQLiteOption) *SQLiteStore {
	s := &SQLiteStore{db: db, now: systemClock}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SQLiteStore) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	var snapshot Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		subs, err := s.activeSubscriptions(gctx)
		if err != nil {
			return err
		}
		snapshot.Subscriptions = subs
		return nil
	})
	g.Go(func() error {
		notifications, err := s.notifications(gctx)
		if err != nil {
			return err
		}
		snapshot.Notifications = notifications
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &snapshot, nil
}

func (s *SQLiteStore) activeSubscriptions(ctx context.Context) ([]Subscription, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, criteria, status, openimis_url, created_at
		FROM subscriptions
		WHERE status = ?
		ORDER BY created_at DESC`, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("query active subscriptions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	subs := make([]Subscription, 0)
	for rows.Next() {
		var sub Subscription
		if err := rows.Scan(&sub.ID, &sub.Criteria, &sub.Status, &sub.OpenIMISURL, &sub.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscriptions: %w", err)
	}
	return subs, nil
}

func (s *SQLiteStore) notifications(ctx context.Context) ([]Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, received_at, content
		FROM notifications
		ORDER BY received_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer func() { _ = rows.Close() }()

	notifications := make([]Notification, 0)
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.ReceivedAt, &n.Content); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return notifications, nil
}

func (s *SQLiteStore) CountNotifications(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(id) FROM notifications").Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

func (s *SQLiteStore) InsertNotification(ctx context.Context, content []byte) (*Notification, error) {
	receivedAt := s.now()

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO notifications (received_at, content) VALUES (?, ?)",
		receivedAt, string(content),
	)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("read notification id: %w", err)
	}

	return &Notification{
		ID:         id,
		ReceivedAt: receivedAt,
		Content:    string(content),
	}, nil
}

func (s *SQLiteStore) UpsertSubscription(ctx context.Context, params UpsertSubscriptionParams) (*Subscription, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO subscriptions (id, criteria, status, openimis_url, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		params.ID, params.Criteria, params.Status, params.OpenIMISURL, s.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}

	return s.GetSubscription(ctx, params.ID)
}

func (s *SQLiteStore) SetSubscriptionStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecContext(ctx, "UPDATE subscriptions SET status = ? WHERE id = ?", status, id)
	if err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	var sub Subscription
	err := s.db.QueryRowContext(ctx, `
		SELECT id, criteria, status, openimis_url, created_at
		FROM subscriptions
		WHERE id = ?`, id,
	).Scan(&sub.ID, &sub.Criteria, &sub.Status, &sub.OpenIMISURL, &sub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
