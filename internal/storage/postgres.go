package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

var _ Store = (*PostgresStore)(nil)

type PostgresStore struct {
	pool *pgxpool.Pool
	now  Clock
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, now: systemClock}
}

func (s *PostgresStore) FetchSnapshot(ctx context.Context) (*Snapshot, error) {
	var snapshot Snapshot

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.pool.Query(gctx, `
			SELECT id, criteria, status, openimis_url, created_at
			FROM subscriptions
			WHERE status = $1
			ORDER BY created_at DESC`, string(StatusActive))
		if err != nil {
			return fmt.Errorf("query active subscriptions: %w", err)
		}
		subs, err := pgx.CollectRows(rows, scanSubscription)
		if err != nil {
			return fmt.Errorf("collect subscriptions: %w", err)
		}
		snapshot.Subscriptions = subs
		return nil
	})
	g.Go(func() error {
		rows, err := s.pool.Query(gctx, `
			SELECT id, received_at, content
			FROM notifications
			ORDER BY received_at DESC, id DESC`)
		if err != nil {
			return fmt.Errorf("query notifications: %w", err)
		}
		notifications, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Notification, error) {
			var n Notification
			err := row.Scan(&n.ID, &n.ReceivedAt, &n.Content)
			return n, err
		})
		if err != nil {
			return fmt.Errorf("collect notifications: %w", err)
		}
		snapshot.Notifications = notifications
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if snapshot.Subscriptions == nil {
		snapshot.Subscriptions = []Subscription{}
	}
	if snapshot.Notifications == nil {
		snapshot.Notifications = []Notification{}
	}
	return &snapshot, nil
}

func (s *PostgresStore) CountNotifications(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(id) FROM notifications").Scan(&count); err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) InsertNotification(ctx context.Context, content []byte) (*Notification, error) {
	n := Notification{
		ReceivedAt: s.now(),
		Content:    string(content),
	}

	err := s.pool.QueryRow(ctx,
		"INSERT INTO notifications (received_at, content) VALUES ($1, $2) RETURNING id",
		n.ReceivedAt, n.Content,
	).Scan(&n.ID)
	if err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	return &n, nil
}

func (s *PostgresStore) UpsertSubscription(ctx context.Context, params UpsertSubscriptionParams) (*Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		INSERT INTO subscriptions (id, criteria, status, openimis_url, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			criteria = EXCLUDED.criteria,
			status = EXCLUDED.status,
			openimis_url = EXCLUDED.openimis_url,
			created_at = EXCLUDED.created_at
		RETURNING id, criteria, status, openimis_url, created_at`,
		params.ID, params.Criteria, string(params.Status), params.OpenIMISURL, s.now(),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}

	sub, err := pgx.CollectExactlyOneRow(rows, scanSubscription)
	if err != nil {
		return nil, fmt.Errorf("upsert subscription: %w", err)
	}
	return &sub, nil
}

func (s *PostgresStore) SetSubscriptionStatus(ctx context.Context, id string, status Status) error {
	tag, err := s.pool.Exec(ctx, "UPDATE subscriptions SET status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return fmt.Errorf("update subscription status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) GetSubscription(ctx context.Context, id string) (*Subscription, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, criteria, status, openimis_url, created_at
		FROM subscriptions
		WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	sub, err := pgx.CollectExactlyOneRow(rows, scanSubscription)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}
	return &sub, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanSubscription(row pgx.CollectableRow) (Subscription, error) {
	var (
		sub    Subscription
		status string
	)
	if err := row.Scan(&sub.ID, &sub.Criteria, &status, &sub.OpenIMISURL, &sub.CreatedAt); err != nil {
		return Subscription{}, err
	}
	sub.Status = Status(status)
	return sub, nil
}
