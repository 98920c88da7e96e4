package storage

import (
	"context"
	"fmt"

	go_json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

const notificationsLiveChannel = "notifications:live"

var _ Broker = (*RedisBroker)(nil)

type RedisConfig struct {
	Client *redis.Client
}

// RedisBroker fans notifications out across every relay process sharing
// the same Redis.
type RedisBroker struct {
	client *redis.Client
}

func NewRedisBroker(cfg RedisConfig) *RedisBroker {
	return &RedisBroker{client: cfg.Client}
}

func (b *RedisBroker) Publish(ctx context.Context, n Notification) error {
	data, err := go_json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	if err := b.client.Publish(ctx, notificationsLiveChannel, string(data)).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}

	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context) (<-chan Notification, func(), error) {
	pubsub := b.client.Subscribe(ctx, notificationsLiveChannel)

	_, err := pubsub.Receive(ctx)
	if err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	notifCh := make(chan Notification)

	go func() {
		defer close(notifCh)
		ch := pubsub.Channel()

		for msg := range ch {
			var n Notification
			if err := go_json.Unmarshal([]byte(msg.Payload), &n); err != nil {
				continue
			}

			select {
			case notifCh <- n:
			case <-ctx.Done():
				return
			}
		}
	}()

	unsubscribe := func() {
		_ = pubsub.Close()
	}

	return notifCh, unsubscribe, nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}
