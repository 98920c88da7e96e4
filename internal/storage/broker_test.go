package storage

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
)

func receive(t *testing.T, ch <-chan Notification) Notification {
	t.Helper()

	select {
	case n, ok := <-ch:
		if !ok {
			t.Fatal("channel closed before notification arrived")
		}
		return n
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification")
	}
	return Notification{}
}

func TestMemoryBrokerFanOut(t *testing.T) {
	t.Parallel()

	b := NewMemoryBroker()
	t.Cleanup(func() { _ = b.Close() })

	first, unsubFirst, err := b.Subscribe(t.Context())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubFirst()
	second, unsubSecond, err := b.Subscribe(t.Context())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubSecond()

	want := Notification{ID: 1, ReceivedAt: time.Unix(0, 0).UTC(), Content: `{"a":1}`}
	if err := b.Publish(t.Context(), want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	for _, ch := range []<-chan Notification{first, second} {
		if diff := cmp.Diff(want, receive(t, ch)); diff != "" {
			t.Errorf("notification mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestMemoryBrokerUnsubscribe(t *testing.T) {
	t.Parallel()

	b := NewMemoryBroker()
	t.Cleanup(func() { _ = b.Close() })

	ch, unsubscribe, err := b.Subscribe(t.Context())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	unsubscribe()
	unsubscribe()

	if _, ok := <-ch; ok {
		t.Error("channel still open after unsubscribe")
	}
	if err := b.Publish(t.Context(), Notification{ID: 1}); err != nil {
		t.Errorf("Publish() after unsubscribe error = %v", err)
	}
}

func TestMemoryBrokerDropsWhenFull(t *testing.T) {
	t.Parallel()

	b := NewMemoryBroker()
	t.Cleanup(func() { _ = b.Close() })

	ch, unsubscribe, err := b.Subscribe(t.Context())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubscribe()

	for i := range memoryBufferSize + 5 {
		if err := b.Publish(t.Context(), Notification{ID: int64(i)}); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	if got := len(ch); got != memoryBufferSize {
		t.Errorf("buffered = %d, want %d", got, memoryBufferSize)
	}
}

func TestMemoryBrokerClose(t *testing.T) {
	t.Parallel()

	b := NewMemoryBroker()

	ch, unsubscribe, err := b.Subscribe(t.Context())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := b.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, ok := <-ch; ok {
		t.Error("channel still open after Close")
	}
	unsubscribe()

	late, _, err := b.Subscribe(t.Context())
	if err != nil {
		t.Fatalf("Subscribe() after Close error = %v", err)
	}
	if _, ok := <-late; ok {
		t.Error("subscription after Close is open")
	}
}

func TestRedisBroker(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b := NewRedisBroker(RedisConfig{Client: client})
	t.Cleanup(func() { _ = b.Close() })

	ch, unsubscribe, err := b.Subscribe(t.Context())
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer unsubscribe()

	want := Notification{ID: 42, ReceivedAt: time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC), Content: `{"resourceType":"Patient"}`}
	if err := b.Publish(t.Context(), want); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if diff := cmp.Diff(want, receive(t, ch)); diff != "" {
		t.Errorf("notification mismatch (-want +got):\n%s", diff)
	}
}

func TestRedisBrokerPublishFailure(t *testing.T) {
	t.Parallel()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	b := NewRedisBroker(RedisConfig{Client: client})
	t.Cleanup(func() { _ = b.Close() })

	mr.Close()

	if err := b.Publish(t.Context(), Notification{ID: 1}); err == nil {
		t.Error("Publish() error = nil, want connection error")
	}
}
