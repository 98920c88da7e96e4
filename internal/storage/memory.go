package storage

import (
	"context"
	"sync"
)

// memoryBufferSize bounds how far a slow listener may lag before
// notifications are dropped for it.
const memoryBufferSize = 16

var _ Broker = (*MemoryBroker)(nil)

// MemoryBroker fans notifications out within a single process.
type MemoryBroker struct {
	mu     sync.RWMutex
	next   int
	subs   map[int]chan Notification
	closed bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[int]chan Notification)}
}

func (b *MemoryBroker) Publish(_ context.Context, n Notification) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- n:
		default:
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(_ context.Context) (<-chan Notification, func(), error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Notification, memoryBufferSize)
	if b.closed {
		close(ch)
		return ch, func() {}, nil
	}

	id := b.next
	b.next++
	b.subs[id] = ch

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if sub, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(sub)
			}
		})
	}

	return ch, unsubscribe, nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
