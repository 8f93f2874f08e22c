// Package notify provides a small pub/sub mechanism used to wake blocked
// lock acquisitions when a key is released. Delivery is best effort:
// blocked acquirers always keep a retry ticker as fallback, so lost
// events cost latency, never correctness.
package notify

import (
	"context"
	"sync"
)

// Bus propagates release events across lock controllers, possibly on
// different nodes.
type Bus interface {
	Publish(ctx context.Context, key string) error
	Subscribe(ctx context.Context, key string) (chan struct{}, error)
	Unsubscribe(ctx context.Context, key string, ch chan struct{}) error
}

// InMemoryBus is a local implementation of Bus, mainly for tests and
// single-process deployments.
type InMemoryBus struct {
	mu   sync.Mutex
	subs map[string][]chan struct{}
}

// NewInMemoryBus returns a new InMemoryBus.
func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{subs: make(map[string][]chan struct{})}
}

// Publish implements Bus.Publish. Sends happen under the mutex so a
// concurrent Unsubscribe cannot close a channel mid-send; they are
// non-blocking, so holding the lock is cheap.
func (b *InMemoryBus) Publish(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs[key] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
	return nil
}

// Subscribe implements Bus.Subscribe. The subscription is removed when
// ctx is cancelled.
func (b *InMemoryBus) Subscribe(ctx context.Context, key string) (chan struct{}, error) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	b.subs[key] = append(b.subs[key], ch)
	b.mu.Unlock()
	go func() {
		<-ctx.Done()
		_ = b.Unsubscribe(context.Background(), key, ch)
	}()
	return ch, nil
}

// Unsubscribe implements Bus.Unsubscribe.
func (b *InMemoryBus) Unsubscribe(ctx context.Context, key string, ch chan struct{}) error {
	b.mu.Lock()
	subs := b.subs[key]
	for i, c := range subs {
		if c == ch {
			subs[i] = subs[len(subs)-1]
			subs = subs[:len(subs)-1]
			b.subs[key] = subs
			close(c)
			break
		}
	}
	if len(subs) == 0 {
		delete(b.subs, key)
	}
	b.mu.Unlock()
	return nil
}
