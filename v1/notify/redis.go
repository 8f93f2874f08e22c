package notify

import (
	"context"
	"sync"

	redis "github.com/redis/go-redis/v9"
)

type redisSubscription struct {
	pubsub *redis.PubSub
	chans  []chan struct{}
}

// RedisBus implements Bus over Redis pub/sub, letting lock controllers
// on different nodes wake each other on release.
type RedisBus struct {
	client *redis.Client
	mu     sync.Mutex
	subs   map[string]*redisSubscription
}

// NewRedisBus returns a new RedisBus using the provided client.
func NewRedisBus(client *redis.Client) *RedisBus {
	return &RedisBus{client: client, subs: make(map[string]*redisSubscription)}
}

// Publish implements Bus.Publish.
func (b *RedisBus) Publish(ctx context.Context, key string) error {
	return b.client.Publish(ctx, key, "1").Err()
}

// Subscribe implements Bus.Subscribe. The first subscriber for a key
// opens the underlying Redis subscription; later ones share it.
func (b *RedisBus) Subscribe(ctx context.Context, key string) (chan struct{}, error) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	sub, ok := b.subs[key]
	if !ok {
		pubsub := b.client.Subscribe(context.Background(), key)
		sub = &redisSubscription{pubsub: pubsub}
		b.subs[key] = sub
		go b.dispatch(key, pubsub)
	}
	sub.chans = append(sub.chans, ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = b.Unsubscribe(context.Background(), key, ch)
	}()
	return ch, nil
}

// dispatch fans messages out to local subscribers. Sends happen under
// the mutex so Unsubscribe cannot close a channel mid-send.
func (b *RedisBus) dispatch(key string, pubsub *redis.PubSub) {
	for range pubsub.Channel() {
		b.mu.Lock()
		if sub, ok := b.subs[key]; ok {
			for _, ch := range sub.chans {
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
		b.mu.Unlock()
	}
}

// Unsubscribe implements Bus.Unsubscribe. The last subscriber for a key
// closes the underlying Redis subscription.
func (b *RedisBus) Unsubscribe(ctx context.Context, key string, ch chan struct{}) error {
	b.mu.Lock()
	sub, ok := b.subs[key]
	if !ok {
		b.mu.Unlock()
		return nil
	}
	for i, c := range sub.chans {
		if c == ch {
			sub.chans[i] = sub.chans[len(sub.chans)-1]
			sub.chans = sub.chans[:len(sub.chans)-1]
			close(c)
			break
		}
	}
	var pubsub *redis.PubSub
	if len(sub.chans) == 0 {
		pubsub = sub.pubsub
		delete(b.subs, key)
	}
	b.mu.Unlock()
	if pubsub != nil {
		return pubsub.Close()
	}
	return nil
}
