package notify

import (
	"context"
	"sync"

	nats "github.com/nats-io/nats.go"
)

type natsSubscription struct {
	sub   *nats.Subscription
	chans []chan struct{}
}

// NATSBus implements Bus using a NATS backend.
type NATSBus struct {
	conn *nats.Conn
	mu   sync.Mutex
	subs map[string]*natsSubscription
}

// NewNATSBus returns a new NATSBus using the provided connection.
func NewNATSBus(conn *nats.Conn) *NATSBus {
	return &NATSBus{conn: conn, subs: make(map[string]*natsSubscription)}
}

// Publish implements Bus.Publish.
func (b *NATSBus) Publish(ctx context.Context, key string) error {
	return b.conn.Publish(subject(key), nil)
}

// Subscribe implements Bus.Subscribe. The first subscriber for a key
// opens the underlying NATS subscription; later ones share it.
func (b *NATSBus) Subscribe(ctx context.Context, key string) (chan struct{}, error) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	sub, ok := b.subs[key]
	if !ok {
		nsub, err := b.conn.Subscribe(subject(key), func(*nats.Msg) {
			b.fanout(key)
		})
		if err != nil {
			b.mu.Unlock()
			return nil, err
		}
		sub = &natsSubscription{sub: nsub}
		b.subs[key] = sub
	}
	sub.chans = append(sub.chans, ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		_ = b.Unsubscribe(context.Background(), key, ch)
	}()
	return ch, nil
}

// fanout forwards a message to local subscribers. Sends happen under
// the mutex so Unsubscribe cannot close a channel mid-send.
func (b *NATSBus) fanout(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[key]; ok {
		for _, ch := range sub.chans {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}
}

// Unsubscribe implements Bus.Unsubscribe. The last subscriber for a key
// drops the underlying NATS subscription.
func (b *NATSBus) Unsubscribe(ctx context.Context, key string, ch chan struct{}) error {
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
	var nsub *nats.Subscription
	if len(sub.chans) == 0 {
		nsub = sub.sub
		delete(b.subs, key)
	}
	b.mu.Unlock()
	if nsub != nil {
		return nsub.Unsubscribe()
	}
	return nil
}

// NATS subjects cannot contain whitespace or wildcard characters; lock
// keys built from arbitrary argument values can. Replace them so a key
// always maps to a valid subject.
func subject(key string) string {
	out := []byte(key)
	for i, c := range out {
		switch c {
		case ' ', '\t', '\n', '\r', '*', '>':
			out[i] = '_'
		}
	}
	return "tasklock." + string(out)
}
