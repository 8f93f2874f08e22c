package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// InMemory is a process-local Store with TTL support. It coordinates
// goroutines sharing one process; cross-process coordination needs a
// shared backend such as Redis.
type InMemory struct {
	mu            sync.Mutex
	items         map[string]entry
	sweepInterval time.Duration
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
}

// InMemoryOption configures an InMemory store.
type InMemoryOption func(*InMemory)

// WithSweepInterval sets the interval at which expired entries are
// removed. A zero or negative duration disables the background sweeper;
// expired entries are then reclaimed lazily on access.
func WithSweepInterval(d time.Duration) InMemoryOption {
	return func(s *InMemory) {
		s.sweepInterval = d
	}
}

// defaultSweepInterval balances timely cleanup with minimal overhead.
const defaultSweepInterval = time.Minute

// NewInMemory returns a new InMemory store.
func NewInMemory(opts ...InMemoryOption) *InMemory {
	ctx, cancel := context.WithCancel(context.Background())
	s := &InMemory{
		items:         make(map[string]entry),
		sweepInterval: defaultSweepInterval,
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sweepInterval > 0 {
		s.wg.Add(1)
		go s.sweeper()
	}
	return s
}

// SetIfAbsent implements Store.SetIfAbsent.
func (s *InMemory) SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.items[key]; ok {
		if e.expiresAt.IsZero() || now.Before(e.expiresAt) {
			return false, nil
		}
		// expired entry, reclaim in place
	}
	var exp time.Time
	if ttl > 0 {
		exp = now.Add(ttl)
	}
	s.items[key] = entry{value: value, expiresAt: exp}
	return true, nil
}

// Delete implements Store.Delete.
func (s *InMemory) Delete(ctx context.Context, key string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// DeleteIfValue implements GuardedDeleter.
func (s *InMemory) DeleteIfValue(ctx context.Context, key, value string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	s.mu.Lock()
	if e, ok := s.items[key]; ok && e.value == value {
		delete(s.items, key)
	}
	s.mu.Unlock()
	return nil
}

func (s *InMemory) sweeper() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			s.mu.Lock()
			for k, e := range s.items {
				if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
					delete(s.items, k)
				}
			}
			s.mu.Unlock()
		case <-s.ctx.Done():
			return
		}
	}
}

// Close terminates the background sweeper and clears the store.
func (s *InMemory) Close() {
	s.cancel()
	s.wg.Wait()
	s.mu.Lock()
	s.items = make(map[string]entry)
	s.mu.Unlock()
}
