package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Store is the contract a cache backend must satisfy to coordinate locks.
// SetIfAbsent atomically stores the value under key with the given TTL
// only when the key does not exist, reporting whether the write happened.
// Delete removes the key; deleting an absent or expired key is not an
// error.
type Store interface {
	SetIfAbsent(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
}

// GuardedDeleter is an optional Store capability: delete the key only
// when it still holds the given value. Backends supporting it prevent a
// holder whose entry already expired from removing a successor's entry.
type GuardedDeleter interface {
	DeleteIfValue(ctx context.Context, key, value string) error
}

// DefaultName is the registry name used when lock options do not select
// a cache explicitly.
const DefaultName = "default"

// ErrUnknownCache is returned when lock options reference a cache name
// that was never registered.
var ErrUnknownCache = errors.New("cache: unknown cache name")

// Registry holds named Store instances so wrapped functions can select
// which cache coordinates them. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	stores map[string]Store
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{stores: make(map[string]Store)}
}

// Single returns a Registry holding s under DefaultName.
func Single(s Store) *Registry {
	r := NewRegistry()
	r.Register(DefaultName, s)
	return r
}

// Register adds or replaces the store under the given name.
func (r *Registry) Register(name string, s Store) {
	r.mu.Lock()
	r.stores[name] = s
	r.mu.Unlock()
}

// Get returns the store registered under name.
func (r *Registry) Get(name string) (Store, error) {
	r.mu.RLock()
	s, ok := r.stores[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCache, name)
	}
	return s, nil
}
