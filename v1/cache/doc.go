// Package cache defines the key-value store contract locks coordinate
// through, with in-memory and Redis implementations and a registry of
// named instances. The in-memory store spawns a background goroutine that
// periodically sweeps expired entries; the sweep interval can be
// customized through options when creating the store.
package cache
