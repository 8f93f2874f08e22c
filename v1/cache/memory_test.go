package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestInMemorySetIfAbsent(t *testing.T) {
	s := NewInMemory(WithSweepInterval(0))
	defer s.Close()
	ctx := context.Background()

	ok, err := s.SetIfAbsent(ctx, "k", "v1", time.Second)
	if err != nil || !ok {
		t.Fatalf("first set: ok %v err %v", ok, err)
	}
	ok, err = s.SetIfAbsent(ctx, "k", "v2", time.Second)
	if err != nil || ok {
		t.Fatalf("second set must not win: ok %v err %v", ok, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	ok, err = s.SetIfAbsent(ctx, "k", "v3", time.Second)
	if err != nil || !ok {
		t.Fatalf("set after delete: ok %v err %v", ok, err)
	}
}

func TestInMemoryExpiry(t *testing.T) {
	s := NewInMemory(WithSweepInterval(0))
	defer s.Close()
	ctx := context.Background()

	if ok, _ := s.SetIfAbsent(ctx, "k", "v", 10*time.Millisecond); !ok {
		t.Fatal("first set must win")
	}
	time.Sleep(20 * time.Millisecond)
	if ok, _ := s.SetIfAbsent(ctx, "k", "v2", 0); !ok {
		t.Fatal("expired entry must be reclaimable")
	}
}

func TestInMemorySweeper(t *testing.T) {
	s := NewInMemory(WithSweepInterval(5 * time.Millisecond))
	defer s.Close()
	ctx := context.Background()

	if ok, _ := s.SetIfAbsent(ctx, "k", "v", time.Millisecond); !ok {
		t.Fatal("first set must win")
	}
	time.Sleep(30 * time.Millisecond)
	s.mu.Lock()
	_, present := s.items["k"]
	s.mu.Unlock()
	if present {
		t.Fatal("sweeper did not reclaim expired entry")
	}
}

func TestInMemoryDeleteIfValue(t *testing.T) {
	s := NewInMemory(WithSweepInterval(0))
	defer s.Close()
	ctx := context.Background()

	if ok, _ := s.SetIfAbsent(ctx, "k", "mine", 0); !ok {
		t.Fatal("first set must win")
	}
	if err := s.DeleteIfValue(ctx, "k", "other"); err != nil {
		t.Fatalf("guarded delete: %v", err)
	}
	if ok, _ := s.SetIfAbsent(ctx, "k", "x", 0); ok {
		t.Fatal("mismatched value must not delete the entry")
	}
	if err := s.DeleteIfValue(ctx, "k", "mine"); err != nil {
		t.Fatalf("guarded delete: %v", err)
	}
	if ok, _ := s.SetIfAbsent(ctx, "k", "x", 0); !ok {
		t.Fatal("matching value must delete the entry")
	}
}

func TestInMemoryContextCancelled(t *testing.T) {
	s := NewInMemory(WithSweepInterval(0))
	defer s.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.SetIfAbsent(ctx, "k", "v", 0); err == nil {
		t.Fatal("expected context error")
	}
	if err := s.Delete(ctx, "k"); err == nil {
		t.Fatal("expected context error")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	s := NewInMemory(WithSweepInterval(0))
	defer s.Close()
	r.Register(DefaultName, s)

	got, err := r.Get(DefaultName)
	if err != nil || got != Store(s) {
		t.Fatalf("get: %v %v", got, err)
	}
	if _, err := r.Get("nope"); !errors.Is(err, ErrUnknownCache) {
		t.Fatalf("expected ErrUnknownCache, got %v", err)
	}
}
