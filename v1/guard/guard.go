// Package guard wraps task functions with a locking envelope: bind the
// call's arguments, resolve the lock key, acquire the lock, run the
// function, release on every exit path. The wrapped function's return
// value and error pass through unchanged; the guard only adds lock.ErrBusy
// and lock.ErrTimeout as possible outcomes, in which case the function is
// never invoked.
package guard

import (
	"context"
	"log/slog"
	"time"

	uuid "github.com/hashicorp/go-uuid"

	"github.com/mirkobrombin/go-tasklock/v1/call"
	"github.com/mirkobrombin/go-tasklock/v1/keyname"
	"github.com/mirkobrombin/go-tasklock/v1/lock"
)

// Options is the lock configuration attached to a wrapped function. It is
// immutable once the wrapping is established.
type Options struct {
	// Name declares how the lock key is derived; the zero value
	// auto-generates it from the argument values.
	Name keyname.Spec
	// TTL bounds how long the held lock survives; zero means
	// lock.DefaultTTL.
	TTL time.Duration
	// Blocking selects retry-until-acquired over fail-fast.
	Blocking bool
	// Wait is the blocking wait budget; zero means it equals the TTL.
	Wait time.Duration
	// Cache selects the registered store; empty means the default one.
	Cache string
	// Debug emits trace events for name resolution, acquisition and
	// release.
	Debug bool
}

// Func is a task function operating on the bound arguments of one
// invocation.
type Func func(ctx context.Context, b *call.Binding) (any, error)

// Wrapped is a task function enclosed in the locking envelope.
type Wrapped func(ctx context.Context, pos []any, kw ...call.Arg) (any, error)

// Guard builds locking envelopes around task functions.
type Guard struct {
	ctrl   *lock.Controller
	logger *slog.Logger
}

// New returns a Guard acquiring locks through ctrl.
func New(ctrl *lock.Controller) *Guard {
	return &Guard{ctrl: ctrl, logger: slog.Default()}
}

// WithLogger sets the logger used for debug trace events and returns g.
func (g *Guard) WithLogger(l *slog.Logger) *Guard {
	g.logger = l
	return g
}

// Wrap encloses fn in the locking envelope described by opts. Each
// invocation binds its arguments onto sig, resolves the lock key,
// acquires the lock and invokes fn with release deferred, so the lock is
// freed on normal return, on error, and when the call's context is
// cancelled mid-flight.
func (g *Guard) Wrap(sig *call.Signature, opts Options, fn Func) Wrapped {
	return func(ctx context.Context, pos []any, kw ...call.Arg) (any, error) {
		b, err := sig.Bind(pos, kw...)
		if err != nil {
			return nil, err
		}
		key := keyname.Resolve(sig.Name(), opts.Name, b)
		var callID string
		if opts.Debug {
			callID = invocationID()
			g.logger.Debug("tasklock: name resolved", "fn", sig.Name(), "key", key, "call", callID)
		}
		return g.run(ctx, key, opts, callID, func(ctx context.Context) (any, error) {
			return fn(ctx, b)
		})
	}
}

// Do runs fn under a lock on an explicit key, without argument binding or
// name resolution. It is the scoped counterpart of Wrap for callers that
// already know their key.
func (g *Guard) Do(ctx context.Context, key string, opts Options, fn func(context.Context) (any, error)) (any, error) {
	var callID string
	if opts.Debug {
		callID = invocationID()
	}
	return g.run(ctx, key, opts, callID, fn)
}

func (g *Guard) run(ctx context.Context, key string, opts Options, callID string, fn func(context.Context) (any, error)) (any, error) {
	h, err := g.ctrl.Acquire(ctx, lock.Request{
		Cache:    opts.Cache,
		Key:      key,
		TTL:      opts.TTL,
		Blocking: opts.Blocking,
		Wait:     opts.Wait,
		Debug:    opts.Debug,
		Call:     callID,
	})
	if err != nil {
		return nil, err
	}
	// Release must fire even when ctx was cancelled during fn.
	defer func() {
		if rerr := g.ctrl.Release(context.WithoutCancel(ctx), h); rerr != nil {
			g.logger.Warn("tasklock: release failed, lock lingers until its ttl",
				"key", key, "call", callID, "error", rerr)
		}
	}()
	return fn(ctx)
}

// invocationID tags debug events of one call so interleaved invocations
// can be told apart in the log.
func invocationID() string {
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "unknown"
	}
	return id
}
