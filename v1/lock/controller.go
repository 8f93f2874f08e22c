package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mirkobrombin/go-tasklock/v1/cache"
	"github.com/mirkobrombin/go-tasklock/v1/metrics"
	"github.com/mirkobrombin/go-tasklock/v1/notify"
)

var tracer = otel.Tracer("github.com/mirkobrombin/go-tasklock/v1/lock")

// ErrBusy is returned by a non-blocking acquisition when the lock is
// already held.
var ErrBusy = errors.New("tasklock: lock busy")

// ErrTimeout is returned by a blocking acquisition that exhausted its
// wait budget without obtaining the lock.
var ErrTimeout = errors.New("tasklock: lock wait timed out")

const (
	// DefaultTTL bounds how long a held lock survives if never released.
	DefaultTTL = time.Minute
	// defaultRetryInterval is the pause between attempts in blocking mode.
	defaultRetryInterval = 100 * time.Millisecond
)

// Controller owns the acquisition and release protocol against the
// registered cache stores.
type Controller struct {
	registry     *cache.Registry
	bus          notify.Bus
	retry        time.Duration
	logger       *slog.Logger
	traceEnabled bool
}

// Option configures a Controller.
type Option func(*Controller)

// WithBus lets blocking acquisitions be woken by release events instead
// of waiting out the full retry interval. Optional; the retry ticker is
// always kept as fallback.
func WithBus(b notify.Bus) Option {
	return func(c *Controller) {
		c.bus = b
	}
}

// WithRetryInterval sets the pause between attempts in blocking mode.
func WithRetryInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.retry = d
		}
	}
}

// WithLogger sets the logger used for debug trace events.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithTracing enables OpenTelemetry spans for acquisitions.
func WithTracing() Option {
	return func(c *Controller) {
		c.traceEnabled = true
	}
}

// NewController returns a Controller acquiring locks against the stores
// in reg.
func NewController(reg *cache.Registry, opts ...Option) *Controller {
	c := &Controller{
		registry: reg,
		retry:    defaultRetryInterval,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request describes one acquisition.
type Request struct {
	// Cache selects the registered store; empty means cache.DefaultName.
	Cache string
	// Key is the lock key.
	Key string
	// TTL bounds how long the held lock survives; zero means DefaultTTL.
	TTL time.Duration
	// Blocking selects retry-until-acquired over fail-fast.
	Blocking bool
	// Wait is the blocking-mode wait budget. It is independent from TTL:
	// TTL bounds how long a held lock survives, Wait bounds how long the
	// caller waits to obtain it. Zero means the budget equals the TTL.
	Wait time.Duration
	// Debug emits trace events for attempts, results and release.
	Debug bool
	// Call tags the debug trace events of one invocation so interleaved
	// calls can be told apart in the log stream. Optional.
	Call string
}

// Handle represents an acquired lock. It is released exactly once
// through Controller.Release; further releases are no-ops.
type Handle struct {
	Key        string
	AcquiredAt time.Time

	store    cache.Store
	token    string
	debug    bool
	call     string
	released atomic.Bool
}

// Acquire obtains the lock described by req. It returns ErrBusy when the
// lock is held and req.Blocking is false, and ErrTimeout when blocking
// exceeded the wait budget. The context cancels a blocking wait early.
func (c *Controller) Acquire(ctx context.Context, req Request) (*Handle, error) {
	name := req.Cache
	if name == "" {
		name = cache.DefaultName
	}
	store, err := c.registry.Get(name)
	if err != nil {
		return nil, err
	}
	ttl := req.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	var span trace.Span
	if c.traceEnabled {
		ctx, span = tracer.Start(ctx, "Lock.Acquire",
			trace.WithAttributes(
				attribute.String("tasklock.key", req.Key),
				attribute.String("tasklock.cache", name),
				attribute.Bool("tasklock.blocking", req.Blocking),
			))
		defer span.End()
	}

	token := uuid.NewString()
	h, err := c.acquire(ctx, store, req, token, ttl)
	if span != nil {
		if err != nil {
			span.SetAttributes(attribute.String("tasklock.result", "failed"))
			span.RecordError(err)
		} else {
			span.SetAttributes(attribute.String("tasklock.result", "acquired"))
		}
	}
	return h, err
}

func (c *Controller) acquire(ctx context.Context, store cache.Store, req Request, token string, ttl time.Duration) (*Handle, error) {
	ok, err := store.SetIfAbsent(ctx, req.Key, token, ttl)
	if err != nil {
		return nil, fmt.Errorf("tasklock: acquire %q: %w", req.Key, err)
	}
	if ok {
		if req.Debug {
			c.logger.Debug("tasklock: acquired", "key", req.Key, "ttl", ttl, "call", req.Call)
		}
		metrics.AcquiredCounter.Inc()
		return c.newHandle(store, req, token), nil
	}
	if !req.Blocking {
		if req.Debug {
			c.logger.Debug("tasklock: busy", "key", req.Key, "call", req.Call)
		}
		metrics.BusyCounter.Inc()
		return nil, fmt.Errorf("%w: %s", ErrBusy, req.Key)
	}
	return c.acquireBlocking(ctx, store, req, token, ttl)
}

func (c *Controller) acquireBlocking(ctx context.Context, store cache.Store, req Request, token string, ttl time.Duration) (*Handle, error) {
	wait := req.Wait
	if wait <= 0 {
		wait = ttl
	}
	start := time.Now()
	deadline := time.NewTimer(wait)
	defer deadline.Stop()
	ticker := time.NewTicker(c.retry)
	defer ticker.Stop()

	var wake chan struct{}
	if c.bus != nil {
		subCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		ch, err := c.bus.Subscribe(subCtx, "unlock:"+req.Key)
		if err == nil {
			wake = ch
		}
		// Subscription failure just degrades to plain polling.
	}

	for {
		if req.Debug {
			c.logger.Debug("tasklock: waiting", "key", req.Key, "elapsed", time.Since(start), "call", req.Call)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			if req.Debug {
				c.logger.Debug("tasklock: wait budget exceeded", "key", req.Key, "wait", wait, "call", req.Call)
			}
			metrics.TimeoutCounter.Inc()
			return nil, fmt.Errorf("%w: %s after %v", ErrTimeout, req.Key, wait)
		case <-ticker.C:
		case <-wake:
		}
		ok, err := store.SetIfAbsent(ctx, req.Key, token, ttl)
		if err != nil {
			return nil, fmt.Errorf("tasklock: acquire %q: %w", req.Key, err)
		}
		if ok {
			if req.Debug {
				c.logger.Debug("tasklock: acquired after wait", "key", req.Key, "waited", time.Since(start), "call", req.Call)
			}
			metrics.AcquiredCounter.Inc()
			metrics.WaitHist.Observe(time.Since(start).Seconds())
			return c.newHandle(store, req, token), nil
		}
	}
}

func (c *Controller) newHandle(store cache.Store, req Request, token string) *Handle {
	return &Handle{
		Key:        req.Key,
		AcquiredAt: time.Now(),
		store:      store,
		token:      token,
		debug:      req.Debug,
		call:       req.Call,
	}
}

// Release frees the lock held by h and wakes blocked acquirers. It is
// idempotent: releasing a nil handle, releasing twice, or releasing
// after the entry already expired is a no-op.
func (c *Controller) Release(ctx context.Context, h *Handle) error {
	if h == nil || !h.released.CompareAndSwap(false, true) {
		return nil
	}
	var err error
	if gd, ok := h.store.(cache.GuardedDeleter); ok {
		err = gd.DeleteIfValue(ctx, h.Key, h.token)
	} else {
		err = h.store.Delete(ctx, h.Key)
	}
	if err != nil {
		// Keep the handle armed so the caller can retry; otherwise a
		// transient store error leaves the lock held until its TTL.
		h.released.Store(false)
		return fmt.Errorf("tasklock: release %q: %w", h.Key, err)
	}
	metrics.ReleasedCounter.Inc()
	if h.debug {
		c.logger.Debug("tasklock: released", "key", h.Key, "held", time.Since(h.AcquiredAt), "call", h.call)
	}
	if c.bus != nil {
		_ = c.bus.Publish(ctx, "unlock:"+h.Key)
	}
	return nil
}
