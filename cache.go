package larder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"
)

// FetchFunc produces the value for a key on a cache miss: a single
// asynchronous attempt that yields a value or fails. The cache may call
// it zero, one, or (under concurrent misses for the same key) several
// times, so it must be safe to repeat. Retry and timeout policy belong
// inside the function (typically via ctx), never to the cache.
type FetchFunc[V any] func(ctx context.Context) (V, error)

// Stats is a diagnostic snapshot of the fast tier. It is not part of the
// correctness contract: durable-only records are not counted.
type Stats struct {
	Keys []string
	Size int
}

// Cache is a read-through cache over a two-tier Store: values are fetched
// on miss, expired lazily by TTL, served stale when a fetch fails, and
// swept in the background.
//
// Construct one Cache per process and share it; see New.
type Cache[V any] struct {
	store      *Store[V]
	logger     *slog.Logger
	metrics    Metrics
	schedule   cron.Schedule // nil when sweeping on a fixed interval
	done       chan struct{}
	flights    singleflight.Group
	defaultTTL time.Duration
	interval   time.Duration
	mu         sync.Mutex
	closed     bool
}

// New creates a read-through cache over the given durable tier and starts
// the background sweeper. An optional Marshaler customizes durable
// serialization; nil means JSON.
//
// Example:
//
//	c, err := larder.New[Profile](durable.NewMemory(), nil,
//	    larder.WithDefaultTTL(5*time.Minute),
//	    larder.WithSweepInterval(30*time.Second),
//	)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
func New[V any](d Durable, m Marshaler[V], opts ...Option) (*Cache[V], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	store, err := NewStore(d, m, opts...)
	if err != nil {
		return nil, err
	}

	c := &Cache[V]{
		store:      store,
		logger:     o.logger,
		metrics:    o.metrics,
		defaultTTL: o.defaultTTL,
		interval:   o.sweepInterval,
		done:       make(chan struct{}),
	}

	if o.sweepSchedule != "" {
		if o.sweepIntervalSet {
			return nil, errors.New("larder: sweep interval and sweep schedule are mutually exclusive")
		}
		sched, err := parseSweepSchedule(o.sweepSchedule)
		if err != nil {
			return nil, fmt.Errorf("larder: invalid sweep schedule %q: %w", o.sweepSchedule, err)
		}
		c.schedule = sched
		c.interval = 0
	}

	if c.schedule != nil || c.interval > 0 {
		go c.sweeper()
	}

	return c, nil
}

// Get returns the fresh value cached under key. An entry past its TTL is
// lazily evicted from the fast tier and reported as a miss; the durable
// record stays reachable for stale reads.
// Returns ErrNotFound on a miss.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, error) {
	var zero V

	e, err := c.store.Read(ctx, key)
	if err != nil {
		c.metrics.Miss()
		return zero, ErrNotFound
	}

	if e.Expired(time.Now()) {
		c.store.Forget(key)
		c.metrics.Expired()
		c.metrics.Miss()
		return zero, ErrNotFound
	}

	c.metrics.Hit()
	return e.Value, nil
}

// GetOrFetch returns the cached value for key, or fetches, stores, and
// returns it on a miss. fetch is never invoked when a fresh entry exists,
// and is invoked exactly once per miss: no retries, and no deduplication
// of concurrent misses for the same key — each caller fetches
// independently and the last write wins. Use GetOrFetchShared when
// single-flight behavior is wanted.
//
// When fetch fails, the last known value for key is served instead,
// expired or not, from either tier, and a warning is logged. Only when no
// prior value exists is the fetch error returned, unchanged.
//
// A zero ttl uses the cache default; a negative ttl pins the entry so it
// never expires.
func (c *Cache[V]) GetOrFetch(ctx context.Context, key string, fetch FetchFunc[V], ttl time.Duration) (V, error) {
	var zero V

	if c.isClosed() {
		return zero, ErrClosed
	}

	if v, err := c.Get(ctx, key); err == nil {
		return v, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		if stale, readErr := c.store.Read(ctx, key); readErr == nil {
			c.logger.WarnContext(ctx, "serving stale value after fetch failure",
				slog.String("key", key),
				slog.Duration("age", time.Since(stale.StoredAt)),
				slog.Any("error", err),
			)
			c.metrics.Stale()
			return stale.Value, nil
		}
		return zero, err
	}

	c.store.Write(ctx, key, v, c.resolveTTL(ttl))
	return v, nil
}

// Delete removes key from both tiers, for explicit cache busting.
func (c *Cache[V]) Delete(ctx context.Context, key string) error {
	if c.isClosed() {
		return ErrClosed
	}
	c.store.Delete(ctx, key)
	return nil
}

// ClearAll removes every entry from the fast tier and every namespaced
// record from the durable tier.
func (c *Cache[V]) ClearAll(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}
	c.store.ClearAll(ctx)
	return nil
}

// InvalidatePattern deletes every entry whose key contains the given
// substring and reports how many were removed. The scan covers the
// fast-tier key set; each matched key is removed from both tiers. This is
// deliberately substring containment, not a pattern language: a coarse
// tool for busting families of keys that share a naming convention.
func (c *Cache[V]) InvalidatePattern(ctx context.Context, substring string) (int, error) {
	if c.isClosed() {
		return 0, ErrClosed
	}

	var n int
	for _, key := range c.store.Keys() {
		if strings.Contains(key, substring) {
			c.store.Delete(ctx, key)
			n++
		}
	}

	if n > 0 {
		c.logger.DebugContext(ctx, "invalidated entries by pattern",
			slog.String("pattern", substring),
			slog.Int("count", n),
		)
	}
	return n, nil
}

// Sweep evicts every expired fast-tier entry from both tiers and reports
// how many were removed. The background sweeper calls it on the
// configured cadence; it is also safe to call directly.
func (c *Cache[V]) Sweep(ctx context.Context) (int, error) {
	if c.isClosed() {
		return 0, ErrClosed
	}

	now := time.Now()
	var n int
	for _, key := range c.store.Keys() {
		e, ok := c.store.Peek(key)
		if !ok {
			continue // deleted since the listing
		}
		if e.Expired(now) {
			c.store.Delete(ctx, key)
			c.metrics.Expired()
			n++
		}
	}

	if n > 0 {
		c.logger.DebugContext(ctx, "swept expired entries",
			slog.Int("count", n),
		)
	}
	return n, nil
}

// Stats reports the current fast-tier entry count and sorted key list.
func (c *Cache[V]) Stats() Stats {
	keys := c.store.Keys()
	return Stats{Size: len(keys), Keys: keys}
}

// Preload seeds the cache with a batch of entries under one TTL, for
// warm-start scenarios. Equivalent to writing each pair individually.
// A zero ttl uses the cache default.
func (c *Cache[V]) Preload(ctx context.Context, entries map[string]V, ttl time.Duration) error {
	if c.isClosed() {
		return ErrClosed
	}

	resolved := c.resolveTTL(ttl)
	for key, value := range entries {
		c.store.Write(ctx, key, value, resolved)
	}
	return nil
}

// Close stops the background sweeper and marks the cache closed. Write
// operations fail with ErrClosed afterwards; Get keeps serving whatever
// is already cached. Close is idempotent.
func (c *Cache[V]) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	close(c.done)

	return nil
}

func (c *Cache[V]) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// resolveTTL applies the configured default to an unspecified TTL.
func (c *Cache[V]) resolveTTL(ttl time.Duration) time.Duration {
	if ttl == 0 {
		return c.defaultTTL
	}
	return ttl
}

// sweeper runs Sweep on the configured interval or cron schedule until
// Close.
func (c *Cache[V]) sweeper() {
	if c.schedule != nil {
		c.sweepOnSchedule()
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if _, err := c.Sweep(context.Background()); err != nil {
				return
			}
		}
	}
}

// sweepOnSchedule waits for each cron activation instead of a fixed tick.
func (c *Cache[V]) sweepOnSchedule() {
	for {
		next := c.schedule.Next(time.Now())
		if next.IsZero() {
			// The schedule has no future activation (cron reports the
			// zero time); park until Close instead of arming an
			// already-expired timer.
			<-c.done
			return
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-c.done:
			timer.Stop()
			return
		case <-timer.C:
			if _, err := c.Sweep(context.Background()); err != nil {
				return
			}
		}
	}
}
