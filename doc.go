// Package larder provides a client-resident read-through cache with
// TTL-based expiry, two-tier storage, and stale-on-failure fallback.
//
// It sits between application logic and a remote data source: values are
// fetched on miss, kept in a fast in-memory tier for the process
// lifetime, mirrored to a durable tier that survives restarts, and served
// stale when a fresh fetch fails. A temporary upstream outage is masked
// by the last known value — but only if one exists; there is no
// fabricated data.
//
// # Quick Start
//
//	d, err := durable.NewFile("")
//	if err != nil {
//	    return err
//	}
//
//	c, err := larder.New[Dashboard](d, nil,
//	    larder.WithDefaultTTL(5*time.Minute),
//	)
//	if err != nil {
//	    return err
//	}
//	defer c.Close()
//
//	d, err := c.GetOrFetch(ctx, "dashboard_main", fetchDashboard, 0)
//
// [Cache.GetOrFetch] is the primary entry point: a cached fresh value is
// returned without invoking the fetch; a miss triggers exactly one fetch
// attempt whose result is stored in both tiers; a failed fetch falls back
// to the last known value from either tier, expired or not, with a logged
// warning. Only when no prior value exists does the fetch error reach the
// caller, unchanged.
//
// # Two Tiers
//
// The fast tier is a process-private map. The durable tier is any
// [Durable] implementation — see pkg/durable for file, Redis, S3,
// Postgres, and in-memory backends. Records are persisted under a
// namespace prefix (default "cache_"), serialized by a [Marshaler] (JSON
// unless customized). Durable failures never fail an operation: the cache
// degrades to memory-only behavior and logs the problem. A corrupt or
// foreign durable record is treated as absent, never as an error.
//
// # Expiry
//
// Every entry carries its write time and TTL; an entry is expired once
// now - StoredAt > TTL. Expiry is evaluated lazily on read: an expired
// entry is dropped from the fast tier and reported as a miss, while its
// durable record stays reachable for stale fallback. The background
// sweeper ([Cache.Sweep]) removes expired entries from both tiers
// proactively, on a fixed interval or a cron schedule
// ([WithSweepInterval], [WithSweepSchedule]).
//
// TTL semantics everywhere in the package:
//   - Positive duration: entry expires after this duration
//   - Zero: use the cache's configured default TTL (1 hour by default)
//   - Negative: entry never expires
//
// # Invalidation
//
//	n, err := c.InvalidatePattern(ctx, "user")   // drops user_1, user_42, ...
//	err = c.Delete(ctx, "user_1")
//	err = c.ClearAll(ctx)
//
// [Cache.InvalidatePattern] deletes every fast-tier key containing the
// substring, from both tiers. [Cache.ClearAll] removes all fast-tier
// entries and every durable record carrying the cache's prefix, leaving
// unrelated durable data untouched.
//
// # Concurrency
//
// All operations are synchronous except the fetch inside GetOrFetch,
// during which no lock is held: two concurrent misses for the same key
// fetch independently and the last write wins. That is the documented
// contract, not an accident. Callers that want request collapsing use
// [GetOrFetchShared], which deduplicates concurrent misses per cache via
// singleflight without changing GetOrFetch itself.
//
// # Error Handling
//
// The package defines sentinel errors:
//
//   - [ErrNotFound] — key absent from both tiers, or expired
//   - [ErrClosed] — operation on a closed cache
//   - [ErrMarshal] — value serialization failed
//   - [ErrUnmarshal] — value deserialization failed
//   - [ErrDurableRequired] — construction without a durable tier
//
// Use [errors.Is] to check:
//
//	v, err := c.Get(ctx, "key")
//	if errors.Is(err, larder.ErrNotFound) {
//	    // handle miss
//	}
//
// Internal storage errors never cross the package boundary; only an
// unrecoverable fetch failure (no stale data available) does.
package larder
