package larder

import (
	"context"
	"time"
)

type fetchResult[V any] struct {
	val V
}

// GetOrFetchShared behaves like [Cache.GetOrFetch] but deduplicates
// concurrent misses: while a fetch for key is in flight, other
// GetOrFetchShared callers on the same cache wait for its result instead
// of fetching independently.
//
// GetOrFetch itself never deduplicates; concurrent independent fetches
// with last-write-wins are its documented contract. Single-flight applies
// only among GetOrFetchShared callers.
//
// Example:
//
//	user, err := larder.GetOrFetchShared(ctx, c, "user_42", fetchUser, 5*time.Minute)
func GetOrFetchShared[V any](ctx context.Context, c *Cache[V], key string, fetch FetchFunc[V], ttl time.Duration) (V, error) {
	// Fast path: a fresh hit needs no flight.
	if v, err := c.Get(ctx, key); err == nil {
		return v, nil
	}

	v, err, _ := c.flights.Do(key, func() (any, error) {
		val, err := c.GetOrFetch(ctx, key, fetch, ttl)
		if err != nil {
			return nil, err
		}
		return fetchResult[V]{val: val}, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}

	return v.(fetchResult[V]).val, nil
}
