package durable

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/larder"
)

// OpenRedis dials a redis:// or rediss:// URL, verifies the connection
// with a ping, and retries with growing backoff while the context
// allows. It is a convenience for wiring NewRedis; injecting an
// existing client works just as well.
func OpenRedis(ctx context.Context, url string) (redis.UniversalClient, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("durable: parse redis url: %w", err)
	}

	const attempts = 3
	for i := range attempts {
		client := redis.NewClient(opts)
		if err = client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * time.Second):
		}
	}
	return nil, fmt.Errorf("durable: connect to redis: %w", err)
}

// Redis is a Durable implementation backed by Redis. The client is
// injected and its lifecycle stays with the caller.
//
// Records are stored without a Redis-side TTL: expiry belongs to the
// cache, and an expired record must stay readable for stale fallback
// until the cache removes it.
type Redis struct {
	client redis.UniversalClient
}

var _ larder.Durable = (*Redis)(nil)

// NewRedis creates a Redis-backed durable tier over the given client.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client}
}

// Get returns the record stored under key, or larder.ErrNotFound.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, larder.ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

// Set stores data under key, replacing any previous record.
func (r *Redis) Set(ctx context.Context, key string, data []byte) error {
	return r.client.Set(ctx, key, data, 0).Err()
}

// Delete removes the record under key. Deleting a missing key is not an
// error.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// Keys returns all stored keys that start with prefix, sorted. It scans
// in batches of 100 to avoid blocking the server on large keyspaces.
func (r *Redis) Keys(ctx context.Context, prefix string) ([]string, error) {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := r.client.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	slices.Sort(keys)
	return keys, nil
}
