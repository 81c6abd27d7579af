package larder

import "context"

// Durable is the persistent storage tier behind a Store: a plain
// byte-oriented key-value store surviving process restarts. See
// pkg/durable for memory, file, Redis, S3, and Postgres implementations.
//
// A missing key must be reported with an error matching ErrNotFound. Any
// other error is treated by the Store as a transient storage failure: the
// operation degrades to its in-memory-only equivalent and the failure is
// logged, never propagated.
//
// The durable tier may be shared with unrelated consumers of the same
// underlying storage. The Store isolates its records solely through the
// configured key prefix, not through any locking.
type Durable interface {
	// Get returns the raw record stored under key.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the raw record under key, replacing any previous one.
	Set(ctx context.Context, key string, data []byte) error

	// Delete removes the record under key.
	// Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists every stored key that starts with the given prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
