package larder

import "errors"

// Sentinel errors for cache operations.
var (
	// ErrNotFound is returned when a key is absent from both storage tiers
	// or its entry has expired.
	ErrNotFound = errors.New("larder: entry not found")

	// ErrClosed is returned when an operation is attempted on a closed cache.
	ErrClosed = errors.New("larder: closed")

	// ErrMarshal is returned when value serialization fails.
	ErrMarshal = errors.New("larder: failed to marshal value")

	// ErrUnmarshal is returned when value deserialization fails.
	ErrUnmarshal = errors.New("larder: failed to unmarshal value")

	// ErrDurableRequired is returned when a store or cache is constructed
	// without a durable tier.
	ErrDurableRequired = errors.New("larder: durable tier is required")
)
