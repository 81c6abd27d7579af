package larder

import "time"

// Entry is a cached value together with the metadata needed to evaluate
// expiry: when it was stored and how long it lives.
type Entry[V any] struct {
	StoredAt time.Time
	TTL      time.Duration
	Value    V
}

// Expired reports whether the entry has outlived its TTL at the given time.
// A TTL of zero or below means the entry never expires.
func (e Entry[V]) Expired(now time.Time) bool {
	if e.TTL <= 0 {
		return false
	}
	return now.Sub(e.StoredAt) > e.TTL
}
