package larder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// durableRecord is the envelope persisted to the durable tier: the
// marshaled value plus the metadata needed to evaluate expiry after a
// process restart.
type durableRecord struct {
	StoredAt time.Time     `json:"stored_at"`
	TTL      time.Duration `json:"ttl"`
	Value    []byte        `json:"value"`
}

// Store holds cache entries in a fast in-memory tier and mirrors them to a
// durable tier. It has no TTL logic of its own; expiry is evaluated by the
// Cache layered on top.
//
// The two tiers hold independent copies of each entry. Writes and deletes
// update both; reads reconcile, fast tier first, then the durable tier
// with write-back promotion. The fast tier is the source of truth for the
// current process lifetime, so a durable-tier failure never fails an
// operation: it is logged and the operation degrades to its
// in-memory-only equivalent.
type Store[V any] struct {
	durable   Durable
	marshaler Marshaler[V]
	logger    *slog.Logger
	entries   map[string]Entry[V]
	prefix    string
	mu        sync.Mutex
}

// NewStore creates a two-tier entry store over the given durable tier.
// An optional Marshaler customizes durable serialization; nil means JSON.
func NewStore[V any](d Durable, m Marshaler[V], opts ...Option) (*Store[V], error) {
	if d == nil {
		return nil, ErrDurableRequired
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if m == nil {
		m = jsonMarshaler[V]{}
	}

	return &Store[V]{
		durable:   d,
		marshaler: m,
		logger:    o.logger,
		prefix:    o.keyPrefix,
		entries:   make(map[string]Entry[V]),
	}, nil
}

// Write stores the entry in the fast tier unconditionally and mirrors it
// to the durable tier, overwriting any prior entry under the same key in
// both. A serialization or durable I/O failure means the entry simply is
// not persisted this time; the write itself cannot fail.
func (s *Store[V]) Write(ctx context.Context, key string, value V, ttl time.Duration) {
	e := Entry[V]{StoredAt: time.Now(), TTL: ttl, Value: value}

	s.mu.Lock()
	s.entries[key] = e
	s.mu.Unlock()

	data, err := s.encode(e)
	if err != nil {
		s.logger.WarnContext(ctx, "durable write skipped",
			slog.String("key", key),
			slog.Any("error", err),
		)
		return
	}

	if err := s.durable.Set(ctx, s.prefixed(key), data); err != nil {
		s.logger.WarnContext(ctx, "durable write failed",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}

// Read returns the entry stored under key. A fast-tier hit returns
// immediately; on a fast miss the durable tier is consulted and, on
// success, the entry is promoted back into the fast tier with its
// original StoredAt and TTL. Read performs no expiry evaluation.
//
// Returns ErrNotFound when the key is absent from both tiers. A corrupt
// or foreign durable record and any durable I/O failure also degrade to
// ErrNotFound.
func (s *Store[V]) Read(ctx context.Context, key string) (Entry[V], error) {
	s.mu.Lock()
	e, ok := s.entries[key]
	s.mu.Unlock()
	if ok {
		return e, nil
	}

	data, err := s.durable.Get(ctx, s.prefixed(key))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "durable read failed",
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
		return Entry[V]{}, ErrNotFound
	}

	e, err = s.decode(data)
	if err != nil {
		s.logger.DebugContext(ctx, "discarding undecodable durable record",
			slog.String("key", key),
			slog.Any("error", err),
		)
		return Entry[V]{}, ErrNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// A writer may have repopulated the fast tier while the durable load
	// was in flight; the newer fast entry wins over the promotion.
	if current, ok := s.entries[key]; ok {
		return current, nil
	}

	s.entries[key] = e
	return e, nil
}

// Peek returns the fast-tier entry for key without consulting the durable
// tier and without promotion.
func (s *Store[V]) Peek(key string) (Entry[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[key]
	return e, ok
}

// Forget drops the fast-tier copy of key, leaving any durable record in
// place. The Cache uses it for lazy eviction, so an expired value remains
// reachable by stale reads until something positively removes it.
func (s *Store[V]) Forget(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
}

// Delete removes key from both tiers. Deleting an absent key is not an
// error; a durable-tier failure is logged and otherwise ignored.
func (s *Store[V]) Delete(ctx context.Context, key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()

	if err := s.durable.Delete(ctx, s.prefixed(key)); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.WarnContext(ctx, "durable delete failed",
			slog.String("key", key),
			slog.Any("error", err),
		)
	}
}

// ClearAll empties the fast tier and removes every durable record carrying
// the store's key prefix. Unrelated records sharing the durable storage
// are never touched.
func (s *Store[V]) ClearAll(ctx context.Context) {
	s.mu.Lock()
	s.entries = make(map[string]Entry[V])
	s.mu.Unlock()

	keys, err := s.durable.Keys(ctx, s.prefix)
	if err != nil {
		s.logger.WarnContext(ctx, "durable enumeration failed",
			slog.Any("error", err),
		)
		return
	}

	for _, k := range keys {
		if err := s.durable.Delete(ctx, k); err != nil && !errors.Is(err, ErrNotFound) {
			s.logger.WarnContext(ctx, "durable delete failed",
				slog.String("key", k),
				slog.Any("error", err),
			)
		}
	}
}

// Keys returns the sorted set of keys resident in the fast tier. Durable
// records that were never promoted are not listed: the listing reflects
// the live working set, not total persisted state.
func (s *Store[V]) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.entries))
	for k := range s.entries {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *Store[V]) encode(e Entry[V]) ([]byte, error) {
	value, err := s.marshaler.Marshal(e.Value)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(durableRecord{StoredAt: e.StoredAt, TTL: e.TTL, Value: value})
	if err != nil {
		return nil, errors.Join(ErrMarshal, err)
	}
	return data, nil
}

func (s *Store[V]) decode(data []byte) (Entry[V], error) {
	var rec durableRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Entry[V]{}, errors.Join(ErrUnmarshal, err)
	}

	v, err := s.marshaler.Unmarshal(rec.Value)
	if err != nil {
		return Entry[V]{}, err
	}

	return Entry[V]{StoredAt: rec.StoredAt, TTL: rec.TTL, Value: v}, nil
}

func (s *Store[V]) prefixed(key string) string {
	return s.prefix + key
}
