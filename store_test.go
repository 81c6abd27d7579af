package larder_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/larder"
)

// --- Store: NewStore ---

func TestNewStore(t *testing.T) {
	t.Parallel()

	t.Run("requires a durable tier", func(t *testing.T) {
		t.Parallel()

		_, err := larder.NewStore[string](nil, nil)
		require.ErrorIs(t, err, larder.ErrDurableRequired)
	})
}

// --- Store: Write ---

func TestStore_Write(t *testing.T) {
	t.Parallel()

	t.Run("mirrors entries to the durable tier under the key prefix", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		s.Write(context.Background(), "key", "value", time.Minute)

		require.True(t, d.has("cache_key"))
	})

	t.Run("applies a custom key prefix", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil, larder.WithKeyPrefix("app_"))
		require.NoError(t, err)

		s.Write(context.Background(), "key", "value", time.Minute)

		require.True(t, d.has("app_key"))
		require.False(t, d.has("cache_key"))
	})

	t.Run("degrades to the fast tier when the durable write fails", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		d.failSets(errors.New("disk full"))
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "key", "value", time.Minute)

		// The entry is readable in-process even though nothing persisted.
		e, err := s.Read(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, "value", e.Value)
		require.False(t, d.has("cache_key"))
	})

	t.Run("overwrites both tiers", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "key", "one", time.Minute)
		s.Write(ctx, "key", "two", time.Minute)

		e, err := s.Read(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, "two", e.Value)

		// The durable record holds the newer value as well.
		s.Forget("key")
		e, err = s.Read(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, "two", e.Value)
	})
}

// --- Store: Read ---

func TestStore_Read(t *testing.T) {
	t.Parallel()

	t.Run("serves fast-tier hits without touching the durable tier", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "key", "value", time.Minute)

		_, err = s.Read(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, int64(0), d.gets.Load())
	})

	t.Run("promotes durable records on a fast miss", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "key", "value", time.Minute)
		s.Forget("key")

		e, err := s.Read(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, "value", e.Value)
		require.Equal(t, int64(1), d.gets.Load())

		// Promoted: the second read is served from the fast tier.
		_, err = s.Read(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, int64(1), d.gets.Load())
	})

	t.Run("keeps the original StoredAt and TTL through promotion", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "key", "value", 42*time.Second)
		before, ok := s.Peek("key")
		require.True(t, ok)

		s.Forget("key")

		after, err := s.Read(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, 42*time.Second, after.TTL)
		require.WithinDuration(t, before.StoredAt, after.StoredAt, time.Millisecond)
	})

	t.Run("returns ErrNotFound when both tiers miss", func(t *testing.T) {
		t.Parallel()

		s, err := larder.NewStore[string](newFakeDurable(), nil)
		require.NoError(t, err)

		_, err = s.Read(context.Background(), "missing")
		require.ErrorIs(t, err, larder.ErrNotFound)
	})

	t.Run("degrades durable read failures to a miss", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		d.failGets(errors.New("connection refused"))
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		_, err = s.Read(context.Background(), "key")
		require.ErrorIs(t, err, larder.ErrNotFound)
	})

	t.Run("discards undecodable durable records", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "key", "value", time.Minute)
		s.Forget("key")
		d.corrupt("cache_key")

		_, err = s.Read(ctx, "key")
		require.ErrorIs(t, err, larder.ErrNotFound)
	})
}

// --- Store: custom marshaler ---

type reversedMarshaler struct{}

func (reversedMarshaler) Marshal(v string) ([]byte, error) {
	runes := []rune(v)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return []byte(string(runes)), nil
}

func (reversedMarshaler) Unmarshal(data []byte) (string, error) {
	runes := []rune(string(data))
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes), nil
}

func TestStore_CustomMarshaler(t *testing.T) {
	t.Parallel()

	t.Run("shapes the durable record value", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, reversedMarshaler{})
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "key", "hello", time.Minute)

		// Round-trip restores the original.
		s.Forget("key")
		e, err := s.Read(ctx, "key")
		require.NoError(t, err)
		require.Equal(t, "hello", e.Value)

		// The persisted payload is reversed.
		var env struct {
			Value []byte `json:"value"`
		}
		require.NoError(t, json.Unmarshal(d.raw("cache_key"), &env))
		require.Equal(t, "olleh", string(env.Value))
	})
}

// --- Store: Forget ---

func TestStore_Forget(t *testing.T) {
	t.Parallel()

	t.Run("drops the fast tier but keeps the durable record", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "key", "value", time.Minute)
		s.Forget("key")

		_, ok := s.Peek("key")
		require.False(t, ok)
		require.True(t, d.has("cache_key"))
	})
}

// --- Store: Delete ---

func TestStore_Delete(t *testing.T) {
	t.Parallel()

	t.Run("removes the entry from both tiers", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "key", "value", time.Minute)
		s.Delete(ctx, "key")

		_, err = s.Read(ctx, "key")
		require.ErrorIs(t, err, larder.ErrNotFound)
		require.False(t, d.has("cache_key"))
	})

	t.Run("still clears the fast tier when the durable delete fails", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "key", "value", time.Minute)
		d.failDeletes(errors.New("connection refused"))

		s.Delete(ctx, "key")

		_, ok := s.Peek("key")
		require.False(t, ok)
	})
}

// --- Store: ClearAll ---

func TestStore_ClearAll(t *testing.T) {
	t.Parallel()

	t.Run("clears only records carrying the store prefix", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "a", "1", time.Minute)
		s.Write(ctx, "b", "2", time.Minute)
		d.seed("other_c", []byte("foreign"))

		s.ClearAll(ctx)

		require.Empty(t, s.Keys())
		require.False(t, d.has("cache_a"))
		require.False(t, d.has("cache_b"))
		require.True(t, d.has("other_c"), "records outside the prefix must survive")
	})

	t.Run("empty prefix removes every durable record", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil, larder.WithKeyPrefix(""))
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "a", "1", time.Minute)
		d.seed("unrelated", []byte("x"))

		s.ClearAll(ctx)

		require.False(t, d.has("a"))
		require.False(t, d.has("unrelated"))
	})

	t.Run("clears the fast tier even when enumeration fails", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "key", "value", time.Minute)
		d.failKeys(errors.New("connection refused"))

		s.ClearAll(ctx)

		require.Empty(t, s.Keys())
	})
}

// --- Store: Keys ---

func TestStore_Keys(t *testing.T) {
	t.Parallel()

	t.Run("lists fast-tier keys sorted", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "b", "2", time.Minute)
		s.Write(ctx, "a", "1", time.Minute)
		s.Write(ctx, "c", "3", time.Minute)

		require.Equal(t, []string{"a", "b", "c"}, s.Keys())
	})

	t.Run("excludes durable-only records", func(t *testing.T) {
		t.Parallel()

		d := newFakeDurable()
		s, err := larder.NewStore[string](d, nil)
		require.NoError(t, err)

		ctx := context.Background()
		s.Write(ctx, "a", "1", time.Minute)
		s.Write(ctx, "b", "2", time.Minute)
		s.Forget("b")

		require.Equal(t, []string{"a"}, s.Keys())
	})
}
