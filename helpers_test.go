package larder_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/larder"
)

// fakeDurable is an in-memory Durable with injectable failures, so tests
// can drive the degradation paths without a real backend.
type fakeDurable struct {
	records map[string][]byte
	getErr  error
	setErr  error
	delErr  error
	keysErr error
	mu      sync.Mutex

	gets atomic.Int64
	sets atomic.Int64
}

var _ larder.Durable = (*fakeDurable)(nil)

func newFakeDurable() *fakeDurable {
	return &fakeDurable{records: make(map[string][]byte)}
}

func (d *fakeDurable) Get(_ context.Context, key string) ([]byte, error) {
	d.gets.Add(1)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.getErr != nil {
		return nil, d.getErr
	}
	data, ok := d.records[key]
	if !ok {
		return nil, larder.ErrNotFound
	}
	return data, nil
}

func (d *fakeDurable) Set(_ context.Context, key string, data []byte) error {
	d.sets.Add(1)

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.setErr != nil {
		return d.setErr
	}
	d.records[key] = data
	return nil
}

func (d *fakeDurable) Delete(_ context.Context, key string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.delErr != nil {
		return d.delErr
	}
	delete(d.records, key)
	return nil
}

func (d *fakeDurable) Keys(_ context.Context, prefix string) ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.keysErr != nil {
		return nil, d.keysErr
	}
	keys := make([]string, 0, len(d.records))
	for k := range d.records {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

// has reports whether a raw record exists under the durable key.
func (d *fakeDurable) has(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.records[key]
	return ok
}

// raw returns the stored bytes for a durable key.
func (d *fakeDurable) raw(key string) []byte {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.records[key]
}

// seed plants a raw record directly, bypassing the store.
func (d *fakeDurable) seed(key string, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.records[key] = data
}

// corrupt replaces the record under key with bytes that do not decode.
func (d *fakeDurable) corrupt(key string) {
	d.seed(key, []byte("{not json"))
}

// failGets arms Get error injection; nil disarms it.
func (d *fakeDurable) failGets(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.getErr = err
}

func (d *fakeDurable) failSets(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.setErr = err
}

func (d *fakeDurable) failDeletes(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.delErr = err
}

func (d *fakeDurable) failKeys(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.keysErr = err
}

// fakeMetrics counts cache events.
type fakeMetrics struct {
	hits    atomic.Int64
	misses  atomic.Int64
	stale   atomic.Int64
	expired atomic.Int64
}

var _ larder.Metrics = (*fakeMetrics)(nil)

func (m *fakeMetrics) Hit()     { m.hits.Add(1) }
func (m *fakeMetrics) Miss()    { m.misses.Add(1) }
func (m *fakeMetrics) Stale()   { m.stale.Add(1) }
func (m *fakeMetrics) Expired() { m.expired.Add(1) }
