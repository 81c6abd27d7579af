package durable

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/dmitrymomot/larder"
)

// Memory is an in-memory Durable implementation. Records live in a plain
// map and vanish with the process, which makes it useful for tests and
// for running a cache without real persistence.
type Memory struct {
	records map[string][]byte
	mu      sync.RWMutex
}

var _ larder.Durable = (*Memory)(nil)

// NewMemory creates an empty in-memory durable tier.
func NewMemory() *Memory {
	return &Memory{records: make(map[string][]byte)}
}

// Get returns the record stored under key, or larder.ErrNotFound.
func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.records[key]
	if !ok {
		return nil, larder.ErrNotFound
	}
	return slices.Clone(data), nil
}

// Set stores a copy of data under key, replacing any previous record.
func (m *Memory) Set(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.records[key] = slices.Clone(data)
	return nil
}

// Delete removes the record under key. Deleting a missing key is not an
// error.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.records, key)
	return nil
}

// Keys returns all stored keys that start with prefix, sorted.
func (m *Memory) Keys(_ context.Context, prefix string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.records))
	for key := range m.records {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

// Len returns the number of stored records.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.records)
}
