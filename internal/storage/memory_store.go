package storage

import (
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore is an in-memory RecordStore. It backs the "none" cache backend, where
// entries live only as long as the process, and doubles as a test double.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
	calls   MemoryCalls
}

// MemoryCalls tracks method invocations for test verification.
type MemoryCalls struct {
	Put    int
	Get    int
	Delete int
	List   int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

// Put stores a copy of rec.
func (m *MemoryStore) Put(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Put++

	now := time.Now()
	m.records[rec.Key] = &Record{
		Key:  rec.Key,
		Data: slices.Clone(rec.Data),
		Metadata: Metadata{
			CreatedAt:    now,
			LastAccessed: now,
			Size:         int64(len(rec.Data)),
			Custom:       copyCustom(rec.Metadata.Custom),
		},
	}
	return nil
}

// Get returns a copy of the record stored under key.
func (m *MemoryStore) Get(ctx context.Context, key string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Get++

	rec, ok := m.records[key]
	if !ok {
		return nil, ErrNotFound{Key: key}
	}
	rec.Metadata.LastAccessed = time.Now()
	return &Record{Key: key, Data: slices.Clone(rec.Data), Metadata: rec.Metadata}, nil
}

// Stat returns the metadata of the record stored under key.
func (m *MemoryStore) Stat(ctx context.Context, key string) (Metadata, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[key]
	if !ok {
		return Metadata{}, ErrNotFound{Key: key}
	}
	return rec.Metadata, nil
}

// Delete removes the record stored under key.
func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++

	if _, ok := m.records[key]; !ok {
		return ErrNotFound{Key: key}
	}
	delete(m.records, key)
	return nil
}

// List returns every key, sorted.
func (m *MemoryStore) List(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.calls.List++

	keys := make([]string, 0, len(m.records))
	for k := range m.records {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}

// Calls returns a snapshot of the invocation counters.
func (m *MemoryStore) Calls() MemoryCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Corrupt overwrites the data of an existing record. Tests use it to simulate damaged entries.
func (m *MemoryStore) Corrupt(key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[key]; ok {
		rec.Data = slices.Clone(data)
	}
}
