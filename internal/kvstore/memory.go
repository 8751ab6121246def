package kvstore

import (
	"context"
	"sync"
	"time"
)

// Memory keeps records in process memory.
type Memory struct {
	mu      sync.RWMutex
	records map[string]Record
	now     func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{records: make(map[string]Record), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (Record, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.records[key]
	return record, ok, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte) (bool, error) {
	record := newRecord(key, value, m.now())
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.records[key]; ok && existing.Hash == record.Hash {
		return false, nil
	}
	m.records[key] = record
	return true, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, key)
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = make(map[string]Record)
	return nil
}

func (m *Memory) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.records), nil
}

func (m *Memory) Close() error { return nil }
