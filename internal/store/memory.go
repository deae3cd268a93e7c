package store

import (
	"context"
	"sync"
)

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	records []Record
	closed  bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Ping reports ErrClosed once the store is closed.
func (m *MemoryStore) Ping(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

// SaveTaskUpdate implements Store.
func (m *MemoryStore) SaveTaskUpdate(_ context.Context, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.records = append(m.records, cloneRecord(withDefaults(rec)))
	return nil
}

// ClearPhase implements Store.
func (m *MemoryStore) ClearPhase(_ context.Context, phaseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	kept := m.records[:0]
	for _, r := range m.records {
		if r.PhaseID != phaseID {
			kept = append(kept, r)
		}
	}
	m.records = kept
	return nil
}

// ListTaskUpdates implements Store.
func (m *MemoryStore) ListTaskUpdates(_ context.Context, phaseID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, ErrClosed
	}
	var out []Record
	for _, r := range m.records {
		if phaseID == "" || r.PhaseID == phaseID {
			out = append(out, cloneRecord(r))
		}
	}
	return out, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func cloneRecord(r Record) Record {
	if r.Colors != nil {
		c := *r.Colors
		r.Colors = &c
	}
	if r.Completed != nil {
		v := *r.Completed
		r.Completed = &v
	}
	return r
}
