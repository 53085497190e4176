package deadletter

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory dead letter store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	order  []string // IDs in append order
	byID   map[string]*Record
	closed bool
}

// NewMemoryStore creates a new in-memory dead letter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*Record)}
}

// Append implements Store.
func (m *MemoryStore) Append(ctx context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	// Copy to avoid retaining the caller's record and payload slice
	stored := *rec
	if rec.Payload != nil {
		stored.Payload = append([]byte(nil), rec.Payload...)
	}

	m.byID[stored.ID] = &stored
	m.order = append(m.order, stored.ID)
	return nil
}

// List implements Store.
func (m *MemoryStore) List(ctx context.Context, limit int) ([]*Record, error) {
	return m.list(func(*Record) bool { return true }, limit)
}

// ListByType implements Store.
func (m *MemoryStore) ListByType(ctx context.Context, eventType string, limit int) ([]*Record, error) {
	return m.list(func(rec *Record) bool { return rec.EventType == eventType }, limit)
}

func (m *MemoryStore) list(match func(*Record) bool, limit int) ([]*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	out := make([]*Record, 0, len(m.order))
	for _, id := range m.order {
		if limit > 0 && len(out) >= limit {
			break
		}
		rec := m.byID[id]
		if !match(rec) {
			continue
		}
		// Return a copy to prevent modification
		cp := *rec
		out = append(out, &cp)
	}
	return out, nil
}

// Get implements Store.
func (m *MemoryStore) Get(ctx context.Context, id string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	rec, ok := m.byID[id]
	if !ok {
		return nil, ErrNotFound
	}

	cp := *rec
	return &cp, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}

	if _, ok := m.byID[id]; !ok {
		return nil
	}

	delete(m.byID, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count implements Store.
func (m *MemoryStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return 0, ErrStoreClosed
	}
	return len(m.byID), nil
}

// CountByType implements Store.
func (m *MemoryStore) CountByType(ctx context.Context) (map[string]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}

	counts := make(map[string]int)
	for _, rec := range m.byID {
		counts[rec.EventType]++
	}
	return counts, nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.byID = nil
	m.order = nil
	return nil
}
