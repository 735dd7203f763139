package storage

import (
	"context"
	"sync"
)

type table struct {
	order []string
	rows  map[string][]byte
}

// Memory keeps every collection in process memory.
type Memory struct {
	mu     sync.RWMutex
	tables map[Collection]*table
}

func NewMemory() *Memory {
	m := &Memory{tables: make(map[Collection]*table, len(Collections))}
	for _, c := range Collections {
		m.tables[c] = &table{rows: make(map[string][]byte)}
	}
	return m
}

func (m *Memory) tableFor(c Collection) *table {
	t, ok := m.tables[c]
	if !ok {
		t = &table{rows: make(map[string][]byte)}
		m.tables[c] = t
	}
	return t
}

func (m *Memory) Get(_ context.Context, c Collection, id string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[c]
	if !ok {
		return nil, ErrNotFound
	}
	body, ok := t.rows[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(body), nil
}

func (m *Memory) List(_ context.Context, c Collection) ([][]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[c]
	if !ok {
		return nil, nil
	}
	out := make([][]byte, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, clone(t.rows[id]))
	}
	return out, nil
}

func (m *Memory) Put(_ context.Context, c Collection, id string, body []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.tableFor(c)
	if _, exists := t.rows[id]; !exists {
		t.order = append(t.order, id)
	}
	t.rows[id] = clone(body)
	return nil
}

func (m *Memory) Delete(_ context.Context, c Collection, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[c]
	if !ok {
		return nil
	}
	if _, exists := t.rows[id]; !exists {
		return nil
	}
	delete(t.rows, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
