package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-voucher/internal/voucher"
)

// Memory keeps vouchers in process, in insertion order.
type Memory struct {
	mu    sync.RWMutex
	order []string
	items map[string]voucher.Voucher
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]voucher.Voucher)}
}

// FindByID implements voucher.Store.
func (m *Memory) FindByID(_ context.Context, id string) (voucher.Voucher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[id]
	if !ok {
		return voucher.Voucher{}, voucher.ErrNotFound
	}
	return v, nil
}

// FindAll implements voucher.Store.
func (m *Memory) FindAll(context.Context) ([]voucher.Voucher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]voucher.Voucher, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.items[id])
	}
	return out, nil
}

// Save implements voucher.Store. Vouchers without an id receive a new UUID.
func (m *Memory) Save(_ context.Context, v voucher.Voucher) (voucher.Voucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if _, exists := m.items[v.ID]; !exists {
		m.order = append(m.order, v.ID)
	}
	m.items[v.ID] = v
	return v, nil
}

// DeleteByID implements voucher.Store.
func (m *Memory) DeleteByID(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return nil
	}
	delete(m.items, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Ping satisfies the readiness probe contract.
func (m *Memory) Ping(context.Context) error { return nil }
