package payroll

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps payslips in process memory. It backs deployments without
// a database and the tests.
type MemoryStore struct {
	mu       sync.RWMutex
	payslips map[string]Payslip
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{payslips: map[string]Payslip{}}
}

func (m *MemoryStore) CreatePayslip(_ context.Context, p Payslip) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payslips[p.ID] = p
	return nil
}

func (m *MemoryStore) GetPayslip(_ context.Context, id string) (Payslip, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.payslips[id]
	if !ok {
		return Payslip{}, ErrPayslipNotFound
	}
	return p, nil
}

func (m *MemoryStore) CountPayslips(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.payslips), nil
}

func (m *MemoryStore) ListPayslips(_ context.Context, limit, offset int) ([]Payslip, error) {
	m.mu.RLock()
	all := make([]Payslip, 0, len(m.payslips))
	for _, p := range m.payslips {
		all = append(all, p)
	}
	m.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID < all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	if offset >= len(all) {
		return nil, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}
