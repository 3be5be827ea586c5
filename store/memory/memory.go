// Package memory provides an in-memory ledger store for tests and development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/rent-ledger/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu         sync.RWMutex
	payments   map[ledger.PaymentID]ledger.Payment
	properties map[ledger.PropertyID]ledger.Property
	tenants    map[ledger.TenantID]ledger.Tenant
}

func New() *Memory {
	return &Memory{
		payments:   make(map[ledger.PaymentID]ledger.Payment),
		properties: make(map[ledger.PropertyID]ledger.Property),
		tenants:    make(map[ledger.TenantID]ledger.Tenant),
	}
}

// =============================================================================
// ledger.Store
// =============================================================================

func (m *Memory) CreatePayment(_ context.Context, p ledger.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.payments[p.ID]; exists {
		return &ledger.ConflictError{PaymentID: p.ID, Op: "create"}
	}
	m.payments[p.ID] = p.Clone()
	return nil
}

func (m *Memory) GetPayment(_ context.Context, id ledger.PaymentID) (*ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.payments[id]
	if !ok {
		return nil, ledger.ErrPaymentNotFound
	}
	c := p.Clone()
	return &c, nil
}

// UpdatePayment replaces the stored payment if its status still equals expected.
// Reminders are owned by AppendReminder and are never overwritten here.
func (m *Memory) UpdatePayment(_ context.Context, p ledger.Payment, expected ledger.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.payments[p.ID]
	if !ok {
		return ledger.ErrPaymentNotFound
	}
	if cur.Status != expected {
		return &ledger.ConflictError{PaymentID: p.ID, Op: "update"}
	}

	next := p.Clone()
	next.Reminders = cur.Reminders
	next.CreatedAt = cur.CreatedAt
	next.CreatedBy = cur.CreatedBy
	m.payments[p.ID] = next
	return nil
}

func (m *Memory) DeletePayment(_ context.Context, id ledger.PaymentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.payments[id]; !ok {
		return ledger.ErrPaymentNotFound
	}
	delete(m.payments, id)
	return nil
}

func (m *Memory) ListPayments(_ context.Context, f ledger.Filter) ([]ledger.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Payment
	for _, p := range m.payments {
		if matches(p, f) {
			out = append(out, p.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].DueDate.After(out[j].DueDate)
	})
	return out, nil
}

// AppendReminder appends under the write lock, so concurrent appends serialize.
func (m *Memory) AppendReminder(_ context.Context, id ledger.PaymentID, r ledger.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.payments[id]
	if !ok {
		return ledger.ErrPaymentNotFound
	}
	if n := len(p.Reminders); n > 0 && r.SentAt.Before(p.Reminders[n-1].SentAt) {
		return &ledger.ConflictError{PaymentID: id, Op: "append reminder"}
	}
	p.Reminders = append(append([]ledger.Reminder(nil), p.Reminders...), r)
	p.UpdatedAt = r.SentAt
	m.payments[id] = p
	return nil
}

func matches(p ledger.Payment, f ledger.Filter) bool {
	if f.OwnerID != "" && p.CreatedBy != f.OwnerID {
		return false
	}
	if f.TenantID != "" && p.TenantID != f.TenantID {
		return false
	}
	if f.PropertyID != "" && p.PropertyID != f.PropertyID {
		return false
	}
	if len(f.Statuses) > 0 {
		found := false
		for _, s := range f.Statuses {
			if p.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.DueFrom != nil && p.DueDate.Before(*f.DueFrom) {
		return false
	}
	if f.DueTo != nil && !p.DueDate.Before(*f.DueTo) {
		return false
	}
	if f.PaidFrom != nil || f.PaidTo != nil {
		if p.PaidDate == nil {
			return false
		}
		if f.PaidFrom != nil && p.PaidDate.Before(*f.PaidFrom) {
			return false
		}
		if f.PaidTo != nil && !p.PaidDate.Before(*f.PaidTo) {
			return false
		}
	}
	return true
}

// =============================================================================
// ledger.Directory
// =============================================================================

func (m *Memory) PropertyOwner(_ context.Context, id ledger.PropertyID) (ledger.UserID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.properties[id]
	return p.OwnerID, ok, nil
}

func (m *Memory) TenantProperty(_ context.Context, id ledger.TenantID) (ledger.PropertyID, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tenants[id]
	return t.PropertyID, ok, nil
}

func (m *Memory) TenantContact(_ context.Context, id ledger.TenantID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tenants[id].Email, nil
}

func (m *Memory) PropertyName(_ context.Context, id ledger.PropertyID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.properties[id].Name, nil
}

func (m *Memory) TenantName(_ context.Context, id ledger.TenantID) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tenants[id].Name, nil
}

// =============================================================================
// ledger.Registry
// =============================================================================

func (m *Memory) SaveProperty(_ context.Context, p ledger.Property) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.properties[p.ID] = p
	return nil
}

func (m *Memory) ListProperties(_ context.Context, owner ledger.UserID) ([]ledger.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Property
	for _, p := range m.properties {
		if owner == "" || p.OwnerID == owner {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SaveTenant(_ context.Context, t ledger.Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tenants[t.ID] = t
	return nil
}

func (m *Memory) ListTenants(_ context.Context, owner ledger.UserID, property ledger.PropertyID) ([]ledger.Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []ledger.Tenant
	for _, t := range m.tenants {
		p, ok := m.properties[t.PropertyID]
		if !ok || p.OwnerID != owner {
			continue
		}
		if property == "" || t.PropertyID == property {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

var (
	_ ledger.Store     = (*Memory)(nil)
	_ ledger.Directory = (*Memory)(nil)
	_ ledger.Registry  = (*Memory)(nil)
)
