package voucher

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-process Store for tests and local tooling.
type MemoryStore struct {
	mu      sync.Mutex
	sold    map[string]SoldVoucher
	history []UsedVoucherRecord
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sold: map[string]SoldVoucher{}}
}

func (m *MemoryStore) FindByIdentifier(_ context.Context, identifier string) (SoldVoucher, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sv, ok := m.sold[identifier]
	if !ok {
		return SoldVoucher{}, fmt.Errorf("sold voucher %s: %w", identifier, ErrNotFound)
	}
	return sv, nil
}

func (m *MemoryStore) FindForUpdate(ctx context.Context, identifier string) (SoldVoucher, error) {
	return m.FindByIdentifier(ctx, identifier)
}

func (m *MemoryStore) Create(_ context.Context, v SoldVoucher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sold[v.Identifier]; ok {
		return fmt.Errorf("sold voucher %s exists: %w", v.Identifier, ErrInvalidArgument)
	}
	m.sold[v.Identifier] = v
	return nil
}

func (m *MemoryStore) Save(_ context.Context, v SoldVoucher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sold[v.Identifier]; !ok {
		return fmt.Errorf("sold voucher %s: %w", v.Identifier, ErrNotFound)
	}
	m.sold[v.Identifier] = v
	return nil
}

func (m *MemoryStore) FindAll(context.Context) ([]SoldVoucher, error) {
	return m.filter(func(SoldVoucher) bool { return true }), nil
}

func (m *MemoryStore) FindActive(context.Context) ([]SoldVoucher, error) {
	return m.filter(func(v SoldVoucher) bool { return v.Active }), nil
}

func (m *MemoryStore) filter(keep func(SoldVoucher) bool) []SoldVoucher {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []SoldVoucher{}
	for _, v := range m.sold {
		if keep(v) {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Identifier < out[j].Identifier
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (m *MemoryStore) SaveUsedVoucher(_ context.Context, rec UsedVoucherRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = append(m.history, rec)
	return nil
}

// Records returns a copy of the redemption history.
func (m *MemoryStore) Records() []UsedVoucherRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]UsedVoucherRecord(nil), m.history...)
}
