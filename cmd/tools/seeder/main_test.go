package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"

	"github.com/noah-isme/videoshop/internal/catalog"
)

type memCatalog struct {
	mu    sync.Mutex
	items []catalog.Buyable
}

func (m *memCatalog) FindByType(_ context.Context, t catalog.BuyableType) ([]catalog.Buyable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []catalog.Buyable
	for _, b := range m.items {
		if b.Type == t {
			out = append(out, b)
		}
	}
	return out, nil
}

func (m *memCatalog) FindByID(_ context.Context, id uuid.UUID) (catalog.Buyable, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.items {
		if b.ID == id {
			return b, nil
		}
	}
	return catalog.Buyable{}, catalog.ErrNotFound
}

func (m *memCatalog) Save(_ context.Context, b catalog.Buyable) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, b)
	return nil
}

func (m *memCatalog) AddComment(context.Context, uuid.UUID, catalog.Comment) error { return nil }

type memStock map[uuid.UUID]int

func (m memStock) Save(_ context.Context, id uuid.UUID, qty int) error {
	m[id] = qty
	return nil
}

func TestSeedCatalogRefreshesCachedPages(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, err := catalog.NewService(catalog.ServiceConfig{
		Store:  &memCatalog{},
		Cache:  catalog.NewCache(client, time.Hour),
		Logger: zerolog.Nop(),
	})
	require.NoError(t, err)

	ctx := context.Background()
	before, err := svc.ListByType(ctx, catalog.DVD)
	require.NoError(t, err)
	require.Empty(t, before)

	stock := memStock{}
	require.NoError(t, seedCatalog(ctx, svc, stock, currency.EUR, zerolog.Nop()))

	dvds, err := svc.ListByType(ctx, catalog.DVD)
	require.NoError(t, err)
	require.Len(t, dvds, discsPerType)

	vouchers, err := svc.ListByType(ctx, catalog.Voucher)
	require.NoError(t, err)
	require.Len(t, vouchers, len(voucherValues))
	require.Equal(t, voucherStock, stock[vouchers[0].ID])
	require.Equal(t, discStock, stock[dvds[0].ID])
}
