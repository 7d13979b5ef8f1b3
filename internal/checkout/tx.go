package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/noah-isme/videoshop/internal/db"
	"github.com/noah-isme/videoshop/internal/inventory"
	"github.com/noah-isme/videoshop/internal/order"
	"github.com/noah-isme/videoshop/internal/voucher"
)

// OrderSaver persists completed orders.
type OrderSaver interface {
	Save(ctx context.Context, o *order.Order) error
}

// StockDecrementer takes units out of stock, failing with inventory.ErrOutOfStock.
type StockDecrementer interface {
	Decrement(ctx context.Context, productID uuid.UUID, quantity int) error
}

// Stores are the repositories checkout writes through, all bound to one transaction.
type Stores struct {
	Vouchers voucher.Store
	Orders   OrderSaver
	Stock    StockDecrementer
}

// TxRunner runs fn atomically. fn may be invoked more than once and must
// rebuild its state on every call.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, st Stores) error) error
}

// ErrConflict is returned when concurrent checkouts kept aborting the transaction.
var ErrConflict = errors.New("checkout: concurrent update, retry")

// PGTxRunner runs checkouts in SERIALIZABLE transactions on PostgreSQL and
// retries serialization failures.
type PGTxRunner struct {
	Pool     *pgxpool.Pool
	Attempts int
}

func (r PGTxRunner) InTx(ctx context.Context, fn func(ctx context.Context, st Stores) error) error {
	attempts := r.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	var err error
	for i := 0; i < attempts; i++ {
		_, err = db.WithTx(ctx, r.Pool, db.SerializableTx, func(tx pgx.Tx) (struct{}, error) {
			return struct{}{}, fn(ctx, Stores{
				Vouchers: voucher.NewPGStore(tx),
				Orders:   order.NewPGStore(tx),
				Stock:    inventory.NewStore(tx),
			})
		})
		if !db.IsSerializationFailure(err) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrConflict, err)
}
