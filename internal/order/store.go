package order

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/text/currency"

	"github.com/noah-isme/videoshop/internal/db"
	"github.com/noah-isme/videoshop/internal/money"
)

// Store persists orders with their lines.
type Store interface {
	Save(ctx context.Context, o *Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByStatus(ctx context.Context, status Status) ([]*Order, error)
	FindByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error)
}

var _ Store = (*PGStore)(nil)

// PGStore is the PostgreSQL Store.
type PGStore struct {
	db db.DBTX
}

// NewPGStore returns a store over a pool or transaction. Save writes several
// statements and should run inside a transaction.
func NewPGStore(dbtx db.DBTX) *PGStore {
	return &PGStore{db: dbtx}
}

// Save upserts the order row and rewrites its lines.
func (s *PGStore) Save(ctx context.Context, o *Order) error {
	total, err := o.Total()
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, `
		INSERT INTO orders (id, user_id, status, total, currency, created_at, paid_at, completed_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status, total = EXCLUDED.total,
			paid_at = EXCLUDED.paid_at, completed_at = EXCLUDED.completed_at`,
		o.ID, o.UserID, string(o.Status), total.StringFixed(), o.Currency.String(), o.CreatedAt, o.PaidAt, o.CompletedAt,
	); err != nil {
		return fmt.Errorf("q.UpsertOrder: %w", err)
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM order_lines WHERE order_id = $1`, o.ID); err != nil {
		return fmt.Errorf("q.DeleteOrderLines: %w", err)
	}
	for i, l := range o.Lines {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO order_lines (order_id, position, product_id, name, kind, quantity, unit_price, currency)
			VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8)`,
			o.ID, i, l.ProductID, l.Name, l.Kind, l.Quantity, l.UnitPrice.StringFixed(), l.UnitPrice.Currency.String(),
		); err != nil {
			return fmt.Errorf("q.InsertOrderLine: %w", err)
		}
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM order_charge_lines WHERE order_id = $1`, o.ID); err != nil {
		return fmt.Errorf("q.DeleteOrderChargeLines: %w", err)
	}
	for i, c := range o.ChargeLines {
		if _, err := s.db.Exec(ctx, `
			INSERT INTO order_charge_lines (order_id, position, label, amount, currency)
			VALUES ($1, $2, $3, $4::numeric, $5)`,
			o.ID, i, c.Label, c.Amount.StringFixed(), c.Amount.Currency.String(),
		); err != nil {
			return fmt.Errorf("q.InsertOrderChargeLine: %w", err)
		}
	}
	return nil
}

const selectOrders = `SELECT id, user_id, status, currency, created_at, paid_at, completed_at FROM orders`

func (s *PGStore) FindByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	orders, err := s.list(ctx, "q.GetOrder", selectOrders+` WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	return orders[0], nil
}

// FindByStatus lists orders in one state, newest first.
func (s *PGStore) FindByStatus(ctx context.Context, status Status) ([]*Order, error) {
	return s.list(ctx, "q.ListOrdersByStatus", selectOrders+` WHERE status = $1 ORDER BY created_at DESC, id`, string(status))
}

// FindByUser lists a user's orders, newest first.
func (s *PGStore) FindByUser(ctx context.Context, userID uuid.UUID) ([]*Order, error) {
	return s.list(ctx, "q.ListOrdersForUser", selectOrders+` WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
}

func (s *PGStore) list(ctx context.Context, op, query string, args ...any) ([]*Order, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Order, error) {
		var (
			o      Order
			status string
			code   string
		)
		if err := row.Scan(&o.ID, &o.UserID, &status, &code, &o.CreatedAt, &o.PaidAt, &o.CompletedAt); err != nil {
			return nil, err
		}
		cur, err := currency.ParseISO(code)
		if err != nil {
			return nil, err
		}
		o.Status, o.Currency = Status(status), cur
		o.Lines, o.ChargeLines = []Line{}, []ChargeLine{}
		return &o, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if len(orders) == 0 {
		return orders, nil
	}
	if err := s.loadLines(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *PGStore) loadLines(ctx context.Context, orders []*Order) error {
	byID := make(map[uuid.UUID]*Order, len(orders))
	ids := make([]string, 0, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
		ids = append(ids, o.ID.String())
	}

	rows, err := s.db.Query(ctx, `
		SELECT order_id, product_id, name, kind, quantity, unit_price::text, currency
		FROM order_lines WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("q.ListOrderLines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			orderID      uuid.UUID
			l            Line
			amount, code string
		)
		if err := rows.Scan(&orderID, &l.ProductID, &l.Name, &l.Kind, &l.Quantity, &amount, &code); err != nil {
			return fmt.Errorf("q.ListOrderLines scan: %w", err)
		}
		if l.UnitPrice, err = money.Parse(amount, code); err != nil {
			return err
		}
		byID[orderID].Lines = append(byID[orderID].Lines, l)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("q.ListOrderLines: %w", err)
	}

	charges, err := s.db.Query(ctx, `
		SELECT order_id, label, amount::text, currency
		FROM order_charge_lines WHERE order_id = ANY($1::uuid[]) ORDER BY order_id, position`, ids)
	if err != nil {
		return fmt.Errorf("q.ListOrderChargeLines: %w", err)
	}
	defer charges.Close()
	for charges.Next() {
		var (
			orderID      uuid.UUID
			c            ChargeLine
			amount, code string
		)
		if err := charges.Scan(&orderID, &c.Label, &amount, &code); err != nil {
			return fmt.Errorf("q.ListOrderChargeLines scan: %w", err)
		}
		if c.Amount, err = money.Parse(amount, code); err != nil {
			return err
		}
		byID[orderID].ChargeLines = append(byID[orderID].ChargeLines, c)
	}
	if err := charges.Err(); err != nil {
		return fmt.Errorf("q.ListOrderChargeLines: %w", err)
	}
	return nil
}
