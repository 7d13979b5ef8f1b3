// Package inventory tracks how many units of each catalog entry are in stock.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/videoshop/internal/db"
	"github.com/noah-isme/videoshop/internal/money"
)

var (
	// ErrOutOfStock is returned when a decrement would drop below zero.
	ErrOutOfStock = errors.New("inventory: out of stock")
	// ErrNotFound is returned for products without a stock row.
	ErrNotFound = errors.New("inventory: not found")
)

// Item is one stock row joined with its catalog entry.
type Item struct {
	ProductID uuid.UUID   `json:"productId"`
	Name      string      `json:"name"`
	Type      string      `json:"type"`
	Price     money.Money `json:"price"`
	Quantity  int         `json:"quantity"`
}

// Store persists stock levels.
type Store struct {
	db db.DBTX
}

// NewStore returns a store over a pool or transaction.
func NewStore(dbtx db.DBTX) *Store {
	return &Store{db: dbtx}
}

// Quantity returns the units in stock; unknown products have none.
func (s *Store) Quantity(ctx context.Context, productID uuid.UUID) (int, error) {
	var qty int
	err := s.db.QueryRow(ctx, `SELECT quantity FROM stock WHERE product_id = $1`, productID).Scan(&qty)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("q.GetStock: %w", err)
	}
	return qty, nil
}

// Save sets the stock level of a product.
func (s *Store) Save(ctx context.Context, productID uuid.UUID, quantity int) error {
	if quantity < 0 {
		return fmt.Errorf("stock quantity %d: %w", quantity, ErrOutOfStock)
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO stock (product_id, quantity) VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET quantity = EXCLUDED.quantity`, productID, quantity)
	if err != nil {
		return fmt.Errorf("q.SaveStock: %w", err)
	}
	return nil
}

// Decrement removes quantity units in a single conditional update.
func (s *Store) Decrement(ctx context.Context, productID uuid.UUID, quantity int) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE stock SET quantity = quantity - $2 WHERE product_id = $1 AND quantity >= $2`, productID, quantity)
	if err != nil {
		return fmt.Errorf("q.DecrementStock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("product %s: %w", productID, ErrOutOfStock)
	}
	return nil
}

// List returns every stock row with catalog data, by type then name.
func (s *Store) List(ctx context.Context) ([]Item, error) {
	rows, err := s.db.Query(ctx, `
		SELECT s.product_id, b.name, b.type, b.price::text, b.currency, s.quantity
		FROM stock s JOIN buyables b ON b.id = s.product_id
		ORDER BY b.type, b.name`)
	if err != nil {
		return nil, fmt.Errorf("q.ListStock: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var (
			it           Item
			amount, code string
		)
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Type, &amount, &code, &it.Quantity); err != nil {
			return nil, fmt.Errorf("q.ListStock scan: %w", err)
		}
		if it.Price, err = money.Parse(amount, code); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("q.ListStock: %w", err)
	}
	return items, nil
}
