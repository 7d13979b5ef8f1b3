package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/videoshop/internal/db"
	"github.com/noah-isme/videoshop/internal/money"
)

// Store persists catalog entries.
type Store interface {
	FindByType(ctx context.Context, t BuyableType) ([]Buyable, error)
	FindByID(ctx context.Context, id uuid.UUID) (Buyable, error)
	Save(ctx context.Context, b Buyable) error
	AddComment(ctx context.Context, buyableID uuid.UUID, c Comment) error
}

// PGStore is the PostgreSQL Store.
type PGStore struct {
	db db.DBTX
}

// NewPGStore returns a store over a pool or transaction.
func NewPGStore(dbtx db.DBTX) *PGStore {
	return &PGStore{db: dbtx}
}

const selectBuyable = `SELECT id, name, type, price::text, currency, image, genre, description FROM buyables`

// FindByType lists entries of one type. Discs come newest id first, vouchers by
// ascending face value.
func (s *PGStore) FindByType(ctx context.Context, t BuyableType) ([]Buyable, error) {
	order := " ORDER BY id DESC"
	if t == Voucher {
		order = " ORDER BY price ASC, id ASC"
	}
	rows, err := s.db.Query(ctx, selectBuyable+" WHERE type = $1"+order, string(t))
	if err != nil {
		return nil, fmt.Errorf("q.FindBuyablesByType: %w", err)
	}
	defer rows.Close()

	var out []Buyable
	for rows.Next() {
		b, err := scanBuyable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("q.FindBuyablesByType: %w", err)
	}
	return out, nil
}

// FindByID loads one entry including its comments.
func (s *PGStore) FindByID(ctx context.Context, id uuid.UUID) (Buyable, error) {
	b, err := scanBuyable(s.db.QueryRow(ctx, selectBuyable+" WHERE id = $1", id))
	if err != nil {
		return Buyable{}, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, text, rating, created_at FROM comments WHERE buyable_id = $1 ORDER BY created_at, id`, id)
	if err != nil {
		return Buyable{}, fmt.Errorf("q.ListComments: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.Text, &c.Rating, &c.CreatedAt); err != nil {
			return Buyable{}, fmt.Errorf("q.ListComments scan: %w", err)
		}
		b.Comments = append(b.Comments, c)
	}
	if err := rows.Err(); err != nil {
		return Buyable{}, fmt.Errorf("q.ListComments: %w", err)
	}
	return b, nil
}

// Save upserts the entry. Comments are written through AddComment only.
func (s *PGStore) Save(ctx context.Context, b Buyable) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO buyables (id, name, type, price, currency, image, genre, description)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, type = EXCLUDED.type, price = EXCLUDED.price, currency = EXCLUDED.currency,
			image = EXCLUDED.image, genre = EXCLUDED.genre, description = EXCLUDED.description`,
		b.ID, b.Name, string(b.Type), b.Price.StringFixed(), b.Price.Currency.String(), b.Image, b.Genre, b.Description)
	if err != nil {
		return fmt.Errorf("q.SaveBuyable: %w", err)
	}
	return nil
}

// AddComment appends a comment to an existing entry.
func (s *PGStore) AddComment(ctx context.Context, buyableID uuid.UUID, c Comment) error {
	tag, err := s.db.Exec(ctx, `
		INSERT INTO comments (id, buyable_id, text, rating, created_at)
		SELECT $1, id, $3, $4, $5 FROM buyables WHERE id = $2`,
		c.ID, buyableID, c.Text, c.Rating, c.CreatedAt)
	if err != nil {
		return fmt.Errorf("q.AddComment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("buyable %s: %w", buyableID, ErrNotFound)
	}
	return nil
}

func scanBuyable(row pgx.Row) (Buyable, error) {
	var (
		b            Buyable
		typ          string
		amount, code string
	)
	if err := row.Scan(&b.ID, &b.Name, &typ, &amount, &code, &b.Image, &b.Genre, &b.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Buyable{}, ErrNotFound
		}
		return Buyable{}, fmt.Errorf("q.ScanBuyable: %w", err)
	}
	price, err := money.Parse(amount, code)
	if err != nil {
		return Buyable{}, fmt.Errorf("buyable %s price: %w", b.ID, err)
	}
	b.Type = BuyableType(typ)
	b.Price = price
	return b, nil
}
