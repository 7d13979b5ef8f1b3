package voucher

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/videoshop/internal/db"
	"github.com/noah-isme/videoshop/internal/money"
)

// UsedVoucherRecord is the history row written for each voucher an order redeems.
type UsedVoucherRecord struct {
	ID                    uuid.UUID
	SoldVoucherIdentifier string
	OrderID               uuid.UUID
	Applied               money.Money
	Remaining             money.Money
	CreatedAt             time.Time
}

// Store is the full persistence port for vouchers.
type Store interface {
	Finder
	Creator
	Updater
	FindAll(ctx context.Context) ([]SoldVoucher, error)
	FindActive(ctx context.Context) ([]SoldVoucher, error)
	SaveUsedVoucher(ctx context.Context, rec UsedVoucherRecord) error
}

var _ Store = (*PGStore)(nil)

// PGStore is the PostgreSQL Store.
type PGStore struct {
	db db.DBTX
}

// NewPGStore returns a store over a pool or transaction. FindForUpdate only
// locks rows when the store runs inside a transaction.
func NewPGStore(dbtx db.DBTX) *PGStore {
	return &PGStore{db: dbtx}
}

const selectSold = `SELECT identifier::text, pass, value::text, currency, active, created_at, updated_at FROM sold_vouchers`

func (s *PGStore) FindByIdentifier(ctx context.Context, identifier string) (SoldVoucher, error) {
	return s.findOne(ctx, "q.FindSoldVoucher", selectSold+" WHERE identifier = $1", identifier)
}

func (s *PGStore) FindForUpdate(ctx context.Context, identifier string) (SoldVoucher, error) {
	return s.findOne(ctx, "q.FindSoldVoucherForUpdate", selectSold+" WHERE identifier = $1 FOR UPDATE", identifier)
}

func (s *PGStore) findOne(ctx context.Context, op, query, identifier string) (SoldVoucher, error) {
	id, err := uuid.Parse(identifier)
	if err != nil {
		return SoldVoucher{}, fmt.Errorf("%s %q: %w", op, identifier, ErrNotFound)
	}
	sv, err := scanSold(s.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return SoldVoucher{}, fmt.Errorf("%s %s: %w", op, identifier, ErrNotFound)
	}
	if err != nil {
		return SoldVoucher{}, fmt.Errorf("%s: %w", op, err)
	}
	return sv, nil
}

// FindAll lists every voucher ever sold, oldest first.
func (s *PGStore) FindAll(ctx context.Context) ([]SoldVoucher, error) {
	return s.list(ctx, "q.ListSoldVouchers", selectSold+" ORDER BY created_at, identifier")
}

// FindActive lists vouchers with value left, oldest first.
func (s *PGStore) FindActive(ctx context.Context) ([]SoldVoucher, error) {
	return s.list(ctx, "q.ListActiveSoldVouchers", selectSold+" WHERE active ORDER BY created_at, identifier")
}

func (s *PGStore) list(ctx context.Context, op, query string) ([]SoldVoucher, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	out := []SoldVoucher{}
	for rows.Next() {
		sv, err := scanSold(rows)
		if err != nil {
			return nil, fmt.Errorf("%s scan: %w", op, err)
		}
		out = append(out, sv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func (s *PGStore) Create(ctx context.Context, v SoldVoucher) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sold_vouchers (identifier, pass, value, currency, active, created_at, updated_at)
		VALUES ($1::uuid, $2, $3::numeric, $4, $5, $6, $7)`,
		v.Identifier, v.Pass, v.Value.StringFixed(), v.Value.Currency.String(), v.Active, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("q.CreateSoldVoucher: %w", err)
	}
	return nil
}

func (s *PGStore) Save(ctx context.Context, v SoldVoucher) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE sold_vouchers SET value = $2::numeric, currency = $3, active = $4, updated_at = $5
		WHERE identifier = $1::uuid`,
		v.Identifier, v.Value.StringFixed(), v.Value.Currency.String(), v.Active, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("q.SaveSoldVoucher: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("q.SaveSoldVoucher %s: %w", v.Identifier, ErrNotFound)
	}
	return nil
}

func (s *PGStore) SaveUsedVoucher(ctx context.Context, rec UsedVoucherRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO used_vouchers (id, sold_voucher_identifier, order_id, applied, remaining, currency, created_at)
		VALUES ($1, $2::uuid, $3, $4::numeric, $5::numeric, $6, $7)`,
		rec.ID, rec.SoldVoucherIdentifier, rec.OrderID, rec.Applied.StringFixed(), rec.Remaining.StringFixed(),
		rec.Remaining.Currency.String(), rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("q.SaveUsedVoucher: %w", err)
	}
	return nil
}

func scanSold(row pgx.Row) (SoldVoucher, error) {
	var (
		sv           SoldVoucher
		amount, code string
	)
	if err := row.Scan(&sv.Identifier, &sv.Pass, &amount, &code, &sv.Active, &sv.CreatedAt, &sv.UpdatedAt); err != nil {
		return SoldVoucher{}, err
	}
	value, err := money.Parse(amount, code)
	if err != nil {
		return SoldVoucher{}, err
	}
	sv.Value = value
	return sv, nil
}
