package voucher

import (
	"context"
	"fmt"
	"time"

	"github.com/noah-isme/videoshop/internal/money"
)

// Creator persists new SoldVouchers.
type Creator interface {
	Create(ctx context.Context, v SoldVoucher) error
}

// IssueLine is a purchased voucher product: its face value and how many were bought.
type IssueLine struct {
	UnitPrice money.Money
	Quantity  int
}

// Issue creates and persists Quantity SoldVouchers per line, each worth the
// line's unit price and carrying a fresh pass.
func Issue(ctx context.Context, store Creator, gen PassGenerator, now time.Time, lines []IssueLine) ([]SoldVoucher, error) {
	var issued []SoldVoucher
	for _, line := range lines {
		for i := 0; i < line.Quantity; i++ {
			pass, err := gen.Generate()
			if err != nil {
				return nil, fmt.Errorf("generate pass: %w", err)
			}
			sv, err := NewSoldVoucher(line.UnitPrice, pass, now)
			if err != nil {
				return nil, err
			}
			if err := store.Create(ctx, sv); err != nil {
				return nil, err
			}
			issued = append(issued, sv)
		}
	}
	return issued, nil
}
