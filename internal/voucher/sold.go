package voucher

import (
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/videoshop/internal/money"
)

// SoldVoucher is a purchased gift voucher: a stable identifier, a secret pass
// and the value still left on it. A voucher whose value reaches zero becomes
// inactive but is kept for history.
type SoldVoucher struct {
	Identifier string      `json:"identifier"`
	Pass       string      `json:"pass"`
	Value      money.Money `json:"value"`
	Active     bool        `json:"active"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// NewSoldVoucher creates an active voucher worth value. value must be positive.
func NewSoldVoucher(value money.Money, pass string, now time.Time) (SoldVoucher, error) {
	if !value.IsPositive() {
		return SoldVoucher{}, fmt.Errorf("sold voucher value %s must be positive: %w", value, ErrInvalidArgument)
	}
	if pass == "" {
		return SoldVoucher{}, fmt.Errorf("sold voucher pass is empty: %w", ErrInvalidArgument)
	}
	return SoldVoucher{
		Identifier: uuid.NewString(),
		Pass:       pass,
		Value:      value,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// SetValue replaces the remaining value. Zero deactivates the voucher.
func (v *SoldVoucher) SetValue(value money.Money) error {
	if value.IsNegative() {
		return fmt.Errorf("sold voucher %s value %s: %w", v.Identifier, value, ErrInvalidArgument)
	}
	if _, err := v.Value.Cmp(value); err != nil {
		return fmt.Errorf("sold voucher %s: %w", v.Identifier, err)
	}
	v.Value = value
	v.Active = value.IsPositive()
	return nil
}

// MatchPass compares in constant time.
func (v SoldVoucher) MatchPass(pass string) bool {
	return subtle.ConstantTimeCompare([]byte(v.Pass), []byte(pass)) == 1
}
