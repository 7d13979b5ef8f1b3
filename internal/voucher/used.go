package voucher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/noah-isme/videoshop/internal/money"
)

// Finder looks up SoldVouchers by identifier.
type Finder interface {
	FindByIdentifier(ctx context.Context, identifier string) (SoldVoucher, error)
}

// UsedVoucher is a cart line redeeming a SoldVoucher. It starts unbound, holding
// only the identifier, and becomes bound once the SoldVoucher's value is copied
// in. Its price is always the negated available value.
type UsedVoucher struct {
	identifier string
	bound      bool
	available  money.Money
}

// NewUsedVoucher returns an unbound UsedVoucher.
func NewUsedVoucher(identifier string) *UsedVoucher {
	return &UsedVoucher{identifier: identifier}
}

// BoundUsedVoucher returns a UsedVoucher already bound to sv.
func BoundUsedVoucher(sv SoldVoucher) *UsedVoucher {
	u := NewUsedVoucher(sv.Identifier)
	u.bind(sv)
	return u
}

func (u *UsedVoucher) Identifier() string { return u.identifier }
func (u *UsedVoucher) IsBound() bool      { return u.bound }

// AvailableValue is the value the redemption can still contribute.
func (u *UsedVoucher) AvailableValue() money.Money { return u.available }

// Price is the cart line price, -AvailableValue.
func (u *UsedVoucher) Price() money.Money { return u.available.Neg() }

// Bind copies the current value of sv. It is also how a bound instance is
// refreshed from storage.
func (u *UsedVoucher) Bind(sv SoldVoucher) error {
	if sv.Identifier != u.identifier {
		return fmt.Errorf("bind %s to sold voucher %s: %w", u.identifier, sv.Identifier, ErrInvalidArgument)
	}
	u.bind(sv)
	return nil
}

func (u *UsedVoucher) bind(sv SoldVoucher) {
	u.available = sv.Value
	u.bound = true
}

// FindAssigned binds the voucher by looking its identifier up in f.
func (u *UsedVoucher) FindAssigned(ctx context.Context, f Finder) error {
	sv, err := f.FindByIdentifier(ctx, u.identifier)
	if err != nil {
		return err
	}
	return u.Bind(sv)
}

// Renew sets the available value to amount, the value that stays on the
// voucher after the current order. Renewing twice with the same amount is a no-op.
func (u *UsedVoucher) Renew(amount money.Money) error {
	if !u.bound {
		return fmt.Errorf("renew unbound used voucher %s: %w", u.identifier, ErrIllegalState)
	}
	if amount.IsNegative() {
		return fmt.Errorf("renew used voucher %s with %s: %w", u.identifier, amount, ErrInvalidArgument)
	}
	if _, err := u.available.Cmp(amount); err != nil {
		return fmt.Errorf("renew used voucher %s: %w", u.identifier, err)
	}
	u.available = amount
	return nil
}

type usedVoucherJSON struct {
	Identifier     string       `json:"identifier"`
	Bound          bool         `json:"bound"`
	AvailableValue *money.Money `json:"availableValue,omitempty"`
	Price          *money.Money `json:"price,omitempty"`
}

// MarshalJSON exposes the state for cart storage and API responses.
func (u *UsedVoucher) MarshalJSON() ([]byte, error) {
	out := usedVoucherJSON{Identifier: u.identifier, Bound: u.bound}
	if u.bound {
		available, price := u.available, u.Price()
		out.AvailableValue, out.Price = &available, &price
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores the state written by MarshalJSON; price is derived.
func (u *UsedVoucher) UnmarshalJSON(data []byte) error {
	var in usedVoucherJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Bound && in.AvailableValue == nil {
		return fmt.Errorf("bound used voucher %s without value: %w", in.Identifier, ErrInvalidArgument)
	}
	*u = UsedVoucher{identifier: in.Identifier, bound: in.Bound}
	if in.Bound {
		if in.AvailableValue.IsNegative() {
			return fmt.Errorf("used voucher %s negative value: %w", in.Identifier, ErrInvalidArgument)
		}
		u.available = *in.AvailableValue
	}
	return nil
}
