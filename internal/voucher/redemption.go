package voucher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/videoshop/internal/money"
)

// Redemptions reports which SoldVouchers a cart already redeems.
type Redemptions interface {
	HasVoucher(identifier string) bool
}

// ValidateRedemption checks an (identifier, pass) pair against stored vouchers
// and the cart. Checks run in order: unknown or spent voucher, voucher already
// in the cart, wrong pass. On success it returns a UsedVoucher bound to the
// SoldVoucher, ready to be added to the cart with quantity one.
func ValidateRedemption(ctx context.Context, f Finder, identifier, pass string, cart Redemptions) (*UsedVoucher, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("voucher id is empty: %w", ErrInvalidArgument)
	}
	if pass == "" {
		return nil, fmt.Errorf("voucher pass is empty: %w", ErrInvalidArgument)
	}

	sv, err := f.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("voucher %s: %w", identifier, ErrNotFound)
		}
		return nil, err
	}
	if !sv.Active {
		return nil, fmt.Errorf("voucher %s is spent: %w", identifier, ErrNotFound)
	}
	if cart != nil && cart.HasVoucher(sv.Identifier) {
		return nil, fmt.Errorf("voucher %s: %w", identifier, ErrAlreadyUsed)
	}
	if !sv.MatchPass(pass) {
		return nil, fmt.Errorf("voucher %s: %w", identifier, ErrInvalidPassword)
	}
	return BoundUsedVoucher(sv), nil
}

// Updater loads SoldVouchers for update and writes them back.
type Updater interface {
	FindForUpdate(ctx context.Context, identifier string) (SoldVoucher, error)
	Save(ctx context.Context, v SoldVoucher) error
}

// ApplyRedemption sets the stored value of a SoldVoucher to amount, the value
// left after redemption. It is the only write path for voucher balances.
func ApplyRedemption(ctx context.Context, store Updater, identifier string, amount money.Money, now time.Time) (SoldVoucher, error) {
	sv, err := store.FindForUpdate(ctx, identifier)
	if err != nil {
		return SoldVoucher{}, err
	}
	if err := sv.SetValue(amount); err != nil {
		return SoldVoucher{}, err
	}
	sv.UpdatedAt = now
	if err := store.Save(ctx, sv); err != nil {
		return SoldVoucher{}, err
	}
	return sv, nil
}
