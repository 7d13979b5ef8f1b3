package voucher

import (
	"context"
	"fmt"

	"github.com/noah-isme/videoshop/internal/money"
)

// Reconciliation is the outcome of apportioning an order over its vouchers.
type Reconciliation struct {
	// Outstanding is the due sum after the pass; zero whenever the vouchers covered the order.
	Outstanding money.Money
	// Remainder is the value left on all vouchers together.
	Remainder money.Money
	// Consumed is the value taken off the vouchers by this order.
	Consumed money.Money
}

// PersistFunc is called after each voucher is renewed, before the next one is
// looked at. previous is the available value before renewal.
type PersistFunc func(ctx context.Context, uv *UsedVoucher, previous money.Money) error

// Reconcile walks the vouchers in cart order against dueSum, the order total
// including the voucher credit lines. While dueSum is negative the vouchers
// cover more than the order: a voucher is left untouched when the overshoot
// exceeds it, otherwise it keeps exactly the overshoot. Once dueSum is
// non-negative every further voucher is spent completely.
func Reconcile(ctx context.Context, dueSum money.Money, vouchers []*UsedVoucher, persist PersistFunc) (Reconciliation, error) {
	cur := dueSum.Currency
	zero := money.Zero(cur)
	remainder, consumed := zero, zero

	for _, uv := range vouchers {
		if !uv.IsBound() {
			return Reconciliation{}, fmt.Errorf("reconcile %s: %w", uv.Identifier(), ErrIllegalState)
		}
		previous := uv.AvailableValue()

		var next money.Money
		if dueSum.IsNegative() {
			covered, err := dueSum.Add(previous)
			if err != nil {
				return Reconciliation{}, err
			}
			if covered.IsPositiveOrZero() {
				next = dueSum.Neg()
				dueSum = zero
			} else {
				next = previous
				dueSum = covered
			}
		} else {
			next = zero
		}

		if err := uv.Renew(next); err != nil {
			return Reconciliation{}, err
		}
		if persist != nil {
			if err := persist(ctx, uv, previous); err != nil {
				return Reconciliation{}, err
			}
		}

		used, err := previous.Sub(next)
		if err != nil {
			return Reconciliation{}, err
		}
		if consumed, err = consumed.Add(used); err != nil {
			return Reconciliation{}, err
		}
		if remainder, err = remainder.Add(next); err != nil {
			return Reconciliation{}, err
		}
	}
	return Reconciliation{Outstanding: dueSum, Remainder: remainder, Consumed: consumed}, nil
}
