// Package voucher implements the gift voucher lifecycle: issuing SoldVouchers
// when a voucher is bought, redeeming them into a cart as UsedVouchers, and
// apportioning their value across an order at checkout.
package voucher

import "errors"

var (
	ErrInvalidArgument = errors.New("voucher: invalid argument")
	ErrNotFound        = errors.New("voucher: not found")
	ErrAlreadyUsed     = errors.New("voucher: already used in cart")
	ErrInvalidPassword = errors.New("voucher: invalid password")
	ErrIllegalState    = errors.New("voucher: illegal state")
)
