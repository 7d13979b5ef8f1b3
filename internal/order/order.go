// Package order models completed purchases: ordered product lines, extra
// charge lines and a status that moves from OPEN through PAID to COMPLETED.
package order

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"golang.org/x/text/currency"

	"github.com/noah-isme/videoshop/internal/money"
)

var (
	ErrNotFound        = errors.New("order: not found")
	ErrInvalidArgument = errors.New("order: invalid argument")
	ErrIllegalState    = errors.New("order: illegal state")
)

// Status is the order lifecycle state.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusPaid      Status = "PAID"
	StatusCompleted Status = "COMPLETED"
)

// Line is one ordered product. UnitPrice is negative for voucher redemptions.
type Line struct {
	ProductID string      `json:"productId"`
	Name      string      `json:"name"`
	Kind      string      `json:"kind"`
	Quantity  int         `json:"quantity"`
	UnitPrice money.Money `json:"unitPrice"`
}

// Subtotal is UnitPrice times Quantity.
func (l Line) Subtotal() money.Money { return l.UnitPrice.Mul(int64(l.Quantity)) }

// ChargeLine is an amount added to the order outside of its product lines.
type ChargeLine struct {
	Label  string      `json:"label"`
	Amount money.Money `json:"amount"`
}

// Order is a purchase by one user.
type Order struct {
	ID          uuid.UUID     `json:"id"`
	UserID      uuid.UUID     `json:"userId"`
	Status      Status        `json:"status"`
	Currency    currency.Unit `json:"-"`
	Lines       []Line        `json:"lines"`
	ChargeLines []ChargeLine  `json:"chargeLines"`
	CreatedAt   time.Time     `json:"createdAt"`
	PaidAt      *time.Time    `json:"paidAt,omitempty"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// New opens an empty order.
func New(userID uuid.UUID, cur currency.Unit, now time.Time) *Order {
	return &Order{
		ID:          uuid.New(),
		UserID:      userID,
		Status:      StatusOpen,
		Currency:    cur,
		Lines:       []Line{},
		ChargeLines: []ChargeLine{},
		CreatedAt:   now,
	}
}

// AddLine appends a product line to an open order.
func (o *Order) AddLine(l Line) error {
	if o.Status != StatusOpen {
		return fmt.Errorf("add line to %s order: %w", o.Status, ErrIllegalState)
	}
	if l.Quantity <= 0 {
		return fmt.Errorf("line %s quantity %d: %w", l.ProductID, l.Quantity, ErrInvalidArgument)
	}
	if l.UnitPrice.Currency != o.Currency {
		return fmt.Errorf("line %s: %w", l.ProductID, money.ErrCurrencyMismatch)
	}
	o.Lines = append(o.Lines, l)
	return nil
}

// AddChargeLine appends a charge to an open order.
func (o *Order) AddChargeLine(amount money.Money, label string) error {
	if o.Status != StatusOpen {
		return fmt.Errorf("add charge to %s order: %w", o.Status, ErrIllegalState)
	}
	if amount.Currency != o.Currency {
		return fmt.Errorf("charge %q: %w", label, money.ErrCurrencyMismatch)
	}
	o.ChargeLines = append(o.ChargeLines, ChargeLine{Label: label, Amount: amount})
	return nil
}

// Total sums product lines and charge lines.
func (o *Order) Total() (money.Money, error) {
	values := lo.Map(o.Lines, func(l Line, _ int) money.Money { return l.Subtotal() })
	values = append(values, lo.Map(o.ChargeLines, func(c ChargeLine, _ int) money.Money { return c.Amount })...)
	return money.Sum(o.Currency, values...)
}

// Pay moves an open order to PAID.
func (o *Order) Pay(now time.Time) error {
	if o.Status != StatusOpen {
		return fmt.Errorf("pay %s order: %w", o.Status, ErrIllegalState)
	}
	o.Status = StatusPaid
	o.PaidAt = &now
	return nil
}

// Complete moves a paid order to COMPLETED.
func (o *Order) Complete(now time.Time) error {
	if o.Status != StatusPaid {
		return fmt.Errorf("complete %s order: %w", o.Status, ErrIllegalState)
	}
	o.Status = StatusCompleted
	o.CompletedAt = &now
	return nil
}

type orderAlias Order

// MarshalJSON adds the computed total.
func (o Order) MarshalJSON() ([]byte, error) {
	total, err := o.Total()
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		orderAlias
		Total money.Money `json:"total"`
	}{orderAlias: orderAlias(o), Total: total})
}
