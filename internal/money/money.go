// Package money provides an immutable monetary amount bound to a currency.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ErrCurrencyMismatch is returned when arithmetic mixes two currencies.
var ErrCurrencyMismatch = errors.New("money: currency mismatch")

// Money is a decimal amount in a single currency. The zero value has no currency
// and adopts the currency of the first operand it is combined with.
type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

// New builds a Money value.
func New(amount decimal.Decimal, cur currency.Unit) Money {
	return Money{Amount: amount, Currency: cur}
}

// Zero returns a zero amount in the given currency.
func Zero(cur currency.Unit) Money {
	return Money{Amount: decimal.Zero, Currency: cur}
}

// FromInt is a shorthand for whole amounts.
func FromInt(amount int64, cur currency.Unit) Money {
	return Money{Amount: decimal.NewFromInt(amount), Currency: cur}
}

// Parse reads an amount string and an ISO 4217 code.
func Parse(amount, code string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return Money{}, fmt.Errorf("amount[%s] is not valid: %w", amount, err)
	}
	cur, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return Money{}, fmt.Errorf("currency[%s] is not valid: %w", code, err)
	}
	return Money{Amount: d, Currency: cur}, nil
}

// MustParse is Parse for constants and tests.
func MustParse(amount, code string) Money {
	m, err := Parse(amount, code)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) unit(other Money) (currency.Unit, error) {
	switch {
	case m.Currency == currency.Unit{}:
		return other.Currency, nil
	case other.Currency == currency.Unit{}:
		return m.Currency, nil
	case m.Currency != other.Currency:
		return currency.Unit{}, fmt.Errorf("%s vs %s: %w", m.Currency, other.Currency, ErrCurrencyMismatch)
	}
	return m.Currency, nil
}

// Add returns m + other.
func (m Money) Add(other Money) (Money, error) {
	cur, err := m.unit(other)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Add(other.Amount), Currency: cur}, nil
}

// Sub returns m - other.
func (m Money) Sub(other Money) (Money, error) {
	cur, err := m.unit(other)
	if err != nil {
		return Money{}, err
	}
	return Money{Amount: m.Amount.Sub(other.Amount), Currency: cur}, nil
}

// Mul multiplies the amount by an integral factor.
func (m Money) Mul(n int64) Money {
	return Money{Amount: m.Amount.Mul(decimal.NewFromInt(n)), Currency: m.Currency}
}

// Neg returns -m.
func (m Money) Neg() Money {
	return Money{Amount: m.Amount.Neg(), Currency: m.Currency}
}

// Cmp compares two amounts of the same currency: -1, 0 or +1.
func (m Money) Cmp(other Money) (int, error) {
	if _, err := m.unit(other); err != nil {
		return 0, err
	}
	return m.Amount.Cmp(other.Amount), nil
}

// Equal reports whether both amount and currency match.
func (m Money) Equal(other Money) bool {
	return m.Currency == other.Currency && m.Amount.Equal(other.Amount)
}

func (m Money) IsNegative() bool { return m.Amount.IsNegative() }
func (m Money) IsPositive() bool { return m.Amount.IsPositive() }
func (m Money) IsZero() bool     { return m.Amount.IsZero() }

// IsPositiveOrZero reports m >= 0.
func (m Money) IsPositiveOrZero() bool { return !m.Amount.IsNegative() }

// String renders "10 EUR".
func (m Money) String() string {
	return m.Amount.String() + " " + m.Currency.String()
}

// StringFixed renders the amount with two decimals for persistence.
func (m Money) StringFixed() string {
	return m.Amount.StringFixed(2)
}

type wireMoney struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// MarshalJSON encodes as {"amount":"10.00","currency":"EUR"}.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMoney{Amount: m.Amount.StringFixed(2), Currency: m.Currency.String()})
}

// UnmarshalJSON decodes the MarshalJSON shape.
func (m *Money) UnmarshalJSON(data []byte) error {
	var w wireMoney
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	parsed, err := Parse(w.Amount, w.Currency)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum adds all values, starting from zero in cur.
func Sum(cur currency.Unit, values ...Money) (Money, error) {
	total := Zero(cur)
	for _, v := range values {
		var err error
		if total, err = total.Add(v); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}
