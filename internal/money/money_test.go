package money_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"

	"github.com/noah-isme/videoshop/internal/money"
)

func TestArithmetic(t *testing.T) {
	ten := money.FromInt(10, currency.EUR)
	four := money.MustParse("4.50", "EUR")

	sum, err := ten.Add(four)
	require.NoError(t, err)
	assert.Equal(t, "14.5 EUR", sum.String())

	diff, err := four.Sub(ten)
	require.NoError(t, err)
	assert.True(t, diff.IsNegative())
	assert.True(t, diff.Neg().Equal(money.MustParse("5.5", "EUR")))

	cmp, err := ten.Cmp(four)
	require.NoError(t, err)
	assert.Equal(t, 1, cmp)

	assert.True(t, money.Zero(currency.EUR).IsZero())
	assert.True(t, money.Zero(currency.EUR).IsPositiveOrZero())
	assert.True(t, ten.Mul(3).Equal(money.FromInt(30, currency.EUR)))
}

func TestCurrencyMismatch(t *testing.T) {
	eur := money.FromInt(1, currency.EUR)
	usd := money.FromInt(1, currency.USD)

	_, err := eur.Add(usd)
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)

	_, err = eur.Cmp(usd)
	require.ErrorIs(t, err, money.ErrCurrencyMismatch)
}

func TestZeroValueAdoptsCurrency(t *testing.T) {
	var acc money.Money
	got, err := acc.Add(money.FromInt(3, currency.EUR))
	require.NoError(t, err)
	assert.Equal(t, currency.EUR, got.Currency)
}

func TestJSONShape(t *testing.T) {
	raw, err := json.Marshal(money.FromInt(10, currency.EUR))
	require.NoError(t, err)
	assert.JSONEq(t, `{"amount":"10.00","currency":"EUR"}`, string(raw))

	var back money.Money
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.True(t, back.Equal(money.FromInt(10, currency.EUR)))
}

func TestParseRejectsGarbage(t *testing.T) {
	_, err := money.Parse("ten", "EUR")
	require.Error(t, err)
	_, err = money.Parse("10", "XXXX")
	require.Error(t, err)
}
