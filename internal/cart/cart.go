// Package cart keeps per-user shopping carts in Redis. A cart line holds either
// a catalog item snapshot or a voucher redemption.
package cart

import (
	"errors"
	"fmt"

	"github.com/samber/lo"
	"golang.org/x/text/currency"

	"github.com/noah-isme/videoshop/internal/catalog"
	"github.com/noah-isme/videoshop/internal/money"
	"github.com/noah-isme/videoshop/internal/voucher"
)

var (
	// ErrNotFound is returned when a cart line does not exist.
	ErrNotFound = errors.New("cart: line not found")
	// ErrInvalidArgument is returned for malformed cart changes.
	ErrInvalidArgument = errors.New("cart: invalid argument")
)

// MaxQuantity is the most units of one item added per request.
const MaxQuantity = 5

// Quantity is a non-negative number of units.
type Quantity int

// ClampQuantity turns a requested number into a quantity: anything outside
// 1..MaxQuantity becomes 1.
func ClampQuantity(n int) Quantity {
	if n <= 0 || n > MaxQuantity {
		return 1
	}
	return Quantity(n)
}

func (q Quantity) IsZero() bool                      { return q == 0 }
func (q Quantity) IsGreaterThan(other Quantity) bool { return q > other }
func (q Quantity) IsLessThan(other Quantity) bool    { return q < other }
func (q Quantity) Add(other Quantity) Quantity       { return q + other }

// Line is one cart entry. Exactly one of Product and UsedVoucher is set.
type Line struct {
	Product     *catalog.Buyable     `json:"product,omitempty"`
	UsedVoucher *voucher.UsedVoucher `json:"usedVoucher,omitempty"`
	Quantity    Quantity             `json:"quantity"`
}

// ProductID is the catalog id, or the SoldVoucher identifier for redemptions.
func (l Line) ProductID() string {
	if l.UsedVoucher != nil {
		return l.UsedVoucher.Identifier()
	}
	if l.Product != nil {
		return l.Product.ID.String()
	}
	return ""
}

// Name is the display name of the line.
func (l Line) Name() string {
	if l.UsedVoucher != nil {
		return "Used gift voucher"
	}
	if l.Product != nil {
		return l.Product.Name
	}
	return ""
}

// Kind is the product type, or USED_VOUCHER.
func (l Line) Kind() string {
	if l.UsedVoucher != nil {
		return KindUsedVoucher
	}
	if l.Product != nil {
		return string(l.Product.Type)
	}
	return ""
}

// KindUsedVoucher marks redemption lines.
const KindUsedVoucher = "USED_VOUCHER"

// UnitPrice is the price of one unit; negative for redemptions.
func (l Line) UnitPrice() money.Money {
	if l.UsedVoucher != nil {
		return l.UsedVoucher.Price()
	}
	if l.Product != nil {
		return l.Product.Price
	}
	return money.Money{}
}

// Subtotal is UnitPrice times Quantity.
func (l Line) Subtotal() money.Money {
	return l.UnitPrice().Mul(int64(l.Quantity))
}

// Cart is an ordered list of lines. Line order is insertion order and decides
// how vouchers are apportioned at checkout.
type Cart struct {
	Lines []Line `json:"lines"`
}

// HasVoucher reports whether a redemption of identifier is already in the cart.
func (c *Cart) HasVoucher(identifier string) bool {
	return lo.ContainsBy(c.Lines, func(l Line) bool {
		return l.UsedVoucher != nil && l.UsedVoucher.Identifier() == identifier
	})
}

// AddOrUpdateItem adds q units of b, merging with an existing line for b.
func (c *Cart) AddOrUpdateItem(b catalog.Buyable, q Quantity) error {
	if q.IsZero() || q < 0 {
		return fmt.Errorf("quantity %d: %w", q, ErrInvalidArgument)
	}
	for i := range c.Lines {
		if c.Lines[i].Product != nil && c.Lines[i].Product.ID == b.ID {
			c.Lines[i].Quantity = c.Lines[i].Quantity.Add(q)
			return nil
		}
	}
	product := b
	product.Comments = nil
	c.Lines = append(c.Lines, Line{Product: &product, Quantity: q})
	return nil
}

// AddUsedVoucher appends a bound redemption with quantity one.
func (c *Cart) AddUsedVoucher(uv *voucher.UsedVoucher) error {
	if uv == nil || !uv.IsBound() {
		return fmt.Errorf("used voucher must be bound: %w", ErrInvalidArgument)
	}
	if c.HasVoucher(uv.Identifier()) {
		return fmt.Errorf("voucher %s: %w", uv.Identifier(), voucher.ErrAlreadyUsed)
	}
	c.Lines = append(c.Lines, Line{UsedVoucher: uv, Quantity: 1})
	return nil
}

// Remove drops the line for productID.
func (c *Cart) Remove(productID string) error {
	before := len(c.Lines)
	c.Lines = lo.Reject(c.Lines, func(l Line, _ int) bool { return l.ProductID() == productID })
	if len(c.Lines) == before {
		return fmt.Errorf("line %s: %w", productID, ErrNotFound)
	}
	return nil
}

// Items returns the catalog lines, redemptions excluded.
func (c *Cart) Items() []Line {
	return lo.Filter(c.Lines, func(l Line, _ int) bool { return l.Product != nil })
}

// UsedVouchers returns the redemptions in cart order.
func (c *Cart) UsedVouchers() []*voucher.UsedVoucher {
	return lo.FilterMap(c.Lines, func(l Line, _ int) (*voucher.UsedVoucher, bool) {
		return l.UsedVoucher, l.UsedVoucher != nil
	})
}

// Total sums all subtotals, redemption credits included.
func (c *Cart) Total(cur currency.Unit) (money.Money, error) {
	return money.Sum(cur, lo.Map(c.Lines, func(l Line, _ int) money.Money { return l.Subtotal() })...)
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Clear removes every line.
func (c *Cart) Clear() { c.Lines = nil }

// LineView is the API shape of a line.
type LineView struct {
	ProductID   string               `json:"productId"`
	Name        string               `json:"name"`
	Kind        string               `json:"kind"`
	Quantity    Quantity             `json:"quantity"`
	UnitPrice   money.Money          `json:"unitPrice"`
	Subtotal    money.Money          `json:"subtotal"`
	UsedVoucher *voucher.UsedVoucher `json:"usedVoucher,omitempty"`
}

// View is the API shape of a cart.
type View struct {
	Lines []LineView  `json:"lines"`
	Total money.Money `json:"total"`
}

// View renders the cart with its total in cur.
func (c *Cart) View(cur currency.Unit) (View, error) {
	total, err := c.Total(cur)
	if err != nil {
		return View{}, err
	}
	lines := lo.Map(c.Lines, func(l Line, _ int) LineView {
		return LineView{
			ProductID:   l.ProductID(),
			Name:        l.Name(),
			Kind:        l.Kind(),
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice(),
			Subtotal:    l.Subtotal(),
			UsedVoucher: l.UsedVoucher,
		}
	})
	return View{Lines: lines, Total: total}, nil
}
