package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/videoshop/internal/money"
)

var (
	// ErrNotFound is returned when no buyable or comment target exists.
	ErrNotFound = errors.New("catalog: not found")
	// ErrInvalidArgument is returned for malformed buyables or comments.
	ErrInvalidArgument = errors.New("catalog: invalid argument")
)

// BuyableType classifies catalog entries.
type BuyableType string

const (
	DVD     BuyableType = "DVD"
	BluRay  BuyableType = "BLURAY"
	Voucher BuyableType = "VOUCHER"
)

// IsDisc is true for DVD and BLURAY.
func (t BuyableType) IsDisc() bool {
	return t == DVD || t == BluRay
}

// ParseBuyableType accepts the upper- or lower-case type name.
func ParseBuyableType(s string) (BuyableType, error) {
	switch t := BuyableType(strings.ToUpper(strings.TrimSpace(s))); t {
	case DVD, BluRay, Voucher:
		return t, nil
	}
	return "", fmt.Errorf("buyable type %q: %w", s, ErrInvalidArgument)
}

// Buyable is anything the shop sells: a disc or a gift voucher.
type Buyable struct {
	ID          uuid.UUID   `json:"id"`
	Name        string      `json:"name"`
	Type        BuyableType `json:"type"`
	Price       money.Money `json:"price"`
	Image       string      `json:"image,omitempty"`
	Genre       string      `json:"genre,omitempty"`
	Description string      `json:"description,omitempty"`
	Comments    []Comment   `json:"comments,omitempty"`
}

// Comment is a customer review of a disc.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	Text      string    `json:"text"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewDisc builds a DVD or Blu-ray entry.
func NewDisc(name, image string, price money.Money, genre string, typ BuyableType, description string) (Buyable, error) {
	if !typ.IsDisc() {
		return Buyable{}, fmt.Errorf("disc type %q: %w", typ, ErrInvalidArgument)
	}
	if strings.TrimSpace(name) == "" {
		return Buyable{}, fmt.Errorf("disc name is empty: %w", ErrInvalidArgument)
	}
	if price.IsNegative() {
		return Buyable{}, fmt.Errorf("disc price %s: %w", price, ErrInvalidArgument)
	}
	return Buyable{
		ID:          uuid.New(),
		Name:        name,
		Type:        typ,
		Price:       price,
		Image:       image,
		Genre:       genre,
		Description: description,
	}, nil
}

// NewVoucher builds a gift voucher product of the given face value.
func NewVoucher(price money.Money) (Buyable, error) {
	if !price.IsPositive() {
		return Buyable{}, fmt.Errorf("voucher price %s must be positive: %w", price, ErrInvalidArgument)
	}
	return Buyable{
		ID:    uuid.New(),
		Name:  "Gift voucher of " + price.String(),
		Type:  Voucher,
		Price: price,
	}, nil
}

// NewComment validates and timestamps a review.
func NewComment(text string, rating int, now time.Time) (Comment, error) {
	if strings.TrimSpace(text) == "" {
		return Comment{}, fmt.Errorf("comment text is empty: %w", ErrInvalidArgument)
	}
	if rating < 1 || rating > 5 {
		return Comment{}, fmt.Errorf("rating %d out of range 1..5: %w", rating, ErrInvalidArgument)
	}
	return Comment{ID: uuid.New(), Text: strings.TrimSpace(text), Rating: rating, CreatedAt: now}, nil
}
