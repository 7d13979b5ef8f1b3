package cart

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/currency"

	"github.com/noah-isme/videoshop/internal/catalog"
	"github.com/noah-isme/videoshop/internal/obs"
	"github.com/noah-isme/videoshop/internal/voucher"
)

// Catalog resolves catalog items added to carts.
type Catalog interface {
	Get(ctx context.Context, id uuid.UUID) (catalog.Buyable, error)
}

// Locker serialises read-modify-write cycles on one cart.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// LockKey is the lock guarding the owner's cart; checkout takes it too.
func LockKey(owner string) string { return "lock:cart:" + owner }

// Service implements cart operations for an authenticated owner.
type Service struct {
	store    Store
	catalog  Catalog
	vouchers voucher.Finder
	locker   Locker
	lockTTL  time.Duration
	currency currency.Unit
	logger   zerolog.Logger
}

// ServiceConfig groups Service dependencies. Locker is optional.
type ServiceConfig struct {
	Store    Store
	Catalog  Catalog
	Vouchers voucher.Finder
	Locker   Locker
	LockTTL  time.Duration
	Currency currency.Unit
	Logger   zerolog.Logger
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil || cfg.Catalog == nil || cfg.Vouchers == nil {
		return nil, errors.New("cart: store, catalog and vouchers are required")
	}
	cur := cfg.Currency
	if cur == (currency.Unit{}) {
		cur = currency.EUR
	}
	return &Service{
		store:    cfg.Store,
		catalog:  cfg.Catalog,
		vouchers: cfg.Vouchers,
		locker:   cfg.Locker,
		lockTTL:  cfg.LockTTL,
		currency: cur,
		logger:   cfg.Logger,
	}, nil
}

// Currency is the currency cart totals are computed in.
func (s *Service) Currency() currency.Unit { return s.currency }

// Get returns the owner's cart.
func (s *Service) Get(ctx context.Context, owner string) (*Cart, error) {
	return s.store.Load(ctx, owner)
}

// AddItem adds a catalog item. number is clamped with ClampQuantity.
func (s *Service) AddItem(ctx context.Context, owner string, productID uuid.UUID, number int) (*Cart, error) {
	b, err := s.catalog.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, owner, func(c *Cart) error {
		return c.AddOrUpdateItem(b, ClampQuantity(number))
	})
}

// Remove drops one line by product id or voucher identifier.
func (s *Service) Remove(ctx context.Context, owner, productID string) (*Cart, error) {
	return s.mutate(ctx, owner, func(c *Cart) error {
		return c.Remove(productID)
	})
}

// Clear empties the owner's cart.
func (s *Service) Clear(ctx context.Context, owner string) error {
	_, err := s.mutate(ctx, owner, func(c *Cart) error {
		c.Clear()
		return nil
	})
	return err
}

// Redeem validates a voucher id and pass and adds the redemption to the cart.
func (s *Service) Redeem(ctx context.Context, owner, identifier, pass string) (*Cart, *voucher.UsedVoucher, error) {
	var uv *voucher.UsedVoucher
	c, err := s.mutate(ctx, owner, func(c *Cart) error {
		var err error
		uv, err = voucher.ValidateRedemption(ctx, s.vouchers, identifier, pass, c)
		if err != nil {
			return err
		}
		return c.AddUsedVoucher(uv)
	})
	result := redemptionResult(err)
	obs.ObserveRedemption(result)
	if err != nil {
		s.logger.Info().Str("user_id", owner).Str("voucher", identifier).Str("result", result).Msg("voucher redemption rejected")
		return nil, nil, err
	}
	s.logger.Info().Str("user_id", owner).Str("voucher", uv.Identifier()).Str("available", uv.AvailableValue().String()).Msg("voucher redeemed")
	return c, uv, nil
}

func redemptionResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, voucher.ErrInvalidArgument):
		return "invalid"
	case errors.Is(err, voucher.ErrNotFound):
		return "not_found"
	case errors.Is(err, voucher.ErrAlreadyUsed):
		return "already_used"
	case errors.Is(err, voucher.ErrInvalidPassword):
		return "invalid_password"
	default:
		return "error"
	}
}

func (s *Service) mutate(ctx context.Context, owner string, fn func(*Cart) error) (*Cart, error) {
	var out *Cart
	run := func(ctx context.Context) error {
		c, err := s.store.Load(ctx, owner)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
		if err := s.store.Save(ctx, owner, c); err != nil {
			return err
		}
		out = c
		return nil
	}
	var err error
	if s.locker == nil {
		err = run(ctx)
	} else {
		err = s.locker.WithLock(ctx, LockKey(owner), s.lockTTL, run)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
