// Package checkout turns a cart into a completed order: it settles redeemed
// vouchers, decrements stock and issues vouchers bought with the order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/text/currency"

	"github.com/noah-isme/videoshop/internal/cart"
	"github.com/noah-isme/videoshop/internal/catalog"
	"github.com/noah-isme/videoshop/internal/jobs"
	"github.com/noah-isme/videoshop/internal/money"
	"github.com/noah-isme/videoshop/internal/obs"
	"github.com/noah-isme/videoshop/internal/order"
	"github.com/noah-isme/videoshop/internal/voucher"
)

// RemainingVoucherLabel labels the charge line carrying unspent voucher value.
const RemainingVoucherLabel = "Remaining voucher value"

var (
	// ErrEmptyCart is returned when there is nothing to check out.
	ErrEmptyCart = errors.New("checkout: cart is empty")
	// ErrVoucherUnavailable is returned when a redeemed voucher was spent after it entered the cart.
	ErrVoucherUnavailable = errors.New("checkout: voucher no longer available")
)

// Locker takes several Redis locks at once.
type Locker interface {
	WithLocks(ctx context.Context, keys []string, ttl time.Duration, fn func(context.Context) error) error
}

// Notifier is told about completed orders after commit.
type Notifier interface {
	EnqueueOrderCompleted(ctx context.Context, p jobs.OrderCompletedPayload) error
}

// Result is what the customer sees after checkout.
type Result struct {
	Order          *order.Order           `json:"order"`
	SoldVouchers   []voucher.SoldVoucher  `json:"soldVouchers"`
	UsedVouchers   []*voucher.UsedVoucher `json:"usedVouchers"`
	Reconciliation voucher.Reconciliation `json:"-"`
}

// Service runs checkouts.
type Service struct {
	carts    cart.Store
	tx       TxRunner
	locker   Locker
	lockTTL  time.Duration
	passes   voucher.PassGenerator
	notifier Notifier
	currency currency.Unit
	logger   zerolog.Logger
	now      func() time.Time
}

// ServiceConfig groups Service dependencies. Notifier and Passes are optional.
type ServiceConfig struct {
	Carts    cart.Store
	Tx       TxRunner
	Locker   Locker
	LockTTL  time.Duration
	Passes   voucher.PassGenerator
	Notifier Notifier
	Currency currency.Unit
	Logger   zerolog.Logger
	Now      func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Carts == nil || cfg.Tx == nil || cfg.Locker == nil {
		return nil, errors.New("checkout: carts, tx and locker are required")
	}
	s := &Service{
		carts:    cfg.Carts,
		tx:       cfg.Tx,
		locker:   cfg.Locker,
		lockTTL:  cfg.LockTTL,
		passes:   cfg.Passes,
		notifier: cfg.Notifier,
		currency: cfg.Currency,
		logger:   cfg.Logger,
		now:      cfg.Now,
	}
	if s.passes == nil {
		s.passes = voucher.RandomPass{}
	}
	if s.currency == (currency.Unit{}) {
		s.currency = currency.EUR
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.lockTTL <= 0 {
		s.lockTTL = 10 * time.Second
	}
	return s, nil
}

// VoucherLockKey is the lock guarding one SoldVoucher balance.
func VoucherLockKey(identifier string) string { return "lock:voucher:" + identifier }

// Checkout completes the owner's cart. The cart lock is held throughout, and
// the locks of every redeemed voucher while the transaction runs.
func (s *Service) Checkout(ctx context.Context, owner, email string) (res Result, err error) {
	start := s.now()
	defer func() {
		obs.ObserveCheckout(checkoutResult(err))
		obs.ObserveCheckoutDuration(s.now().Sub(start))
	}()

	userID, err := uuid.Parse(owner)
	if err != nil {
		return Result{}, fmt.Errorf("owner %q: %w", owner, voucher.ErrInvalidArgument)
	}

	err = s.locker.WithLocks(ctx, []string{cart.LockKey(owner)}, s.lockTTL, func(ctx context.Context) error {
		c, err := s.carts.Load(ctx, owner)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return ErrEmptyCart
		}
		keys := lo.Map(c.UsedVouchers(), func(uv *voucher.UsedVoucher, _ int) string {
			return VoucherLockKey(uv.Identifier())
		})
		err = s.locker.WithLocks(ctx, keys, s.lockTTL, func(ctx context.Context) error {
			return s.tx.InTx(ctx, func(ctx context.Context, st Stores) error {
				var err error
				res, err = s.settle(ctx, st, userID, c)
				return err
			})
		})
		if err != nil {
			return err
		}
		if err := s.carts.Clear(ctx, owner); err != nil {
			s.logger.Error().Err(err).Str("user_id", owner).Msg("clear cart after checkout")
		}
		return nil
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", owner).Msg("checkout failed")
		return Result{}, err
	}

	s.afterCommit(ctx, owner, email, res)
	return res, nil
}

// settle performs every write of a checkout; it runs inside one transaction.
func (s *Service) settle(ctx context.Context, st Stores, userID uuid.UUID, c *cart.Cart) (Result, error) {
	now := s.now().UTC()
	o := order.New(userID, s.currency, now)

	var (
		used   []*voucher.UsedVoucher
		issues []voucher.IssueLine
	)
	for _, line := range c.Lines {
		if line.UsedVoucher != nil {
			uv, err := s.refresh(ctx, st.Vouchers, line.UsedVoucher.Identifier())
			if err != nil {
				return Result{}, err
			}
			used = append(used, uv)
			if err := o.AddLine(order.Line{
				ProductID: uv.Identifier(),
				Name:      line.Name(),
				Kind:      cart.KindUsedVoucher,
				Quantity:  1,
				UnitPrice: uv.Price(),
			}); err != nil {
				return Result{}, err
			}
			continue
		}

		p := line.Product
		if err := o.AddLine(order.Line{
			ProductID: p.ID.String(),
			Name:      p.Name,
			Kind:      string(p.Type),
			Quantity:  int(line.Quantity),
			UnitPrice: p.Price,
		}); err != nil {
			return Result{}, err
		}
		if err := st.Stock.Decrement(ctx, p.ID, int(line.Quantity)); err != nil {
			return Result{}, err
		}
		if p.Type == catalog.Voucher {
			issues = append(issues, voucher.IssueLine{UnitPrice: p.Price, Quantity: int(line.Quantity)})
		}
	}

	dueSum, err := o.Total()
	if err != nil {
		return Result{}, err
	}
	rec, err := voucher.Reconcile(ctx, dueSum, used, func(ctx context.Context, uv *voucher.UsedVoucher, previous money.Money) error {
		if _, err := voucher.ApplyRedemption(ctx, st.Vouchers, uv.Identifier(), uv.AvailableValue(), now); err != nil {
			return err
		}
		applied, err := previous.Sub(uv.AvailableValue())
		if err != nil {
			return err
		}
		return st.Vouchers.SaveUsedVoucher(ctx, voucher.UsedVoucherRecord{
			ID:                    uuid.New(),
			SoldVoucherIdentifier: uv.Identifier(),
			OrderID:               o.ID,
			Applied:               applied,
			Remaining:             uv.AvailableValue(),
			CreatedAt:             now,
		})
	})
	if err != nil {
		return Result{}, err
	}
	if len(used) > 0 {
		if err := o.AddChargeLine(rec.Remainder, RemainingVoucherLabel); err != nil {
			return Result{}, err
		}
	}

	sold, err := voucher.Issue(ctx, st.Vouchers, s.passes, now, issues)
	if err != nil {
		return Result{}, err
	}
	if sold == nil {
		sold = []voucher.SoldVoucher{}
	}
	if used == nil {
		used = []*voucher.UsedVoucher{}
	}

	if err := o.Pay(now); err != nil {
		return Result{}, err
	}
	if err := o.Complete(now); err != nil {
		return Result{}, err
	}
	if err := st.Orders.Save(ctx, o); err != nil {
		return Result{}, err
	}
	return Result{Order: o, SoldVouchers: sold, UsedVouchers: used, Reconciliation: rec}, nil
}

// refresh re-reads the voucher under the row lock; the balance cached in the
// cart may be stale.
func (s *Service) refresh(ctx context.Context, store voucher.Store, identifier string) (*voucher.UsedVoucher, error) {
	sv, err := store.FindForUpdate(ctx, identifier)
	if errors.Is(err, voucher.ErrNotFound) {
		return nil, fmt.Errorf("voucher %s: %w", identifier, ErrVoucherUnavailable)
	}
	if err != nil {
		return nil, err
	}
	if !sv.Active {
		return nil, fmt.Errorf("voucher %s spent: %w", identifier, ErrVoucherUnavailable)
	}
	uv := voucher.NewUsedVoucher(identifier)
	if err := uv.Bind(sv); err != nil {
		return nil, err
	}
	return uv, nil
}

func (s *Service) afterCommit(ctx context.Context, owner, email string, res Result) {
	obs.ObserveVouchersIssued(len(res.SoldVouchers))
	consumed, _ := res.Reconciliation.Consumed.Amount.Float64()
	obs.ObserveReconciled(s.currency.String(), consumed)

	total, _ := res.Order.Total()
	s.logger.Info().
		Str("user_id", owner).
		Str("order_id", res.Order.ID.String()).
		Str("total", total.String()).
		Int("vouchers_used", len(res.UsedVouchers)).
		Int("vouchers_issued", len(res.SoldVouchers)).
		Msg("checkout completed")

	if s.notifier == nil {
		return
	}
	payload := jobs.OrderCompletedPayload{
		OrderID: res.Order.ID.String(),
		UserID:  owner,
		Email:   email,
		Total:   total.String(),
		Vouchers: lo.Map(res.SoldVouchers, func(sv voucher.SoldVoucher, _ int) jobs.IssuedVoucher {
			return jobs.IssuedVoucher{Identifier: sv.Identifier, Pass: sv.Pass, Value: sv.Value.String()}
		}),
	}
	if err := s.notifier.EnqueueOrderCompleted(ctx, payload); err != nil {
		s.logger.Error().Err(err).Str("order_id", payload.OrderID).Msg("enqueue order notification")
	}
}

func checkoutResult(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrVoucherUnavailable):
		return "voucher_unavailable"
	case errors.Is(err, ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
