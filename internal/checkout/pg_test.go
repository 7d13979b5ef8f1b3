package checkout_test

import (
	"context"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
	"golang.org/x/text/currency"

	"github.com/noah-isme/videoshop/internal/cart"
	"github.com/noah-isme/videoshop/internal/catalog"
	"github.com/noah-isme/videoshop/internal/checkout"
	"github.com/noah-isme/videoshop/internal/db/dbtest"
	"github.com/noah-isme/videoshop/internal/inventory"
	"github.com/noah-isme/videoshop/internal/lock"
	"github.com/noah-isme/videoshop/internal/order"
	"github.com/noah-isme/videoshop/internal/voucher"
)

type pgSuite struct {
	suite.Suite

	pool  *pgxpool.Pool
	carts *cart.RedisStore
	svc   *checkout.Service
}

func TestPGCheckoutSuite(t *testing.T) {
	suite.Run(t, new(pgSuite))
}

func (s *pgSuite) SetupSuite() {
	s.pool = dbtest.Setup(s.T())
	mr := miniredis.RunT(s.T())
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s.T().Cleanup(func() { _ = client.Close() })

	s.carts = cart.NewRedisStore(client, time.Hour)
	svc, err := checkout.NewService(checkout.ServiceConfig{
		Carts:    s.carts,
		Tx:       checkout.PGTxRunner{Pool: s.pool, Attempts: 5},
		Locker:   lock.Locker{R: client, RetryBackoff: 5 * time.Millisecond},
		Currency: currency.EUR,
		Logger:   zerolog.Nop(),
	})
	s.Require().NoError(err)
	s.svc = svc
}

func (s *pgSuite) user() string {
	id := uuid.New()
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO users (id, name, email, password_hash) VALUES ($1, 'Buyer', $2, 'x')`, id, id.String()+"@example.com")
	s.Require().NoError(err)
	return id.String()
}

func (s *pgSuite) disc(price int64, stock int) catalog.Buyable {
	ctx := context.Background()
	d, err := catalog.NewDisc("Chinatown", "img", eur(price), "Noir", catalog.DVD, "")
	s.Require().NoError(err)
	s.Require().NoError(catalog.NewPGStore(s.pool).Save(ctx, d))
	s.Require().NoError(inventory.NewStore(s.pool).Save(ctx, d.ID, stock))
	return d
}

func (s *pgSuite) sold(value int64) voucher.SoldVoucher {
	sv, err := voucher.NewSoldVoucher(eur(value), "pw", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(voucher.NewPGStore(s.pool).Create(context.Background(), sv))
	return sv
}

func (s *pgSuite) fillCart(owner string, d catalog.Buyable, sv voucher.SoldVoucher) {
	var c cart.Cart
	s.Require().NoError(c.AddOrUpdateItem(d, 1))
	s.Require().NoError(c.AddUsedVoucher(voucher.BoundUsedVoucher(sv)))
	s.Require().NoError(s.carts.Save(context.Background(), owner, &c))
}

func (s *pgSuite) TestCheckoutPersistsEverything() {
	ctx := context.Background()
	owner := s.user()
	d := s.disc(20, 3)
	sv := s.sold(30)
	s.fillCart(owner, d, sv)

	res, err := s.svc.Checkout(ctx, owner, "")
	s.Require().NoError(err)

	stored, err := voucher.NewPGStore(s.pool).FindByIdentifier(ctx, sv.Identifier)
	s.Require().NoError(err)
	s.True(stored.Value.Equal(eur(10)), stored.Value.String())

	o, err := order.NewPGStore(s.pool).FindByID(ctx, res.Order.ID)
	s.Require().NoError(err)
	s.Equal(order.StatusCompleted, o.Status)
	s.Len(o.Lines, 2)
	s.Require().Len(o.ChargeLines, 1)
	s.True(o.ChargeLines[0].Amount.Equal(eur(10)))

	var history int
	s.Require().NoError(s.pool.QueryRow(ctx,
		`SELECT count(*) FROM used_vouchers WHERE order_id = $1`, res.Order.ID).Scan(&history))
	s.Equal(1, history)

	qty, err := inventory.NewStore(s.pool).Quantity(ctx, d.ID)
	s.Require().NoError(err)
	s.Equal(2, qty)
}

func (s *pgSuite) TestConcurrentCheckoutsShareOneVoucher() {
	ctx := context.Background()
	d := s.disc(20, 10)
	sv := s.sold(30)
	owners := []string{s.user(), s.user(), s.user()}
	for _, owner := range owners {
		s.fillCart(owner, d, sv)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(owners))
	for i, owner := range owners {
		wg.Add(1)
		go func(i int, owner string) {
			defer wg.Done()
			_, errs[i] = s.svc.Checkout(ctx, owner, "")
		}(i, owner)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		s.ErrorIs(err, checkout.ErrVoucherUnavailable)
	}
	s.Equal(2, ok)

	var applied string
	s.Require().NoError(s.pool.QueryRow(ctx,
		`SELECT sum(applied)::text FROM used_vouchers WHERE sold_voucher_identifier = $1`, sv.Identifier).Scan(&applied))
	s.Equal("30.00", applied)

	stored, err := voucher.NewPGStore(s.pool).FindByIdentifier(ctx, sv.Identifier)
	s.Require().NoError(err)
	s.False(stored.Active)
}
