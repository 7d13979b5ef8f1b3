package voucher_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/noah-isme/videoshop/internal/db"
	"github.com/noah-isme/videoshop/internal/db/dbtest"
	"github.com/noah-isme/videoshop/internal/voucher"
)

type pgStoreSuite struct {
	suite.Suite

	pool  *pgxpool.Pool
	store *voucher.PGStore
}

func TestPGStoreSuite(t *testing.T) {
	suite.Run(t, new(pgStoreSuite))
}

func (s *pgStoreSuite) SetupSuite() {
	s.pool = dbtest.Setup(s.T())
	s.store = voucher.NewPGStore(s.pool)
}

func (s *pgStoreSuite) SetupTest() {
	_, err := s.pool.Exec(context.Background(), `TRUNCATE used_vouchers, sold_vouchers CASCADE`)
	s.Require().NoError(err)
}

func (s *pgStoreSuite) TestCreateAndFind() {
	ctx := context.Background()
	sv, err := voucher.NewSoldVoucher(eur(40), "pw-1", time.Now().UTC().Truncate(time.Microsecond))
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, sv))

	got, err := s.store.FindByIdentifier(ctx, sv.Identifier)
	s.Require().NoError(err)
	s.Equal(sv.Identifier, got.Identifier)
	s.Equal("pw-1", got.Pass)
	s.True(got.Value.Equal(eur(40)), got.Value.String())
	s.True(got.Active)
}

func (s *pgStoreSuite) TestUnknownAndMalformedIdentifiers() {
	ctx := context.Background()
	_, err := s.store.FindByIdentifier(ctx, uuid.NewString())
	s.ErrorIs(err, voucher.ErrNotFound)
	_, err = s.store.FindByIdentifier(ctx, "not-a-uuid")
	s.ErrorIs(err, voucher.ErrNotFound)
}

func (s *pgStoreSuite) TestApplyRedemptionInsideTransaction() {
	ctx := context.Background()
	sv, err := voucher.NewSoldVoucher(eur(10), "pw", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, sv))

	_, err = db.WithTx(ctx, s.pool, db.SerializableTx, func(tx pgx.Tx) (struct{}, error) {
		_, err := voucher.ApplyRedemption(ctx, voucher.NewPGStore(tx), sv.Identifier, eur(0), time.Now())
		return struct{}{}, err
	})
	s.Require().NoError(err)

	active, err := s.store.FindActive(ctx)
	s.Require().NoError(err)
	s.Empty(active)
	all, err := s.store.FindAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.False(all[0].Active)
	s.True(all[0].Value.IsZero())
}

func (s *pgStoreSuite) TestSaveUnknown() {
	sv, err := voucher.NewSoldVoucher(eur(1), "pw", time.Now())
	s.Require().NoError(err)
	s.ErrorIs(s.store.Save(context.Background(), sv), voucher.ErrNotFound)
}
