package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"golang.org/x/text/currency"

	"github.com/noah-isme/videoshop/internal/app"
	"github.com/noah-isme/videoshop/internal/auth"
	"github.com/noah-isme/videoshop/internal/catalog"
	"github.com/noah-isme/videoshop/internal/config"
	"github.com/noah-isme/videoshop/internal/db"
	"github.com/noah-isme/videoshop/internal/inventory"
	"github.com/noah-isme/videoshop/internal/money"
)

const (
	discStock    = 10
	voucherStock = 100000
	discsPerType = 12
)

var voucherValues = []int64{10, 20, 50, 100}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	if err := run(context.Background(), cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("seeding failed")
	}
	logger.Info().Msg("seeding completed")
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		return err
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	var existing int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM buyables`).Scan(&existing); err != nil {
		return fmt.Errorf("count buyables: %w", err)
	}
	if existing > 0 {
		logger.Info().Int("buyables", existing).Msg("catalog already seeded")
	} else {
		rdb, err := app.OpenRedis(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer rdb.Close()
		svc, err := catalog.NewService(catalog.ServiceConfig{
			Store:  catalog.NewPGStore(pool),
			Cache:  catalog.NewCache(rdb, cfg.CatalogCacheTTL),
			Logger: logger,
		})
		if err != nil {
			return err
		}
		if err := seedCatalog(ctx, svc, inventory.NewStore(pool), cfg.Currency, logger); err != nil {
			return err
		}
	}

	authSvc, err := auth.NewService(auth.Config{Users: auth.NewPGUserStore(pool), Secret: cfg.JWTSecret})
	if err != nil {
		return err
	}
	accounts := []struct {
		name, email, password string
		roles                 []string
	}{
		{"Boss", "boss@videoshop.local", "boss-password", []string{auth.RoleBoss, auth.RoleCustomer}},
		{gofakeit.Name(), "customer@videoshop.local", "customer-password", []string{auth.RoleCustomer}},
	}
	for _, a := range accounts {
		_, err := authSvc.CreateUser(ctx, a.name, a.email, a.password, a.roles...)
		if errors.Is(err, auth.ErrEmailTaken) {
			logger.Info().Str("email", a.email).Msg("account exists")
			continue
		}
		if err != nil {
			return fmt.Errorf("create %s: %w", a.email, err)
		}
		logger.Info().Str("email", a.email).Strs("roles", a.roles).Msg("account created")
	}
	return nil
}

type catalogSaver interface {
	Save(ctx context.Context, b catalog.Buyable) error
}

type stockSaver interface {
	Save(ctx context.Context, productID uuid.UUID, quantity int) error
}

// seedCatalog goes through the catalog service so cached pages are dropped.
func seedCatalog(ctx context.Context, items catalogSaver, stock stockSaver, cur currency.Unit, logger zerolog.Logger) error {
	save := func(b catalog.Buyable, qty int) error {
		if err := items.Save(ctx, b); err != nil {
			return err
		}
		return stock.Save(ctx, b.ID, qty)
	}

	for _, typ := range []catalog.BuyableType{catalog.DVD, catalog.BluRay} {
		for range discsPerType {
			price := money.MustParse(fmt.Sprintf("%d.99", gofakeit.Number(4, 24)), cur.String())
			disc, err := catalog.NewDisc(gofakeit.MovieName(), "", price, gofakeit.MovieGenre(), typ, gofakeit.Sentence(12))
			if err != nil {
				return err
			}
			if err := save(disc, discStock); err != nil {
				return fmt.Errorf("seed %s: %w", disc.Name, err)
			}
		}
		logger.Info().Str("type", string(typ)).Int("count", discsPerType).Msg("discs seeded")
	}

	for _, v := range voucherValues {
		gv, err := catalog.NewVoucher(money.FromInt(v, cur))
		if err != nil {
			return err
		}
		if err := save(gv, voucherStock); err != nil {
			return fmt.Errorf("seed %s: %w", gv.Name, err)
		}
	}
	logger.Info().Int("count", len(voucherValues)).Msg("gift vouchers seeded")
	return nil
}
