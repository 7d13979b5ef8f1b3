// Package app assembles the infrastructure clients and HTTP surface shared by
// the api binary and its tests.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/videoshop/internal/auth"
	"github.com/noah-isme/videoshop/internal/cart"
	"github.com/noah-isme/videoshop/internal/catalog"
	"github.com/noah-isme/videoshop/internal/checkout"
	"github.com/noah-isme/videoshop/internal/common"
	"github.com/noah-isme/videoshop/internal/config"
	"github.com/noah-isme/videoshop/internal/db"
	"github.com/noah-isme/videoshop/internal/health"
	"github.com/noah-isme/videoshop/internal/inventory"
	"github.com/noah-isme/videoshop/internal/jobs"
	"github.com/noah-isme/videoshop/internal/lock"
	"github.com/noah-isme/videoshop/internal/obs"
	"github.com/noah-isme/videoshop/internal/order"
	"github.com/noah-isme/videoshop/internal/ratelimit"
	"github.com/noah-isme/videoshop/internal/voucher"
)

// Dependencies holds the long-lived clients opened at startup.
type Dependencies struct {
	DB         *pgxpool.Pool
	Redis      *redis.Client
	TaskClient *asynq.Client
	Limiter    *limiter.Limiter
}

// Open connects PostgreSQL and Redis, runs migrations when enabled and builds
// the task client and redemption limiter.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Dependencies, error) {
	if cfg.MigrationsAuto {
		if err := db.Migrate(cfg.DatabaseURL); err != nil {
			return nil, err
		}
		logger.Info().Msg("migrations applied")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = "videoshop-api"

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	rdb, err := OpenRedis(ctx, cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	redisOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, fmt.Errorf("parse redis uri for tasks: %w", err)
	}

	lim, err := ratelimit.NewRedisLimiter(rdb, "ratelimit:redeem", cfg.RedeemRateLimit)
	if err != nil {
		pool.Close()
		_ = rdb.Close()
		return nil, err
	}

	return &Dependencies{
		DB:         pool,
		Redis:      rdb,
		TaskClient: asynq.NewClient(redisOpt),
		Limiter:    lim,
	}, nil
}

// OpenRedis builds an instrumented Redis client and checks connectivity.
func OpenRedis(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(rdb); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if cfg.Obs.MetricsEnabled {
		if err := redisotel.InstrumentMetrics(rdb); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// Close releases every client.
func (d *Dependencies) Close() error {
	var errs []error
	if d.TaskClient != nil {
		errs = append(errs, d.TaskClient.Close())
	}
	if d.Redis != nil {
		errs = append(errs, d.Redis.Close())
	}
	if d.DB != nil {
		d.DB.Close()
	}
	return errors.Join(errs...)
}

// Build constructs the domain services over deps and returns the handlers the
// router mounts.
func Build(deps *Dependencies, cfg *config.Config, logger zerolog.Logger) (Handlers, error) {
	users := auth.NewPGUserStore(deps.DB)
	authSvc, err := auth.NewService(auth.Config{
		Users:          users,
		Secret:         cfg.JWTSecret,
		AccessTokenTTL: cfg.AccessTokenTTL,
	})
	if err != nil {
		return Handlers{}, err
	}

	stock := inventory.NewStore(deps.DB)
	catalogSvc, err := catalog.NewService(catalog.ServiceConfig{
		Store:  catalog.NewPGStore(deps.DB),
		Cache:  catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL),
		Stock:  stock,
		Logger: logger.With().Str("component", "catalog").Logger(),
	})
	if err != nil {
		return Handlers{}, err
	}

	locker := lock.Locker{R: deps.Redis, RetryBackoff: cfg.LockRetryBackoff}
	carts := cart.NewRedisStore(deps.Redis, cfg.CartTTL)
	vouchers := voucher.NewPGStore(deps.DB)

	cartSvc, err := cart.NewService(cart.ServiceConfig{
		Store:    carts,
		Catalog:  catalogSvc,
		Vouchers: vouchers,
		Locker:   locker,
		LockTTL:  cfg.VoucherLockTTL,
		Currency: cfg.Currency,
		Logger:   logger.With().Str("component", "cart").Logger(),
	})
	if err != nil {
		return Handlers{}, err
	}

	checkoutSvc, err := checkout.NewService(checkout.ServiceConfig{
		Carts:    carts,
		Tx:       checkout.PGTxRunner{Pool: deps.DB},
		Locker:   locker,
		LockTTL:  cfg.VoucherLockTTL,
		Passes:   voucher.RandomPass{},
		Notifier: jobs.Enqueuer{Client: deps.TaskClient},
		Currency: cfg.Currency,
		Logger:   logger.With().Str("component", "checkout").Logger(),
	})
	if err != nil {
		return Handlers{}, err
	}

	orders := order.NewPGStore(deps.DB)
	return Handlers{
		Auth:        authSvc,
		AuthHTTP:    &auth.Handler{Service: authSvc, AccessCookieName: "vs_access", CookieSecure: cfg.AppEnv == "production", CookieSameSite: http.SameSiteLaxMode},
		Catalog:     catalog.NewHandler(catalog.HandlerConfig{Service: catalogSvc}),
		Cart:        &cart.Handler{Svc: cartSvc},
		Checkout:    &checkout.Handler{Svc: checkoutSvc},
		Orders:      &order.Handler{Orders: orders},
		AdminOrders: &order.AdminHandler{Store: orders, Vouchers: vouchers},
		Stock:       inventory.AdminHandler{Store: stock},
		Health:      health.Handler{Checker: health.Deps{DB: deps.DB, Redis: deps.Redis}},
		Idem:        common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL, Redact: checkout.RedactPasses},
		Redeem: ratelimit.Handler{
			Limiter: deps.Limiter,
			OnError: func(err error) { logger.Warn().Err(err).Msg("redeem rate limiter unavailable") },
		},
	}, nil
}
