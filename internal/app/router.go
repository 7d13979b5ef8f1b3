package app

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/noah-isme/videoshop/internal/auth"
	"github.com/noah-isme/videoshop/internal/cart"
	"github.com/noah-isme/videoshop/internal/catalog"
	"github.com/noah-isme/videoshop/internal/checkout"
	"github.com/noah-isme/videoshop/internal/common"
	"github.com/noah-isme/videoshop/internal/health"
	"github.com/noah-isme/videoshop/internal/inventory"
	"github.com/noah-isme/videoshop/internal/obs"
	"github.com/noah-isme/videoshop/internal/order"
	"github.com/noah-isme/videoshop/internal/ratelimit"
	"github.com/noah-isme/videoshop/internal/security"
)

// Handlers are the HTTP endpoints mounted by NewRouter.
type Handlers struct {
	Auth        *auth.Service
	AuthHTTP    *auth.Handler
	Catalog     *catalog.Handler
	Cart        *cart.Handler
	Checkout    *checkout.Handler
	Orders      *order.Handler
	AdminOrders *order.AdminHandler
	Stock       inventory.AdminHandler
	Health      health.Handler
	Idem        common.Idem
	Redeem      ratelimit.Handler
}

// RouterConfig carries the cross-cutting HTTP settings.
type RouterConfig struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	Metrics        *obs.HTTPMetrics
	Gatherer       prometheus.Gatherer
	Tracing        bool
	SecureCookies  bool
	HSTSMaxAge     time.Duration
}

// NewRouter mounts every route of the shop API.
func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	authMW := auth.Middleware{Service: h.Auth}
	if h.AuthHTTP != nil {
		authMW.AccessCookie = h.AuthHTTP.AccessCookieName
	}
	csrf := security.CSRF{AuthCookie: authMW.AccessCookie, Secure: cfg.SecureCookies}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Tracing {
		r.Use(obs.Tracing("http.server"))
	}
	if cfg.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: cfg.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: cfg.Logger}.Middleware)
	r.Use(security.Headers{HSTSMaxAge: cfg.HSTSMaxAge}.Middleware)
	origins, denyOrigin := corsOrigins(cfg.AllowedOrigins)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowOriginFunc:  denyOrigin,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-CSRF-Token"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/health/live", h.Health.Live)
	r.Get("/health/ready", h.Health.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(csrf.Middleware)

		v.Route("/auth", func(a chi.Router) {
			a.Post("/register", h.AuthHTTP.Register)
			a.Post("/login", h.AuthHTTP.Login)
			a.Post("/logout", h.AuthHTTP.Logout)
			a.With(authMW.RequireAuth).Get("/me", h.AuthHTTP.Me)
		})

		v.Route("/catalog", func(c chi.Router) {
			c.Get("/dvds", h.Catalog.DVDs)
			c.Get("/blurays", h.Catalog.BluRays)
			c.Get("/vouchers", h.Catalog.Vouchers)
			c.Get("/items/{id}", h.Catalog.Item)
			c.With(authMW.RequireAuth).Post("/items/{id}/comments", h.Catalog.AddComment)
		})

		v.Group(func(u chi.Router) {
			u.Use(authMW.RequireAuth)

			u.Route("/cart", func(c chi.Router) {
				c.Get("/", h.Cart.Get)
				c.Delete("/", h.Cart.Clear)
				c.Post("/items", h.Cart.AddItem)
				c.Delete("/items/{productId}", h.Cart.RemoveItem)
				c.With(h.Redeem.Middleware).Post("/redeem", h.Cart.Redeem)
			})

			u.With(h.Idem.Middleware).Post("/checkout", h.Checkout.Checkout)

			u.Get("/orders", h.Orders.List)
			u.Get("/orders/{orderId}", h.Orders.Get)
		})

		v.Route("/admin", func(a chi.Router) {
			a.Use(authMW.RequireAuth)
			a.Use(auth.RequireRole(auth.RoleBoss))
			a.Get("/orders", h.AdminOrders.Orders)
			a.Get("/stock", h.Stock.Stock)
		})
	})

	return r
}

// corsOrigins drops wildcards since responses allow credentials. With nothing
// left every cross-origin request is refused; an empty list alone would make
// cors allow all origins.
func corsOrigins(configured []string) ([]string, func(*http.Request, string) bool) {
	origins := slices.DeleteFunc(slices.Clone(configured), func(o string) bool {
		return o == "" || strings.Contains(o, "*")
	})
	if len(origins) == 0 {
		return nil, func(*http.Request, string) bool { return false }
	}
	return origins, nil
}
