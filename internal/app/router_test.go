package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/videoshop/internal/app"
	"github.com/noah-isme/videoshop/internal/auth"
	"github.com/noah-isme/videoshop/internal/inventory"
	"github.com/noah-isme/videoshop/internal/obs"
	"github.com/noah-isme/videoshop/internal/order"
	"github.com/noah-isme/videoshop/internal/voucher"
)

type noOrders struct{}

func (noOrders) FindByID(context.Context, uuid.UUID) (*order.Order, error) {
	return nil, order.ErrNotFound
}
func (noOrders) FindByStatus(context.Context, order.Status) ([]*order.Order, error) { return nil, nil }
func (noOrders) FindByUser(context.Context, uuid.UUID) ([]*order.Order, error)      { return nil, nil }

type stockList []inventory.Item

func (s stockList) List(context.Context) ([]inventory.Item, error) { return s, nil }

type okChecker struct{}

func (okChecker) PingDB(context.Context, time.Duration) error    { return nil }
func (okChecker) PingRedis(context.Context, time.Duration) error { return nil }

type fixture struct {
	router http.Handler
	auth   *auth.Service
}

func newFixture(t *testing.T, origins ...string) fixture {
	t.Helper()
	svc, err := auth.NewService(auth.Config{Users: auth.NewMemoryUserStore(), Secret: "router-secret"})
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	h := app.Handlers{
		Auth:        svc,
		AuthHTTP:    &auth.Handler{Service: svc, AccessCookieName: "vs_access"},
		Orders:      &order.Handler{Orders: noOrders{}},
		AdminOrders: &order.AdminHandler{Store: noOrders{}, Vouchers: voucher.NewMemoryStore()},
		Stock:       inventory.AdminHandler{Store: stockList{{Name: "Alien", Type: "DVD", Quantity: 10}}},
	}
	h.Health.Checker = okChecker{}
	router := app.NewRouter(app.RouterConfig{
		Logger:         zerolog.Nop(),
		AllowedOrigins: origins,
		Metrics:        obs.NewHTTPMetrics("test", nil, reg),
		Gatherer:       reg,
	}, h)
	return fixture{router: router, auth: svc}
}

func (f fixture) token(t *testing.T, email string, roles ...string) string {
	t.Helper()
	ctx := context.Background()
	_, err := f.auth.CreateUser(ctx, "User", email, "password123", roles...)
	require.NoError(t, err)
	res, err := f.auth.Login(ctx, email, "password123")
	require.NoError(t, err)
	return res.AccessToken
}

func (f fixture) do(method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health/live", "").Code)
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health/ready", "").Code)

	rec := f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}

func TestUserRoutesRequireToken(t *testing.T) {
	f := newFixture(t)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/cart/items"},
		{http.MethodPost, "/api/v1/cart/redeem"},
		{http.MethodDelete, "/api/v1/cart"},
		{http.MethodPost, "/api/v1/checkout"},
		{http.MethodGet, "/api/v1/orders"},
		{http.MethodGet, "/api/v1/auth/me"},
		{http.MethodPost, "/api/v1/catalog/items/" + uuid.NewString() + "/comments"},
	} {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, f.do(tc.method, tc.path, "").Code)
		})
	}
}

func TestAdminRoutesRequireBoss(t *testing.T) {
	f := newFixture(t)
	customer := f.token(t, "customer@example.com")
	boss := f.token(t, "boss@example.com", auth.RoleBoss)

	assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodGet, "/api/v1/admin/stock", "").Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/v1/admin/stock", customer).Code)
	assert.Equal(t, http.StatusForbidden, f.do(http.MethodGet, "/api/v1/admin/orders", customer).Code)

	rec := f.do(http.MethodGet, "/api/v1/admin/stock", boss)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Alien")

	rec = f.do(http.MethodGet, "/api/v1/admin/orders", boss)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestOrdersForCustomer(t *testing.T) {
	f := newFixture(t)
	customer := f.token(t, "customer@example.com")
	require.Equal(t, http.StatusOK, f.do(http.MethodGet, "/api/v1/orders", customer).Code)
	require.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/v1/orders/"+uuid.NewString(), customer).Code)
}

func TestCookieSessionNeedsCSRFToken(t *testing.T) {
	f := newFixture(t)
	token := f.token(t, "customer@example.com")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.AddCookie(&http.Cookie{Name: "vs_access", Value: token})
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	req = httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
	req.AddCookie(&http.Cookie{Name: "vs_access", Value: token})
	rec = httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "CSRF_REJECTED")
}

func TestCORSOnlyEchoesConfiguredOrigins(t *testing.T) {
	preflight := func(f fixture, origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/v1/cart", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodGet)
		rec := httptest.NewRecorder()
		f.router.ServeHTTP(rec, req)
		return rec
	}

	for _, origins := range [][]string{nil, {"*"}} {
		rec := preflight(newFixture(t, origins...), "https://evil.example")
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"), "origins %v", origins)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Credentials"), "origins %v", origins)
	}

	f := newFixture(t, "https://shop.example", "*")
	rec := preflight(f, "https://shop.example")
	assert.Equal(t, "https://shop.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Empty(t, preflight(f, "https://evil.example").Header().Get("Access-Control-Allow-Origin"))
}
