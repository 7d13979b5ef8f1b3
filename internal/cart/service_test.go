package cart_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/videoshop/internal/cart"
	"github.com/noah-isme/videoshop/internal/catalog"
	"github.com/noah-isme/videoshop/internal/common"
	"github.com/noah-isme/videoshop/internal/lock"
	"github.com/noah-isme/videoshop/internal/voucher"
)

type catalogMap map[uuid.UUID]catalog.Buyable

func (m catalogMap) Get(_ context.Context, id uuid.UUID) (catalog.Buyable, error) {
	b, ok := m[id]
	if !ok {
		return catalog.Buyable{}, catalog.ErrNotFound
	}
	return b, nil
}

type fixture struct {
	svc      *cart.Service
	mr       *miniredis.Miniredis
	vouchers *voucher.MemoryStore
	items    catalogMap
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := &fixture{mr: mr, vouchers: voucher.NewMemoryStore(), items: catalogMap{}}
	svc, err := cart.NewService(cart.ServiceConfig{
		Store:    cart.NewRedisStore(client, time.Hour),
		Catalog:  f.items,
		Vouchers: f.vouchers,
		Locker:   lock.Locker{R: client, RetryBackoff: time.Millisecond},
		LockTTL:  time.Second,
		Logger:   zerolog.Nop(),
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) sold(t *testing.T, value int64) voucher.SoldVoucher {
	t.Helper()
	sv, err := voucher.NewSoldVoucher(eur(value), "open-sesame", time.Now())
	require.NoError(t, err)
	require.NoError(t, f.vouchers.Create(context.Background(), sv))
	return sv
}

func TestServiceAddItemClampsAndPersists(t *testing.T) {
	f := newFixture(t)
	d := disc(t, "Tampopo", 9)
	f.items[d.ID] = d
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u1", d.ID, 9)
	require.NoError(t, err)
	c, err := f.svc.AddItem(ctx, "u1", d.ID, 4)
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, cart.Quantity(5), c.Lines[0].Quantity)

	loaded, err := f.svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, cart.Quantity(5), loaded.Lines[0].Quantity)
	assert.True(t, f.mr.Exists("cart:u1"))
	assert.False(t, f.mr.Exists(cart.LockKey("u1")), "lock released")

	_, err = f.svc.AddItem(ctx, "u1", uuid.New(), 1)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestServiceRedeem(t *testing.T) {
	f := newFixture(t)
	sv := f.sold(t, 40)
	ctx := context.Background()

	_, _, err := f.svc.Redeem(ctx, "u1", sv.Identifier, "wrong")
	require.ErrorIs(t, err, voucher.ErrInvalidPassword)

	c, uv, err := f.svc.Redeem(ctx, "u1", sv.Identifier, "open-sesame")
	require.NoError(t, err)
	require.Len(t, c.Lines, 1)
	assert.Equal(t, cart.Quantity(1), c.Lines[0].Quantity)
	assert.True(t, uv.AvailableValue().Equal(eur(40)))

	_, _, err = f.svc.Redeem(ctx, "u1", sv.Identifier, "open-sesame")
	require.ErrorIs(t, err, voucher.ErrAlreadyUsed)

	_, _, err = f.svc.Redeem(ctx, "u2", sv.Identifier, "open-sesame")
	require.NoError(t, err, "another cart may hold the same voucher until checkout")
}

func TestServiceClear(t *testing.T) {
	f := newFixture(t)
	sv := f.sold(t, 10)
	ctx := context.Background()
	_, _, err := f.svc.Redeem(ctx, "u1", sv.Identifier, "open-sesame")
	require.NoError(t, err)

	require.NoError(t, f.svc.Clear(ctx, "u1"))
	assert.False(t, f.mr.Exists("cart:u1"))
	c, err := f.svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
}

func routes(h *cart.Handler, user string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if user != "" {
				r = r.WithContext(common.WithUserID(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/cart", h.Get)
	r.Post("/cart/items", h.AddItem)
	r.Delete("/cart/items/{productId}", h.RemoveItem)
	r.Post("/cart/redeem", h.Redeem)
	return r
}

func postJSON(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Error struct {
		Code    string              `json:"code"`
		Details []common.FieldError `json:"details"`
	} `json:"error"`
}

func TestRedeemHandlerFieldErrors(t *testing.T) {
	f := newFixture(t)
	sv := f.sold(t, 25)
	h := routes(&cart.Handler{Svc: f.svc}, "u1")

	cases := []struct {
		name   string
		body   map[string]string
		reason string
	}{
		{"empty id", map[string]string{"id": "", "pwd": "x"}, "id.empty"},
		{"empty pwd", map[string]string{"id": sv.Identifier, "pwd": ""}, "pwd.empty"},
		{"unknown id", map[string]string{"id": uuid.NewString(), "pwd": "x"}, "id.invalid"},
		{"wrong pwd", map[string]string{"id": sv.Identifier, "pwd": "x"}, "pwd.invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := postJSON(t, h, "/cart/redeem", tc.body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			require.Len(t, body.Error.Details, 1)
			assert.Equal(t, tc.reason, body.Error.Details[0].Reason)
		})
	}

	rec := postJSON(t, h, "/cart/redeem", map[string]string{"id": sv.Identifier, "pwd": "open-sesame"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ok struct {
		Data cart.View `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ok))
	require.Len(t, ok.Data.Lines, 1)
	assert.Equal(t, cart.KindUsedVoucher, ok.Data.Lines[0].Kind)
	assert.True(t, ok.Data.Total.Equal(eur(-25)))

	rec = postJSON(t, h, "/cart/redeem", map[string]string{"id": sv.Identifier, "pwd": "open-sesame"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "id.used")
}

func TestHandlersRequireUser(t *testing.T) {
	f := newFixture(t)
	h := routes(&cart.Handler{Svc: f.svc}, "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAddItemHandlerRemoveItem(t *testing.T) {
	f := newFixture(t)
	d := disc(t, "Solaris", 11)
	f.items[d.ID] = d
	h := routes(&cart.Handler{Svc: f.svc}, "u1")

	rec := postJSON(t, h, "/cart/items", map[string]any{"productId": d.ID.String(), "number": 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"quantity":1`)

	rec = postJSON(t, h, "/cart/items", map[string]any{"productId": "nope"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	del := httptest.NewRecorder()
	h.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/cart/items/"+d.ID.String(), nil))
	require.Equal(t, http.StatusOK, del.Code)
	del = httptest.NewRecorder()
	h.ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/cart/items/"+d.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, del.Code)
}
