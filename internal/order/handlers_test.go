package order_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/currency"

	"github.com/noah-isme/videoshop/internal/common"
	"github.com/noah-isme/videoshop/internal/order"
)

func TestUserOrdersAreScoped(t *testing.T) {
	me, other := uuid.New(), uuid.New()
	mine := order.New(me, currency.EUR, now)
	theirs := order.New(other, currency.EUR, now)
	h := &order.Handler{Orders: fakeOrders{orders: []*order.Order{mine, theirs}}}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(common.WithUserID(req.Context(), me.String())))
		})
	})
	r.Get("/orders", h.List)
	r.Get("/orders/{orderId}", h.Get)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), mine.ID.String())
	assert.NotContains(t, rec.Body.String(), theirs.ID.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+theirs.ID.String(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/"+mine.ID.String(), nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
