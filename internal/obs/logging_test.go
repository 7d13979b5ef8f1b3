package obs_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/videoshop/internal/obs"
)

func TestRequestLoggerCarriesUserAndRoute(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Post("/api/v1/cart/redeem", func(w http.ResponseWriter, r *http.Request) {
		obs.TagUser(r.Context(), "user-1")
		w.WriteHeader(http.StatusUnprocessableEntity)
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/cart/redeem", nil))
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "user-1", line["user_id"])
	assert.Equal(t, "/api/v1/cart/redeem", line["route"])
	assert.EqualValues(t, 422, line["status"])
	assert.NotEmpty(t, line["request_id"])
}

func TestTagUserWithoutRequestLogger(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.NotPanics(t, func() { obs.TagUser(req.Context(), "nobody") })
}
