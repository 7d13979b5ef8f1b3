package security_test

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/videoshop/internal/security"
)

var accepted = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusAccepted)
})

func TestHeaders(t *testing.T) {
	handler := security.Headers{HSTSMaxAge: 24 * time.Hour}.Middleware(accepted)

	req := httptest.NewRequest(http.MethodGet, "https://shop.example/api/v1/cart", nil)
	req.TLS = &tls.ConnectionState{}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.Equal(t, "max-age=86400; includeSubDomains", rr.Header().Get("Strict-Transport-Security"))

	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, rr.Header().Get("Strict-Transport-Security"))
}

func TestCSRF(t *testing.T) {
	handler := security.CSRF{AuthCookie: "vs_access"}.Middleware(accepted)
	session := &http.Cookie{Name: "vs_access", Value: "jwt"}

	t.Run("safe request issues token", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/cart", nil))
		require.Equal(t, http.StatusAccepted, rr.Code)
		cookies := rr.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, "vs_csrf", cookies[0].Name)
		assert.NotEmpty(t, cookies[0].Value)
	})

	t.Run("cookie session without token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		req.AddCookie(session)
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("cookie session with mismatched token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		req.AddCookie(session)
		req.AddCookie(&http.Cookie{Name: "vs_csrf", Value: "abc"})
		req.Header.Set("X-CSRF-Token", "abd")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("cookie session with token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		req.AddCookie(session)
		req.AddCookie(&http.Cookie{Name: "vs_csrf", Value: "abc"})
		req.Header.Set("X-CSRF-Token", "abc")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusAccepted, rr.Code)
	})

	t.Run("bearer and anonymous pass", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", nil)
		req.AddCookie(session)
		req.Header.Set("Authorization", "Bearer jwt")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusAccepted, rr.Code)

		rr = httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))
		assert.Equal(t, http.StatusAccepted, rr.Code)
	})
}
