package security

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/noah-isme/videoshop/internal/common"
)

const (
	defaultCSRFHeader = "X-CSRF-Token"
	defaultCSRFCookie = "vs_csrf"
)

// CSRF applies double-submit protection to requests authenticated by the
// access cookie. Bearer requests and anonymous requests pass untouched, since
// a browser never attaches those credentials on its own.
type CSRF struct {
	AuthCookie string
	Cookie     string
	Header     string
	Secure     bool
}

func (c CSRF) names() (cookie, header string) {
	cookie, header = c.Cookie, c.Header
	if cookie == "" {
		cookie = defaultCSRFCookie
	}
	if header == "" {
		header = defaultCSRFHeader
	}
	return cookie, header
}

// Middleware hands out a token cookie on safe requests and checks it on writes.
func (c CSRF) Middleware(next http.Handler) http.Handler {
	cookieName, headerName := c.names()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isSafe(r.Method) {
			if _, err := r.Cookie(cookieName); err != nil {
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    uuid.NewString(),
					Path:     "/",
					Secure:   c.Secure,
					SameSite: http.SameSiteStrictMode,
				})
			}
			next.ServeHTTP(w, r)
			return
		}
		if !c.cookieAuthenticated(r) {
			next.ServeHTTP(w, r)
			return
		}

		token := strings.TrimSpace(r.Header.Get(headerName))
		cookie, err := r.Cookie(cookieName)
		if token == "" || err != nil || cookie.Value == "" {
			common.JSONError(w, http.StatusForbidden, "CSRF_REJECTED", "missing csrf token", nil)
			return
		}
		if subtle.ConstantTimeCompare([]byte(token), []byte(cookie.Value)) != 1 {
			common.JSONError(w, http.StatusForbidden, "CSRF_REJECTED", "invalid csrf token", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c CSRF) cookieAuthenticated(r *http.Request) bool {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(r.Header.Get("Authorization"))), "bearer ") {
		return false
	}
	if c.AuthCookie == "" {
		return false
	}
	cookie, err := r.Cookie(c.AuthCookie)
	return err == nil && cookie.Value != ""
}

func isSafe(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}
