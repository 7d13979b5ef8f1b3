package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/noah-isme/videoshop/internal/common"
	"github.com/noah-isme/videoshop/internal/obs"
)

var errNoToken = errors.New("auth: token missing")

// Middleware resolves the caller from a bearer token or the access cookie.
type Middleware struct {
	Service      *Service
	AccessCookie string
}

// Authenticate attaches the caller when a valid token is present and lets
// anonymous requests through untouched.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ctx, err := m.principal(r); err == nil {
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth answers 401 unless the request carries a valid token.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, err := m.principal(r)
		if err != nil {
			unauthorized(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole answers 403 for callers without role. Mount it behind RequireAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch _, ok := common.UserID(r.Context()); {
			case !ok:
				unauthorized(w, errNoToken)
			case !common.HasRole(r.Context(), role):
				common.JSONError(w, http.StatusForbidden, "FORBIDDEN", "insufficient role", nil)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	var appErr *common.AppError
	if errors.As(err, &appErr) && appErr.HTTPStatus == http.StatusUnauthorized {
		common.JSONError(w, appErr.HTTPStatus, appErr.Code, appErr.Message, appErr.Details)
		return
	}
	common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
}

func (m Middleware) principal(r *http.Request) (context.Context, error) {
	if m.Service == nil {
		return nil, errors.New("auth: service not configured")
	}
	raw := m.token(r)
	if raw == "" {
		return nil, errNoToken
	}
	claims, err := m.Service.ParseAccessToken(raw)
	if err != nil {
		return nil, err
	}
	ctx := common.WithUserID(r.Context(), claims.UserID)
	ctx = common.WithRoles(ctx, claims.Roles)
	ctx = common.WithEmail(ctx, claims.Email)
	obs.TagUser(ctx, claims.UserID)
	return ctx, nil
}

func (m Middleware) token(r *http.Request) string {
	if scheme, value, ok := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(value)
	}
	if m.AccessCookie == "" {
		return ""
	}
	cookie, err := r.Cookie(m.AccessCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
