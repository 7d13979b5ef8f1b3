package auth_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/videoshop/internal/auth"
	"github.com/noah-isme/videoshop/internal/common"
)

const testSecret = "test-secret-value"

func newService(t *testing.T) (*auth.Service, *auth.MemoryUserStore) {
	t.Helper()
	users := auth.NewMemoryUserStore()
	svc, err := auth.NewService(auth.Config{Users: users, Secret: testSecret, AccessTokenTTL: time.Minute})
	require.NoError(t, err)
	return svc, users
}

func appStatus(t *testing.T, err error) int {
	t.Helper()
	var appErr *common.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %v", err)
	return appErr.HTTPStatus
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := auth.NewService(auth.Config{Secret: testSecret})
	require.Error(t, err)
	_, err = auth.NewService(auth.Config{Users: auth.NewMemoryUserStore(), Secret: "  "})
	require.Error(t, err)
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "Ada", "Ada@Example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, []string{auth.RoleCustomer}, user.Roles)

	res, err := svc.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	assert.NotEmpty(t, res.AccessToken)

	claims, err := svc.ParseAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, []string{auth.RoleCustomer}, claims.Roles)

	me, err := svc.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.Name)
}

func TestRegisterRejects(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "Ada", "ada@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "Ada again", "ADA@example.com", "password123")
	assert.Equal(t, http.StatusConflict, appStatus(t, err))

	_, err = svc.Register(ctx, "Bob", "bob@example.com", "short")
	assert.Equal(t, http.StatusUnprocessableEntity, appStatus(t, err))

	_, err = svc.Register(ctx, " ", "bob@example.com", "password123")
	assert.Equal(t, http.StatusUnprocessableEntity, appStatus(t, err))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "Ada", "ada@example.com", "password123")
	require.NoError(t, err)

	_, err = svc.Login(ctx, "ada@example.com", "wrong-password")
	assert.Equal(t, http.StatusUnauthorized, appStatus(t, err))

	_, err = svc.Login(ctx, "nobody@example.com", "password123")
	assert.Equal(t, http.StatusUnauthorized, appStatus(t, err))
}

func TestCreateUserWithRoles(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	boss, err := svc.CreateUser(ctx, "Boss", "boss@example.com", "password123", auth.RoleBoss, auth.RoleCustomer, auth.RoleBoss)
	require.NoError(t, err)
	assert.Equal(t, []string{auth.RoleBoss, auth.RoleCustomer}, boss.Roles)

	res, err := svc.Login(ctx, "boss@example.com", "password123")
	require.NoError(t, err)
	claims, err := svc.ParseAccessToken(res.AccessToken)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{auth.RoleBoss, auth.RoleCustomer}, claims.Roles)
}

func TestParseAccessTokenRejects(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, "Ada", "ada@example.com", "password123")
	require.NoError(t, err)

	start := time.Now()
	svc.WithNow(func() time.Time { return start })
	res, err := svc.Login(ctx, "ada@example.com", "password123")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		svc.WithNow(func() time.Time { return start.Add(2 * time.Minute) })
		defer svc.WithNow(func() time.Time { return start })
		_, err := svc.ParseAccessToken(res.AccessToken)
		assert.Equal(t, http.StatusUnauthorized, appStatus(t, err))
	})

	t.Run("blank", func(t *testing.T) {
		_, err := svc.ParseAccessToken("  ")
		assert.Equal(t, http.StatusUnauthorized, appStatus(t, err))
	})

	t.Run("foreign secret", func(t *testing.T) {
		tok, err := jwt.NewBuilder().Subject("x").Issuer("videoshop").Audience([]string{"videoshop-web"}).
			Expiration(start.Add(time.Minute)).Build()
		require.NoError(t, err)
		signed, err := jwt.Sign(tok, jwt.WithKey(jwa.HS256, []byte("another-secret")))
		require.NoError(t, err)
		_, err = svc.ParseAccessToken(string(signed))
		assert.Equal(t, http.StatusUnauthorized, appStatus(t, err))
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.ParseAccessToken("not.a.token")
		assert.Equal(t, http.StatusUnauthorized, appStatus(t, err))
	})
}

func TestMeUnknownUser(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.Me(context.Background(), "missing")
	assert.Equal(t, http.StatusNotFound, appStatus(t, err))
}

func TestRegisterRandomCustomers(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()
	faker := gofakeit.New(42)

	seen := map[string]bool{}
	for range 5 {
		email := faker.Email()
		if seen[email] {
			continue
		}
		seen[email] = true
		pass := faker.Password(true, true, true, false, false, 12)

		user, err := svc.Register(ctx, faker.Name(), email, pass)
		require.NoError(t, err)
		_, err = svc.Login(ctx, user.Email, pass)
		require.NoError(t, err)
	}
}
