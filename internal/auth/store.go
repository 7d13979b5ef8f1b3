package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/videoshop/internal/db"
)

var (
	// ErrUserNotFound is returned by stores for unknown users.
	ErrUserNotFound = errors.New("auth: user not found")
	// ErrEmailTaken is returned when an email is already registered.
	ErrEmailTaken = errors.New("auth: email already registered")
)

// Account is a stored user including the password hash.
type Account struct {
	User
	PasswordHash string
}

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, a Account) error
	FindByEmail(ctx context.Context, email string) (Account, error)
	FindByID(ctx context.Context, id string) (Account, error)
}

// PGUserStore is the PostgreSQL UserStore.
type PGUserStore struct {
	db db.DBTX
}

func NewPGUserStore(dbtx db.DBTX) *PGUserStore {
	return &PGUserStore{db: dbtx}
}

func (s *PGUserStore) Create(ctx context.Context, a Account) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO users (id, name, email, password_hash, roles, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		a.ID, a.Name, a.Email, a.PasswordHash, a.Roles, a.CreatedAt)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("q.CreateUser %s: %w", a.Email, ErrEmailTaken)
	}
	if err != nil {
		return fmt.Errorf("q.CreateUser: %w", err)
	}
	return nil
}

const selectUser = `SELECT id::text, name, email, password_hash, roles, created_at FROM users`

func (s *PGUserStore) FindByEmail(ctx context.Context, email string) (Account, error) {
	return s.findOne(ctx, "q.GetUserByEmail", selectUser+` WHERE email = $1`, email)
}

func (s *PGUserStore) FindByID(ctx context.Context, id string) (Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Account{}, fmt.Errorf("q.GetUserByID %q: %w", id, ErrUserNotFound)
	}
	return s.findOne(ctx, "q.GetUserByID", selectUser+` WHERE id = $1::uuid`, id)
}

func (s *PGUserStore) findOne(ctx context.Context, op, query string, arg string) (Account, error) {
	var a Account
	err := s.db.QueryRow(ctx, query, arg).Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Roles, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
	}
	if err != nil {
		return Account{}, fmt.Errorf("%s: %w", op, err)
	}
	return a, nil
}

// MemoryUserStore keeps accounts in process; used by tests and local tooling.
type MemoryUserStore struct {
	mu      sync.Mutex
	byEmail map[string]Account
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{byEmail: map[string]Account{}}
}

func (m *MemoryUserStore) Create(_ context.Context, a Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ToLower(a.Email)
	if _, ok := m.byEmail[key]; ok {
		return ErrEmailTaken
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	m.byEmail[key] = a
	return nil
}

func (m *MemoryUserStore) FindByEmail(_ context.Context, email string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byEmail[strings.ToLower(email)]
	if !ok {
		return Account{}, ErrUserNotFound
	}
	return a, nil
}

func (m *MemoryUserStore) FindByID(_ context.Context, id string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.byEmail {
		if a.ID == id {
			return a, nil
		}
	}
	return Account{}, ErrUserNotFound
}
