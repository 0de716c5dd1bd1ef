package auth_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/user-service/internal/models"
	"github.com/magabrotheeeer/user-service/internal/storage"
)

func newNoopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))
}

// memoryStore хранилище пользователей и токенов в памяти с той же
// семантикой мягкого удаления, что и PostgreSQL-реализация.
type memoryStore struct {
	mu     sync.Mutex
	users  []*models.User
	tokens []*models.Token
}

func (m *memoryStore) FindByEmail(_ context.Context, email string, includeDeleted bool) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.users) - 1; i >= 0; i-- {
		u := m.users[i]
		if u.Email == email && (includeDeleted || !u.Deleted) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memory.FindByEmail: %w", storage.ErrUserNotFound)
}

func (m *memoryStore) CreateUser(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email && !u.Deleted {
			return fmt.Errorf("memory.CreateUser: %w", storage.ErrUserExists)
		}
	}
	user.ID = int64(len(m.users) + 1)
	user.CreatedAt = time.Now()
	cp := *user
	m.users = append(m.users, &cp)
	return nil
}

func (m *memoryStore) CountActive(_ context.Context, userID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countLocked(userID), nil
}

func (m *memoryStore) countLocked(userID int64) int {
	count := 0
	for _, t := range m.tokens {
		if t.UserID == userID && !t.Deleted {
			count++
		}
	}
	return count
}

func (m *memoryStore) FindActive(_ context.Context, value string, now time.Time) (*models.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Value == value && t.IsActive(now) {
			cp := *t
			owner := *m.users[t.UserID-1]
			cp.User = &owner
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("memory.FindActive: %w", storage.ErrTokenNotFound)
}

func (m *memoryStore) Save(_ context.Context, token *models.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token.ID == 0 {
		m.insertLocked(token)
		return nil
	}
	for _, t := range m.tokens {
		if t.ID == token.ID {
			t.Value = token.Value
			t.ExpiryAt = token.ExpiryAt
			t.Deleted = token.Deleted
			return nil
		}
	}
	return fmt.Errorf("memory.Save: %w", storage.ErrTokenNotFound)
}

func (m *memoryStore) CreateWithinLimit(_ context.Context, token *models.Token, limit int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countLocked(token.UserID) >= limit {
		return fmt.Errorf("memory.CreateWithinLimit: %w", storage.ErrDeviceLimitReached)
	}
	m.insertLocked(token)
	return nil
}

func (m *memoryStore) insertLocked(token *models.Token) {
	token.ID = int64(len(m.tokens) + 1)
	token.CreatedAt = time.Now()
	cp := *token
	cp.User = nil
	m.tokens = append(m.tokens, &cp)
}

func (m *memoryStore) tokenRows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// fakeClock управляемые часы
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// sequenceGenerator выдаёт T1, T2, ... вместо случайных значений
type sequenceGenerator struct {
	mu sync.Mutex
	n  int
}

func (g *sequenceGenerator) Next(int) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("T%d", g.n), nil
}

// UserRepoMock мок для UserRepository
type UserRepoMock struct {
	mock.Mock
}

func (m *UserRepoMock) FindByEmail(ctx context.Context, email string, includeDeleted bool) (*models.User, error) {
	args := m.Called(ctx, email, includeDeleted)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *UserRepoMock) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// TokenRepoMock мок для TokenRepository
type TokenRepoMock struct {
	mock.Mock
}

func (m *TokenRepoMock) CountActive(ctx context.Context, userID int64) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *TokenRepoMock) FindActive(ctx context.Context, value string, now time.Time) (*models.Token, error) {
	args := m.Called(ctx, value, now)
	t, _ := args.Get(0).(*models.Token)
	return t, args.Error(1)
}

func (m *TokenRepoMock) Save(ctx context.Context, token *models.Token) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *TokenRepoMock) CreateWithinLimit(ctx context.Context, token *models.Token, limit int) error {
	args := m.Called(ctx, token, limit)
	return args.Error(0)
}

// PublisherMock мок для EventPublisher
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(ctx context.Context, routingKey string, message any) error {
	args := m.Called(ctx, routingKey, message)
	return args.Error(0)
}

// HasherMock мок для Hasher
type HasherMock struct {
	mock.Mock
}

func (m *HasherMock) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *HasherMock) Compare(hash, password string) error {
	args := m.Called(hash, password)
	return args.Error(0)
}
