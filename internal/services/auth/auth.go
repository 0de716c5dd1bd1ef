// Package auth содержит бизнес-логику регистрации, входа и жизненного
// цикла сессионных токенов.
//
// Вход выдаёт непрозрачный случайный токен, который хранится в базе.
// Одновременно у пользователя может быть не больше MaxDevices неудалённых
// токенов. Выход помечает токен удалённым, не удаляя строку.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/user-service/internal/config"
	"github.com/magabrotheeeer/user-service/internal/lib/random"
	"github.com/magabrotheeeer/user-service/internal/lib/sl"
	"github.com/magabrotheeeer/user-service/internal/metrics"
	"github.com/magabrotheeeer/user-service/internal/models"
	"github.com/magabrotheeeer/user-service/internal/storage"
)

// RoutingKeyUserRegistered ключ маршрутизации события регистрации.
const RoutingKeyUserRegistered = "user.registered"

// UserRepository описывает контракт хранилища пользователей.
type UserRepository interface {
	// FindByEmail возвращает пользователя по email или storage.ErrUserNotFound.
	FindByEmail(ctx context.Context, email string, includeDeleted bool) (*models.User, error)

	// CreateUser сохраняет пользователя и заполняет его ID.
	// Для занятого email возвращает storage.ErrUserExists.
	CreateUser(ctx context.Context, user *models.User) error
}

// TokenRepository описывает контракт хранилища токенов.
type TokenRepository interface {
	// CountActive считает неудалённые токены пользователя с любым сроком действия.
	CountActive(ctx context.Context, userID int64) (int, error)

	// FindActive ищет неудалённый токен с expiry_at > now вместе с владельцем.
	// Если токена нет, возвращает storage.ErrTokenNotFound.
	FindActive(ctx context.Context, value string, now time.Time) (*models.Token, error)

	// Save вставляет новый токен или обновляет существующий по ID.
	Save(ctx context.Context, token *models.Token) error

	// CreateWithinLimit атомарно вставляет токен, если у пользователя меньше
	// limit неудалённых токенов, иначе возвращает storage.ErrDeviceLimitReached.
	CreateWithinLimit(ctx context.Context, token *models.Token, limit int) error
}

// Hasher хэширует и проверяет пароли.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// SessionCache кэш проверенных сессий.
type SessionCache interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Invalidate(ctx context.Context, key string) error
}

// EventPublisher публикует доменные события.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// Option настраивает Service.
type Option func(*Service)

// WithCache включает кэширование проверенных сессий.
func WithCache(c SessionCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithEvents включает публикацию событий регистрации.
func WithEvents(p EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithMetrics включает учёт метрик.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithTokenGenerator подменяет генератор значений токенов.
func WithTokenGenerator(generate func(n int) (string, error)) Option {
	return func(s *Service) { s.generate = generate }
}

// Service управляет пользователями и их сессионными токенами.
type Service struct {
	log      *slog.Logger
	users    UserRepository
	tokens   TokenRepository
	hasher   Hasher
	verifier *CredentialVerifier
	settings config.Session

	cache    SessionCache
	events   EventPublisher
	metrics  *metrics.Metrics
	now      func() time.Time
	generate func(n int) (string, error)
}

// NewService создает новый экземпляр Service.
func NewService(
	log *slog.Logger,
	users UserRepository,
	tokens TokenRepository,
	hasher Hasher,
	settings config.Session,
	opts ...Option,
) *Service {
	s := &Service{
		log:      log,
		users:    users,
		tokens:   tokens,
		hasher:   hasher,
		verifier: NewCredentialVerifier(log, users, hasher),
		settings: settings,
		now:      time.Now,
		generate: random.String,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SignUp регистрирует нового пользователя с bcrypt-хэшем пароля.
func (s *Service) SignUp(ctx context.Context, name, email, rawPassword string) (*models.User, error) {
	const op = "auth.SignUp"

	_, err := s.users.FindByEmail(ctx, email, false)
	switch {
	case err == nil:
		s.metrics.Signup(metrics.ResultUserExists)
		return nil, ErrUserAlreadyExists
	case !errors.Is(err, storage.ErrUserNotFound):
		s.metrics.Signup(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	hashed, err := s.hasher.Hash(rawPassword)
	if err != nil {
		s.metrics.Signup(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Roles:        []models.Role{},
	}
	if err = s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrUserExists) {
			s.metrics.Signup(metrics.ResultUserExists)
			return nil, ErrUserAlreadyExists
		}
		s.metrics.Signup(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Signup(metrics.ResultSuccess)
	s.log.Info("user signed up", slog.Int64("user_id", user.ID))
	s.publishRegistered(ctx, user)
	return user, nil
}

// Login проверяет учётные данные и выдаёт новый сессионный токен.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*models.Token, error) {
	const op = "auth.Login"

	user, err := s.verifier.Verify(ctx, email, rawPassword)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.metrics.Login(metrics.ResultInvalidCredentials)
			return nil, err
		}
		s.metrics.Login(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	count, err := s.tokens.CountActive(ctx, user.ID)
	if err != nil {
		s.metrics.Login(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if count >= s.settings.MaxDevices {
		s.metrics.Login(metrics.ResultDeviceLimit)
		return nil, ErrDeviceLimitExceeded
	}

	value, err := s.generate(s.settings.TokenLength)
	if err != nil {
		s.metrics.Login(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	token := &models.Token{
		Value:    value,
		UserID:   user.ID,
		User:     user,
		ExpiryAt: s.now().Add(s.settings.TokenTTL),
	}

	// Счётчик выше только ранний выход, окончательно лимит проверяется
	// в той же транзакции, что и вставка.
	if err = s.tokens.CreateWithinLimit(ctx, token, s.settings.MaxDevices); err != nil {
		if errors.Is(err, storage.ErrDeviceLimitReached) {
			s.metrics.Login(metrics.ResultDeviceLimit)
			return nil, ErrDeviceLimitExceeded
		}
		// пользователь удалён после проверки пароля
		if errors.Is(err, storage.ErrUserNotFound) {
			s.metrics.Login(metrics.ResultInvalidCredentials)
			return nil, ErrInvalidCredentials
		}
		s.metrics.Login(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Login(metrics.ResultSuccess)
	s.log.Info("user logged in", slog.Int64("user_id", user.ID), slog.Int64("token_id", token.ID))
	return token, nil
}

// ValidateToken возвращает владельца активного токена.
// Срок действия токена не продлевается.
func (s *Service) ValidateToken(ctx context.Context, tokenValue string) (*models.User, error) {
	const op = "auth.ValidateToken"
	now := s.now()

	if user, ok := s.cachedUser(ctx, tokenValue, now); ok {
		s.metrics.CacheHit()
		s.metrics.Validation(metrics.ResultSuccess)
		return user, nil
	}

	token, err := s.tokens.FindActive(ctx, tokenValue, now)
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			s.metrics.Validation(metrics.ResultInvalidToken)
			return nil, ErrInvalidToken
		}
		s.metrics.Validation(metrics.ResultError)
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if token.User == nil {
		s.metrics.Validation(metrics.ResultError)
		return nil, fmt.Errorf("%s: token %d has no owner loaded", op, token.ID)
	}

	s.cacheSession(ctx, tokenValue, token, now)
	s.metrics.Validation(metrics.ResultSuccess)
	return token.User, nil
}

// Logout отзывает активный токен, помечая его удалённым.
func (s *Service) Logout(ctx context.Context, tokenValue string) error {
	const op = "auth.Logout"

	token, err := s.tokens.FindActive(ctx, tokenValue, s.now())
	if err != nil {
		if errors.Is(err, storage.ErrTokenNotFound) {
			s.metrics.Logout(metrics.ResultInvalidToken)
			return ErrInvalidToken
		}
		s.metrics.Logout(metrics.ResultError)
		return fmt.Errorf("%s: %w", op, err)
	}

	// Сначала кэш: при недоступном Redis выход не выполняется вовсе.
	if err = s.revokeCached(ctx, tokenValue, token); err != nil {
		s.metrics.Logout(metrics.ResultError)
		return fmt.Errorf("%s: %w", op, err)
	}

	token.Deleted = true
	if err = s.tokens.Save(ctx, token); err != nil {
		s.metrics.Logout(metrics.ResultError)
		return fmt.Errorf("%s: %w", op, err)
	}

	s.metrics.Logout(metrics.ResultSuccess)
	s.log.Info("user logged out", slog.Int64("user_id", token.UserID), slog.Int64("token_id", token.ID))
	return nil
}

// cachedSession запись кэша проверенной сессии. Значение токена
// в запись не попадает.
type cachedSession struct {
	User  models.User  `json:"user"`
	Token models.Token `json:"token"`
}

func tokenDigest(tokenValue string) string {
	sum := sha256.Sum256([]byte(tokenValue))
	return hex.EncodeToString(sum[:])
}

func sessionKey(tokenValue string) string {
	return "session:" + tokenDigest(tokenValue)
}

// revokedKey метка отозванного токена. Живёт до истечения токена, то есть
// не меньше любой записи сессии, поэтому запоздалая запись в кэш после
// выхода не будет прочитана.
func revokedKey(tokenValue string) string {
	return "revoked:" + tokenDigest(tokenValue)
}

func (s *Service) revokeCached(ctx context.Context, tokenValue string, token *models.Token) error {
	if s.cache == nil {
		return nil
	}
	if ttl := token.ExpiryAt.Sub(s.now()); ttl > 0 {
		if err := s.cache.Set(ctx, revokedKey(tokenValue), token.ID, ttl); err != nil {
			return err
		}
	}
	return s.cache.Invalidate(ctx, sessionKey(tokenValue))
}

func (s *Service) cachedUser(ctx context.Context, tokenValue string, now time.Time) (*models.User, bool) {
	if s.cache == nil {
		return nil, false
	}
	var entry cachedSession
	found, err := s.cache.Get(ctx, sessionKey(tokenValue), &entry)
	if err != nil {
		s.log.Warn("session cache read failed", sl.Err(err))
		return nil, false
	}
	if !found || !entry.Token.IsActive(now) {
		return nil, false
	}
	revoked, err := s.cache.Exists(ctx, revokedKey(tokenValue))
	if err != nil {
		s.log.Warn("session cache read failed", sl.Err(err))
		return nil, false
	}
	if revoked {
		return nil, false
	}
	return &entry.User, true
}

func (s *Service) cacheSession(ctx context.Context, tokenValue string, token *models.Token, now time.Time) {
	if s.cache == nil {
		return
	}
	ttl := min(s.settings.CacheTTL, token.ExpiryAt.Sub(now))
	if ttl <= 0 {
		return
	}
	entry := cachedSession{
		User: *token.User,
		Token: models.Token{
			ID:       token.ID,
			UserID:   token.UserID,
			ExpiryAt: token.ExpiryAt,
			Deleted:  token.Deleted,
		},
	}
	entry.User.PasswordHash = ""
	if err := s.cache.Set(ctx, sessionKey(tokenValue), entry, ttl); err != nil {
		s.log.Warn("session cache write failed", sl.Err(err))
	}
}

func (s *Service) publishRegistered(ctx context.Context, user *models.User) {
	if s.events == nil {
		return
	}
	event := models.UserRegisteredEvent{
		UserID:       user.ID,
		Name:         user.Name,
		Email:        user.Email,
		RegisteredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, RoutingKeyUserRegistered, event); err != nil {
		s.log.Error("failed to publish user registered event", slog.Int64("user_id", user.ID), sl.Err(err))
	}
}
