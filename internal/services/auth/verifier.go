package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magabrotheeeer/user-service/internal/lib/password"
	"github.com/magabrotheeeer/user-service/internal/lib/sl"
	"github.com/magabrotheeeer/user-service/internal/models"
	"github.com/magabrotheeeer/user-service/internal/storage"
)

// dummyPassword хэшируется при первой надобности; сравнение с ним выравнивает время
// ответа для неизвестного email и неверного пароля.
const dummyPassword = "dummy-password-for-unknown-users"

// CredentialVerifier проверяет email и пароль по сохранённому хэшу.
type CredentialVerifier struct {
	log    *slog.Logger
	users  UserRepository
	hasher Hasher

	dummyMu   sync.Mutex
	dummyHash string
}

// NewCredentialVerifier создает CredentialVerifier.
func NewCredentialVerifier(log *slog.Logger, users UserRepository, hasher Hasher) *CredentialVerifier {
	return &CredentialVerifier{
		log:    log,
		users:  users,
		hasher: hasher,
	}
}

// Verify возвращает неудалённого пользователя, если пароль совпадает с хэшем.
// Отсутствие пользователя и несовпадение пароля дают один и тот же
// ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, email, rawPassword string) (*models.User, error) {
	const op = "auth.Verify"

	user, err := v.users.FindByEmail(ctx, email, false)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			v.compareDummy(rawPassword)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err = v.hasher.Compare(user.PasswordHash, rawPassword); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// compareDummy при ошибке хэширования повторяет попытку на следующем вызове.
func (v *CredentialVerifier) compareDummy(rawPassword string) {
	hash, err := v.dummy()
	if err != nil {
		v.log.Error("failed to hash dummy password", sl.Err(err))
		return
	}
	_ = v.hasher.Compare(hash, rawPassword)
}

func (v *CredentialVerifier) dummy() (string, error) {
	v.dummyMu.Lock()
	defer v.dummyMu.Unlock()
	if v.dummyHash != "" {
		return v.dummyHash, nil
	}
	hash, err := v.hasher.Hash(dummyPassword)
	if err != nil {
		return "", err
	}
	v.dummyHash = hash
	return hash, nil
}
