package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/user-service/internal/migrations"
	"github.com/magabrotheeeer/user-service/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start container")

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, connStr)
	require.NoError(t, err, "failed to create storage")

	migrationsPath, err := filepath.Abs("../../migrations")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, migrationsPath))

	t.Cleanup(func() {
		_ = storage.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})
	return storage
}

// testDataFactory создает тестовые данные напрямую в БД
type testDataFactory struct {
	t       *testing.T
	storage *Storage
}

func newTestDataFactory(t *testing.T, storage *Storage) *testDataFactory {
	return &testDataFactory{t: t, storage: storage}
}

// createUser создает неудалённого пользователя с уникальным email
func (f *testDataFactory) createUser() *models.User {
	u := &models.User{
		Name:         "Test User",
		Email:        uuid.New().String() + "@example.com",
		PasswordHash: "hashedpassword",
	}
	require.NoError(f.t, f.storage.CreateUser(context.Background(), u))
	return u
}

// createToken вставляет токен с заданными сроком и флагом удаления
func (f *testDataFactory) createToken(userID int64, expiryAt time.Time, deleted bool) *models.Token {
	tok := &models.Token{
		Value:    uuid.New().String(),
		UserID:   userID,
		ExpiryAt: expiryAt,
		Deleted:  deleted,
	}
	require.NoError(f.t, f.storage.Save(context.Background(), tok))
	return tok
}

// softDeleteUser помечает пользователя удалённым
func (f *testDataFactory) softDeleteUser(id int64) {
	_, err := f.storage.DB.Exec(`UPDATE users SET deleted = TRUE WHERE id = $1`, id)
	require.NoError(f.t, err)
}

// assignRole назначает пользователю роль по имени
func (f *testDataFactory) assignRole(userID int64, role string) {
	_, err := f.storage.DB.Exec(`INSERT INTO user_roles (user_id, role_id)
		SELECT $1, id FROM roles WHERE name = $2`, userID, role)
	require.NoError(f.t, err)
}

// tokenRowCount возвращает количество строк токенов пользователя
func (f *testDataFactory) tokenRowCount(userID int64) int {
	var count int
	err := f.storage.DB.QueryRow(`SELECT COUNT(*) FROM tokens WHERE user_id = $1`, userID).Scan(&count)
	require.NoError(f.t, err)
	return count
}
