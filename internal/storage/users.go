package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/user-service/internal/models"
)

// CreateUser сохраняет нового пользователя и заполняет ID и CreatedAt.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) error {
	const op = "storage.CreateUser"

	query := `INSERT INTO users (name, email, password_hash)
			  VALUES ($1, $2, $3)
			  RETURNING id, created_at;`
	err := s.DB.QueryRowContext(ctx, query, user.Name, user.Email, user.PasswordHash).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	user.Deleted = false
	return nil
}

// FindByEmail возвращает пользователя по email. Удалённые пользователи
// учитываются только при includeDeleted; среди нескольких записей
// выбирается самая свежая.
func (s *Storage) FindByEmail(ctx context.Context, email string, includeDeleted bool) (*models.User, error) {
	const op = "storage.FindByEmail"

	query := `SELECT id, name, email, password_hash, deleted, created_at
			  FROM users
			  WHERE email = $1 AND ($2 OR deleted = FALSE)
			  ORDER BY deleted ASC, id DESC
			  LIMIT 1`
	u := &models.User{}
	err := s.DB.QueryRowContext(ctx, query, email, includeDeleted).
		Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Deleted, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if u.Roles, err = loadRoles(ctx, s.DB, u.ID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

func loadRoles(ctx context.Context, q querier, userID int64) ([]models.Role, error) {
	const op = "storage.loadRoles"

	rows, err := q.QueryContext(ctx, `SELECT r.id, r.name
			  FROM roles r
			  JOIN user_roles ur ON ur.role_id = r.id
			  WHERE ur.user_id = $1
			  ORDER BY r.id`, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	roles := make([]models.Role, 0)
	for rows.Next() {
		var r models.Role
		if err = rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		roles = append(roles, r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return roles, nil
}
