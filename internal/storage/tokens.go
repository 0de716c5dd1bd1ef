package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/magabrotheeeer/user-service/internal/models"
)

// CountActive возвращает количество неудалённых токенов пользователя
// независимо от срока их действия.
func (s *Storage) CountActive(ctx context.Context, userID int64) (int, error) {
	const op = "storage.CountActive"

	count, err := countActive(ctx, s.DB, userID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return count, nil
}

// FindActive ищет неудалённый и неистёкший на момент now токен по значению
// и возвращает его вместе с владельцем.
func (s *Storage) FindActive(ctx context.Context, value string, now time.Time) (*models.Token, error) {
	const op = "storage.FindActive"

	query := `SELECT t.id, t.value, t.user_id, t.expiry_at, t.deleted, t.created_at,
			      u.id, u.name, u.email, u.password_hash, u.deleted, u.created_at
			  FROM tokens t
			  JOIN users u ON u.id = t.user_id
			  WHERE t.value = $1 AND t.deleted = FALSE AND t.expiry_at > $2
			  ORDER BY t.id DESC
			  LIMIT 1`
	t := &models.Token{User: &models.User{}}
	err := s.DB.QueryRowContext(ctx, query, value, now).Scan(
		&t.ID, &t.Value, &t.UserID, &t.ExpiryAt, &t.Deleted, &t.CreatedAt,
		&t.User.ID, &t.User.Name, &t.User.Email, &t.User.PasswordHash, &t.User.Deleted, &t.User.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, ErrTokenNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if t.User.Roles, err = loadRoles(ctx, s.DB, t.UserID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}

// Save вставляет токен с нулевым ID или обновляет существующую строку
// с тем же ID. Повторная вставка для той же сессии не выполняется.
func (s *Storage) Save(ctx context.Context, token *models.Token) error {
	const op = "storage.Save"

	if token.ID == 0 {
		if err := insertToken(ctx, s.DB, token); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	}

	res, err := s.DB.ExecContext(ctx, `UPDATE tokens
			  SET value = $1, expiry_at = $2, deleted = $3
			  WHERE id = $4`,
		token.Value, token.ExpiryAt, token.Deleted, token.ID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", op, ErrTokenNotFound)
	}
	return nil
}

// CreateWithinLimit атомарно вставляет новый токен, только если у владельца
// меньше limit неудалённых токенов. Строка пользователя блокируется
// на время транзакции, поэтому параллельные входы одного пользователя
// выполняются последовательно.
func (s *Storage) CreateWithinLimit(ctx context.Context, token *models.Token, limit int) (err error) {
	const op = "storage.CreateWithinLimit"

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var userID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM users WHERE id = $1 AND deleted = FALSE FOR UPDATE`, token.UserID).
		Scan(&userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	count, err := countActive(ctx, tx, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if count >= limit {
		err = ErrDeviceLimitReached
		return fmt.Errorf("%s: %w", op, err)
	}

	if err = insertToken(ctx, tx, token); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func countActive(ctx context.Context, q querier, userID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tokens WHERE user_id = $1 AND deleted = FALSE`, userID).
		Scan(&count)
	return count, err
}

func insertToken(ctx context.Context, q querier, token *models.Token) error {
	return q.QueryRowContext(ctx, `INSERT INTO tokens (value, user_id, expiry_at, deleted)
			  VALUES ($1, $2, $3, $4)
			  RETURNING id, created_at`,
		token.Value, token.UserID, token.ExpiryAt, token.Deleted).
		Scan(&token.ID, &token.CreatedAt)
}
