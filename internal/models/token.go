package models

import "time"

// Token сессионный токен пользователя.
//
// Токен активен, пока он не удалён и не истёк. Удаление мягкое: при выходе
// выставляется Deleted, строка в базе остаётся.
type Token struct {
	ID        int64
	Value     string
	UserID    int64
	User      *User
	ExpiryAt  time.Time
	Deleted   bool
	CreatedAt time.Time
}

// IsActive сообщает, активен ли токен на момент now.
func (t *Token) IsActive(now time.Time) bool {
	return !t.Deleted && t.ExpiryAt.After(now)
}
