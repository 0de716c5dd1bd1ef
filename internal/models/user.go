// Package models содержит доменные модели сервиса пользователей:
// учётную запись, роль и сессионный токен.
package models

import "time"

// User представляет зарегистрированного пользователя системы.
type User struct {
	ID           int64     // Уникальный идентификатор пользователя
	Name         string    // Отображаемое имя
	Email        string    // Электронная почта, уникальна среди неудалённых пользователей
	PasswordHash string    // bcrypt-хэш пароля
	Roles        []Role    // Роли пользователя, в логике сервиса не используются
	Deleted      bool      // Признак мягкого удаления
	CreatedAt    time.Time // Дата регистрации
}

// RoleNames возвращает имена ролей пользователя.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}

// Role описывает роль пользователя.
type Role struct {
	ID   int64
	Name string
}

// UserRegisteredEvent публикуется после успешной регистрации.
type UserRegisteredEvent struct {
	UserID       int64     `json:"user_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
}
