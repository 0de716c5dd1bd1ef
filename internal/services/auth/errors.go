package auth

import "errors"

// Ошибки сервиса. Все они окончательные и отдаются клиенту как есть.
//
// ErrInvalidCredentials один и тот же для неизвестного email и неверного
// пароля. ErrInvalidToken один и тот же для неизвестного, отозванного и
// истёкшего токена.
var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrDeviceLimitExceeded = errors.New("device limit exceeded, log out from another device first")
	ErrUserAlreadyExists   = errors.New("user already exists, please try again with another email")
	ErrInvalidToken        = errors.New("session token is either invalid or expired, please log in again")
)
