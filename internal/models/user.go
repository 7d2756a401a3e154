package models

import (
	"time"
)

type UserRole string

const (
	RoleGuest UserRole = "guest"
	RoleUser  UserRole = "user"
	RoleAdmin UserRole = "admin"
)

func (r UserRole) String() string {
	return string(r)
}

func IsValidUserRole(role string) bool {
	switch role {
	case "guest", "user", "admin":
		return true
	default:
		return false
	}
}

type User struct {
	ID           int64     `json:"id" db:"id"`
	TelegramID   int64     `json:"telegram_id" db:"telegram_id"`
	ChatID       int64     `json:"chat_id" db:"chat_id"`
	Nickname     string    `json:"nickname" db:"nickname"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	Phone        string    `json:"phone,omitempty" db:"phone"`
	Email        string    `json:"email,omitempty" db:"email"`
	StreamID     int64     `json:"stream_id,omitempty" db:"stream_id"` // 0 — поток не назначен
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type Consent struct {
	UserID    int64     `json:"user_id" db:"user_id"`
	Given     bool      `json:"given" db:"given"`
	DecidedAt time.Time `json:"decided_at" db:"decided_at"`
}
