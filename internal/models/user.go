package models

import (
	"time"

	"github.com/google/uuid"
)

// Роли пользователей платформы.
const (
	RoleClient    = "client"
	RoleVendor    = "vendor"
	RoleCourier   = "courier"
	RoleForwarder = "forwarder"
	RoleBureau    = "bureau"
	RoleAdmin     = "admin"
)

// User описывает сущность пользователя платформы.
type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Username     string     `db:"username" json:"username"`
	PasswordHash string     `db:"password_hash" json:"-"`
	Role         string     `db:"role" json:"role"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	LastLoginAt  *time.Time `db:"last_login_at" json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Session представляет сохранённую сессию пользователя.
type Session struct {
	ID           uuid.UUID `db:"id" json:"id"`
	UserID       uuid.UUID `db:"user_id" json:"user_id"`
	RefreshToken string    `db:"refresh_token" json:"refresh_token"`
	UserAgent    *string   `db:"user_agent" json:"user_agent,omitempty"`
	IPAddress    *string   `db:"ip_address" json:"ip_address,omitempty"`
	ExpiresAt    time.Time `db:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// ValidRole проверяет, что роль входит в закрытый список ролей платформы.
func ValidRole(role string) bool {
	switch role {
	case RoleClient, RoleVendor, RoleCourier, RoleForwarder, RoleBureau, RoleAdmin:
		return true
	}
	return false
}

// SelfAssignableRole проверяет, что роль доступна при самостоятельной
// регистрации. Роль admin выдаётся только через служебную утилиту.
func SelfAssignableRole(role string) bool {
	return role != RoleAdmin && ValidRole(role)
}
