package models

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	Username           string    `gorm:"not null"                 json:"username"`
	Email              string    `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash       string    `gorm:"not null"                 json:"-"`
	Role               Role      `gorm:"not null"                 json:"role"`
	IsActive           bool      `gorm:"default:true"             json:"is_active"`
	MustChangePassword bool      `gorm:"default:false"            json:"must_change_password"`
	LastLoginAt        *time.Time `json:"last_login_at,omitempty"`
	LoginCount         uint       `gorm:"default:0"               json:"login_count"`
	CreatedAt          time.Time  `json:"created_at"`
}

type Session struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"  json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	UserEmail string    `gorm:"not null"              json:"user_email"`
	TokenHash string    `gorm:"uniqueIndex;not null"  json:"-"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Remember  bool      `gorm:"default:false"         json:"remember"`
	CreatedAt time.Time `gorm:"not null"              json:"created_at"`
	ExpiresAt time.Time `gorm:"index;not null"        json:"expires_at"`
}

// IsExpired reports whether the session has passed its expiry horizon.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
