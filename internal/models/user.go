package models

import "time"

// User is an end-user authenticated by phone and password, independent of
// the Telegram bot chat.
type User struct {
	Base
	Phone    string  `gorm:"uniqueIndex;not null;size:120" json:"phone"`
	Name     string  `gorm:"not null;size:80" json:"name"`
	Password string  `gorm:"not null" json:"-"`
	Orders   []Order `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"orders,omitempty"`
}

// AuthToken maps a hashed bearer token to a user until it expires.
type AuthToken struct {
	Base
	TokenHash string    `gorm:"uniqueIndex;not null;size:64" json:"-"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
}
