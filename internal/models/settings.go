package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaintenanceMode is a singleton flag read by the bot before serving users.
type MaintenanceMode struct {
	Base
	On bool `gorm:"not null;default:false" json:"on"`
}

// AuthFeature is a singleton flag toggling phone/password auth in clients.
type AuthFeature struct {
	Base
	On bool `gorm:"not null;default:false" json:"on"`
}

// ExchangeRate is one published rate pair; the latest UpdatedAt wins.
type ExchangeRate struct {
	Base
	Buy  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"buy"`
	Sell decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"sell"`
}

// WebhookSettings is the stored bot webhook target, used when the
// environment does not configure one.
type WebhookSettings struct {
	Base
	WebhookURL string `gorm:"not null;size:255" json:"webhook_url"`
	Secret     string `gorm:"not null;size:255" json:"-"`
	Enabled    bool   `gorm:"not null;default:true" json:"enabled"`
}

// WebhookLog is an append-only record of one notification outcome.
type WebhookLog struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	EventType  string    `gorm:"not null;size:50;index" json:"event_type"`
	Payload    string    `gorm:"not null" json:"payload"`
	StatusCode *int      `json:"status_code,omitempty"`
	Response   string    `json:"response,omitempty"`
	Success    bool      `gorm:"not null;default:false;index" json:"success"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
}
