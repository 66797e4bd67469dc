package models

// AuditLog records admin and bot operations on orders and balances. Status
// transitions overwrite the order row, so this is where prior states live.
type AuditLog struct {
	Base
	Actor        string `gorm:"not null;size:100" json:"actor"`
	Action       string `gorm:"not null;size:50" json:"action"`
	ResourceType string `gorm:"not null;size:50" json:"resource_type"`
	ResourceID   string `gorm:"index;size:64" json:"resource_id"`
	Changes      string `json:"changes,omitempty"`
}
