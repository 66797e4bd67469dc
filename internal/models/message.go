package models

// Message is one chat turn between a bot user and the admins.
type Message struct {
	Base
	TelegramIdentityID string `gorm:"type:uuid;index;not null" json:"telegram_identity_id"`
	Content            string `json:"content"`
	ChosenOption       string `gorm:"size:255" json:"chosen_option,omitempty"`
	Image              string `gorm:"size:1024" json:"image,omitempty"`
	FromBot            bool   `gorm:"not null;default:false" json:"from_bot"`
	FromBackend        bool   `gorm:"not null;default:false" json:"from_backend"`
	SeenByUser         bool   `gorm:"not null;default:false" json:"seen_by_user"`
	SeenByAdmin        bool   `gorm:"not null;default:false" json:"seen_by_admin"`
	Buttons            string `json:"buttons,omitempty"`
}
