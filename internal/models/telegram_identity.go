package models

// TelegramIdentity correlates a bot chat session with its orders and messages.
type TelegramIdentity struct {
	Base
	ChatID         int64     `gorm:"index;not null" json:"chat_id"`
	TelegramUserID *string   `gorm:"uniqueIndex;size:64" json:"telegram_id,omitempty"`
	Orders         []Order   `gorm:"foreignKey:TelegramIdentityID" json:"orders,omitempty"`
	Messages       []Message `gorm:"foreignKey:TelegramIdentityID" json:"messages,omitempty"`
}

// ExternalID returns the Telegram user id, or an empty string.
func (t *TelegramIdentity) ExternalID() string {
	if t.TelegramUserID == nil {
		return ""
	}
	return *t.TelegramUserID
}

// LastOrder returns the most recently created order among the loaded Orders.
func (t *TelegramIdentity) LastOrder() *Order {
	var last *Order
	for i := range t.Orders {
		if last == nil || t.Orders[i].CreatedAt.After(last.CreatedAt) {
			last = &t.Orders[i]
		}
	}
	return last
}

// HasPending reports whether the last order is still pending.
func (t *TelegramIdentity) HasPending() bool {
	last := t.LastOrder()
	return last != nil && last.Status == OrderStatusPending
}
