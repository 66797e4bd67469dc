package webhook

import (
	"github.com/shopspring/decimal"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
)

// Event names a notification kind understood by the bot engine.
type Event string

const (
	EventOrderStatusChanged Event = "order_status_changed"
	EventOrderVerified      Event = "order_verified"
	EventAdminReplied       Event = "admin_replied"
)

// Events lists every event the notifier can deliver.
var Events = []Event{EventOrderStatusChanged, EventOrderVerified, EventAdminReplied}

// ParseEvent returns the event named s, or false for an unknown name.
func ParseEvent(s string) (Event, bool) {
	for _, e := range Events {
		if string(e) == s {
			return e, true
		}
	}
	return "", false
}

// Payload is the JSON body posted to the bot engine. Optional fields are
// omitted depending on the event kind.
type Payload struct {
	Event          Event            `json:"event" binding:"required"`
	OrderID        string           `json:"order_id"`
	Status         string           `json:"status,omitempty"`
	TelegramID     string           `json:"telegram_id"`
	ChatID         int64            `json:"chat_id"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	OrderType      string           `json:"order_type,omitempty"`
	AdminReceipt   string           `json:"admin_receipt,omitempty"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	UserBank       string           `json:"user_bank,omitempty"`
	Receipt        string           `json:"receipt,omitempty"`
	MessageContent string           `json:"message_content,omitempty"`
	MessageID      string           `json:"message_id,omitempty"`
}

// OrderPayload describes an order status change. A verified order is sent
// as order_verified; every other status as order_status_changed. The order's
// TelegramIdentity must be loaded for the recipient fields to be filled.
func OrderPayload(order *models.Order) Payload {
	event := EventOrderStatusChanged
	if order.Status == models.OrderStatusVerified {
		event = EventOrderVerified
	}

	amount, price := order.Amount, order.Price
	p := Payload{
		Event:        event,
		OrderID:      order.Code,
		Status:       string(order.Status),
		Amount:       &amount,
		OrderType:    string(order.Type),
		AdminReceipt: order.ConfirmReceipt,
		Price:        &price,
		UserBank:     order.UserBank,
		Receipt:      order.Receipt,
	}
	if order.TelegramIdentity != nil {
		p.TelegramID = order.TelegramIdentity.ExternalID()
		p.ChatID = order.TelegramIdentity.ChatID
	}
	return p
}

// ReplyPayload describes an admin chat reply. orderCode may be empty when
// the identity has no orders.
func ReplyPayload(identity *models.TelegramIdentity, orderCode string, msg *models.Message) Payload {
	return Payload{
		Event:          EventAdminReplied,
		OrderID:        orderCode,
		TelegramID:     identity.ExternalID(),
		ChatID:         identity.ChatID,
		MessageContent: msg.Content,
		MessageID:      msg.ID,
	}
}
