package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderType is the direction of an exchange order
type OrderType string

const (
	OrderTypeBuy  OrderType = "buy"
	OrderTypeSell OrderType = "sell"
)

// Valid reports whether t is buy or sell.
func (t OrderType) Valid() bool {
	return t == OrderTypeBuy || t == OrderTypeSell
}

// OrderStatus is the lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusVerified OrderStatus = "verified"
	OrderStatusApproved OrderStatus = "approved"
	OrderStatusDeclined OrderStatus = "declined"
	OrderStatusComplain OrderStatus = "complain"
)

// OrderStatuses is the canonical status enumeration.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusVerified,
	OrderStatusApproved,
	OrderStatusDeclined,
	OrderStatusComplain,
}

// Valid reports whether s belongs to the canonical enumeration.
func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Order is a single buy/sell request moving from review to settlement.
type Order struct {
	Base
	Code   string          `gorm:"uniqueIndex;not null;size:50" json:"order_id"`
	Type   OrderType       `gorm:"not null;size:10;index" json:"order_type"`
	Amount decimal.Decimal `gorm:"type:numeric(20,2);not null" json:"amount"`
	Price  decimal.Decimal `gorm:"type:numeric(20,4);not null" json:"price"`
	Status OrderStatus     `gorm:"not null;size:20;default:'pending';index" json:"status"`

	UserID               *string `gorm:"type:uuid;index" json:"user_id,omitempty"`
	ThaiBankAccountID    *string `gorm:"type:uuid" json:"thai_bank_account_id,omitempty"`
	MyanmarBankAccountID *string `gorm:"type:uuid" json:"myanmar_bank_account_id,omitempty"`
	TelegramIdentityID   *string `gorm:"type:uuid;index" json:"telegram_identity_id,omitempty"`

	Receipt        string `gorm:"size:1024" json:"receipt,omitempty"`
	ConfirmReceipt string `gorm:"size:1024" json:"confirm_receipt,omitempty"`
	UserBank       string `gorm:"size:1024" json:"user_bank,omitempty"`
	QR             string `gorm:"size:255" json:"qr,omitempty"`

	// SettledAt is set exactly once, when balances were applied.
	SettledAt *time.Time `json:"settled_at,omitempty"`

	ThaiBankAccount    *ThaiBankAccount    `gorm:"foreignKey:ThaiBankAccountID" json:"thai_bank_account,omitempty"`
	MyanmarBankAccount *MyanmarBankAccount `gorm:"foreignKey:MyanmarBankAccountID" json:"myanmar_bank_account,omitempty"`
	TelegramIdentity   *TelegramIdentity   `gorm:"foreignKey:TelegramIdentityID" json:"telegram_identity,omitempty"`
}

// Settled reports whether balances were already applied for this order.
func (o *Order) Settled() bool {
	return o.SettledAt != nil
}

// JoinPaths joins stored file references into a single column value.
func JoinPaths(paths []string) string {
	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ",")
}

// SplitPaths is the inverse of JoinPaths.
func SplitPaths(value string) []string {
	if value == "" {
		return nil
	}
	return strings.Split(value, ",")
}
