package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/pagination"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/webhook"
)

// UserServicer defines the contract for end-user accounts.
type UserServicer interface {
	Register(phone, name, password string) (*models.User, error)
	Authenticate(phone, password string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
}

// TokenStorer issues and resolves opaque bearer tokens for users.
type TokenStorer interface {
	Issue(userID string) (string, time.Time, error)
	Resolve(token string) (string, error)
	Revoke(token string) error
	PurgeExpired() (int64, error)
}

// IdentityServicer maps bot chat sessions to TelegramIdentity rows.
type IdentityServicer interface {
	Resolve(chatID int64, telegramUserID string) (*models.TelegramIdentity, error)
	GetByChatID(chatID int64) (*models.TelegramIdentity, error)
	GetByID(id string) (*models.TelegramIdentity, error)
}

// BankAccountView is the currency-agnostic rendering of a bank account.
type BankAccountView struct {
	ID            string              `json:"id"`
	Currency      models.BankCurrency `json:"currency"`
	DisplayName   string              `json:"display_name"`
	BankName      string              `json:"bank_name"`
	AccountNumber string              `json:"account_number"`
	AccountName   string              `json:"account_name"`
	QRImage       string              `json:"qr_image,omitempty"`
	Enabled       bool                `json:"enabled"`
	Balance       decimal.Decimal     `json:"balance"`
}

// BalanceSnapshot lists every account balance grouped by currency.
type BalanceSnapshot struct {
	Thai    []BankAccountView `json:"thai"`
	Myanmar []BankAccountView `json:"myanmar"`
	TakenAt time.Time         `json:"taken_at"`
}

// BankServicer defines the contract for bank accounts and their balances.
type BankServicer interface {
	ListEnabled(currency models.BankCurrency) ([]BankAccountView, error)
	GetAccount(currency models.BankCurrency, id string) (*BankAccountView, error)
	FindMyanmarByName(name string) (*models.MyanmarBankAccount, error)
	CreateAccount(currency models.BankCurrency, fields models.BankAccountFields) (*BankAccountView, error)
	SetEnabled(currency models.BankCurrency, id string, enabled bool) (*BankAccountView, error)
	BalanceSnapshot() (*BalanceSnapshot, error)
	ApplyDelta(tx *gorm.DB, currency models.BankCurrency, id string, delta decimal.Decimal) (decimal.Decimal, error)
}

// OrderInput carries an order submission. Amount and Price are raw strings
// so each field can be reported separately when malformed.
type OrderInput struct {
	Type                 string
	Amount               string
	Price                string
	ThaiBankAccountID    string
	MyanmarBankAccountID string
	MyanmarBankName      string
	ChatID               *int64
	TelegramUserID       string
	UserID               string
	Receipts             []string
	QR                   string
	UserBank             string
}

// OrderFilter holds optional filter parameters for listing orders.
type OrderFilter struct {
	Status *models.OrderStatus
	Type   *models.OrderType
	Code   string
}

// OrderServicer defines the contract for the order lifecycle.
type OrderServicer interface {
	CreateOrder(input OrderInput) (*models.Order, error)
	GetOrderByCode(code string) (*models.Order, error)
	ListOrders(filter OrderFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Order], error)
	GetLatestPendingByChatID(chatID int64) (*models.Order, error)
	GetLatestByUserID(userID string) (*models.Order, error)
	UpdateStatus(code string, status models.OrderStatus, path StatusPath, actor string) (*models.Order, error)
	AttachConfirmReceipt(code string, paths []string, actor string) (*models.Order, error)
	DeleteOrder(code, actor string) error
}

// SettlementInput names the signed balance changes for one order. Account
// ids default to the accounts linked on the order.
type SettlementInput struct {
	ThaiAccountID    *string
	ThaiDelta        *decimal.Decimal
	MyanmarAccountID *string
	MyanmarDelta     *decimal.Decimal
}

// BalanceChange is one side of a settlement that was applied.
type BalanceChange struct {
	Currency  models.BankCurrency `json:"currency"`
	AccountID string              `json:"account_id"`
	Delta     decimal.Decimal     `json:"delta"`
	Balance   decimal.Decimal     `json:"balance"`
}

// SkippedSide is one side of a settlement that could not be applied.
type SkippedSide struct {
	Currency  models.BankCurrency `json:"currency"`
	AccountID string              `json:"account_id,omitempty"`
	Reason    string              `json:"reason"`
}

// SettlementResult reports what a settlement changed.
type SettlementResult struct {
	Order   *models.Order   `json:"order"`
	Applied []BalanceChange `json:"applied"`
	Skipped []SkippedSide   `json:"skipped"`
}

// SettlementServicer approves an order and applies its balance deltas as one
// unit, at most once per order.
type SettlementServicer interface {
	Settle(code string, input SettlementInput, actor string) (*SettlementResult, error)
}

// MessageInput is one chat turn submitted by the bot.
type MessageInput struct {
	ChatID         int64
	TelegramUserID string
	Content        string
	ChosenOption   string
	Images         []string
	FromBot        bool
	FromBackend    bool
	Buttons        string
}

// ChatSummary is one row of the admin chat list.
type ChatSummary struct {
	IdentityID      string    `json:"identity_id"`
	ChatID          int64     `json:"chat_id"`
	TelegramID      string    `json:"telegram_id,omitempty"`
	LastMessage     string    `json:"last_message"`
	LastMessageAt   time.Time `json:"last_message_at"`
	UnseenCount     int64     `json:"unseen_count"`
	LastOrderCode   string    `json:"last_order_id,omitempty"`
	LastOrderStatus string    `json:"last_order_status,omitempty"`
}

// ChatDetail is the admin view of one conversation.
type ChatDetail struct {
	Identity  *models.TelegramIdentity `json:"identity"`
	Messages  []models.Message         `json:"messages"`
	LastOrder *models.Order            `json:"last_order,omitempty"`
}

// MessageServicer defines the contract for the bot/admin chat relay.
type MessageServicer interface {
	SubmitMessage(input MessageInput) (*models.Message, error)
	PollUnseen(chatID int64) ([]models.Message, error)
	ListChats() ([]ChatSummary, error)
	ChatDetail(identityID string) (*ChatDetail, error)
	AdminReply(identityID, content string, images []string, actor string) (*models.Message, error)
	UpdateLatestOrderStatus(identityID string, status models.OrderStatus, settlement SettlementInput, actor string) (*models.Order, error)
}

// SettingsSnapshot is the public settings read by the bot and clients.
type SettingsSnapshot struct {
	Maintenance   bool             `json:"maintenance_mode"`
	AuthFeature   bool             `json:"auth_feature"`
	Buy           *decimal.Decimal `json:"buy"`
	Sell          *decimal.Decimal `json:"sell"`
	RateUpdatedAt *time.Time       `json:"rate_updated_at,omitempty"`
}

// WebhookLogFilter holds optional filter parameters for listing webhook logs.
type WebhookLogFilter struct {
	EventType string
	Success   *bool
}

// SettingsServicer defines the contract for singleton settings and the
// webhook delivery log.
type SettingsServicer interface {
	Get() (*SettingsSnapshot, error)
	SetMaintenance(on bool) error
	SetAuthFeature(on bool) error
	AddExchangeRate(buy, sell decimal.Decimal) (*models.ExchangeRate, error)
	GetWebhookSettings() (*models.WebhookSettings, error)
	UpdateWebhookSettings(url, secret string, enabled bool) (*models.WebhookSettings, error)
	ListWebhookLogs(filter WebhookLogFilter, page pagination.PageRequest) (*pagination.PageResponse[models.WebhookLog], error)
	PurgeWebhookLogs(before time.Time) (int64, error)
}

// AuditServicer defines the contract for audit log recording.
type AuditServicer interface {
	Log(actor, action, resourceType, resourceID string, changes map[string]any)
	WithTx(tx *gorm.DB) AuditServicer
}

// EventPublisher schedules bot notifications without blocking the caller.
type EventPublisher interface {
	Publish(p webhook.Payload)
}

type noopPublisher struct{}

func (noopPublisher) Publish(webhook.Payload) {}
