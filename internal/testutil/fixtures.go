package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/orderid"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique phone.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	phone := fmt.Sprintf("0959%07d", nextID())
	return CreateTestUserWithPhone(t, db, phone)
}

// CreateTestUserWithPhone creates a user with the given phone and the
// password "password123".
func CreateTestUserWithPhone(t *testing.T, db *gorm.DB, phone string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Phone:    phone,
		Name:     "Test User",
		Password: string(hash),
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

func bankFields(bankName, balance string) models.BankAccountFields {
	return models.BankAccountFields{
		BankName:      bankName,
		AccountNumber: fmt.Sprintf("%010d", nextID()),
		AccountName:   "Test Holder",
		Enabled:       true,
		Balance:       decimal.RequireFromString(balance),
	}
}

// CreateTestThaiAccount creates an enabled Thai bank account.
func CreateTestThaiAccount(t *testing.T, db *gorm.DB, balance string) *models.ThaiBankAccount {
	t.Helper()

	account := &models.ThaiBankAccount{BankAccountFields: bankFields(fmt.Sprintf("KBank %d", nextID()), balance)}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test thai account: %v", err)
	}
	return account
}

// CreateTestMyanmarAccount creates an enabled Myanmar bank account.
func CreateTestMyanmarAccount(t *testing.T, db *gorm.DB, balance string) *models.MyanmarBankAccount {
	t.Helper()
	return CreateTestMyanmarAccountNamed(t, db, fmt.Sprintf("KBZ %d", nextID()), balance)
}

// CreateTestMyanmarAccountNamed creates an enabled Myanmar bank account with
// the given bank name.
func CreateTestMyanmarAccountNamed(t *testing.T, db *gorm.DB, bankName, balance string) *models.MyanmarBankAccount {
	t.Helper()

	account := &models.MyanmarBankAccount{BankAccountFields: bankFields(bankName, balance)}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("failed to create test myanmar account: %v", err)
	}
	return account
}

// CreateTestIdentity creates a Telegram identity with a unique chat id.
func CreateTestIdentity(t *testing.T, db *gorm.DB) *models.TelegramIdentity {
	t.Helper()

	n := nextID()
	externalID := fmt.Sprintf("%d", 700000+n)
	identity := &models.TelegramIdentity{
		ChatID:         900000 + n,
		TelegramUserID: &externalID,
	}
	if err := db.Create(identity).Error; err != nil {
		t.Fatalf("failed to create test identity: %v", err)
	}
	return identity
}

// OrderOption customizes a fixture order before it is inserted.
type OrderOption func(*models.Order)

// WithStatus sets the order status.
func WithStatus(status models.OrderStatus) OrderOption {
	return func(o *models.Order) { o.Status = status }
}

// WithIdentity links the order to a Telegram identity.
func WithIdentity(identity *models.TelegramIdentity) OrderOption {
	return func(o *models.Order) { o.TelegramIdentityID = &identity.ID }
}

// WithAccounts links the order to bank accounts; either may be nil.
func WithAccounts(thai *models.ThaiBankAccount, myanmar *models.MyanmarBankAccount) OrderOption {
	return func(o *models.Order) {
		if thai != nil {
			o.ThaiBankAccountID = &thai.ID
		}
		if myanmar != nil {
			o.MyanmarBankAccountID = &myanmar.ID
		}
	}
}

// WithUser links the order to a user.
func WithUser(user *models.User) OrderOption {
	return func(o *models.Order) { o.UserID = &user.ID }
}

// WithCreatedAt overrides the creation time.
func WithCreatedAt(at time.Time) OrderOption {
	return func(o *models.Order) { o.CreatedAt = at }
}

// CreateTestOrder inserts a pending buy order with a unique code.
func CreateTestOrder(t *testing.T, db *gorm.DB, opts ...OrderOption) *models.Order {
	t.Helper()

	order := &models.Order{
		Code:   orderid.Format(time.Now(), int(nextID()%orderid.MaxSequence)+1, models.OrderTypeBuy),
		Type:   models.OrderTypeBuy,
		Amount: decimal.RequireFromString("1213.00"),
		Price:  decimal.RequireFromString("125.78"),
		Status: models.OrderStatusPending,
	}
	for _, opt := range opts {
		opt(order)
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("failed to create test order: %v", err)
	}
	return order
}

// CreateTestMessage stores a message in the identity's chat.
func CreateTestMessage(t *testing.T, db *gorm.DB, identity *models.TelegramIdentity, content string, fromBackend bool) *models.Message {
	t.Helper()

	msg := &models.Message{
		TelegramIdentityID: identity.ID,
		Content:            content,
		FromBackend:        fromBackend,
	}
	if err := db.Create(msg).Error; err != nil {
		t.Fatalf("failed to create test message: %v", err)
	}
	return msg
}
