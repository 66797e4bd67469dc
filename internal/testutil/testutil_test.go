package testutil_test

import (
	"testing"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/orderid"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/testutil"
)

func TestSetupTestDB(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	var count int64
	for _, table := range []string{"users", "auth_tokens", "orders", "thai_bank_accounts", "myanmar_bank_accounts", "telegram_identities", "messages", "exchange_rates", "webhook_logs", "audit_logs"} {
		if err := db.Table(table).Count(&count).Error; err != nil {
			t.Errorf("table %q should exist after migration: %v", table, err)
		}
	}
}

func TestSetupTestDBIsolated(t *testing.T) {
	first := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, first)
	second := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, second)

	testutil.CreateTestOrder(t, first)

	var count int64
	second.Model(&models.Order{}).Count(&count)
	if count != 0 {
		t.Errorf("expected isolated databases, second has %d orders", count)
	}
}

func TestFixtures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	user := testutil.CreateTestUser(t, db)
	if user.ID == "" {
		t.Fatal("expected user ID to be assigned")
	}

	identity := testutil.CreateTestIdentity(t, db)
	myanmar := testutil.CreateTestMyanmarAccount(t, db, "300000")
	order := testutil.CreateTestOrder(t, db,
		testutil.WithIdentity(identity),
		testutil.WithAccounts(nil, myanmar),
		testutil.WithStatus(models.OrderStatusVerified),
	)

	if !orderid.Valid(order.Code) {
		t.Errorf("fixture code %q is not a valid order code", order.Code)
	}
	if order.Status != models.OrderStatusVerified {
		t.Errorf("expected status verified, got %s", order.Status)
	}

	var stored models.MyanmarBankAccount
	testutil.AssertNoError(t, db.First(&stored, "id = ?", myanmar.ID).Error)
	testutil.AssertDecimal(t, "300000", stored.Balance)

	testutil.AssertAppError(t, errors.ErrOrderNotFound, "ORDER_NOT_FOUND")
}
