package services

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/testutil"
)

func TestApplyDelta(t *testing.T) {
	t.Run("sum_is_independent_of_order", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBankService(db)

		deltas := []string{"-125000", "50000", "1234", "-34", "70000"}
		forward := testutil.CreateTestMyanmarAccount(t, db, "300000")
		backward := testutil.CreateTestMyanmarAccount(t, db, "300000")

		for i := range deltas {
			_, err := svc.ApplyDelta(nil, models.BankCurrencyMyanmar, forward.ID, decimal.RequireFromString(deltas[i]))
			testutil.AssertNoError(t, err)
			_, err = svc.ApplyDelta(nil, models.BankCurrencyMyanmar, backward.ID, decimal.RequireFromString(deltas[len(deltas)-1-i]))
			testutil.AssertNoError(t, err)
		}

		a, _ := svc.GetAccount(models.BankCurrencyMyanmar, forward.ID)
		b, _ := svc.GetAccount(models.BankCurrencyMyanmar, backward.ID)
		testutil.AssertDecimal(t, "296200", a.Balance)
		testutil.AssertDecimal(t, "296200", b.Balance)
	})

	t.Run("concurrent_deltas_are_not_lost", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBankService(db)
		account := testutil.CreateTestThaiAccount(t, db, "0")

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = svc.ApplyDelta(nil, models.BankCurrencyThai, account.ID, decimal.NewFromInt(5))
			}()
		}
		wg.Wait()

		view, err := svc.GetAccount(models.BankCurrencyThai, account.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "100", view.Balance)
	})

	t.Run("missing_account", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewBankService(db)

		_, err := svc.ApplyDelta(nil, models.BankCurrencyThai, "missing", decimal.NewFromInt(1))
		testutil.AssertAppError(t, err, "BANK_ACCOUNT_NOT_FOUND")

		_, err = svc.ApplyDelta(nil, "euro", "missing", decimal.NewFromInt(1))
		testutil.AssertAppError(t, err, "INVALID_CURRENCY")
	})
}

func TestBankListing(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewBankService(db)

	shown := testutil.CreateTestThaiAccount(t, db, "10")
	hidden := testutil.CreateTestThaiAccount(t, db, "20")
	_, err := svc.SetEnabled(models.BankCurrencyThai, hidden.ID, false)
	testutil.AssertNoError(t, err)

	enabled, err := svc.ListEnabled(models.BankCurrencyThai)
	testutil.AssertNoError(t, err)
	if len(enabled) != 1 || enabled[0].ID != shown.ID {
		t.Errorf("expected only %s listed, got %+v", shown.ID, enabled)
	}
	if enabled[0].DisplayName != shown.BankName {
		t.Errorf("expected display name to fall back to bank name, got %q", enabled[0].DisplayName)
	}

	created, err := svc.CreateAccount(models.BankCurrencyMyanmar, models.BankAccountFields{
		DisplayName:   "KBZ Pay",
		BankName:      "KBZ",
		AccountNumber: "09123456789",
		AccountName:   "U Aung",
		Enabled:       true,
		Balance:       decimal.NewFromInt(50),
	})
	testutil.AssertNoError(t, err)

	snapshot, err := svc.BalanceSnapshot()
	testutil.AssertNoError(t, err)
	if len(snapshot.Thai) != 2 || len(snapshot.Myanmar) != 1 {
		t.Errorf("expected 2 thai and 1 myanmar balances, got %d and %d", len(snapshot.Thai), len(snapshot.Myanmar))
	}

	found, err := svc.FindMyanmarByName("kbz pay")
	testutil.AssertNoError(t, err)
	if found.ID != created.ID {
		t.Errorf("expected lookup by display name to find %s", created.ID)
	}

	_, err = svc.CreateAccount(models.BankCurrencyThai, models.BankAccountFields{BankName: "SCB"})
	testutil.AssertAppError(t, err, "INVALID_INPUT")

	_, err = svc.SetEnabled(models.BankCurrencyMyanmar, "missing", true)
	testutil.AssertAppError(t, err, "BANK_ACCOUNT_NOT_FOUND")
}
