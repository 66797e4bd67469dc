package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/pagination"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/testutil"
)

func TestSettings(t *testing.T) {
	t.Run("defaults_when_empty", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSettingsService(db)

		snapshot, err := svc.Get()
		testutil.AssertNoError(t, err)
		if snapshot.Maintenance || snapshot.AuthFeature {
			t.Error("expected flags off by default")
		}
		if snapshot.Buy != nil || snapshot.Sell != nil {
			t.Error("expected no rate")
		}
	})

	t.Run("flags_toggle", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSettingsService(db)

		testutil.AssertNoError(t, svc.SetMaintenance(true))
		testutil.AssertNoError(t, svc.SetAuthFeature(true))
		testutil.AssertNoError(t, svc.SetMaintenance(false))

		snapshot, err := svc.Get()
		testutil.AssertNoError(t, err)
		if snapshot.Maintenance {
			t.Error("expected maintenance off")
		}
		if !snapshot.AuthFeature {
			t.Error("expected auth feature on")
		}

		var count int64
		db.Model(&models.MaintenanceMode{}).Count(&count)
		if count != 1 {
			t.Errorf("expected a single maintenance row, got %d", count)
		}
	})

	t.Run("latest_rate_wins", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSettingsService(db)

		_, err := svc.AddExchangeRate(decimal.RequireFromString("125.5"), decimal.RequireFromString("124"))
		testutil.AssertNoError(t, err)
		time.Sleep(2 * time.Millisecond)
		_, err = svc.AddExchangeRate(decimal.RequireFromString("126.78"), decimal.RequireFromString("125"))
		testutil.AssertNoError(t, err)

		snapshot, err := svc.Get()
		testutil.AssertNoError(t, err)
		testutil.AssertDecimal(t, "126.78", *snapshot.Buy)
		testutil.AssertDecimal(t, "125", *snapshot.Sell)

		_, err = svc.AddExchangeRate(decimal.Zero, decimal.NewFromInt(1))
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("webhook_settings", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewSettingsService(db)

		_, err := svc.GetWebhookSettings()
		testutil.AssertAppError(t, err, "NOT_FOUND")

		_, err = svc.UpdateWebhookSettings("http://bot:8080", "s3cret", true)
		testutil.AssertNoError(t, err)
		_, err = svc.UpdateWebhookSettings("http://bot:9090", "", false)
		testutil.AssertNoError(t, err)

		stored, err := svc.GetWebhookSettings()
		testutil.AssertNoError(t, err)
		if stored.WebhookURL != "http://bot:9090" || stored.Enabled {
			t.Errorf("unexpected settings %+v", stored)
		}
		if stored.Secret != "s3cret" {
			t.Error("expected empty secret to keep the previous one")
		}

		_, err = svc.UpdateWebhookSettings(" ", "x", true)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestWebhookLogs(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewSettingsService(db)

	old := time.Now().Add(-48 * time.Hour).UTC()
	rows := []models.WebhookLog{
		{EventType: "order_status_changed", Payload: "{}", Success: true, CreatedAt: old},
		{EventType: "order_status_changed", Payload: "{}", Success: false},
		{EventType: "admin_replied", Payload: "{}", Success: true},
	}
	if err := db.Create(&rows).Error; err != nil {
		t.Fatalf("failed to seed logs: %v", err)
	}

	failed := false
	page, err := svc.ListWebhookLogs(WebhookLogFilter{Success: &failed}, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 1 || len(page.Data) != 1 {
		t.Fatalf("expected one failed log, got %d", page.TotalItems)
	}

	page, err = svc.ListWebhookLogs(WebhookLogFilter{EventType: "order_status_changed"}, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 2 {
		t.Errorf("expected 2 status logs, got %d", page.TotalItems)
	}
	if page.Data[0].ID < page.Data[1].ID {
		t.Error("expected newest log first")
	}

	purged, err := svc.PurgeWebhookLogs(time.Now().Add(-24 * time.Hour))
	testutil.AssertNoError(t, err)
	if purged != 1 {
		t.Errorf("expected 1 purged log, got %d", purged)
	}
}
