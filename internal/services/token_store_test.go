package services

import (
	"testing"
	"time"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/testutil"
)

func TestTokenStore(t *testing.T) {
	t.Run("issue_and_resolve", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewTokenStore(db, time.Hour)
		user := testutil.CreateTestUser(t, db)

		token, expiresAt, err := store.Issue(user.ID)
		testutil.AssertNoError(t, err)
		if len(token) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(token))
		}
		if time.Until(expiresAt) < 59*time.Minute {
			t.Errorf("unexpected expiry %v", expiresAt)
		}

		var row models.AuthToken
		if err := db.First(&row).Error; err != nil {
			t.Fatalf("expected token row: %v", err)
		}
		if row.TokenHash == token || row.TokenHash != HashToken(token) {
			t.Error("expected only the token hash to be stored")
		}

		userID, err := store.Resolve(token)
		testutil.AssertNoError(t, err)
		if userID != user.ID {
			t.Errorf("expected %s, got %s", user.ID, userID)
		}
	})

	t.Run("unknown_token", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewTokenStore(db, time.Hour)

		_, err := store.Resolve("deadbeef")
		testutil.AssertAppError(t, err, "INVALID_TOKEN")
		_, err = store.Resolve("")
		testutil.AssertAppError(t, err, "INVALID_TOKEN")
	})

	t.Run("expired_token", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewTokenStore(db, time.Hour).(*tokenStore)
		user := testutil.CreateTestUser(t, db)

		issued := time.Now()
		store.now = func() time.Time { return issued }
		token, _, err := store.Issue(user.ID)
		testutil.AssertNoError(t, err)

		store.now = func() time.Time { return issued.Add(2 * time.Hour) }
		_, err = store.Resolve(token)
		testutil.AssertAppError(t, err, "INVALID_TOKEN")

		purged, err := store.PurgeExpired()
		testutil.AssertNoError(t, err)
		if purged != 1 {
			t.Errorf("expected 1 purged token, got %d", purged)
		}
	})

	t.Run("revoke", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewTokenStore(db, time.Hour)
		user := testutil.CreateTestUser(t, db)

		token, _, err := store.Issue(user.ID)
		testutil.AssertNoError(t, err)
		_, err = store.Resolve(token)
		testutil.AssertNoError(t, err)

		testutil.AssertNoError(t, store.Revoke(token))
		_, err = store.Resolve(token)
		testutil.AssertAppError(t, err, "INVALID_TOKEN")
		testutil.AssertNoError(t, store.Revoke(token))
	})

	t.Run("purge_keeps_live_tokens", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		store := NewTokenStore(db, time.Hour)
		user := testutil.CreateTestUser(t, db)

		token, _, err := store.Issue(user.ID)
		testutil.AssertNoError(t, err)

		purged, err := store.PurgeExpired()
		testutil.AssertNoError(t, err)
		if purged != 0 {
			t.Errorf("expected nothing purged, got %d", purged)
		}
		_, err = store.Resolve(token)
		testutil.AssertNoError(t, err)
	})
}
