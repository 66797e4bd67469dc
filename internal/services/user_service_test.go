package services

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/testutil"
)

func TestRegister(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		user, err := svc.Register(" +66812345678 ", "Somchai", "password123")
		testutil.AssertNoError(t, err)

		if user.ID == "" {
			t.Fatal("expected user ID to be assigned")
		}
		if user.Phone != "+66812345678" {
			t.Errorf("expected trimmed phone, got %q", user.Phone)
		}
		if user.Password == "password123" {
			t.Error("expected password to be hashed")
		}
		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")); err != nil {
			t.Errorf("stored hash does not match password: %v", err)
		}
	})

	t.Run("duplicate_phone", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.Register("+959123456", "", "password123")
		testutil.AssertNoError(t, err)

		_, err = svc.Register("+959123456", "", "password456")
		testutil.AssertAppError(t, err, "DUPLICATE_PHONE")
	})

	t.Run("missing_fields", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		defer testutil.TeardownTestDB(t, db)
		svc := NewUserService(db)

		_, err := svc.Register("", "", "password123")
		testutil.AssertAppError(t, err, "INVALID_INPUT")

		_, err = svc.Register("+959123456", "", "")
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestAuthenticate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)
	user := testutil.CreateTestUserWithPhone(t, db, "+66800000001")

	t.Run("valid", func(t *testing.T) {
		got, err := svc.Authenticate("+66800000001", "password123")
		testutil.AssertNoError(t, err)
		if got.ID != user.ID {
			t.Errorf("expected user %s, got %s", user.ID, got.ID)
		}
	})

	t.Run("wrong_password", func(t *testing.T) {
		_, err := svc.Authenticate("+66800000001", "wrong")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})

	t.Run("unknown_phone", func(t *testing.T) {
		_, err := svc.Authenticate("+66899999999", "password123")
		testutil.AssertAppError(t, err, "INVALID_CREDENTIALS")
	})
}

func TestGetUserByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	svc := NewUserService(db)
	user := testutil.CreateTestUser(t, db)

	got, err := svc.GetUserByID(user.ID)
	testutil.AssertNoError(t, err)
	if got.Phone != user.Phone {
		t.Errorf("expected phone %s, got %s", user.Phone, got.Phone)
	}

	_, err = svc.GetUserByID("0190f5a2-0000-7000-8000-000000000000")
	testutil.AssertAppError(t, err, "USER_NOT_FOUND")
}
