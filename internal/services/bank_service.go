package services

import (
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
)

// bankService handles both bank account tables. Balances are never cached:
// every read and every adjustment goes to the store.
type bankService struct {
	db *gorm.DB
}

// NewBankService creates a new BankServicer.
func NewBankService(db *gorm.DB) BankServicer {
	return &bankService{db: db}
}

func viewOf(currency models.BankCurrency, id string, f models.BankAccountFields) BankAccountView {
	return BankAccountView{
		ID:            id,
		Currency:      currency,
		DisplayName:   f.Label(),
		BankName:      f.BankName,
		AccountNumber: f.AccountNumber,
		AccountName:   f.AccountName,
		QRImage:       f.QRImage,
		Enabled:       f.Enabled,
		Balance:       f.Balance,
	}
}

func thaiViews(accounts []models.ThaiBankAccount) []BankAccountView {
	return lo.Map(accounts, func(a models.ThaiBankAccount, _ int) BankAccountView {
		return viewOf(models.BankCurrencyThai, a.ID, a.BankAccountFields)
	})
}

func myanmarViews(accounts []models.MyanmarBankAccount) []BankAccountView {
	return lo.Map(accounts, func(a models.MyanmarBankAccount, _ int) BankAccountView {
		return viewOf(models.BankCurrencyMyanmar, a.ID, a.BankAccountFields)
	})
}

func (s *bankService) list(db *gorm.DB, currency models.BankCurrency) ([]BankAccountView, error) {
	switch currency {
	case models.BankCurrencyThai:
		var accounts []models.ThaiBankAccount
		if err := db.Order("created_at").Find(&accounts).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return thaiViews(accounts), nil
	case models.BankCurrencyMyanmar:
		var accounts []models.MyanmarBankAccount
		if err := db.Order("created_at").Find(&accounts).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return myanmarViews(accounts), nil
	}
	return nil, apperrors.ErrInvalidCurrency
}

// ListEnabled returns the accounts shown to end users for currency.
func (s *bankService) ListEnabled(currency models.BankCurrency) ([]BankAccountView, error) {
	return s.list(s.db.Where("enabled = ?", true), currency)
}

// GetAccount returns one account of the given currency.
func (s *bankService) GetAccount(currency models.BankCurrency, id string) (*BankAccountView, error) {
	return s.load(s.db, currency, id)
}

func (s *bankService) load(db *gorm.DB, currency models.BankCurrency, id string) (*BankAccountView, error) {
	var (
		view BankAccountView
		err  error
	)
	switch currency {
	case models.BankCurrencyThai:
		var a models.ThaiBankAccount
		if err = db.Where("id = ?", id).First(&a).Error; err == nil {
			view = viewOf(currency, a.ID, a.BankAccountFields)
		}
	case models.BankCurrencyMyanmar:
		var a models.MyanmarBankAccount
		if err = db.Where("id = ?", id).First(&a).Error; err == nil {
			view = viewOf(currency, a.ID, a.BankAccountFields)
		}
	default:
		return nil, apperrors.ErrInvalidCurrency
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBankAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &view, nil
}

// FindMyanmarByName looks up a Myanmar account by bank or display name,
// ignoring case. Enabled accounts win over disabled ones.
func (s *bankService) FindMyanmarByName(name string) (*models.MyanmarBankAccount, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, apperrors.ErrBankAccountNotFound
	}

	var account models.MyanmarBankAccount
	err := s.db.
		Where("LOWER(bank_name) = ? OR LOWER(display_name) = ?", name, name).
		Order("enabled DESC").Order("created_at").
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBankAccountNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &account, nil
}

// CreateAccount adds a bank account of the given currency.
func (s *bankService) CreateAccount(currency models.BankCurrency, fields models.BankAccountFields) (*BankAccountView, error) {
	if fields.BankName == "" || fields.AccountNumber == "" || fields.AccountName == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "bank_name, account_number and account_name are required")
	}

	var id string
	switch currency {
	case models.BankCurrencyThai:
		a := &models.ThaiBankAccount{BankAccountFields: fields}
		if err := s.db.Create(a).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		id = a.ID
	case models.BankCurrencyMyanmar:
		a := &models.MyanmarBankAccount{BankAccountFields: fields}
		if err := s.db.Create(a).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		id = a.ID
	default:
		return nil, apperrors.ErrInvalidCurrency
	}

	view := viewOf(currency, id, fields)
	return &view, nil
}

// SetEnabled shows or hides an account in the public listing.
func (s *bankService) SetEnabled(currency models.BankCurrency, id string, enabled bool) (*BankAccountView, error) {
	model := models.BankAccountModel(currency)
	if model == nil {
		return nil, apperrors.ErrInvalidCurrency
	}

	res := s.db.Model(model).Where("id = ?", id).Update("enabled", enabled)
	if res.Error != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, apperrors.ErrBankAccountNotFound
	}
	return s.load(s.db, currency, id)
}

// BalanceSnapshot reads every account balance from the store.
func (s *bankService) BalanceSnapshot() (*BalanceSnapshot, error) {
	thai, err := s.list(s.db, models.BankCurrencyThai)
	if err != nil {
		return nil, err
	}
	myanmar, err := s.list(s.db, models.BankCurrencyMyanmar)
	if err != nil {
		return nil, err
	}
	return &BalanceSnapshot{Thai: thai, Myanmar: myanmar, TakenAt: time.Now().UTC()}, nil
}

// ApplyDelta adds delta to one account balance in a single UPDATE statement
// and returns the new balance. Concurrent deltas on the same account never
// lose an update. tx may be a transaction or the plain connection.
func (s *bankService) ApplyDelta(tx *gorm.DB, currency models.BankCurrency, id string, delta decimal.Decimal) (decimal.Decimal, error) {
	model := models.BankAccountModel(currency)
	if model == nil {
		return decimal.Zero, apperrors.ErrInvalidCurrency
	}
	if tx == nil {
		tx = s.db
	}

	res := tx.Model(model).Where("id = ?", id).
		Update("balance", gorm.Expr("balance + ?", delta))
	if res.Error != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, apperrors.ErrBankAccountNotFound
	}

	view, err := s.load(tx, currency, id)
	if err != nil {
		return decimal.Zero, err
	}
	return view.Balance, nil
}
