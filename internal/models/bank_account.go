package models

import "github.com/shopspring/decimal"

// BankCurrency selects one of the two bank account tables.
type BankCurrency string

const (
	BankCurrencyThai    BankCurrency = "thai"
	BankCurrencyMyanmar BankCurrency = "myanmar"
)

// BankAccountFields holds the columns shared by both bank account variants.
type BankAccountFields struct {
	DisplayName   string          `gorm:"size:100" json:"display_name"`
	BankName      string          `gorm:"not null;size:100" json:"bank_name"`
	AccountNumber string          `gorm:"not null;size:50" json:"account_number"`
	AccountName   string          `gorm:"not null;size:100" json:"account_name"`
	Enabled       bool            `gorm:"not null;default:false" json:"enabled"`
	QRImage       string          `gorm:"size:255" json:"qr_image,omitempty"`
	Balance       decimal.Decimal `gorm:"type:numeric(20,2);not null;default:0" json:"balance"`
}

// Label is the name shown to end users; it falls back to the bank name.
func (f BankAccountFields) Label() string {
	if f.DisplayName != "" {
		return f.DisplayName
	}
	return f.BankName
}

// ThaiBankAccount receives and pays out Thai baht.
type ThaiBankAccount struct {
	Base
	BankAccountFields
}

// MyanmarBankAccount receives and pays out Myanmar kyat.
type MyanmarBankAccount struct {
	Base
	BankAccountFields
}

// BankAccountModel returns an empty model for the given currency table, or
// nil for an unknown currency.
func BankAccountModel(currency BankCurrency) interface{} {
	switch currency {
	case BankCurrencyThai:
		return &ThaiBankAccount{}
	case BankCurrencyMyanmar:
		return &MyanmarBankAccount{}
	}
	return nil
}
