// Package validator provides custom validation functions for Gin's binding engine.
package validator

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/orderid"
)

var phoneRegex = regexp.MustCompile(`^\+?[0-9]{6,15}$`)

// Register registers all custom validators with the Gin binding engine.
func Register() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("order_type", validateOrderType)
		_ = v.RegisterValidation("order_status", validateOrderStatus)
		_ = v.RegisterValidation("order_code", validateOrderCode)
		_ = v.RegisterValidation("bank_currency", validateBankCurrency)
		_ = v.RegisterValidation("phone", validatePhone)
	}
}

func validateOrderType(fl validator.FieldLevel) bool {
	return models.OrderType(fl.Field().String()).Valid()
}

func validateOrderStatus(fl validator.FieldLevel) bool {
	return models.OrderStatus(fl.Field().String()).Valid()
}

func validateOrderCode(fl validator.FieldLevel) bool {
	return orderid.Valid(fl.Field().String())
}

func validateBankCurrency(fl validator.FieldLevel) bool {
	switch models.BankCurrency(fl.Field().String()) {
	case models.BankCurrencyThai, models.BankCurrencyMyanmar:
		return true
	}
	return false
}

func validatePhone(fl validator.FieldLevel) bool {
	return phoneRegex.MatchString(fl.Field().String())
}
