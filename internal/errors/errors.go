// Package errors provides the structured error type returned by services
// and rendered by handlers. Internal details never reach API clients.
package errors

import (
	"net/http"
	"strings"
)

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Is matches AppErrors by code so wrapped copies still compare equal to
// their sentinel.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code
}

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// InvalidStatus reports a status outside allowed, listing the allowed values.
func InvalidStatus(status string, allowed []string) *AppError {
	return WithMessage(ErrInvalidStatus,
		"invalid status \""+status+"\", allowed: "+strings.Join(allowed, ", "))
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid phone or password", StatusCode: http.StatusUnauthorized}
	ErrInvalidToken       = &AppError{Code: "INVALID_TOKEN", Message: "Invalid or expired token", StatusCode: http.StatusUnauthorized}
	ErrInvalidAPIKey      = &AppError{Code: "INVALID_API_KEY", Message: "Invalid or missing API key", StatusCode: http.StatusUnauthorized}
	ErrBotAPIDisabled     = &AppError{Code: "BOT_API_NOT_CONFIGURED", Message: "Bot endpoints are not configured", StatusCode: http.StatusServiceUnavailable}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicatePhone = &AppError{Code: "DUPLICATE_PHONE", Message: "User with this phone number already exists", StatusCode: http.StatusConflict}
)

// Bank account errors.
var (
	ErrBankAccountNotFound = &AppError{Code: "BANK_ACCOUNT_NOT_FOUND", Message: "Bank account not found", StatusCode: http.StatusNotFound}
	ErrInvalidCurrency     = &AppError{Code: "INVALID_CURRENCY", Message: "Unsupported bank currency", StatusCode: http.StatusBadRequest}
)

// Telegram identity and messaging errors.
var (
	ErrTelegramIdentityNotFound = &AppError{Code: "TELEGRAM_IDENTITY_NOT_FOUND", Message: "Telegram identity not found", StatusCode: http.StatusNotFound}
)

// Order errors.
var (
	ErrOrderNotFound          = &AppError{Code: "ORDER_NOT_FOUND", Message: "Order not found", StatusCode: http.StatusNotFound}
	ErrNoOrders               = &AppError{Code: "NO_ORDERS", Message: "No orders found", StatusCode: http.StatusNotFound}
	ErrInvalidStatus          = &AppError{Code: "INVALID_STATUS", Message: "Invalid status", StatusCode: http.StatusBadRequest}
	ErrOrderSettled           = &AppError{Code: "ORDER_SETTLED", Message: "Order is settled and can no longer change status", StatusCode: http.StatusConflict}
	ErrOrderAlreadySettled    = &AppError{Code: "ORDER_ALREADY_SETTLED", Message: "Balances were already applied for this order", StatusCode: http.StatusConflict}
	ErrOrderNotSettleable     = &AppError{Code: "ORDER_NOT_SETTLEABLE", Message: "Declined orders cannot be settled", StatusCode: http.StatusConflict}
	ErrOrderNotPending        = &AppError{Code: "ORDER_NOT_PENDING", Message: "Order is not pending", StatusCode: http.StatusConflict}
	ErrReceiptAlreadyAttached = &AppError{Code: "RECEIPT_ALREADY_ATTACHED", Message: "Confirmation receipt already attached", StatusCode: http.StatusConflict}
	ErrOrderCodeExhausted     = &AppError{Code: "ORDER_CODE_EXHAUSTED", Message: "Could not assign a unique order code", StatusCode: http.StatusServiceUnavailable}
)

// Webhook errors.
var (
	ErrUnknownEvent    = &AppError{Code: "UNKNOWN_EVENT", Message: "Unknown event type", StatusCode: http.StatusBadRequest}
	ErrWebhookDelivery = &AppError{Code: "WEBHOOK_DELIVERY_FAILED", Message: "Failed to send webhook", StatusCode: http.StatusBadGateway}
)
