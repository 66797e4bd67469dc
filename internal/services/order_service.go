package services

import (
	"errors"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/logger"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/orderid"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/pagination"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/webhook"
)

// StatusPath names the caller changing an order status. Each path may only
// move an order into its own set of statuses. No path sets approved directly:
// an order is approved only by Settle, together with its balance changes.
type StatusPath string

const (
	PathAdmin StatusPath = "admin"
	PathChat  StatusPath = "chat"
	PathBot   StatusPath = "bot"
)

var allowedStatuses = map[StatusPath][]models.OrderStatus{
	PathAdmin: {
		models.OrderStatusPending,
		models.OrderStatusVerified,
		models.OrderStatusDeclined,
		models.OrderStatusComplain,
	},
	PathChat: {
		models.OrderStatusPending,
		models.OrderStatusDeclined,
		models.OrderStatusComplain,
	},
	PathBot: {
		models.OrderStatusPending,
		models.OrderStatusVerified,
		models.OrderStatusDeclined,
		models.OrderStatusComplain,
	},
}

// AllowedStatuses returns the statuses path may set.
func AllowedStatuses(path StatusPath) []models.OrderStatus {
	return allowedStatuses[path]
}

// maxCodeAttempts bounds the count-then-insert loop for order codes.
const maxCodeAttempts = 5

// orderService runs the order state machine.
type orderService struct {
	db         *gorm.DB
	banks      BankServicer
	identities IdentityServicer
	audit      AuditServicer
	events     EventPublisher
	loc        *time.Location
	now        func() time.Time
}

// NewOrderService creates a new OrderServicer. Order codes use the calendar
// day in loc.
func NewOrderService(db *gorm.DB, banks BankServicer, identities IdentityServicer, audit AuditServicer, events EventPublisher, loc *time.Location) OrderServicer {
	if events == nil {
		events = noopPublisher{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &orderService{
		db:         db,
		banks:      banks,
		identities: identities,
		audit:      audit,
		events:     events,
		loc:        loc,
		now:        time.Now,
	}
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrInvalidInput, field+" is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrInvalidInput, field+" must be a number")
	}
	if !d.IsPositive() {
		return decimal.Zero, apperrors.WithMessage(apperrors.ErrInvalidInput, field+" must be greater than zero")
	}
	return d, nil
}

type orderFields struct {
	orderType models.OrderType
	amount    decimal.Decimal
	price     decimal.Decimal
}

func parseOrderFields(input OrderInput) (orderFields, error) {
	orderType := models.OrderType(strings.ToLower(strings.TrimSpace(input.Type)))
	if orderType == "" {
		return orderFields{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "order_type is required")
	}
	if !orderType.Valid() {
		return orderFields{}, apperrors.WithMessage(apperrors.ErrInvalidInput, "order_type must be buy or sell")
	}
	amount, err := parseAmount("amount", input.Amount)
	if err != nil {
		return orderFields{}, err
	}
	price, err := parseAmount("price", input.Price)
	if err != nil {
		return orderFields{}, err
	}
	return orderFields{orderType: orderType, amount: amount, price: price}, nil
}

// ValidateOrderInput checks the type, amount and price of a submission
// without touching the store.
func ValidateOrderInput(input OrderInput) error {
	_, err := parseOrderFields(input)
	return err
}

// CreateOrder validates a submission, links its bank accounts and chat
// identity, and stores it as pending under a fresh order code.
func (s *orderService) CreateOrder(input OrderInput) (*models.Order, error) {
	fields, err := parseOrderFields(input)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		Type:     fields.orderType,
		Amount:   fields.amount.Round(2),
		Price:    fields.price.Round(4),
		Status:   models.OrderStatusPending,
		Receipt:  models.JoinPaths(input.Receipts),
		QR:       input.QR,
		UserBank: strings.TrimSpace(input.UserBank),
	}

	if input.ThaiBankAccountID != "" {
		if _, err := s.banks.GetAccount(models.BankCurrencyThai, input.ThaiBankAccountID); err != nil {
			return nil, err
		}
		order.ThaiBankAccountID = &input.ThaiBankAccountID
	}

	switch {
	case input.MyanmarBankAccountID != "":
		if _, err := s.banks.GetAccount(models.BankCurrencyMyanmar, input.MyanmarBankAccountID); err != nil {
			return nil, err
		}
		order.MyanmarBankAccountID = &input.MyanmarBankAccountID
	case input.MyanmarBankName != "":
		account, err := s.banks.FindMyanmarByName(input.MyanmarBankName)
		switch {
		case err == nil:
			order.MyanmarBankAccountID = &account.ID
		case errors.Is(err, apperrors.ErrBankAccountNotFound):
			logger.Get().Warnw("no myanmar bank account matches submitted name", "bank_name", input.MyanmarBankName)
		default:
			return nil, err
		}
	}

	if input.UserID != "" {
		order.UserID = &input.UserID
	}

	if input.ChatID != nil {
		identity, err := s.identities.Resolve(*input.ChatID, input.TelegramUserID)
		if err != nil {
			return nil, err
		}
		order.TelegramIdentityID = &identity.ID
	}

	if err := s.insertWithCode(order); err != nil {
		return nil, err
	}

	actor := "bot"
	if input.UserID != "" {
		actor = "user:" + input.UserID
	}
	s.audit.Log(actor, ActionOrderCreated, "order", order.Code, map[string]any{
		"order_type": order.Type,
		"amount":     order.Amount.String(),
		"price":      order.Price.String(),
	})

	return s.GetOrderByCode(order.Code)
}

// insertWithCode assigns the next same-day code and inserts the order. Each
// attempt counts and inserts in its own transaction; a unique-index conflict
// means another request took the code, so the count is taken again and the
// sequence moves past the one that collided.
func (s *orderService) insertWithCode(order *models.Order) error {
	now := s.now().In(s.loc)
	start, end := orderid.DayBounds(now)

	lastTried := 0
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		err := s.db.Transaction(func(tx *gorm.DB) error {
			var count int64
			if err := tx.Unscoped().Model(&models.Order{}).
				Where("created_at >= ? AND created_at < ?", start.UTC(), end.UTC()).
				Count(&count).Error; err != nil {
				return err
			}

			seq := orderid.NextSequence(count, lastTried)
			if seq > orderid.MaxSequence {
				return apperrors.ErrOrderCodeExhausted
			}
			lastTried = seq

			order.Code = orderid.Format(now, seq, order.Type)
			order.CreatedAt = now.UTC()
			return tx.Create(order).Error
		})
		if err == nil {
			return nil
		}
		if errors.Is(err, apperrors.ErrOrderCodeExhausted) {
			return err
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		logger.Get().Infow("order code taken, retrying", "code", order.Code, "attempt", attempt)
	}
	return apperrors.ErrOrderCodeExhausted
}

func (s *orderService) findByCode(db *gorm.DB, code string) (*models.Order, error) {
	var order models.Order
	err := db.Preload("ThaiBankAccount").
		Preload("MyanmarBankAccount").
		Preload("TelegramIdentity").
		Where("code = ?", code).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &order, nil
}

// GetOrderByCode retrieves an order with its accounts and identity.
func (s *orderService) GetOrderByCode(code string) (*models.Order, error) {
	return s.findByCode(s.db, code)
}

// ListOrders retrieves a paginated list of orders, newest first by default.
func (s *orderService) ListOrders(filter OrderFilter, page pagination.PageRequest) (*pagination.PageResponse[models.Order], error) {
	base := s.db.Model(&models.Order{})
	if filter.Status != nil {
		base = base.Where("status = ?", *filter.Status)
	}
	if filter.Type != nil {
		base = base.Where("type = ?", *filter.Type)
	}
	if filter.Code != "" {
		base = base.Where("code LIKE ?", "%"+filter.Code+"%")
	}

	result, err := pagination.Find[models.Order](base, page, "created_at", func(db *gorm.DB) *gorm.DB {
		return db.Preload("TelegramIdentity")
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

func (s *orderService) latest(db *gorm.DB) (*models.Order, error) {
	var order models.Order
	err := db.Preload("ThaiBankAccount").
		Preload("MyanmarBankAccount").
		Preload("TelegramIdentity").
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNoOrders
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &order, nil
}

// GetLatestPendingByChatID returns the chat's last order if it is still
// pending.
func (s *orderService) GetLatestPendingByChatID(chatID int64) (*models.Order, error) {
	identity, err := s.identities.GetByChatID(chatID)
	if err != nil {
		return nil, err
	}
	order, err := s.latest(s.db.Where("telegram_identity_id = ?", identity.ID))
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderStatusPending {
		return nil, apperrors.WithMessage(apperrors.ErrNoOrders, "No pending order for this chat")
	}
	return order, nil
}

// GetLatestByUserID returns the user's most recent order in any status.
func (s *orderService) GetLatestByUserID(userID string) (*models.Order, error) {
	return s.latest(s.db.Where("user_id = ?", userID))
}

func statusStrings(statuses []models.OrderStatus) []string {
	return lo.Map(statuses, func(st models.OrderStatus, _ int) string { return string(st) })
}

// UpdateStatus moves an order to status if path allows it. Settled orders
// keep their status. The bot is told about the change after commit.
func (s *orderService) UpdateStatus(code string, status models.OrderStatus, path StatusPath, actor string) (*models.Order, error) {
	allowed := AllowedStatuses(path)
	if !lo.Contains(allowed, status) {
		err := apperrors.InvalidStatus(string(status), statusStrings(allowed))
		if status == models.OrderStatusApproved && path != PathBot {
			err = apperrors.WithMessage(err, err.Message+"; approve by settling the order")
		}
		return nil, err
	}

	var previous models.OrderStatus
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("code = ?", code).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrOrderNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if order.Settled() {
			return apperrors.ErrOrderSettled
		}
		previous = order.Status

		res := tx.Model(&models.Order{}).
			Where("id = ? AND settled_at IS NULL", order.ID).
			Update("status", status)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrOrderSettled
		}

		s.audit.WithTx(tx).Log(actor, ActionStatusChanged, "order", order.Code, map[string]any{
			"from": previous,
			"to":   status,
			"path": path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.GetOrderByCode(code)
	if err != nil {
		return nil, err
	}
	s.notify(order)
	return order, nil
}

// AttachConfirmReceipt records the admin's payment proof on a pending order.
// A receipt can be attached once and the status is left alone.
func (s *orderService) AttachConfirmReceipt(code string, paths []string, actor string) (*models.Order, error) {
	joined := models.JoinPaths(paths)
	if joined == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "confirm receipt is required")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("code = ?", code).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrOrderNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if order.Status != models.OrderStatusPending {
			return apperrors.ErrOrderNotPending
		}

		res := tx.Model(&models.Order{}).
			Where("id = ? AND status = ? AND (confirm_receipt IS NULL OR confirm_receipt = '')", order.ID, models.OrderStatusPending).
			Update("confirm_receipt", joined)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrReceiptAlreadyAttached
		}

		s.audit.WithTx(tx).Log(actor, ActionReceiptAttached, "order", order.Code, map[string]any{"confirm_receipt": joined})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetOrderByCode(code)
}

// DeleteOrder removes an order on explicit admin request. Its code is never
// handed out again.
func (s *orderService) DeleteOrder(code, actor string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("code = ?", code).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrOrderNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		if err := tx.Delete(&order).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		s.audit.WithTx(tx).Log(actor, ActionOrderDeleted, "order", order.Code, map[string]any{"status": order.Status})
		return nil
	})
}

// notify publishes a status event for orders that came through the bot.
func (s *orderService) notify(order *models.Order) {
	if order.TelegramIdentity == nil {
		return
	}
	s.events.Publish(webhook.OrderPayload(order))
}
