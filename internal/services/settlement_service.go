package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/logger"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/webhook"
)

type settlementService struct {
	db     *gorm.DB
	banks  BankServicer
	orders OrderServicer
	audit  AuditServicer
	events EventPublisher
	now    func() time.Time
}

// NewSettlementService creates a new SettlementServicer.
func NewSettlementService(db *gorm.DB, banks BankServicer, orders OrderServicer, audit AuditServicer, events EventPublisher) SettlementServicer {
	if events == nil {
		events = noopPublisher{}
	}
	return &settlementService{
		db:     db,
		banks:  banks,
		orders: orders,
		audit:  audit,
		events: events,
		now:    time.Now,
	}
}

type settlementSide struct {
	currency  models.BankCurrency
	accountID *string
	delta     *decimal.Decimal
}

// Settle approves the order and applies its balance deltas in one
// transaction. The settled_at marker is claimed with a conditional UPDATE,
// so a second call for the same order changes nothing. A side whose account
// is missing is skipped and reported; the other side is still applied.
func (s *settlementService) Settle(code string, input SettlementInput, actor string) (*SettlementResult, error) {
	result := &SettlementResult{Applied: []BalanceChange{}, Skipped: []SkippedSide{}}
	var previous models.OrderStatus

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Where("code = ?", code).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrOrderNotFound
			}
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		previous = order.Status

		res := tx.Model(&models.Order{}).
			Where("id = ? AND settled_at IS NULL AND status <> ?", order.ID, models.OrderStatusDeclined).
			Updates(map[string]interface{}{
				"status":     models.OrderStatusApproved,
				"settled_at": s.now().UTC(),
			})
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			if err := tx.Where("id = ?", order.ID).First(&order).Error; err != nil {
				return apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			if order.Settled() {
				return apperrors.ErrOrderAlreadySettled
			}
			return apperrors.ErrOrderNotSettleable
		}

		sides := []settlementSide{
			{models.BankCurrencyThai, firstID(input.ThaiAccountID, order.ThaiBankAccountID), input.ThaiDelta},
			{models.BankCurrencyMyanmar, firstID(input.MyanmarAccountID, order.MyanmarBankAccountID), input.MyanmarDelta},
		}
		for _, side := range sides {
			if side.delta == nil || side.delta.IsZero() {
				continue
			}
			if side.accountID == nil {
				result.Skipped = append(result.Skipped, SkippedSide{Currency: side.currency, Reason: "no account linked"})
				logger.Get().Warnw("settlement side skipped", "order_id", order.Code, "currency", side.currency, "reason", "no account linked")
				continue
			}

			balance, err := s.banks.ApplyDelta(tx, side.currency, *side.accountID, *side.delta)
			if errors.Is(err, apperrors.ErrBankAccountNotFound) {
				result.Skipped = append(result.Skipped, SkippedSide{Currency: side.currency, AccountID: *side.accountID, Reason: "account not found"})
				logger.Get().Warnw("settlement side skipped", "order_id", order.Code, "currency", side.currency, "account_id", *side.accountID, "reason", "account not found")
				continue
			}
			if err != nil {
				return err
			}
			result.Applied = append(result.Applied, BalanceChange{
				Currency:  side.currency,
				AccountID: *side.accountID,
				Delta:     *side.delta,
				Balance:   balance,
			})
		}

		s.audit.WithTx(tx).Log(actor, ActionOrderSettled, "order", order.Code, map[string]any{
			"from":    previous,
			"applied": result.Applied,
			"skipped": result.Skipped,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrderByCode(code)
	if err != nil {
		return nil, err
	}
	result.Order = order

	if previous != models.OrderStatusApproved && order.TelegramIdentity != nil {
		s.events.Publish(webhook.OrderPayload(order))
	}
	return result, nil
}

func firstID(ids ...*string) *string {
	for _, id := range ids {
		if id != nil && *id != "" {
			return id
		}
	}
	return nil
}
