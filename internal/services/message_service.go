package services

import (
	"errors"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/samber/lo/mutable"
	"gorm.io/gorm"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/logger"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/webhook"
)

// chatHistoryLimit is how many messages the admin chat view shows.
const chatHistoryLimit = 50

// messageService relays chat turns between bot users and admins.
type messageService struct {
	db         *gorm.DB
	identities IdentityServicer
	orders     OrderServicer
	settlement SettlementServicer
	events     EventPublisher
}

// NewMessageService creates a new MessageServicer.
func NewMessageService(db *gorm.DB, identities IdentityServicer, orders OrderServicer, settlement SettlementServicer, events EventPublisher) MessageServicer {
	if events == nil {
		events = noopPublisher{}
	}
	return &messageService{db: db, identities: identities, orders: orders, settlement: settlement, events: events}
}

// SubmitMessage stores a chat turn from the bot. An image sent by the bot or
// backend side becomes the confirmation receipt of the chat's pending order,
// once.
func (s *messageService) SubmitMessage(input MessageInput) (*models.Message, error) {
	if input.ChatID == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "chat_id is required")
	}
	images := models.JoinPaths(input.Images)
	if strings.TrimSpace(input.Content) == "" && images == "" && input.ChosenOption == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "content or image is required")
	}

	identity, err := s.identities.Resolve(input.ChatID, input.TelegramUserID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		TelegramIdentityID: identity.ID,
		Content:            input.Content,
		ChosenOption:       input.ChosenOption,
		Image:              images,
		FromBot:            input.FromBot,
		FromBackend:        input.FromBackend,
		Buttons:            input.Buttons,
	}
	if err := s.db.Create(msg).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	if images != "" && (input.FromBot || input.FromBackend) {
		s.attachReceipt(input.ChatID, input.Images)
	}
	return msg, nil
}

func (s *messageService) attachReceipt(chatID int64, images []string) {
	order, err := s.orders.GetLatestPendingByChatID(chatID)
	if err != nil {
		return
	}
	_, err = s.orders.AttachConfirmReceipt(order.Code, images, "bot")
	switch {
	case err == nil:
		logger.Get().Infow("confirm receipt attached from chat", "order_id", order.Code)
	case errors.Is(err, apperrors.ErrReceiptAlreadyAttached), errors.Is(err, apperrors.ErrOrderNotPending):
	default:
		logger.Get().Errorw("failed to attach confirm receipt from chat", "order_id", order.Code, "error", err)
	}
}

// PollUnseen returns backend messages the user has not seen yet and marks
// them seen.
func (s *messageService) PollUnseen(chatID int64) ([]models.Message, error) {
	identity, err := s.identities.GetByChatID(chatID)
	if errors.Is(err, apperrors.ErrTelegramIdentityNotFound) {
		return []models.Message{}, nil
	}
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("telegram_identity_id = ? AND from_backend = ? AND seen_by_user = ?", identity.ID, true, false).
			Order("created_at").
			Find(&messages).Error; err != nil {
			return err
		}
		if len(messages) == 0 {
			return nil
		}
		ids := lo.Map(messages, func(m models.Message, _ int) string { return m.ID })
		return tx.Model(&models.Message{}).Where("id IN ?", ids).Update("seen_by_user", true).Error
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return messages, nil
}

// ListChats summarises every identity that has messages, most recent chat
// first.
func (s *messageService) ListChats() ([]ChatSummary, error) {
	var identities []models.TelegramIdentity
	err := s.db.Where("id IN (?)", s.db.Model(&models.Message{}).Select("telegram_identity_id")).
		Preload("Orders").
		Find(&identities).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	chats := make([]ChatSummary, 0, len(identities))
	for i := range identities {
		identity := &identities[i]

		var last models.Message
		if err := s.db.Where("telegram_identity_id = ?", identity.ID).Order("created_at DESC").First(&last).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		var unseen int64
		if err := s.db.Model(&models.Message{}).
			Where("telegram_identity_id = ? AND from_backend = ? AND seen_by_admin = ?", identity.ID, false, false).
			Count(&unseen).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}

		summary := ChatSummary{
			IdentityID:    identity.ID,
			ChatID:        identity.ChatID,
			TelegramID:    identity.ExternalID(),
			LastMessage:   last.Content,
			LastMessageAt: last.CreatedAt,
			UnseenCount:   unseen,
		}
		if order := identity.LastOrder(); order != nil {
			summary.LastOrderCode = order.Code
			summary.LastOrderStatus = string(order.Status)
		}
		chats = append(chats, summary)
	}

	sort.Slice(chats, func(i, j int) bool { return chats[i].LastMessageAt.After(chats[j].LastMessageAt) })
	return chats, nil
}

// ChatDetail returns the last messages of a conversation in chronological
// order and marks the user's messages seen by admin.
func (s *messageService) ChatDetail(identityID string) (*ChatDetail, error) {
	identity, err := s.identities.GetByID(identityID)
	if err != nil {
		return nil, err
	}

	var messages []models.Message
	if err := s.db.Where("telegram_identity_id = ?", identity.ID).
		Order("created_at DESC").
		Limit(chatHistoryLimit).
		Find(&messages).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	mutable.Reverse(messages)

	if err := s.db.Model(&models.Message{}).
		Where("telegram_identity_id = ? AND from_backend = ? AND seen_by_admin = ?", identity.ID, false, false).
		Update("seen_by_admin", true).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	detail := &ChatDetail{Identity: identity, Messages: messages}
	if order, err := s.latestOrder(identity.ID); err == nil {
		detail.LastOrder = order
	} else if !errors.Is(err, apperrors.ErrNoOrders) {
		return nil, err
	}
	return detail, nil
}

func (s *messageService) latestOrder(identityID string) (*models.Order, error) {
	var order models.Order
	err := s.db.Where("telegram_identity_id = ?", identityID).Order("created_at DESC").First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNoOrders
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &order, nil
}

// AdminReply stores a backend message for the user and tells the bot to
// deliver it.
func (s *messageService) AdminReply(identityID, content string, images []string, actor string) (*models.Message, error) {
	joined := models.JoinPaths(images)
	if strings.TrimSpace(content) == "" && joined == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "content or image is required")
	}

	identity, err := s.identities.GetByID(identityID)
	if err != nil {
		return nil, err
	}

	msg := &models.Message{
		TelegramIdentityID: identity.ID,
		Content:            content,
		Image:              joined,
		FromBackend:        true,
		SeenByAdmin:        true,
	}
	if err := s.db.Create(msg).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	orderCode := ""
	if order, err := s.latestOrder(identity.ID); err == nil {
		orderCode = order.Code
	}
	logger.Get().Infow("admin replied", "actor", actor, "identity_id", identity.ID, "order_id", orderCode)
	s.events.Publish(webhook.ReplyPayload(identity, orderCode, msg))
	return msg, nil
}

// UpdateLatestOrderStatus changes the status of the chat's last order using
// the chat allow-list. Approving settles the order with the given balance
// changes.
func (s *messageService) UpdateLatestOrderStatus(identityID string, status models.OrderStatus, settlement SettlementInput, actor string) (*models.Order, error) {
	if _, err := s.identities.GetByID(identityID); err != nil {
		return nil, err
	}
	order, err := s.latestOrder(identityID)
	if err != nil {
		return nil, err
	}
	if status == models.OrderStatusApproved {
		result, err := s.settlement.Settle(order.Code, settlement, actor)
		if err != nil {
			return nil, err
		}
		return result.Order, nil
	}
	return s.orders.UpdateStatus(order.Code, status, PathChat, actor)
}
