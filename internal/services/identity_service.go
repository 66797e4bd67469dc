package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
)

type identityService struct {
	db *gorm.DB
}

// NewIdentityService creates a new IdentityServicer.
func NewIdentityService(db *gorm.DB) IdentityServicer {
	return &identityService{db: db}
}

// Resolve finds the identity for chatID, creating it when missing. A known
// Telegram user id is attached to an identity that lacks one.
func (s *identityService) Resolve(chatID int64, telegramUserID string) (*models.TelegramIdentity, error) {
	identity, err := s.GetByChatID(chatID)
	if err == nil {
		if identity.TelegramUserID == nil && telegramUserID != "" {
			if err := s.db.Model(identity).Update("telegram_user_id", telegramUserID).Error; err != nil {
				if !errors.Is(err, gorm.ErrDuplicatedKey) {
					return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
				}
			} else {
				identity.TelegramUserID = &telegramUserID
			}
		}
		return identity, nil
	}
	if !errors.Is(err, apperrors.ErrTelegramIdentityNotFound) {
		return nil, err
	}

	if telegramUserID != "" {
		var existing models.TelegramIdentity
		err := s.db.Where("telegram_user_id = ?", telegramUserID).First(&existing).Error
		if err == nil {
			return &existing, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	identity = &models.TelegramIdentity{ChatID: chatID}
	if telegramUserID != "" {
		identity.TelegramUserID = &telegramUserID
	}
	if err := s.db.Create(identity).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Created concurrently by another request.
			var existing models.TelegramIdentity
			if err := s.db.Where("telegram_user_id = ?", telegramUserID).First(&existing).Error; err != nil {
				return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
			}
			return &existing, nil
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return identity, nil
}

// GetByChatID returns the most recent identity for chatID.
func (s *identityService) GetByChatID(chatID int64) (*models.TelegramIdentity, error) {
	var identity models.TelegramIdentity
	if err := s.db.Where("chat_id = ?", chatID).Order("created_at DESC").First(&identity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTelegramIdentityNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &identity, nil
}

// GetByID returns the identity with the given internal id.
func (s *identityService) GetByID(id string) (*models.TelegramIdentity, error) {
	var identity models.TelegramIdentity
	if err := s.db.Where("id = ?", id).First(&identity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTelegramIdentityNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &identity, nil
}
