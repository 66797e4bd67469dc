package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/pagination"
)

type settingsService struct {
	db *gorm.DB
}

// NewSettingsService creates a new SettingsServicer.
func NewSettingsService(db *gorm.DB) SettingsServicer {
	return &settingsService{db: db}
}

// first loads the oldest row of a singleton table; found is false when the
// table is empty.
func first(db *gorm.DB, dest interface{}) (bool, error) {
	err := db.Order("created_at").First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return true, nil
}

// Get returns the maintenance and auth flags and the latest exchange rate.
func (s *settingsService) Get() (*SettingsSnapshot, error) {
	snapshot := &SettingsSnapshot{}

	var maintenance models.MaintenanceMode
	found, err := first(s.db, &maintenance)
	if err != nil {
		return nil, err
	}
	snapshot.Maintenance = found && maintenance.On

	var auth models.AuthFeature
	found, err = first(s.db, &auth)
	if err != nil {
		return nil, err
	}
	snapshot.AuthFeature = found && auth.On

	var rate models.ExchangeRate
	err = s.db.Order("updated_at DESC").First(&rate).Error
	switch {
	case err == nil:
		snapshot.Buy = &rate.Buy
		snapshot.Sell = &rate.Sell
		snapshot.RateUpdatedAt = &rate.UpdatedAt
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return snapshot, nil
}

// SetMaintenance updates the first maintenance row, creating it if needed.
func (s *settingsService) SetMaintenance(on bool) error {
	var row models.MaintenanceMode
	found, err := first(s.db, &row)
	if err != nil {
		return err
	}
	if !found {
		row.On = on
		if err := s.db.Create(&row).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	}
	if err := s.db.Model(&row).Update("on", on).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// SetAuthFeature updates the first auth feature row, creating it if needed.
func (s *settingsService) SetAuthFeature(on bool) error {
	var row models.AuthFeature
	found, err := first(s.db, &row)
	if err != nil {
		return err
	}
	if !found {
		row.On = on
		if err := s.db.Create(&row).Error; err != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return nil
	}
	if err := s.db.Model(&row).Update("on", on).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}

// AddExchangeRate publishes a new rate pair; it becomes the current one.
func (s *settingsService) AddExchangeRate(buy, sell decimal.Decimal) (*models.ExchangeRate, error) {
	if !buy.IsPositive() || !sell.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "buy and sell must be greater than zero")
	}
	rate := &models.ExchangeRate{Buy: buy, Sell: sell}
	if err := s.db.Create(rate).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return rate, nil
}

// GetWebhookSettings returns the stored webhook target.
func (s *settingsService) GetWebhookSettings() (*models.WebhookSettings, error) {
	var row models.WebhookSettings
	found, err := first(s.db, &row)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.WithMessage(apperrors.ErrNotFound, "Webhook settings not configured")
	}
	return &row, nil
}

// UpdateWebhookSettings stores the webhook target. An empty secret keeps the
// current one. The running notifier picks the change up on restart.
func (s *settingsService) UpdateWebhookSettings(url, secret string, enabled bool) (*models.WebhookSettings, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "webhook_url is required")
	}

	var row models.WebhookSettings
	found, err := first(s.db, &row)
	if err != nil {
		return nil, err
	}

	row.WebhookURL = url
	row.Enabled = enabled
	if secret != "" {
		row.Secret = secret
	}

	if !found {
		if err := s.db.Create(&row).Error; err != nil {
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
		return &row, nil
	}
	if err := s.db.Model(&row).Select("webhook_url", "secret", "enabled").Updates(&row).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &row, nil
}

// ListWebhookLogs retrieves delivery outcomes, newest first by default.
func (s *settingsService) ListWebhookLogs(filter WebhookLogFilter, page pagination.PageRequest) (*pagination.PageResponse[models.WebhookLog], error) {
	base := s.db.Model(&models.WebhookLog{})
	if filter.EventType != "" {
		base = base.Where("event_type = ?", filter.EventType)
	}
	if filter.Success != nil {
		base = base.Where("success = ?", *filter.Success)
	}

	result, err := pagination.Find[models.WebhookLog](base, page, "id")
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return result, nil
}

// PurgeWebhookLogs deletes log rows created before the cutoff.
func (s *settingsService) PurgeWebhookLogs(before time.Time) (int64, error) {
	res := s.db.Where("created_at < ?", before.UTC()).Delete(&models.WebhookLog{})
	if res.Error != nil {
		return 0, apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
	}
	return res.RowsAffected, nil
}
