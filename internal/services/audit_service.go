package services

import (
	"encoding/json"

	"gorm.io/gorm"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/logger"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
)

// Audit actions.
const (
	ActionOrderCreated    = "ORDER_CREATED"
	ActionStatusChanged   = "ORDER_STATUS_CHANGED"
	ActionReceiptAttached = "ORDER_RECEIPT_ATTACHED"
	ActionOrderSettled    = "ORDER_SETTLED"
	ActionOrderDeleted    = "ORDER_DELETED"
	ActionBankCreated     = "BANK_ACCOUNT_CREATED"
	ActionBankToggled     = "BANK_ACCOUNT_TOGGLED"
)

// auditService handles audit log recording.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// WithTx returns an audit service writing through tx, so the entry commits or
// rolls back with the change it describes.
func (s *auditService) WithTx(tx *gorm.DB) AuditServicer {
	return &auditService{db: tx}
}

// Log records an audit event. Errors are logged but never propagate
// to avoid disrupting the main operation.
func (s *auditService) Log(actor, action, resourceType, resourceID string, changes map[string]any) {
	var changesJSON string
	if changes != nil {
		data, err := json.Marshal(changes)
		if err != nil {
			logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
			changesJSON = "{}"
		} else {
			changesJSON = string(data)
		}
	}

	entry := &models.AuditLog{
		Actor:        actor,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Changes:      changesJSON,
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"actor", actor,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}
