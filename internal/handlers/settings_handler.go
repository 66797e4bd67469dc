package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/pagination"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/services"
)

// SettingsHandler handles the public settings read and admin updates
type SettingsHandler struct {
	settingsService services.SettingsServicer
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settingsService services.SettingsServicer) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// ToggleRequest sets a boolean flag
type ToggleRequest struct {
	On *bool `json:"on" binding:"required"`
}

// ExchangeRateRequest publishes a new rate pair
type ExchangeRateRequest struct {
	Buy  decimal.Decimal `json:"buy" swaggertype:"number"`
	Sell decimal.Decimal `json:"sell" swaggertype:"number"`
}

// WebhookSettingsRequest updates the stored bot webhook target
type WebhookSettingsRequest struct {
	WebhookURL string `json:"webhook_url" binding:"required,url"`
	Secret     string `json:"secret"`
	Enabled    *bool  `json:"enabled"`
}

// WebhookLogQuery holds the webhook log filters
type WebhookLogQuery struct {
	pagination.PageRequest
	EventType string `form:"event_type"`
	Success   *bool  `form:"success"`
}

// GetSettings returns maintenance, auth feature and the current rate
// @Summary     Get settings
// @Tags        settings
// @Produce     json
// @Success     200 {object} services.SettingsSnapshot "Settings"
// @Router      /settings/ [get]
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	snapshot, err := h.settingsService.Get()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// SetMaintenance toggles maintenance mode
// @Summary     Toggle maintenance mode
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ToggleRequest true "Flag"
// @Success     200 {object} services.SettingsSnapshot "Settings"
// @Router      /admin/settings/maintenance [put]
func (h *SettingsHandler) SetMaintenance(c *gin.Context) {
	h.toggle(c, h.settingsService.SetMaintenance)
}

// SetAuthFeature toggles phone/password auth in clients
// @Summary     Toggle auth feature
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ToggleRequest true "Flag"
// @Success     200 {object} services.SettingsSnapshot "Settings"
// @Router      /admin/settings/auth-feature [put]
func (h *SettingsHandler) SetAuthFeature(c *gin.Context) {
	h.toggle(c, h.settingsService.SetAuthFeature)
}

func (h *SettingsHandler) toggle(c *gin.Context, set func(bool) error) {
	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if err := set(*req.On); err != nil {
		respondWithError(c, err)
		return
	}
	h.GetSettings(c)
}

// AddExchangeRate publishes a new buy/sell pair
// @Summary     Add exchange rate
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body ExchangeRateRequest true "Rates"
// @Success     201 {object} map[string]interface{} "Created rate"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /admin/settings/exchange-rates [post]
func (h *SettingsHandler) AddExchangeRate(c *gin.Context) {
	var req ExchangeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	rate, err := h.settingsService.AddExchangeRate(req.Buy, req.Sell)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"exchange_rate": rate})
}

// GetWebhookSettings returns the stored bot webhook target
// @Summary     Get webhook settings
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Webhook settings"
// @Failure     404 {object} ErrorResponse "Not configured"
// @Router      /admin/settings/webhook [get]
func (h *SettingsHandler) GetWebhookSettings(c *gin.Context) {
	settings, err := h.settingsService.GetWebhookSettings()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhook": settings, "has_secret": settings.Secret != ""})
}

// UpdateWebhookSettings stores the bot webhook target
// @Summary     Update webhook settings
// @Description Takes effect on the next restart. An empty secret keeps the current one.
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body WebhookSettingsRequest true "Webhook target"
// @Success     200 {object} map[string]interface{} "Webhook settings"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /admin/settings/webhook [put]
func (h *SettingsHandler) UpdateWebhookSettings(c *gin.Context) {
	var req WebhookSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	enabled := req.Enabled == nil || *req.Enabled

	settings, err := h.settingsService.UpdateWebhookSettings(req.WebhookURL, req.Secret, enabled)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"webhook": settings, "has_secret": settings.Secret != ""})
}

// ListWebhookLogs lists delivery outcomes, newest first
// @Summary     List webhook logs
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       event_type query string false "Filter by event"
// @Param       success    query bool   false "Filter by outcome"
// @Param       page       query int    false "Page number"
// @Param       page_size  query int    false "Page size"
// @Success     200 {object} map[string]interface{} "Paginated logs"
// @Router      /admin/webhook-logs [get]
func (h *SettingsHandler) ListWebhookLogs(c *gin.Context) {
	var q WebhookLogQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	page, err := h.settingsService.ListWebhookLogs(services.WebhookLogFilter{
		EventType: q.EventType,
		Success:   q.Success,
	}, q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
