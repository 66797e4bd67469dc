package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/webhook"
)

// WebhookHandler triggers bot notifications synchronously
type WebhookHandler struct {
	sender    webhook.Sender
	targetURL string
}

// NewWebhookHandler creates a new WebhookHandler. targetURL is only echoed
// back by the test endpoint.
func NewWebhookHandler(sender webhook.Sender, targetURL string) *WebhookHandler {
	return &WebhookHandler{sender: sender, targetURL: targetURL}
}

// NotifyResponse is the outcome of a synchronous delivery. A failed delivery
// is reported as 502 with this body instead of ErrorResponse, since the
// request itself was valid and the bot endpoint is the party that failed.
type NotifyResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	WebhookURL string `json:"webhook_url,omitempty"`
}

func missingFields(p webhook.Payload) []string {
	var missing []string
	if p.OrderID == "" {
		missing = append(missing, "order_id")
	}
	if p.Event != webhook.EventAdminReplied && p.Status == "" {
		missing = append(missing, "status")
	}
	if p.TelegramID == "" {
		missing = append(missing, "telegram_id")
	}
	if p.ChatID == 0 {
		missing = append(missing, "chat_id")
	}
	return missing
}

// NotifyBot delivers one event to the bot engine and waits for the outcome
// @Summary     Notify the bot
// @Description Sends order_status_changed, order_verified or admin_replied to the bot webhook with retries
// @Tags        webhook
// @Accept      json
// @Produce     json
// @Security    APIKeyAuth
// @Param       request body webhook.Payload true "Event payload"
// @Success     200 {object} NotifyResponse "Delivered"
// @Failure     400 {object} ErrorResponse "Invalid payload"
// @Failure     502 {object} NotifyResponse "Bot endpoint did not accept the event (gateway error)"
// @Router      /webhook/notify-bot [post]
func (h *WebhookHandler) NotifyBot(c *gin.Context) {
	var p webhook.Payload
	if err := c.ShouldBindJSON(&p); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	event, ok := webhook.ParseEvent(string(p.Event))
	if !ok {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrUnknownEvent, "Unknown event type: "+string(p.Event)))
		return
	}
	p.Event = event

	if missing := missingFields(p); len(missing) > 0 {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "Missing required fields: "+strings.Join(missing, ", ")))
		return
	}

	h.deliver(c, p, "Webhook sent successfully", "")
}

// Test sends a fixed payload to check connectivity with the bot
// @Summary     Test the bot webhook
// @Tags        webhook
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} NotifyResponse "Delivered"
// @Failure     502 {object} NotifyResponse "Bot endpoint did not accept the event (gateway error)"
// @Router      /webhook/test [post]
func (h *WebhookHandler) Test(c *gin.Context) {
	amount := decimal.NewFromInt(100)
	p := webhook.Payload{
		Event:      webhook.EventOrderStatusChanged,
		OrderID:    "TEST-ORDER-123",
		Status:     "test",
		TelegramID: "123456789",
		ChatID:     123456789,
		Amount:     &amount,
		OrderType:  "buy",
	}
	h.deliver(c, p, "Test webhook sent successfully", h.targetURL)
}

func (h *WebhookHandler) deliver(c *gin.Context, p webhook.Payload, okMessage, url string) {
	if h.sender.Send(c.Request.Context(), p) {
		c.JSON(http.StatusOK, NotifyResponse{Status: "ok", Message: okMessage, WebhookURL: url})
		return
	}
	c.JSON(apperrors.ErrWebhookDelivery.StatusCode, NotifyResponse{
		Status:     "error",
		Message:    apperrors.ErrWebhookDelivery.Message,
		WebhookURL: url,
	})
}
