package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/pagination"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/services"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/storage"
)

// OrderHandler handles order submission, lookup and review
type OrderHandler struct {
	orderService      services.OrderServicer
	settlementService services.SettlementServicer
	store             storage.Store
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService services.OrderServicer, settlementService services.SettlementServicer, store storage.Store) *OrderHandler {
	return &OrderHandler{
		orderService:      orderService,
		settlementService: settlementService,
		store:             store,
	}
}

// UpdateStatusRequest represents a status change payload
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SettleRequest names the signed balance changes of a settlement. Account
// ids default to the accounts linked on the order.
type SettleRequest struct {
	OrderID          string           `json:"order_id,omitempty"`
	ThaiAccountID    *string          `json:"thai_account_id,omitempty"`
	ThaiDelta        *decimal.Decimal `json:"thai_delta,omitempty" swaggertype:"number"`
	MyanmarAccountID *string          `json:"myanmar_account_id,omitempty"`
	MyanmarDelta     *decimal.Decimal `json:"myanmar_delta,omitempty" swaggertype:"number"`
}

func (r SettleRequest) input() services.SettlementInput {
	return services.SettlementInput{
		ThaiAccountID:    r.ThaiAccountID,
		ThaiDelta:        r.ThaiDelta,
		MyanmarAccountID: r.MyanmarAccountID,
		MyanmarDelta:     r.MyanmarDelta,
	}
}

// ListOrdersQuery holds the admin list filters
type ListOrdersQuery struct {
	pagination.PageRequest
	Status    string `form:"status" binding:"omitempty,order_status"`
	OrderType string `form:"order_type" binding:"omitempty,order_type"`
	OrderID   string `form:"order_id"`
}

// SubmitOrder creates an order from a multipart form
// @Summary     Submit an order
// @Description Submit a buy or sell order with optional receipt uploads. A bearer token links the order to the user.
// @Tags        orders
// @Accept      multipart/form-data
// @Produce     json
// @Param       order_type              formData string true  "buy or sell"
// @Param       amount                  formData string true  "Amount"
// @Param       price                   formData string true  "Exchange rate"
// @Param       chat_id                 formData int    false "Telegram chat id"
// @Param       telegram_id             formData string false "Telegram user id"
// @Param       thai_bank_account_id    formData string false "Thai bank account id"
// @Param       myanmar_bank_account_id formData string false "Myanmar bank account id"
// @Param       myanmar_bank_name       formData string false "Myanmar bank name, used when no id is given"
// @Param       user_bank               formData string false "User bank details"
// @Param       qr                      formData string false "QR reference"
// @Param       receipt                 formData file   false "Receipt images"
// @Success     201 {object} map[string]interface{} "Order created"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /orders/submit [post]
func (h *OrderHandler) SubmitOrder(c *gin.Context) {
	chatID, err := parseOptionalChatID(c.PostForm("chat_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	input := services.OrderInput{
		Type:                 c.PostForm("order_type"),
		Amount:               c.PostForm("amount"),
		Price:                c.PostForm("price"),
		ThaiBankAccountID:    c.PostForm("thai_bank_account_id"),
		MyanmarBankAccountID: c.PostForm("myanmar_bank_account_id"),
		MyanmarBankName:      c.PostForm("myanmar_bank_name"),
		ChatID:               chatID,
		TelegramUserID:       c.PostForm("telegram_id"),
		UserBank:             c.PostForm("user_bank"),
		QR:                   c.PostForm("qr"),
	}
	input.UserID, _ = getUserID(c)

	if err := services.ValidateOrderInput(input); err != nil {
		respondWithError(c, err)
		return
	}

	if input.Receipts, err = saveUploads(c, h.store, "receipt", uploadReceipts); err != nil {
		respondWithError(c, err)
		return
	}
	saved := input.Receipts
	if input.QR == "" {
		qr, err := saveUploads(c, h.store, "qr", uploadQR)
		if err != nil {
			discardUploads(h.store, saved)
			respondWithError(c, err)
			return
		}
		if len(qr) > 0 {
			input.QR = qr[0]
			saved = append(saved, qr...)
		}
	}

	order, err := h.orderService.CreateOrder(input)
	if err != nil {
		discardUploads(h.store, saved)
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Order submitted successfully",
		"order_id": order.Code,
		"order":    order,
	})
}

// GetLatestOrder returns the authenticated user's most recent order
// @Summary     Latest order of the user
// @Tags        orders
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Latest order"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "No orders"
// @Router      /orders/latest_order [get]
func (h *OrderHandler) GetLatestOrder(c *gin.Context) {
	userID, err := getUserID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	order, err := h.orderService.GetLatestByUserID(userID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// GetPendingOrder returns the chat's last order if it is still pending
// @Summary     Pending order of a chat
// @Tags        orders
// @Produce     json
// @Param       chat_id query int true "Telegram chat id"
// @Success     200 {object} map[string]interface{} "Pending order"
// @Failure     400 {object} ErrorResponse "Invalid chat id"
// @Failure     404 {object} ErrorResponse "No pending order"
// @Router      /orders/pending [get]
func (h *OrderHandler) GetPendingOrder(c *gin.Context) {
	chatID, err := parseChatID(c.Query("chat_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	order, err := h.orderService.GetLatestPendingByChatID(chatID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// GetOrder returns one order by its code
// @Summary     Get an order
// @Tags        orders
// @Produce     json
// @Param       order_id path string true "Order code"
// @Success     200 {object} map[string]interface{} "Order"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Router      /orders/{order_id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.orderService.GetOrderByCode(c.Param("order_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// UpdateStatusFromBot changes an order status on behalf of the bot engine
// @Summary     Update order status (bot)
// @Description Allowed statuses: pending, verified, declined, complain
// @Tags        orders
// @Accept      json
// @Produce     json
// @Security    APIKeyAuth
// @Param       order_id path string true "Order code"
// @Param       request body UpdateStatusRequest true "New status"
// @Success     200 {object} map[string]interface{} "Updated order"
// @Failure     400 {object} ErrorResponse "Status not allowed"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     409 {object} ErrorResponse "Order settled"
// @Router      /orders/{order_id}/status [patch]
func (h *OrderHandler) UpdateStatusFromBot(c *gin.Context) {
	h.updateStatus(c, services.PathBot, "bot")
}

// UpdateStatus changes an order status from the admin order view
// @Summary     Update order status (admin)
// @Description Allowed statuses: pending, verified, declined, complain. Approve through the settle endpoint.
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       order_id path string true "Order code"
// @Param       request body UpdateStatusRequest true "New status"
// @Success     200 {object} map[string]interface{} "Updated order"
// @Failure     400 {object} ErrorResponse "Invalid status"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     409 {object} ErrorResponse "Order settled"
// @Router      /admin/orders/{order_id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	h.updateStatus(c, services.PathAdmin, adminActor(c))
}

func (h *OrderHandler) updateStatus(c *gin.Context, path services.StatusPath, actor string) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	order, err := h.orderService.UpdateStatus(c.Param("order_id"), models.OrderStatus(req.Status), path, actor)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// ListOrders lists orders for the admin view
// @Summary     List orders
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       status     query string false "Filter by status"
// @Param       order_type query string false "Filter by type"
// @Param       order_id   query string false "Filter by code fragment"
// @Param       page       query int    false "Page number"
// @Param       page_size  query int    false "Page size"
// @Success     200 {object} map[string]interface{} "Paginated orders"
// @Failure     400 {object} ErrorResponse "Invalid filter"
// @Router      /admin/orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var q ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	filter := services.OrderFilter{Code: q.OrderID}
	if q.Status != "" {
		status := models.OrderStatus(q.Status)
		filter.Status = &status
	}
	if q.OrderType != "" {
		orderType := models.OrderType(q.OrderType)
		filter.Type = &orderType
	}

	page, err := h.orderService.ListOrders(filter, q.PageRequest)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, page)
}

// Settle approves an order and applies its balance changes
// @Summary     Settle an order
// @Description Marks the order approved and applies the balance deltas once
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       order_id path string true "Order code"
// @Param       request body SettleRequest true "Balance changes"
// @Success     200 {object} services.SettlementResult "Settlement result"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     409 {object} ErrorResponse "Already settled or declined"
// @Router      /admin/orders/{order_id}/settle [post]
func (h *OrderHandler) Settle(c *gin.Context) {
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.settlementService.Settle(c.Param("order_id"), req.input(), adminActor(c))
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// AttachConfirmReceipt uploads the admin's payout receipt for an order
// @Summary     Attach confirmation receipt
// @Tags        admin
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       order_id        path     string true "Order code"
// @Param       confirm_receipt formData file   true "Receipt images"
// @Success     200 {object} map[string]interface{} "Updated order"
// @Failure     400 {object} ErrorResponse "No file"
// @Failure     409 {object} ErrorResponse "Not pending or already attached"
// @Router      /admin/orders/{order_id}/confirm-receipt [post]
func (h *OrderHandler) AttachConfirmReceipt(c *gin.Context) {
	refs, err := saveUploads(c, h.store, "confirm_receipt", uploadReceipts)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if len(refs) == 0 {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "confirm_receipt file is required"))
		return
	}

	order, err := h.orderService.AttachConfirmReceipt(c.Param("order_id"), refs, adminActor(c))
	if err != nil {
		discardUploads(h.store, refs)
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"order": order})
}

// DeleteOrder removes an order
// @Summary     Delete an order
// @Tags        admin
// @Security    BearerAuth
// @Param       order_id path string true "Order code"
// @Success     204 "Deleted"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Router      /admin/orders/{order_id} [delete]
func (h *OrderHandler) DeleteOrder(c *gin.Context) {
	if err := h.orderService.DeleteOrder(c.Param("order_id"), adminActor(c)); err != nil {
		respondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
