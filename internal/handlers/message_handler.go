package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/services"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/storage"
)

// MessageHandler relays chat messages between the bot and admins
type MessageHandler struct {
	messageService services.MessageServicer
	store          storage.Store
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(messageService services.MessageServicer, store storage.Store) *MessageHandler {
	return &MessageHandler{messageService: messageService, store: store}
}

// SubmitMessage stores one chat turn sent by the bot
// @Summary     Submit a chat message
// @Description An image sent with from_bot or from_backend becomes the confirmation receipt of the chat's pending order
// @Tags        messages
// @Accept      multipart/form-data
// @Produce     json
// @Param       chat_id       formData int    true  "Telegram chat id"
// @Param       telegram_id   formData string false "Telegram user id"
// @Param       content       formData string false "Text"
// @Param       chosen_option formData string false "Selected button"
// @Param       from_bot      formData bool   false "Sent by the bot"
// @Param       from_backend  formData bool   false "Sent by the backend"
// @Param       buttons       formData string false "Buttons JSON"
// @Param       image         formData file   false "Images"
// @Success     201 {object} map[string]interface{} "Stored message"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /message/submit [post]
func (h *MessageHandler) SubmitMessage(c *gin.Context) {
	chatID, err := parseChatID(c.PostForm("chat_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	images, err := saveUploads(c, h.store, "image", uploadImages)
	if err != nil {
		respondWithError(c, err)
		return
	}

	msg, err := h.messageService.SubmitMessage(services.MessageInput{
		ChatID:         chatID,
		TelegramUserID: c.PostForm("telegram_id"),
		Content:        c.PostForm("content"),
		ChosenOption:   c.PostForm("chosen_option"),
		Images:         images,
		FromBot:        parseFormBool(c.PostForm("from_bot")),
		FromBackend:    parseFormBool(c.PostForm("from_backend")),
		Buttons:        c.PostForm("buttons"),
	})
	if err != nil {
		discardUploads(h.store, images)
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Message submitted successfully", "data": msg})
}

// PollMessages returns admin replies the user has not seen yet
// @Summary     Poll unseen replies
// @Tags        messages
// @Produce     json
// @Param       chat_id query int true "Telegram chat id"
// @Success     200 {object} map[string]interface{} "Unseen messages"
// @Failure     400 {object} ErrorResponse "Invalid chat id"
// @Router      /message/poll [get]
func (h *MessageHandler) PollMessages(c *gin.Context) {
	chatID, err := parseChatID(c.Query("chat_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}

	messages, err := h.messageService.PollUnseen(chatID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// ListChats lists conversations for the admin chat view
// @Summary     List chats
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Chats"
// @Router      /admin/chats [get]
func (h *MessageHandler) ListChats(c *gin.Context) {
	chats, err := h.messageService.ListChats()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"chats": chats})
}

// ChatDetail returns a conversation and marks it read
// @Summary     Chat detail
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       identity_id path string true "Telegram identity id"
// @Success     200 {object} services.ChatDetail "Conversation"
// @Failure     404 {object} ErrorResponse "Identity not found"
// @Router      /admin/chats/{identity_id} [get]
func (h *MessageHandler) ChatDetail(c *gin.Context) {
	detail, err := h.messageService.ChatDetail(c.Param("identity_id"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Reply sends an admin message to the user
// @Summary     Reply in a chat
// @Tags        admin
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       identity_id path     string true  "Telegram identity id"
// @Param       content     formData string false "Text"
// @Param       image       formData file   false "Images"
// @Success     201 {object} map[string]interface{} "Stored message"
// @Failure     400 {object} ErrorResponse "Empty reply"
// @Failure     404 {object} ErrorResponse "Identity not found"
// @Router      /admin/chats/{identity_id}/reply [post]
func (h *MessageHandler) Reply(c *gin.Context) {
	images, err := saveUploads(c, h.store, "image", uploadImages)
	if err != nil {
		respondWithError(c, err)
		return
	}

	msg, err := h.messageService.AdminReply(c.Param("identity_id"), c.PostForm("content"), images, adminActor(c))
	if err != nil {
		discardUploads(h.store, images)
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": msg})
}

// ChatOrderStatusRequest changes the chat's latest order. The balance fields
// are only read when approving, which settles the order.
type ChatOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	SettleRequest
}

// UpdateOrderStatus changes the status of the chat's latest order
// @Summary     Update latest order status from a chat
// @Description Allowed statuses: pending, approved, declined, complain. Approved settles the order and applies the given balance changes.
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       identity_id path string true "Telegram identity id"
// @Param       request body ChatOrderStatusRequest true "New status"
// @Success     200 {object} map[string]interface{} "Updated order"
// @Failure     400 {object} ErrorResponse "Status not allowed"
// @Failure     404 {object} ErrorResponse "No orders"
// @Failure     409 {object} ErrorResponse "Already settled or declined"
// @Router      /admin/chats/{identity_id}/order-status [patch]
func (h *MessageHandler) UpdateOrderStatus(c *gin.Context) {
	var req ChatOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	order, err := h.messageService.UpdateLatestOrderStatus(c.Param("identity_id"), models.OrderStatus(req.Status), req.input(), adminActor(c))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}
