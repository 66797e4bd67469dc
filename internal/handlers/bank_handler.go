package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/models"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/services"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/storage"
)

// BankHandler handles bank account listings and balance changes
type BankHandler struct {
	bankService       services.BankServicer
	settlementService services.SettlementServicer
	store             storage.Store
}

// NewBankHandler creates a new BankHandler
func NewBankHandler(bankService services.BankServicer, settlementService services.SettlementServicer, store storage.Store) *BankHandler {
	return &BankHandler{
		bankService:       bankService,
		settlementService: settlementService,
		store:             store,
	}
}

// SetEnabledRequest toggles an account in the public listing
type SetEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// ListThai returns the enabled Thai accounts
// @Summary     List Thai bank accounts
// @Tags        banks
// @Produce     json
// @Success     200 {array} services.BankAccountView "Enabled accounts"
// @Router      /banks/thai [get]
func (h *BankHandler) ListThai(c *gin.Context) {
	h.list(c, models.BankCurrencyThai)
}

// ListMyanmar returns the enabled Myanmar accounts
// @Summary     List Myanmar bank accounts
// @Tags        banks
// @Produce     json
// @Success     200 {array} services.BankAccountView "Enabled accounts"
// @Router      /banks/myanmar [get]
func (h *BankHandler) ListMyanmar(c *gin.Context) {
	h.list(c, models.BankCurrencyMyanmar)
}

func (h *BankHandler) list(c *gin.Context, currency models.BankCurrency) {
	accounts, err := h.bankService.ListEnabled(currency)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, accounts)
}

// Balances returns every account balance read from the store
// @Summary     Account balances
// @Tags        banks
// @Produce     json
// @Success     200 {object} services.BalanceSnapshot "Balances"
// @Router      /banks/balances [get]
func (h *BankHandler) Balances(c *gin.Context) {
	snapshot, err := h.bankService.BalanceSnapshot()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// ApplyBalances settles an order on behalf of the bot engine
// @Summary     Apply order balance changes
// @Description Approves the order and applies the deltas at most once
// @Tags        banks
// @Accept      json
// @Produce     json
// @Security    APIKeyAuth
// @Param       request body SettleRequest true "Order code and balance changes"
// @Success     200 {object} services.SettlementResult "Settlement result"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     404 {object} ErrorResponse "Order not found"
// @Failure     409 {object} ErrorResponse "Already settled or declined"
// @Router      /banks/balances/apply [post]
func (h *BankHandler) ApplyBalances(c *gin.Context) {
	var req SettleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	if req.OrderID == "" {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "order_id is required"))
		return
	}

	result, err := h.settlementService.Settle(req.OrderID, req.input(), "bot")
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// CreateAccount adds a bank account
// @Summary     Create bank account
// @Tags        admin
// @Accept      multipart/form-data
// @Produce     json
// @Security    BearerAuth
// @Param       currency       path     string true  "thai or myanmar"
// @Param       bank_name      formData string true  "Bank name"
// @Param       account_number formData string true  "Account number"
// @Param       account_name   formData string true  "Account holder"
// @Param       display_name   formData string false "Name shown to users"
// @Param       enabled        formData bool   false "Listed publicly"
// @Param       balance        formData string false "Opening balance"
// @Param       qr_image       formData file   false "QR image"
// @Success     201 {object} map[string]interface{} "Created account"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Router      /admin/banks/{currency} [post]
func (h *BankHandler) CreateAccount(c *gin.Context) {
	balance := decimal.Zero
	if d, err := parseDecimal("balance", c.PostForm("balance")); err != nil {
		respondWithError(c, err)
		return
	} else if d != nil {
		balance = *d
	}

	fields := models.BankAccountFields{
		DisplayName:   strings.TrimSpace(c.PostForm("display_name")),
		BankName:      strings.TrimSpace(c.PostForm("bank_name")),
		AccountNumber: strings.TrimSpace(c.PostForm("account_number")),
		AccountName:   strings.TrimSpace(c.PostForm("account_name")),
		Enabled:       parseFormBool(c.PostForm("enabled")),
		Balance:       balance,
	}

	qr, err := saveUploads(c, h.store, "qr_image", uploadQR)
	if err != nil {
		respondWithError(c, err)
		return
	}
	if len(qr) > 0 {
		fields.QRImage = qr[0]
	}

	account, err := h.bankService.CreateAccount(models.BankCurrency(c.Param("currency")), fields)
	if err != nil {
		discardUploads(h.store, qr)
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"bank": account})
}

// SetEnabled shows or hides an account in the public listing
// @Summary     Enable or disable a bank account
// @Tags        admin
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       currency path string true "thai or myanmar"
// @Param       id       path string true "Account id"
// @Param       request  body SetEnabledRequest true "Enabled flag"
// @Success     200 {object} map[string]interface{} "Updated account"
// @Failure     404 {object} ErrorResponse "Account not found"
// @Router      /admin/banks/{currency}/{id}/enabled [patch]
func (h *BankHandler) SetEnabled(c *gin.Context) {
	var req SetEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	account, err := h.bankService.SetEnabled(models.BankCurrency(c.Param("currency")), c.Param("id"), *req.Enabled)
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bank": account})
}
