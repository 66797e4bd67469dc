package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/logger"
	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/middleware"
)

// AdminCredentials is the single admin login configured from the environment.
type AdminCredentials struct {
	Username     string
	PasswordHash string
}

// AdminHandler handles admin login
type AdminHandler struct {
	creds AdminCredentials
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(creds AdminCredentials) *AdminHandler {
	if creds.PasswordHash == "" {
		logger.Get().Warn("ADMIN_PASSWORD_HASH is not set; admin login is disabled")
	}
	return &AdminHandler{creds: creds}
}

// AdminLoginRequest represents the admin login payload
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLoginResponse carries the admin JWT
type AdminLoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login authenticates the admin and issues a JWT
// @Summary     Admin login
// @Description Authenticate the admin user and get a JWT for /admin routes
// @Tags        admin
// @Accept      json
// @Produce     json
// @Param       request body AdminLoginRequest true "Admin credentials"
// @Success     200 {object} AdminLoginResponse "JWT issued"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     401 {object} ErrorResponse "Invalid credentials"
// @Router      /admin/login [post]
func (h *AdminHandler) Login(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(req.Username), []byte(h.creds.Username)) == 1
	if h.creds.PasswordHash == "" || !userOK ||
		bcrypt.CompareHashAndPassword([]byte(h.creds.PasswordHash), []byte(req.Password)) != nil {
		logger.Get().Warnw("admin login failed", "username", req.Username, "client_ip", c.ClientIP())
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidCredentials, "Invalid username or password"))
		return
	}

	token, expiresAt, err := middleware.GenerateAdminToken(h.creds.Username)
	if err != nil {
		respondWithError(c, apperrors.Wrap(apperrors.ErrInternalServer, err))
		return
	}

	logger.Get().Infow("admin logged in", "username", h.creds.Username)
	c.JSON(http.StatusOK, AdminLoginResponse{Token: token, ExpiresAt: expiresAt})
}
