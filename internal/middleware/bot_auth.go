package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
)

// APIKeyHeader carries the shared key of the bot engine.
const APIKeyHeader = "X-API-Key"

// BotKeyAuth creates a Gin middleware that validates the X-API-Key header
// against the configured bot API key.
func BotKeyAuth(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			AbortWithError(c, apperrors.ErrBotAPIDisabled)
			return
		}
		key := c.GetHeader(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(key), []byte(apiKey)) != 1 {
			AbortWithError(c, apperrors.ErrInvalidAPIKey)
			return
		}
		c.Next()
	}
}
