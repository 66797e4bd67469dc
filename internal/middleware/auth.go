package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/config"
	apperrors "github.com/zwehtet-dev/inifinity-tg-bot-backend/internal/errors"
)

const (
	adminIssuer = "exchange-admin"
	adminRole   = "admin"

	// Context keys set by the auth middlewares.
	AdminKey  = "adminUsername"
	UserIDKey = "userID"
)

// getJWTKey returns the JWT key from configuration
func getJWTKey() []byte {
	return []byte(config.Get().JWTSecret)
}

// AdminClaims represents the claims in an admin JWT
type AdminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAdminToken signs an HS256 token for the admin user.
func GenerateAdminToken(username string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(config.Get().JWTExpirationDur)
	claims := &AdminClaims{
		Username: username,
		Role:     adminRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    adminIssuer,
			Subject:   username,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(getJWTKey())
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ParseAdminToken validates an admin JWT and returns its claims.
func ParseAdminToken(tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return getJWTKey(), nil
	}, jwt.WithIssuer(adminIssuer))
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid admin token")
	}
	if claims.Role != adminRole {
		return nil, fmt.Errorf("token is not an admin token")
	}
	return claims, nil
}

// bearerToken extracts the token from "Authorization: Bearer <token>". A bare
// token without the scheme is accepted too, as the bot sends it that way.
func bearerToken(c *gin.Context) string {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if header == "" {
		return ""
	}
	if scheme, token, ok := strings.Cut(header, " "); ok {
		if !strings.EqualFold(scheme, "Bearer") {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return header
}

// AdminAuthMiddleware verifies the admin JWT and sets the admin username in
// the context
func AdminAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, apperrors.ErrUnauthorized)
			return
		}

		claims, err := ParseAdminToken(token)
		if err != nil {
			AbortWithError(c, apperrors.ErrInvalidToken)
			return
		}

		c.Set(AdminKey, claims.Username)
		c.Next()
	}
}

// TokenResolver maps an opaque bearer token to a user id.
type TokenResolver interface {
	Resolve(token string) (string, error)
}

// UserTokenAuth requires a valid user bearer token and sets the user id in
// the context.
func UserTokenAuth(tokens TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			AbortWithError(c, apperrors.WithMessage(apperrors.ErrUnauthorized, "Authorization token is required"))
			return
		}

		userID, err := tokens.Resolve(token)
		if err != nil {
			AbortWithError(c, apperrors.ErrInvalidToken)
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// OptionalUserToken sets the user id when a valid bearer token is present and
// lets anonymous requests through.
func OptionalUserToken(tokens TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if userID, err := tokens.Resolve(token); err == nil {
				c.Set(UserIDKey, userID)
			}
		}
		c.Next()
	}
}
