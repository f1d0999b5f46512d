package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/tagforge/tagsync/common/config"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// UserIDKey is the context key for storing the authenticated user id
	UserIDKey ContextKey = "user_id"
)

// TokenManager issues and verifies HMAC-signed JWTs. The same tokens
// authenticate HTTP requests (Authorization header) and WebSocket
// handshakes (token query parameter).
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a token manager from auth config
func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
	}
}

// Generate issues a token for a user
func (m *TokenManager) Generate(userID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify validates a token and returns the user id it was issued to
func (m *TokenManager) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("missing token")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid token")
	}

	return claims.Subject, nil
}

// RequireAuth is an echo middleware enforcing a valid Bearer token on
// every request and storing the user id in the request context
func (m *TokenManager) RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			tokenString := strings.TrimPrefix(header, "Bearer ")
			if tokenString == header {
				tokenString = ""
			}

			userID, err := m.Verify(tokenString)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"error": "authentication required",
				})
			}

			c.Set(string(UserIDKey), userID)
			return next(c)
		}
	}
}

// GetUserID retrieves the authenticated user id from the request
// context. Returns empty string if not set.
func GetUserID(c echo.Context) string {
	userID := c.Get(string(UserIDKey))
	if userID == nil {
		return ""
	}
	return userID.(string)
}
