package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const apiKeyHeader = "X-API-Key"

// apiKeyMiddleware gates the telemetry surface: the presented secret must
// resolve to an active key.
func apiKeyMiddleware(store Store, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		secret := c.GetHeader(apiKeyHeader)
		if secret == "" {
			abortError(c, http.StatusUnauthorized, "api key required")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		key, err := store.LookupAPIKey(ctx, secret)
		if err != nil {
			logger.Error("api key lookup failed", "error", err)
			abortError(c, http.StatusInternalServerError, "authentication unavailable")
			return
		}
		if key == nil {
			abortError(c, http.StatusUnauthorized, "invalid api key")
			return
		}

		c.Set("apiKeyID", key.ID)
		c.Next()
	}
}

// jwtAuthMiddleware gates the key-management surface behind an operator token.
func jwtAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") {
			abortError(c, http.StatusUnauthorized, "bearer token required")
			return
		}
		raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

		token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			abortError(c, http.StatusUnauthorized, "invalid token")
			return
		}

		if sub, err := token.Claims.GetSubject(); err == nil {
			c.Set("username", sub)
		}
		c.Next()
	}
}
