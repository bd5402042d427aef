package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/SINTT/TODO/internal/domain"

	"github.com/gin-gonic/gin"
)

type TokenParser interface {
	Parse(token string) (string, error)
}

type UserResolver interface {
	GetUser(ctx context.Context, nickname string) (*domain.User, error)
}

// Auth resolves the bearer token into a domain.Actor stored under "actor".
// The account is loaded on every request so role changes and deletions
// take effect immediately.
func Auth(tokens TokenParser, users UserResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(raw, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			abort(c, http.StatusUnauthorized, "Unauthenticated", "missing bearer token")
			return
		}

		nickname, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			abort(c, http.StatusUnauthorized, "Unauthenticated", "invalid token")
			return
		}

		u, err := users.GetUser(c.Request.Context(), nickname)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrNotFound):
			abort(c, http.StatusUnauthorized, "Unauthenticated", "account no longer exists")
			return
		case errors.Is(err, domain.ErrTimeout):
			abort(c, http.StatusGatewayTimeout, "Timeout", "timeout")
			return
		default:
			abort(c, http.StatusServiceUnavailable, "StorageUnavailable", "storage unavailable")
			return
		}

		c.Set("actor", domain.ActorFromUser(u))
		c.Next()
	}
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"success": false,
		"error":   gin.H{"code": code, "message": message},
	})
}
