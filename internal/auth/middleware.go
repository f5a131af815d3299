package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"feedcloud/internal/database"
)

type contextKey string

const userContextKey contextKey = "user"

type Middleware struct {
	tokens *TokenManager
}

func NewMiddleware(tokens *TokenManager) *Middleware {
	return &Middleware{tokens: tokens}
}

// RequireAuth rejects any request without a valid "Authorization: Bearer
// <token>" header.
func (m *Middleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.Request)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}

		user, ok := m.tokens.Authenticate(c.Request.Context(), token)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(string(userContextKey), user)
		c.Next()
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if token == "" {
		return "", false
	}
	return token, true
}

// GetUserFromContext extracts the authenticated user set by RequireAuth.
func GetUserFromContext(c *gin.Context) (*database.User, bool) {
	user, exists := c.Get(string(userContextKey))
	if !exists {
		return nil, false
	}
	u, ok := user.(*database.User)
	return u, ok
}
