package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"feedcloud/internal/auth"
	"feedcloud/internal/database"
)

type AuthHandler struct {
	db     database.Database
	tokens *auth.TokenManager
}

func NewAuthHandler(db database.Database, tokens *auth.TokenManager) *AuthHandler {
	return &AuthHandler{db: db, tokens: tokens}
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login implements POST /auth/. The core treats the token as opaque;
// identity is resolved from it as the username used to issue it.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "username and password are required"})
		return
	}

	user, err := h.db.GetUserByUsername(c.Request.Context(), req.Username)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid username or password"})
		return
	}
	if err != nil {
		logrus.WithError(err).Error("auth handler: lookup user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	if !auth.VerifyPassword(user.PasswordHash, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid username or password"})
		return
	}

	token, _, err := h.tokens.IssueToken(c.Request.Context(), user)
	if err != nil {
		logrus.WithError(err).Error("auth handler: issue token failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}
