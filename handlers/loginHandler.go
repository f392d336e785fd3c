package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Bekzhanizb/habitly/db"
	"github.com/Bekzhanizb/habitly/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "login_validation_failed", "email and password are required", err)
		return
	}

	user, err := h.Users.GetUserByEmail(c.Request.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		fail(c, "login_lookup_failed", err)
		return
	}
	if user == nil || user.PasswordHash == "" || !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		utils.Logger.Warn("login_rejected", zap.String("email", req.Email))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}

	token, err := h.Tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		fail(c, "login_token_generation_failed", err)
		return
	}

	utils.Logger.Info("login_success", zap.String("user_id", user.ID))
	c.JSON(http.StatusOK, gin.H{
		"message": "login successful",
		"user":    user,
		"token":   token,
	})
}
