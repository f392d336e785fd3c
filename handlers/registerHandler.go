package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/utils"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type registerForm struct {
	Name     string `form:"name" binding:"required,min=2,max=50"`
	Email    string `form:"email" binding:"required,email"`
	Password string `form:"password" binding:"required,min=6"`
}

// Register creates a password account from a multipart form with an
// optional avatar file.
func (h *Handler) Register(c *gin.Context) {
	var form registerForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "register_validation_failed", "name, email and password (6+ chars) are required", err)
		return
	}
	email := strings.ToLower(strings.TrimSpace(form.Email))

	utils.Logger.Info("register_attempt", zap.String("email", email))

	hashedPassword, err := utils.HashPassword(form.Password)
	if err != nil {
		fail(c, "register_hash_failed", err)
		return
	}

	user := models.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(form.Name),
		Email:        email,
		PasswordHash: hashedPassword,
		Avatar:       models.DefaultAvatar,
		Provider:     models.ProviderPassword,
	}

	if file, err := c.FormFile("avatar"); err == nil {
		path, err := h.saveAvatar(c, user.ID, file)
		if err != nil {
			fail(c, "register_save_file_failed", err)
			return
		}
		user.Avatar = path
	}

	if err := h.Users.CreateUser(c.Request.Context(), &user); err != nil {
		fail(c, "register_db_create_failed", err)
		return
	}

	token, err := h.Tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		fail(c, "register_token_generation_failed", err)
		return
	}

	utils.Logger.Info("register_success",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
	)
	c.JSON(http.StatusCreated, gin.H{
		"message": "registration successful",
		"user":    user,
		"token":   token,
	})
}

// saveAvatar stores an uploaded image under the uploads dir and returns the
// public path it is served from.
func (h *Handler) saveAvatar(c *gin.Context, userID string, file *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(h.UploadsDir, os.ModePerm); err != nil {
		return "", err
	}

	filename := fmt.Sprintf("%s_%s%s", userID, uuid.NewString()[:8], strings.ToLower(filepath.Ext(file.Filename)))
	if err := c.SaveUploadedFile(file, filepath.Join(h.UploadsDir, filename)); err != nil {
		return "", err
	}

	utils.Logger.Info("avatar_saved",
		zap.String("user_id", userID),
		zap.String("filename", filename),
	)
	return "/uploads/" + filename, nil
}
