package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Bekzhanizb/habitly/db"
	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type firebaseLoginRequest struct {
	IDToken string `json:"id_token" binding:"required"`
}

// providers maps Firebase sign-in providers to account providers.
var providers = map[string]string{
	"google.com":    models.ProviderGoogle,
	"microsoft.com": models.ProviderMicrosoft,
}

// FirebaseLogin exchanges a Firebase ID token for a session token, creating
// the account on first sign-in.
func (h *Handler) FirebaseLogin(c *gin.Context) {
	if h.Firebase == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "firebase sign-in is not configured"})
		return
	}

	var req firebaseLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "firebase_login_validation_failed", "id_token is required", err)
		return
	}

	ctx := c.Request.Context()
	token, err := h.Firebase.VerifyIDToken(ctx, req.IDToken)
	if err != nil {
		utils.ErrorCount.WithLabelValues(c.FullPath(), "unauthorized").Inc()
		utils.Logger.Warn("firebase_token_rejected", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid id token"})
		return
	}

	user, err := h.Users.GetUserByFirebaseUID(ctx, token.UID)
	switch {
	case errors.Is(err, db.ErrNotFound):
		user = firebaseUser(token.UID, token.Claims, token.Firebase.SignInProvider)
		if err := h.Users.CreateUser(ctx, user); err != nil {
			fail(c, "firebase_user_create_failed", err)
			return
		}
		utils.Logger.Info("firebase_user_created",
			zap.String("user_id", user.ID),
			zap.String("provider", user.Provider),
		)
	case err != nil:
		fail(c, "firebase_user_lookup_failed", err)
		return
	}

	session, err := h.Tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		fail(c, "firebase_token_generation_failed", err)
		return
	}

	utils.Logger.Info("firebase_login_success", zap.String("user_id", user.ID))
	c.JSON(http.StatusOK, gin.H{"user": user, "token": session})
}

func firebaseUser(uid string, claims map[string]interface{}, signInProvider string) *models.User {
	email, _ := claims["email"].(string)
	name, _ := claims["name"].(string)
	picture, _ := claims["picture"].(string)

	if email == "" {
		email = uid + "@users.firebase"
	}
	if name == "" {
		name = strings.Split(email, "@")[0]
	}
	if picture == "" {
		picture = models.DefaultAvatar
	}
	provider, ok := providers[signInProvider]
	if !ok {
		provider = models.ProviderFirebase
	}

	return &models.User{
		Name:        name,
		Email:       strings.ToLower(email),
		Avatar:      picture,
		Provider:    provider,
		FirebaseUID: &uid,
	}
}

func (h *Handler) GetProfile(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}
	c.JSON(http.StatusOK, user)
}

// UpdateProfile changes the display name and, if a file is sent, the avatar.
func (h *Handler) UpdateProfile(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	if name := strings.TrimSpace(c.PostForm("name")); name != "" {
		user.Name = name
	}

	if file, err := c.FormFile("avatar"); err == nil {
		path, err := h.saveAvatar(c, user.ID, file)
		if err != nil {
			fail(c, "profile_save_file_failed", err)
			return
		}
		user.Avatar = path
	}

	if err := h.Users.SaveUser(c.Request.Context(), user); err != nil {
		fail(c, "profile_update_failed", err)
		return
	}

	utils.Logger.Info("profile_updated", zap.String("user_id", user.ID))
	c.JSON(http.StatusOK, gin.H{"message": "profile updated", "user": user})
}
