// Package handlers holds the gin handlers of the HTTP API.
package handlers

import (
	"context"
	"errors"
	"net/http"

	"firebase.google.com/go/v4/auth"
	"github.com/Bekzhanizb/habitly/db"
	"github.com/Bekzhanizb/habitly/middleware"
	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/services"
	"github.com/Bekzhanizb/habitly/utils"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
}

// TokenVerifier checks Firebase ID tokens; *auth.Client implements it.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

type Handler struct {
	Users       UserStore
	Habits      *services.HabitRegistry
	Completions *services.CompletionEngine
	Reflections *services.ReflectionLog
	Days        *services.DayService
	Tokens      *utils.TokenIssuer
	// Firebase is nil when no credentials are configured.
	Firebase   TokenVerifier
	UploadsDir string
	// Shutdown ends open streams when closed. Nil keeps them open until
	// the client leaves.
	Shutdown <-chan struct{}
}

func currentUser(c *gin.Context) *models.User {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return user
}

// fail logs err, counts it and answers with the status matching the error.
func fail(c *gin.Context, event string, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	errType := "internal"

	switch {
	case errors.Is(err, db.ErrNotFound):
		status, message, errType = http.StatusNotFound, "not found", "not_found"
	case errors.Is(err, db.ErrTransactionFailed):
		status, message, errType = http.StatusConflict, "transaction failed, try again", "transaction_failed"
	case errors.Is(err, db.ErrDuplicate):
		status, message, errType = http.StatusConflict, "already exists", "duplicate"
	}

	utils.ErrorCount.WithLabelValues(c.FullPath(), errType).Inc()
	if status >= http.StatusInternalServerError {
		utils.Logger.Error(event, zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		utils.Logger.Warn(event, zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": message})
}

func badRequest(c *gin.Context, event, message string, err error) {
	utils.ErrorCount.WithLabelValues(c.FullPath(), "validation").Inc()
	fields := []zap.Field{zap.String("path", c.FullPath())}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	utils.Logger.Warn(event, fields...)
	c.JSON(http.StatusBadRequest, gin.H{"error": message})
}
