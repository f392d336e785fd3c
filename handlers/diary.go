package handlers

import (
	"net/http"
	"strings"

	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/services"
	"github.com/Bekzhanizb/habitly/utils"
	"github.com/gin-gonic/gin"
)

type reflectionRequest struct {
	Date      string            `json:"date" binding:"required,calendar_date"`
	Text      string            `json:"text"`
	VoiceNote *models.VoiceNote `json:"voice_note"`
}

// CreateReflection appends a journal entry. Voice entries are acknowledged
// at once and answered by the assistant in a later record.
func (h *Handler) CreateReflection(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req reflectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "create_reflection_bind_failed", "invalid reflection", err)
		return
	}
	if strings.TrimSpace(req.Text) == "" && req.VoiceNote == nil {
		badRequest(c, "create_reflection_empty", "text or voice_note is required", nil)
		return
	}

	reflection, err := h.Reflections.Append(c.Request.Context(), user.ID, services.ReflectionInput{
		Date:      req.Date,
		Text:      req.Text,
		VoiceNote: req.VoiceNote,
	})
	if err != nil {
		fail(c, "create_reflection_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "reflection saved", "reflection": reflection})
}

// ListReflections returns the user's reflections newest first, optionally
// for ?date= only.
func (h *Handler) ListReflections(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	date := c.Query("date")
	if date != "" && !utils.IsValidDate(date) {
		badRequest(c, "list_reflections_bad_date", "date must be YYYY-MM-DD", nil)
		return
	}

	reflections, err := h.Reflections.List(c.Request.Context(), user.ID, date)
	if err != nil {
		fail(c, "list_reflections_failed", err)
		return
	}
	c.JSON(http.StatusOK, reflections)
}
