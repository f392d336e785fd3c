package handlers

import (
	"net/http"

	"github.com/Bekzhanizb/habitly/middleware"
	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/services"
	"github.com/Bekzhanizb/habitly/utils"
	"github.com/gin-gonic/gin"
)

type createHabitRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Time        string           `json:"time"`
	Icon        string           `json:"icon"`
	Color       string           `json:"color"`
	Frequency   models.Frequency `json:"frequency" binding:"required,oneof=daily weekdays custom"`
	CustomDays  []int            `json:"custom_days" binding:"omitempty,dive,min=0,max=6"`
}

type updateHabitRequest struct {
	Title       *string           `json:"title"`
	Description *string           `json:"description"`
	Time        *string           `json:"time"`
	Icon        *string           `json:"icon"`
	Color       *string           `json:"color"`
	Frequency   *models.Frequency `json:"frequency" validate:"omitempty,oneof=daily weekdays custom"`
	CustomDays  *[]int            `json:"custom_days" validate:"omitempty,dive,min=0,max=6"`
}

type toggleRequest struct {
	Date string `json:"date" binding:"required,calendar_date"`
}

func (h *Handler) ListHabits(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	habits, err := h.Habits.List(c.Request.Context(), user.ID)
	if err != nil {
		fail(c, "list_habits_failed", err)
		return
	}
	c.JSON(http.StatusOK, habits)
}

// CreateHabit drops invalid input with 400 before reaching the registry.
func (h *Handler) CreateHabit(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req createHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "create_habit_bind_failed", "invalid habit", err)
		return
	}

	in := services.HabitInput{
		Title:       req.Title,
		Description: req.Description,
		Time:        req.Time,
		Icon:        req.Icon,
		Color:       req.Color,
		Frequency:   req.Frequency,
		CustomDays:  req.CustomDays,
	}
	if !services.ValidateHabitInput(&in) {
		badRequest(c, "create_habit_validation_failed", "title, description and time are required; custom schedules need at least one day", nil)
		return
	}

	habit, err := h.Habits.Create(c.Request.Context(), user.ID, in)
	if err != nil {
		fail(c, "create_habit_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "habit created", "habit": habit})
}

func (h *Handler) UpdateHabit(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req updateHabitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "update_habit_bind_failed", "invalid input", err)
		return
	}
	if err := middleware.ValidateStruct(req); err != nil {
		badRequest(c, "update_habit_validation_failed", "invalid input", err)
		return
	}

	patch := services.HabitPatch{
		Title:       req.Title,
		Description: req.Description,
		Time:        req.Time,
		Icon:        req.Icon,
		Color:       req.Color,
		Frequency:   req.Frequency,
		CustomDays:  req.CustomDays,
	}
	if !services.ValidateHabitPatch(&patch) {
		badRequest(c, "update_habit_validation_failed", "title, description and time cannot be blank", nil)
		return
	}

	habit, err := h.Habits.Update(c.Request.Context(), user.ID, c.Param("id"), patch)
	if err != nil {
		fail(c, "update_habit_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "habit updated", "habit": habit})
}

func (h *Handler) DeleteHabit(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	if err := h.Habits.SoftDelete(c.Request.Context(), user.ID, c.Param("id")); err != nil {
		fail(c, "delete_habit_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "habit deleted"})
}

func (h *Handler) ToggleCompletion(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	var req toggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "toggle_bind_failed", "date must be YYYY-MM-DD", err)
		return
	}

	result, err := h.Completions.ToggleCompletion(c.Request.Context(), user.ID, c.Param("id"), req.Date)
	if err != nil {
		fail(c, "toggle_failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) GetCompletion(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	date := c.Param("date")
	if !utils.IsValidDate(date) {
		badRequest(c, "get_completion_bad_date", "date must be YYYY-MM-DD", nil)
		return
	}

	done, err := h.Completions.IsCompleted(c.Request.Context(), user.ID, c.Param("id"), date)
	if err != nil {
		fail(c, "get_completion_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"habit_id": c.Param("id"), "date": date, "completed": done})
}

// ListCompletions returns completion records, optionally for ?date= only.
func (h *Handler) ListCompletions(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	date := c.Query("date")
	if date != "" && !utils.IsValidDate(date) {
		badRequest(c, "list_completions_bad_date", "date must be YYYY-MM-DD", nil)
		return
	}

	records, err := h.Completions.List(c.Request.Context(), user.ID, date)
	if err != nil {
		fail(c, "list_completions_failed", err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (h *Handler) GetDay(c *gin.Context) {
	user := currentUser(c)
	if user == nil {
		return
	}

	date := c.Param("date")
	if !utils.IsValidDate(date) {
		badRequest(c, "get_day_bad_date", "date must be YYYY-MM-DD", nil)
		return
	}

	view, err := h.Days.View(c.Request.Context(), user.ID, date)
	if err != nil {
		fail(c, "get_day_failed", err)
		return
	}
	c.JSON(http.StatusOK, view)
}
