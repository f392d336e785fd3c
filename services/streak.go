package services

import (
	"time"

	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/utils"
)

// markDone applies a new completion on date to the streak counter. The
// streak only continues when the previous completion was the day before.
func markDone(h *models.Habit, date string) {
	if yesterday := utils.PreviousDay(date); yesterday != "" && h.LastCompletedDate == yesterday {
		h.CurrentStreak++
	} else {
		h.CurrentStreak = 1
	}
	h.LastCompletedDate = date
}

// unmark reverts a completion on date. Only the latest completion moves the
// counter; earlier dates leave it alone because the history is not rescanned.
func unmark(h *models.Habit, date string) {
	if h.LastCompletedDate != date {
		return
	}
	h.CurrentStreak = max(0, h.CurrentStreak-1)
	h.LastCompletedDate = ""
}

// VisibleOn reports whether the habit is scheduled on date.
func VisibleOn(h *models.Habit, date string) bool {
	switch h.Frequency {
	case models.FrequencyDaily:
		return true
	case models.FrequencyWeekdays:
		wd, ok := utils.Weekday(date)
		return ok && wd >= time.Monday && wd <= time.Friday
	case models.FrequencyCustom:
		wd, ok := utils.Weekday(date)
		if !ok {
			return false
		}
		for _, day := range h.CustomDays {
			if day == int(wd) {
				return true
			}
		}
		return false
	default:
		return true
	}
}
