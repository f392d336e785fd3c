package db

import (
	"context"

	"github.com/Bekzhanizb/habitly/models"
)

// ListCompletions returns the owner's completion records, optionally
// limited to one date.
func (g *Gateway) ListCompletions(ctx context.Context, ownerID, date string) ([]models.HabitCompletion, error) {
	completions := []models.HabitCompletion{}
	query := g.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if date != "" {
		query = query.Where("date = ?", date)
	}
	err := query.Order("date DESC").Find(&completions).Error
	return completions, err
}

func (g *Gateway) CompletionExists(ctx context.Context, ownerID, habitID, date string) (bool, error) {
	var count int64
	err := g.db.WithContext(ctx).
		Model(&models.HabitCompletion{}).
		Where("user_id = ? AND habit_id = ? AND date = ?", ownerID, habitID, date).
		Count(&count).Error
	return count > 0, err
}
