package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bekzhanizb/habitly/models"
	"gorm.io/gorm"
)

func (g *Gateway) InsertHabit(ctx context.Context, habit *models.Habit) error {
	return g.db.WithContext(ctx).Create(habit).Error
}

// GetHabit returns an active habit owned by ownerID.
func (g *Gateway) GetHabit(ctx context.Context, ownerID, id string) (*models.Habit, error) {
	var habit models.Habit
	err := g.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND deleted = ?", id, ownerID, false).
		Take(&habit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &habit, nil
}

// UpdateHabit merges fields into an active habit and returns the result.
// The version is bumped so that an in-flight toggle re-reads the habit.
func (g *Gateway) UpdateHabit(ctx context.Context, ownerID, id string, fields map[string]interface{}) (*models.Habit, error) {
	fields["version"] = gorm.Expr("version + 1")
	res := g.db.WithContext(ctx).
		Model(&models.Habit{}).
		Where("id = ? AND user_id = ? AND deleted = ?", id, ownerID, false).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("habit %s: %w", id, ErrNotFound)
	}

	var habit models.Habit
	if err := g.db.WithContext(ctx).Where("id = ?", id).Take(&habit).Error; err != nil {
		return nil, err
	}
	return &habit, nil
}

// ListHabits returns the owner's active habits, newest first.
func (g *Gateway) ListHabits(ctx context.Context, ownerID string) ([]models.Habit, error) {
	habits := []models.Habit{}
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND deleted = ?", ownerID, false).
		Order("created_at DESC").
		Find(&habits).Error
	return habits, err
}
