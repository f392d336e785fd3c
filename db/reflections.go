package db

import (
	"context"
	"errors"

	"github.com/Bekzhanizb/habitly/models"
	"gorm.io/gorm"
)

func (g *Gateway) InsertReflection(ctx context.Context, r *models.Reflection) error {
	return g.db.WithContext(ctx).Create(r).Error
}

// ListReflections returns the owner's reflections, newest first, optionally
// limited to one date.
func (g *Gateway) ListReflections(ctx context.Context, ownerID, date string) ([]models.Reflection, error) {
	reflections := []models.Reflection{}
	query := g.db.WithContext(ctx).Where("user_id = ?", ownerID)
	if date != "" {
		query = query.Where("date = ?", date)
	}
	err := query.Order("created_at DESC").Find(&reflections).Error
	return reflections, err
}

// LatestReflection returns nil, nil when the date has no reflection.
func (g *Gateway) LatestReflection(ctx context.Context, ownerID, date string) (*models.Reflection, error) {
	var reflection models.Reflection
	err := g.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", ownerID, date).
		Order("created_at DESC").
		Take(&reflection).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reflection, nil
}
