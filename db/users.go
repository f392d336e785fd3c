package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/Bekzhanizb/habitly/models"
	"gorm.io/gorm"
)

func (g *Gateway) CreateUser(ctx context.Context, user *models.User) error {
	if err := g.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("user %s: %w", user.Email, ErrDuplicate)
		}
		return err
	}
	return nil
}

func (g *Gateway) SaveUser(ctx context.Context, user *models.User) error {
	return g.db.WithContext(ctx).Save(user).Error
}

func (g *Gateway) GetUser(ctx context.Context, id string) (*models.User, error) {
	return g.findUser(ctx, "id = ?", id)
}

func (g *Gateway) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return g.findUser(ctx, "email = ?", email)
}

func (g *Gateway) GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error) {
	return g.findUser(ctx, "firebase_uid = ?", uid)
}

func (g *Gateway) findUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	err := g.db.WithContext(ctx).Where(query, arg).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user: %w", ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
