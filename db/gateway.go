package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Bekzhanizb/habitly/config"
	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Tx is the set of reads and conditional writes available inside RunAtomic.
type Tx interface {
	GetHabit(id string) (*models.Habit, error)
	// FindCompletion returns nil, nil when no record exists.
	FindCompletion(habitID, date string) (*models.HabitCompletion, error)
	InsertCompletion(c *models.HabitCompletion) error
	DeleteCompletion(c *models.HabitCompletion) error
	// SaveStreak writes the streak fields if the habit version is unchanged
	// since it was read, and bumps h.Version.
	SaveStreak(h *models.Habit) error
}

type Gateway struct {
	db          *gorm.DB
	maxAttempts int
	backoff     time.Duration
}

func NewGateway(conn *gorm.DB, cfg config.TransactionConfig) *Gateway {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Gateway{db: conn, maxAttempts: attempts, backoff: cfg.Backoff}
}

// Ping checks the underlying connection pool.
func (g *Gateway) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// RunAtomic runs body in a transaction, committing all of its writes or none.
// Bodies that fail with ErrConflict are retried from the start; once the
// attempts are used up the error wraps ErrTransactionFailed.
func (g *Gateway) RunAtomic(ctx context.Context, body func(tx Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return body(&gormTx{tx: tx})
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrConflict) {
			return err
		}

		lastErr = err
		if attempt < g.maxAttempts {
			utils.TxRetries.Inc()
			utils.Logger.Warn("transaction_conflict_retry",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(g.backoff * time.Duration(attempt)):
			}
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrTransactionFailed, g.maxAttempts, lastErr)
}

type gormTx struct {
	tx *gorm.DB
}

func (t *gormTx) GetHabit(id string) (*models.Habit, error) {
	var habit models.Habit
	if err := t.tx.Where("id = ?", id).Take(&habit).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("habit %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return &habit, nil
}

func (t *gormTx) FindCompletion(habitID, date string) (*models.HabitCompletion, error) {
	var completion models.HabitCompletion
	err := t.tx.Where("habit_id = ? AND date = ?", habitID, date).Take(&completion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &completion, nil
}

func (t *gormTx) InsertCompletion(c *models.HabitCompletion) error {
	if err := t.tx.Create(c).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("completion %s/%s: %w", c.HabitID, c.Date, ErrConflict)
		}
		return err
	}
	return nil
}

func (t *gormTx) DeleteCompletion(c *models.HabitCompletion) error {
	res := t.tx.Where("id = ?", c.ID).Delete(&models.HabitCompletion{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("completion %s already removed: %w", c.ID, ErrConflict)
	}
	return nil
}

func (t *gormTx) SaveStreak(h *models.Habit) error {
	res := t.tx.Model(&models.Habit{}).
		Where("id = ? AND version = ?", h.ID, h.Version).
		Updates(map[string]interface{}{
			"current_streak":      h.CurrentStreak,
			"last_completed_date": h.LastCompletedDate,
			"version":             h.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("habit %s version %d: %w", h.ID, h.Version, ErrConflict)
	}
	h.Version++
	return nil
}
