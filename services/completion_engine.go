package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Bekzhanizb/habitly/db"
	"github.com/Bekzhanizb/habitly/events"
	"github.com/Bekzhanizb/habitly/feed"
	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/utils"
	"go.uber.org/zap"
)

type ToggleResult struct {
	Habit     *models.Habit `json:"habit"`
	Completed bool          `json:"completed"`
}

// CompletionSnapshot is the set of completion records visible to one owner.
type CompletionSnapshot []models.HabitCompletion

func (s CompletionSnapshot) IsCompleted(habitID, date string) bool {
	for _, c := range s {
		if c.HabitID == habitID && c.Date == date {
			return true
		}
	}
	return false
}

// CompletionEngine toggles completion records and keeps the habit's streak
// fields consistent with them.
type CompletionEngine struct {
	store     CompletionStore
	hub       Subscriber
	notifier  feed.Notifier
	publisher events.Publisher
	now       func() time.Time
}

func NewCompletionEngine(store CompletionStore, hub Subscriber, notifier feed.Notifier, publisher events.Publisher) *CompletionEngine {
	return &CompletionEngine{
		store:     store,
		hub:       hub,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
}

// ToggleCompletion flips the completion state of habitID on date. The
// record change and the streak update commit together or not at all.
func (e *CompletionEngine) ToggleCompletion(ctx context.Context, ownerID, habitID, date string) (*ToggleResult, error) {
	var result ToggleResult

	err := e.store.RunAtomic(ctx, func(tx db.Tx) error {
		result = ToggleResult{}

		habit, err := tx.GetHabit(habitID)
		if err != nil {
			return err
		}
		if habit.UserID != ownerID || habit.Deleted {
			return fmt.Errorf("habit %s: %w", habitID, db.ErrNotFound)
		}

		existing, err := tx.FindCompletion(habitID, date)
		if err != nil {
			return err
		}

		if existing == nil {
			err = tx.InsertCompletion(&models.HabitCompletion{
				HabitID:     habitID,
				UserID:      ownerID,
				Date:        date,
				CompletedAt: e.now().UTC(),
			})
			if err != nil {
				return err
			}
			markDone(habit, date)
			result.Completed = true
		} else {
			if err := tx.DeleteCompletion(existing); err != nil {
				return err
			}
			unmark(habit, date)
		}

		if err := tx.SaveStreak(habit); err != nil {
			return err
		}
		result.Habit = habit
		return nil
	})
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, db.ErrNotFound):
			outcome = "not_found"
		case errors.Is(err, db.ErrTransactionFailed):
			outcome = "failed"
		}
		utils.ToggleCount.WithLabelValues(outcome).Inc()
		utils.Logger.Warn("toggle_failed",
			zap.String("user_id", ownerID),
			zap.String("habit_id", habitID),
			zap.String("date", date),
			zap.Error(err),
		)
		return nil, err
	}

	if result.Completed {
		utils.ToggleCount.WithLabelValues("marked").Inc()
	} else {
		utils.ToggleCount.WithLabelValues("unmarked").Inc()
	}

	e.notifier.Notify(ctx, feed.Topic{Collection: feed.Completions, OwnerID: ownerID})
	e.notifier.Notify(ctx, feed.Topic{Collection: feed.Habits, OwnerID: ownerID})
	publish(ctx, e.publisher, events.CompletionToggled, events.CompletionToggledEvent{
		UserID:            ownerID,
		HabitID:           habitID,
		Date:              date,
		Completed:         result.Completed,
		CurrentStreak:     result.Habit.CurrentStreak,
		LastCompletedDate: result.Habit.LastCompletedDate,
		OccurredAt:        e.now().UTC(),
	})

	utils.Logger.Info("completion_toggled",
		zap.String("user_id", ownerID),
		zap.String("habit_id", habitID),
		zap.String("date", date),
		zap.Bool("completed", result.Completed),
		zap.Int("streak", result.Habit.CurrentStreak),
	)

	return &result, nil
}

func (e *CompletionEngine) IsCompleted(ctx context.Context, ownerID, habitID, date string) (bool, error) {
	return e.store.CompletionExists(ctx, ownerID, habitID, date)
}

// List returns the owner's completions, restricted to date when it is set.
func (e *CompletionEngine) List(ctx context.Context, ownerID, date string) (CompletionSnapshot, error) {
	records, err := e.store.ListCompletions(ctx, ownerID, date)
	if err != nil {
		return nil, err
	}
	return CompletionSnapshot(records), nil
}

// Subscribe streams the owner's completion snapshot after every change.
func (e *CompletionEngine) Subscribe(ctx context.Context, ownerID string) <-chan CompletionSnapshot {
	topic := feed.Topic{Collection: feed.Completions, OwnerID: ownerID}
	return watch(ctx, e.hub, topic, func(ctx context.Context) (CompletionSnapshot, error) {
		return e.List(ctx, ownerID, "")
	})
}
