package services

import (
	"context"
	"strings"
	"time"

	"github.com/Bekzhanizb/habitly/events"
	"github.com/Bekzhanizb/habitly/feed"
	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/utils"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type HabitInput struct {
	Title       string
	Description string
	Time        string
	Icon        string
	Color       string
	Frequency   models.Frequency
	CustomDays  []int
}

// HabitPatch carries the fields to change; nil fields are left untouched.
// Streak fields are owned by the completion engine and cannot be patched.
type HabitPatch struct {
	Title       *string
	Description *string
	Time        *string
	Icon        *string
	Color       *string
	Frequency   *models.Frequency
	CustomDays  *[]int
}

func (p HabitPatch) fields() map[string]interface{} {
	fields := map[string]interface{}{}
	if p.Title != nil {
		fields["title"] = *p.Title
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Time != nil {
		fields["time"] = *p.Time
	}
	if p.Icon != nil {
		fields["icon"] = *p.Icon
	}
	if p.Color != nil {
		fields["color"] = *p.Color
	}
	if p.Frequency != nil {
		fields["frequency"] = *p.Frequency
	}
	if p.CustomDays != nil {
		fields["custom_days"] = datatypes.JSONSlice[int](*p.CustomDays)
	}
	return fields
}

// ValidateHabitInput trims the text fields in place and reports whether the
// input can be saved. Title, description and time are required, and a
// custom schedule needs at least one weekday.
func ValidateHabitInput(in *HabitInput) bool {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Time = strings.TrimSpace(in.Time)

	if in.Title == "" || in.Description == "" || in.Time == "" {
		return false
	}
	if in.Frequency == models.FrequencyCustom && len(in.CustomDays) == 0 {
		return false
	}
	return true
}

// ValidateHabitPatch trims the text fields being changed and rejects blank
// ones. The schedule is merged as given, without checking frequency against
// the stored custom days.
func ValidateHabitPatch(p *HabitPatch) bool {
	for _, field := range []**string{&p.Title, &p.Description, &p.Time} {
		if *field == nil {
			continue
		}
		trimmed := strings.TrimSpace(**field)
		if trimmed == "" {
			return false
		}
		*field = &trimmed
	}
	return true
}

type HabitRegistry struct {
	store     HabitStore
	hub       Subscriber
	notifier  feed.Notifier
	publisher events.Publisher
	now       func() time.Time
}

func NewHabitRegistry(store HabitStore, hub Subscriber, notifier feed.Notifier, publisher events.Publisher) *HabitRegistry {
	return &HabitRegistry{
		store:     store,
		hub:       hub,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create stores a new habit with a zero streak. Callers validate first.
func (r *HabitRegistry) Create(ctx context.Context, ownerID string, in HabitInput) (*models.Habit, error) {
	days := []int{}
	if in.Frequency == models.FrequencyCustom {
		days = append(days, in.CustomDays...)
	}

	habit := &models.Habit{
		UserID:      ownerID,
		Title:       in.Title,
		Description: in.Description,
		Time:        in.Time,
		Icon:        in.Icon,
		Color:       in.Color,
		Frequency:   in.Frequency,
		CustomDays:  datatypes.JSONSlice[int](days),
		CreatedAt:   r.now().UTC(),
	}
	if err := r.store.InsertHabit(ctx, habit); err != nil {
		utils.Logger.Error("habit_create_failed",
			zap.String("user_id", ownerID),
			zap.Error(err),
		)
		return nil, err
	}

	r.changed(ctx, events.HabitCreated, habit)
	utils.Logger.Info("habit_created",
		zap.String("user_id", ownerID),
		zap.String("habit_id", habit.ID),
		zap.String("frequency", string(habit.Frequency)),
	)
	return habit, nil
}

func (r *HabitRegistry) Get(ctx context.Context, ownerID, habitID string) (*models.Habit, error) {
	return r.store.GetHabit(ctx, ownerID, habitID)
}

// Update merges patch into the habit. An empty patch returns the habit as is.
func (r *HabitRegistry) Update(ctx context.Context, ownerID, habitID string, patch HabitPatch) (*models.Habit, error) {
	fields := patch.fields()
	if len(fields) == 0 {
		return r.store.GetHabit(ctx, ownerID, habitID)
	}

	habit, err := r.store.UpdateHabit(ctx, ownerID, habitID, fields)
	if err != nil {
		return nil, err
	}

	r.changed(ctx, events.HabitUpdated, habit)
	utils.Logger.Info("habit_updated",
		zap.String("user_id", ownerID),
		zap.String("habit_id", habitID),
		zap.Int("fields", len(fields)),
	)
	return habit, nil
}

// SoftDelete hides the habit from listings. Its completion records stay.
func (r *HabitRegistry) SoftDelete(ctx context.Context, ownerID, habitID string) error {
	habit, err := r.store.UpdateHabit(ctx, ownerID, habitID, map[string]interface{}{"deleted": true})
	if err != nil {
		return err
	}

	r.changed(ctx, events.HabitDeleted, habit)
	utils.Logger.Info("habit_deleted",
		zap.String("user_id", ownerID),
		zap.String("habit_id", habitID),
	)
	return nil
}

// List returns the owner's active habits, newest first.
func (r *HabitRegistry) List(ctx context.Context, ownerID string) ([]models.Habit, error) {
	return r.store.ListHabits(ctx, ownerID)
}

// Subscribe streams the active habit list after every change.
func (r *HabitRegistry) Subscribe(ctx context.Context, ownerID string) <-chan []models.Habit {
	topic := feed.Topic{Collection: feed.Habits, OwnerID: ownerID}
	return watch(ctx, r.hub, topic, func(ctx context.Context) ([]models.Habit, error) {
		return r.List(ctx, ownerID)
	})
}

func (r *HabitRegistry) changed(ctx context.Context, key string, habit *models.Habit) {
	r.notifier.Notify(ctx, feed.Topic{Collection: feed.Habits, OwnerID: habit.UserID})
	publish(ctx, r.publisher, key, events.HabitEvent{
		UserID:     habit.UserID,
		HabitID:    habit.ID,
		OccurredAt: r.now().UTC(),
	})
}
