package services

import (
	"context"

	"github.com/Bekzhanizb/habitly/db"
	"github.com/Bekzhanizb/habitly/events"
	"github.com/Bekzhanizb/habitly/feed"
	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/utils"
	"go.uber.org/zap"
)

// AtomicRunner runs a read-then-write body all-or-nothing. Implementations
// own conflict detection and retries.
type AtomicRunner interface {
	RunAtomic(ctx context.Context, body func(tx db.Tx) error) error
}

type CompletionStore interface {
	AtomicRunner
	ListCompletions(ctx context.Context, ownerID, date string) ([]models.HabitCompletion, error)
	CompletionExists(ctx context.Context, ownerID, habitID, date string) (bool, error)
}

type HabitStore interface {
	InsertHabit(ctx context.Context, habit *models.Habit) error
	GetHabit(ctx context.Context, ownerID, id string) (*models.Habit, error)
	UpdateHabit(ctx context.Context, ownerID, id string, fields map[string]interface{}) (*models.Habit, error)
	ListHabits(ctx context.Context, ownerID string) ([]models.Habit, error)
}

type ReflectionStore interface {
	InsertReflection(ctx context.Context, r *models.Reflection) error
	ListReflections(ctx context.Context, ownerID, date string) ([]models.Reflection, error)
	LatestReflection(ctx context.Context, ownerID, date string) (*models.Reflection, error)
}

// Subscriber hands out change subscriptions; *feed.Hub implements it.
type Subscriber interface {
	Subscribe(ctx context.Context, topic feed.Topic) *feed.Subscription
}

// watch streams a fresh snapshot from load, first immediately and then after
// every change to topic, until ctx ends.
func watch[T any](ctx context.Context, sub Subscriber, topic feed.Topic, load func(context.Context) (T, error)) <-chan T {
	out := make(chan T, 1)
	changes := sub.Subscribe(ctx, topic)

	go func() {
		defer close(out)
		defer changes.Close()

		for {
			snapshot, err := load(ctx)
			switch {
			case err != nil && ctx.Err() != nil:
				return
			case err != nil:
				utils.Logger.Warn("snapshot_load_failed",
					zap.String("collection", string(topic.Collection)),
					zap.String("user_id", topic.OwnerID),
					zap.Error(err),
				)
			default:
				select {
				case out <- snapshot:
				case <-ctx.Done():
					return
				}
			}

			if _, ok := <-changes.C; !ok {
				return
			}
		}
	}()

	return out
}

func publish(ctx context.Context, p events.Publisher, key string, payload any) {
	if err := p.Publish(ctx, key, payload); err != nil {
		utils.Logger.Warn("event_publish_failed",
			zap.String("routing_key", key),
			zap.Error(err),
		)
	}
}
