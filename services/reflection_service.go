package services

import (
	"context"
	"strings"
	"time"

	"github.com/Bekzhanizb/habitly/config"
	"github.com/Bekzhanizb/habitly/events"
	"github.com/Bekzhanizb/habitly/feed"
	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/utils"
	"go.uber.org/zap"
)

type ReflectionInput struct {
	Date       string
	Text       string
	VoiceNote  *models.VoiceNote
	AIResponse string
}

// ReflectionLog is an append-only journal. Records are never edited; the
// assistant reply to a voice note arrives as a second record.
type ReflectionLog struct {
	store     ReflectionStore
	hub       Subscriber
	notifier  feed.Notifier
	publisher events.Publisher
	responder *AssistantResponder
	now       func() time.Time
}

// NewReflectionLog builds the log and starts its assistant workers.
func NewReflectionLog(store ReflectionStore, hub Subscriber, notifier feed.Notifier, publisher events.Publisher, cfg config.ReflectionConfig) *ReflectionLog {
	l := &ReflectionLog{
		store:     store,
		hub:       hub,
		notifier:  notifier,
		publisher: publisher,
		now:       time.Now,
	}
	l.responder = NewAssistantResponder(cfg, l.insert)
	l.responder.Start()
	return l
}

// Append records a reflection. Voice reflections without a reply also get
// an assistant reply scheduled.
func (l *ReflectionLog) Append(ctx context.Context, ownerID string, in ReflectionInput) (*models.Reflection, error) {
	in.Text = strings.TrimSpace(in.Text)

	reflection, err := l.insert(ctx, ownerID, in)
	if err != nil {
		return nil, err
	}

	if in.VoiceNote != nil && in.AIResponse == "" {
		l.responder.Enqueue(AssistantJob{
			OwnerID:    ownerID,
			Input:      in,
			EnqueuedAt: l.now(),
		})
	}
	return reflection, nil
}

func (l *ReflectionLog) insert(ctx context.Context, ownerID string, in ReflectionInput) (*models.Reflection, error) {
	reflection := &models.Reflection{
		UserID:     ownerID,
		Date:       in.Date,
		Text:       in.Text,
		AIResponse: in.AIResponse,
		CreatedAt:  l.now().UTC(),
	}
	reflection.SetVoiceNote(in.VoiceNote)

	if err := l.store.InsertReflection(ctx, reflection); err != nil {
		utils.Logger.Error("reflection_append_failed",
			zap.String("user_id", ownerID),
			zap.String("date", in.Date),
			zap.Error(err),
		)
		return nil, err
	}

	l.notifier.Notify(ctx, feed.Topic{Collection: feed.Reflections, OwnerID: ownerID})
	publish(ctx, l.publisher, events.ReflectionAppended, events.ReflectionAppendedEvent{
		UserID:        ownerID,
		ReflectionID:  reflection.ID,
		Date:          reflection.Date,
		HasVoiceNote:  in.VoiceNote != nil,
		HasAIResponse: in.AIResponse != "",
		OccurredAt:    reflection.CreatedAt,
	})
	utils.Logger.Info("reflection_appended",
		zap.String("user_id", ownerID),
		zap.String("reflection_id", reflection.ID),
		zap.String("date", reflection.Date),
	)
	return reflection, nil
}

// Latest returns the newest reflection for date, or nil.
func (l *ReflectionLog) Latest(ctx context.Context, ownerID, date string) (*models.Reflection, error) {
	return l.store.LatestReflection(ctx, ownerID, date)
}

// List returns the owner's reflections newest first, limited to date when set.
func (l *ReflectionLog) List(ctx context.Context, ownerID, date string) ([]models.Reflection, error) {
	return l.store.ListReflections(ctx, ownerID, date)
}

func (l *ReflectionLog) Subscribe(ctx context.Context, ownerID string) <-chan []models.Reflection {
	topic := feed.Topic{Collection: feed.Reflections, OwnerID: ownerID}
	return watch(ctx, l.hub, topic, func(ctx context.Context) ([]models.Reflection, error) {
		return l.List(ctx, ownerID, "")
	})
}

// Close waits for scheduled assistant replies to be written.
func (l *ReflectionLog) Close() {
	l.responder.Close()
}
