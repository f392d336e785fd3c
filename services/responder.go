package services

import (
	"context"
	"sync"
	"time"

	"github.com/Bekzhanizb/habitly/config"
	"github.com/Bekzhanizb/habitly/models"
	"github.com/Bekzhanizb/habitly/utils"
	"go.uber.org/zap"
)

type AssistantJob struct {
	OwnerID    string
	Input      ReflectionInput
	EnqueuedAt time.Time
}

type appendFunc func(ctx context.Context, ownerID string, in ReflectionInput) (*models.Reflection, error)

// AssistantResponder answers voice reflections with a canned reply after a
// fixed delay. A bounded pool of workers drains the queue; Close waits for
// every queued reply to be written.
type AssistantResponder struct {
	jobs    chan AssistantJob
	delay   time.Duration
	text    string
	workers int
	write   appendFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	once   sync.Once
}

func NewAssistantResponder(cfg config.ReflectionConfig, write appendFunc) *AssistantResponder {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	text := cfg.ResponseText
	if text == "" {
		text = config.DefaultResponseText
	}
	return &AssistantResponder{
		jobs:    make(chan AssistantJob, max(cfg.QueueSize, 1)),
		delay:   cfg.ResponseDelay,
		text:    text,
		workers: workers,
		write:   write,
	}
}

func (r *AssistantResponder) Start() {
	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}
	utils.Logger.Info("assistant_responder_started", zap.Int("workers", r.workers))
}

// Enqueue schedules a reply. It returns false when the responder is closed
// or the queue is full.
func (r *AssistantResponder) Enqueue(job AssistantJob) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return false
	}
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}

	select {
	case r.jobs <- job:
		return true
	default:
		utils.AssistantReplies.WithLabelValues("dropped").Inc()
		utils.Logger.Warn("assistant_queue_full",
			zap.String("user_id", job.OwnerID),
			zap.String("date", job.Input.Date),
		)
		return false
	}
}

// Close stops accepting jobs and blocks until the queued ones are written.
func (r *AssistantResponder) Close() {
	r.once.Do(func() {
		r.mu.Lock()
		r.closed = true
		close(r.jobs)
		r.mu.Unlock()

		r.wg.Wait()
		utils.Logger.Info("assistant_responder_stopped")
	})
}

func (r *AssistantResponder) worker(id int) {
	defer r.wg.Done()

	for job := range r.jobs {
		if wait := time.Until(job.EnqueuedAt.Add(r.delay)); wait > 0 {
			time.Sleep(wait)
		}

		in := job.Input
		in.AIResponse = r.text

		reply, err := r.write(context.Background(), job.OwnerID, in)
		if err != nil {
			utils.AssistantReplies.WithLabelValues("error").Inc()
			utils.Logger.Error("assistant_reply_failed",
				zap.Int("worker_id", id),
				zap.String("user_id", job.OwnerID),
				zap.Error(err),
			)
			continue
		}

		utils.AssistantReplies.WithLabelValues("sent").Inc()
		utils.Logger.Info("assistant_reply_sent",
			zap.Int("worker_id", id),
			zap.String("user_id", job.OwnerID),
			zap.String("reflection_id", reply.ID),
		)
	}
}
