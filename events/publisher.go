package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

// Routing keys on the events exchange.
const (
	HabitCreated       = "habit.created"
	HabitUpdated       = "habit.updated"
	HabitDeleted       = "habit.deleted"
	CompletionToggled  = "completion.toggled"
	ReflectionAppended = "reflection.appended"
)

type HabitEvent struct {
	UserID     string    `json:"user_id"`
	HabitID    string    `json:"habit_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

type CompletionToggledEvent struct {
	UserID            string    `json:"user_id"`
	HabitID           string    `json:"habit_id"`
	Date              string    `json:"date"`
	Completed         bool      `json:"completed"`
	CurrentStreak     int       `json:"current_streak"`
	LastCompletedDate string    `json:"last_completed_date"`
	OccurredAt        time.Time `json:"occurred_at"`
}

type ReflectionAppendedEvent struct {
	UserID        string    `json:"user_id"`
	ReflectionID  string    `json:"reflection_id"`
	Date          string    `json:"date"`
	HasVoiceNote  bool      `json:"has_voice_note"`
	HasAIResponse bool      `json:"has_ai_response"`
	OccurredAt    time.Time `json:"occurred_at"`
}

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close()
}

// Noop drops every event. Used when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
func (Noop) Close()                                     {}

type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &AMQPPublisher{conn: conn, channel: ch, exchange: exchange}, nil
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	msg, err := NewMessage(payload)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
}

// IsConnected reports whether the broker connection is still open.
func (p *AMQPPublisher) IsConnected() bool {
	return p.conn != nil && !p.conn.IsClosed()
}

func (p *AMQPPublisher) Close() {
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}

// NewMessage encodes payload as a persistent JSON message.
func NewMessage(payload any) (amqp091.Publishing, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return amqp091.Publishing{}, fmt.Errorf("failed to encode event: %w", err)
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
	}, nil
}
