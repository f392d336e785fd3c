package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Bekzhanizb/habitly/utils"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const DefaultChannel = "habitly:changes"

// RedisBridge relays notifications between service instances sharing a
// Redis server. Local subscribers are notified directly; remote ones via
// pub/sub.
type RedisBridge struct {
	client  *redis.Client
	hub     *Hub
	channel string
	origin  string
}

type bridgeMessage struct {
	Origin string `json:"origin"`
	Topic  Topic  `json:"topic"`
}

func NewRedisBridge(client *redis.Client, hub *Hub, channel string) *RedisBridge {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisBridge{
		client:  client,
		hub:     hub,
		channel: channel,
		origin:  uuid.NewString(),
	}
}

func (b *RedisBridge) Notify(ctx context.Context, topic Topic) {
	b.hub.Notify(ctx, topic)

	payload, err := json.Marshal(bridgeMessage{Origin: b.origin, Topic: topic})
	if err != nil {
		utils.Logger.Error("feed_bridge_marshal_failed", zap.Error(err))
		return
	}
	if err := b.client.Publish(ctx, b.channel, payload).Err(); err != nil {
		utils.Logger.Warn("feed_bridge_publish_failed",
			zap.String("channel", b.channel),
			zap.Error(err),
		)
	}
}

// Start subscribes to the channel and relays remote notifications into the
// hub until ctx ends. It returns once the subscription is confirmed.
func (b *RedisBridge) Start(ctx context.Context) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("feed bridge subscribe failed: %w", err)
	}

	go func() {
		defer pubsub.Close()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				b.relay(ctx, msg.Payload)
			}
		}
	}()

	utils.Logger.Info("feed_bridge_started", zap.String("channel", b.channel))
	return nil
}

func (b *RedisBridge) relay(ctx context.Context, payload string) {
	var msg bridgeMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		utils.Logger.Warn("feed_bridge_bad_message", zap.Error(err))
		return
	}
	if msg.Origin == b.origin {
		return
	}
	b.hub.Notify(ctx, msg.Topic)
}
