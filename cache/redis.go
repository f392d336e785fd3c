package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Bekzhanizb/habitly/config"
	"github.com/Bekzhanizb/habitly/feed"
	"github.com/Bekzhanizb/habitly/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrMiss = errors.New("cache miss")

// Connect opens a Redis client and checks it with PING.
func Connect(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		utils.Logger.Error("redis_connection_failed",
			zap.Error(err),
			zap.String("addr", cfg.Addr),
		)
		_ = client.Close()
		return nil, err
	}

	utils.Logger.Info("redis_connected", zap.String("addr", cfg.Addr))
	return client, nil
}

// Cache stores JSON values in Redis. A nil *Cache is a valid, always-missing
// cache so callers can run without Redis.
type Cache struct {
	client *redis.Client
}

func New(client *redis.Client) *Cache {
	return &Cache{client: client}
}

// UserPrefix is the key prefix for cached responses belonging to userID.
func UserPrefix(userID string) string {
	return fmt.Sprintf("cache:%s:", userID)
}

func (c *Cache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache marshal failed: %w", err)
	}
	return c.client.Set(ctx, key, data, expiration).Err()
}

// Get decodes the value stored at key into dest. Missing keys return ErrMiss.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) error {
	if c == nil {
		return ErrMiss
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("cache get failed: %w", err)
	}

	if err := json.Unmarshal(val, dest); err != nil {
		return fmt.Errorf("cache unmarshal failed: %w", err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

// DeletePattern removes every key matching a glob pattern such as cache:42:*.
func (c *Cache) DeletePattern(ctx context.Context, pattern string) error {
	if c == nil {
		return nil
	}

	// collect first: deleting between SCAN pages can skip keys
	var (
		cursor  uint64
		matched []string
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("scan failed: %w", err)
		}
		matched = append(matched, keys...)

		cursor = next
		if cursor == 0 {
			break
		}
	}

	for start := 0; start < len(matched); start += 100 {
		end := min(start+100, len(matched))
		if err := c.client.Del(ctx, matched[start:end]...).Err(); err != nil {
			return fmt.Errorf("delete keys failed: %w", err)
		}
	}
	return nil
}

// IncrementCounter bumps key and starts its TTL on the first increment.
func (c *Cache) IncrementCounter(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	if c == nil {
		return 0, nil
	}
	val, err := c.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}

	if val == 1 {
		if err := c.client.Expire(ctx, key, expiration).Err(); err != nil {
			return val, err
		}
	}
	return val, nil
}

// InvalidateUser drops every cached response for userID.
func (c *Cache) InvalidateUser(ctx context.Context, userID string) error {
	return c.DeletePattern(ctx, UserPrefix(userID)+"*")
}

// Invalidating wraps next so that every change notification also clears the
// owner's cached responses, including writes made by background workers.
func (c *Cache) Invalidating(next feed.Notifier) feed.Notifier {
	if c == nil {
		return next
	}
	return &invalidatingNotifier{cache: c, next: next}
}

type invalidatingNotifier struct {
	cache *Cache
	next  feed.Notifier
}

func (n *invalidatingNotifier) Notify(ctx context.Context, topic feed.Topic) {
	if err := n.cache.InvalidateUser(context.WithoutCancel(ctx), topic.OwnerID); err != nil {
		utils.Logger.Warn("cache_invalidate_failed",
			zap.String("user_id", topic.OwnerID),
			zap.Error(err),
		)
	}
	n.next.Notify(ctx, topic)
}
