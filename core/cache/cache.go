package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"presence-sync/core/config"
	"presence-sync/core/logger"

	"github.com/redis/go-redis/v9"
)

// Cache stores JSON documents under "<topic>:<key>" with optional key expiry.
// The presence away-record relies on the expiry to self-clear at its end time.
type Cache interface {
	JSONGet(ctx context.Context, topic, key string, dest any) (bool, error)
	JSONSet(ctx context.Context, topic, key string, value any) (bool, error)
	JSONDel(ctx context.Context, topic, key string) error
	ExpireAt(ctx context.Context, topic, key string, at time.Time) (bool, error)
	Persist(ctx context.Context, topic, key string) error
	Client() *redis.Client
}

type redisCache struct {
	client *redis.Client
}

func InitCache(cfg config.RedisConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Cache:Init:PingError", "error", err)
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Cache:Init:Success", "addr", cfg.Addr)
	return &redisCache{client: client}, nil
}

func topicKey(topic, key string) string {
	return topic + ":" + key
}

func (c *redisCache) JSONGet(ctx context.Context, topic, key string, dest any) (bool, error) {
	data, err := c.client.Get(ctx, topicKey(topic, key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (c *redisCache) JSONSet(ctx context.Context, topic, key string, value any) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}
	if err := c.client.Set(ctx, topicKey(topic, key), data, 0).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (c *redisCache) JSONDel(ctx context.Context, topic, key string) error {
	return c.client.Del(ctx, topicKey(topic, key)).Err()
}

func (c *redisCache) ExpireAt(ctx context.Context, topic, key string, at time.Time) (bool, error) {
	return c.client.ExpireAt(ctx, topicKey(topic, key), at).Result()
}

func (c *redisCache) Persist(ctx context.Context, topic, key string) error {
	return c.client.Persist(ctx, topicKey(topic, key)).Err()
}

func (c *redisCache) Client() *redis.Client {
	return c.client
}
