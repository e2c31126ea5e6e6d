// Package cache implements the ephemeral key/value cache and pub/sub bus.
package cache

import (
	"context"
	"time"

	"aspen/config"
	"aspen/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// redisCache implements service.KVCache on a redis connection.
type redisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg *config.RedisConfig) (service.KVCache, error) {
	if cfg == nil || cfg.Addr == "" {
		return nil, errors.New("redis addr is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to ping redis")
	}

	return &redisCache{client: client}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "redis get failed")
	}

	return value, true, nil
}

func (c *redisCache) SetTTL(ctx context.Context, key, value string, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return errors.Wrap(err, "redis set failed")
	}

	return nil
}

func (c *redisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		ttl = 0
	}
	ok, err := c.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, errors.Wrap(err, "redis setnx failed")
	}

	return ok, nil
}

func (c *redisCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "redis del failed")
	}

	return nil
}

func (c *redisCache) Publish(ctx context.Context, channel, payload string) error {
	if err := c.client.Publish(ctx, channel, payload).Err(); err != nil {
		return errors.Wrap(err, "redis publish failed")
	}

	return nil
}

func (c *redisCache) Subscribe(ctx context.Context, channel string) (service.Subscription, error) {
	pubsub := c.client.Subscribe(ctx, channel)

	// Force the subscription onto the wire before the caller starts waiting,
	// so a publish racing the subscribe is not silently lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()

		return nil, errors.Wrap(err, "redis subscribe failed")
	}

	return &redisSubscription{pubsub: pubsub}, nil
}

func (c *redisCache) Close() error {
	return errors.WithStack(c.client.Close())
}

type redisSubscription struct {
	pubsub *redis.PubSub
}

func (s *redisSubscription) Receive(ctx context.Context) (string, error) {
	msg, err := s.pubsub.ReceiveMessage(ctx)
	if err != nil {
		return "", errors.Wrap(err, "redis receive failed")
	}

	return msg.Payload, nil
}

func (s *redisSubscription) Close() error {
	return errors.WithStack(s.pubsub.Close())
}
