package pubsub

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// lastEventTTL bounds how long the most recent lifecycle event of a session
// stays readable after the session is gone.
const lastEventTTL = 10 * time.Minute

// RedisPubSub publishes on redis channels. The latest event of each channel
// is also kept under "<channel>:last" so late subscribers can catch up.
type RedisPubSub struct {
	client *redis.Client
}

// NewRedisPubSub dials redis and verifies the connection.
func NewRedisPubSub(cfg RedisConfig) (*RedisPubSub, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Address, err)
	}

	return NewRedisPubSubFromClient(client), nil
}

// NewRedisPubSubFromClient wraps an existing client.
func NewRedisPubSubFromClient(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{client: client}
}

// Publish sends the event and records it as the channel's latest in one
// round trip.
func (r *RedisPubSub) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := event.encode()
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Publish(ctx, channel, data)
		p.Set(ctx, lastEventKey(channel), data, lastEventTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

func (r *RedisPubSub) Close() error {
	return r.client.Close()
}

func lastEventKey(channel string) string {
	return channel + ":last"
}
