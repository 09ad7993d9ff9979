package notify

import (
	"context"
	"fmt"

	"github.com/biscuitbarter/barterbot/barter/economy/trading"
	"github.com/redis/go-redis/v9"
)

type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher posts every event as JSON on a pub/sub channel for live
// market dashboards.
type RedisPublisher struct {
	client  redisPublisher
	closer  func() error
	channel string
}

func NewRedisPublisher(addr, password string, db int, channel string) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisPublisher{client: client, closer: client.Close, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, e trading.Event) error {
	body, err := NewMessage(e).Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

func (p *RedisPublisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
