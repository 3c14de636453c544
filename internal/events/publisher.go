// Package events publishes queue position changes for other consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"refeitorio-client/config"
	"refeitorio-client/internal/model"
)

// Publisher announces position events.
type Publisher interface {
	Publish(ctx context.Context, ev model.PositionEvent) error
	Close() error
}

// redisClient is the part of *redis.Client used here.
type redisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Close() error
}

// RedisPublisher sends events as JSON over redis pub/sub.
type RedisPublisher struct {
	rdb     redisClient
	channel string
	logger  *zap.Logger
}

// New returns a RedisPublisher when cfg.Addr is set and a no-op publisher
// otherwise.
func New(cfg config.RedisConfig, logger *zap.Logger) Publisher {
	if cfg.Addr == "" {
		return Nop{}
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return newRedisPublisher(rdb, cfg.Channel, logger)
}

func newRedisPublisher(rdb redisClient, channel string, logger *zap.Logger) *RedisPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisPublisher{rdb: rdb, channel: channel, logger: logger}
}

func (p *RedisPublisher) Publish(ctx context.Context, ev model.PositionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to encode position event: %w", err)
	}
	receivers, err := p.rdb.Publish(ctx, p.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("failed to publish position event: %w", err)
	}
	p.logger.Debug("position event published",
		zap.String("channel", p.channel), zap.Int64("refeicao_id", ev.SlotID), zap.Int64("receivers", receivers))
	return nil
}

func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, model.PositionEvent) error { return nil }
func (Nop) Close() error                                        { return nil }
