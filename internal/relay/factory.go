package relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foodrescue/foodrescue/internal/config"
)

// New creates a notification relay based on configuration
func New(ctx context.Context, cfg *config.Config) (Relay, error) {
	provider := cfg.RelayProvider

	slog.Info("initializing notification relay", "provider", provider)

	switch provider {
	case "", "memory":
		return NewMemoryRelay(), nil

	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when using redis relay")
		}
		return NewRedisRelay(ctx, cfg.RedisURL)

	case "amqp":
		if cfg.AMQPURL == "" {
			return nil, fmt.Errorf("AMQP_URL is required when using amqp relay")
		}
		return NewAMQPRelay(cfg.AMQPURL, cfg.AMQPExchange)

	default:
		return nil, fmt.Errorf("unknown relay provider: %s (supported: memory, redis, amqp)", provider)
	}
}
