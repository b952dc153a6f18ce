// Copyright 2025 James Ross
package broker

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/trafficflow/trafficflow/internal/broker/memqueue"
	"github.com/trafficflow/trafficflow/internal/broker/natsqueue"
	"github.com/trafficflow/trafficflow/internal/broker/redisqueue"
	"github.com/trafficflow/trafficflow/internal/config"
)

// Queues lists the four named queues every backend must be able to carry.
var Queues = []string{QueueTrafficData, QueueCongestionAlerts, QueueTrafficEvents, QueueLightAdjustments}

// New builds the configured broker backend plus a close function covering
// any connection it opened. consumerName distinguishes this process's
// Redis processing list from a sibling role's (redisqueue.WithConsumerName).
func New(cfg config.Broker, consumerName string) (Broker, func() error, error) {
	switch cfg.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		b := redisqueue.New(rdb, redisqueue.WithConsumerName(consumerName))
		return b, rdb.Close, nil
	case "nats":
		b, err := natsqueue.New(cfg.NATS.URL, cfg.NATS.DurableName, Queues)
		if err != nil {
			return nil, nil, fmt.Errorf("broker: nats: %w", err)
		}
		return b, b.Close, nil
	case "memory":
		b := memqueue.New()
		return b, b.Close, nil
	default:
		return nil, nil, fmt.Errorf("broker: unknown backend %q", cfg.Backend)
	}
}
