// Copyright 2025 James Ross
// Package redisqueue implements the broker.Broker contract on top of Redis
// lists using a BRPOPLPUSH reliable-handoff pattern: a message moves
// atomically from the named queue into a per-consumer processing list,
// and only leaves the processing list once the application acknowledges
// it.
package redisqueue

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/trafficflow/trafficflow/internal/broker"
)

// Broker is a broker.Broker backed by a Redis client.
type Broker struct {
	rdb           *redis.Client
	popTimeout    time.Duration
	consumerName  string
}

// Option configures a Broker.
type Option func(*Broker)

// WithPopTimeout overrides the BRPOPLPUSH blocking timeout (default 1s).
func WithPopTimeout(d time.Duration) Option {
	return func(b *Broker) { b.popTimeout = d }
}

// WithConsumerName sets the processing-list suffix identifying this
// consumer (default "default").
func WithConsumerName(name string) Option {
	return func(b *Broker) { b.consumerName = name }
}

// New wraps an existing *redis.Client.
func New(rdb *redis.Client, opts ...Option) *Broker {
	b := &Broker{rdb: rdb, popTimeout: time.Second, consumerName: "default"}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Broker) processingList(queue string) string {
	return fmt.Sprintf("trafficflow:%s:processing:%s", queue, b.consumerName)
}

// Publish LPUSHes payload onto the named list.
func (b *Broker) Publish(ctx context.Context, queue string, payload []byte) error {
	if err := b.rdb.LPush(ctx, queue, payload).Err(); err != nil {
		return fmt.Errorf("redisqueue: publish %s: %w", queue, err)
	}
	return nil
}

// Consume starts a goroutine that BRPOPLPUSHes from queue into this
// consumer's processing list and emits a broker.Delivery per message. The
// returned channel closes when ctx is cancelled.
func (b *Broker) Consume(ctx context.Context, queue string) (<-chan broker.Delivery, error) {
	out := make(chan broker.Delivery)
	procList := b.processingList(queue)

	go func() {
		defer close(out)
		for {
			if ctx.Err() != nil {
				return
			}
			payload, err := b.rdb.BRPopLPush(ctx, queue, procList, b.popTimeout).Result()
			if err == redis.Nil {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// BrokerConsumeFailure (spec §7): terminate the consumer
				// loop by closing the channel. Nothing is logged here; the
				// caller's supervising process is expected to restart.
				return
			}

			p := []byte(payload)
			done := make(chan struct{})
			delivery := broker.Delivery{
				Payload: p,
				Ack: func() error {
					defer close(done)
					return b.rdb.LRem(ctx, procList, 1, payload).Err()
				},
				Nack: func() error {
					defer close(done)
					if err := b.rdb.LRem(ctx, procList, 1, payload).Err(); err != nil {
						return err
					}
					return b.rdb.LPush(ctx, queue, payload).Err()
				},
			}

			select {
			case out <- delivery:
				<-done
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Close is a no-op; the *redis.Client's lifecycle is owned by the caller
// (broker.New returns the client's own Close as the close function).
func (b *Broker) Close() error { return nil }

var _ broker.Broker = (*Broker)(nil)
