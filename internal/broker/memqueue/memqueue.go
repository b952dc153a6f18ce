// Copyright 2025 James Ross
// Package memqueue is an in-process broker.Broker used by tests that need a
// real publish/consume/ack round trip without a Redis or NATS server.
package memqueue

import (
	"context"
	"sync"

	"github.com/trafficflow/trafficflow/internal/broker"
)

// Broker is a goroutine-safe, unbounded in-memory queue set.
type Broker struct {
	mu      sync.Mutex
	queues  map[string][][]byte
	waiters map[string][]chan struct{}
	closed  bool
}

// New returns an empty in-memory broker.
func New() *Broker {
	return &Broker{
		queues:  make(map[string][][]byte),
		waiters: make(map[string][]chan struct{}),
	}
}

// Publish appends payload to queue and wakes any blocked consumer.
func (b *Broker) Publish(_ context.Context, queue string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := append([]byte(nil), payload...)
	b.queues[queue] = append(b.queues[queue], cp)
	for _, ch := range b.waiters[queue] {
		close(ch)
	}
	b.waiters[queue] = nil
	return nil
}

// Consume returns a channel fed by a background goroutine that polls the
// named queue, delivering messages in FIFO order. Ack is a no-op; Nack puts
// the payload back at the head of the queue so it is delivered again next.
func (b *Broker) Consume(ctx context.Context, queue string) (<-chan broker.Delivery, error) {
	out := make(chan broker.Delivery)
	go func() {
		defer close(out)
		for {
			b.mu.Lock()
			if b.closed {
				b.mu.Unlock()
				return
			}
			q := b.queues[queue]
			if len(q) == 0 {
				wake := make(chan struct{})
				b.waiters[queue] = append(b.waiters[queue], wake)
				b.mu.Unlock()
				select {
				case <-wake:
					continue
				case <-ctx.Done():
					return
				}
			}
			payload := q[0]
			b.queues[queue] = q[1:]
			b.mu.Unlock()

			delivery := broker.Delivery{
				Payload: payload,
				Ack:     func() error { return nil },
				Nack: func() error {
					b.mu.Lock()
					b.queues[queue] = append([][]byte{payload}, b.queues[queue]...)
					b.mu.Unlock()
					return nil
				},
			}
			select {
			case out <- delivery:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// Close marks the broker closed; in-flight Consume goroutines exit on their
// next poll.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for _, waiters := range b.waiters {
		for _, ch := range waiters {
			close(ch)
		}
	}
	b.waiters = map[string][]chan struct{}{}
	return nil
}

var _ broker.Broker = (*Broker)(nil)
