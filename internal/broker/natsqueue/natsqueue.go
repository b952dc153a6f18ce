// Copyright 2025 James Ross
// Package natsqueue implements the broker.Broker contract on NATS
// JetStream: one durable stream per named queue, at-least-once delivery
// via explicit ack, matching the AMQP-like contract spec §6 asks for.
package natsqueue

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/trafficflow/trafficflow/internal/broker"
)

// Broker is a broker.Broker backed by a NATS JetStream connection.
type Broker struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	name string // durable consumer name
}

// New connects to natsURL, creates a JetStream context, and ensures a
// durable stream exists per named queue.
func New(natsURL, durableName string, queues []string) (*Broker, error) {
	conn, err := nats.Connect(natsURL)
	if err != nil {
		return nil, fmt.Errorf("natsqueue: connect: %w", err)
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("natsqueue: jetstream: %w", err)
	}
	b := &Broker{conn: conn, js: js, name: durableName}
	for _, q := range queues {
		if err := b.ensureStream(q); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return b, nil
}

func (b *Broker) ensureStream(queue string) error {
	_, err := b.js.StreamInfo(streamName(queue))
	if err == nil {
		return nil
	}
	_, err = b.js.AddStream(&nats.StreamConfig{
		Name:     streamName(queue),
		Subjects: []string{subject(queue)},
	})
	if err != nil {
		return fmt.Errorf("natsqueue: add stream %s: %w", queue, err)
	}
	return nil
}

func streamName(queue string) string { return "TRAFFICFLOW_" + queue }
func subject(queue string) string    { return "trafficflow." + queue }

// Publish sends payload to queue's JetStream subject.
func (b *Broker) Publish(ctx context.Context, queue string, payload []byte) error {
	_, err := b.js.Publish(subject(queue), payload, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("natsqueue: publish %s: %w", queue, err)
	}
	return nil
}

// Consume creates a durable pull subscription on queue and emits a
// broker.Delivery per fetched message.
func (b *Broker) Consume(ctx context.Context, queue string) (<-chan broker.Delivery, error) {
	sub, err := b.js.PullSubscribe(subject(queue), b.name+"-"+queue, nats.ManualAck())
	if err != nil {
		return nil, fmt.Errorf("natsqueue: subscribe %s: %w", queue, err)
	}

	out := make(chan broker.Delivery)
	go func() {
		defer close(out)
		defer sub.Unsubscribe()
		for {
			if ctx.Err() != nil {
				return
			}
			msgs, err := sub.Fetch(1, nats.Context(ctx))
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				// Timeout fetching is routine (no message ready); any other
				// error is a BrokerConsumeFailure (spec §7) and terminates
				// the loop for the supervising process to restart.
				if err == nats.ErrTimeout {
					continue
				}
				return
			}
			for _, m := range msgs {
				msg := m
				delivery := broker.Delivery{
					Payload: msg.Data,
					Ack:     msg.Ack,
					Nack:    msg.Nak,
				}
				select {
				case out <- delivery:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Close closes the NATS connection without draining it.
func (b *Broker) Close() error {
	b.conn.Close()
	return nil
}

var _ broker.Broker = (*Broker)(nil)
