// Copyright 2025 James Ross
package memqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPublishConsumeRoundTrip(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := b.Consume(ctx, "traffic_data")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "traffic_data", []byte("hello")))

	select {
	case d := <-deliveries:
		require.Equal(t, "hello", string(d.Payload))
		require.NoError(t, d.Ack())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestNackRequeues(t *testing.T) {
	b := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := b.Consume(ctx, "congestion_alerts")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "congestion_alerts", []byte("first")))

	d := <-deliveries
	require.Equal(t, "first", string(d.Payload))
	require.NoError(t, d.Nack())

	d2 := <-deliveries
	require.Equal(t, "first", string(d2.Payload))
	require.NoError(t, d2.Ack())
}
