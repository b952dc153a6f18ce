// Copyright 2025 James Ross
package monitor

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/broker"
)

// Monitor mirrors every named queue (spec §3.7) into a durable RecordStore
// and a Redis-backed HotCache, optionally forwarding traffic_events records
// (accident/delay totals) to a DailyAggregator.
type Monitor struct {
	store      *RecordStore
	cache      *HotCache
	aggregator *DailyAggregator
	clickhouse *ClickHouseArchiver
}

// New wires a RecordStore and HotCache into a Monitor. aggregator may be nil
// (no Postgres daily-summary reporting configured).
func New(store *RecordStore, cache *HotCache, aggregator *DailyAggregator) *Monitor {
	return &Monitor{store: store, cache: cache, aggregator: aggregator}
}

// WithClickHouseArchiver makes every mirrored record also insert as a
// ClickHouse row for SQL-queryable history (optional archive backend).
// Returns m for chaining.
func (m *Monitor) WithClickHouseArchiver(a *ClickHouseArchiver) *Monitor {
	m.clickhouse = a
	return m
}

// Run subscribes to all four named queues and mirrors every delivery until
// ctx is cancelled or every subscription's channel has closed; a queue whose
// channel closes stops being mirrored while the others carry on. It returns
// ctx.Err().
func (m *Monitor) Run(ctx context.Context, b broker.Broker, log *zap.Logger) error {
	queues := []string{
		broker.QueueTrafficData,
		broker.QueueCongestionAlerts,
		broker.QueueTrafficEvents,
		broker.QueueLightAdjustments,
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(queues))

	for _, q := range queues {
		deliveries, err := b.Consume(ctx, q)
		if err != nil {
			return err
		}

		wg.Add(1)
		go func(queue string, deliveries <-chan broker.Delivery) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						errs <- nil
						return
					}
					m.handleDelivery(ctx, queue, d, log)
				}
			}
		}(q, deliveries)
	}

	wg.Wait()
	close(errs)
	return ctx.Err()
}

func (m *Monitor) handleDelivery(ctx context.Context, queue string, d broker.Delivery, log *zap.Logger) {
	rec, err := m.store.Append(queue, d.Payload)
	if err != nil {
		log.Error("monitor: persist record", zap.String("queue", queue), zap.Error(err))
		_ = d.Ack()
		return
	}

	if m.cache != nil {
		if err := m.cache.Push(ctx, rec); err != nil {
			log.Warn("monitor: push to hot cache", zap.String("queue", queue), zap.Error(err))
		}
	}

	if m.aggregator != nil && queue == broker.QueueTrafficEvents {
		m.aggregator.ObserveTrafficEvent(rec)
	}

	if m.clickhouse != nil {
		if err := m.clickhouse.Insert(ctx, rec); err != nil {
			log.Warn("monitor: clickhouse insert", zap.String("queue", queue), zap.Error(err))
		}
	}

	_ = d.Ack()
}
