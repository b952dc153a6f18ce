// Copyright 2025 James Ross
package analyzer

import (
	"context"

	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/broker"
	"github.com/trafficflow/trafficflow/internal/obs"
	"github.com/trafficflow/trafficflow/internal/wire"
)

// Run consumes traffic_data until ctx is cancelled, applying consumer steps
// 1-4 to every update (spec §4.3). Malformed payloads are acked and
// skipped; a BrokerConsumeFailure (the deliveries channel closing before
// ctx is done) terminates the loop for the supervising process to restart
// (spec §7).
func (a *Analyzer) Run(ctx context.Context, b broker.Broker, log *zap.Logger) error {
	deliveries, err := b.Consume(ctx, broker.QueueTrafficData)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			a.handleUpdate(ctx, b, log, d)
		}
	}
}

func (a *Analyzer) handleUpdate(ctx context.Context, b broker.Broker, log *zap.Logger, d broker.Delivery) {
	update, err := wire.DecodeTrafficUpdate(d.Payload)
	if err != nil {
		log.Warn("analyzer: dropping invalid traffic update", zap.Error(err))
		_ = d.Ack()
		return
	}

	a.recordObservation(update.CurrentData)

	for _, alert := range a.congestionAlerts(update.CurrentData, update.Timestamp) {
		payload, err := wire.Marshal(alert)
		if err != nil {
			log.Error("analyzer: marshal congestion alert", zap.Error(err))
			continue
		}
		if err := b.Publish(ctx, broker.QueueCongestionAlerts, payload); err != nil {
			log.Warn("analyzer: publish congestion alert", zap.Error(err))
			continue
		}
		obs.CongestionAlertsEmitted.Inc()
	}

	event := a.aggregateEvent(update.CurrentData, update.Timestamp)
	payload, err := wire.Marshal(event)
	if err != nil {
		log.Error("analyzer: marshal traffic event", zap.Error(err))
	} else if err := b.Publish(ctx, broker.QueueTrafficEvents, payload); err != nil {
		log.Warn("analyzer: publish traffic event", zap.Error(err))
	}

	_ = d.Ack()
}
