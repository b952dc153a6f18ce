// Copyright 2025 James Ross
package lightctl

import (
	"context"

	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/broker"
	"github.com/trafficflow/trafficflow/internal/model"
	"github.com/trafficflow/trafficflow/internal/wire"
)

// AddSecondsOnAlert is the fixed bump applied to the named intersection's
// current phase whenever a CongestionAlert arrives (spec §4.2: the
// Controller reacts to congestion_alerts by publishing a LightAdjustment).
const AddSecondsOnAlert = 5

// RunCongestionAlertConsumer consumes congestion_alerts, applies
// AddSecondsOnAlert to the named intersection's current phase if it is
// locally managed, and republishes a LightAdjustment onto light_adjustments
// regardless. The Controller owns phase durations and applies the bump
// itself; the republished message lets the Monitor record it, and the
// Simulation Engine does not consume it.
func (t *TrafficLightController) RunCongestionAlertConsumer(ctx context.Context, b broker.Broker, log *zap.Logger, nowFn func() uint64) error {
	deliveries, err := b.Consume(ctx, broker.QueueCongestionAlerts)
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
			t.handleAlert(ctx, b, log, nowFn, d)
		}
	}
}

func (t *TrafficLightController) handleAlert(ctx context.Context, b broker.Broker, log *zap.Logger, nowFn func() uint64, d broker.Delivery) {
	alert, err := wire.DecodeCongestionAlert(d.Payload)
	if err != nil {
		log.Warn("lightctl: dropping invalid congestion alert", zap.Error(err))
		_ = d.Ack()
		return
	}
	if alert.Intersection == nil {
		_ = d.Ack()
		return
	}

	id, err := model.ParseIntersectionId(*alert.Intersection)
	if err != nil {
		log.Warn("lightctl: congestion alert names unknown intersection", zap.String("intersection", *alert.Intersection))
		_ = d.Ack()
		return
	}

	if ic := t.Controller(id); ic != nil {
		ic.AddSecondsToCurrentPhase(AddSecondsOnAlert)
	}

	adj := wire.LightAdjustment{
		Timestamp:       nowFn(),
		IntersectionID:  id.String(),
		AddSecondsGreen: AddSecondsOnAlert,
	}
	payload, err := wire.Marshal(adj)
	if err != nil {
		log.Error("lightctl: marshal light adjustment", zap.Error(err))
		_ = d.Nack()
		return
	}
	if err := b.Publish(ctx, broker.QueueLightAdjustments, payload); err != nil {
		log.Error("lightctl: publish light adjustment", zap.Error(err))
		_ = d.Nack()
		return
	}
	_ = d.Ack()
}
