// Copyright 2025 James Ross
package analyzer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/broker"
	"github.com/trafficflow/trafficflow/internal/broker/memqueue"
	"github.com/trafficflow/trafficflow/internal/model"
	"github.com/trafficflow/trafficflow/internal/wire"
)

func TestWeightedPredictionMatchesScenario5(t *testing.T) {
	history := []float64{0.2, 0.4, 0.6, 0.8, 1.0, 0.2, 0.4, 0.6, 0.8, 1.0}
	got := WeightedPrediction(0.5, history, 0.7, true)
	require.InDelta(t, 0.53, got, 1e-9)
}

func TestCongestionAlertEmittedAboveThreshold(t *testing.T) {
	a := New(DefaultConfig())
	id := model.IntersectionId{Row: 2, Col: 2}
	data := wire.TrafficData{
		IntersectionCongestion:  map[string]float64{id.String(): 0.6},
		IntersectionWaitingTime: map[string]float64{id.String(): 0},
		AccidentLanes:           []string{},
		VehicleData:             []wire.VehicleData{},
	}

	alerts := a.congestionAlerts(data, 999)
	require.Len(t, alerts, 1)
	require.Equal(t, id.String(), *alerts[0].Intersection)
	require.InDelta(t, 0.60, alerts[0].CongestionPerc, 1e-9)
	require.Equal(t, RecommendedAction, alerts[0].RecommendedAction)
}

func TestCongestionAlertNotEmittedAtOrBelowThreshold(t *testing.T) {
	a := New(DefaultConfig())
	id := model.IntersectionId{Row: 1, Col: 1}
	data := wire.TrafficData{
		IntersectionCongestion: map[string]float64{id.String(): 0.50},
	}
	require.Empty(t, a.congestionAlerts(data, 1))
}

func TestAggregateEventComputesMeanDelayAndAccidentCount(t *testing.T) {
	a := New(DefaultConfig())
	ts := int64(100)
	data := wire.TrafficData{
		VehicleData: []wire.VehicleData{
			{ID: 1, WaitingTime: 3, CurrentLane: "x"},
			{ID: 2, WaitingTime: 5, AccidentTimestamp: &ts, Severity: 2, CurrentLane: "y"},
		},
	}
	event := a.aggregateEvent(data, 42)
	require.Equal(t, uint64(42), event.Timestamp)
	require.InDelta(t, 4.0, event.AverageVehicleDelay, 1e-9)
	require.Equal(t, 1, event.TotalAccidents)
	require.Len(t, event.AccidentDetails, 1)
	require.Equal(t, uint64(2), event.AccidentDetails[0].VehicleID)
}

func TestRunPredictionOnceRequiresAFullHistory(t *testing.T) {
	a := New(DefaultConfig())
	id := model.IntersectionId{Row: 0, Col: 0}
	for i := 0; i < 9; i++ {
		a.historical.Append(id, 0.5, 1)
	}
	a.runPredictionOnce(zap.NewNop())
	require.Empty(t, a.LatestPredictions(), "prediction pass must not run before any deque is full")

	a.historical.Append(id, 0.5, 1) // 10th sample fills capacity-10 deque
	a.mu.Lock()
	a.latest = wire.TrafficData{
		IntersectionCongestion:  map[string]float64{id.String(): 0.5},
		IntersectionWaitingTime: map[string]float64{id.String(): 1},
	}
	a.mu.Unlock()

	a.runPredictionOnce(zap.NewNop())
	preds := a.LatestPredictions()
	require.Contains(t, preds, id)
	require.InDelta(t, 0.5, preds[id].Occupancy, 1e-9)
}

func TestRunPredictionOnceUsesEWMARegistryWhenSelected(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PredictionStrategy = StrategyEWMA
	a := New(cfg)
	require.NotNil(t, a.ewma)

	id := model.IntersectionId{Row: 0, Col: 0}
	for i := 0; i < 10; i++ {
		a.historical.Append(id, 0.5, 1)
		a.ewma.Observe(id, 0.5, 1)
	}
	a.mu.Lock()
	a.latest = wire.TrafficData{
		IntersectionCongestion:  map[string]float64{id.String(): 0.5},
		IntersectionWaitingTime: map[string]float64{id.String(): 1},
	}
	a.mu.Unlock()

	a.runPredictionOnce(zap.NewNop())
	preds := a.LatestPredictions()
	require.Contains(t, preds, id)
	require.InDelta(t, 0.5, preds[id].Occupancy, 1e-9)
}

func TestRunConsumesUpdateAndPublishesAlertAndEvent(t *testing.T) {
	a := New(DefaultConfig())
	b := memqueue.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	alerts, err := b.Consume(ctx, broker.QueueCongestionAlerts)
	require.NoError(t, err)
	events, err := b.Consume(ctx, broker.QueueTrafficEvents)
	require.NoError(t, err)

	go func() { _ = a.Run(ctx, b, zap.NewNop()) }()

	id := model.IntersectionId{Row: 2, Col: 2}
	update := wire.TrafficUpdate{
		Timestamp: 10,
		CurrentData: wire.TrafficData{
			IntersectionCongestion:  map[string]float64{id.String(): 0.6},
			IntersectionWaitingTime: map[string]float64{id.String(): 0},
			AccidentLanes:           []string{},
			VehicleData:             []wire.VehicleData{},
		},
	}
	payload, err := wire.Marshal(update)
	require.NoError(t, err)
	require.NoError(t, b.Publish(ctx, broker.QueueTrafficData, payload))

	select {
	case d := <-alerts:
		alert, err := wire.DecodeCongestionAlert(d.Payload)
		require.NoError(t, err)
		require.Equal(t, id.String(), *alert.Intersection)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for congestion alert")
	}

	select {
	case d := <-events:
		_, err := wire.DecodeTrafficEvent(d.Payload)
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for traffic event")
	}
}
