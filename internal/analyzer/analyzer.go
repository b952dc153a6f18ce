// Copyright 2025 James Ross
package analyzer

import (
	"sync"

	"github.com/trafficflow/trafficflow/internal/forecasting"
	"github.com/trafficflow/trafficflow/internal/model"
	"github.com/trafficflow/trafficflow/internal/wire"
)

// Analyzer owns the sliding-window history and the latest-observation cache
// (spec §3 HistoricalData, §4.3 consumer step 1-2).
type Analyzer struct {
	cfg        Config
	historical *model.HistoricalData
	ewma       *forecasting.Registry // non-nil only when cfg.PredictionStrategy == StrategyEWMA

	mu          sync.Mutex
	latest      wire.TrafficData
	predictions map[model.IntersectionId]Prediction
}

// Prediction is one intersection's weighted-blend forecast (spec §4.3
// prediction loop).
type Prediction struct {
	Occupancy   float64
	WaitingTime float64
}

// New builds an Analyzer with a fresh HistoricalData set sized per cfg. When
// cfg.PredictionStrategy is StrategyEWMA, the prediction loop is backed by
// an internal/forecasting.Registry instead of the fixed-alpha weighted
// average.
func New(cfg Config) *Analyzer {
	a := &Analyzer{
		cfg:         cfg,
		historical:  model.NewHistoricalData(cfg.HistoricalCapacity),
		predictions: make(map[model.IntersectionId]Prediction),
	}
	if cfg.PredictionStrategy == StrategyEWMA {
		a.ewma = forecasting.NewRegistry(nil)
	}
	return a
}

// recordObservation implements consumer steps 1-2: append per-intersection
// occupancy/waiting-time into the history deques and remember the raw
// current_data as the latest observation.
func (a *Analyzer) recordObservation(data wire.TrafficData) {
	a.mu.Lock()
	a.latest = data
	a.mu.Unlock()

	for idStr, occ := range data.IntersectionCongestion {
		id, err := model.ParseIntersectionId(idStr)
		if err != nil {
			continue
		}
		wait := data.IntersectionWaitingTime[idStr]
		a.historical.Append(id, occ, wait)
		if a.ewma != nil {
			a.ewma.Observe(id, occ, wait)
		}
	}
}

// LatestSnapshot returns the most recently observed TrafficData (zero value
// if none yet).
func (a *Analyzer) LatestSnapshot() wire.TrafficData {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest
}

// LatestPredictions returns a copy of the most recent prediction pass (spec
// §4.3: "logged and retained; it is not itself published"). The result is
// keyed by intersection; cmd/trafficflow does not pass it to
// lightctl.IntersectionController.AdjustPhaseDurationsBasedOnPrediction,
// which takes per-lane congestion.
func (a *Analyzer) LatestPredictions() map[model.IntersectionId]Prediction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[model.IntersectionId]Prediction, len(a.predictions))
	for k, v := range a.predictions {
		out[k] = v
	}
	return out
}

func (a *Analyzer) setPredictions(p map[model.IntersectionId]Prediction) {
	a.mu.Lock()
	a.predictions = p
	a.mu.Unlock()
}
