// Copyright 2025 James Ross
package forecasting

import (
	"sync"

	"github.com/trafficflow/trafficflow/internal/model"
)

// Prediction mirrors analyzer.Prediction's shape; internal/analyzer copies
// its fields into its own Prediction when the EWMA strategy is selected.
type Prediction struct {
	Occupancy   float64
	WaitingTime float64
}

// Registry holds one EWMAForecaster per (intersection, metric) pair. It is
// the optional alternate to the Flow Analyzer's fixed-alpha weighted average
// (spec §4.3): same two metrics, self-tuning alpha and confidence bounds.
type Registry struct {
	mu          sync.Mutex
	cfg         *EWMAConfig
	occupancy   map[model.IntersectionId]*EWMAForecaster
	waitingTime map[model.IntersectionId]*EWMAForecaster
}

// NewRegistry creates an empty registry. A nil cfg uses DefaultEWMAConfig.
func NewRegistry(cfg *EWMAConfig) *Registry {
	if cfg == nil {
		cfg = DefaultEWMAConfig()
	}
	return &Registry{
		cfg:         cfg,
		occupancy:   make(map[model.IntersectionId]*EWMAForecaster),
		waitingTime: make(map[model.IntersectionId]*EWMAForecaster),
	}
}

// Observe folds one tick's occupancy and waiting-time readings into the
// named intersection's forecasters, creating them lazily on first use.
func (r *Registry) Observe(id model.IntersectionId, occupancy, waitingTime float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	occ, ok := r.occupancy[id]
	if !ok {
		occ = NewEWMAForecaster(r.cfg)
		r.occupancy[id] = occ
	}
	occ.Update(occupancy)

	wait, ok := r.waitingTime[id]
	if !ok {
		wait = NewEWMAForecaster(r.cfg)
		r.waitingTime[id] = wait
	}
	wait.Update(waitingTime)
}

// Predict returns the one-step-ahead prediction for an intersection, or
// false if either metric's forecaster has not yet reached MinObservations.
func (r *Registry) Predict(id model.IntersectionId) (Prediction, bool) {
	r.mu.Lock()
	occ, hasOcc := r.occupancy[id]
	wait, hasWait := r.waitingTime[id]
	r.mu.Unlock()

	if !hasOcc || !hasWait {
		return Prediction{}, false
	}

	occForecast, err := occ.Forecast(1)
	if err != nil {
		return Prediction{}, false
	}
	waitForecast, err := wait.Forecast(1)
	if err != nil {
		return Prediction{}, false
	}

	occVal := occForecast.Points[0]
	if occVal < 0 {
		occVal = 0
	} else if occVal > 1 {
		occVal = 1
	}

	return Prediction{Occupancy: occVal, WaitingTime: waitForecast.Points[0]}, true
}

// Intersections lists every intersection with at least one forecaster.
func (r *Registry) Intersections() []model.IntersectionId {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[model.IntersectionId]struct{}, len(r.occupancy))
	ids := make([]model.IntersectionId, 0, len(r.occupancy))
	for id := range r.occupancy {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}
