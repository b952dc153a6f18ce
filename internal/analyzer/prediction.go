// Copyright 2025 James Ross
package analyzer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/model"
	"github.com/trafficflow/trafficflow/internal/obs"
)

// WeightedPrediction computes predicted = alpha*current + (1-alpha)*mean(historical)
// (spec §4.3, §8 scenario 5). Occupancy predictions are clamped to [0, 1];
// waiting-time predictions are not (spec only clamps occupancy).
func WeightedPrediction(current float64, historical []float64, alpha float64, clamp bool) float64 {
	predicted := alpha*current + (1-alpha)*model.Mean(historical)
	if clamp {
		if predicted < 0 {
			predicted = 0
		} else if predicted > 1 {
			predicted = 1
		}
	}
	return predicted
}

// anyFull reports whether at least one intersection's occupancy history has
// reached capacity (spec §4.3: the loop only predicts "when any
// intersection's occupancy history has reached full capacity").
func (a *Analyzer) anyFull() bool {
	for _, id := range a.historical.Intersections() {
		if a.historical.IsFull(id) {
			return true
		}
	}
	return false
}

// runPredictionOnce computes a prediction pass over every intersection with
// history, using the latest observed current values as the "current" term.
func (a *Analyzer) runPredictionOnce(log *zap.Logger) {
	if !a.anyFull() {
		return
	}

	latest := a.LatestSnapshot()
	predictions := make(map[model.IntersectionId]Prediction)
	for _, id := range a.historical.Intersections() {
		if a.ewma != nil {
			if p, ok := a.ewma.Predict(id); ok {
				predictions[id] = Prediction{Occupancy: p.Occupancy, WaitingTime: p.WaitingTime}
			}
			continue
		}

		idStr := id.String()
		currentOcc := latest.IntersectionCongestion[idStr]
		currentWait := latest.IntersectionWaitingTime[idStr]

		occHistory := a.historical.OccupancyHistory(id)
		waitHistory := a.historical.WaitingTimeHistory(id)

		predictions[id] = Prediction{
			Occupancy:   WeightedPrediction(currentOcc, occHistory, a.cfg.Alpha, true),
			WaitingTime: WeightedPrediction(currentWait, waitHistory, a.cfg.Alpha, false),
		}
	}

	a.setPredictions(predictions)
	obs.PredictionsComputed.Add(float64(len(predictions)))
	log.Debug("analyzer: prediction pass complete", zap.Int("intersections", len(predictions)))
}

// RunPredictionLoop runs the prediction pass on cfg.PredictionInterval until
// ctx is cancelled (spec §4.3: "a background task runs every 10s").
func (a *Analyzer) RunPredictionLoop(ctx context.Context, log *zap.Logger) {
	ticker := time.NewTicker(a.cfg.PredictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.runPredictionOnce(log)
		}
	}
}
