// Copyright 2025 James Ross
package forecasting

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trafficflow/trafficflow/internal/model"
)

func TestEWMAForecasterBasicForecast(t *testing.T) {
	cfg := &EWMAConfig{Alpha: 0.3, AutoAdjust: false, MinObservations: 3, ConfidenceInterval: 0.95}
	f := NewEWMAForecaster(cfg)

	for _, v := range []float64{0.4, 0.5, 0.45, 0.55, 0.5} {
		f.Update(v)
	}

	result, err := f.Forecast(5)
	require.NoError(t, err)
	require.Len(t, result.Points, 5)
	require.Len(t, result.UpperBounds, 5)
	require.Len(t, result.LowerBounds, 5)
	require.Less(t, result.UpperBounds[0]-result.LowerBounds[0], result.UpperBounds[4]-result.LowerBounds[4])
}

func TestEWMAForecasterInsufficientObservations(t *testing.T) {
	f := NewEWMAForecaster(&EWMAConfig{Alpha: 0.3, MinObservations: 5})
	f.Update(0.4)
	f.Update(0.5)

	_, err := f.Forecast(3)
	require.Error(t, err)
}

func TestEWMAForecasterAutoAdjustsAlphaOnVolatileInput(t *testing.T) {
	f := NewEWMAForecaster(&EWMAConfig{Alpha: 0.3, AutoAdjust: true, MinObservations: 3})
	for i := 0; i < 25; i++ {
		if i%5 == 0 {
			f.Update(0.9)
		} else {
			f.Update(0.1)
		}
	}
	require.NotEqual(t, 0.3, f.alpha)
}

func TestRegistryPredictRequiresObservationsOnBothMetrics(t *testing.T) {
	r := NewRegistry(&EWMAConfig{Alpha: 0.3, MinObservations: 2, ConfidenceInterval: 0.95})
	id := model.IntersectionId{Row: 1, Col: 1}

	_, ok := r.Predict(id)
	require.False(t, ok)

	r.Observe(id, 0.5, 2)
	r.Observe(id, 0.6, 3)

	pred, ok := r.Predict(id)
	require.True(t, ok)
	require.GreaterOrEqual(t, pred.Occupancy, 0.0)
	require.LessOrEqual(t, pred.Occupancy, 1.0)
	require.Contains(t, r.Intersections(), id)
}
