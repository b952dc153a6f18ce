// Copyright 2025 James Ross
package simulation

import (
	"math"

	"github.com/trafficflow/trafficflow/internal/model"
)

// RushHourSpawnCount computes the target spawn count at elapsedSeconds since
// engine start, using the 40s triangular wave: ramp linearly from
// cfg.MinSpawnRate to cfg.MaxSpawnRate over cfg.RushHourRampSeconds, then
// back down over the same span (spec §4.1). The result is rounded to the
// nearest integer so spec §8's boundary counts {2, 5, 2, 5} at t=0,20,40,60
// land exactly.
func (cfg Config) RushHourSpawnCount(elapsedSeconds int64) int {
	period := 2 * cfg.RushHourRampSeconds
	if period <= 0 {
		return int(math.Round(cfg.MinSpawnRate))
	}
	phase := elapsedSeconds % period
	if phase < 0 {
		phase += period
	}

	var rate float64
	if phase <= cfg.RushHourRampSeconds {
		rate = cfg.MinSpawnRate + (cfg.MaxSpawnRate-cfg.MinSpawnRate)*float64(phase)/float64(cfg.RushHourRampSeconds)
	} else {
		rate = cfg.MaxSpawnRate - (cfg.MaxSpawnRate-cfg.MinSpawnRate)*float64(phase-cfg.RushHourRampSeconds)/float64(cfg.RushHourRampSeconds)
	}
	return int(math.Round(rate))
}

// PickVehicleType chooses a type from r (expected uniform in [0,1)) using
// the fixed cumulative distribution Car 0.70 / Truck 0.20 / Bus 0.09 /
// EmergencyVan 0.01 (spec §9).
func PickVehicleType(r float64) model.VehicleType {
	switch {
	case r < 0.70:
		return model.Car
	case r < 0.90:
		return model.Truck
	case r < 0.99:
		return model.Bus
	default:
		return model.EmergencyVan
	}
}
