// Copyright 2025 James Ross
// Package simulation implements the Simulation Engine (spec §4.1): the
// authoritative world state, the rush-hour spawner, the per-vehicle
// goroutine state machine, and the once-a-second snapshot emitter.
package simulation

import "time"

// Config holds the Simulation Engine's tunables. Defaults match spec §4.1 /
// §9 exactly; only a test wants to shrink them.
type Config struct {
	// TickInterval is the cadence of both the spawner and the snapshot
	// emitter (spec §4.1: "once per second").
	TickInterval time.Duration

	// RushHourRampSeconds is the duration of each leg of the triangular
	// spawn wave (20s up, 20s down — spec §4.1).
	RushHourRampSeconds int64

	// MinSpawnRate and MaxSpawnRate are the wave's trough and peak target
	// spawn counts per tick (2 and 5 — spec §4.1).
	MinSpawnRate float64
	MaxSpawnRate float64

	// LaneFullRetrySeconds is the sleep between admission retries (spec
	// §4.1 step 1: 5s).
	LaneFullRetrySeconds float64

	// DefaultAccidentWaitSeverity is used for the accident-wait step (spec
	// §4.1 step 2) when the waiting vehicle is not itself the accident
	// vehicle.
	DefaultAccidentWaitSeverity int

	// CongestionExcludeThreshold is the occupancy above which routing
	// excludes a lane from candidate routes (spec §4.5/§4.1: 0.75).
	CongestionExcludeThreshold float64
}

// DefaultConfig returns the spec's literal constants.
func DefaultConfig() Config {
	return Config{
		TickInterval:                time.Second,
		RushHourRampSeconds:         20,
		MinSpawnRate:                2,
		MaxSpawnRate:                5,
		LaneFullRetrySeconds:        5,
		DefaultAccidentWaitSeverity: 2,
		CongestionExcludeThreshold:  0.75,
	}
}
