// Copyright 2025 James Ross
// Package wire defines the JSON payloads published and consumed on the four
// named queues (spec §6) and validates them against an embedded JSON Schema
// before unmarshalling, so a malformed payload becomes a schema-validation
// InvalidPayload error (spec §7) rather than a bare decode panic.
package wire

import "encoding/json"

// TrafficData is the per-tick snapshot of the simulated world.
type TrafficData struct {
	LaneOccupancy           map[string]float64 `json:"lane_occupancy"`
	AccidentLanes           []string           `json:"accident_lanes"`
	IntersectionCongestion  map[string]float64 `json:"intersection_congestion"`
	IntersectionWaitingTime map[string]float64 `json:"intersection_waiting_time"`
	VehicleData             []VehicleData      `json:"vehicle_data"`
}

// VehicleData is one per-vehicle event accumulated since the previous
// snapshot.
type VehicleData struct {
	ID                uint64 `json:"id"`
	WaitingTime       uint64 `json:"waiting_time"`
	AccidentTimestamp *int64 `json:"accident_timestamp"`
	Severity          int8   `json:"severity"`
	CurrentLane       string `json:"current_lane"`
}

// TrafficUpdate wraps a TrafficData snapshot with its emission timestamp.
type TrafficUpdate struct {
	CurrentData TrafficData `json:"current_data"`
	Timestamp   uint64      `json:"timestamp"`
}

// CongestionAlert is emitted by the Analyzer when an intersection's
// occupancy exceeds 0.50.
type CongestionAlert struct {
	Timestamp         uint64  `json:"timestamp"`
	Intersection      *string `json:"intersection"`
	Message           string  `json:"message"`
	CongestionPerc    float64 `json:"congestion_perc"`
	RecommendedAction string  `json:"recommended_action"`
}

// AccidentDetail is one entry in a TrafficEvent's accident_details list.
type AccidentDetail struct {
	VehicleID         uint64 `json:"vehicle_id"`
	AccidentTimestamp uint64 `json:"accident_timestamp"`
	Severity          int8   `json:"severity"`
	CurrentLane       string `json:"current_lane"`
}

// TrafficEvent is the Analyzer's per-tick aggregate of vehicle delays and
// accidents.
type TrafficEvent struct {
	Timestamp           uint64           `json:"timestamp"`
	AverageVehicleDelay float64          `json:"average_vehicle_delay"`
	TotalAccidents      int              `json:"total_accidents"`
	AccidentDetails     []AccidentDetail `json:"accident_details"`
}

// LightAdjustment is applied by the Controller to its own phase state and
// republished onto light_adjustments purely so the Monitor's
// mirror-everything subscriber can record it (spec §9); the Simulation
// Engine never consumes this queue.
type LightAdjustment struct {
	Timestamp       uint64 `json:"timestamp"`
	IntersectionID  string `json:"intersection_id"`
	AddSecondsGreen uint32 `json:"add_seconds_green"`
}

// Marshal encodes v as JSON.
func Marshal(v any) ([]byte, error) { return json.Marshal(v) }
