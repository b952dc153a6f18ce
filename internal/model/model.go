// Copyright 2025 James Ross
// Package model defines the shared, dependency-free data types that every
// service (simulation, controller, analyzer, monitor) builds on: the static
// road graph (intersections, lanes), the live vehicle state, and the
// traffic-light phase bookkeeping.
package model

import (
	"fmt"
	"sync"
)

// IntersectionId identifies a node in the road graph by grid coordinate.
// Equality and hashing are by value, so it is safe to use as a map key.
type IntersectionId struct {
	Row int
	Col int
}

// String renders the identifier the way it appears in wire payloads, e.g.
// "IntersectionId(2, 2)".
func (id IntersectionId) String() string {
	return fmt.Sprintf("IntersectionId(%d, %d)", id.Row, id.Col)
}

// ParseIntersectionId parses the String() form back into an IntersectionId,
// for decoding the intersection_id/intersection fields of wire payloads.
func ParseIntersectionId(s string) (IntersectionId, error) {
	var id IntersectionId
	_, err := fmt.Sscanf(s, "IntersectionId(%d, %d)", &id.Row, &id.Col)
	if err != nil {
		return IntersectionId{}, fmt.Errorf("model: invalid IntersectionId %q: %w", s, err)
	}
	return id, nil
}

// Control describes how an intersection's signal is driven.
type Control int

const (
	Normal Control = iota
	TrafficLight
)

// Intersection is an immutable graph node created once at startup.
type Intersection struct {
	ID      IntersectionId
	Name    string
	IsEntry bool
	IsExit  bool
	Control Control
}

// VehicleType enumerates the spawn categories and their speed/length table
// (spec §4.1).
type VehicleType int

const (
	Car VehicleType = iota
	Bus
	Truck
	EmergencyVan
)

func (t VehicleType) String() string {
	switch t {
	case Car:
		return "Car"
	case Bus:
		return "Bus"
	case Truck:
		return "Truck"
	case EmergencyVan:
		return "EmergencyVan"
	default:
		return "Unknown"
	}
}

// SpeedRange is the inclusive [min, max] m/s range a vehicle type spawns
// with, and Length is its fixed physical length in meters.
type SpeedRange struct {
	Min, Max float64
	Length   float64
}

// TypeTable is the fixed per-type speed/length table from spec §4.1.
var TypeTable = map[VehicleType]SpeedRange{
	Car:          {Min: 80, Max: 140, Length: 2.0},
	Bus:          {Min: 70, Max: 100, Length: 6.0},
	Truck:        {Min: 60, Max: 90, Length: 4.0},
	EmergencyVan: {Min: 120, Max: 180, Length: 3.0},
}

// Lane is a directed edge between two intersections. Occupancy bookkeeping
// is guarded by mu so concurrent vehicle tasks can admit/release safely; the
// FIFO queue order matters for the fairness guarantee in spec §5.
type Lane struct {
	Name   string
	From   IntersectionId
	To     IntersectionId
	Length float64 // meters

	mu                   sync.Mutex
	currentVehicleLength float64
	hasAccident          bool
	waitingTime          float64
	occupants            []uint64 // vehicle ids, FIFO by admission order
}

// NewLane constructs a lane with the canonical "(r,c) -> (r',c')" name.
func NewLane(from, to IntersectionId, length float64) *Lane {
	return &Lane{
		Name:   fmt.Sprintf("(%d,%d) -> (%d,%d)", from.Row, from.Col, to.Row, to.Col),
		From:   from,
		To:     to,
		Length: length,
	}
}

// Occupancy returns current_vehicle_length / length, the glossary's
// definition of lane occupancy.
func (l *Lane) Occupancy() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Length <= 0 {
		return 0
	}
	return l.currentVehicleLength / l.Length
}

// HasAccident reports whether the lane currently carries an accident.
func (l *Lane) HasAccident() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasAccident
}

// SetAccident marks or clears the lane's accident flag.
func (l *Lane) SetAccident(v bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hasAccident = v
}

// TryAdmit attempts to add vehicleID to the lane's FIFO queue. It enforces
// the invariant 0 <= current_vehicle_length <= length (spec §3) and fails if
// there is insufficient room.
func (l *Lane) TryAdmit(vehicleID uint64, vehicleLength float64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.currentVehicleLength+vehicleLength > l.Length {
		return false
	}
	l.currentVehicleLength += vehicleLength
	l.occupants = append(l.occupants, vehicleID)
	return true
}

// Release removes vehicleID from the lane and frees its length. Safe to call
// even if the vehicle is not currently on the lane (a panicking task may
// race a normal exit), in which case it is a no-op.
func (l *Lane) Release(vehicleID uint64, vehicleLength float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, id := range l.occupants {
		if id == vehicleID {
			l.occupants = append(l.occupants[:i], l.occupants[i+1:]...)
			l.currentVehicleLength -= vehicleLength
			if l.currentVehicleLength < 0 {
				l.currentVehicleLength = 0
			}
			return
		}
	}
}

// CurrentVehicleLength reports the sum of lengths of vehicles presently
// occupying the lane.
func (l *Lane) CurrentVehicleLength() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentVehicleLength
}

// AddWaitingTime accumulates seconds vehicles spent waiting on this lane
// (used to compute average outgoing-lane waiting time per intersection).
func (l *Lane) AddWaitingTime(seconds float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.waitingTime += seconds
}

// WaitingTime returns the accumulated waiting-time counter.
func (l *Lane) WaitingTime() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.waitingTime
}

// Vehicle is one spawned trip through the network. Fields mutated during the
// journey are guarded by mu; ID, Type, EntryID, ExitID, Speed and Length are
// fixed at spawn and read without locking.
type Vehicle struct {
	ID      uint64
	Type    VehicleType
	EntryID IntersectionId
	ExitID  IntersectionId
	Speed   float64 // m/s
	Length  float64 // meters

	mu                sync.Mutex
	isInLane          bool
	isAccident        bool
	severity          int
	accidentTimestamp *int64
	waitingTime       float64
	waitingStart      *int64
	currentLane       string
}

// NewVehicle constructs a vehicle per the spawn invariants (speed > 0,
// length > 0, severity 0 until an accident happens).
func NewVehicle(id uint64, typ VehicleType, entry, exit IntersectionId, speed, length float64) *Vehicle {
	if speed <= 0 {
		panic("vehicle speed must be > 0")
	}
	if length <= 0 {
		panic("vehicle length must be > 0")
	}
	return &Vehicle{ID: id, Type: typ, EntryID: entry, ExitID: exit, Speed: speed, Length: length}
}

// MarkWaitingStart records that the vehicle became blocked at unixSeconds,
// if it is not already waiting.
func (v *Vehicle) MarkWaitingStart(unixSeconds int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.waitingStart == nil {
		t := unixSeconds
		v.waitingStart = &t
	}
}

// FlushWaiting folds any in-flight waiting-start delta into the cumulative
// waiting_time counter and clears the sentinel (spec §4.1 step 3).
func (v *Vehicle) FlushWaiting(nowUnixSeconds int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.waitingStart != nil {
		delta := nowUnixSeconds - *v.waitingStart
		if delta > 0 {
			v.waitingTime += float64(delta)
		}
		v.waitingStart = nil
	}
}

// AddWaiting accumulates an explicit number of seconds (used for lane-full
// retries and accident waits whose duration is already known; red-light
// waits go through MarkWaitingStart/FlushWaiting instead).
func (v *Vehicle) AddWaiting(seconds float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.waitingTime += seconds
}

// WaitingTime returns the cumulative waiting-time counter.
func (v *Vehicle) WaitingTime() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.waitingTime
}

// SetCurrentLane records which lane the vehicle currently occupies (empty
// once it has completed its journey).
func (v *Vehicle) SetCurrentLane(name string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.currentLane = name
	v.isInLane = name != ""
}

// CurrentLane returns the lane name the vehicle currently occupies.
func (v *Vehicle) CurrentLane() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.currentLane
}

// Crash marks the vehicle as an accident with the given severity (1..5) at
// the given Unix timestamp. Enforces severity=0 iff is_accident=false (spec
// §3, §8 invariant 2).
func (v *Vehicle) Crash(severity int, unixSeconds int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.isAccident = true
	v.severity = severity
	t := unixSeconds
	v.accidentTimestamp = &t
}

// AccidentInfo reports whether the vehicle is in an accident state, its
// severity, and its accident timestamp (nil if none).
func (v *Vehicle) AccidentInfo() (isAccident bool, severity int, timestamp *int64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.isAccident, v.severity, v.accidentTimestamp
}

// TrafficLightPhase is a named set of simultaneously-green lanes plus a
// mutable duration (spec §3).
type TrafficLightPhase struct {
	GreenLanes map[string]struct{}
	Duration   float64 // seconds; mutable

	mu sync.Mutex
}

// NewPhase builds a phase from a lane name slice.
func NewPhase(lanes []string, duration float64) *TrafficLightPhase {
	set := make(map[string]struct{}, len(lanes))
	for _, l := range lanes {
		set[l] = struct{}{}
	}
	return &TrafficLightPhase{GreenLanes: set, Duration: duration}
}

// IsGreen reports whether lane is green during this phase.
func (p *TrafficLightPhase) IsGreen(lane string) bool {
	_, ok := p.GreenLanes[lane]
	return ok
}

// SetDuration mutates the phase's duration; the only field a phase allows
// mutation of after construction (spec §3).
func (p *TrafficLightPhase) SetDuration(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Duration = seconds
}

// GetDuration reads the phase's current duration.
func (p *TrafficLightPhase) GetDuration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Duration
}

// HistoricalData holds bounded per-intersection sliding-window samples of
// occupancy and waiting time (spec §3). Capacity is fixed at construction;
// appending past capacity evicts the oldest sample (FIFO).
type HistoricalData struct {
	Capacity int

	mu          sync.Mutex
	occupancy   map[IntersectionId][]float64
	waitingTime map[IntersectionId][]float64
}

// NewHistoricalData constructs a deque set with the given per-intersection
// capacity.
func NewHistoricalData(capacity int) *HistoricalData {
	return &HistoricalData{
		Capacity:    capacity,
		occupancy:   make(map[IntersectionId][]float64),
		waitingTime: make(map[IntersectionId][]float64),
	}
}

func pushBounded(deque []float64, v float64, capacity int) []float64 {
	deque = append(deque, v)
	if len(deque) > capacity {
		deque = deque[len(deque)-capacity:]
	}
	return deque
}

// Append records a new occupancy/waiting-time sample for id, evicting the
// oldest sample if the deque is already at capacity.
func (h *HistoricalData) Append(id IntersectionId, occupancy, waitingTime float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.occupancy[id] = pushBounded(h.occupancy[id], occupancy, h.Capacity)
	h.waitingTime[id] = pushBounded(h.waitingTime[id], waitingTime, h.Capacity)
}

// OccupancyHistory returns a copy of the occupancy deque for id.
func (h *HistoricalData) OccupancyHistory(id IntersectionId) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]float64, len(h.occupancy[id]))
	copy(out, h.occupancy[id])
	return out
}

// WaitingTimeHistory returns a copy of the waiting-time deque for id.
func (h *HistoricalData) WaitingTimeHistory(id IntersectionId) []float64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]float64, len(h.waitingTime[id]))
	copy(out, h.waitingTime[id])
	return out
}

// IsFull reports whether id's occupancy deque has reached capacity.
func (h *HistoricalData) IsFull(id IntersectionId) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.occupancy[id]) >= h.Capacity
}

// Intersections returns the set of intersection ids with any recorded
// history.
func (h *HistoricalData) Intersections() []IntersectionId {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]IntersectionId, 0, len(h.occupancy))
	for id := range h.occupancy {
		out = append(out, id)
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Mean is a small helper exposed for callers (the analyzer's
// historical_mean term) that want a plain arithmetic mean of a deque.
func Mean(xs []float64) float64 { return mean(xs) }
