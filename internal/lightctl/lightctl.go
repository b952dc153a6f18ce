// Copyright 2025 James Ross
// Package lightctl implements the Traffic Light Controller (spec §4.2): per-
// intersection phase scheduling, emergency preemption, prediction- and
// operator-driven duration adjustment, and the congestion-alert handler that
// republishes LightAdjustment messages.
package lightctl

import (
	"sort"
	"sync"
	"time"

	"github.com/trafficflow/trafficflow/internal/model"
	"github.com/trafficflow/trafficflow/internal/obs"
	"github.com/trafficflow/trafficflow/internal/topology"
)

// DefaultPhaseDuration is the base phase length used at initialization and
// as the "normal" duration in prediction-driven adjustment (spec §4.2).
const DefaultPhaseDuration = 8.0 // seconds

// CongestionBoost is the extra duration applied to a phase when any of its
// green lanes has predicted congestion above 0.8 (spec §4.2).
const CongestionBoost = 1.0 // seconds

// ErrInvalidPhaseIndex is returned by SetPhaseDuration for an out-of-range
// index (spec §7 InvalidPhaseIndex: no-op with a logged warning — the
// "logged" half is the caller's job, the "no-op" half is this error).
var ErrInvalidPhaseIndex = &invalidPhaseIndexError{}

type invalidPhaseIndexError struct{}

func (*invalidPhaseIndexError) Error() string { return "lightctl: phase index out of range" }

// IntersectionController owns one light-controlled intersection's phase
// cycle and optional emergency override.
type IntersectionController struct {
	mu            sync.Mutex
	phases        []*model.TrafficLightPhase
	currentIndex  int
	elapsed       float64
	laneNames     map[string]struct{}
	override      map[string]struct{} // nil when no override is active
}

// newIntersectionController builds a controller from the partitioned phase
// list; callers (NewTrafficLightController) guarantee len(phases) > 0.
func newIntersectionController(phases []*model.TrafficLightPhase, lanes []string) *IntersectionController {
	laneSet := make(map[string]struct{}, len(lanes))
	for _, l := range lanes {
		laneSet[l] = struct{}{}
	}
	return &IntersectionController{phases: phases, laneNames: laneSet}
}

// Tick advances elapsed-in-phase by one second and rotates to the next
// phase when elapsed-in-phase reaches the current phase's duration. No-op while an
// emergency override is active (spec §4.2 tick loop).
func (ic *IntersectionController) Tick() {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if ic.override != nil {
		return
	}
	ic.elapsed++
	if ic.elapsed >= ic.phases[ic.currentIndex].GetDuration() {
		ic.elapsed = 0
		ic.currentIndex = (ic.currentIndex + 1) % len(ic.phases)
		obs.PhaseRotations.Inc()
	}
}

// IsGreen reports whether lane is green right now: the override set if one
// is active, else the current phase's green set (spec §4.2 green query).
func (ic *IntersectionController) IsGreen(lane string) bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if ic.override != nil {
		_, ok := ic.override[lane]
		return ok
	}
	return ic.phases[ic.currentIndex].IsGreen(lane)
}

// RemainingPhaseSeconds reports how many seconds remain in the current
// phase, used by a vehicle task waiting on a red light (spec §4.1 step 3).
func (ic *IntersectionController) RemainingPhaseSeconds() float64 {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	remaining := ic.phases[ic.currentIndex].GetDuration() - ic.elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// SetEmergencyOverride installs an override naming laneSet as green,
// suspending the phase cycle. Last writer wins (spec §9 open question,
// resolved as option (a): a simple green-lane set, no opposite-direction
// extension).
func (ic *IntersectionController) SetEmergencyOverride(laneSet map[string]struct{}) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.override = laneSet
	obs.EmergencyOverrides.Inc()
}

// ClearEmergencyOverride removes any active override, resuming the normal
// phase cycle from its frozen elapsed count.
func (ic *IntersectionController) ClearEmergencyOverride() {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	ic.override = nil
}

// HasOverride reports whether an emergency override is currently active.
func (ic *IntersectionController) HasOverride() bool {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.override != nil
}

// AdjustPhaseDurationsBasedOnPrediction sets each phase's duration to
// base+1s if any of its green lanes has predicted congestion above 0.8,
// else back to base (spec §4.2).
func (ic *IntersectionController) AdjustPhaseDurationsBasedOnPrediction(predictedLaneCongestion map[string]float64, base float64) {
	ic.mu.Lock()
	phases := append([]*model.TrafficLightPhase(nil), ic.phases...)
	ic.mu.Unlock()

	for _, phase := range phases {
		boosted := false
		for lane := range phase.GreenLanes {
			if predictedLaneCongestion[lane] > 0.8 {
				boosted = true
				break
			}
		}
		if boosted {
			phase.SetDuration(base + CongestionBoost)
		} else {
			phase.SetDuration(base)
		}
	}
}

// SetPhaseDuration directly overwrites the named phase's duration (the
// operator adjustment action, spec §4.2). Returns ErrInvalidPhaseIndex for
// an out-of-range index.
func (ic *IntersectionController) SetPhaseDuration(phaseIndex int, newDuration float64) error {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	if phaseIndex < 0 || phaseIndex >= len(ic.phases) {
		return ErrInvalidPhaseIndex
	}
	ic.phases[phaseIndex].SetDuration(newDuration)
	return nil
}

// AddSecondsToCurrentPhase folds a LightAdjustment's add_seconds_green into
// the current phase's duration. The Controller owns phase durations and
// calls this from its own congestion-alert handler (consumer.go).
func (ic *IntersectionController) AddSecondsToCurrentPhase(seconds float64) {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	phase := ic.phases[ic.currentIndex]
	phase.SetDuration(phase.GetDuration() + seconds)
}

// Phases returns a snapshot of the controller's phases (for inspection/UI).
func (ic *IntersectionController) Phases() []*model.TrafficLightPhase {
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return append([]*model.TrafficLightPhase(nil), ic.phases...)
}

// TrafficLightController maps every light-controlled intersection to its
// IntersectionController (spec §3). Construction partitions each
// intersection's outgoing lanes into horizontal/vertical halves (spec §4.2
// Initialization).
type TrafficLightController struct {
	controllers map[model.IntersectionId]*IntersectionController
}

// New builds a TrafficLightController from the static grid, skipping
// intersections with no outgoing lanes and intersections not under
// TrafficLight control.
func New(grid *topology.Grid) *TrafficLightController {
	tlc := &TrafficLightController{controllers: map[model.IntersectionId]*IntersectionController{}}
	for _, isec := range grid.Intersections {
		if isec.Control != model.TrafficLight {
			continue
		}
		outgoing := grid.OutgoingLanes(isec.ID)
		if len(outgoing) == 0 {
			continue
		}

		var horizontal, vertical []string
		for _, l := range outgoing {
			if l.From.Row == l.To.Row {
				horizontal = append(horizontal, l.Name)
			} else if l.From.Col == l.To.Col {
				vertical = append(vertical, l.Name)
			}
		}
		sort.Strings(horizontal)
		sort.Strings(vertical)

		allLanes := make([]string, 0, len(outgoing))
		for _, l := range outgoing {
			allLanes = append(allLanes, l.Name)
		}

		var phases []*model.TrafficLightPhase
		if len(horizontal) > 0 && len(vertical) > 0 {
			phases = []*model.TrafficLightPhase{
				model.NewPhase(horizontal, DefaultPhaseDuration),
				model.NewPhase(vertical, DefaultPhaseDuration),
			}
		} else {
			phases = []*model.TrafficLightPhase{model.NewPhase(allLanes, DefaultPhaseDuration)}
		}

		tlc.controllers[isec.ID] = newIntersectionController(phases, allLanes)
	}
	return tlc
}

// Managed reports whether id is a light-controlled, managed intersection.
func (t *TrafficLightController) Managed(id model.IntersectionId) bool {
	_, ok := t.controllers[id]
	return ok
}

// Controller returns the IntersectionController for id, or nil if id is not
// managed.
func (t *TrafficLightController) Controller(id model.IntersectionId) *IntersectionController {
	return t.controllers[id]
}

// IsLaneGreen is the spec's top-level green query: unmanaged intersections
// are unsignalled and always green (spec §4.2).
func (t *TrafficLightController) IsLaneGreen(id model.IntersectionId, lane string) bool {
	ic, ok := t.controllers[id]
	if !ok {
		return true
	}
	return ic.IsGreen(lane)
}

// Tick advances every managed intersection's phase accounting by one
// second (spec §4.2 tick loop, run by a single supervising task every
// second).
func (t *TrafficLightController) Tick() {
	for _, ic := range t.controllers {
		ic.Tick()
	}
}

// Run calls Tick, then tickFn if non-nil, once per interval given as its
// first argument, until stop is closed (spec §5: "the controller tick loop
// is one task").
func (t *TrafficLightController) Run(ctx time.Duration, stop <-chan struct{}, tickFn func()) {
	ticker := time.NewTicker(ctx)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.Tick()
			if tickFn != nil {
				tickFn()
			}
		}
	}
}

// IDs returns the ids of every managed intersection.
func (t *TrafficLightController) IDs() []model.IntersectionId {
	out := make([]model.IntersectionId, 0, len(t.controllers))
	for id := range t.controllers {
		out = append(out, id)
	}
	return out
}
