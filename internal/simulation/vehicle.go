// Copyright 2025 James Ross
package simulation

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/model"
	"github.com/trafficflow/trafficflow/internal/obs"
	"github.com/trafficflow/trafficflow/internal/wire"
)

// crashThreshold returns the 90th-percentile speed for typ's range (spec
// §4.1 step 4, §9: the exact split must remain 0.15/0.10 or the accident
// rate shifts materially).
func crashThreshold(typ model.VehicleType) float64 {
	r := model.TypeTable[typ]
	return r.Min + 0.9*(r.Max-r.Min)
}

// runVehicle drives one vehicle through its route (spec §4.1 "Vehicle
// task"). It always releases its current lane occupancy before returning,
// including on panic, and always untracks the vehicle id. It emits one
// terminal VehicleData event when the route completes or the vehicle
// crashes; a task that ends through ctx cancellation or a panic emits none.
func (w *World) runVehicle(ctx context.Context, v *model.Vehicle, route []*model.Lane) {
	var currentLane *model.Lane
	defer func() {
		if currentLane != nil {
			currentLane.Release(v.ID, v.Length)
		}
		if r := recover(); r != nil {
			w.log.Error("simulation: vehicle task panicked, lane occupancy released", zap.Uint64("vehicle_id", v.ID), zap.Any("panic", r))
		}
		w.untrackActive(v.ID)
	}()

	for _, lane := range route {
		if ctx.Err() != nil {
			return
		}
		if !w.admit(ctx, v, lane) {
			return
		}
		currentLane = lane
		v.SetCurrentLane(lane.Name)

		w.accidentWait(ctx, v, lane)

		if !w.signalCheck(ctx, v, lane) {
			return
		}

		if w.accidentRoll(ctx, v, lane) {
			currentLane = nil // accidentRoll already released the lane
			w.emitTerminalEvent(v, lane.Name)
			return
		}

		w.traverse(ctx, v, lane)
		currentLane.Release(v.ID, v.Length)
		currentLane = nil
	}

	v.SetCurrentLane("")
	obs.VehiclesCompleted.Inc()
	w.emitTerminalEvent(v, "")
}

// admit implements step 1: retry every LaneFullRetrySeconds until the lane
// accepts the vehicle (spec §7 LaneFull).
func (w *World) admit(ctx context.Context, v *model.Vehicle, lane *model.Lane) bool {
	for {
		if lane.TryAdmit(v.ID, v.Length) {
			return true
		}
		if !w.sleep(ctx, time.Duration(w.cfg.LaneFullRetrySeconds*float64(time.Second))) {
			return false
		}
		v.AddWaiting(w.cfg.LaneFullRetrySeconds)
	}
}

// accidentWait implements step 2: if the lane already carries an accident,
// wait severity*1.5s — the vehicle's own severity if it is itself the
// accident vehicle, else the configured default (spec §4.1 step 2).
func (w *World) accidentWait(ctx context.Context, v *model.Vehicle, lane *model.Lane) {
	if !lane.HasAccident() {
		return
	}
	isAccident, severity, _ := v.AccidentInfo()
	if !isAccident {
		severity = w.cfg.DefaultAccidentWaitSeverity
	}
	wait := float64(severity) * 1.5
	w.sleep(ctx, time.Duration(wait*float64(time.Second)))
	v.AddWaiting(wait)
}

// signalCheck implements step 3. Returns false if ctx was cancelled
// mid-wait (caller should abandon the vehicle task).
func (w *World) signalCheck(ctx context.Context, v *model.Vehicle, lane *model.Lane) bool {
	if !w.controller.Managed(lane.From) {
		return true
	}

	for {
		if ctx.Err() != nil {
			return false
		}
		if w.controller.IsLaneGreen(lane.From, lane.Name) {
			v.FlushWaiting(time.Now().Unix())
			return true
		}
		if v.Type == model.EmergencyVan {
			ic := w.controller.Controller(lane.From)
			if ic != nil {
				ic.SetEmergencyOverride(map[string]struct{}{lane.Name: {}})
			}
			v.FlushWaiting(time.Now().Unix())
			return true
		}

		v.MarkWaitingStart(time.Now().Unix())
		remaining := w.remainingPhaseSeconds(lane.From)
		if !w.sleep(ctx, time.Duration(remaining*float64(time.Second))) {
			return false
		}
	}
}

func (w *World) remainingPhaseSeconds(id model.IntersectionId) float64 {
	ic := w.controller.Controller(id)
	if ic == nil {
		return 0
	}
	remaining := ic.RemainingPhaseSeconds()
	if remaining <= 0 {
		return 1 // always make forward progress even at a phase boundary
	}
	return remaining
}

// clearEmergencyOverrideAfterDeparture clears an emergency override once an
// EmergencyVan departs the intersection it preempted (spec §8 scenario 3:
// "after the vehicle leaves the lane the override must be cleared before
// the next distinct emergency installs a new one").
func (w *World) clearEmergencyOverrideAfterDeparture(v *model.Vehicle, lane *model.Lane) {
	if v.Type != model.EmergencyVan {
		return
	}
	if !w.controller.Managed(lane.From) {
		return
	}
	ic := w.controller.Controller(lane.From)
	if ic != nil {
		ic.ClearEmergencyOverride()
	}
}

// accidentRoll implements step 4. On crash it releases the lane itself
// (since the caller's currentLane bookkeeping is cleared by the caller) and
// returns true.
func (w *World) accidentRoll(ctx context.Context, v *model.Vehicle, lane *model.Lane) (crashed bool) {
	threshold := crashThreshold(v.Type)
	p := 0.10
	if v.Speed > threshold {
		p = 0.15
	}
	if rand.Float64() >= p {
		return false
	}

	severity := 1 + rand.Intn(3) // uniform in [1,3]
	now := time.Now().Unix()
	v.Crash(severity, now)
	lane.SetAccident(true)
	obs.AccidentsOccurred.Inc()

	wait := float64(severity) * 1.5
	w.sleep(ctx, time.Duration(wait*float64(time.Second)))
	lane.Release(v.ID, v.Length)
	w.clearEmergencyOverrideAfterDeparture(v, lane)
	return true
}

// traverse implements step 5: sleep the travel time, then the caller
// releases the lane and advances.
func (w *World) traverse(ctx context.Context, v *model.Vehicle, lane *model.Lane) {
	w.sleep(ctx, time.Duration(lane.Length/v.Speed*float64(time.Second)))
	w.clearEmergencyOverrideAfterDeparture(v, lane)
}

// sleep blocks for d or until ctx is cancelled, returning false on
// cancellation.
func (w *World) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (w *World) emitTerminalEvent(v *model.Vehicle, currentLane string) {
	_, severity, timestamp := v.AccidentInfo()
	w.emitEvent(wire.VehicleData{
		ID:                v.ID,
		WaitingTime:       uint64(v.WaitingTime()),
		AccidentTimestamp: timestamp,
		Severity:          int8(severity),
		CurrentLane:       currentLane,
	})
}
