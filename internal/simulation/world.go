// Copyright 2025 James Ross
package simulation

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/broker"
	"github.com/trafficflow/trafficflow/internal/lightctl"
	"github.com/trafficflow/trafficflow/internal/model"
	"github.com/trafficflow/trafficflow/internal/obs"
	"github.com/trafficflow/trafficflow/internal/routing"
	"github.com/trafficflow/trafficflow/internal/topology"
	"github.com/trafficflow/trafficflow/internal/wire"
)

// World owns the authoritative simulation state: the static grid, the
// traffic light controller, and the two pieces of genuinely mutable shared
// state spec §5 calls out — the active-vehicle-id set and the pending
// vehicle-event buffer — both guarded by a single mutex so no task ever
// holds more than one lock across a suspension point. Lanes and vehicles
// carry their own internal locks (see internal/model) for the
// finer-grained, high-contention occupancy bookkeeping.
type World struct {
	grid          *topology.Grid
	lanesByName   map[string]*model.Lane
	intersections map[model.IntersectionId]model.Intersection
	controller    *lightctl.TrafficLightController
	broker        broker.Broker
	log           *zap.Logger
	cfg           Config

	mu               sync.Mutex
	activeVehicleIDs map[uint64]struct{}
	pendingEvents    []wire.VehicleData
	nextID           uint64
}

// NewWorld builds a World over grid, driven by controller and publishing
// through b.
func NewWorld(grid *topology.Grid, controller *lightctl.TrafficLightController, b broker.Broker, log *zap.Logger, cfg Config) *World {
	lanesByName := make(map[string]*model.Lane, len(grid.Lanes))
	for _, l := range grid.Lanes {
		lanesByName[l.Name] = l
	}
	return &World{
		grid:             grid,
		lanesByName:      lanesByName,
		intersections:    grid.ByID(),
		controller:       controller,
		broker:           b,
		log:              log,
		cfg:              cfg,
		activeVehicleIDs: make(map[uint64]struct{}),
	}
}

func (w *World) nextVehicleID() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextID++
	return w.nextID
}

func (w *World) trackActive(id uint64) {
	w.mu.Lock()
	w.activeVehicleIDs[id] = struct{}{}
	w.mu.Unlock()
}

func (w *World) untrackActive(id uint64) {
	w.mu.Lock()
	delete(w.activeVehicleIDs, id)
	w.mu.Unlock()
}

func (w *World) emitEvent(ev wire.VehicleData) {
	w.mu.Lock()
	w.pendingEvents = append(w.pendingEvents, ev)
	w.mu.Unlock()
}

func (w *World) drainEvents() []wire.VehicleData {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pendingEvents) == 0 {
		return nil
	}
	out := w.pendingEvents
	w.pendingEvents = nil
	return out
}

// ActiveVehicleCount reports how many vehicles are currently in flight
// (for tests and the operator TUI).
func (w *World) ActiveVehicleCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.activeVehicleIDs)
}

// excludeLane implements spec §4.1/§4.5's routing pre-filter: accident
// lanes and lanes over the configured congestion threshold are excluded
// from candidate routes.
func (w *World) excludeLane(l *model.Lane) bool {
	if l.HasAccident() {
		return true
	}
	return l.Occupancy() > w.cfg.CongestionExcludeThreshold
}

// pickEntryExit chooses a uniformly random (entry, exit) pair, retrying on
// equality (spec §4.1: "rejecting if equal"). Returns false if no distinct
// pair exists after a bounded number of attempts.
func (w *World) pickEntryExit() (entry, exit model.IntersectionId, ok bool) {
	entries := w.grid.EntryIDs()
	exits := w.grid.ExitIDs()
	if len(entries) == 0 || len(exits) == 0 {
		return model.IntersectionId{}, model.IntersectionId{}, false
	}
	for attempt := 0; attempt < 10; attempt++ {
		e := entries[rand.Intn(len(entries))]
		x := exits[rand.Intn(len(exits))]
		if e != x {
			return e, x, true
		}
	}
	return model.IntersectionId{}, model.IntersectionId{}, false
}

// spawnOne attempts to create and launch one vehicle (spec §4.1 spawner).
// A discarded spawn (no distinct entry/exit, or no route) is silently
// dropped, per spec's NoRouteAvailable error kind (§7).
func (w *World) spawnOne(ctx context.Context) {
	entry, exit, ok := w.pickEntryExit()
	if !ok {
		return
	}

	typ := PickVehicleType(rand.Float64())
	speedRange := model.TypeTable[typ]
	speed := speedRange.Min + rand.Float64()*(speedRange.Max-speedRange.Min)

	route, ok := routing.ShortestPath(w.grid.Lanes, entry, exit, w.excludeLane)
	if !ok {
		return
	}

	id := w.nextVehicleID()
	v := model.NewVehicle(id, typ, entry, exit, speed, speedRange.Length)
	w.trackActive(id)
	obs.VehiclesSpawned.Inc()

	go w.runVehicle(ctx, v, route)
}

// Spawn launches count vehicles (exported for tests that want deterministic
// counts without going through the rush-hour wave).
func (w *World) Spawn(ctx context.Context, count int) {
	for i := 0; i < count; i++ {
		w.spawnOne(ctx)
	}
}

// Snapshot computes the current TrafficData reading in one pass over lanes
// and intersections (spec §4.1 snapshot emitter, §3). Each lane is read
// under its own lock in turn; no world-wide lock is held, so vehicle tasks
// can change lanes during the pass and the reading is not atomic across
// lanes. It also drains the pending vehicle-event buffer, so it must be
// called at most once per tick.
func (w *World) Snapshot() wire.TrafficData {
	laneOccupancy := make(map[string]float64, len(w.grid.Lanes))
	accidentLanes := make([]string, 0) // marshal as [] not null; the schema requires an array
	for _, l := range w.grid.Lanes {
		laneOccupancy[l.Name] = l.Occupancy()
		if l.HasAccident() {
			accidentLanes = append(accidentLanes, l.Name)
		}
	}

	intersectionCongestion := make(map[string]float64, len(w.intersections))
	intersectionWaitingTime := make(map[string]float64, len(w.intersections))
	for id := range w.intersections {
		outgoing := w.grid.OutgoingLanes(id)
		if len(outgoing) == 0 {
			intersectionCongestion[id.String()] = 0
			intersectionWaitingTime[id.String()] = 0
			continue
		}
		var occSum, waitSum float64
		for _, l := range outgoing {
			occSum += l.Occupancy()
			waitSum += l.WaitingTime()
		}
		intersectionCongestion[id.String()] = occSum / float64(len(outgoing))
		intersectionWaitingTime[id.String()] = waitSum / float64(len(outgoing))
	}

	events := w.drainEvents()
	vehicleData := make([]wire.VehicleData, len(events))
	copy(vehicleData, events)

	return wire.TrafficData{
		LaneOccupancy:           laneOccupancy,
		AccidentLanes:           accidentLanes,
		IntersectionCongestion:  intersectionCongestion,
		IntersectionWaitingTime: intersectionWaitingTime,
		VehicleData:             vehicleData,
	}
}

// PublishSnapshot wraps Snapshot in a TrafficUpdate and publishes it to
// traffic_data. Marshal and publish failures are logged and the tick is
// dropped (spec §4.1 failure semantics) — snapshots are inherently
// replaceable by the next tick, so there is no retry.
func (w *World) PublishSnapshot(ctx context.Context, nowUnixSeconds uint64) {
	update := wire.TrafficUpdate{CurrentData: w.Snapshot(), Timestamp: nowUnixSeconds}
	payload, err := wire.Marshal(update)
	if err != nil {
		w.log.Error("simulation: marshal traffic update, dropping tick", zap.Error(err))
		return
	}
	if err := w.broker.Publish(ctx, broker.QueueTrafficData, payload); err != nil {
		w.log.Warn("simulation: publish traffic update, dropping tick", zap.Error(err))
	}
}

// Run drives the supervisor loop: each tick, compute the rush-hour spawn
// target, spawn that many vehicles, then publish a snapshot (spec §4.1,
// §5). Returns when ctx is cancelled.
func (w *World) Run(ctx context.Context, nowFn func() time.Time) {
	ticker := time.NewTicker(w.cfg.TickInterval)
	defer ticker.Stop()

	var elapsed int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			target := w.cfg.RushHourSpawnCount(elapsed)
			w.Spawn(ctx, target)
			w.PublishSnapshot(ctx, uint64(nowFn().Unix()))
			elapsed += int64(w.cfg.TickInterval / time.Second)
		}
	}
}
