// Copyright 2025 James Ross
package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/broker"
	"github.com/trafficflow/trafficflow/internal/broker/memqueue"
	"github.com/trafficflow/trafficflow/internal/lightctl"
	"github.com/trafficflow/trafficflow/internal/model"
	"github.com/trafficflow/trafficflow/internal/routing"
	"github.com/trafficflow/trafficflow/internal/topology"
	"github.com/trafficflow/trafficflow/internal/wire"
)

// straightLineGrid builds the four-intersection row used by spec §8
// scenario 2: (0,0) -> (0,1) -> (0,2) -> (0,3), lane lengths 300/200/400,
// all light-controlled.
func straightLineGrid(t *testing.T) *topology.Grid {
	t.Helper()
	doc := &topology.Document{
		Nodes: []topology.NodeSpec{
			{Row: 0, Col: 0, Name: "a", IsEntry: true, Control: "traffic_light"},
			{Row: 0, Col: 1, Name: "b", Control: "traffic_light"},
			{Row: 0, Col: 2, Name: "c", Control: "traffic_light"},
			{Row: 0, Col: 3, Name: "d", IsExit: true, Control: "traffic_light"},
		},
		Lanes: []topology.LaneSpec{
			{FromRow: 0, FromCol: 0, ToRow: 0, ToCol: 1, LengthM: 300},
			{FromRow: 0, FromCol: 1, ToRow: 0, ToCol: 2, LengthM: 200},
			{FromRow: 0, FromCol: 2, ToRow: 0, ToCol: 3, LengthM: 400},
		},
	}
	grid, err := topology.Load(doc)
	require.NoError(t, err)
	return grid
}

func TestEmptyWorldTickPublishesZeroedSnapshot(t *testing.T) {
	grid, err := topology.DefaultGrid()
	require.NoError(t, err)
	tlc := lightctl.New(grid)
	b := memqueue.New()
	w := NewWorld(grid, tlc, b, zap.NewNop(), DefaultConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	deliveries, err := b.Consume(ctx, broker.QueueTrafficData)
	require.NoError(t, err)

	w.PublishSnapshot(ctx, 1234)

	select {
	case d := <-deliveries:
		update, err := wire.DecodeTrafficUpdate(d.Payload)
		require.NoError(t, err)
		require.Equal(t, uint64(1234), update.Timestamp)
		require.Empty(t, update.CurrentData.AccidentLanes)
		require.Empty(t, update.CurrentData.VehicleData)
		for _, occ := range update.CurrentData.LaneOccupancy {
			require.Zero(t, occ)
		}
		for _, cong := range update.CurrentData.IntersectionCongestion {
			require.Zero(t, cong)
		}
		require.NoError(t, d.Ack())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
}

func TestSpawnAndTraverseStraightLineJourney(t *testing.T) {
	grid := straightLineGrid(t)
	// straightLineGrid has only horizontal lanes, so every managed
	// intersection here gets a single all-lanes-green phase (spec §4.2
	// initialization) — always green, no red-light wait to isolate against.
	tlc := lightctl.New(grid)

	cfg := DefaultConfig()
	b := memqueue.New()
	w := NewWorld(grid, tlc, b, zap.NewNop(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	from := grid.Intersections[0].ID
	to := grid.Intersections[3].ID

	route, ok := routing.ShortestPath(grid.Lanes, from, to, w.excludeLane)
	require.True(t, ok)
	require.Len(t, route, 3)

	vehicle := model.NewVehicle(1, model.Car, from, to, 100, model.TypeTable[model.Car].Length)
	w.trackActive(vehicle.ID)

	done := make(chan struct{})
	go func() {
		w.runVehicle(ctx, vehicle, route)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(15 * time.Second):
		t.Fatal("vehicle task did not complete in time")
	}

	require.Equal(t, 0, w.ActiveVehicleCount())
	events := w.drainEvents()
	require.Len(t, events, 1)
	require.Equal(t, "", events[0].CurrentLane)
	require.LessOrEqual(t, events[0].WaitingTime, uint64(16))
}

func TestAccidentMarkedLaneIsExcludedFromRouting(t *testing.T) {
	grid := straightLineGrid(t)
	tlc := lightctl.New(grid)
	cfg := DefaultConfig()
	b := memqueue.New()
	w := NewWorld(grid, tlc, b, zap.NewNop(), cfg)

	middle := grid.Lanes[1] // "(0,1) -> (0,2)"
	middle.SetAccident(true)

	from := grid.Intersections[0].ID
	to := grid.Intersections[3].ID
	_, ok := routing.ShortestPath(grid.Lanes, from, to, w.excludeLane)
	require.False(t, ok, "no alternative exists in a single-row grid once the only link is blocked")
}

func TestEmergencyVanPreemptsRedLightAndClearsOverrideOnDeparture(t *testing.T) {
	grid := straightLineGrid(t)
	tlc := lightctl.New(grid)
	firstID := grid.Intersections[0].ID
	ic := tlc.Controller(firstID)
	require.NotNil(t, ic)

	lane := grid.Lanes[0]
	// Force the lane's phase red by advancing past its duration into the
	// other phase (partition guarantees two phases on this straight row
	// only if both horizontal and vertical lanes exist; this grid has only
	// horizontal lanes, so it gets a single always-on phase — install a
	// manual override scenario directly instead of relying on redness).
	ic.SetEmergencyOverride(map[string]struct{}{"unrelated-lane": {}})
	require.False(t, ic.IsGreen(lane.Name))

	cfg := DefaultConfig()
	b := memqueue.New()
	w := NewWorld(grid, tlc, b, zap.NewNop(), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	v := model.NewVehicle(1, model.EmergencyVan, firstID, grid.Intersections[3].ID, 150, model.TypeTable[model.EmergencyVan].Length)
	require.True(t, w.signalCheck(ctx, v, lane))
	require.True(t, ic.IsGreen(lane.Name))

	w.clearEmergencyOverrideAfterDeparture(v, lane)
	require.False(t, ic.HasOverride())
}
