// Copyright 2025 James Ross
package simulation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/broker/memqueue"
	"github.com/trafficflow/trafficflow/internal/lightctl"
	"github.com/trafficflow/trafficflow/internal/topology"
)

func TestRushHourSpawnCountBoundaries(t *testing.T) {
	cfg := DefaultConfig()

	cases := []struct {
		elapsed int64
		want    int
	}{
		{0, 2},
		{20, 5},
		{40, 2},
		{60, 5},
	}
	for _, c := range cases {
		require.Equal(t, c.want, cfg.RushHourSpawnCount(c.elapsed), "elapsed=%d", c.elapsed)
	}
}

func BenchmarkSpawnVehicle(b *testing.B) {
	grid, err := topology.DefaultGrid()
	require.NoError(b, err)
	tlc := lightctl.New(grid)
	broker := memqueue.New()
	w := NewWorld(grid, tlc, broker, zap.NewNop(), DefaultConfig())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		w.spawnOne(ctx)
	}
}

func TestPickVehicleTypeCumulativeThresholds(t *testing.T) {
	require.Equal(t, "Car", PickVehicleType(0).String())
	require.Equal(t, "Car", PickVehicleType(0.69).String())
	require.Equal(t, "Truck", PickVehicleType(0.70).String())
	require.Equal(t, "Truck", PickVehicleType(0.89).String())
	require.Equal(t, "Bus", PickVehicleType(0.90).String())
	require.Equal(t, "Bus", PickVehicleType(0.98).String())
	require.Equal(t, "EmergencyVan", PickVehicleType(0.99).String())
	require.Equal(t, "EmergencyVan", PickVehicleType(0.999).String())
}
