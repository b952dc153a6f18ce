// Copyright 2025 James Ross
package monitor

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/broker"
	"github.com/trafficflow/trafficflow/internal/broker/memqueue"
	"github.com/trafficflow/trafficflow/internal/wire"
)

func newTestHotCache(t *testing.T) *HotCache {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewHotCache(client, 5)
}

func TestRecordStoreAppendWritesNDJSONLine(t *testing.T) {
	dir := t.TempDir()
	store, err := NewRecordStore(dir, 10_000)
	require.NoError(t, err)
	defer store.Close()

	rec, err := store.Append(broker.QueueTrafficData, []byte(`{"timestamp":1}`))
	require.NoError(t, err)
	require.Equal(t, broker.QueueTrafficData, rec.Queue)
	require.NotEmpty(t, rec.ID)

	data, err := os.ReadFile(filepath.Join(dir, broker.QueueTrafficData, "current.ndjson"))
	require.NoError(t, err)

	var decoded Record
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &decoded)) // strip trailing newline
	require.Equal(t, rec.ID, decoded.ID)
}

func TestRecordStoreRotatesAfterThreshold(t *testing.T) {
	dir := t.TempDir()
	store, err := NewRecordStore(dir, 2)
	require.NoError(t, err)
	defer store.Close()

	for i := 0; i < 3; i++ {
		_, err := store.Append(broker.QueueTrafficEvents, []byte(`{"timestamp":1}`))
		require.NoError(t, err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, broker.QueueTrafficEvents))
	require.NoError(t, err)

	var sawArchive, sawCurrent bool
	for _, e := range entries {
		switch {
		case e.Name() == "current.ndjson":
			sawCurrent = true
		case filepath.Ext(e.Name()) == ".zst":
			sawArchive = true
		}
	}
	require.True(t, sawCurrent, "rotation must leave a fresh current.ndjson")
	require.True(t, sawArchive, "rotation must produce a compressed archive file")
}

func TestHotCachePushAndRecentTrimsToMaxLength(t *testing.T) {
	cache := newTestHotCache(t)
	ctx := context.Background()

	for i := 0; i < 8; i++ {
		rec := Record{ID: string(rune('a' + i)), Queue: broker.QueueCongestionAlerts, ReceivedAt: time.Now()}
		require.NoError(t, cache.Push(ctx, rec))
	}

	recent, err := cache.Recent(ctx, broker.QueueCongestionAlerts, 10)
	require.NoError(t, err)
	require.Len(t, recent, 5, "LTRIM must cap at maxLength even though 8 were pushed")
	require.Equal(t, "h", recent[0].ID, "most recently pushed record must come first")
}

func TestGroupByDayAccumulatesAccidentsAndWeightedDelay(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	obs := []observation{
		{day: day, accidents: 1, delaySum: 4.0, delayN: 1},
		{day: day, accidents: 2, delaySum: 6.0, delayN: 1},
	}

	grouped := groupByDay(obs)
	s := grouped[day]
	require.Equal(t, 3, s.TotalAccidents)
	require.InDelta(t, 5.0, s.AverageDelay, 1e-9)
	require.Equal(t, 2, s.SampledUpdates)
}

func TestDailyAggregatorObserveTrafficEventSkipsMalformedPayload(t *testing.T) {
	agg := NewDailyAggregator(nil, time.Minute)
	agg.ObserveTrafficEvent(Record{Payload: []byte(`not json`)})
	require.Empty(t, agg.buffer)

	event := wire.TrafficEvent{Timestamp: uint64(time.Now().Unix()), TotalAccidents: 1, AverageVehicleDelay: 2.5, AccidentDetails: []wire.AccidentDetail{}}
	payload, err := wire.Marshal(event)
	require.NoError(t, err)
	agg.ObserveTrafficEvent(Record{Payload: payload})
	require.Len(t, agg.buffer, 1)
}

func TestMonitorRunMirrorsAllFourQueuesIntoRecordStore(t *testing.T) {
	dir := t.TempDir()
	store, err := NewRecordStore(dir, 10_000)
	require.NoError(t, err)
	defer store.Close()

	cache := newTestHotCache(t)
	m := New(store, cache, nil)

	b := memqueue.New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = m.Run(ctx, b, zap.NewNop()) }()

	require.NoError(t, b.Publish(ctx, broker.QueueTrafficData, []byte(`{"timestamp":1}`)))

	require.Eventually(t, func() bool {
		entries, err := os.ReadDir(filepath.Join(dir, broker.QueueTrafficData))
		return err == nil && len(entries) > 0
	}, time.Second, 10*time.Millisecond)
}
