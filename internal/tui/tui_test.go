// Copyright 2025 James Ross
package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/trafficflow/trafficflow/internal/monitor"
)

func TestOccupancySeriesAveragesPerRecordAndOrdersChronologically(t *testing.T) {
	newest := monitor.Record{
		ReceivedAt: time.Now(),
		Payload:    []byte(`{"current_data":{"intersection_congestion":{"a":0.8,"b":0.4}},"timestamp":2}`),
	}
	oldest := monitor.Record{
		ReceivedAt: time.Now().Add(-time.Second),
		Payload:    []byte(`{"current_data":{"intersection_congestion":{"a":0.2}},"timestamp":1}`),
	}
	// cache.Recent returns newest-first.
	series := occupancySeries([]monitor.Record{newest, oldest})
	require.Len(t, series, 2)
	require.InDelta(t, 0.2, series[0], 1e-9)
	require.InDelta(t, 0.6, series[1], 1e-9)
}

func TestOccupancySeriesSkipsMalformedPayload(t *testing.T) {
	series := occupancySeries([]monitor.Record{{Payload: []byte(`not json`)}})
	require.Empty(t, series)
}

func TestSummarizeEventsAccumulatesAccidentsAndAverageDelay(t *testing.T) {
	records := []monitor.Record{
		{Payload: []byte(`{"average_vehicle_delay":4,"total_accidents":1,"accident_details":[]}`)},
		{Payload: []byte(`{"average_vehicle_delay":6,"total_accidents":2,"accident_details":[]}`)},
	}
	summary := summarizeEvents(records)
	require.Equal(t, 3, summary.TotalAccidents)
	require.InDelta(t, 5.0, summary.AverageDelay, 1e-9)
	require.Equal(t, 2, summary.SampledUpdates)
}

func TestExtractFieldReadsJSONPath(t *testing.T) {
	payload := []byte(`{"accident_details":[{"severity":3}]}`)
	v, err := extractField(payload, "$.accident_details[0].severity")
	require.NoError(t, err)
	require.EqualValues(t, 3, v)
}

func TestExtractFieldInvalidPathErrors(t *testing.T) {
	payload := []byte(`{"a":1}`)
	_, err := extractField(payload, "$.nonexistent.deeper")
	require.Error(t, err)
}

func TestRowsForBuildsOneRowPerRecord(t *testing.T) {
	records := []monitor.Record{
		{ID: "1", ReceivedAt: time.Now(), Payload: []byte(`{}`)},
		{ID: "2", ReceivedAt: time.Now(), Payload: []byte(`{"x":1}`)},
	}
	rows := rowsFor(records)
	require.Len(t, rows, 2)
	require.Equal(t, "1", rows[0][0])
	require.Equal(t, "2", rows[1][0])
}
