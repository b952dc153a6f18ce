// Copyright 2025 James Ross
package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTrafficUpdateRoundTrip(t *testing.T) {
	ts := int64(12345)
	update := TrafficUpdate{
		Timestamp: 1700000000,
		CurrentData: TrafficData{
			LaneOccupancy:           map[string]float64{"(0,0) -> (0,1)": 0.42},
			AccidentLanes:           []string{},
			IntersectionCongestion:  map[string]float64{"IntersectionId(0, 0)": 0.1},
			IntersectionWaitingTime: map[string]float64{"IntersectionId(0, 0)": 3.5},
			VehicleData: []VehicleData{
				{ID: 7, WaitingTime: 12, AccidentTimestamp: &ts, Severity: 2, CurrentLane: "(0,0) -> (0,1)"},
			},
		},
	}

	b, err := Marshal(update)
	require.NoError(t, err)

	decoded, err := DecodeTrafficUpdate(b)
	require.NoError(t, err)
	require.Equal(t, update, decoded)
}

func TestDecodeTrafficUpdateRejectsMissingFields(t *testing.T) {
	_, err := DecodeTrafficUpdate([]byte(`{"timestamp": 1}`))
	require.Error(t, err)
	var invalid *ErrInvalidPayload
	require.ErrorAs(t, err, &invalid)
}

func TestDecodeCongestionAlertAllowsNilIntersection(t *testing.T) {
	alert := CongestionAlert{
		Timestamp:         1700000000,
		Intersection:      nil,
		Message:           "congestion detected",
		CongestionPerc:    0.6,
		RecommendedAction: "Adjust traffic light timings to avoid congestion.",
	}
	b, err := Marshal(alert)
	require.NoError(t, err)

	decoded, err := DecodeCongestionAlert(b)
	require.NoError(t, err)
	require.Equal(t, alert, decoded)
}

func TestDecodeLightAdjustmentRejectsMalformedJSON(t *testing.T) {
	_, err := DecodeLightAdjustment([]byte(`not json`))
	require.Error(t, err)
}
