// Copyright 2025 James Ross
package analyzer

import (
	"fmt"

	"github.com/trafficflow/trafficflow/internal/wire"
)

// RecommendedAction is the fixed message every CongestionAlert carries
// (spec §4.3).
const RecommendedAction = "Adjust traffic light timings to avoid congestion."

// congestionAlerts implements consumer step 3: one CongestionAlert per
// intersection whose current congestion exceeds cfg.CongestionThreshold.
func (a *Analyzer) congestionAlerts(data wire.TrafficData, timestamp uint64) []wire.CongestionAlert {
	var alerts []wire.CongestionAlert
	for idStr, congestion := range data.IntersectionCongestion {
		if congestion <= a.cfg.CongestionThreshold {
			continue
		}
		id := idStr
		alerts = append(alerts, wire.CongestionAlert{
			Timestamp:         timestamp,
			Intersection:      &id,
			Message:           fmt.Sprintf("Intersection %s is congested at %.0f%% occupancy", idStr, congestion*100),
			CongestionPerc:    congestion,
			RecommendedAction: RecommendedAction,
		})
	}
	return alerts
}
