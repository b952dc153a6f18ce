// Copyright 2025 James Ross
package analyzer

import (
	"math"

	"github.com/trafficflow/trafficflow/internal/wire"
)

// aggregateEvent implements consumer step 4: mean waiting time (rounded to
// 2 decimals) and accident count across one update's VehicleData entries
// (spec §4.3).
func (a *Analyzer) aggregateEvent(data wire.TrafficData, timestamp uint64) wire.TrafficEvent {
	details := make([]wire.AccidentDetail, 0)
	var waitSum float64
	for _, vd := range data.VehicleData {
		waitSum += float64(vd.WaitingTime)
		if vd.AccidentTimestamp != nil {
			details = append(details, wire.AccidentDetail{
				VehicleID:         vd.ID,
				AccidentTimestamp: uint64(*vd.AccidentTimestamp),
				Severity:          vd.Severity,
				CurrentLane:       vd.CurrentLane,
			})
		}
	}

	var avg float64
	if n := len(data.VehicleData); n > 0 {
		avg = math.Round(waitSum/float64(n)*100) / 100
	}

	return wire.TrafficEvent{
		Timestamp:           timestamp,
		AverageVehicleDelay: avg,
		TotalAccidents:      len(details),
		AccidentDetails:     details,
	}
}
