// Copyright 2025 James Ross
package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/trafficflow/trafficflow/internal/broker"
	"github.com/trafficflow/trafficflow/internal/monitor"
	"github.com/trafficflow/trafficflow/internal/wire"
)

const defaultPageSize = 50

func fetchRecordsCmd(ctx context.Context, m Model, t tab) tea.Cmd {
	return func() tea.Msg {
		records, err := m.cache.Recent(ctx, t.queue(), defaultPageSize)
		return recordsMsg{tab: t, records: records, err: err}
	}
}

func tickCmd(every time.Duration) tea.Cmd {
	return tea.Tick(every, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// publishAdjustmentCmd mirrors the Rust CLI's adjust_traffic_light_phase: it
// only publishes onto light_adjustments for the Monitor to record (spec §9
// resolves application authority to the Controller, which never consumes
// this queue), so a manual publish is an observational, not corrective,
// action — exactly the original CLI's behavior.
func publishAdjustmentCmd(ctx context.Context, m Model, intersectionID string, addSeconds uint32) tea.Cmd {
	return func() tea.Msg {
		adj := wire.LightAdjustment{
			Timestamp:       uint64(time.Now().Unix()),
			IntersectionID:  intersectionID,
			AddSecondsGreen: addSeconds,
		}
		payload, err := wire.Marshal(adj)
		if err != nil {
			return adjustmentPublishedMsg{intersectionID: intersectionID, addSeconds: addSeconds, err: err}
		}
		err = m.pub.Publish(ctx, broker.QueueLightAdjustments, payload)
		return adjustmentPublishedMsg{intersectionID: intersectionID, addSeconds: addSeconds, err: err}
	}
}

// generateReportCmd builds an occupancy series and daily summary straight
// from the hot cache's most recent traffic_data/traffic_events records —
// no Postgres dependency required for the operator's "generate a report"
// action, which must work even when the archive backends are disabled.
func generateReportCmd(ctx context.Context, m Model) tea.Cmd {
	return func() tea.Msg {
		dataRecords, err := m.cache.Recent(ctx, broker.QueueTrafficData, defaultPageSize)
		if err != nil {
			return reportMsg{err: fmt.Errorf("tui: fetch traffic_data: %w", err)}
		}
		eventRecords, err := m.cache.Recent(ctx, broker.QueueTrafficEvents, defaultPageSize)
		if err != nil {
			return reportMsg{err: fmt.Errorf("tui: fetch traffic_events: %w", err)}
		}

		series := occupancySeries(dataRecords)
		summary := summarizeEvents(eventRecords)
		report := m.reports.Generate(series, summary)
		return reportMsg{report: report}
	}
}

func occupancySeries(records []monitor.Record) []float64 {
	out := make([]float64, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		var update wire.TrafficUpdate
		if err := json.Unmarshal(records[i].Payload, &update); err != nil {
			continue
		}
		if len(update.CurrentData.IntersectionCongestion) == 0 {
			continue
		}
		var sum float64
		for _, v := range update.CurrentData.IntersectionCongestion {
			sum += v
		}
		out = append(out, sum/float64(len(update.CurrentData.IntersectionCongestion)))
	}
	return out
}

func summarizeEvents(records []monitor.Record) monitor.DailySummary {
	var accidents int
	var delaySum float64
	var n int
	for _, r := range records {
		var ev wire.TrafficEvent
		if err := json.Unmarshal(r.Payload, &ev); err != nil {
			continue
		}
		accidents += ev.TotalAccidents
		delaySum += ev.AverageVehicleDelay
		n++
	}
	avg := 0.0
	if n > 0 {
		avg = delaySum / float64(n)
	}
	return monitor.DailySummary{
		Date:           time.Now(),
		TotalAccidents: accidents,
		AverageDelay:   avg,
		SampledUpdates: n,
		UpdatedAt:      time.Now(),
	}
}
