// Copyright 2025 James Ross
// Package tui implements the Monitor's operator interface (spec §6) as a
// full-screen bubbletea program, replacing the original CLI's numbered
// fmt.Scanln loop with tabs, a table per queue, and a form for manually
// publishing a LightAdjustment — the same six actions, a richer surface.
package tui

import (
	"time"

	"github.com/trafficflow/trafficflow/internal/broker"
	"github.com/trafficflow/trafficflow/internal/monitor"
)

// tab selects which queue's records the table is currently showing.
type tab int

const (
	tabTrafficData tab = iota
	tabAlerts
	tabEvents
	tabAdjustments
	tabCount
)

func (t tab) title() string {
	switch t {
	case tabTrafficData:
		return "Traffic Data"
	case tabAlerts:
		return "Congestion Alerts"
	case tabEvents:
		return "Traffic Events"
	case tabAdjustments:
		return "Light Adjustments"
	default:
		return "?"
	}
}

func (t tab) queue() string {
	switch t {
	case tabTrafficData:
		return broker.QueueTrafficData
	case tabAlerts:
		return broker.QueueCongestionAlerts
	case tabEvents:
		return broker.QueueTrafficEvents
	case tabAdjustments:
		return broker.QueueLightAdjustments
	default:
		return ""
	}
}

// mode selects which overlay, if any, is capturing input.
type mode int

const (
	modeBrowse mode = iota
	modeFilter
	modeAdjustForm
	modeReport
)

// recordsMsg carries a refreshed page of records for the active tab.
type recordsMsg struct {
	tab     tab
	records []monitor.Record
	err     error
}

// adjustmentPublishedMsg reports the outcome of a manual publish.
type adjustmentPublishedMsg struct {
	intersectionID string
	addSeconds     uint32
	err            error
}

// reportMsg carries a freshly generated report.
type reportMsg struct {
	report monitor.Report
	err    error
}

// tickMsg triggers the next periodic refresh.
type tickMsg time.Time
