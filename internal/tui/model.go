// Copyright 2025 James Ross
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/broker"
	"github.com/trafficflow/trafficflow/internal/model"
	"github.com/trafficflow/trafficflow/internal/monitor"
)

// Model is the operator TUI's bubbletea model. It reads from the Monitor's
// hot cache and, for manual adjustments, publishes directly onto the
// light_adjustments queue the way the Rust admin CLI's
// adjust_traffic_light_phase did.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	cache   *monitor.HotCache
	pub     broker.Broker
	reports *monitor.ReportGenerator
	log     *zap.Logger

	intersections []model.Intersection

	width  int
	height int

	activeTab tab
	mode      mode
	help      help.Model
	spinner   spinner.Model
	loading   bool
	errText   string

	tbl     table.Model
	records []monitor.Record

	filter       textinput.Model
	filterActive bool
	allRows      []table.Row
	allRecords   []monitor.Record

	// manual adjustment form
	adjustIntersection textinput.Model
	adjustSeconds      textinput.Model
	adjustFocus        int
	adjustStatus       string

	reportView viewport.Model
	lastReport monitor.Report

	refreshEvery time.Duration
}

// New builds the initial Model. intersections is stored on the Model, but no
// view or key handler reads it: the manual-adjustment form's intersection
// field is free text, and the fuzzy filter matches record payloads.
func New(cache *monitor.HotCache, pub broker.Broker, reports *monitor.ReportGenerator, log *zap.Logger, intersections []model.Intersection, refreshEvery time.Duration) Model {
	ctx, cancel := context.WithCancel(context.Background())
	if log == nil {
		log = zap.NewNop()
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	columns := []table.Column{{Title: "ID", Width: 36}, {Title: "Received", Width: 20}, {Title: "Payload", Width: 60}}
	t := table.New(table.WithColumns(columns), table.WithFocused(true))
	t.KeyMap.LineUp.SetKeys("k", "up")
	t.KeyMap.LineDown.SetKeys("j", "down")

	fi := textinput.New()
	fi.Placeholder = "fuzzy filter"
	fi.CharLimit = 64

	ai := textinput.New()
	ai.Placeholder = "IntersectionId(row, col)"
	ai.CharLimit = 40
	as := textinput.New()
	as.Placeholder = "seconds"
	as.CharLimit = 4

	if refreshEvery <= 0 {
		refreshEvery = 3 * time.Second
	}

	return Model{
		ctx:                ctx,
		cancel:             cancel,
		cache:              cache,
		pub:                pub,
		reports:            reports,
		log:                log,
		intersections:      intersections,
		activeTab:          tabTrafficData,
		help:               help.New(),
		spinner:            sp,
		tbl:                t,
		filter:             fi,
		adjustIntersection: ai,
		adjustSeconds:      as,
		reportView:         viewport.New(0, 10),
		refreshEvery:       refreshEvery,
	}
}
