// Copyright 2025 James Ross
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Report is the text summary produced by "generate a report" (spec §6): a
// single occupancy sparkline over the supplied series plus the daily
// accident/delay rollup.
type Report struct {
	GeneratedAt time.Time
	Body        string
}

// ReportGenerator builds a Report from caller-supplied occupancy samples and
// a daily summary. Generate does not read the stored HotCache; cron
// scheduling is done by the separate Scheduler type.
type ReportGenerator struct {
	cache *HotCache
	log   *zap.Logger
}

// NewReportGenerator wires a HotCache into a generator.
func NewReportGenerator(cache *HotCache, log *zap.Logger) *ReportGenerator {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportGenerator{cache: cache, log: log}
}

// Generate renders a report from the given recent occupancy series (one
// value per sampled tick, spec §6's "recent traffic data" listing) plus the
// supplied daily summary.
func (g *ReportGenerator) Generate(occupancySeries []float64, summary DailySummary) Report {
	var b strings.Builder
	fmt.Fprintf(&b, "Traffic report — %s\n\n", summary.Date.Format("2006-01-02"))
	fmt.Fprintf(&b, "Accidents: %d\n", summary.TotalAccidents)
	fmt.Fprintf(&b, "Average vehicle delay: %.2f\n\n", summary.AverageDelay)

	if len(occupancySeries) > 0 {
		b.WriteString(asciigraph.Plot(occupancySeries,
			asciigraph.Height(8),
			asciigraph.Caption("occupancy (recent ticks)")))
		b.WriteString("\n")
	}

	return Report{GeneratedAt: time.Now(), Body: b.String()}
}

// Scheduler runs report generation on a cron schedule (spec §6).
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler parses spec (standard 5-field cron) and registers fn to run
// on each firing. Returns an error if spec does not parse.
func NewScheduler(spec string, fn func()) (*Scheduler, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, fn); err != nil {
		return nil, fmt.Errorf("monitor: invalid report cron spec %q: %w", spec, err)
	}
	return &Scheduler{cron: c}, nil
}

// Start begins the schedule. Cancelling ctx stops it.
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}
