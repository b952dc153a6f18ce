// Copyright 2025 James Ross
package monitor

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/lib/pq" // postgres driver

	"github.com/trafficflow/trafficflow/internal/wire"
)

// observation is one traffic_events record's contribution to a day's
// summary, buffered until the next flush.
type observation struct {
	day       time.Time
	accidents int
	delaySum  float64
	delayN    int
}

// DailySummary is one day's rolled-up accident/delay totals, the row shape
// persisted to Postgres.
type DailySummary struct {
	Date            time.Time
	TotalAccidents  int
	AverageDelay    float64
	SampledUpdates  int
	UpdatedAt       time.Time
}

// DailyAggregator buffers traffic_events observations and periodically
// flushes daily rollups to Postgres using a buffer+ticker+upsert shape,
// grouped by calendar day.
type DailyAggregator struct {
	db            *sql.DB
	mu            sync.Mutex
	buffer        []observation
	flushInterval time.Duration
}

// NewDailyAggregator wraps an already-open *sql.DB (e.g. sql.Open("postgres", cfg.DSN)).
func NewDailyAggregator(db *sql.DB, flushInterval time.Duration) *DailyAggregator {
	if flushInterval <= 0 {
		flushInterval = 5 * time.Minute
	}
	return &DailyAggregator{db: db, flushInterval: flushInterval}
}

// ObserveTrafficEvent decodes rec's payload as a wire.TrafficEvent and
// buffers its contribution to today's rollup. Payloads that fail schema
// validation or decoding are silently dropped; the Monitor stores records
// without decoding them, so this is the first check a mirrored record gets.
func (a *DailyAggregator) ObserveTrafficEvent(rec Record) {
	event, err := wire.DecodeTrafficEvent(rec.Payload)
	if err != nil {
		return
	}

	day := time.Unix(int64(event.Timestamp), 0).UTC().Truncate(24 * time.Hour)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.buffer = append(a.buffer, observation{
		day:       day,
		accidents: event.TotalAccidents,
		delaySum:  event.AverageVehicleDelay,
		delayN:    1,
	})
}

// Run flushes the buffer on flushInterval until ctx is cancelled, with a
// final flush on exit.
func (a *DailyAggregator) Run(ctx context.Context) {
	ticker := time.NewTicker(a.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = a.Flush()
			return
		case <-ticker.C:
			_ = a.Flush()
		}
	}
}

// Flush groups buffered observations by day, upserts each day's summary,
// and clears the buffer.
func (a *DailyAggregator) Flush() error {
	a.mu.Lock()
	buffered := a.buffer
	a.buffer = nil
	a.mu.Unlock()

	if len(buffered) == 0 {
		return nil
	}

	for day, summary := range groupByDay(buffered) {
		summary.Date = day
		if err := a.upsert(summary); err != nil {
			return err
		}
	}
	return nil
}

// groupByDay is the pure aggregation step, kept separate from Flush so it
// can be tested without a database.
func groupByDay(obs []observation) map[time.Time]DailySummary {
	out := make(map[time.Time]DailySummary)
	for _, o := range obs {
		s := out[o.day]
		s.TotalAccidents += o.accidents
		s.AverageDelay = (s.AverageDelay*float64(s.SampledUpdates) + o.delaySum*float64(o.delayN)) /
			float64(s.SampledUpdates+o.delayN)
		s.SampledUpdates += o.delayN
		s.UpdatedAt = time.Now()
		out[o.day] = s
	}
	return out
}

func (a *DailyAggregator) upsert(s DailySummary) error {
	if a.db == nil {
		return nil
	}
	const query = `
		INSERT INTO daily_traffic_summary (date, total_accidents, average_delay, sampled_updates, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date) DO UPDATE SET
			total_accidents = daily_traffic_summary.total_accidents + EXCLUDED.total_accidents,
			average_delay = (daily_traffic_summary.average_delay * daily_traffic_summary.sampled_updates +
				EXCLUDED.average_delay * EXCLUDED.sampled_updates) /
				(daily_traffic_summary.sampled_updates + EXCLUDED.sampled_updates),
			sampled_updates = daily_traffic_summary.sampled_updates + EXCLUDED.sampled_updates,
			updated_at = EXCLUDED.updated_at
	`
	_, err := a.db.Exec(query, s.Date, s.TotalAccidents, s.AverageDelay, s.SampledUpdates, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("monitor: upsert daily summary: %w", err)
	}
	return nil
}
