// Copyright 2025 James Ross
package monitor

import "time"

// PostgresConfig configures the optional daily-summary aggregator (spec §6,
// "generate a report"). Nil disables it.
type PostgresConfig struct {
	DSN           string
	FlushInterval time.Duration
}

// S3Config configures the optional long-term archive exporter. Nil disables
// it.
type S3Config struct {
	Bucket    string
	Region    string
	KeyPrefix string
	Endpoint  string
}

// ClickHouseConfig configures the optional structured archive exporter. Nil
// disables it.
type ClickHouseConfig struct {
	DSN   string
	Table string
}

// Config is the Monitor's full configuration.
type Config struct {
	// RecordDir is where each queue's append-only record file lives.
	RecordDir string
	// RotateAfterRecords rotates (compresses and starts a fresh) a queue's
	// current record file once it holds this many records.
	RotateAfterRecords int
	// HotCacheSize bounds how many of each queue's most recent records the
	// Redis-backed hot cache retains for the admin API / TUI.
	HotCacheSize int64
	// ReportCronSpec schedules periodic report generation (spec §6,
	// robfig/cron/v3 standard 5-field format); empty disables scheduling.
	ReportCronSpec string

	Postgres   *PostgresConfig
	S3         *S3Config
	ClickHouse *ClickHouseConfig
}

// DefaultConfig returns sane defaults: local on-disk records, a 500-record
// hot cache, rotation every 10,000 records, no archive backends, no
// scheduled reports.
func DefaultConfig() Config {
	return Config{
		RecordDir:          "./data/records",
		RotateAfterRecords: 10_000,
		HotCacheSize:       500,
		ReportCronSpec:     "",
	}
}
