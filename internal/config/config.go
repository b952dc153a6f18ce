// Copyright 2025 James Ross
// Package config loads process configuration from a defaultConfig()
// baseline, viper SetDefault calls so env vars and an optional YAML file
// can override any field, and a Validate pass that rejects impossible
// combinations before the services start.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Redis configures the Redis broker backend.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// NATS configures the NATS JetStream broker backend.
type NATS struct {
	URL         string `mapstructure:"url"`
	DurableName string `mapstructure:"durable_name"`
}

// Broker selects and configures the message-broker backend (spec §6).
type Broker struct {
	Backend string `mapstructure:"backend"` // "redis" | "nats" | "memory"
	Redis   Redis  `mapstructure:"redis"`
	NATS    NATS   `mapstructure:"nats"`
}

// Topology points at the grid document the Simulation Engine and Traffic
// Light Controller both load (spec §4.6).
type Topology struct {
	Path string `mapstructure:"path"` // empty uses topology.DefaultGrid()
}

// Timing holds the simulation/controller cadence constants spec §4 fixes.
type Timing struct {
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	PredictionInterval time.Duration `mapstructure:"prediction_interval"`
}

// Analyzer configures the Flow Analyzer's prediction strategy.
type Analyzer struct {
	// PredictionStrategy selects the prediction loop's algorithm:
	// "weighted_average" (spec §4.3's fixed-alpha blend, the default) or
	// "ewma" (internal/forecasting's self-tuning exponential smoother with
	// confidence bounds).
	PredictionStrategy string `mapstructure:"prediction_strategy"`
}

// Postgres configures the Monitor's optional daily-summary aggregator.
type Postgres struct {
	Enabled       bool          `mapstructure:"enabled"`
	DSN           string        `mapstructure:"dsn"`
	FlushInterval time.Duration `mapstructure:"flush_interval"`
}

// S3Archive configures the Monitor's optional S3 archive exporter.
type S3Archive struct {
	Enabled   bool   `mapstructure:"enabled"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	KeyPrefix string `mapstructure:"key_prefix"`
	Endpoint  string `mapstructure:"endpoint"`
}

// ClickHouseArchive configures the Monitor's optional ClickHouse exporter.
type ClickHouseArchive struct {
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
	Table   string `mapstructure:"table"`
}

// Monitor configures the Monitor's record store, hot cache, and optional
// archive backends (spec §3.7).
type Monitor struct {
	RecordDir           string            `mapstructure:"record_dir"`
	RotateAfterRecords  int               `mapstructure:"rotate_after_records"`
	HotCacheSize        int64             `mapstructure:"hot_cache_size"`
	ReportCronSpec      string            `mapstructure:"report_cron_spec"`
	Postgres            Postgres          `mapstructure:"postgres"`
	S3                  S3Archive         `mapstructure:"s3"`
	ClickHouse          ClickHouseArchive `mapstructure:"clickhouse"`
}

// AdminAPI configures the read-only HTTP surface (spec §3.7).
type AdminAPI struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Observability configures logging, metrics, and tracing.
type Observability struct {
	MetricsPort         int           `mapstructure:"metrics_port"`
	LogLevel            string        `mapstructure:"log_level"`
	QueueSampleInterval time.Duration `mapstructure:"queue_sample_interval"`
	Tracing             Tracing       `mapstructure:"tracing"`
}

// Tracing configures the optional OpenTelemetry exporter.
type Tracing struct {
	Enabled      bool    `mapstructure:"enabled"`
	Endpoint     string  `mapstructure:"endpoint"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
}

// Config is the full process configuration for any trafficflow role.
type Config struct {
	Broker        Broker        `mapstructure:"broker"`
	Topology      Topology      `mapstructure:"topology"`
	Timing        Timing        `mapstructure:"timing"`
	Analyzer      Analyzer      `mapstructure:"analyzer"`
	Monitor       Monitor       `mapstructure:"monitor"`
	AdminAPI      AdminAPI      `mapstructure:"admin_api"`
	Observability Observability `mapstructure:"observability"`
}

func defaultConfig() *Config {
	return &Config{
		Broker: Broker{
			Backend: "redis",
			Redis:   Redis{Addr: "localhost:6379"},
			NATS:    NATS{URL: "nats://localhost:4222", DurableName: "trafficflow"},
		},
		Topology: Topology{Path: ""},
		Timing: Timing{
			TickInterval:       1 * time.Second,
			PredictionInterval: 10 * time.Second,
		},
		Analyzer: Analyzer{PredictionStrategy: "weighted_average"},
		Monitor: Monitor{
			RecordDir:          "./data/records",
			RotateAfterRecords: 10_000,
			HotCacheSize:       500,
			ReportCronSpec:     "",
		},
		AdminAPI: AdminAPI{ListenAddr: ":8081"},
		Observability: Observability{
			MetricsPort:         9090,
			LogLevel:            "info",
			QueueSampleInterval: 2 * time.Second,
			Tracing:             Tracing{Enabled: false, SamplingRate: 1.0},
		},
	}
}

// Load reads configuration from a YAML file (if it exists) plus environment
// variable overrides, falling back to defaultConfig for anything unset.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TRAFFICFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := defaultConfig()
	v.SetDefault("broker.backend", def.Broker.Backend)
	v.SetDefault("broker.redis.addr", def.Broker.Redis.Addr)
	v.SetDefault("broker.redis.password", def.Broker.Redis.Password)
	v.SetDefault("broker.redis.db", def.Broker.Redis.DB)
	v.SetDefault("broker.nats.url", def.Broker.NATS.URL)
	v.SetDefault("broker.nats.durable_name", def.Broker.NATS.DurableName)

	v.SetDefault("topology.path", def.Topology.Path)

	v.SetDefault("timing.tick_interval", def.Timing.TickInterval)
	v.SetDefault("timing.prediction_interval", def.Timing.PredictionInterval)

	v.SetDefault("analyzer.prediction_strategy", def.Analyzer.PredictionStrategy)

	v.SetDefault("monitor.record_dir", def.Monitor.RecordDir)
	v.SetDefault("monitor.rotate_after_records", def.Monitor.RotateAfterRecords)
	v.SetDefault("monitor.hot_cache_size", def.Monitor.HotCacheSize)
	v.SetDefault("monitor.report_cron_spec", def.Monitor.ReportCronSpec)
	v.SetDefault("monitor.postgres.enabled", def.Monitor.Postgres.Enabled)
	v.SetDefault("monitor.postgres.flush_interval", 5*time.Minute)
	v.SetDefault("monitor.s3.enabled", def.Monitor.S3.Enabled)
	v.SetDefault("monitor.clickhouse.enabled", def.Monitor.ClickHouse.Enabled)

	v.SetDefault("admin_api.listen_addr", def.AdminAPI.ListenAddr)

	v.SetDefault("observability.metrics_port", def.Observability.MetricsPort)
	v.SetDefault("observability.log_level", def.Observability.LogLevel)
	v.SetDefault("observability.queue_sample_interval", def.Observability.QueueSampleInterval)
	v.SetDefault("observability.tracing.enabled", def.Observability.Tracing.Enabled)
	v.SetDefault("observability.tracing.endpoint", def.Observability.Tracing.Endpoint)
	v.SetDefault("observability.tracing.sampling_rate", def.Observability.Tracing.SamplingRate)

	if _, err := os.Stat(path); err == nil {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configuration combinations that would break a running
// service rather than fail fast at startup.
func Validate(cfg *Config) error {
	switch cfg.Broker.Backend {
	case "redis", "nats", "memory":
	default:
		return fmt.Errorf("config: broker.backend must be redis, nats, or memory, got %q", cfg.Broker.Backend)
	}
	if cfg.Timing.TickInterval <= 0 {
		return fmt.Errorf("config: timing.tick_interval must be > 0")
	}
	if cfg.Timing.PredictionInterval <= 0 {
		return fmt.Errorf("config: timing.prediction_interval must be > 0")
	}
	switch cfg.Analyzer.PredictionStrategy {
	case "weighted_average", "ewma":
	default:
		return fmt.Errorf("config: analyzer.prediction_strategy must be weighted_average or ewma, got %q", cfg.Analyzer.PredictionStrategy)
	}
	if cfg.Monitor.RotateAfterRecords <= 0 {
		return fmt.Errorf("config: monitor.rotate_after_records must be > 0")
	}
	if cfg.Monitor.HotCacheSize <= 0 {
		return fmt.Errorf("config: monitor.hot_cache_size must be > 0")
	}
	if cfg.Observability.MetricsPort <= 0 || cfg.Observability.MetricsPort > 65535 {
		return fmt.Errorf("config: observability.metrics_port must be 1..65535")
	}
	return nil
}
