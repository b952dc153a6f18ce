// Copyright 2025 James Ross
package config

import (
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Broker.Backend != "redis" {
		t.Fatalf("expected default broker backend redis, got %q", cfg.Broker.Backend)
	}
	if cfg.Timing.TickInterval.Seconds() != 1 {
		t.Fatalf("expected default tick interval 1s, got %v", cfg.Timing.TickInterval)
	}
	if cfg.Monitor.HotCacheSize != 500 {
		t.Fatalf("expected default hot cache size 500, got %d", cfg.Monitor.HotCacheSize)
	}
}

func TestValidateFails(t *testing.T) {
	cfg := defaultConfig()
	cfg.Broker.Backend = "carrier-pigeon"
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for unknown broker backend")
	}

	cfg = defaultConfig()
	cfg.Timing.TickInterval = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for zero tick_interval")
	}

	cfg = defaultConfig()
	cfg.Monitor.RotateAfterRecords = 0
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for zero rotate_after_records")
	}

	cfg = defaultConfig()
	cfg.Observability.MetricsPort = 70000
	if err := Validate(cfg); err == nil {
		t.Fatalf("expected error for out-of-range metrics_port")
	}
}
