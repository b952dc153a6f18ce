// Copyright 2025 James Ross
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/redis/go-redis/v9"

	"github.com/trafficflow/trafficflow/internal/broker"
	"github.com/trafficflow/trafficflow/internal/config"
	"github.com/trafficflow/trafficflow/internal/monitor"
	"github.com/trafficflow/trafficflow/internal/obs"
	"github.com/trafficflow/trafficflow/internal/topology"
	"github.com/trafficflow/trafficflow/internal/tui"
)

func main() {
	var configPath string
	var refresh time.Duration
	fs := flag.NewFlagSet(os.Args[0], flag.ExitOnError)
	fs.StringVar(&configPath, "config", "config/config.yaml", "Path to YAML config")
	fs.DurationVar(&refresh, "refresh", 3*time.Second, "Refresh interval for the record tables")
	_ = fs.Parse(os.Args[1:])

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := obs.NewLogger(cfg.Observability.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if cfg.Broker.Backend != "redis" {
		fmt.Fprintf(os.Stderr, "cmd/tui requires broker.backend=redis (it reads the Monitor's Redis-backed hot cache directly)\n")
		os.Exit(1)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Broker.Redis.Addr,
		Password: cfg.Broker.Redis.Password,
		DB:       cfg.Broker.Redis.DB,
	})
	defer rdb.Close()
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		fmt.Fprintf(os.Stderr, "redis ping failed: %v\n", err)
	}

	pub, closeBroker, err := broker.New(cfg.Broker, "trafficflow-tui")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init broker: %v\n", err)
		os.Exit(1)
	}
	defer closeBroker()

	cache := monitor.NewHotCache(rdb, cfg.Monitor.HotCacheSize)
	reports := monitor.NewReportGenerator(cache, logger)

	grid, err := loadGrid(cfg.Topology.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load topology: %v\n", err)
		os.Exit(1)
	}

	m := tui.New(cache, pub, reports, logger, grid.Intersections, refresh)
	if _, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run(); err != nil {
		fmt.Fprintf(os.Stderr, "tui error: %v\n", err)
		os.Exit(1)
	}
}

func loadGrid(path string) (*topology.Grid, error) {
	if path == "" {
		return topology.DefaultGrid()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topology file: %w", err)
	}
	return topology.ParseYAML(raw)
}
