// Copyright 2025 James Ross
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/analyzer"
	"github.com/trafficflow/trafficflow/internal/broker"
	"github.com/trafficflow/trafficflow/internal/config"
	"github.com/trafficflow/trafficflow/internal/lightctl"
	"github.com/trafficflow/trafficflow/internal/monitor"
	"github.com/trafficflow/trafficflow/internal/obs"
	"github.com/trafficflow/trafficflow/internal/simulation"
	"github.com/trafficflow/trafficflow/internal/topology"
	"github.com/trafficflow/trafficflow/internal/wire"
)

func flagSet() *flag.FlagSet {
	return flag.NewFlagSet(os.Args[0], flag.ExitOnError)
}

// scheduledOccupancySeries pulls the most recent traffic_data records out
// of the hot cache and averages each record's per-intersection congestion
// into one point, oldest first, for the report's sparkline.
func scheduledOccupancySeries(ctx context.Context, cache *monitor.HotCache, log *zap.Logger) []float64 {
	records, err := cache.Recent(ctx, broker.QueueTrafficData, 100)
	if err != nil {
		log.Warn("monitor: scheduled report fetch failed", obs.Err(err))
		return nil
	}
	series := make([]float64, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		update, err := wire.DecodeTrafficUpdate(records[i].Payload)
		if err != nil {
			continue
		}
		if len(update.CurrentData.IntersectionCongestion) == 0 {
			continue
		}
		var sum float64
		for _, v := range update.CurrentData.IntersectionCongestion {
			sum += v
		}
		series = append(series, sum/float64(len(update.CurrentData.IntersectionCongestion)))
	}
	return series
}

var version = "dev"

func main() {
	var role, configPath string
	var showVersion bool
	fs := flagSet()
	fs.StringVar(&role, "role", "all", "Role to run: simulation|controller|analyzer|monitor|all")
	fs.StringVar(&configPath, "config", "config/config.yaml", "Path to YAML config")
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	_ = fs.Parse(os.Args[1:])

	if showVersion {
		fmt.Println(version)
		return
	}

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

	tp, err := obs.MaybeInitTracing(cfg)
	if err != nil {
		logger.Warn("tracing init failed", obs.Err(err))
	}
	if tp != nil {
		defer func() { _ = tp.Shutdown(context.Background()) }()
	}

	b, closeBroker, err := broker.New(cfg.Broker, "trafficflow-"+role)
	if err != nil {
		logger.Fatal("broker init failed", obs.Err(err))
	}
	defer closeBroker()

	grid, err := loadGrid(cfg.Topology.Path)
	if err != nil {
		logger.Fatal("topology load failed", obs.Err(err))
	}

	readyCheck := func(context.Context) error { return nil }
	var rdb *redis.Client
	if cfg.Broker.Backend == "redis" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Broker.Redis.Addr,
			Password: cfg.Broker.Redis.Password,
			DB:       cfg.Broker.Redis.DB,
		})
		defer rdb.Close()
		readyCheck = func(c context.Context) error {
			_, err := rdb.Ping(c).Result()
			return err
		}
	}

	httpSrv := obs.StartHTTPServer(cfg, readyCheck)
	defer func() { _ = httpSrv.Shutdown(context.Background()) }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", obs.String("signal", sig.String()))
		cancel()
		select {
		case sig2 := <-sigCh:
			logger.Warn("second signal received, exiting immediately", obs.String("signal", sig2.String()))
			os.Exit(1)
		case <-time.After(5 * time.Second):
		}
	}()

	if rdb != nil {
		obs.StartQueueLengthUpdater(ctx, cfg, rdb, logger)
	}

	controller := lightctl.New(grid)

	switch role {
	case "simulation":
		runSimulation(ctx, cfg, grid, controller, b, logger)
	case "controller":
		runController(ctx, cfg, controller, b, logger)
	case "analyzer":
		runAnalyzer(ctx, cfg, b, logger)
	case "monitor":
		runMonitor(ctx, cfg, b, logger)
	case "all":
		go runAnalyzer(ctx, cfg, b, logger)
		go runMonitor(ctx, cfg, b, logger)
		runSimulation(ctx, cfg, grid, controller, b, logger) // also drives the controller in-process, see runSimulation's doc comment
	default:
		logger.Fatal("unknown role", obs.String("role", role))
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

// runSimulation also drives controller's tick loop and congestion-alert
// consumer in-process: the Simulation Engine queries controller.IsLaneGreen
// synchronously while routing vehicles (internal/simulation/vehicle.go), so
// the two must share one TrafficLightController instance rather than two
// processes each holding their own phase state with no way to reconcile it.
func runSimulation(ctx context.Context, cfg *config.Config, grid *topology.Grid, controller *lightctl.TrafficLightController, b broker.Broker, log *zap.Logger) {
	go runController(ctx, cfg, controller, b, log)

	simCfg := simulation.DefaultConfig()
	simCfg.TickInterval = cfg.Timing.TickInterval
	world := simulation.NewWorld(grid, controller, b, log, simCfg)
	world.Run(ctx, time.Now)
}

func runController(ctx context.Context, cfg *config.Config, controller *lightctl.TrafficLightController, b broker.Broker, log *zap.Logger) {
	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()
	go controller.Run(cfg.Timing.TickInterval, stop, func() {})
	nowFn := func() uint64 { return uint64(time.Now().Unix()) }
	if err := controller.RunCongestionAlertConsumer(ctx, b, log, nowFn); err != nil && ctx.Err() == nil {
		log.Error("controller: congestion alert consumer stopped", obs.Err(err))
	}
}

func runAnalyzer(ctx context.Context, cfg *config.Config, b broker.Broker, log *zap.Logger) {
	analyzerCfg := analyzer.DefaultConfig()
	analyzerCfg.PredictionInterval = cfg.Timing.PredictionInterval
	analyzerCfg.PredictionStrategy = cfg.Analyzer.PredictionStrategy
	a := analyzer.New(analyzerCfg)
	go a.RunPredictionLoop(ctx, log)
	if err := a.Run(ctx, b, log); err != nil && ctx.Err() == nil {
		log.Error("analyzer: consumer stopped", obs.Err(err))
	}
}

func runMonitor(ctx context.Context, cfg *config.Config, b broker.Broker, log *zap.Logger) {
	store, err := monitor.NewRecordStore(cfg.Monitor.RecordDir, cfg.Monitor.RotateAfterRecords)
	if err != nil {
		log.Fatal("monitor: record store init failed", obs.Err(err))
	}
	defer store.Close()

	var cache *monitor.HotCache
	if cfg.Broker.Backend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Broker.Redis.Addr,
			Password: cfg.Broker.Redis.Password,
			DB:       cfg.Broker.Redis.DB,
		})
		defer rdb.Close()
		cache = monitor.NewHotCache(rdb, cfg.Monitor.HotCacheSize)
	}

	var aggregator *monitor.DailyAggregator
	if cfg.Monitor.Postgres.Enabled {
		db, err := sql.Open("postgres", cfg.Monitor.Postgres.DSN)
		if err != nil {
			log.Fatal("monitor: postgres open failed", obs.Err(err))
		}
		defer db.Close()
		aggregator = monitor.NewDailyAggregator(db, cfg.Monitor.Postgres.FlushInterval)
		go aggregator.Run(ctx)
	}

	if cfg.Monitor.S3.Enabled {
		s3Cfg := monitor.S3Config{
			Bucket:    cfg.Monitor.S3.Bucket,
			Region:    cfg.Monitor.S3.Region,
			KeyPrefix: cfg.Monitor.S3.KeyPrefix,
			Endpoint:  cfg.Monitor.S3.Endpoint,
		}
		archiver, err := monitor.NewS3Archiver(s3Cfg, log)
		if err != nil {
			log.Fatal("monitor: s3 archiver init failed", obs.Err(err))
		}
		store.OnRotate(func(queue, archivedPath string) {
			if err := archiver.UploadRotatedFile(ctx, queue, archivedPath); err != nil {
				log.Warn("monitor: s3 upload failed", obs.String("queue", queue), obs.Err(err))
			}
		})
	}

	m := monitor.New(store, cache, aggregator)

	if cfg.Monitor.ClickHouse.Enabled {
		chCfg := monitor.ClickHouseConfig{DSN: cfg.Monitor.ClickHouse.DSN, Table: cfg.Monitor.ClickHouse.Table}
		archiver, err := monitor.NewClickHouseArchiver(chCfg, log)
		if err != nil {
			log.Fatal("monitor: clickhouse archiver init failed", obs.Err(err))
		}
		defer archiver.Close()
		m = m.WithClickHouseArchiver(archiver)
	}

	if cache != nil && cfg.Monitor.ReportCronSpec != "" {
		gen := monitor.NewReportGenerator(cache, log)
		sched, err := monitor.NewScheduler(cfg.Monitor.ReportCronSpec, func() {
			report := gen.Generate(scheduledOccupancySeries(ctx, cache, log), monitor.DailySummary{Date: time.Now(), UpdatedAt: time.Now()})
			log.Info("monitor: scheduled report generated", obs.Int("body_len", len(report.Body)))
		})
		if err != nil {
			log.Warn("monitor: cron schedule init failed", obs.Err(err))
		} else {
			sched.Start(ctx)
		}
	}

	if err := m.Run(ctx, b, log); err != nil && ctx.Err() == nil {
		log.Error("monitor: consumer stopped", obs.Err(err))
	}
}
