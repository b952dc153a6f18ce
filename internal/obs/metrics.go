// Copyright 2025 James Ross
package obs

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/trafficflow/trafficflow/internal/config"
)

// One gauge or counter per event this domain's four services actually
// emit.
var (
	VehiclesSpawned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trafficflow_vehicles_spawned_total",
		Help: "Total number of vehicles spawned by the Simulation Engine",
	})
	VehiclesCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trafficflow_vehicles_completed_total",
		Help: "Total number of vehicles that reached their destination",
	})
	AccidentsOccurred = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trafficflow_accidents_total",
		Help: "Total number of accident events generated",
	})
	CongestionAlertsEmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trafficflow_congestion_alerts_total",
		Help: "Total number of congestion alerts published by the Flow Analyzer",
	})
	PhaseRotations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trafficflow_phase_rotations_total",
		Help: "Total number of traffic light phase rotations",
	})
	EmergencyOverrides = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trafficflow_emergency_overrides_total",
		Help: "Total number of emergency phase overrides applied by the Controller",
	})
	PredictionsComputed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trafficflow_predictions_computed_total",
		Help: "Total number of occupancy/waiting-time predictions computed",
	})
	QueueLength = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "trafficflow_queue_length",
		Help: "Current length of a broker queue, sampled when the backend supports it",
	}, []string{"queue"})
	RecordStoreSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "trafficflow_record_store_records",
		Help: "Number of records currently buffered in the Monitor's active record file, per queue",
	}, []string{"queue"})
)

func init() {
	prometheus.MustRegister(
		VehiclesSpawned, VehiclesCompleted, AccidentsOccurred, CongestionAlertsEmitted,
		PhaseRotations, EmergencyOverrides, PredictionsComputed, QueueLength, RecordStoreSize,
	)
}

// StartMetricsServer exposes /metrics and returns a server for controlled
// shutdown. Retained for compatibility; prefer StartHTTPServer, which also
// registers health endpoints.
func StartMetricsServer(cfg *config.Config) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Observability.MetricsPort), Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
