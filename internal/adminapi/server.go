// Copyright 2025 James Ross
// Package adminapi exposes a read-only HTTP surface over the Monitor's
// Redis hot cache of recent records (spec §3.7), grounded on internal/admin-api/server.go and
// internal/long-term-archives/handlers.go's gorilla/mux router setup.
package adminapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/broker"
	"github.com/trafficflow/trafficflow/internal/monitor"
)

// Server serves the admin REST API over a Monitor's HotCache.
type Server struct {
	cache  *monitor.HotCache
	log    *zap.Logger
	server *http.Server
}

// NewServer builds a Server listening on addr. log may be nil.
func NewServer(addr string, cache *monitor.HotCache, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{cache: cache, log: log}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()
	h := newHandler(s.cache, s.log)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/snapshot", h.recent(broker.QueueTrafficData)).Methods("GET")
	api.HandleFunc("/alerts", h.recent(broker.QueueCongestionAlerts)).Methods("GET")
	api.HandleFunc("/events", h.recent(broker.QueueTrafficEvents)).Methods("GET")
	api.HandleFunc("/adjustments", h.recent(broker.QueueLightAdjustments)).Methods("GET")
	router.HandleFunc("/healthz", h.healthz).Methods("GET")

	return router
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	s.log.Info("adminapi: listening", zap.String("addr", s.server.Addr))
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
