// Copyright 2025 James Ross
package adminapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/trafficflow/trafficflow/internal/monitor"
)

const defaultRecentLimit = 50

type handler struct {
	cache *monitor.HotCache
	log   *zap.Logger
}

func newHandler(cache *monitor.HotCache, log *zap.Logger) *handler {
	return &handler{cache: cache, log: log}
}

// recent returns a GET handler serving queue's most recent records as a
// JSON array, newest first, honoring an optional ?limit= query parameter.
func (h *handler) recent(queue string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := int64(defaultRecentLimit)
		if raw := r.URL.Query().Get("limit"); raw != "" {
			if parsed, err := strconv.ParseInt(raw, 10, 64); err == nil && parsed > 0 {
				limit = parsed
			}
		}

		records, err := h.cache.Recent(r.Context(), queue, limit)
		if err != nil {
			h.log.Error("adminapi: read hot cache", zap.String("queue", queue), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			h.log.Warn("adminapi: encode response", zap.Error(err))
		}
	}
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
