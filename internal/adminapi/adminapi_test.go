// Copyright 2025 James Ross
package adminapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/trafficflow/trafficflow/internal/broker"
	"github.com/trafficflow/trafficflow/internal/monitor"
)

func newTestServer(t *testing.T) (*Server, *monitor.HotCache) {
	t.Helper()
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := monitor.NewHotCache(client, 50)
	return NewServer("127.0.0.1:0", cache, nil), cache
}

func TestAlertsEndpointReturnsRecentRecordsNewestFirst(t *testing.T) {
	server, cache := newTestServer(t)
	ctx := context.Background()

	require.NoError(t, cache.Push(ctx, recordFor(broker.QueueCongestionAlerts, "first")))
	require.NoError(t, cache.Push(ctx, recordFor(broker.QueueCongestionAlerts, "second")))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
	rec := httptest.NewRecorder()
	server.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var body []monitor.Record
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body, 2)
	require.Equal(t, "second", body[0].ID)
}

func TestHealthzReturnsOK(t *testing.T) {
	server, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	server.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func recordFor(queue, id string) monitor.Record {
	return monitor.Record{ID: id, Queue: queue, ReceivedAt: time.Now(), Payload: []byte(`{}`)}
}
