package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartmove/internal/config"
	"smartmove/internal/handler"
	"smartmove/internal/metrics"
)

func TestRouter_HealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewScheduler(reg)
	require.NoError(t, err)
	m.Transitioned("approve")

	router := NewRouter(RouterDeps{
		RequestHandler:  handler.NewRequestHandler(nil, nil, nil),
		ScheduleHandler: handler.NewScheduleHandler(nil),
		Gatherer:        reg,
		Logger:          zerolog.Nop(),
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `smartmove_transitions_total{event="approve"} 1`)
}

func TestRouter_RegistersRequestRoutes(t *testing.T) {
	router := NewRouter(RouterDeps{
		RequestHandler:  handler.NewRequestHandler(nil, nil, nil),
		ScheduleHandler: handler.NewScheduleHandler(nil),
		Logger:          zerolog.Nop(),
	})

	routes := map[string]bool{}
	for _, r := range router.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /v1/requests",
		"GET /v1/requests/:id",
		"POST /v1/requests/:id/approve",
		"POST /v1/requests/:id/assign",
		"POST /v1/requests/:id/reject",
		"POST /v1/requests/:id/start",
		"POST /v1/requests/:id/complete",
		"POST /v1/requests/:id/cancel",
		"GET /v1/schedule/preview",
		"GET /v1/schedule/shared-rides",
		"GET /v1/schedule/drivers/available",
	} {
		assert.True(t, routes[want], "missing route %s", want)
	}
	assert.False(t, routes["GET /metrics"], "metrics are only exposed with a gatherer")
}

func TestKeyspace(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "lock", keyspace(redis.NewStringCmd(ctx, "get", "lock:vehicle:v1")))
	assert.Equal(t, "available_drivers", keyspace(redis.NewStringCmd(ctx, "sadd", "available_drivers", "d1")))
	assert.Equal(t, "redis", keyspace(redis.NewStatusCmd(ctx, "ping")))
}

func TestPipelineKeyspace(t *testing.T) {
	ctx := context.Background()
	locks := []redis.Cmder{
		redis.NewBoolCmd(ctx, "setnx", "lock:vehicle:v1", "t1"),
		redis.NewBoolCmd(ctx, "setnx", "lock:driver:d1", "t1"),
	}
	assert.Equal(t, "lock", pipelineKeyspace(locks))
	assert.Equal(t, "mixed", pipelineKeyspace(append(locks, redis.NewIntCmd(ctx, "srem", "available_drivers", "d1"))))
	assert.Equal(t, "redis", pipelineKeyspace(nil))
}

func TestRedisOptions(t *testing.T) {
	opts := redisOptions(config.RedisConfig{
		Addr:         "cache:6379",
		DB:           2,
		PoolSize:     8,
		DialTimeout:  time.Second,
		ReadTimeout:  300 * time.Millisecond,
		WriteTimeout: 400 * time.Millisecond,
	})

	assert.Equal(t, "cache:6379", opts.Addr)
	assert.Equal(t, 2, opts.DB)
	assert.Equal(t, redisClientName, opts.ClientName)
	assert.Equal(t, 8, opts.PoolSize)
	assert.Equal(t, time.Second, opts.DialTimeout)
	assert.Equal(t, 300*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 400*time.Millisecond, opts.WriteTimeout)
}
