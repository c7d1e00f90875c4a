package weathergateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	commonhttp "weather-notifier/internal/common/http"
	"weather-notifier/internal/common/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var observed = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestGateway(t *testing.T, handler http.HandlerFunc, rdb *redis.Client) *Gateway {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.AccessKey = "test-key"
	cfg.BreakerFailureLimit = 3
	require.NoError(t, cfg.Validate())

	return NewGateway(cfg, commonhttp.NewClient(time.Second), rdb, clockwork.NewFakeClockAt(observed), logger.NewTestLogger(t))
}

func TestFetch_Success(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/current", r.URL.Path)
		assert.Equal(t, "Paris", r.URL.Query().Get("query"))
		assert.Equal(t, "test-key", r.URL.Query().Get("access_key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"current":{"temperature":18,"weather_descriptions":["Sunny","Clear"],"humidity":40}}`))
	}, nil)

	snap, ok := g.Fetch(context.Background(), "Paris")
	require.True(t, ok)
	assert.Equal(t, "Paris", snap.Location)
	assert.Equal(t, 18.0, snap.Temperature)
	assert.Equal(t, "Sunny", snap.WeatherDescription)
	assert.Equal(t, 40, snap.Humidity)
	assert.Equal(t, observed, snap.ObservedAt)
}

func TestFetch_Unavailable(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		location string
	}{
		{"empty location", http.StatusOK, `{}`, "   "},
		{"provider error", http.StatusOK, `{"success":false,"error":{"code":615,"type":"request_failed","info":"no results"}}`, "Atlantis"},
		{"missing current", http.StatusOK, `{"request":{}}`, "Paris"},
		{"missing temperature", http.StatusOK, `{"current":{"weather_descriptions":["Rain"],"humidity":80}}`, "Paris"},
		{"missing humidity", http.StatusOK, `{"current":{"temperature":3,"weather_descriptions":["Rain"]}}`, "Paris"},
		{"server error", http.StatusInternalServerError, `oops`, "Paris"},
		{"malformed body", http.StatusOK, `{not json`, "Paris"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}, nil)

			snap, ok := g.Fetch(context.Background(), tt.location)
			assert.False(t, ok)
			assert.Empty(t, snap.Location)
		})
	}
}

func TestFetch_MissingDescriptionIsEmpty(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"current":{"temperature":-2.5,"weather_descriptions":[],"humidity":91}}`))
	}, nil)

	snap, ok := g.Fetch(context.Background(), "Oslo")
	require.True(t, ok)
	assert.Equal(t, "", snap.WeatherDescription)
	assert.Equal(t, -2.5, snap.Temperature)
}

func TestFetch_UsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	var calls int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"current":{"temperature":21,"weather_descriptions":["Cloudy"],"humidity":55}}`))
	}, rdb)

	first, ok := g.Fetch(context.Background(), "London")
	require.True(t, ok)
	second, ok := g.Fetch(context.Background(), "london")
	require.True(t, ok)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, "london", second.Location)
	assert.Equal(t, first.Temperature, second.Temperature)
	assert.Equal(t, first.ObservedAt, second.ObservedAt)
	assert.True(t, mr.Exists("weather:london"))

	mr.FastForward(6 * time.Minute)
	_, ok = g.Fetch(context.Background(), "London")
	require.True(t, ok)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestFetch_BreakerOpensOnProviderFailures(t *testing.T) {
	var calls int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, nil)

	for i := 0; i < 5; i++ {
		_, ok := g.Fetch(context.Background(), "Paris")
		assert.False(t, ok)
	}

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestFetch_UnknownLocationDoesNotTripBreaker(t *testing.T) {
	var calls int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = w.Write([]byte(`{"success":false,"error":{"code":615,"type":"request_failed"}}`))
	}, nil)

	for i := 0; i < 5; i++ {
		_, ok := g.Fetch(context.Background(), "Nowhere")
		assert.False(t, ok)
	}

	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestFetch_CallerDeadlineDoesNotTripBreaker(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("query") == "Slowtown" {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
		}
		_, _ = w.Write([]byte(`{"current":{"temperature":18,"weather_descriptions":["Sunny"],"humidity":40}}`))
	}, nil)

	for i := 0; i < 5; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		_, ok := g.Fetch(ctx, "Slowtown")
		cancel()
		assert.False(t, ok)
	}

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	for i := 0; i < 5; i++ {
		_, ok := g.Fetch(canceled, "Paris")
		assert.False(t, ok)
	}

	snap, ok := g.Fetch(context.Background(), "Paris")
	require.True(t, ok, "breaker must stay closed after caller-side cancellations")
	assert.Equal(t, 18.0, snap.Temperature)
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	assert.Error(t, cfg.Validate())

	cfg.AccessKey = "k"
	assert.NoError(t, cfg.Validate())

	cfg.BreakerFailureLimit = 0
	assert.Error(t, cfg.Validate())
}
