package weathergateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	apperrors "weather-notifier/internal/common/errors"
	commonhttp "weather-notifier/internal/common/http"
	"weather-notifier/internal/common/logger"
	"weather-notifier/internal/common/metrics"
	"weather-notifier/internal/models"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
)

const (
	Component      = "weather-gateway"
	cacheKeyPrefix = "weather:"
)

var (
	ErrProviderRejected  = errors.New("PROVIDER_REJECTED")
	ErrIncompletePayload = errors.New("INCOMPLETE_PAYLOAD")

	// errCallerGone marks a lookup abandoned because the caller's context ended first.
	errCallerGone = errors.New("CALLER_CONTEXT_DONE")
)

// Fetcher is the narrow contract the subscription and dispatch services depend on.
type Fetcher interface {
	Fetch(ctx context.Context, location string) (models.WeatherSnapshot, bool)
}

// Gateway looks up current weather. Every failure is reported as "unavailable" through the
// boolean result, never as an error.
type Gateway struct {
	config  *Config
	client  *commonhttp.Client
	redis   *redis.Client
	breaker *gobreaker.CircuitBreaker
	clock   clockwork.Clock
	logger  logger.Logger
}

// NewGateway builds a gateway. redis may be nil, which disables caching.
func NewGateway(config *Config, client *commonhttp.Client, rdb *redis.Client, clock clockwork.Clock, log logger.Logger) *Gateway {
	g := &Gateway{
		config: config,
		client: client,
		redis:  rdb,
		clock:  clock,
		logger: logger.ForComponent(log, Component),
	}

	g.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        Component,
		MaxRequests: config.BreakerMaxRequests,
		Interval:    config.BreakerInterval,
		Timeout:     config.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.BreakerFailureLimit
		},
		// Unknown locations and abandoned callers say nothing about provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrProviderRejected) || errors.Is(err, errCallerGone)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
		},
	})

	return g
}

func (g *Gateway) Fetch(ctx context.Context, location string) (models.WeatherSnapshot, bool) {
	location = strings.TrimSpace(location)
	if location == "" {
		metrics.WeatherFetchTotal.WithLabelValues(metrics.ResultUnavailable).Inc()
		return models.WeatherSnapshot{}, false
	}

	if snap, ok := g.fromCache(ctx, location); ok {
		metrics.WeatherFetchTotal.WithLabelValues(metrics.ResultCached).Inc()
		return snap, true
	}

	result, err := g.breaker.Execute(func() (interface{}, error) {
		return g.lookup(ctx, location)
	})
	if err != nil {
		g.logger.Warn("weather unavailable", map[string]interface{}{
			"location": location,
			"error":    apperrors.NewUpstreamUnavailableError("weather provider", err),
		})
		metrics.WeatherFetchTotal.WithLabelValues(metrics.ResultUnavailable).Inc()
		return models.WeatherSnapshot{}, false
	}

	snap := result.(models.WeatherSnapshot)
	g.toCache(ctx, snap)
	metrics.WeatherFetchTotal.WithLabelValues(metrics.ResultOK).Inc()
	return snap, true
}

func (g *Gateway) lookup(callerCtx context.Context, location string) (models.WeatherSnapshot, error) {
	if err := callerCtx.Err(); err != nil {
		return models.WeatherSnapshot{}, fmt.Errorf("%w: %v", errCallerGone, err)
	}

	ctx, cancel := context.WithTimeout(callerCtx, g.config.Timeout)
	defer cancel()

	query := url.Values{}
	query.Set("query", location)
	query.Set("access_key", g.config.AccessKey)

	var payload currentResponse
	endpoint := strings.TrimRight(g.config.BaseURL, "/") + "/current"
	if err := g.client.GetJSON(ctx, endpoint, query, &payload); err != nil {
		if callerCtx.Err() != nil {
			return models.WeatherSnapshot{}, fmt.Errorf("%w: %v", errCallerGone, err)
		}
		return models.WeatherSnapshot{}, err
	}

	if payload.Success != nil && !*payload.Success {
		if payload.Error != nil {
			return models.WeatherSnapshot{}, fmt.Errorf("%w: %d %s", ErrProviderRejected, payload.Error.Code, payload.Error.Type)
		}
		return models.WeatherSnapshot{}, ErrProviderRejected
	}

	cur := payload.Current
	if cur == nil || cur.Temperature == nil || cur.Humidity == nil {
		return models.WeatherSnapshot{}, ErrIncompletePayload
	}

	description := ""
	if len(cur.WeatherDescriptions) > 0 {
		description = cur.WeatherDescriptions[0]
	}

	return models.WeatherSnapshot{
		Location:           location,
		Temperature:        *cur.Temperature,
		WeatherDescription: description,
		Humidity:           *cur.Humidity,
		ObservedAt:         g.clock.Now().UTC(),
	}, nil
}

func cacheKey(location string) string {
	return cacheKeyPrefix + strings.ToLower(location)
}

func (g *Gateway) fromCache(ctx context.Context, location string) (models.WeatherSnapshot, bool) {
	if g.redis == nil || g.config.CacheTTL <= 0 {
		return models.WeatherSnapshot{}, false
	}

	val, err := g.redis.Get(ctx, cacheKey(location)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			g.logger.Debug("weather cache read failed", map[string]interface{}{"error": err.Error()})
		}
		return models.WeatherSnapshot{}, false
	}

	var cached cachedSnapshot
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return models.WeatherSnapshot{}, false
	}
	observedAt, err := time.Parse(time.RFC3339Nano, cached.ObservedAt)
	if err != nil {
		return models.WeatherSnapshot{}, false
	}

	return models.WeatherSnapshot{
		Location:           location,
		Temperature:        cached.Temperature,
		WeatherDescription: cached.Description,
		Humidity:           cached.Humidity,
		ObservedAt:         observedAt,
	}, true
}

func (g *Gateway) toCache(ctx context.Context, snap models.WeatherSnapshot) {
	if g.redis == nil || g.config.CacheTTL <= 0 {
		return
	}

	data, _ := json.Marshal(cachedSnapshot{
		Location:    snap.Location,
		Temperature: snap.Temperature,
		Description: snap.WeatherDescription,
		Humidity:    snap.Humidity,
		ObservedAt:  snap.ObservedAt.Format(time.RFC3339Nano),
	})
	if err := g.redis.Set(ctx, cacheKey(snap.Location), data, g.config.CacheTTL).Err(); err != nil {
		g.logger.Debug("weather cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
