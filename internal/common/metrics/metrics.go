// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "weather_notifier"

var (
	SubscriptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_total",
			Help:      "Subscription requests by outcome",
		},
		[]string{"result"},
	)

	WeatherFetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fetch_total",
			Help:      "Weather provider lookups by outcome",
		},
		[]string{"result"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Delivery attempts by channel and status",
		},
		[]string{"method", "status"},
	)

	DispatchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of one dispatch run in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		},
	)

	DispatchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatch_subscribers_in_flight",
			Help:      "Subscribers currently being processed by a dispatch run",
		},
	)
)

// Outcome labels shared by the counters above.
const (
	ResultAccepted    = "accepted"
	ResultRejected    = "rejected"
	ResultConflict    = "conflict"
	ResultError       = "error"
	ResultOK          = "ok"
	ResultCached      = "cached"
	ResultUnavailable = "unavailable"
)
