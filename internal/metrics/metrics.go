// Package metrics defines Prometheus metrics for kompara.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "kompara"

// HTTP metrics.
var (
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"method", "path", "status"})

	HealthzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "healthz_up",
		Help:      "1 if the last liveness check succeeded, 0 otherwise.",
	})

	ReadyzUp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "readyz_up",
		Help:      "1 if the last readiness check succeeded, 0 otherwise.",
	})
)

// Search metrics.
var (
	SearchRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_requests_total",
		Help:      "Total number of search requests by outcome.",
	}, []string{"outcome"})

	SearchOffersReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_offers_returned",
		Help:      "Number of offers returned per successful search.",
		Buckets:   prometheus.LinearBuckets(0, 5, 11), // 0, 5, 10, ..., 50
	})
)

// Provider API metrics.
var (
	ProviderRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Total provider API calls by endpoint and outcome.",
	}, []string{"endpoint", "outcome"})

	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Duration of provider API calls in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"endpoint"})

	ProviderRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_retries_total",
		Help:      "Total provider API call retries by endpoint.",
	}, []string{"endpoint"})

	ProviderDailyUsage = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "provider_daily_usage",
		Help:      "Current provider API call count within the rolling 24-hour window.",
	})

	ProviderDailyLimit = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "provider_daily_limit",
		Help:      "Configured daily provider API call limit (0 means unlimited).",
	})

	ProviderDailyLimitHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_daily_limit_hits_total",
		Help:      "Total number of times the daily provider API limit was reached.",
	})
)

// Access token metrics.
var (
	TokenFetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_fetches_total",
		Help:      "Total access-token exchanges by result.",
	}, []string{"result"})

	TokenCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "token_cache_hits_total",
		Help:      "Total access-token reads served from the cache.",
	})

	TokenExpiresAt = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "token_expires_at_seconds",
		Help:      "Unix time at which the cached access token is considered expired.",
	})
)

// Scheduler metrics.
var (
	TokenWarmRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scheduler_token_warm_runs_total",
		Help:      "Total scheduled access-token warm runs by result.",
	}, []string{"result"})

	SchedulerNextTokenWarmTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "scheduler_next_token_warm_timestamp",
		Help:      "Unix time of the next scheduled access-token warm run.",
	})
)
