package main

import "errors"

// KnownMetrics is the set of metric names exported by kompara plus
// recording rule names referenced in dashboards and alerts.
var KnownMetrics = map[string]bool{
	// HTTP metrics.
	"kompara_http_request_duration_seconds": true,
	"kompara_http_requests_total":           true,

	// Health metrics.
	"kompara_healthz_up": true,
	"kompara_readyz_up":  true,

	// Search metrics.
	"kompara_search_requests_total":  true,
	"kompara_search_offers_returned": true,

	// Provider API metrics.
	"kompara_provider_requests_total":           true,
	"kompara_provider_request_duration_seconds": true,
	"kompara_provider_retries_total":            true,
	"kompara_provider_daily_usage":              true,
	"kompara_provider_daily_limit":              true,
	"kompara_provider_daily_limit_hits_total":   true,

	// Access token metrics.
	"kompara_token_fetches_total":      true,
	"kompara_token_cache_hits_total":   true,
	"kompara_token_expires_at_seconds": true,

	// Scheduler metrics.
	"kompara_scheduler_token_warm_runs_total":     true,
	"kompara_scheduler_next_token_warm_timestamp": true,

	// Recording rules.
	"kompara:http_requests:rate5m":     true,
	"kompara:http_errors:rate5m":       true,
	"kompara:search_requests:rate5m":   true,
	"kompara:provider_requests:rate5m": true,
	"kompara:provider_errors:rate5m":   true,

	// Standard Prometheus metrics referenced in dashboards.
	"up":                         true,
	"process_start_time_seconds": true,
}

// Config controls which artifacts the generator produces and where they go.
type Config struct {
	OutputDir        string
	DashboardEnabled bool
	RulesEnabled     bool
	// PlainRules writes bare rule_files instead of PrometheusRule CRs.
	PlainRules bool
}

// DefaultConfig returns a Config that generates all artifacts into ../../deploy
// (relative to tools/dashgen/).
func DefaultConfig() Config {
	return Config{
		OutputDir:        "../../deploy",
		DashboardEnabled: true,
		RulesEnabled:     true,
	}
}

// Validate checks that the config is usable.
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return errors.New("output directory must be set")
	}
	if !c.DashboardEnabled && !c.RulesEnabled {
		return errors.New("at least one of dashboard or rules must be enabled")
	}
	return nil
}
