package panels

import "github.com/grafana/grafana-foundation-sdk/go/timeseries"

// RequestRate returns a timeseries panel showing the HTTP request rate.
func RequestRate() *timeseries.PanelBuilder {
	return newTimeseries("Request Rate", "HTTP requests per second", 8).
		WithTarget(PromQuery(`kompara:http_requests:rate5m`, "req/s", "A")).
		Unit("reqps").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

func httpQuantile(q string) string {
	return `histogram_quantile(` + q + `, sum(rate(kompara_http_request_duration_seconds_bucket{` +
		Job + `,path!~"/healthz|/readyz|/metrics"}[5m])) by (le))`
}

// LatencyPercentiles returns a timeseries panel showing p50, p95, and p99
// HTTP request latencies, health checks excluded.
func LatencyPercentiles() *timeseries.PanelBuilder {
	return newTimeseries("Latency Percentiles", "HTTP request duration percentiles, excluding health checks", 8).
		WithTarget(PromQuery(httpQuantile("0.50"), "p50", "A")).
		WithTarget(PromQuery(httpQuantile("0.95"), "p95", "B")).
		WithTarget(PromQuery(httpQuantile("0.99"), "p99", "C")).
		Unit("s").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// ErrorRate returns a timeseries panel showing the HTTP 5xx error rate
// as a percentage.
func ErrorRate() *timeseries.PanelBuilder {
	return newTimeseries("Error Rate %", "HTTP 5xx error rate as percentage of total requests", 8).
		WithTarget(PromQuery(
			`kompara:http_errors:rate5m / kompara:http_requests:rate5m * 100`,
			"error %", "A",
		)).
		Unit("percent").
		Thresholds(ThresholdsGreenYellowRed(1, 5)).
		ColorScheme(ColorSchemeThresholds())
}
