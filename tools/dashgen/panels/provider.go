package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// ProviderCallsRate returns a timeseries panel showing affiliate API calls
// per second by endpoint and outcome.
func ProviderCallsRate() *timeseries.PanelBuilder {
	return newTimeseries("Provider Calls", "Affiliate API calls per second by endpoint and outcome", TSWidth).
		WithTarget(PromQuery(`kompara:provider_requests:rate5m`, "{{endpoint}} {{outcome}}", "A")).
		Unit("reqps").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// ProviderLatency returns a timeseries panel showing p95 affiliate API
// latency per endpoint.
func ProviderLatency() *timeseries.PanelBuilder {
	return newTimeseries("Provider Latency p95", "95th percentile affiliate API call duration by endpoint", TSWidth).
		WithTarget(PromQuery(
			`histogram_quantile(0.95, sum(rate(kompara_provider_request_duration_seconds_bucket{`+Job+`}[5m])) by (le, endpoint))`,
			"{{endpoint}}", "A",
		)).
		Unit("s").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// DailyUsage returns a timeseries panel showing the rolling 24h provider
// API usage against the configured limit.
func DailyUsage() *timeseries.PanelBuilder {
	return newTimeseries("Daily Usage vs Limit", "Rolling 24h affiliate API call count and the configured limit", 8).
		WithTarget(PromQuery(selector("kompara_provider_daily_usage"), "usage", "A")).
		WithTarget(PromQuery(selector("kompara_provider_daily_limit")+" > 0", "limit", "B")).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// Retries returns a timeseries panel showing provider call retries.
func Retries() *timeseries.PanelBuilder {
	return newTimeseries("Retries", "Affiliate API call retries per second by endpoint", 8).
		WithTarget(PromQuery(
			`sum(rate(kompara_provider_retries_total{`+Job+`}[5m])) by (endpoint)`,
			"{{endpoint}}", "A",
		)).
		Unit("reqps").
		Thresholds(ThresholdsGreenYellowRed(0.1, 1)).
		ColorScheme(ColorSchemeThresholds())
}

// LimitHits returns a stat panel showing the number of daily limit hits
// in the past 24 hours.
func LimitHits() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Limit Hits (24h)").
		Description("Times the daily provider limit was reached in the last 24 hours").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(8).
		WithTarget(PromQuery(`increase(kompara_provider_daily_limit_hits_total{`+Job+`}[24h])`, "", "A")).
		Thresholds(ThresholdsGreenYellowRed(1, 3)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeArea)
}
