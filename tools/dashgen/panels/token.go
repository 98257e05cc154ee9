package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/stat"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// TokenExpiresIn returns a stat panel showing time until the cached access
// token stops being used.
func TokenExpiresIn() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Token Expires In").
		Description("Time until the cached access token expires (REST scheme only)").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(8).
		WithTarget(PromQuery(`kompara_token_expires_at_seconds{`+Job+`} - time()`, "", "A")).
		Unit("s").
		Thresholds(ThresholdsRedGreen(300)).
		ColorScheme(ColorSchemeThresholds()).
		ColorMode(common.BigValueColorModeBackground).
		GraphMode(common.BigValueGraphModeNone)
}

// NextTokenWarm returns a stat panel showing time until the next scheduled
// token warm run.
func NextTokenWarm() *stat.PanelBuilder {
	return stat.NewPanelBuilder().
		Title("Next Token Warm").
		Description("Time until the next scheduled access-token warm run").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(8).
		WithTarget(PromQuery(
			`kompara_scheduler_next_token_warm_timestamp{`+Job+`} - time()`,
			"", "A",
		)).
		Unit("s").
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeNone)
}

// CacheHitRatio returns a stat panel showing the share of token reads
// served without an exchange.
func CacheHitRatio() *stat.PanelBuilder {
	expr := `sum(rate(kompara_token_cache_hits_total{` + Job + `}[1h])) / (sum(rate(kompara_token_cache_hits_total{` + Job +
		`}[1h])) + sum(rate(kompara_token_fetches_total{` + Job + `}[1h]))) * 100`
	return stat.NewPanelBuilder().
		Title("Token Cache Hit %").
		Description("Share of access-token reads served from the cache over the last hour").
		Datasource(DSRef()).
		Height(StatHeight).
		Span(8).
		WithTarget(PromQuery(expr, "", "A")).
		Unit("percent").
		Thresholds(ThresholdsRedGreen(90)).
		ColorScheme(ColorSchemeThresholds()).
		GraphMode(common.BigValueGraphModeNone)
}

// TokenFetches returns a timeseries panel showing token exchanges and warm
// runs by result.
func TokenFetches() *timeseries.PanelBuilder {
	return newTimeseries("Token Exchanges", "Access-token exchanges and scheduled warm runs by result", FullWidth).
		WithTarget(PromQuery(
			`sum(increase(kompara_token_fetches_total{`+Job+`}[1h])) by (result)`,
			"fetch {{result}}", "A",
		)).
		WithTarget(PromQuery(
			`sum(increase(kompara_scheduler_token_warm_runs_total{`+Job+`}[1h])) by (result)`,
			"warm {{result}}", "B",
		)).
		Legend(TableLegend("sum")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic()).
		DrawStyle(common.GraphDrawStyleBars)
}
