package panels

import (
	"github.com/grafana/grafana-foundation-sdk/go/bargauge"
	"github.com/grafana/grafana-foundation-sdk/go/common"
	"github.com/grafana/grafana-foundation-sdk/go/timeseries"
)

// SearchOutcomes returns a timeseries panel showing search requests per
// second split by outcome.
func SearchOutcomes() *timeseries.PanelBuilder {
	return newTimeseries("Searches by Outcome", "Search requests per second by outcome (success, bad_request, upstream_error, ...)", TSWidth).
		WithTarget(PromQuery(`kompara:search_requests:rate5m`, "{{outcome}}", "A")).
		Unit("reqps").
		Legend(TableLegend("mean", "max")).
		Tooltip(MultiTooltip()).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}

// OffersReturned returns a bar gauge panel showing how many offers
// successful searches returned.
func OffersReturned() *bargauge.PanelBuilder {
	return bargauge.NewPanelBuilder().
		Title("Offers per Search").
		Description("Distribution of offers returned per successful search").
		Datasource(DSRef()).
		Height(TSHeight).
		Span(TSWidth).
		WithTarget(PromQuery(
			`sum(increase(kompara_search_offers_returned_bucket{`+Job+`}[1h])) by (le)`,
			"{{le}}", "A",
		)).
		Orientation(common.VizOrientationHorizontal).
		Min(0).
		Thresholds(ThresholdsGreenOnly()).
		ColorScheme(ColorSchemePaletteClassic())
}
