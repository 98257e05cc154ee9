// Package dashboards assembles Grafana dashboard definitions from panel builders.
package dashboards

import (
	"github.com/grafana/grafana-foundation-sdk/go/dashboard"

	"github.com/donaldgifford/kompara/tools/dashgen/panels"
)

// BuildOverview constructs the kompara Overview dashboard with all metric rows.
func BuildOverview() *dashboard.DashboardBuilder {
	b := dashboard.NewDashboardBuilder("Kompara Overview").
		Uid("kompara-overview").
		Tags([]string{"kompara", "shopee"}).
		Refresh("30s").
		Time("now-6h", "now").
		Timezone("browser").
		Editable().
		Tooltip(dashboard.DashboardCursorSyncCrosshair).
		WithVariable(datasourceVar())

	b.WithRow(dashboard.NewRowBuilder("Overview").
		WithPanel(panels.HealthzStat()).
		WithPanel(panels.ReadyzStat()).
		WithPanel(panels.QuotaGauge()).
		WithPanel(panels.UptimeStat()))

	b.WithRow(dashboard.NewRowBuilder("HTTP").
		WithPanel(panels.RequestRate()).
		WithPanel(panels.LatencyPercentiles()).
		WithPanel(panels.ErrorRate()))

	b.WithRow(dashboard.NewRowBuilder("Search").
		WithPanel(panels.SearchOutcomes()).
		WithPanel(panels.OffersReturned()))

	b.WithRow(dashboard.NewRowBuilder("Provider API").
		WithPanel(panels.ProviderCallsRate()).
		WithPanel(panels.ProviderLatency()).
		WithPanel(panels.DailyUsage()).
		WithPanel(panels.Retries()).
		WithPanel(panels.LimitHits()))

	b.WithRow(dashboard.NewRowBuilder("Access Token").
		WithPanel(panels.TokenExpiresIn()).
		WithPanel(panels.NextTokenWarm()).
		WithPanel(panels.CacheHitRatio()).
		WithPanel(panels.TokenFetches()))

	return b
}

func datasourceVar() *dashboard.DatasourceVariableBuilder {
	return dashboard.NewDatasourceVariableBuilder("datasource").
		Label("Datasource").
		Type("prometheus")
}
