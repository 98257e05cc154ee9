package rules

// RecordingRules returns a PrometheusRule CR containing pre-computed rate
// expressions used by dashboards and alert rules.
func RecordingRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "kompara-recording-rules",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "kompara-recording",
					Rules: []Rule{
						{
							Record: "kompara:http_requests:rate5m",
							Expr:   `sum(rate(kompara_http_requests_total[5m]))`,
						},
						{
							Record: "kompara:http_errors:rate5m",
							Expr:   `sum(rate(kompara_http_requests_total{status=~"5.."}[5m]))`,
						},
						{
							Record: "kompara:search_requests:rate5m",
							Expr:   `sum(rate(kompara_search_requests_total[5m])) by (outcome)`,
						},
						{
							Record: "kompara:provider_requests:rate5m",
							Expr:   `sum(rate(kompara_provider_requests_total[5m])) by (endpoint, outcome)`,
						},
						{
							Record: "kompara:provider_errors:rate5m",
							Expr:   `sum(rate(kompara_provider_requests_total{outcome!="success"}[5m])) by (endpoint)`,
						},
					},
				},
			},
		},
	}
}
