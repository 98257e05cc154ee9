package rules

// AlertRules returns a PrometheusRule CR containing alert rules for kompara
// operational monitoring.
func AlertRules() PrometheusRule {
	return PrometheusRule{
		APIVersion: "monitoring.coreos.com/v1",
		Kind:       "PrometheusRule",
		Metadata: PrometheusRuleMetadata{
			Name: "kompara-alerts",
			Labels: map[string]string{
				"prometheus": "system-rules-prometheus",
			},
		},
		Spec: PrometheusRuleSpec{
			Groups: []RuleGroup{
				{
					Name: "kompara-alerts",
					Rules: []Rule{
						{
							Alert: "KomparaDown",
							Expr:  `absent(up{job="kompara"})`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Kompara is down",
								"description": "The kompara job has been absent for more than 2 minutes.",
							},
						},
						{
							Alert: "KomparaReadinessDown",
							Expr:  `kompara_readyz_up == 0`,
							For:   "2m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Kompara readiness check is failing",
								"description": "The readiness check has reported not-ready for more than 2 minutes. Affiliate credentials are likely missing.",
							},
						},
						{
							Alert: "KomparaHighErrorRate",
							Expr:  `kompara:http_errors:rate5m / kompara:http_requests:rate5m > 0.05`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "High HTTP error rate on kompara",
								"description": "More than 5% of HTTP requests are returning 5xx errors over the last 5 minutes.",
							},
						},
						{
							Alert: "KomparaUpstreamErrors",
							Expr:  `sum(kompara:provider_errors:rate5m) > 0.1`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Affiliate API calls are failing",
								"description": "Affiliate API calls have been failing at more than 0.1/s for the last 5 minutes.",
							},
						},
						{
							Alert: "KomparaTokenFetchFailures",
							Expr:  `increase(kompara_token_fetches_total{result="failure"}[15m]) > 0`,
							For:   "10m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Access token exchange is failing",
								"description": "The REST access-token exchange has failed repeatedly over the last 15 minutes.",
							},
						},
						{
							Alert: "KomparaQuotaHigh",
							Expr:  `kompara_provider_daily_usage / (kompara_provider_daily_limit > 0) > 0.8`,
							For:   "5m",
							Labels: map[string]string{
								"severity": "warning",
							},
							Annotations: map[string]string{
								"summary":     "Affiliate API daily usage is above 80% of the quota",
								"description": "Rolling 24h affiliate API usage has exceeded 80% of the configured daily limit.",
							},
						},
						{
							Alert: "KomparaLimitReached",
							Expr:  `increase(kompara_provider_daily_limit_hits_total[5m]) > 0`,
							For:   "0m",
							Labels: map[string]string{
								"severity": "critical",
							},
							Annotations: map[string]string{
								"summary":     "Affiliate API daily limit has been reached",
								"description": "The configured daily quota is exhausted. Searches return 503 until usage falls below the limit.",
							},
						},
					},
				},
			},
		},
	}
}
