// Package middleware provides Echo middleware for the kompara server.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/donaldgifford/kompara/internal/metrics"
)

// metricsSkipPaths are excluded from HTTP request metrics.
var metricsSkipPaths = map[string]struct{}{
	"/metrics":      {},
	"/healthz":      {},
	"/readyz":       {},
	"/openapi.json": {},
	"/openapi.yaml": {},
	"/docs":         {},
}

// healthGauges maps health check paths to their 0/1 gauge.
var healthGauges = map[string]prometheus.Gauge{
	"/healthz": metrics.HealthzUp,
	"/readyz":  metrics.ReadyzUp,
}

// unmatchedPath labels requests that hit no route, keeping path
// cardinality bounded.
const unmatchedPath = "unmatched"

// Metrics returns Echo middleware that records request duration and status
// by route template. Operational paths are excluded from the histogram and
// counter; health check paths update up/down gauges instead.
func Metrics() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if path == "" {
				path = c.Request().URL.Path
			}

			if _, skip := metricsSkipPaths[path]; skip {
				err := next(c)
				updateHealthGauge(path, c.Response().Status)
				return err
			}

			start := time.Now()

			err := next(c)

			// Echo writes the error response after the middleware chain.
			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok { //nolint:errorlint // echo returns it unwrapped
					status = he.Code
				}
			}
			if status == http.StatusNotFound && c.Path() == "" {
				path = unmatchedPath
			}

			labels := []string{c.Request().Method, path, strconv.Itoa(status)}
			metrics.HTTPRequestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			metrics.HTTPRequestsTotal.WithLabelValues(labels...).Inc()

			return err
		}
	}
}

func updateHealthGauge(path string, status int) {
	gauge, ok := healthGauges[path]
	if !ok {
		return
	}

	if status >= 200 && status < 300 {
		gauge.Set(1)
	} else {
		gauge.Set(0)
	}
}
