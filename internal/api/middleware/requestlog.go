package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// healthPaths are logged once on the first success and on every failure.
var healthPaths = map[string]struct{}{
	"/healthz": {},
	"/readyz":  {},
}

// RequestLog returns Echo middleware that logs requests with structured fields.
// It generates a request ID if none is provided and propagates it through
// the response header and echo context. Health check successes are logged only
// after start-up or a failure; 5xx responses log at ERROR and other
// failed health checks at WARN.
func RequestLog(log *slog.Logger) echo.MiddlewareFunc {
	var (
		mu      sync.Mutex
		healthy = map[string]bool{}
	)

	// quiet reports whether a health check result is a repeat success, recording
	// the new state.
	quiet := func(path string, ok bool) bool {
		if _, health := healthPaths[path]; !health {
			return false
		}
		mu.Lock()
		defer mu.Unlock()
		was := healthy[path]
		healthy[path] = ok
		return ok && was
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			reqID := c.Request().Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = uuid.NewString()
			}

			c.Set(requestIDKey, reqID)
			c.Response().Header().Set(requestIDHeader, reqID)

			err := next(c)

			path := c.Request().URL.Path
			status := c.Response().Status
			ok := status < 400

			if quiet(path, ok) {
				return err
			}

			level := slog.LevelInfo
			switch {
			case status >= 500:
				level = slog.LevelError
			case !ok:
				level = slog.LevelWarn
			}
			if _, health := healthPaths[path]; health && !ok {
				level = slog.LevelWarn
			}

			log.Log(c.Request().Context(), level, "request",
				"method", c.Request().Method,
				"path", path,
				"status", status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", reqID,
			)

			return err
		}
	}
}

// RequestID returns the request ID assigned by RequestLog, or "".
func RequestID(c echo.Context) string {
	id, _ := c.Get(requestIDKey).(string)
	return id
}
