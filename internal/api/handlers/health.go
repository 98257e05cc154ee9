package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ReadinessCheck reports why the service cannot serve searches, or nil.
type ReadinessCheck func(ctx context.Context) error

// HealthHandler provides health and readiness endpoints.
type HealthHandler struct {
	ready ReadinessCheck
}

// NewHealthHandler creates a new HealthHandler. A nil check is always ready.
func NewHealthHandler(ready ReadinessCheck) *HealthHandler {
	return &HealthHandler{ready: ready}
}

// Healthz returns 200 if the process is running.
//
// @Summary Liveness check
// @Description Returns 200 if the process is running.
// @Tags health
// @Produce json
// @Success 200 {object} StatusResponse
// @Router /healthz [get]
func (*HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// Readyz returns 200 if credentials resolved and the provider client is
// usable, 503 otherwise.
//
// @Summary Readiness check
// @Description Returns 200 if the service can serve searches, 503 otherwise.
// @Tags health
// @Produce json
// @Success 200 {object} StatusResponse
// @Failure 503 {object} StatusResponse
// @Router /readyz [get]
func (h *HealthHandler) Readyz(c echo.Context) error {
	if h.ready != nil {
		if err := h.ready(c.Request().Context()); err != nil {
			return c.JSON(
				http.StatusServiceUnavailable,
				StatusResponse{Status: "unavailable"},
			)
		}
	}
	return c.JSON(http.StatusOK, StatusResponse{Status: "ready"})
}

// RegisterHealthRoutes registers the health check endpoints on the Echo instance.
func RegisterHealthRoutes(e *echo.Echo, h *HealthHandler) {
	e.GET("/healthz", h.Healthz)
	e.GET("/readyz", h.Readyz)
}
