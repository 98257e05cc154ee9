// Package api assembles the kompara HTTP server: Echo routes for the search
// endpoint and health checks, Huma operations for status endpoints, middleware, and
// the Prometheus scrape endpoint.
package api

import (
	"log/slog"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humaecho"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/donaldgifford/kompara/api/openapi"
	"github.com/donaldgifford/kompara/internal/affiliate"
	"github.com/donaldgifford/kompara/internal/api/handlers"
	mw "github.com/donaldgifford/kompara/internal/api/middleware"
)

const apiTitle = "kompara API"

// Deps are the collaborators the server routes to.
type Deps struct {
	Searcher affiliate.Searcher
	Scheme   affiliate.Scheme
	// Tokens is nil for schemes without access tokens.
	Tokens *affiliate.TokenManager
	// Limiter is nil when outbound rate limiting is disabled.
	Limiter *affiliate.RateLimiter
	Ready   handlers.ReadinessCheck
	Logger  *slog.Logger
	Version string
}

// NewServer builds the Echo instance with every route registered.
func NewServer(d Deps) *echo.Echo {
	log := d.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(mw.RequestLog(log), mw.Recovery(log), mw.Metrics())

	handlers.RegisterHealthRoutes(e, handlers.NewHealthHandler(d.Ready))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	search := handlers.NewSearchHandler(d.Searcher, log)
	handlers.RegisterSearchRoutes(e, search)

	version := d.Version
	if version == "" {
		version = "dev"
	}
	cfg := huma.DefaultConfig(apiTitle, version)
	cfg.OpenAPIPath = openapi.SpecPath
	humaAPI := humaecho.New(e, cfg)

	handlers.RegisterOfferSearchRoutes(humaAPI, search)
	handlers.RegisterQuotaRoutes(humaAPI, handlers.NewQuotaHandler(d.Limiter))

	// A nil *TokenManager must not become a non-nil interface.
	var tokens handlers.TokenInspector
	if d.Tokens != nil {
		tokens = d.Tokens
	}
	handlers.RegisterTokenRoutes(humaAPI, handlers.NewTokenHandler(d.Scheme, tokens))

	openapi.RegisterRoutes(e, apiTitle)

	return e
}
