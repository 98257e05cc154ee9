package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/labstack/echo/v4"

	"github.com/donaldgifford/kompara/internal/affiliate"
	"github.com/donaldgifford/kompara/internal/metrics"
	domain "github.com/donaldgifford/kompara/pkg/types"
)

// Client-facing messages. Internal error text is logged, never echoed.
const (
	msgMissingTerm   = "searchTerm query parameter is required"
	msgConfiguration = "server configuration error"
	msgAuth          = "failed to authenticate with the affiliate API"
	msgTransport     = "failed to reach the affiliate API"
	msgQuota         = "affiliate API quota exhausted"
	msgInternal      = "internal server error"
)

// SearchHandler proxies offer searches to the affiliate API.
type SearchHandler struct {
	searcher affiliate.Searcher
	log      *slog.Logger
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(s affiliate.Searcher, log *slog.Logger) *SearchHandler {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &SearchHandler{searcher: s, log: log}
}

// Search handles GET /search?searchTerm=<term> and returns the provider's
// offers as a JSON array, in the order the provider returned them.
//
// @Summary Search offers
// @Description Proxies a keyword search to the affiliate API.
// @Tags search
// @Produce json
// @Param searchTerm query string true "Search keyword"
// @Success 200 {array} domain.Offer
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /search [get]
func (h *SearchHandler) Search(c echo.Context) error {
	term := strings.TrimSpace(c.QueryParam("searchTerm"))
	if term == "" {
		metrics.SearchRequestsTotal.WithLabelValues("bad_request").Inc()
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: msgMissingTerm})
	}

	offers, err := h.search(c.Request().Context(), term)
	if err != nil {
		status, msg, outcome := classify(err)
		metrics.SearchRequestsTotal.WithLabelValues(outcome).Inc()
		h.log.Error("search failed",
			"term", term,
			"status", status,
			"outcome", outcome,
			"error", err,
		)
		return c.JSON(status, ErrorResponse{Error: msg})
	}

	metrics.SearchRequestsTotal.WithLabelValues("success").Inc()
	metrics.SearchOffersReturned.Observe(float64(len(offers)))
	h.log.Debug("search completed", "term", term, "offers", len(offers))

	return c.JSON(http.StatusOK, offers)
}

func (h *SearchHandler) search(ctx context.Context, term string) ([]domain.Offer, error) {
	resp, err := h.searcher.Search(ctx, affiliate.SearchRequest{Keyword: term})
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.Offers == nil {
		return []domain.Offer{}, nil
	}
	return resp.Offers, nil
}

// classify maps a search error to an HTTP status, the message shown to the
// caller, and a metrics outcome label. Authentication is checked before
// transport because a failed token exchange wraps both.
func classify(err error) (status int, msg, outcome string) {
	var pe *affiliate.ProviderError
	switch {
	case errors.Is(err, affiliate.ErrInput):
		return http.StatusBadRequest, msgMissingTerm, "bad_request"
	case errors.Is(err, affiliate.ErrConfiguration):
		return http.StatusInternalServerError, msgConfiguration, "configuration_error"
	case errors.Is(err, affiliate.ErrDailyLimitReached):
		return http.StatusServiceUnavailable, msgQuota, "quota_exhausted"
	case errors.Is(err, affiliate.ErrAuthentication):
		return http.StatusBadGateway, msgAuth, "auth_error"
	case errors.As(err, &pe):
		return http.StatusBadGateway, pe.Detail(), "upstream_error"
	case errors.Is(err, affiliate.ErrUpstream):
		return http.StatusBadGateway, "affiliate API returned an invalid response", "upstream_error"
	case errors.Is(err, affiliate.ErrTransport):
		return http.StatusInternalServerError, msgTransport, "transport_error"
	default:
		return http.StatusInternalServerError, msgInternal, "internal_error"
	}
}

// RegisterSearchRoutes registers GET /search and its serverless alias
// GET /api/search on the Echo instance.
func RegisterSearchRoutes(e *echo.Echo, h *SearchHandler) {
	e.GET("/search", h.Search)
	e.GET("/api/search", h.Search)
}

// OfferSearchInput is the query for the typed search operation.
type OfferSearchInput struct {
	Query string `query:"q"     doc:"Search keyword"                  example:"fralda"`
	Limit int    `query:"limit" doc:"Maximum offers to return (default 20)" example:"20" minimum:"0" maximum:"50"`
}

// OfferSearchOutput is the response body for the typed search operation.
type OfferSearchOutput struct {
	Body struct {
		Offers []domain.Offer `json:"offers" doc:"Offers in provider order"`
		Count  int            `json:"count"  doc:"Number of offers returned" example:"3"`
	}
}

// SearchOffers is the Huma variant of Search, documented in the OpenAPI
// schema and returning a wrapped result.
func (h *SearchHandler) SearchOffers(
	ctx context.Context,
	input *OfferSearchInput,
) (*OfferSearchOutput, error) {
	term := strings.TrimSpace(input.Query)
	if term == "" {
		return nil, huma.Error400BadRequest("q query parameter is required")
	}

	resp, err := h.searcher.Search(ctx, affiliate.SearchRequest{Keyword: term, Limit: input.Limit})
	if err != nil {
		status, msg, outcome := classify(err)
		metrics.SearchRequestsTotal.WithLabelValues(outcome).Inc()
		h.log.Error("search failed", "term", term, "status", status, "error", err)
		return nil, huma.NewError(status, msg)
	}

	out := &OfferSearchOutput{}
	out.Body.Offers = []domain.Offer{}
	if resp != nil && resp.Offers != nil {
		out.Body.Offers = resp.Offers
	}
	out.Body.Count = len(out.Body.Offers)

	metrics.SearchRequestsTotal.WithLabelValues("success").Inc()
	metrics.SearchOffersReturned.Observe(float64(out.Body.Count))
	return out, nil
}

// RegisterOfferSearchRoutes registers the typed search operation with the
// Huma API.
func RegisterOfferSearchRoutes(api huma.API, h *SearchHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "search-offers",
		Method:      http.MethodGet,
		Path:        "/api/v1/search",
		Summary:     "Search affiliate offers",
		Description: "Searches the affiliate API for offers matching a keyword.",
		Tags:        []string{"search"},
		Errors: []int{
			http.StatusBadRequest,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
		},
	}, h.SearchOffers)
}
