package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/kompara/internal/affiliate"
)

// TokenInspector exposes the access-token cache without the token itself.
type TokenInspector interface {
	Snapshot() affiliate.TokenSnapshot
}

// TokenHandler provides the access-token status endpoint.
type TokenHandler struct {
	scheme affiliate.Scheme
	tokens TokenInspector
}

// NewTokenHandler creates a new TokenHandler. tokens is nil for schemes
// that do not use access tokens.
func NewTokenHandler(scheme affiliate.Scheme, tokens TokenInspector) *TokenHandler {
	return &TokenHandler{scheme: scheme, tokens: tokens}
}

// TokenStatusOutput is the response body for the token status endpoint.
type TokenStatusOutput struct {
	Body struct {
		Scheme    string     `json:"scheme"               example:"rest"                 doc:"Configured authentication scheme"`
		Enabled   bool       `json:"enabled"              example:"true"                 doc:"Whether the scheme uses access tokens"`
		State     string     `json:"state"                example:"valid"                doc:"Cache state: empty, valid, expired, or disabled"`
		ExpiresAt *time.Time `json:"expires_at,omitempty" example:"2025-06-16T14:30:00Z" doc:"When the cached token stops being used"`
		Fetches   int64      `json:"fetches"              example:"3"                    doc:"Successful token exchanges since start"`
		Failures  int64      `json:"failures"             example:"0"                    doc:"Failed token exchanges since start"`
	}
}

// GetTokenStatus reports the access-token cache state. The token value is
// never returned.
func (h *TokenHandler) GetTokenStatus(_ context.Context, _ *struct{}) (*TokenStatusOutput, error) {
	resp := &TokenStatusOutput{}
	resp.Body.Scheme = string(h.scheme)

	if h.tokens == nil {
		resp.Body.State = "disabled"
		return resp, nil
	}

	snap := h.tokens.Snapshot()
	resp.Body.Enabled = true
	resp.Body.State = snap.State.String()
	resp.Body.Fetches = snap.Fetches
	resp.Body.Failures = snap.Failures
	if !snap.ExpiresAt.IsZero() {
		exp := snap.ExpiresAt
		resp.Body.ExpiresAt = &exp
	}

	return resp, nil
}

// RegisterTokenRoutes registers the token status endpoint with the Huma API.
func RegisterTokenRoutes(api huma.API, h *TokenHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-token-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/token",
		Summary:     "Get access token status",
		Description: "Returns the access-token cache state, expiry, and exchange counters.",
		Tags:        []string{"affiliate"},
	}, h.GetTokenStatus)
}
