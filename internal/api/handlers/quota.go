package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/donaldgifford/kompara/internal/affiliate"
)

// QuotaHandler provides the affiliate API quota status endpoint.
type QuotaHandler struct {
	rl *affiliate.RateLimiter
}

// NewQuotaHandler creates a new QuotaHandler. rl may be nil when rate
// limiting is disabled.
func NewQuotaHandler(rl *affiliate.RateLimiter) *QuotaHandler {
	return &QuotaHandler{rl: rl}
}

// QuotaOutput is the response body for the quota endpoint.
type QuotaOutput struct {
	Body struct {
		Enabled    bool      `json:"enabled"     example:"true"                 doc:"Whether outbound rate limiting is configured"`
		DailyLimit int64     `json:"daily_limit" example:"10000"                doc:"Configured daily API call limit (0 means unlimited)"`
		DailyUsed  int64     `json:"daily_used"  example:"142"                  doc:"API calls used in the current 24-hour window"`
		Remaining  int64     `json:"remaining"   example:"9858"                 doc:"API calls remaining in the current window"`
		ResetAt    time.Time `json:"reset_at"    example:"2025-06-16T14:30:00Z" doc:"When the current 24-hour window expires"`
	}
}

// GetQuota returns the current affiliate API quota status.
func (h *QuotaHandler) GetQuota(_ context.Context, _ *struct{}) (*QuotaOutput, error) {
	resp := &QuotaOutput{}
	if h.rl == nil {
		return resp, nil
	}

	st := h.rl.Status()
	resp.Body.Enabled = true
	resp.Body.DailyLimit = st.DailyLimit
	resp.Body.DailyUsed = st.DailyUsed
	resp.Body.Remaining = st.Remaining
	resp.Body.ResetAt = st.ResetAt

	return resp, nil
}

// RegisterQuotaRoutes registers the quota endpoint with the Huma API.
func RegisterQuotaRoutes(api huma.API, h *QuotaHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-quota",
		Method:      http.MethodGet,
		Path:        "/api/v1/quota",
		Summary:     "Get affiliate API quota status",
		Description: "Returns the current daily API call usage, remaining quota, and window reset time.",
		Tags:        []string{"affiliate"},
	}, h.GetQuota)
}
