package client

import (
	"context"
	"time"
)

// QuotaStatus is the body of GET /api/v1/quota.
type QuotaStatus struct {
	Enabled    bool      `json:"enabled"`
	DailyLimit int64     `json:"daily_limit"`
	DailyUsed  int64     `json:"daily_used"`
	Remaining  int64     `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

// Quota returns the outbound rate limiter state.
func (c *Client) Quota(ctx context.Context) (*QuotaStatus, error) {
	var q QuotaStatus
	if err := c.get(ctx, "/api/v1/quota", nil, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

// TokenStatus is the body of GET /api/v1/token.
type TokenStatus struct {
	Scheme    string     `json:"scheme"`
	Enabled   bool       `json:"enabled"`
	State     string     `json:"state"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Fetches   int64      `json:"fetches"`
	Failures  int64      `json:"failures"`
}

// Token returns the access-token cache state.
func (c *Client) Token(ctx context.Context) (*TokenStatus, error) {
	var ts TokenStatus
	if err := c.get(ctx, "/api/v1/token", nil, &ts); err != nil {
		return nil, err
	}
	return &ts, nil
}

// Ready calls GET /readyz and returns nil when the server is ready.
func (c *Client) Ready(ctx context.Context) error {
	return c.get(ctx, "/readyz", nil, nil)
}
