package affiliate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/donaldgifford/kompara/internal/metrics"
)

const (
	// TokenPath is the access-token exchange endpoint.
	TokenPath = "/api/v3/token/get"

	// DefaultSafetyMargin is subtracted from the provider-declared token
	// lifetime so a token is never used right at its expiry.
	DefaultSafetyMargin = 300 * time.Second

	instrumentationName = "github.com/donaldgifford/kompara/internal/affiliate"
	flightKey           = "access-token"
)

var tracer = otel.Tracer(instrumentationName)

// TokenState is the lifecycle state of the cached access token.
type TokenState int

// Token states.
const (
	TokenEmpty TokenState = iota
	TokenValid
	TokenExpired
)

func (s TokenState) String() string {
	switch s {
	case TokenValid:
		return "valid"
	case TokenExpired:
		return "expired"
	default:
		return "empty"
	}
}

// TokenSnapshot is a point-in-time view of the TokenManager.
type TokenSnapshot struct {
	State     TokenState
	ExpiresAt time.Time
	Fetches   int64
	Failures  int64
}

type cachedToken struct {
	value     string
	expiresAt time.Time
}

// TokenManager implements TokenProvider for the REST scheme. It owns a
// single cached token slot. Reads of a valid token are lock-free; refreshes
// are coalesced so concurrent callers observe one fetch. A failed fetch
// leaves the slot untouched and the next call tries again.
type TokenManager struct {
	creds   Credentials
	margin  time.Duration
	nowFunc func() time.Time
	log     *slog.Logger

	clientOpts []ClientOption
	cfg        clientConfig

	current  atomic.Pointer[cachedToken]
	group    singleflight.Group
	fetches  atomic.Int64
	failures atomic.Int64

	fetchCounter metric.Int64Counter
}

// TokenOption configures the TokenManager.
type TokenOption func(*TokenManager)

// WithTokenBaseURL overrides the provider host used for token exchange.
func WithTokenBaseURL(u string) TokenOption {
	return func(m *TokenManager) {
		m.clientOpts = append(m.clientOpts, WithBaseURL(u))
	}
}

// WithTokenClientOptions applies transport settings (HTTP client, timeout,
// retries, rate limiter) to token exchange calls.
func WithTokenClientOptions(opts ...ClientOption) TokenOption {
	return func(m *TokenManager) {
		m.clientOpts = append(m.clientOpts, opts...)
	}
}

// WithSafetyMargin overrides DefaultSafetyMargin.
func WithSafetyMargin(d time.Duration) TokenOption {
	return func(m *TokenManager) {
		if d >= 0 {
			m.margin = d
		}
	}
}

// WithTokenNowFunc overrides the time function for testing.
func WithTokenNowFunc(f func() time.Time) TokenOption {
	return func(m *TokenManager) {
		m.nowFunc = f
	}
}

// WithTokenLogger sets the logger.
func WithTokenLogger(l *slog.Logger) TokenOption {
	return func(m *TokenManager) {
		if l != nil {
			m.log = l
		}
	}
}

// NewTokenManager creates a TokenManager in the Empty state.
func NewTokenManager(creds Credentials, opts ...TokenOption) *TokenManager {
	m := &TokenManager{
		creds:   creds,
		margin:  DefaultSafetyMargin,
		nowFunc: time.Now,
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.cfg = newClientConfig(m.clientOpts)
	m.cfg.nowFunc = m.nowFunc
	m.cfg.log = m.log

	counter, err := otel.Meter(instrumentationName).Int64Counter(
		"kompara.token.fetches",
		metric.WithDescription("Access-token exchanges by result."),
	)
	if err != nil {
		counter = noop.Int64Counter{}
	}
	m.fetchCounter = counter

	return m
}

// Token returns a valid access token, fetching one if the slot is Empty or
// Expired. Concurrent callers share a single in-flight fetch. The fetch is
// detached from ctx cancellation so one caller giving up does not fail the
// others; ctx still bounds how long this caller waits.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if tok, ok := m.valid(); ok {
		metrics.TokenCacheHitsTotal.Inc()
		return tok, nil
	}

	ch := m.group.DoChan(flightKey, func() (any, error) {
		if tok, ok := m.valid(); ok {
			return tok, nil
		}
		return m.fetch(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for access token: %w", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		tok, _ := res.Val.(string)
		return tok, nil
	}
}

// State reports the current lifecycle state.
func (m *TokenManager) State() TokenState {
	tok := m.current.Load()
	switch {
	case tok == nil:
		return TokenEmpty
	case m.nowFunc().Before(tok.expiresAt):
		return TokenValid
	default:
		return TokenExpired
	}
}

// Snapshot returns the current state, adjusted expiry and fetch counters.
func (m *TokenManager) Snapshot() TokenSnapshot {
	s := TokenSnapshot{
		State:    m.State(),
		Fetches:  m.fetches.Load(),
		Failures: m.failures.Load(),
	}
	if tok := m.current.Load(); tok != nil {
		s.ExpiresAt = tok.expiresAt
	}
	return s
}

// Invalidate clears the slot if it still holds token, so a token the
// provider rejected is refetched on the next call. A token that has
// already been replaced is left alone.
func (m *TokenManager) Invalidate(token string) {
	tok := m.current.Load()
	if tok == nil || tok.value != token {
		return
	}
	if m.current.CompareAndSwap(tok, nil) {
		m.log.Info("access token invalidated")
	}
}

func (m *TokenManager) valid() (string, bool) {
	tok := m.current.Load()
	if tok == nil || !m.nowFunc().Before(tok.expiresAt) {
		return "", false
	}
	return tok.value, true
}

// tokenPayload accepts both the snake_case and camelCase spellings seen
// from the provider.
type tokenPayload struct {
	AccessToken      string `json:"access_token"`
	AccessTokenCamel string `json:"accessToken"`
	ExpireIn         int64  `json:"expire_in"`
	ExpireInCamel    int64  `json:"expireIn"`
}

func (p *tokenPayload) token() string {
	if p.AccessToken != "" {
		return p.AccessToken
	}
	return p.AccessTokenCamel
}

func (p *tokenPayload) expireIn() int64 {
	if p.ExpireIn != 0 {
		return p.ExpireIn
	}
	return p.ExpireInCamel
}

type tokenResponse struct {
	tokenPayload

	Data    *tokenPayload   `json:"data"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

func (m *TokenManager) fetch(ctx context.Context) (string, error) {
	m.fetches.Add(1)

	ctx, span := tracer.Start(ctx, "affiliate.token.fetch",
		trace.WithAttributes(attribute.String("affiliate.app_id", m.creds.AppID)))
	defer span.End()

	resp, err := m.cfg.do(ctx, "token", func(ctx context.Context) (*http.Request, error) {
		ts := Timestamp(m.nowFunc())
		q := url.Values{}
		q.Set("app_id", m.creds.AppID)
		q.Set("timestamp", ts)
		q.Set("sign", TokenSignature(m.creds, TokenPath, ts))
		return http.NewRequestWithContext(
			ctx,
			http.MethodGet,
			m.cfg.baseURL+TokenPath+"?"+q.Encode(),
			http.NoBody,
		)
	})
	if err != nil {
		return m.fail(ctx, span, fmt.Errorf("%w: requesting token: %w", ErrAuthentication, err))
	}

	if resp.status < 200 || resp.status > 299 {
		return m.fail(ctx, span, fmt.Errorf(
			"%w: token request failed (status %d): %s",
			ErrAuthentication, resp.status, truncate(resp.body, 256),
		))
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.body, &tr); err != nil {
		return m.fail(ctx, span, fmt.Errorf("%w: parsing token response: %w", ErrAuthentication, err))
	}

	payload := &tr.tokenPayload
	if tr.Data != nil && tr.Data.token() != "" {
		payload = tr.Data
	}

	token := payload.token()
	if token == "" {
		if code, msg, ok := providerErrorField(tr.Error); ok {
			if msg == "" {
				msg = tr.Message
			}
			return m.fail(ctx, span, fmt.Errorf(
				"%w: provider rejected token request: %s %s",
				ErrAuthentication, code, msg,
			))
		}
		return m.fail(ctx, span, fmt.Errorf("%w: response missing access token", ErrAuthentication))
	}

	if payload.expireIn() <= 0 {
		return m.fail(ctx, span, fmt.Errorf(
			"%w: response missing positive expire_in (got %d)",
			ErrAuthentication, payload.expireIn(),
		))
	}

	now := m.nowFunc()
	lifetime := time.Duration(payload.expireIn()) * time.Second
	margin := m.margin
	if lifetime <= margin {
		// Keep short-lived tokens usable for half their lifetime.
		margin = lifetime / 2
		m.log.Warn("access token lifetime shorter than safety margin",
			"expire_in", payload.expireIn(), "margin", m.margin, "effective_margin", margin)
	}
	expiresAt := now.Add(lifetime - margin)

	m.current.Store(&cachedToken{value: token, expiresAt: expiresAt})

	metrics.TokenFetchesTotal.WithLabelValues("success").Inc()
	metrics.TokenExpiresAt.Set(float64(expiresAt.Unix()))
	m.fetchCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "success")))
	m.log.Info("access token refreshed", "expires_at", expiresAt)

	return token, nil
}

func (m *TokenManager) fail(ctx context.Context, span trace.Span, err error) (string, error) {
	m.failures.Add(1)
	metrics.TokenFetchesTotal.WithLabelValues("failure").Inc()
	m.fetchCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "failure")))
	span.RecordError(err)
	span.SetStatus(codes.Error, "token fetch failed")
	m.log.Error("access token fetch failed", "error", err)
	return "", err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
