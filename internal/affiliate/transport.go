package affiliate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/donaldgifford/kompara/internal/metrics"
)

const (
	// DefaultBaseURL is the Brazilian affiliate open API host.
	DefaultBaseURL = "https://open-api.affiliate.shopee.com.br"

	defaultTimeout        = 10 * time.Second
	defaultMaxRetries     = 2
	defaultInitialBackoff = 200 * time.Millisecond
	maxResponseBytes      = 4 << 20
)

// errRetryableStatus marks an attempt that got a response worth retrying.
var errRetryableStatus = errors.New("retryable status")

// transport executes provider calls with a per-attempt timeout, rate
// limiting, and bounded exponential-backoff retries on transport failures,
// 429 and 5xx responses.
type transport struct {
	client         *http.Client
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	limiter        *RateLimiter
	nowFunc        func() time.Time
	log            *slog.Logger
}

func newTransport() transport {
	return transport{
		client:         &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		timeout:        defaultTimeout,
		maxRetries:     defaultMaxRetries,
		initialBackoff: defaultInitialBackoff,
		nowFunc:        time.Now,
		log:            slog.New(slog.DiscardHandler),
	}
}

// providerResponse is a fully read provider response.
type providerResponse struct {
	status int
	body   []byte
}

// requestBuilder builds a fresh, signed request for one attempt. It is
// invoked per attempt so every retry carries a current timestamp.
type requestBuilder func(ctx context.Context) (*http.Request, error)

// do runs build/send/read with retries. It returns the last response when
// retries on a retryable status are exhausted, so callers map the status
// themselves. Failures to reach the provider wrap ErrTransport.
func (t *transport) do(
	ctx context.Context,
	endpoint string,
	build requestBuilder,
) (*providerResponse, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = t.initialBackoff

	var policy backoff.BackOff = &backoff.StopBackOff{}
	if t.maxRetries > 0 {
		policy = backoff.WithMaxRetries(eb, uint64(t.maxRetries))
	}

	var (
		last    *providerResponse
		attempt int
	)

	op := func() error {
		if attempt > 0 {
			metrics.ProviderRetriesTotal.WithLabelValues(endpoint).Inc()
		}
		attempt++

		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return backoff.Permanent(err)
			}
		}

		resp, err := t.once(ctx, endpoint, build)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			t.log.Warn("provider call failed", "endpoint", endpoint, "attempt", attempt, "error", err)
			return err
		}

		last = resp
		if retryableStatus(resp.status) {
			t.log.Warn("provider call returned retryable status",
				"endpoint", endpoint, "attempt", attempt, "status", resp.status)
			return fmt.Errorf("%w %d", errRetryableStatus, resp.status)
		}
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(policy, ctx))
	switch {
	case err == nil:
		return last, nil
	case errors.Is(err, errRetryableStatus) && last != nil:
		return last, nil
	case errors.Is(err, ErrDailyLimitReached):
		return nil, err
	default:
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
}

func (t *transport) once(
	ctx context.Context,
	endpoint string,
	build requestBuilder,
) (*providerResponse, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	req, err := build(attemptCtx)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	metrics.ProviderRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		metrics.ProviderRequestsTotal.WithLabelValues(endpoint, "transport_error").Inc()
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	outcome := "success"
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		outcome = "http_" + strconv.Itoa(resp.StatusCode)
	}
	metrics.ProviderRequestsTotal.WithLabelValues(endpoint, outcome).Inc()

	return &providerResponse{status: resp.StatusCode, body: body}, nil
}

func retryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= http.StatusInternalServerError
}

// ClientOption configures the search clients.
type ClientOption func(*clientConfig)

type clientConfig struct {
	baseURL string
	transport
}

func newClientConfig(opts []ClientOption) clientConfig {
	cfg := clientConfig{
		baseURL:   DefaultBaseURL,
		transport: newTransport(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithBaseURL overrides the provider host. Empty values are ignored.
func WithBaseURL(u string) ClientOption {
	return func(c *clientConfig) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) {
		c.client = hc
	}
}

// WithTimeout sets the per-attempt timeout for provider calls.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetry sets the number of retries after the first attempt and the
// initial backoff between them. Zero retries disables retrying.
func WithRetry(maxRetries int, initialBackoff time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.maxRetries = maxRetries
		if initialBackoff > 0 {
			c.initialBackoff = initialBackoff
		}
	}
}

// WithRateLimiter routes every provider call through r.
func WithRateLimiter(r *RateLimiter) ClientOption {
	return func(c *clientConfig) {
		c.limiter = r
	}
}

// WithNowFunc overrides the clock used for request timestamps.
func WithNowFunc(f func() time.Time) ClientOption {
	return func(c *clientConfig) {
		c.nowFunc = f
	}
}

// WithLogger sets the logger for retry and failure diagnostics.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *clientConfig) {
		if l != nil {
			c.log = l
		}
	}
}
