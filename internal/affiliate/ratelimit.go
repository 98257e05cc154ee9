package affiliate

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/donaldgifford/kompara/internal/metrics"
)

// ErrDailyLimitReached is returned when the daily provider call quota has
// been exhausted.
var ErrDailyLimitReached = errors.New("daily provider API limit reached")

const quotaWindow = 24 * time.Hour

// QuotaStatus is a point-in-time view of the RateLimiter.
type QuotaStatus struct {
	DailyLimit int64
	DailyUsed  int64
	Remaining  int64
	ResetAt    time.Time
}

// RateLimiter throttles provider calls with a token bucket and caps them with
// a rolling 24-hour quota that starts at the first call of each window.
type RateLimiter struct {
	limiter  *rate.Limiter
	maxDaily int64
	nowFunc  func() time.Time

	mu      sync.Mutex
	used    int64
	resetAt time.Time
}

// RateLimiterOption configures the RateLimiter.
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterNowFunc overrides the time function for testing.
func WithRateLimiterNowFunc(f func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		r.nowFunc = f
	}
}

// NewRateLimiter creates a rate limiter with the given per-second rate,
// burst size, and daily limit. A maxDaily of zero or less disables the
// daily quota.
func NewRateLimiter(
	perSecond float64,
	burst int,
	maxDaily int64,
	opts ...RateLimiterOption,
) *RateLimiter {
	r := &RateLimiter{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), burst),
		maxDaily: maxDaily,
		nowFunc:  time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	metrics.ProviderDailyLimit.Set(float64(max(maxDaily, 0)))
	return r
}

// Wait blocks until the token bucket admits a call or ctx is done, and
// charges the call against the daily quota.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.reserveDaily(); err != nil {
		metrics.ProviderDailyLimitHits.Inc()
		return err
	}

	if err := r.limiter.Wait(ctx); err != nil {
		r.refundDaily()
		return fmt.Errorf("rate limiter wait: %w", err)
	}

	metrics.ProviderDailyUsage.Set(float64(r.Status().DailyUsed))
	return nil
}

// Status returns the current quota usage.
func (r *RateLimiter) Status() QuotaStatus {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rollLocked()

	remaining := r.maxDaily - r.used
	if remaining < 0 || r.maxDaily <= 0 {
		remaining = 0
	}
	return QuotaStatus{
		DailyLimit: r.maxDaily,
		DailyUsed:  r.used,
		Remaining:  remaining,
		ResetAt:    r.resetAt,
	}
}

func (r *RateLimiter) reserveDaily() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rollLocked()

	if r.maxDaily > 0 && r.used >= r.maxDaily {
		return fmt.Errorf("%w (%d/%d)", ErrDailyLimitReached, r.used, r.maxDaily)
	}
	if r.used == 0 {
		r.resetAt = r.nowFunc().Add(quotaWindow)
	}
	r.used++
	return nil
}

func (r *RateLimiter) refundDaily() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used > 0 {
		r.used--
	}
}

// rollLocked starts a new window once the current one has expired.
func (r *RateLimiter) rollLocked() {
	if !r.resetAt.IsZero() && !r.nowFunc().Before(r.resetAt) {
		r.used = 0
		r.resetAt = time.Time{}
	}
}
