package affiliate_test

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/donaldgifford/kompara/internal/affiliate"
)

var testCreds = affiliate.Credentials{AppID: "18300010001", Secret: "test-secret"}

// fakeClock is a manually advanced clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// stubProvider is an httptest server standing in for the affiliate API. It
// counts calls per path and delegates to per-path handlers.
type stubProvider struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	counts   map[string]*atomic.Int32
}

func newStubProvider(t *testing.T, handlers map[string]http.HandlerFunc) *stubProvider {
	t.Helper()

	p := &stubProvider{
		handlers: handlers,
		counts: map[string]*atomic.Int32{
			"/graphql":               {},
			"/api/v3/token/get":      {},
			"/api/v3/product/search": {},
		},
	}

	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if c, ok := p.counts[r.URL.Path]; ok {
			c.Add(1)
		}
		p.mu.Lock()
		h, ok := p.handlers[r.URL.Path]
		p.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w, r)
	}))
	t.Cleanup(p.Close)

	return p
}

func (p *stubProvider) calls(path string) int32 {
	return p.counts[path].Load()
}

func (p *stubProvider) setHandler(path string, h http.HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[path] = h
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func tokenJSON(token string, expireIn int) string {
	return fmt.Sprintf(
		`{"error":"","message":"","data":{"access_token":%q,"expire_in":%d}}`,
		token, expireIn,
	)
}

func tokenHandler(token string, expireIn int) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, tokenJSON(token, expireIn))
	}
}

// noRetry keeps failure tests fast and call counts exact.
func noRetry() affiliate.ClientOption {
	return affiliate.WithRetry(0, 0)
}
