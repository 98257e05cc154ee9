package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/donaldgifford/kompara/internal/affiliate"
)

var testCreds = affiliate.Credentials{AppID: "1830001", Secret: "mock-secret"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) (*httptest.Server, *provider) {
	t.Helper()
	offers, err := loadFixture(filepath.Join("testdata", "offers.json"))
	if err != nil {
		t.Fatalf("loading fixture: %v", err)
	}
	p := newProvider(testCreds, offers, 4*time.Hour, testLogger())
	srv := httptest.NewServer(p.routes())
	t.Cleanup(srv.Close)
	return srv, p
}

func TestLoadFixture(t *testing.T) {
	offers, err := loadFixture(filepath.Join("testdata", "offers.json"))
	if err != nil {
		t.Fatalf("loading fixture: %v", err)
	}
	if len(offers) == 0 {
		t.Fatal("expected offers in fixture")
	}
	for i := range offers {
		if offers[i].MarketingLink == "" {
			t.Errorf("offer %d has no marketing link", i)
		}
	}
}

func TestLoadFixture_Missing(t *testing.T) {
	if _, err := loadFixture("testdata/nope.json"); err == nil {
		t.Fatal("expected error for missing fixture")
	}
}

func TestParseAuthorization(t *testing.T) {
	tests := []struct {
		name   string
		header string
		wantOK bool
		wantTS string
	}{
		{"valid", "SHA256 Credential=1830001, Timestamp=1700000000, Signature=abc", true, "1700000000"},
		{"wrong scheme", "Bearer abc", false, ""},
		{"missing signature", "SHA256 Credential=1830001, Timestamp=1700000000", false, "1700000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ts, _, ok := parseAuthorization(tt.header)
			if ok != tt.wantOK {
				t.Fatalf("ok=%v, want %v", ok, tt.wantOK)
			}
			if ts != tt.wantTS {
				t.Errorf("timestamp=%q, want %q", ts, tt.wantTS)
			}
		})
	}
}

func TestMatch(t *testing.T) {
	_, p := newTestServer(t)

	tests := []struct {
		keyword string
		limit   int
		want    int
	}{
		{"fralda", 0, 3},
		{"FRALDA", 0, 3},
		{"fralda", 2, 2},
		{"huggies", 0, 2},
		{"zzzz", 0, 0},
	}
	for _, tt := range tests {
		got := p.match(tt.keyword, tt.limit)
		if got == nil {
			t.Fatalf("match(%q) returned nil, want empty slice", tt.keyword)
		}
		if len(got) != tt.want {
			t.Errorf("match(%q, %d) returned %d offers, want %d", tt.keyword, tt.limit, len(got), tt.want)
		}
	}
}

func TestClients_AgainstMock(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, scheme := range []affiliate.Scheme{affiliate.SchemeGraphQL, affiliate.SchemeREST} {
		t.Run(string(scheme), func(t *testing.T) {
			s, _, err := affiliate.New(scheme, testCreds, srv.URL, nil, affiliate.WithRetry(0, 0))
			if err != nil {
				t.Fatalf("creating client: %v", err)
			}

			resp, err := s.Search(context.Background(), affiliate.SearchRequest{Keyword: "fralda"})
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(resp.Offers) != 3 {
				t.Fatalf("got %d offers, want 3", len(resp.Offers))
			}
			if resp.Offers[0].ProductName != "Fralda Pampers Confort Sec G 60 unidades" {
				t.Errorf("first offer = %q", resp.Offers[0].ProductName)
			}
			if resp.Offers[1].SalePrice != "59.5" {
				t.Errorf("numeric sale price = %q, want 59.5", resp.Offers[1].SalePrice)
			}
			if resp.Offers[2].MarketingLink != "https://s.shopee.com.br/1Lmock03" {
				t.Errorf("marketing link = %q", resp.Offers[2].MarketingLink)
			}
		})
	}
}

func TestClients_WrongSecret(t *testing.T) {
	srv, _ := newTestServer(t)
	bad := affiliate.Credentials{AppID: testCreds.AppID, Secret: "wrong"}

	s, _, err := affiliate.New(affiliate.SchemeGraphQL, bad, srv.URL, nil, affiliate.WithRetry(0, 0))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	_, err = s.Search(context.Background(), affiliate.SearchRequest{Keyword: "fralda"})

	var pe *affiliate.ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("err = %v, want *ProviderError", err)
	}
	if pe.Detail() != "Invalid Signature" {
		t.Errorf("detail = %q, want Invalid Signature", pe.Detail())
	}

	s, _, err = affiliate.New(affiliate.SchemeREST, bad, srv.URL, nil, affiliate.WithRetry(0, 0))
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	_, err = s.Search(context.Background(), affiliate.SearchRequest{Keyword: "fralda"})
	if !errors.Is(err, affiliate.ErrAuthentication) {
		t.Fatalf("err = %v, want ErrAuthentication", err)
	}
}

func TestSearchHandler_UnknownToken(t *testing.T) {
	srv, _ := newTestServer(t)

	ts := affiliate.Timestamp(time.Now())
	q := url.Values{}
	q.Set("app_id", testCreds.AppID)
	q.Set("access_token", "never-issued")
	q.Set("timestamp", ts)
	q.Set("sign", affiliate.SearchSignature(testCreds, affiliate.ProductSearchPath, ts, "never-issued"))
	q.Set("keywords", "fralda")

	resp, err := http.Get(srv.URL + affiliate.ProductSearchPath + "?" + q.Encode())
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body["error"] != "10031" {
		t.Errorf("error=%v, want 10031", body["error"])
	}
}

func TestTokenHandler_IssuesExpiringToken(t *testing.T) {
	_, p := newTestServer(t)
	now := time.Date(2025, 6, 16, 12, 0, 0, 0, time.UTC)
	p.nowFunc = func() time.Time { return now }

	ts := affiliate.Timestamp(now)
	q := url.Values{}
	q.Set("app_id", testCreds.AppID)
	q.Set("timestamp", ts)
	q.Set("sign", affiliate.TokenSignature(testCreds, affiliate.TokenPath, ts))

	req := httptest.NewRequest(http.MethodGet, affiliate.TokenPath+"?"+q.Encode(), http.NoBody)
	w := httptest.NewRecorder()
	p.tokenHandler(w, req)

	var body struct {
		Data struct {
			AccessToken string `json:"access_token"`
			ExpireIn    int64  `json:"expire_in"`
		} `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Data.ExpireIn != 14400 {
		t.Errorf("expire_in=%d, want 14400", body.Data.ExpireIn)
	}
	if !p.validToken(body.Data.AccessToken) {
		t.Fatal("issued token should be valid")
	}

	now = now.Add(5 * time.Hour)
	if p.validToken(body.Data.AccessToken) {
		t.Error("token should expire after its ttl")
	}
}
