// Package main implements a mock Shopee Affiliate API server for local
// development. It serves offers from a JSON fixture over the GraphQL
// endpoint and the REST token and product search endpoints, verifying
// request signatures against the configured secret.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/donaldgifford/kompara/internal/affiliate"
	domain "github.com/donaldgifford/kompara/pkg/types"
)

const (
	codeInvalidSignature = 10020
	codeInvalidToken     = 10031
	defaultPageSize      = 20
)

func main() {
	port := flag.Int("port", 8089, "port to listen on")
	fixtureFile := flag.String("fixture", "tools/mock-server/testdata/offers.json", "path to offers fixture")
	appID := flag.String("app-id", "1830001", "app id clients must present")
	secret := flag.String("secret", "mock-secret", "secret used to verify signatures")
	tokenTTL := flag.Duration("token-ttl", 4*time.Hour, "lifetime of issued access tokens")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	offers, err := loadFixture(*fixtureFile)
	if err != nil {
		logger.Error("failed to load fixture", "path", *fixtureFile, "error", err)
		os.Exit(1)
	}
	logger.Info("loaded fixture", "offers", len(offers))

	p := newProvider(affiliate.Credentials{AppID: *appID, Secret: *secret}, offers, *tokenTTL, logger)

	addr := fmt.Sprintf(":%d", *port)
	logger.Info("starting mock affiliate server", "addr", addr, "app_id", *appID)

	srv := &http.Server{
		Addr:         addr,
		Handler:      requestLogger(logger, p.routes()),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadFixture(path string) ([]domain.Offer, error) {
	data, err := os.ReadFile(path) //nolint:gosec // fixture path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var offers []domain.Offer
	if err := json.Unmarshal(data, &offers); err != nil {
		return nil, fmt.Errorf("parsing fixture: %w", err)
	}
	return offers, nil
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("request", "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// provider holds the issued tokens and the fixture.
type provider struct {
	creds    affiliate.Credentials
	offers   []domain.Offer
	tokenTTL time.Duration
	log      *slog.Logger
	nowFunc  func() time.Time

	mu     sync.Mutex
	tokens map[string]time.Time // token -> expiry
}

func newProvider(
	creds affiliate.Credentials,
	offers []domain.Offer,
	ttl time.Duration,
	logger *slog.Logger,
) *provider {
	return &provider{
		creds:    creds,
		offers:   offers,
		tokenTTL: ttl,
		log:      logger,
		nowFunc:  time.Now,
		tokens:   make(map[string]time.Time),
	}
}

func (p *provider) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST "+affiliate.GraphQLPath, p.graphQLHandler)
	mux.HandleFunc("GET "+affiliate.TokenPath, p.tokenHandler)
	mux.HandleFunc("GET "+affiliate.ProductSearchPath, p.searchHandler)
	return mux
}

// match returns the fixture offers whose name contains keyword, in fixture
// order, capped at limit.
func (p *provider) match(keyword string, limit int) []domain.Offer {
	if limit <= 0 {
		limit = defaultPageSize
	}
	kw := strings.ToLower(strings.TrimSpace(keyword))
	matched := make([]domain.Offer, 0)
	for i := range p.offers {
		if len(matched) == limit {
			break
		}
		if kw == "" || strings.Contains(strings.ToLower(p.offers[i].ProductName), kw) {
			matched = append(matched, p.offers[i])
		}
	}
	return matched
}

// parseAuthorization splits "SHA256 Credential=<id>, Timestamp=<ts>,
// Signature=<hex>".
func parseAuthorization(h string) (appID, ts, sig string, ok bool) {
	rest, found := strings.CutPrefix(h, "SHA256 ")
	if !found {
		return "", "", "", false
	}
	for part := range strings.SplitSeq(rest, ",") {
		k, v, _ := strings.Cut(strings.TrimSpace(part), "=")
		switch k {
		case "Credential":
			appID = v
		case "Timestamp":
			ts = v
		case "Signature":
			sig = v
		}
	}
	return appID, ts, sig, appID != "" && ts != "" && sig != ""
}

func (p *provider) graphQLHandler(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeGraphQLError(w, http.StatusBadRequest, "unreadable body", 10000)
		return
	}

	appID, ts, sig, ok := parseAuthorization(r.Header.Get("Authorization"))
	if !ok || appID != p.creds.AppID ||
		!affiliate.Verify(p.creds.Secret, sig, appID, ts, string(body), p.creds.Secret) {
		p.log.Warn("graphql signature rejected", "app_id", appID)
		writeGraphQLError(w, http.StatusOK, "Invalid Signature", codeInvalidSignature)
		return
	}

	var req struct {
		Variables struct {
			Keyword string `json:"keyword"`
			Limit   int    `json:"limit"`
		} `json:"variables"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		writeGraphQLError(w, http.StatusOK, "invalid request body", 10000)
		return
	}

	nodes := p.match(req.Variables.Keyword, req.Variables.Limit)
	writeJSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"productOfferV2": map[string]any{"nodes": nodes},
		},
	})
	p.log.Info("graphql search", "keyword", req.Variables.Keyword, "returned", len(nodes))
}

func (p *provider) tokenHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	appID, ts := q.Get("app_id"), q.Get("timestamp")
	if appID != p.creds.AppID ||
		!affiliate.Verify(p.creds.Secret, q.Get("sign"), appID, affiliate.TokenPath, ts) {
		p.log.Warn("token signature rejected", "app_id", appID)
		writeJSON(w, http.StatusOK, map[string]any{
			"error":   strconv.Itoa(codeInvalidSignature),
			"message": "Invalid Signature",
		})
		return
	}

	token, err := newToken()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal", "message": err.Error()})
		return
	}

	p.mu.Lock()
	p.tokens[token] = p.nowFunc().Add(p.tokenTTL)
	p.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"error":   0,
		"message": "success",
		"data": map[string]any{
			"access_token": token,
			"expire_in":    int64(p.tokenTTL / time.Second),
		},
	})
	p.log.Info("issued mock token", "ttl", p.tokenTTL)
}

func (p *provider) validToken(token string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	exp, ok := p.tokens[token]
	return ok && p.nowFunc().Before(exp)
}

type restOffer struct {
	ItemID         domain.FlexString `json:"item_id"`
	ProductName    string            `json:"product_name"`
	ShopName       string            `json:"shop_name"`
	OriginPrice    domain.FlexString `json:"origin_price"`
	SalePrice      domain.FlexString `json:"sale_price"`
	ImageURL       string            `json:"image_url"`
	CommissionRate domain.FlexString `json:"commission_rate"`
	Commission     domain.FlexString `json:"commission"`
	OfferLink      string            `json:"offer_link"`
}

func (p *provider) searchHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	appID, ts, token := q.Get("app_id"), q.Get("timestamp"), q.Get("access_token")

	if appID != p.creds.AppID ||
		!affiliate.Verify(p.creds.Secret, q.Get("sign"), appID, affiliate.ProductSearchPath, ts, token) {
		p.log.Warn("search signature rejected", "app_id", appID)
		writeJSON(w, http.StatusOK, map[string]any{
			"error":   strconv.Itoa(codeInvalidSignature),
			"message": "Invalid Signature",
		})
		return
	}
	if !p.validToken(token) {
		p.log.Warn("search with unknown or expired token")
		writeJSON(w, http.StatusOK, map[string]any{
			"error":   strconv.Itoa(codeInvalidToken),
			"message": "invalid access_token",
		})
		return
	}

	limit, _ := strconv.Atoi(q.Get("page_size"))
	matched := p.match(q.Get("keywords"), limit)

	list := make([]restOffer, 0, len(matched))
	for i := range matched {
		o := &matched[i]
		list = append(list, restOffer{
			ItemID:         o.ItemID,
			ProductName:    o.ProductName,
			ShopName:       o.ShopName,
			OriginPrice:    o.OriginPrice,
			SalePrice:      o.SalePrice,
			ImageURL:       o.ImageURL,
			CommissionRate: o.CommissionRate,
			Commission:     o.Commission,
			OfferLink:      o.MarketingLink,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"error":   0,
		"message": "success",
		"data":    map[string]any{"product_offer_list": list},
	})
	p.log.Info("rest search", "keywords", q.Get("keywords"), "returned", len(list))
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, 1<<20))
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "mock-token-" + hex.EncodeToString(b), nil
}

func writeGraphQLError(w http.ResponseWriter, status int, msg string, code int) {
	writeJSON(w, status, map[string]any{
		"errors": []map[string]any{{
			"message":    msg,
			"extensions": map[string]any{"code": code, "message": msg},
		}},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort write to HTTP response in mock server
	json.NewEncoder(w).Encode(v)
}
