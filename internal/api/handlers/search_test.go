package handlers_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/donaldgifford/kompara/internal/affiliate"
	"github.com/donaldgifford/kompara/internal/affiliate/mocks"
	"github.com/donaldgifford/kompara/internal/api/handlers"
	domain "github.com/donaldgifford/kompara/pkg/types"
)

func threeOffers() []domain.Offer {
	return []domain.Offer{
		{ProductName: "Fralda Pampers G", SalePrice: "89.90", MarketingLink: "https://s.shopee.com.br/1"},
		{ProductName: "Fralda Huggies XG", SalePrice: "59.5", MarketingLink: "https://s.shopee.com.br/2"},
		{ProductName: "Fralda MamyPoko M", SalePrice: "120.00", MarketingLink: "https://s.shopee.com.br/3"},
	}
}

func serveSearch(t *testing.T, h *handlers.SearchHandler, target string) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	handlers.RegisterSearchRoutes(e, h)

	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSearch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		target     string
		setupMock  func(m *mocks.MockSearcher)
		wantStatus int
		wantBody   string
		checkBody  func(t *testing.T, body []byte)
	}{
		{
			name:       "missing searchTerm",
			target:     "/search",
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"searchTerm query parameter is required"}`,
		},
		{
			name:       "whitespace searchTerm",
			target:     "/search?searchTerm=%20%20",
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"searchTerm query parameter is required"}`,
		},
		{
			name:   "offers in provider order",
			target: "/search?searchTerm=fralda",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, affiliate.SearchRequest{Keyword: "fralda"}).
					Return(&affiliate.SearchResponse{Offers: threeOffers()}, nil).
					Once()
			},
			wantStatus: http.StatusOK,
			checkBody: func(t *testing.T, body []byte) {
				t.Helper()
				var offers []domain.Offer
				require.NoError(t, json.Unmarshal(body, &offers))
				require.Len(t, offers, 3)
				assert.Equal(t, "Fralda Pampers G", offers[0].ProductName)
				assert.Equal(t, "Fralda Huggies XG", offers[1].ProductName)
				assert.Equal(t, "Fralda MamyPoko M", offers[2].ProductName)
			},
		},
		{
			name:   "serverless alias path",
			target: "/api/search?searchTerm=fralda",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, mock.Anything).
					Return(&affiliate.SearchResponse{Offers: threeOffers()}, nil).
					Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "empty result is an empty array",
			target: "/search?searchTerm=zzzz",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, mock.Anything).
					Return(&affiliate.SearchResponse{}, nil).
					Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `[]`,
		},
		{
			name:   "term is trimmed",
			target: "/search?searchTerm=%20fralda%20",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, affiliate.SearchRequest{Keyword: "fralda"}).
					Return(&affiliate.SearchResponse{Offers: []domain.Offer{}}, nil).
					Once()
			},
			wantStatus: http.StatusOK,
			wantBody:   `[]`,
		},
		{
			name:   "configuration error",
			target: "/search?searchTerm=fralda",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: missing credentials", affiliate.ErrConfiguration)).
					Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"server configuration error"}`,
		},
		{
			name:   "provider error surfaces provider message",
			target: "/search?searchTerm=fralda",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("searching: %w", &affiliate.ProviderError{
						Status:  http.StatusOK,
						Code:    "10020",
						Message: "Invalid Signature",
					})).
					Once()
			},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"Invalid Signature"}`,
		},
		{
			name:   "upstream status without message",
			target: "/search?searchTerm=fralda",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, mock.Anything).
					Return(nil, &affiliate.ProviderError{Status: http.StatusServiceUnavailable}).
					Once()
			},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"provider returned status 503"}`,
		},
		{
			name:   "authentication error",
			target: "/search?searchTerm=fralda",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: %w: dial tcp: refused",
						affiliate.ErrAuthentication, affiliate.ErrTransport)).
					Once()
			},
			wantStatus: http.StatusBadGateway,
			wantBody:   `{"error":"failed to authenticate with the affiliate API"}`,
		},
		{
			name:   "transport error",
			target: "/search?searchTerm=fralda",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, mock.Anything).
					Return(nil, fmt.Errorf("%w: dial tcp: refused", affiliate.ErrTransport)).
					Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"failed to reach the affiliate API"}`,
		},
		{
			name:   "daily quota exhausted",
			target: "/search?searchTerm=fralda",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, mock.Anything).
					Return(nil, affiliate.ErrDailyLimitReached).
					Once()
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   `{"error":"affiliate API quota exhausted"}`,
		},
		{
			name:   "unclassified error is not echoed",
			target: "/search?searchTerm=fralda",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, mock.Anything).
					Return(nil, errors.New("secret internal detail")).
					Once()
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal server error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Zero expectations also asserts zero outbound calls.
			ms := mocks.NewMockSearcher(t)
			if tt.setupMock != nil {
				tt.setupMock(ms)
			}

			rec := serveSearch(t, handlers.NewSearchHandler(ms, nil), tt.target)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
			if tt.checkBody != nil {
				tt.checkBody(t, rec.Body.Bytes())
			}
		})
	}
}

func TestSearch_UnconfiguredSearcher(t *testing.T) {
	t.Parallel()

	s := affiliate.Unconfigured(fmt.Errorf("%w: missing credentials", affiliate.ErrConfiguration))
	rec := serveSearch(t, handlers.NewSearchHandler(s, nil), "/search?searchTerm=fralda")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"server configuration error"}`, rec.Body.String())
}

func TestSearchOffers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		setupMock  func(m *mocks.MockSearcher)
		wantStatus int
		wantCount  int
		wantDetail string
	}{
		{
			name:       "missing query",
			path:       "/api/v1/search",
			wantStatus: http.StatusBadRequest,
			wantDetail: "q query parameter is required",
		},
		{
			name: "limit is forwarded",
			path: "/api/v1/search?q=fralda&limit=5",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, affiliate.SearchRequest{Keyword: "fralda", Limit: 5}).
					Return(&affiliate.SearchResponse{Offers: threeOffers()}, nil).
					Once()
			},
			wantStatus: http.StatusOK,
			wantCount:  3,
		},
		{
			name: "nil offers become empty",
			path: "/api/v1/search?q=fralda",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, mock.Anything).
					Return(&affiliate.SearchResponse{}, nil).
					Once()
			},
			wantStatus: http.StatusOK,
			wantCount:  0,
		},
		{
			name: "provider error",
			path: "/api/v1/search?q=fralda",
			setupMock: func(m *mocks.MockSearcher) {
				m.EXPECT().
					Search(mock.Anything, mock.Anything).
					Return(nil, &affiliate.ProviderError{Status: 200, Message: "keyword too long"}).
					Once()
			},
			wantStatus: http.StatusBadGateway,
			wantDetail: "keyword too long",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ms := mocks.NewMockSearcher(t)
			if tt.setupMock != nil {
				tt.setupMock(ms)
			}

			_, api := humatest.New(t)
			handlers.RegisterOfferSearchRoutes(api, handlers.NewSearchHandler(ms, nil))

			resp := api.Get(tt.path)
			require.Equal(t, tt.wantStatus, resp.Code)

			if tt.wantDetail != "" {
				assert.Contains(t, resp.Body.String(), tt.wantDetail)
				return
			}

			var body struct {
				Offers []domain.Offer `json:"offers"`
				Count  int            `json:"count"`
			}
			require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCount, body.Count)
			assert.NotNil(t, body.Offers)
			assert.Len(t, body.Offers, tt.wantCount)
		})
	}
}
