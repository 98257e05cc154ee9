package openapi_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"github.com/donaldgifford/kompara/api/openapi"
)

func TestRegisterRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		path         string
		wantStatus   int
		wantContains string
		wantLocation string
	}{
		{
			name:         "ui page points at generated spec",
			path:         "/swagger/index.html",
			wantStatus:   http.StatusOK,
			wantContains: `url: "/openapi.json"`,
		},
		{
			name:         "bare path redirects",
			path:         "/swagger",
			wantStatus:   http.StatusMovedPermanently,
			wantLocation: "/swagger/index.html",
		},
		{
			name:         "trailing slash redirects",
			path:         "/swagger/",
			wantStatus:   http.StatusMovedPermanently,
			wantLocation: "/swagger/index.html",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			e := echo.New()
			openapi.RegisterRoutes(e, "kompara API")

			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, http.NoBody))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantContains != "" {
				assert.Contains(t, rec.Body.String(), tt.wantContains)
				assert.Contains(t, rec.Body.String(), "<title>kompara API</title>")
			}
			if tt.wantLocation != "" {
				assert.Equal(t, tt.wantLocation, rec.Header().Get("Location"))
			}
		})
	}
}
