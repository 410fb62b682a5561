package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newAPIKeyRouter() *gin.Engine {
	r := gin.New()
	r.Use(APIKeyMiddleware())
	handler := func(c *gin.Context) { c.String(http.StatusOK, PresentedAPIKey(c)) }
	r.GET("/", handler)
	r.POST("/", handler)
	return r
}

func TestAPIKeyMiddleware(t *testing.T) {
	form := url.Values{APIKeyParam: {"form-key"}}.Encode()

	tests := []struct {
		name       string
		method     string
		target     string
		header     string
		body       string
		wantStatus int
		wantKey    string
	}{
		{name: "bearer header", method: http.MethodGet, target: "/", header: "Bearer abc123", wantStatus: http.StatusOK, wantKey: "abc123"},
		{name: "query param", method: http.MethodGet, target: "/?apiKey=q-key", wantStatus: http.StatusOK, wantKey: "q-key"},
		{name: "form param", method: http.MethodPost, target: "/", body: form, wantStatus: http.StatusOK, wantKey: "form-key"},
		{name: "header wins over param", method: http.MethodGet, target: "/?apiKey=q-key", header: "Bearer h-key", wantStatus: http.StatusOK, wantKey: "h-key"},
		{name: "no key", method: http.MethodGet, target: "/", wantStatus: http.StatusOK, wantKey: ""},
		{name: "basic auth rejected", method: http.MethodGet, target: "/", header: "Basic dXNlcjpwYXNz", wantStatus: http.StatusUnauthorized},
		{name: "empty bearer rejected", method: http.MethodGet, target: "/", header: "Bearer   ", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body))
			if tt.body != "" {
				req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newAPIKeyRouter().ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantKey, w.Body.String())
			} else {
				assert.Contains(t, w.Body.String(), `"kind":"UNAUTHORIZED"`)
			}
		})
	}
}
