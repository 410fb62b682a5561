package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func applySecurityHeaders(cfg SecurityHeadersConfig) *httptest.ResponseRecorder {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(cfg))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w
}

func TestSecurityHeadersMiddleware_API(t *testing.T) {
	w := applySecurityHeaders(APISecurityHeadersConfig(true))

	tests := map[string]string{
		"Strict-Transport-Security":    "max-age=31536000; includeSubDomains",
		"X-Frame-Options":              "DENY",
		"Content-Security-Policy":      "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":              "no-referrer",
		"X-Content-Type-Options":       "nosniff",
		"Cross-Origin-Resource-Policy": "same-origin",
		"Cache-Control":                "no-store",
	}
	for header, want := range tests {
		if got := w.Header().Get(header); got != want {
			t.Errorf("%s = %q, want %q", header, got, want)
		}
	}
}

func TestSecurityHeadersMiddleware_NoHSTSWithoutTLS(t *testing.T) {
	w := applySecurityHeaders(APISecurityHeadersConfig(false))
	if got := w.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("Strict-Transport-Security = %q, want empty", got)
	}
}

func TestSecurityHeadersMiddleware_OptionalHeadersOmitted(t *testing.T) {
	w := applySecurityHeaders(SecurityHeadersConfig{EnableHSTS: true, HSTSMaxAge: 600})

	if got := w.Header().Get("Strict-Transport-Security"); got != "max-age=600" {
		t.Errorf("Strict-Transport-Security = %q, want max-age=600", got)
	}
	for _, h := range []string{"X-Frame-Options", "Content-Security-Policy", "Referrer-Policy"} {
		if got := w.Header().Get(h); got != "" {
			t.Errorf("%s = %q, want empty", h, got)
		}
	}
}
