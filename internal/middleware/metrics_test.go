package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/goaltracker/goaltracker/internal/telemetry"
)

// findMetric returns the first series collected from c whose labels include
// every pair in labels, or nil.
func findMetric(c prometheus.Collector, labels prometheus.Labels) *dto.Metric {
	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)
	for m := range ch {
		var dm dto.Metric
		if err := m.Write(&dm); err != nil {
			continue
		}
		matched := 0
		for _, lp := range dm.GetLabel() {
			if want, ok := labels[lp.GetName()]; ok && want == lp.GetValue() {
				matched++
			}
		}
		if matched == len(labels) {
			return &dm
		}
	}
	return nil
}

func requestCount(labels prometheus.Labels) float64 {
	if m := findMetric(telemetry.HTTPRequestsTotal, labels); m != nil {
		return m.GetCounter().GetValue()
	}
	return 0
}

func newMetricsRouter(status int) *gin.Engine {
	r := gin.New()
	r.Use(MetricsMiddleware())
	r.GET("/api/goals/:view", func(c *gin.Context) { c.Status(status) })
	return r
}

func TestMetricsMiddleware_CountsByRouteTemplate(t *testing.T) {
	labels := prometheus.Labels{"method": "GET", "path": "/api/goals/:view", "status": "200"}
	before := requestCount(labels)

	w := httptest.NewRecorder()
	newMetricsRouter(http.StatusOK).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/goals/all", nil))

	if got := requestCount(labels) - before; got != 1 {
		t.Errorf("http_requests_total delta = %.0f, want 1", got)
	}
	if m := findMetric(telemetry.HTTPRequestsTotal, prometheus.Labels{"path": "/api/goals/all"}); m != nil {
		t.Error("raw URL leaked into the path label")
	}
}

func TestMetricsMiddleware_ObservesDuration(t *testing.T) {
	labels := prometheus.Labels{"method": "GET", "path": "/api/goals/:view"}
	var before uint64
	if m := findMetric(telemetry.HTTPRequestDuration, labels); m != nil {
		before = m.GetHistogram().GetSampleCount()
	}

	w := httptest.NewRecorder()
	newMetricsRouter(http.StatusOK).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/goals/x", nil))

	m := findMetric(telemetry.HTTPRequestDuration, labels)
	if m == nil || m.GetHistogram().GetSampleCount() <= before {
		t.Error("http_request_duration_seconds was not observed")
	}
}

func TestMetricsMiddleware_RecordsErrorStatus(t *testing.T) {
	labels := prometheus.Labels{"method": "GET", "path": "/api/goals/:view", "status": "429"}
	before := requestCount(labels)

	w := httptest.NewRecorder()
	newMetricsRouter(http.StatusTooManyRequests).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/goals/y", nil))

	if got := requestCount(labels) - before; got != 1 {
		t.Errorf("status=429 delta = %.0f, want 1", got)
	}
}

func TestMetricsMiddleware_NoRoute(t *testing.T) {
	r := gin.New()
	r.Use(MetricsMiddleware())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nowhere", nil))

	if findMetric(telemetry.HTTPRequestsTotal, prometheus.Labels{"path": "<no-route>"}) == nil {
		t.Error("unmatched request was not recorded under <no-route>")
	}
}
