// Package telemetry provides logging setup and Prometheus metrics.
//
// All metrics are registered against the default Prometheus registry and
// served on the side-channel HTTP server started by main.go:
//
//	GET http://<host>:<GTR_TELEMETRY_METRICS_PROMETHEUS_PORT>/metrics
//
// The endpoint is not served by the Gin router.
//
// # Metric Groups
//
//   - HTTP request counters and latency histograms (labelled by route template, not raw URL)
//   - Credential lifecycle events, labelled by event and outcome (error kind)
//   - Notification delivery counters
//   - Rate limiter rejections
//   - Database connection pool gauge
package telemetry

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/safego"
)

// HTTPRequestsTotal counts requests by method, route template and status.
// HTTPRequestDuration observes latency by method and route template.
//
// Example PromQL queries:
//   - Error rate (%): sum(rate(http_requests_total{status=~"5.."}[5m])) / sum(rate(http_requests_total[5m])) * 100
//   - p99 latency per route: histogram_quantile(0.99, sum by (path, le) (rate(http_request_duration_seconds_bucket[5m])))
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed, by method, route template, and status code.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Histogram of HTTP request latencies, by method and route template.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// CredentialEventsTotal counts credential operations by event (e.g.
// "new_challenge", "issue_api_key") and outcome ("ok" or the error kind).
//
// Example PromQL queries:
//   - Rate-limited challenge requests: rate(credential_events_total{event="new_challenge",outcome="RATE_LIMITED"}[1h])
//   - Failed logins: sum(rate(credential_events_total{event="issue_api_key",outcome=~"INCORRECT|NOT_FOUND"}[5m]))
var CredentialEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "credential_events_total",
		Help: "Total number of credential lifecycle operations, by event and outcome.",
	},
	[]string{"event", "outcome"},
)

// NotificationsTotal counts outbound messages by template and outcome
// ("sent", "failed", "blacklisted").
var NotificationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Total number of outbound notifications, by template and outcome.",
	},
	[]string{"template", "outcome"},
)

// APIKeyExpiryRemindersSentTotal counts expiry reminder emails delivered by
// the background job.
var APIKeyExpiryRemindersSentTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "apikey_expiry_reminders_sent_total",
		Help: "Total number of API key expiry reminder emails successfully sent.",
	},
)

// RateLimitRejectionsTotal counts requests rejected by the rate limiter, by backend.
var RateLimitRejectionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "rate_limit_rejections_total",
		Help: "Total number of requests rejected by the rate limiter, by backend.",
	},
	[]string{"backend"},
)

// DBOpenConnections tracks open connections in the sql.DB pool, sampled by
// StartDBStatsCollector.
var DBOpenConnections = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "db_open_connections",
		Help: "Current number of open database connections in the pool.",
	},
)

// RecordCredentialEvent increments CredentialEventsTotal with outcome "ok"
// for a nil err and the error kind otherwise.
func RecordCredentialEvent(event string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apierr.KindOf(err))
	}
	CredentialEventsTotal.WithLabelValues(event, outcome).Inc()
}

// StartDBStatsCollector samples pool statistics every interval until ctx is
// cancelled.
func StartDBStatsCollector(ctx context.Context, db *sql.DB, interval time.Duration) {
	safego.Go("db-stats", func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				slog.Debug("db stats collector stopped")
				return
			case <-ticker.C:
				DBOpenConnections.Set(float64(db.Stats().OpenConnections))
			}
		}
	})
}
