// Package api wires the goal tracker's HTTP routes.
//
// Every route lives under /api. Credential mutations that check a password or
// send mail get a stricter rate limit on top of the global one. Authentication
// is not a middleware concern here: APIKeyMiddleware only extracts the
// presented key, and the credential and tracking services validate it against
// the key log at the moment of the operation.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/goaltracker/goaltracker/internal/api/accounts"
	"github.com/goaltracker/goaltracker/internal/apierr"
	"github.com/goaltracker/goaltracker/internal/api/tracker"
	"github.com/goaltracker/goaltracker/internal/audit"
	"github.com/goaltracker/goaltracker/internal/auth"
	"github.com/goaltracker/goaltracker/internal/config"
	"github.com/goaltracker/goaltracker/internal/credentials"
	"github.com/goaltracker/goaltracker/internal/db/query"
	"github.com/goaltracker/goaltracker/internal/db/repositories"
	"github.com/goaltracker/goaltracker/internal/jobs"
	"github.com/goaltracker/goaltracker/internal/middleware"
	"github.com/goaltracker/goaltracker/internal/notify"
	"github.com/goaltracker/goaltracker/internal/safego"
	"github.com/goaltracker/goaltracker/internal/tracking"
)

// Version is reported by GET /version. It is overridden at build time with
// -ldflags "-X github.com/goaltracker/goaltracker/internal/api.Version=...".
var Version = "dev"

// Dependencies are the process-wide resources the router is built on.
type Dependencies struct {
	DB *sqlx.DB
	// Redis is nil when redis.enabled is false
	Redis *redis.Client
	// Sender overrides the configured notification backend; nil uses notify.NewSender
	Sender notify.Sender
	// Blacklist is updated in place on config reload
	Blacklist *notify.StaticBlacklist
	// Audit receives credential mutation entries; nil disables the trail
	Audit audit.Shipper
	// Now overrides the service clock in tests
	Now auth.Clock
}

// BackgroundServices holds references to background jobs and resources that must
// be stopped during graceful shutdown. The caller (cmd/server) calls Shutdown
// after the HTTP server has drained.
type BackgroundServices struct {
	expiryNotifier *jobs.APIKeyExpiryNotifier
	rateLimiters   []*middleware.RateLimiter
	auditShipper   audit.Shipper
}

// Shutdown stops all background goroutines.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	if bg.expiryNotifier != nil {
		bg.expiryNotifier.Stop()
	}
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.auditShipper != nil {
		if err := bg.auditShipper.Close(); err != nil {
			slog.Error("failed to close audit shipper", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter builds the services, starts background jobs and returns the
// configured Gin engine.
func NewRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, *BackgroundServices) {
	now := deps.Now
	if now == nil {
		now = auth.SystemClock
	}
	bg := &BackgroundServices{auditShipper: deps.Audit}
	var shipper audit.Shipper = audit.NewMultiShipper()
	if deps.Audit != nil {
		shipper = deps.Audit
	}
	audited := func(action string) gin.HandlerFunc { return audit.Middleware(shipper, action) }

	store := repositories.NewStore(deps.DB, query.Limits{
		DefaultCount: cfg.Query.DefaultPageSize,
		MaxCount:     cfg.Query.MaxPageSize,
	})

	static := deps.Blacklist
	if static == nil {
		static = notify.NewStaticBlacklist(cfg.Notifications.Blacklist)
	}
	var blacklist notify.Blacklist = static
	if cfg.Notifications.BlacklistBackend == "redis" && deps.Redis != nil {
		blacklist = notify.NewRedisBlacklist(deps.Redis, static)
	}
	sender := deps.Sender
	if sender == nil {
		sender = notify.NewSender(&cfg.Notifications)
	}
	notifier := notify.NewNotifier(&cfg.Notifications, sender, blacklist)

	creds := credentials.NewService(credentials.NewSQLStore(store), notifier, cfg.Credentials, now)
	tracks := tracking.NewService(store, creds, now)

	if cfg.Notifications.Enabled {
		var dedupe jobs.Deduper = jobs.NewMemoryDeduper()
		if deps.Redis != nil {
			dedupe = jobs.NewRedisDeduper(deps.Redis)
		}
		bg.expiryNotifier = jobs.NewAPIKeyExpiryNotifier(store.APIKeys, store.Users, notifier, dedupe, &cfg.Notifications, now)
		safego.Go("api-key-expiry-notifier", func() { bg.expiryNotifier.Start(context.Background()) })
	}

	router := gin.New()
	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		apierr.Respond(c, fmt.Errorf("panic: %v", recovered))
	}))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg))
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig(cfg.Security.TLS.Enabled)))

	router.GET("/health", healthCheckHandler(store))
	router.GET("/version", versionHandler())

	apiGroup := router.Group("/api")
	apiGroup.Use(middleware.APIKeyMiddleware())

	var authLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.Security.RateLimiting.Enabled {
		general, strict := newLimiters(cfg, deps.Redis, bg)
		apiGroup.Use(middleware.RateLimitMiddleware(general))
		authLimit = middleware.RateLimitMiddleware(strict)
	}

	// Audit runs ahead of the credential limiter and records throttled attempts.
	acct := accounts.NewHandlers(creds)
	{
		apiGroup.POST("/verificationChallenge/new", audited("verification_challenge.create"), authLimit, acct.NewChallenge)
		apiGroup.POST("/user/new", audited("user.create"), authLimit, acct.FinalizeRegistration)
		apiGroup.POST("/apiKey/newValid", audited("api_key.issue"), authLimit, acct.IssueAPIKey)
		apiGroup.POST("/apiKey/newCancel", audited("api_key.cancel"), authLimit, acct.CancelAPIKey)
		apiGroup.POST("/password/newChange", audited("password.change"), authLimit, acct.ChangePassword)
		apiGroup.POST("/password/newCancel", audited("password.cancel"), authLimit, acct.CancelPassword)
		apiGroup.POST("/passwordReset/new", audited("password_reset.create"), authLimit, acct.RequestPasswordReset)
		apiGroup.POST("/password/newReset", audited("password.reset"), authLimit, acct.ApplyPasswordReset)

		apiGroup.GET("/user/", acct.ListUsers)
		apiGroup.GET("/password/", acct.ListPasswords)
		apiGroup.GET("/apiKey/", acct.ListAPIKeys)
	}

	tracker.NewHandlers(tracks).Register(apiGroup)

	return router, bg
}

// newLimiters returns the global and credential limiters for the configured
// backend. In-memory limiters are registered on bg so their cleanup
// goroutines stop at shutdown.
func newLimiters(cfg *config.Config, rdb *redis.Client, bg *BackgroundServices) (middleware.Limiter, middleware.Limiter) {
	general := middleware.DefaultRateLimitConfig()
	general.RequestsPerMinute = cfg.Security.RateLimiting.RequestsPerMinute
	if cfg.Security.RateLimiting.Burst > 0 {
		general.BurstSize = cfg.Security.RateLimiting.Burst
	}
	strict := middleware.AuthRateLimitConfig()

	if cfg.Security.RateLimiting.Backend == "redis" && rdb != nil {
		return middleware.NewRedisRateLimiter(rdb, "ratelimit:api:", general),
			middleware.NewRedisRateLimiter(rdb, "ratelimit:auth:", strict)
	}

	g := middleware.NewRateLimiter(general)
	s := middleware.NewRateLimiter(strict)
	bg.rateLimiters = append(bg.rateLimiters, g, s)
	return g, s
}

type pinger interface {
	Ping(ctx context.Context) error
}

func healthCheckHandler(db pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": Version})
	}
}

// LoggerMiddleware logs one structured record per request through the default
// slog handler, so the format follows logging.format. The query string is not
// logged because it may carry an apiKey parameter.
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		level := slog.LevelInfo
		if c.Writer.Status() >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		slog.LogAttrs(
			c.Request.Context(),
			level,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", c.GetString(middleware.RequestIDKey)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}

// CORSMiddleware handles CORS for the configured origins.
func CORSMiddleware(cfg *config.Config) gin.HandlerFunc {
	methods := strings.Join(cfg.Security.CORS.AllowedMethods, ", ")
	if methods == "" {
		methods = "GET, POST, OPTIONS"
	}
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := false
		for _, allowedOrigin := range cfg.Security.CORS.AllowedOrigins {
			if allowedOrigin == "*" || allowedOrigin == origin {
				allowed = true
				break
			}
		}

		if allowed {
			if origin == "" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Vary", "Origin")
			}
			c.Header("Access-Control-Allow-Methods", methods)
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Request-ID")
			c.Header("Access-Control-Max-Age", "3600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
