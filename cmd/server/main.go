// Package main is the entry point for the goal tracker server binary.
// It dispatches three subcommands, serve, migrate and version, via a switch on
// os.Args. The serve command runs auto-migration on startup so a fresh
// deployment never needs a separate migration step.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/goaltracker/goaltracker/internal/api"
	"github.com/goaltracker/goaltracker/internal/audit"
	"github.com/goaltracker/goaltracker/internal/config"
	"github.com/goaltracker/goaltracker/internal/db"
	"github.com/goaltracker/goaltracker/internal/notify"
	"github.com/goaltracker/goaltracker/internal/telemetry"
)

const dbStatsInterval = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	configPath := os.Getenv("CONFIG_PATH")

	switch command {
	case "serve":
		return serve(configPath)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return runMigrations(cfg, os.Args[2])
	case "version":
		fmt.Printf("Goal Tracker %s\n", api.Version)
		return nil
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, version", command)
	}
}

func serve(configPath string) error {
	// The blacklist is the only setting applied without a restart.
	blacklist := notify.NewStaticBlacklist(nil)
	cfg, err := config.LoadAndWatch(configPath, func(next *config.Config) {
		blacklist.Update(next.Notifications.Blacklist)
		slog.Info("notification blacklist reloaded", "entries", len(next.Notifications.Blacklist))
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	blacklist.Update(cfg.Notifications.Blacklist)

	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	slog.Info("connecting to database",
		"host", cfg.Database.Host, "port", cfg.Database.Port,
		"dbname", cfg.Database.Name, "sslmode", cfg.Database.SSLMode)

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	if err := db.RunMigrations(database, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if version, dirty, err := db.GetMigrationVersion(database); err != nil {
		slog.Warn("failed to get migration version", "error", err)
	} else {
		slog.Info("database schema ready", "version", version, "dirty", dirty)
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	telemetry.StartDBStatsCollector(ctx, database, dbStatsInterval)

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			// The redis-backed components fail open, so a late redis is tolerated.
			slog.Warn("redis not reachable at startup", "addr", cfg.Redis.Addr, "error", err)
		}
		cancel()
	}

	// Metrics live on their own port so the scrape path stays off the public listener.
	if cfg.Telemetry.Metrics.Enabled {
		metricsAddr := fmt.Sprintf(":%d", cfg.Telemetry.Metrics.PrometheusPort)
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			slog.Info("starting Prometheus metrics server", "addr", metricsAddr)
			srv := &http.Server{
				Addr:         metricsAddr,
				Handler:      mux,
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
			}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	auditShipper, err := audit.New(cfg.Audit)
	if err != nil {
		return fmt.Errorf("failed to set up audit trail: %w", err)
	}

	router, bgServices := api.NewRouter(cfg, api.Dependencies{
		DB:        sqlx.NewDb(database, "postgres"),
		Redis:     rdb,
		Blacklist: blacklist,
		Audit:     auditShipper,
	})

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		slog.Info("starting server",
			"addr", cfg.Server.GetAddress(),
			"tls", cfg.Security.TLS.Enabled,
			"rate_limit_backend", cfg.Security.RateLimiting.Backend,
			"notifications", cfg.Notifications.Backend)

		var err error
		if cfg.Security.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.Security.TLS.CertFile, cfg.Security.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	bgServices.Shutdown()
	stop()

	slog.Info("server stopped gracefully")
	return nil
}

func runMigrations(cfg *config.Config, direction string) error {
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	log.Printf("Running migrations: %s", direction)

	if err := db.RunMigrations(database, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	log.Printf("Migration completed successfully. Current version: %d (dirty: %v)", version, dirty)
	return nil
}
