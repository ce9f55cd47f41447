package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"praxis/internal/api"
	"praxis/internal/availability"
	"praxis/internal/calendar"
	"praxis/internal/config"
	"praxis/internal/crmapi"
	"praxis/internal/events"
	"praxis/internal/metrics"
	"praxis/internal/model"
	"praxis/internal/store"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// readyCheck reports whether a dependency can serve traffic.
type readyCheck struct {
	name  string
	check func(ctx context.Context) error
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
	}

	cfg, err := config.Load(os.Getenv("PRAXIS_CONFIG_PATH"))
	if err != nil {
		logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		collab   calendar.Collaborator
		client   *crmapi.Client
		database *store.DB
		rdb      *redis.Client
		checks   []readyCheck
	)

	if cfg.API.Enabled {
		client = crmapi.NewClient(cfg.API.BaseURL, cfg.API.APIKey, cfg.API.APIExtra, &logger)
		if cfg.Redis.Address != "" && cfg.API.CacheTTLSeconds > 0 {
			rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
			defer rdb.Close()
			client.UseRedisCache(rdb, cfg.CacheTTL())
			checks = append(checks, readyCheck{"redis", func(ctx context.Context) error { return rdb.Ping(ctx).Err() }})
		}
		if cfg.API.RateLimitRPS > 0 {
			client.UseRateLimit(cfg.API.RateLimitRPS, cfg.API.RateLimitBurst)
		}
		checks = append(checks, readyCheck{"appointment service", client.HealthCheck})
		collab = client
		logger.Info().Str("base_url", cfg.API.BaseURL).Msg("using remote appointment service")
	} else {
		database, err = store.NewDB(cfg.Database.Path, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("open db error")
		}
		defer database.Close()

		if cfg.Database.SeedDemo {
			if err := database.SeedDemo(ctx, time.Now()); err != nil {
				logger.Error().Err(err).Msg("failed to seed demo data")
			}
		}
		checks = append(checks, readyCheck{"db", database.PingContext})
		collab = database
		logger.Info().Str("path", cfg.Database.Path).Msg("using local appointment store")
	}

	bus := events.NewEventBus()
	bus.Subscribe("*", func(e events.Event) error {
		logger.Debug().Str("event", e.Type).Int64("id", e.ID).Msg("calendar event")
		return nil
	})

	var providers atomic.Pointer[config.ProvidersConfig]
	err = config.WatchProviders(ctx, cfg.Calendar.ProvidersPath, cfg.ProvidersReloadInterval(),
		func(updated *config.ProvidersConfig) {
			providers.Store(updated)
			if client != nil {
				client.InvalidateResources(ctx)
			}
			logger.Info().Int("providers", len(updated.Providers)).Time("reloaded_at", time.Now()).Msg("providers config reloaded")
			_ = bus.PublishJSON(events.TypeProvidersReloaded, map[string]int{"providers": len(updated.Providers)})
		},
		func(err error) {
			logger.Error().Err(err).Msg("failed to reload providers config, keeping previous")
		})
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.Calendar.ProvidersPath).Msg("providers config unavailable, using directory values only")
	}

	opts := calendar.Options{
		Granularity: cfg.Calendar.Granularity,
		Overlay: func() calendar.ResourceOverlay {
			if p := providers.Load(); p != nil {
				return p.Overlay
			}
			return nil
		},
	}
	if cfg.Calendar.PlaceholderAvailability {
		opts.Oracle = availability.PlaceholderOracle{BusyPercent: uint32(cfg.Calendar.PlaceholderBusyPercent)}
		logger.Warn().Msg("placeholder availability enabled, slot availability is simulated")
	}

	factory := func(actor model.Actor) *calendar.Controller {
		logger.Info().Str("actor", actor.ID).Str("role", string(actor.Role)).Msg("opening calendar session")
		return calendar.NewController(actor, collab, bus, &logger, opts)
	}
	apiServer := api.NewServer(factory, &logger)

	go startHealthServer(ctx, cfg.Monitoring.HealthCheckPort, checks, &logger)

	if cfg.Monitoring.PrometheusEnabled {
		metrics.Register()
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	if database != nil && cfg.Backup.Enabled {
		go startBackupLoop(ctx, database, cfg, &logger)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      apiServer.Handler(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSeconds) * time.Second,
	}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctxShutdown); err != nil {
			logger.Error().Err(err).Msg("api server shutdown error")
		}
	}()

	logger.Info().Str("address", cfg.Server.Address).Msg("praxis calendar started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("api server error")
	}
	logger.Info().Msg("praxis calendar stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if cfg.Logging.Pretty {
		output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
		return zerolog.New(output).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

func startHealthServer(ctx context.Context, port int, checks []readyCheck, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		for _, c := range checks {
			if err := c.check(ctxPing); err != nil {
				http.Error(w, c.name+" not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("health server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}

func startBackupLoop(ctx context.Context, database *store.DB, cfg *config.Config, logger *zerolog.Logger) {
	dir := cfg.Backup.Path
	if dir == "" {
		dir = "backups"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error().Err(err).Msg("failed to create backup directory")
		return
	}

	// first backup shortly after start
	select {
	case <-time.After(time.Minute):
		runBackupTask(ctx, database, dir, cfg.BackupRetention(), logger)
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(cfg.BackupInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			runBackupTask(ctx, database, dir, cfg.BackupRetention(), logger)
		case <-ctx.Done():
			return
		}
	}
}

func runBackupTask(ctx context.Context, database *store.DB, dir string, retention time.Duration, logger *zerolog.Logger) {
	dest := filepath.Join(dir, fmt.Sprintf("praxis_%s.db", time.Now().Format("20060102_150405")))

	logger.Info().Str("path", dest).Msg("starting database backup")
	if err := database.Backup(ctx, dest); err != nil {
		logger.Error().Err(err).Msg("backup failed")
	}

	deleted, err := database.CleanupBackups(dir, retention)
	if err != nil {
		logger.Error().Err(err).Msg("backup cleanup failed")
	} else if deleted > 0 {
		logger.Info().Int("deleted", deleted).Msg("cleaned up old backups")
	}
}
