// Package main is the entrypoint for the Guau Pro landing API server.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/guaupro/landing/internal/cache"
	"github.com/guaupro/landing/internal/config"
	"github.com/guaupro/landing/internal/events"
	"github.com/guaupro/landing/internal/handler"
	"github.com/guaupro/landing/internal/mail"
	"github.com/guaupro/landing/internal/metrics"
	"github.com/guaupro/landing/internal/middleware"
	"github.com/guaupro/landing/internal/repository"
	"github.com/guaupro/landing/internal/roi"
	"github.com/guaupro/landing/internal/server"
	"github.com/guaupro/landing/internal/waitlist"
)

func main() {
	ctx := context.Background()

	// A missing .env is fine; the environment wins either way
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewPrometheus(registry)

	// Lead store
	var (
		store      waitlist.Store
		storeCheck handler.HealthChecker
		repo       *repository.Repository
	)
	if cfg.UseMemoryStore() {
		memory := repository.NewMemoryStore()
		store, storeCheck = memory, memory
		logger.Warn("using in-memory lead store; leads are lost on restart")
	} else {
		repo, err = repository.New(ctx, cfg.DatabaseURL, repository.PoolConfig{
			MaxConns:        cfg.DatabaseMaxConns,
			MinConns:        cfg.DatabaseMinConns,
			MaxConnIdleTime: cfg.DatabaseMaxConnIdleTime,
		})
		if err != nil {
			logger.Error(
				"failed to connect to database",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
				slog.String("database_url", redactURL(cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		defer repo.Close()
		store, storeCheck = repo, repo
		logger.Info("connected to database")
	}

	// Cache: Redis when configured, process-local otherwise
	var (
		redisCache *cache.Cache
		locker     handler.SubmissionLocker
		limiter    middleware.IPLimiter
		cacheCheck handler.HealthChecker
	)
	if cfg.RedisURL != "" {
		redisCache, err = cache.New(ctx, cfg.RedisURL, cache.PoolConfig{
			PoolSize:     cfg.RedisPoolSize,
			MinIdleConns: cfg.RedisMinIdleConns,
			PoolTimeout:  cfg.RedisPoolTimeout,
		})
		if err != nil {
			logger.Error(
				"failed to connect to Redis",
				slog.String("error", sanitizeError(err, cfg.RedisURL)),
				slog.String("redis_url", redactURL(cfg.RedisURL)),
			)
			os.Exit(1)
		}
		defer redisCache.Close()
		locker, limiter, cacheCheck = redisCache, redisCache, redisCache
		logger.Info("connected to Redis")
	} else {
		local := cache.NewLocal()
		locker, limiter, cacheCheck = local, local, local
	}

	// Notifications
	mailCfg := mail.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		User:     cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}
	var mailer *mail.Mailer
	if mailCfg.Enabled() {
		mailer = mail.NewMailer(mailCfg, logger)
	}

	var (
		notifiers []waitlist.Notifier
		worker    *events.Worker
	)
	switch {
	case redisCache != nil:
		notifiers = append(notifiers, events.NewPublisher(redisCache.Client(), logger))
		if mailer != nil {
			worker = events.NewWorker(redisCache.Client(), mailer, logger, events.NewConsumerID(), recorder)
		}
	case mailer != nil:
		notifiers = append(notifiers, mailer)
	}

	workflow := waitlist.NewWorkflow(store, waitlist.Config{
		StoreTimeout: cfg.WaitlistStoreTimeout,
		Notifiers:    notifiers,
	}, logger, recorder)

	// Handlers
	routerCfg := handler.RouterConfig{
		Logger:         logger,
		Metrics:        recorder,
		MetricsHandler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		Health:         handler.NewHealthHandler(storeCheck, cacheCheck),
		ROI:            handler.NewROIHandler(roi.NewEngine(cfg.ROICacheSize), recorder),
		Waitlist:       handler.NewWaitlistHandler(workflow, locker, cfg.WaitlistLockTTL, logger, recorder),
		RateLimit: middleware.RateLimitConfig{
			Logger:  logger,
			Limiter: limiter,
			Enabled: cfg.RateLimitWaitlistEnabled,
			RPS:     cfg.RateLimitWaitlistRPS,
			Burst:   cfg.RateLimitWaitlistBurst,
		},
		Security:           middleware.SecurityConfig{IsDevelopment: cfg.IsDevelopment()},
		CORSAllowedOrigins: cfg.GetCORSAllowedOrigins(),
		MaxBodySize:        cfg.MaxRequestBodySize,
	}

	// The admin API needs persisted keys, so it only exists on Postgres
	if repo != nil {
		authCfg := middleware.AuthConfig{Logger: logger, Keys: repo}
		var invalidator handler.KeyInvalidator
		if redisCache != nil {
			authCfg.Cache = redisCache
			invalidator = redisCache
		}
		routerCfg.Auth = authCfg
		routerCfg.Leads = handler.NewLeadHandler(repo, logger)
		routerCfg.APIKeys = handler.NewAPIKeyHandler(logger, repo, invalidator)
	} else {
		logger.Info("admin API disabled without a database")
	}

	srv := server.New(
		handler.NewRouter(routerCfg),
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)

	// Shutdown hooks run in reverse order: drain submissions, then the worker
	if worker != nil {
		workerCtx, stopWorker := context.WithCancel(ctx)
		defer stopWorker()
		go func() {
			if err := worker.Run(workerCtx); err != nil {
				logger.Error("lead event worker stopped", "error", err)
			}
		}()
		srv.OnShutdown("lead-worker", worker.Shutdown)
	}
	srv.OnShutdown("waitlist", workflow.Wait)

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"store", cfg.StoreDriver,
		"redis", redisCache != nil,
		"mail", mailer != nil,
	)

	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	var h slog.Handler

	level := parseLogLevel(cfg.LogLevel)

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)

	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
