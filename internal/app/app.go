// Package app wires configuration into the running service graph shared by
// the server and the one-shot commands.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nhl-cortex/internal/api"
	"github.com/stitts-dev/nhl-cortex/internal/api/handlers"
	"github.com/stitts-dev/nhl-cortex/internal/nhl"
	"github.com/stitts-dev/nhl-cortex/internal/projection"
	"github.com/stitts-dev/nhl-cortex/internal/providers"
	"github.com/stitts-dev/nhl-cortex/internal/services"
	"github.com/stitts-dev/nhl-cortex/pkg/config"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
)

const (
	breakerTimeout = time.Minute
	smsPerMinute   = 30
)

type App struct {
	Config *config.Config
	Logger *logrus.Logger
	DB     *database.DB

	redis        *redis.Client
	cacheService *services.CacheService

	// nil when redis is unreachable
	Cache services.Cache

	Calculator  *projection.Calculator
	NHL         *providers.NHLClient
	Ingest      *services.ProjectionIngestService
	Results     *services.ResultsService
	Injuries    *services.InjuryGuardian
	Dashboard   *services.DashboardService
	Performance *services.PerformanceService
	Billing     *services.BillingService
	Auth        *services.AuthService
	Scheduler   *services.Scheduler
}

// New connects to the database and redis and builds every service. Redis is
// optional: without it the app runs uncached.
func New(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	db, err := database.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{Config: cfg, Logger: logger, DB: db}

	var cacheService *services.CacheService
	if opt, err := redis.ParseURL(cfg.RedisURL); err != nil {
		logger.Warnf("Invalid REDIS_URL, running without cache: %v", err)
	} else {
		client := redis.NewClient(opt)
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warnf("Redis unavailable, running without cache: %v", err)
			_ = client.Close()
		} else {
			a.redis = client
			cacheService = services.NewCacheService(client)
			a.cacheService = cacheService
			a.Cache = cacheService
		}
	}

	var nhlCache nhl.CacheProvider
	if cacheService != nil {
		nhlCache = cacheService
	}

	breakers := providers.NewCircuitBreakerService(cfg.CircuitBreakerThreshold, breakerTimeout, logger)
	clientCfg := providers.DefaultNHLClientConfig()
	clientCfg.BaseURL = cfg.NHLAPIBaseURL
	clientCfg.RequestsPerSecond = cfg.NHLRateLimit
	if cfg.ExternalAPITimeout > 0 {
		clientCfg.Timeout = cfg.ExternalAPITimeout
	}
	a.NHL = providers.NewNHLClient(clientCfg, nhlCache, breakers, logger)

	a.Calculator = projection.NewCalculator(cfg.Tuning())

	ingestCfg := services.IngestConfig{
		MinGamesPlayed:     cfg.MinGamesPlayed,
		PickScoreThreshold: cfg.PickScoreThreshold,
		ValuePickThreshold: cfg.ValuePickThreshold,
	}
	sms := buildSMSSender(cfg, breakers, logger)
	notifier := buildNotifier(cfg, db, sms, logger)
	a.Ingest = services.NewProjectionIngestService(db, a.NHL, a.Calculator, a.Cache, notifier, ingestCfg, logger)
	a.Results = services.NewResultsService(db, a.NHL, a.Cache, logger)
	a.Injuries = services.NewInjuryGuardian(db, a.NHL, a.Cache, logger)

	a.Dashboard = services.NewDashboardService(db, a.Cache, services.DashboardConfig{
		WindowHours:            cfg.DashboardWindowHours,
		FreeMatchLimit:         cfg.FreeMatchLimit,
		FreePlayersPerMatch:    cfg.FreePlayersPerMatch,
		PremiumPlayersPerMatch: cfg.PremiumPlayersPerMatch,
		CacheTTL:               cfg.DashboardCacheTTL(),
	}, cfg.ValuePickThreshold, logger)
	a.Performance = services.NewPerformanceService(db, a.Cache, cfg.ValuePickThreshold, cfg.DashboardCacheTTL(), logger)
	a.Billing = services.NewBillingService(db, services.BillingConfig{
		SecretKey:     cfg.StripeSecretKey,
		PriceID:       cfg.StripePriceID,
		WebhookSecret: cfg.StripeWebhookSecret,
	}, logger)
	a.Auth = services.NewAuthService(db, sms, a.Cache, logger)

	// Jobs are always registered so they can be triggered by hand; cron
	// schedules only apply with background jobs enabled.
	schedules := services.JobSchedules{}
	if cfg.EnableBackgroundJobs {
		schedules = services.JobSchedules{
			Projections: cfg.ProjectionSchedule,
			Results:     cfg.ResultsSchedule,
			Injuries:    cfg.InjurySchedule,
		}
	}
	a.Scheduler = services.NewScheduler(logger)
	if err := services.RegisterNHLJobs(a.Scheduler, schedules, a.Ingest, a.Results, a.Injuries); err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	return a, nil
}

func buildSMSSender(cfg *config.Config, breakers *providers.CircuitBreakerService, logger *logrus.Logger) services.SMSSender {
	if !cfg.TwilioEnabled() {
		return services.NewLogSMSSender(logger)
	}
	limiter := services.NewSlidingWindowLimiter(smsPerMinute, time.Minute)
	return services.NewTwilioSMSService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, breakers, limiter, logger)
}

func buildNotifier(cfg *config.Config, db *database.DB, sms services.SMSSender, logger *logrus.Logger) services.Notifier {
	var notifiers services.MultiNotifier

	if cfg.TelegramEnabled() {
		telegram, err := services.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, logger)
		if err != nil {
			logger.Warnf("Telegram disabled: %v", err)
		} else {
			notifiers = append(notifiers, telegram)
		}
	}

	notifiers = append(notifiers, services.NewSMSNotifier(db, sms, logger))

	return notifiers
}

// Dependencies collects what the HTTP layer serves
func (a *App) Dependencies() api.Dependencies {
	checks := map[string]handlers.Pinger{
		"database": handlers.PingFunc(a.DB.HealthCheck),
	}
	if a.cacheService != nil {
		checks["redis"] = a.cacheService
	}

	return api.Dependencies{
		DB:            a.DB,
		Calculator:    a.Calculator,
		Dashboard:     a.Dashboard,
		Performance:   a.Performance,
		Billing:       a.Billing,
		Auth:          a.Auth,
		Scheduler:     a.Scheduler,
		Checks:        checks,
		JWTSecret:     a.Config.JWTSecret,
		TokenTTL:      a.Config.JWTExpiration,
		PublicBaseURL: a.Config.PublicBaseURL,
		Logger:        a.Logger,
	}
}

// Close releases the database and redis connections
func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.Logger.Warnf("Failed to close redis: %v", err)
		}
	}
	if err := a.DB.Close(); err != nil {
		a.Logger.Warnf("Failed to close database: %v", err)
	}
}
