// Package main provides the audit report service entry point
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pramodksahoo/audit-reporter/pkg/activity"
	"github.com/pramodksahoo/audit-reporter/pkg/artifacts"
	"github.com/pramodksahoo/audit-reporter/pkg/catalog"
	"github.com/pramodksahoo/audit-reporter/pkg/config"
	"github.com/pramodksahoo/audit-reporter/pkg/evidence"
	"github.com/pramodksahoo/audit-reporter/pkg/logging"
	"github.com/pramodksahoo/audit-reporter/pkg/metrics"
	"github.com/pramodksahoo/audit-reporter/pkg/middleware"
	"github.com/pramodksahoo/audit-reporter/pkg/models"
	"github.com/pramodksahoo/audit-reporter/pkg/report"
)

const (
	serviceName    = "audit-reporter"
	serviceVersion = "1.0.0"
)

// activityLog is the queryable side of the activity recorder
type activityLog interface {
	Recent(ctx context.Context, limit int) ([]*models.GenerationRecord, error)
	HealthCheck(ctx context.Context) error
}

// ReportService serves the report generators over HTTP
type ReportService struct {
	config    config.Config
	logger    *zap.Logger
	generator *report.Generator
	store     *artifacts.Store
	metrics   *metrics.Metrics
	limiter   *middleware.RateLimiter
	auth      middleware.AuthConfig
	activity  activityLog
	breakers  []*activity.Breaker
	closers   []func() error
	app       *fiber.App
}

// NewReportService wires the generators, storage and middleware described by cfg.
// Optional backends (PostgreSQL, NATS, Redis) are skipped when not configured.
func NewReportService(ctx context.Context, cfg config.Config, logger *zap.Logger) (*ReportService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	registry, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load question catalogs: %w", err)
	}

	s := &ReportService{
		config: cfg,
		logger: logger,
		auth:   middleware.AuthConfig{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer},
	}
	if !s.auth.Enabled() {
		logger.Warn("JWT_SECRET not configured - authentication is disabled")
	}

	s.store = artifacts.NewStore(artifacts.Options{
		Retention: cfg.ArtifactRetention,
		MaxBytes:  int64(cfg.ArtifactMaxMB) * 1024 * 1024,
		Logger:    logger.Named("artifacts"),
	})
	s.closers = append(s.closers, func() error { s.store.Stop(); return nil })

	s.metrics, err = metrics.New(func() float64 { return float64(s.store.Stats().Artifacts) })
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	recorders := activity.Multi{s.metrics}
	if cfg.DatabaseURL != "" {
		pg, err := activity.NewPostgresRecorder(ctx, cfg.DatabaseURL)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to initialize activity log: %w", err)
		}
		s.activity = pg
		s.closers = append(s.closers, pg.Close)
		breaker := activity.NewBreaker("postgres", pg, activity.DefaultBreakerConfig())
		s.breakers = append(s.breakers, breaker)
		recorders = append(recorders, breaker)
	}
	if cfg.NATSURL != "" {
		natsConfig := activity.DefaultNATSConfig()
		natsConfig.URL = cfg.NATSURL
		natsConfig.Subject = cfg.NATSSubject
		publisher, err := activity.NewNATSPublisher(natsConfig, logger.Named("nats"))
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		s.closers = append(s.closers, func() error { publisher.Close(); return nil })
		breaker := activity.NewBreaker("nats", publisher, activity.DefaultBreakerConfig())
		s.breakers = append(s.breakers, breaker)
		recorders = append(recorders, breaker)
	}

	s.generator = report.NewGenerator(registry, report.Options{
		WorkDir: cfg.WorkDir,
		Limits: evidence.ArchiveLimits{
			MaxFiles:     cfg.MaxArchiveFiles,
			MaxFileBytes: int64(cfg.MaxImageMB) * 1024 * 1024,
		},
		Logger:   logger.Named("report"),
		Recorder: recorders,
	})

	if cfg.RateLimitPerMinute > 0 {
		var redisClient redis.Cmdable
		if cfg.RedisAddr != "" {
			client := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
			if err := client.Ping(pingCtx).Err(); err != nil {
				logger.Warn("redis unreachable, rate limiting falls back to in-process counters",
					zap.String("addr", cfg.RedisAddr), zap.Error(err))
			}
			cancel()
			redisClient = client
			s.closers = append(s.closers, client.Close)
		}
		s.limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			Requests: cfg.RateLimitPerMinute,
			Window:   time.Minute,
		}, redisClient, logger.Named("ratelimit"))
	}

	s.app = fiber.New(fiber.Config{
		AppName:      "Audit Report Service",
		ServerHeader: "Audit-Reporter/" + serviceVersion,
		BodyLimit:    cfg.BodyLimit(),
		ErrorHandler: s.errorHandler,
	})
	s.setupRoutes()
	return s, nil
}

// setupRoutes configures the HTTP routes
func (s *ReportService) setupRoutes() {
	s.app.Use(recover.New())
	s.app.Use(requestid.New())
	s.app.Use(logger.New())
	s.app.Use(cors.New())

	s.app.Get("/health", s.healthCheckHandler)
	s.app.Get("/ready", s.readinessHandler)
	s.app.Get("/metrics", s.metrics.Handler())

	api := s.app.Group("/api/v1", middleware.BearerAuth(s.auth, s.logger.Named("auth")))
	if s.limiter != nil {
		api.Use(s.limiter.Handler())
	}

	// Questionnaire modules
	api.Get("/modules", s.listModulesHandler)
	api.Get("/modules/:module", s.getModuleHandler)
	api.Post("/questionnaires/:module", s.questionnaireHandler)

	// Branch workbooks
	api.Post("/branch/poc", s.branchPOCHandler)
	api.Post("/branch/combine", s.combineHandler)

	// Gap assessment
	api.Post("/gap-assessment/annexures", s.annexuresHandler)

	// Deferred downloads
	api.Get("/reports", s.listReportsHandler)
	api.Get("/reports/:id", s.getReportHandler)
	api.Delete("/reports/:id", s.deleteReportHandler)

	api.Get("/activity", s.activityHandler)
}

// Start listens until ctx is cancelled, then shuts the server down
func (s *ReportService) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("starting audit report service", zap.String("port", s.config.Port))
		return s.app.Listen(":" + s.config.Port)
	})
	g.Go(func() error {
		<-ctx.Done()
		s.logger.Info("shutting down audit report service")
		return s.app.ShutdownWithTimeout(s.config.ShutdownTimeout)
	})
	return g.Wait()
}

// Close releases the backends opened by NewReportService
func (s *ReportService) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service, err := NewReportService(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to create report service", zap.Error(err))
	}
	defer func() {
		if err := service.Close(); err != nil {
			log.Warn("failed to close backends", zap.Error(err))
		}
	}()

	if err := service.Start(ctx); err != nil {
		log.Error("report service stopped", zap.Error(err))
	}
}
