package setup

import (
	"context"
	"log"

	"github.com/daggerwin/automod/internal/database"
	"github.com/daggerwin/automod/internal/redis"
	"github.com/daggerwin/automod/internal/setup/config"
	"github.com/daggerwin/automod/internal/setup/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/uptrace/uptrace-go/uptrace"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config       // Application configuration
	Logger       *zap.Logger          // Main application logger
	DBLogger     *zap.Logger          // Database-specific logger
	DB           database.Client      // Database connection pool
	RedisManager *redis.Manager       // Redis connection manager
	LogManager   *telemetry.Manager   // Log management system
	Registry     *prometheus.Registry // Metrics registry served on the metrics endpoint
	metrics      *metricsServer       // Prometheus HTTP server
	tracing      bool                 // Whether the uptrace exporter was configured
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	// Load app configuration
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(logDir, &cfg.Common.Debug, &cfg.Common.Telemetry)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	// Tracing must be configured before the database registers its otel hook
	tracing := cfg.Common.Telemetry.UptraceDSN != ""
	if tracing {
		uptrace.ConfigureOpentelemetry(
			uptrace.WithDSN(cfg.Common.Telemetry.UptraceDSN),
			uptrace.WithServiceName(cfg.Common.Telemetry.ServiceName),
			uptrace.WithServiceVersion(config.RepositoryVersion),
		)
	}

	// Redis manager provides connection pools for various subsystems
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	db, err := database.NewConnection(ctx, &cfg.Common.PostgreSQL, &cfg.Common.Telemetry, dbLogger)
	if err != nil {
		redisManager.Close()
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Start metrics server if enabled
	var metrics *metricsServer

	if cfg.Common.Debug.MetricsAddr != "" {
		srv, err := startMetricsServer(cfg.Common.Debug.MetricsAddr, registry, logger)
		if err != nil {
			logger.Error("Failed to start metrics server", zap.Error(err))
		} else {
			metrics = srv
		}
	}

	// Bundle all initialized components
	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger,
		DB:           db,
		RedisManager: redisManager,
		LogManager:   logManager,
		Registry:     registry,
		metrics:      metrics,
		tracing:      tracing,
	}, nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	if s.metrics != nil {
		s.metrics.shutdown(ctx)
	}

	// Close database connections
	if err := s.DB.Close(); err != nil {
		s.Logger.Error("Failed to close database connection", zap.Error(err))
	}

	// Close Redis connections last as other components might need it during cleanup
	s.RedisManager.Close()

	if s.tracing {
		if err := uptrace.Shutdown(ctx); err != nil {
			s.Logger.Error("Failed to flush traces", zap.Error(err))
		}
	}

	// Sync buffered logs before shutdown
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}
}
