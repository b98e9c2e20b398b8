package setup

import (
	"context"
	"fmt"
	"log"

	"github.com/bookwyrm/bookwyrm/internal/database"
	"github.com/bookwyrm/bookwyrm/internal/quest"
	"github.com/bookwyrm/bookwyrm/internal/redis"
	"github.com/bookwyrm/bookwyrm/internal/rewards"
	"github.com/bookwyrm/bookwyrm/internal/setup/config"
	"github.com/bookwyrm/bookwyrm/internal/setup/telemetry"
	"go.uber.org/zap"
)

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config     // Application configuration
	Logger       *zap.Logger        // Main application logger
	DBLogger     *zap.Logger        // Database-specific logger
	DB           database.Client    // Database connection pool, nil with the Redis backend
	RedisManager *redis.Manager     // Redis connection manager
	Submissions  rewards.Store      // Reward submission storage
	Games        quest.Store        // Game posting storage
	LogManager   *telemetry.Manager // Log management system

	shutdownTracing func(context.Context)
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	// Load app configuration
	cfg, configDir, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	// Logging system is initialized next to capture setup issues
	logManager := telemetry.NewManager(logDir, &cfg.Common.Debug)

	logger, dbLogger, err := logManager.GetLoggers()
	if err != nil {
		return nil, err
	}

	logger.Info("Loaded configuration",
		zap.String("path", configDir),
		zap.String("backend", cfg.Common.Storage.Backend))

	shutdownTracing := telemetry.SetupTracing(&cfg.Common.Uptrace, config.RepositoryVersion, logger)

	// Redis manager provides connection pools for various subsystems
	redisManager := redis.NewManager(&cfg.Common.Redis, logger)

	app := &App{
		Config:          cfg,
		Logger:          logger,
		DBLogger:        dbLogger.Named("database"),
		RedisManager:    redisManager,
		LogManager:      logManager,
		shutdownTracing: shutdownTracing,
	}

	if err := app.initStorage(ctx); err != nil {
		app.Cleanup(ctx)
		return nil, err
	}

	return app, nil
}

// initStorage connects the configured storage backend.
func (s *App) initStorage(ctx context.Context) error {
	switch s.Config.Common.Storage.Backend {
	case config.StorageBackendRedis:
		client, err := s.RedisManager.GetClient(redis.SubmissionsDBIndex)
		if err != nil {
			return err
		}

		store := redis.NewSubmissionStore(client, s.Logger)
		s.Submissions = store
		s.Games = store

	default:
		db, err := database.NewConnection(ctx, &s.Config.Common.PostgreSQL, &s.Config.Common.Retry, s.DBLogger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}

		s.DB = db
		s.Submissions = db.Model().Reward()
		s.Games = db.Model().Game()
	}

	return nil
}

// Cleanup ensures graceful shutdown of all components in reverse initialization order.
// Logs but does not fail on cleanup errors to ensure all components get cleanup attempts.
func (s *App) Cleanup(ctx context.Context) {
	// Close database connections
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}

	// Close Redis connections after storage users are gone
	s.RedisManager.Close()

	// Flush pending spans
	s.shutdownTracing(ctx)

	// Sync buffered logs last so shutdown issues are captured
	if err := s.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	if err := s.DBLogger.Sync(); err != nil {
		log.Printf("Failed to sync DB logger: %v", err)
	}
}
