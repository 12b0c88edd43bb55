package setup

import (
	"context"
	"errors"

	"github.com/attendantbot/attendant/internal/ai"
	"github.com/attendantbot/attendant/internal/database"
	"github.com/attendantbot/attendant/internal/redis"
	"github.com/attendantbot/attendant/internal/setup/config"
	"go.uber.org/zap"
)

// ErrNoDiscordToken indicates the bot was started without a gateway token.
var ErrNoDiscordToken = errors.New("no discord token configured")

// App bundles all core dependencies and services needed by the application.
// Each field represents a major subsystem that needs initialization and cleanup.
type App struct {
	Config       *config.Config   // Application configuration
	Logger       *zap.Logger      // Main application logger
	DBLogger     *zap.Logger      // Database-specific logger
	DB           *database.Client // Database connection pool
	RedisManager *redis.Manager   // Redis connection manager
	Cooldowns    *redis.CooldownTracker
	AIClient     *ai.Client
}

// InitializeApp bootstraps all application dependencies in the correct order,
// ensuring each component has its required dependencies available.
func InitializeApp(ctx context.Context, logDir string) (*App, error) {
	cfg, _, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	if cfg.Discord.Token == "" {
		return nil, ErrNoDiscordToken
	}

	// Logging system is initialized next to capture setup issues
	if logDir == "" {
		logDir = cfg.Debug.LogDir
	}
	if logDir == "" {
		logDir = "logs"
	}

	logger, dbLogger, err := GetLoggers(logDir, cfg.Debug.LogLevel, cfg.Debug.MaxLogsToKeep)
	if err != nil {
		return nil, err
	}

	db, err := database.NewConnection(ctx, &cfg.PostgreSQL, dbLogger)
	if err != nil {
		return nil, err
	}

	redisManager := redis.NewManager(&cfg.Redis, logger)

	cooldowns, err := redis.NewCooldownTracker(redisManager)
	if err != nil {
		return nil, err
	}

	aiClient := ai.NewClient(&cfg.OpenAI, logger)

	logger.Info("Application initialized")

	return &App{
		Config:       cfg,
		Logger:       logger,
		DBLogger:     dbLogger,
		DB:           db,
		RedisManager: redisManager,
		Cooldowns:    cooldowns,
		AIClient:     aiClient,
	}, nil
}

// Cleanup releases all resources in reverse initialization order.
func (a *App) Cleanup() {
	a.RedisManager.Close()

	if err := a.DB.Close(); err != nil {
		a.Logger.Error("Failed to close database connection", zap.Error(err))
	}

	_ = a.Logger.Sync()
	_ = a.DBLogger.Sync()
}
