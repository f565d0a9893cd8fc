package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"storyboard-server/internal/config"
	"storyboard-server/internal/handler"
	"storyboard-server/internal/logger"
	"storyboard-server/internal/messaging"
	"storyboard-server/internal/repository"
	"storyboard-server/internal/service"
	"storyboard-server/internal/storage"
)

const (
	maxConnectAttempts = 5
	connectRetryDelay  = 5 * time.Second
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(logger.Config{Level: cfg.LogLevel})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
	appLogger.Info("Starting Storyboard API server", zap.String("log_level", cfg.LogLevel))

	if err := runMigrations(cfg, appLogger); err != nil {
		appLogger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	dbPool, err := setupDatabase(cfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL")

	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	appLogger.Info("Connected to RabbitMQ")

	taskPublisher, err := messaging.NewRabbitMQTaskPublisher(rabbitConn, cfg.MediaTaskQueue, cfg.MediaTaskDLX, cfg.MediaTaskDLQKey)
	if err != nil {
		appLogger.Fatal("Failed to create task publisher", zap.Error(err))
	}

	blobStore, err := storage.NewLocalBlobStore(appLogger, cfg.AssetSavePath, cfg.AssetPublicBaseURL)
	if err != nil {
		appLogger.Fatal("Failed to initialize blob store", zap.Error(err))
	}

	storyRepo := repository.NewPgStoryRepository(dbPool, appLogger)
	sceneRepo := repository.NewPgSceneRepository(dbPool, appLogger)
	shotRepo := repository.NewPgShotRepository(dbPool, appLogger)

	storyService := service.NewStoryService(appLogger, storyRepo, sceneRepo, shotRepo, blobStore)
	// The API side only enqueues; the worker runs the jobs.
	generationService := service.NewGenerationService(appLogger, storyRepo, sceneRepo, shotRepo, nil, nil, nil, taskPublisher, cfg.DefaultVoiceID)
	storyHandler := handler.NewStoryHandler(storyService, generationService, appLogger)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewCustomValidator()
	e.Use(handler.EchoZapLogger(appLogger))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORS())

	storyHandler.RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()
	appLogger.Info("Storyboard API server listening", zap.String("port", cfg.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		appLogger.Error("Failed to shut down HTTP server gracefully", zap.Error(err))
	}
	appLogger.Info("Storyboard API server stopped")
}

// runMigrations applies pending SQL migrations before the server starts
// taking traffic.
func runMigrations(cfg *config.Config, log *zap.Logger) error {
	m, err := migrate.New("file://"+cfg.MigrationsDir, cfg.GetDSN())
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Info("Database migrations applied")
	return nil
}

// setupDatabase initializes the pgx connection pool.
func setupDatabase(cfg *config.Config) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return dbPool, nil
}

// connectRabbitMQ dials the broker with a bounded retry loop.
func connectRabbitMQ(url string, log *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	for attempt := 1; attempt <= maxConnectAttempts; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		log.Warn("Failed to connect to RabbitMQ, retrying",
			zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(connectRetryDelay)
	}
	return nil, fmt.Errorf("could not connect to RabbitMQ after %d attempts: %w", maxConnectAttempts, err)
}
