package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storyboard-server/internal/config"
	"storyboard-server/internal/generation"
	"storyboard-server/internal/logger"
	"storyboard-server/internal/messaging"
	"storyboard-server/internal/models"
	"storyboard-server/internal/orchestrator"
	"storyboard-server/internal/repository"
	"storyboard-server/internal/service"
	"storyboard-server/internal/storage"
	"storyboard-server/internal/worker"
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
	appLogger.Info("Starting Storyboard generation worker", zap.String("log_level", cfg.LogLevel))

	dbPool, err := setupDatabase(cfg)
	if err != nil {
		appLogger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()
	appLogger.Info("Connected to PostgreSQL")

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	appLogger.Info("Connected to Redis")

	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	appLogger.Info("Connected to RabbitMQ")

	notifier, err := messaging.NewRabbitMQNotifier(rabbitConn, cfg.NotificationQueue)
	if err != nil {
		appLogger.Fatal("Failed to create notifier", zap.Error(err))
	}

	blobStore, err := storage.NewLocalBlobStore(appLogger, cfg.AssetSavePath, cfg.AssetPublicBaseURL)
	if err != nil {
		appLogger.Fatal("Failed to initialize blob store", zap.Error(err))
	}

	backends := map[models.MediaKind]generation.Backend{
		models.MediaKindImage:             generation.NewHTTPBackend(appLogger, models.MediaKindImage, cfg.ImageBackendURL, cfg.BackendTimeout),
		models.MediaKindVideo:             generation.NewHTTPBackend(appLogger, models.MediaKindVideo, cfg.VideoBackendURL, cfg.BackendTimeout),
		models.MediaKindDialogueAudio:     generation.NewHTTPBackend(appLogger, models.MediaKindDialogueAudio, cfg.AudioBackendURL, cfg.BackendTimeout),
		models.MediaKindSoundEffectsAudio: generation.NewHTTPBackend(appLogger, models.MediaKindSoundEffectsAudio, cfg.AudioBackendURL, cfg.BackendTimeout),
		models.MediaKindLipSyncVideo:      generation.NewHTTPBackend(appLogger, models.MediaKindLipSyncVideo, cfg.LipSyncBackendURL, cfg.BackendTimeout),
	}

	registry := orchestrator.NewRedisRegistry(redisClient, cfg.InFlightClaimExpiry)
	orch := orchestrator.New(appLogger, backends, registry, newProgressNotifier(notifier, appLogger), orchestrator.Config{
		PollInterval:     cfg.PollInterval,
		MaxCheckFailures: cfg.PollMaxCheckFails,
		Deadlines: map[models.MediaKind]time.Duration{
			models.MediaKindImage:             cfg.ImageJobDeadline,
			models.MediaKindVideo:             cfg.VideoJobDeadline,
			models.MediaKindDialogueAudio:     cfg.AudioJobDeadline,
			models.MediaKindSoundEffectsAudio: cfg.AudioJobDeadline,
			models.MediaKindLipSyncVideo:      cfg.LipSyncJobDeadline,
		},
	})

	storyRepo := repository.NewPgStoryRepository(dbPool, appLogger)
	sceneRepo := repository.NewPgSceneRepository(dbPool, appLogger)
	shotRepo := repository.NewPgShotRepository(dbPool, appLogger)
	generationService := service.NewGenerationService(appLogger, storyRepo, sceneRepo, shotRepo, orch, backends, blobStore, nil, cfg.DefaultVoiceID)

	messageHandler := worker.NewHandler(appLogger, generationService, notifier, cfg.PushGatewayURL, cfg.PushMetricsEnabled)
	consumer := messaging.NewConsumer(rabbitConn, appLogger, messageHandler, cfg.MediaTaskQueue, cfg.MediaTaskDLX, cfg.MediaTaskDLQKey, cfg.WorkerPrefetch)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := consumer.StartConsuming(ctx); err != nil {
			appLogger.Error("Consumer exited with error", zap.Error(err))
		}
	}()
	appLogger.Info("Storyboard generation worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutdown signal received")

	cancel()
	consumer.Stop()
	wg.Wait()
	appLogger.Info("Storyboard generation worker stopped")
}

// progressNotifier adapts the notification queue to the orchestrator's
// progress reporting interface.
type progressNotifier struct {
	notifier messaging.Notifier
	logger   *zap.Logger
}

func newProgressNotifier(notifier messaging.Notifier, logger *zap.Logger) *progressNotifier {
	return &progressNotifier{notifier: notifier, logger: logger.Named("ProgressNotifier")}
}

func (p *progressNotifier) Progress(ctx context.Context, job *orchestrator.Job, message string) {
	payload := messaging.NotificationPayload{
		TaskID:  job.TaskID,
		ShotID:  job.ShotID.String(),
		Kind:    job.Kind,
		Status:  messaging.NotificationStatusProgress,
		Message: message,
	}
	if err := p.notifier.Notify(ctx, payload); err != nil {
		p.logger.Warn("Failed to publish progress notification",
			zap.String("task_id", job.TaskID), zap.Error(err))
	}
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
