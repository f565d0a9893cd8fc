package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the configuration shared by the API server and the
// generation worker.
type Config struct {
	// Server settings
	Port     string `envconfig:"SERVER_PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// PostgreSQL settings
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBPassword    string        `envconfig:"DB_PASSWORD" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	MigrationsDir string        `envconfig:"MIGRATIONS_DIR" default:"migrations"`

	// RabbitMQ settings
	RabbitMQURL        string `envconfig:"RABBITMQ_URL" required:"true"`
	MediaTaskQueue     string `envconfig:"MEDIA_TASK_QUEUE" default:"media_generation_tasks"`
	NotificationQueue  string `envconfig:"NOTIFICATION_QUEUE" default:"media_generation_notifications"`
	MediaTaskDLX       string `envconfig:"MEDIA_TASK_DLX" default:"media_generation_tasks_dlx"`
	MediaTaskDLQKey    string `envconfig:"MEDIA_TASK_DLQ_KEY" default:"dlq"`
	WorkerPrefetch     int    `envconfig:"WORKER_PREFETCH" default:"4"`
	PushGatewayURL     string `envconfig:"PUSHGATEWAY_URL" default:"http://pushgateway:9091"`
	PushMetricsEnabled bool   `envconfig:"PUSH_METRICS_ENABLED" default:"true"`

	// Redis settings (orchestrator coordination state)
	RedisAddr     string `envconfig:"REDIS_ADDR" required:"true"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// Generation backend settings, one HTTP job service per media kind.
	ImageBackendURL   string        `envconfig:"IMAGE_BACKEND_URL" required:"true"`
	VideoBackendURL   string        `envconfig:"VIDEO_BACKEND_URL" required:"true"`
	AudioBackendURL   string        `envconfig:"AUDIO_BACKEND_URL" required:"true"`
	LipSyncBackendURL string        `envconfig:"LIPSYNC_BACKEND_URL" required:"true"`
	BackendTimeout    time.Duration `envconfig:"BACKEND_REQUEST_TIMEOUT" default:"30s"`

	// Poll loop settings. Deadlines scale with the expected latency of
	// each backend; they are configuration, not constants.
	PollInterval        time.Duration `envconfig:"POLL_INTERVAL" default:"3s"`
	PollMaxCheckFails   int           `envconfig:"POLL_MAX_CHECK_FAILURES" default:"5"`
	ImageJobDeadline    time.Duration `envconfig:"IMAGE_JOB_DEADLINE" default:"60s"`
	VideoJobDeadline    time.Duration `envconfig:"VIDEO_JOB_DEADLINE" default:"5m"`
	AudioJobDeadline    time.Duration `envconfig:"AUDIO_JOB_DEADLINE" default:"90s"`
	LipSyncJobDeadline  time.Duration `envconfig:"LIPSYNC_JOB_DEADLINE" default:"5m"`
	InFlightClaimExpiry time.Duration `envconfig:"INFLIGHT_CLAIM_EXPIRY" default:"10m"`

	// Blob storage settings
	AssetSavePath      string `envconfig:"ASSET_SAVE_PATH" required:"true"`
	AssetPublicBaseURL string `envconfig:"ASSET_PUBLIC_BASE_URL" required:"true"`

	// Voice settings
	DefaultVoiceID string `envconfig:"DEFAULT_VOICE_ID" default:"narrator-en-1"`
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return &cfg, nil
}
