package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	HTTP struct {
		RequestTimeout  time.Duration `envconfig:"HTTP_REQUEST_TIMEOUT" default:"15s"`
		ShutdownTimeout time.Duration `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
	} `envconfig:""`

	Auth struct {
		JWTSecret string `envconfig:"AUTH_JWT_SECRET"`
		Issuer    string `envconfig:"AUTH_JWT_ISSUER"`
	} `envconfig:""`

	Telegram struct {
		Token         string `envconfig:"TG_BOT_TOKEN"`
		WebhookSecret string `envconfig:"TG_WEBHOOK_SECRET"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Cache struct {
		ScoreTTL time.Duration `envconfig:"SCORE_CACHE_TTL" default:"10m"`
	} `envconfig:""`

	Queues struct {
		Backend string `envconfig:"QUEUE_BACKEND" default:"redis"`
		Score   string `envconfig:"SCORE_QUEUE_KEY" default:"score_jobs"`
	} `envconfig:""`

	RabbitMQ struct {
		URL string `envconfig:"RABBITMQ_URL"`
	} `envconfig:""`

	Scheduler struct {
		Interval     time.Duration `envconfig:"SCHEDULER_INTERVAL" default:"5m"`
		LookbackDays int           `envconfig:"SCHEDULER_LOOKBACK_DAYS" default:"3"`
		Grace        time.Duration `envconfig:"SCHEDULER_GRACE" default:"2m"`
		Batch        int           `envconfig:"SCHEDULER_BATCH" default:"500"`
	} `envconfig:""`

	Metrics struct {
		Addr string `envconfig:"METRICS_ADDR" default:":9090"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	cfg, err := Parse()
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// Parse читает конфиг из окружения и возвращает ошибку вместо завершения процесса.
func Parse() (AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}
