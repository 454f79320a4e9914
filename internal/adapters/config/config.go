package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"traderwatch/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Telegram      TelegramConfig
	OKX           OKXConfig
	Watch         WatchConfig
	Notify        NotifyConfig
	Health        HealthConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"traderwatch"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN" required:"true"`
	// GroupID is the chat all open/close signals are delivered to.
	GroupID int64 `envconfig:"TELEGRAM_GROUP_ID" required:"true"`
	// ThreadID optionally routes signals into a forum sub-thread (0 = main chat).
	ThreadID int `envconfig:"TELEGRAM_THREAD_ID" default:"0"`
	Debug    bool `envconfig:"TELEGRAM_DEBUG" default:"false"`
}

type OKXConfig struct {
	BaseURL string        `envconfig:"OKX_BASE_URL" default:"https://www.okx.com"`
	Timeout time.Duration `envconfig:"OKX_HTTP_TIMEOUT" default:"10s"`
	// RequestsPerMinute throttles the public ecotrade endpoint.
	RequestsPerMinute int `envconfig:"OKX_REQUESTS_PER_MINUTE" default:"60"`
	// CacheTTL bounds the redis snapshot cache. Zero disables caching.
	CacheTTL time.Duration `envconfig:"OKX_CACHE_TTL" default:"5s"`
}

type WatchConfig struct {
	// TradersFile is the JSON registry of tracked trader accounts.
	TradersFile string `envconfig:"TRADERS_FILE" default:"traders.json"`
	// Interval is the pause between full passes over the trader list.
	Interval time.Duration `envconfig:"WATCH_INTERVAL" default:"7s"`
	// Jitter is the random delay added before each pass so polling never
	// hits the upstream in a synchronized burst.
	Jitter time.Duration `envconfig:"WATCH_JITTER" default:"5s"`
}

type NotifyConfig struct {
	// MessageSpacing is the minimum delay between two successful sends.
	MessageSpacing time.Duration `envconfig:"NOTIFY_MESSAGE_SPACING" default:"1s"`
	// DefaultRetryAfter is used when the sink reports throttling without a duration.
	DefaultRetryAfter time.Duration `envconfig:"NOTIFY_DEFAULT_RETRY_AFTER" default:"30s"`
}

type HealthConfig struct {
	Addr string `envconfig:"HEALTH_ADDR" default:":8080"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
