package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Service    Service    `envconfig:"SERVICE"`
	ClickHouse ClickHouse `envconfig:"CLICKHOUSE"`
	SQS        SQS        `envconfig:"SQS"`
	TextGen    TextGen    `envconfig:"TEXTGEN"`
	Auth       Auth       `envconfig:"AUTH"`
	Synthesis  Synthesis  `envconfig:"SYNTHESIS"`
	Schedule   Schedule   `envconfig:"SCHEDULE"`
}

type Service struct {
	Environment string `envconfig:"ENVIRONMENT" required:"true"`
	APIPort     string `envconfig:"API_PORT" default:"8080"`
	Host        string `envconfig:"HOST" default:"localhost:8080"`
}

type ClickHouse struct {
	Host            string `envconfig:"HOST" required:"true"`
	Port            string `envconfig:"PORT" required:"true"`
	Database        string `envconfig:"DB" required:"true"`
	User            string `envconfig:"USER" default:""`
	Password        string `envconfig:"PASSWORD" default:""`
	UseTLS          bool   `envconfig:"USE_TLS" default:"false"`
	MaxOpenConns    int    `envconfig:"MAX_OPEN_CONNS" default:"5"`
	MaxIdleConns    int    `envconfig:"MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime int    `envconfig:"CONN_MAX_LIFETIME_SEC" default:"3600"`
	// QueryTimeout caps server-side execution of a single window scan
	QueryTimeout   time.Duration `envconfig:"QUERY_TIMEOUT" default:"30s"`
	ConnectRetries int           `envconfig:"CONNECT_RETRIES" default:"3"`
}

// SQS points at the mail queue drained by the notification worker.
type SQS struct {
	Endpoint string `envconfig:"ENDPOINT"`
	QueueURL string `envconfig:"QUEUE_URL" required:"true"`
	Region   string `envconfig:"REGION" required:"true"`
}

type TextGen struct {
	APIKey            string        `envconfig:"API_KEY"`
	BaseURL           string        `envconfig:"BASE_URL" default:"https://api.anthropic.com"`
	Model             string        `envconfig:"MODEL" default:"claude-haiku-4-5-20251001"`
	Timeout           time.Duration `envconfig:"TIMEOUT" default:"30s"`
	MaxTokens         int           `envconfig:"MAX_TOKENS" default:"800"`
	Temperature       float64       `envconfig:"TEMPERATURE" default:"0.4"`
	RequestsPerSecond float64       `envconfig:"REQUESTS_PER_SECOND" default:"2"`
	Burst             int           `envconfig:"BURST" default:"4"`
}

type Auth struct {
	JWTSecret      string  `envconfig:"JWT_SECRET" required:"true"`
	QueryRateLimit float64 `envconfig:"QUERY_RATE_LIMIT" default:"1"`
	QueryBurst     int     `envconfig:"QUERY_BURST" default:"5"`
}

// Synthesis holds every threshold and TTL used by the analysis pipeline.
type Synthesis struct {
	SessionTimeout     time.Duration `envconfig:"SESSION_TIMEOUT" default:"30m"`
	MinAgentUsage      int           `envconfig:"MIN_AGENT_USAGE" default:"10"`
	ErrorRateThreshold float64       `envconfig:"ERROR_RATE_THRESHOLD" default:"0.10"`
	HighGrowthPercent  float64       `envconfig:"HIGH_GROWTH_PERCENT" default:"50"`
	TopTermsLimit      int           `envconfig:"TOP_TERMS_LIMIT" default:"10"`
	QueryPeriod        string        `envconfig:"QUERY_PERIOD" default:"30days"`
	QueryCacheTTL      time.Duration `envconfig:"QUERY_CACHE_TTL" default:"1h"`
	ReportCacheTTL     time.Duration `envconfig:"REPORT_CACHE_TTL" default:"6h"`
	CacheCapacity      int           `envconfig:"CACHE_CAPACITY" default:"1024"`
	MaxQueryLength     int           `envconfig:"MAX_QUERY_LENGTH" default:"1000"`
}

type Schedule struct {
	WeeklyReportCron string   `envconfig:"WEEKLY_REPORT_CRON" default:"0 9 * * 1"`
	Recipients       []string `envconfig:"RECIPIENTS"`
	Enabled          bool     `envconfig:"ENABLED" default:"true"`
}

// DefaultSynthesis returns the defaults declared on the Synthesis tags.
func DefaultSynthesis() Synthesis {
	return Synthesis{
		SessionTimeout:     30 * time.Minute,
		MinAgentUsage:      10,
		ErrorRateThreshold: 0.10,
		HighGrowthPercent:  50,
		TopTermsLimit:      10,
		QueryPeriod:        "30days",
		QueryCacheTTL:      time.Hour,
		ReportCacheTTL:     6 * time.Hour,
		CacheCapacity:      1024,
		MaxQueryLength:     1000,
	}
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}
