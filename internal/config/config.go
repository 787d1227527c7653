// Package config loads docinsight settings from the environment.
package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const envPrefix = "DOCINSIGHT"

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Debug       bool   `envconfig:"DEBUG" default:"false"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`

	DatabaseURL      string `envconfig:"DATABASE_URL"`
	DatabaseMaxConns int32  `envconfig:"DATABASE_MAX_CONNS" default:"10"`

	AWSRegion          string `envconfig:"AWS_REGION" default:"us-east-1"`
	AWSAccessKeyID     string `envconfig:"AWS_ACCESS_KEY_ID"`
	AWSSecretAccessKey string `envconfig:"AWS_SECRET_ACCESS_KEY"`

	DynamoDBEndpoint string `envconfig:"DYNAMODB_ENDPOINT"`
	DynamoDBTable    string `envconfig:"DYNAMODB_TABLE" default:"document-insights-cache"`

	S3Endpoint string `envconfig:"S3_ENDPOINT"`
	S3Bucket   string `envconfig:"S3_BUCKET" default:"documents"`

	OpenAIAPIKey    string `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL   string `envconfig:"OPENAI_BASE_URL"`
	OpenAIChatModel string `envconfig:"OPENAI_CHAT_MODEL" default:"gpt-4o-mini"`

	ChunkMaxUnits     int           `envconfig:"CHUNK_MAX_UNITS" default:"5000"`
	ChunkOverlapUnits int           `envconfig:"CHUNK_OVERLAP_UNITS" default:"819"`
	ChunkCharsPerUnit int           `envconfig:"CHUNK_CHARS_PER_UNIT" default:"4"`
	PagesPerBatch     int           `envconfig:"PAGES_PER_BATCH" default:"10"`
	CacheTTL          time.Duration `envconfig:"CACHE_TTL" default:"24h"`
	RetrievalTopK     int           `envconfig:"RETRIEVAL_TOP_K" default:"5"`
	WorkerInterval    time.Duration `envconfig:"WORKER_INTERVAL" default:"5s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("%s_CACHE_TTL must be positive, got %v", envPrefix, cfg.CacheTTL)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasDatabase() bool {
	return c.DatabaseURL != ""
}

// HasDynamoDB reports whether insights should be cached in DynamoDB rather
// than in process memory.
func (c *Config) HasDynamoDB() bool {
	return c.DynamoDBEndpoint != "" || (c.AWSAccessKeyID != "" && c.AWSSecretAccessKey != "")
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" || (c.AWSAccessKeyID != "" && c.AWSSecretAccessKey != "")
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

// TracesSampleRate samples everything outside production.
func (c *Config) TracesSampleRate() float64 {
	if c.Environment == "production" {
		return 0.1
	}
	return 1.0
}
