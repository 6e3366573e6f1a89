// Package config reads pipeline settings from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/tendant/simple-alt-pipeline/internal/contentstack"
	"github.com/tendant/simple-alt-pipeline/internal/dbosruntime"
	"github.com/tendant/simple-alt-pipeline/internal/openai"
	"github.com/tendant/simple-alt-pipeline/internal/usage"
	"github.com/tendant/simple-alt-pipeline/internal/workflows"
)

type Config struct {
	// Contentstack
	ContentstackAPIKey          string
	ContentstackManagementToken string
	ContentstackHost            string
	ContentstackBranch          string

	// OpenAI
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// Pipeline
	OutputsDir         string
	InstructionsPath   string
	BatchSize          int
	CMSRequestDelay    time.Duration
	UpdateDelay        time.Duration
	BatchPollInterval  time.Duration
	AnalyzeConcurrency int
	MaxAssets          int
	HTTPTimeout        time.Duration

	// Worker
	HTTPAddr string

	// DBOS
	DBOSDatabaseURL        string
	DBOSQueueName          string
	DBOSConcurrency        int
	DBOSApplicationVersion string

	// Ledger defaults to the DBOS system database
	LedgerDatabaseURL string

	// Logging
	LogLevel string
	LogHuman bool
}

// Load reads .env when present, then the environment
func Load() *Config {
	_ = godotenv.Load()
	return New()
}

// New builds the configuration from the environment
func New() *Config {
	cfg := &Config{
		ContentstackAPIKey:          getEnv("CONTENTSTACK_API_KEY", ""),
		ContentstackManagementToken: getEnv("CONTENTSTACK_MANAGEMENT_TOKEN", ""),
		ContentstackHost:            getEnv("CONTENTSTACK_HOST", contentstack.DefaultBaseURL),
		ContentstackBranch:          getEnv("CONTENTSTACK_BRANCH", ""),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", openai.DefaultModel),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", openai.DefaultBaseURL),

		OutputsDir:         getEnv("OUTPUTS_DIR", "./outputs"),
		InstructionsPath:   getEnv("INSTRUCTIONS_PATH", ""),
		BatchSize:          getEnvAsInt("BATCH_SIZE", workflows.DefaultBatchSize),
		CMSRequestDelay:    getEnvAsDuration("CMS_REQUEST_DELAY", usage.DefaultRequestDelay),
		UpdateDelay:        getEnvAsDuration("UPDATE_DELAY", workflows.DefaultUpdateDelay),
		BatchPollInterval:  getEnvAsDuration("BATCH_POLL_INTERVAL", workflows.DefaultPollInterval),
		AnalyzeConcurrency: getEnvAsInt("ANALYZE_CONCURRENCY", usage.DefaultConcurrency),
		MaxAssets:          getEnvAsInt("MAX_ASSETS", workflows.DefaultMaxAssets),
		HTTPTimeout:        getEnvAsDuration("HTTP_TIMEOUT", 30*time.Second),

		HTTPAddr: getEnv("WORKER_HTTP_ADDR", ":8081"),

		DBOSDatabaseURL:        getEnv("DBOS_SYSTEM_DATABASE_URL", ""),
		DBOSQueueName:          getEnv("DBOS_QUEUE_NAME", ""),
		DBOSConcurrency:        getEnvAsInt("DBOS_CONCURRENCY", 0),
		DBOSApplicationVersion: getEnv("DBOS_APPLICATION_VERSION", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogHuman: getEnvAsBool("LOG_HUMAN", false),
	}
	cfg.LedgerDatabaseURL = getEnv("LEDGER_DATABASE_URL", cfg.DBOSDatabaseURL)
	return cfg
}

// Contentstack returns the management API client settings
func (c *Config) Contentstack() contentstack.Config {
	return contentstack.Config{
		APIKey:          c.ContentstackAPIKey,
		ManagementToken: c.ContentstackManagementToken,
		BaseURL:         c.ContentstackHost,
		Branch:          c.ContentstackBranch,
		Timeout:         c.HTTPTimeout,
	}
}

// OpenAI returns the batch API client settings
func (c *Config) OpenAI() openai.Config {
	return openai.Config{
		APIKey:  c.OpenAIAPIKey,
		BaseURL: c.OpenAIBaseURL,
	}
}

// DBOS returns the durable runtime settings
func (c *Config) DBOS(appName string) dbosruntime.Config {
	return dbosruntime.Config{
		DatabaseURL:        c.DBOSDatabaseURL,
		AppName:            appName,
		QueueName:          c.DBOSQueueName,
		Concurrency:        c.DBOSConcurrency,
		ApplicationVersion: c.DBOSApplicationVersion,
	}
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations and plain milliseconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
