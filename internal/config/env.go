package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadFromEnv loads configuration from environment variables
// Parameters:
// - configDir: Directory holding the .env file and default log file (or empty for ~/.docsync)
// - configFilePath: Path to .env file (or empty for <configDir>/.env)
func LoadFromEnv(configDir string, configFilePath string) (*Config, error) {
	cfg := New()

	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".docsync")
	}
	cfg.configDir = configDir

	defaultLogPath := filepath.Join(configDir, "docsync.log")

	if configFilePath == "" {
		configFilePath = filepath.Join(configDir, ".env")
	}

	// ENV_FILE_PATH wins over the config directory; a missing default file is not an error
	envFilePath := getEnvString("ENV_FILE_PATH", "")
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			return nil, fmt.Errorf("failed to load env file from %s: %w", envFilePath, err)
		}
	} else if err := godotenv.Load(configFilePath); err != nil {
		_ = godotenv.Load()
	}

	cfg.Store = StoreConfig{
		URL:                 strings.TrimRight(getEnvString("DOCSYNC_STORE_URL", "http://localhost:8000"), "/"),
		Token:               strings.TrimSpace(getEnvString("DOCSYNC_STORE_TOKEN", "")),
		Timeout:             getEnvDuration("DOCSYNC_STORE_TIMEOUT", 30*time.Second),
		MaxRetries:          getEnvInt("DOCSYNC_STORE_MAX_RETRIES", 3),
		MaxIdleConns:        getEnvInt("DOCSYNC_STORE_MAX_IDLE_CONNS", 100),
		MaxIdleConnsPerHost: getEnvInt("DOCSYNC_STORE_MAX_IDLE_CONNS_PER_HOST", 100),
		IdleConnTimeout:     getEnvDuration("DOCSYNC_STORE_IDLE_CONN_TIMEOUT", 90*time.Second),
		RequestsPerMinute:   getEnvInt("DOCSYNC_STORE_REQUESTS_PER_MINUTE", 600),
		BurstLimit:          getEnvInt("DOCSYNC_STORE_BURST_LIMIT", 20),
	}

	cfg.Engine = EngineConfig{
		PollInterval:      getEnvDuration("DOCSYNC_POLL_INTERVAL", 5*time.Second),
		PollConcurrency:   getEnvInt("DOCSYNC_POLL_CONCURRENCY", 8),
		DeleteConcurrency: getEnvInt("DOCSYNC_DELETE_CONCURRENCY", 8),
	}

	cfg.Upload = UploadConfig{
		UseColpali: getEnvBool("DOCSYNC_UPLOAD_USE_COLPALI", true),
	}

	cfg.Inbox = InboxConfig{
		Include:  getEnvString("DOCSYNC_INBOX_INCLUDE", "*"),
		Debounce: getEnvDuration("DOCSYNC_INBOX_DEBOUNCE", 500*time.Millisecond),
	}

	cfg.Logging = LoggingConfig{
		Level:      getEnvString("DOCSYNC_LOG_LEVEL", "info"),
		Format:     getEnvString("DOCSYNC_LOG_FORMAT", "text"),
		Output:     getEnvString("DOCSYNC_LOG_OUTPUT", defaultLogPath),
		AddSource:  getEnvBool("DOCSYNC_LOG_ADD_SOURCE", true),
		TimeFormat: getTimeFormat(getEnvString("DOCSYNC_LOG_TIME_FORMAT", "RFC3339")),
	}

	return cfg, cfg.Validate()
}
