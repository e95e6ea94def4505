package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	Store     StoreConfig
	Engine    EngineConfig
	Upload    UploadConfig
	Inbox     InboxConfig
	Logging   LoggingConfig
	configDir string // Directory the .env file was looked up in
}

// StoreConfig holds connection settings for the remote document store
type StoreConfig struct {
	URL   string // Base URL of the store API
	Token string // Optional bearer credential, empty means unauthenticated

	// Request settings
	Timeout    time.Duration // Per-request timeout
	MaxRetries int           // Retries for document and download reads

	// Connection pooling
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration

	// Rate limiting
	RequestsPerMinute int
	BurstLimit        int
}

// EngineConfig tunes the synchronization engine
type EngineConfig struct {
	PollInterval      time.Duration // Interval between status poll rounds
	PollConcurrency   int           // Parallel status requests per round
	DeleteConcurrency int           // Parallel delete requests per batch
}

// UploadConfig holds upload defaults
type UploadConfig struct {
	UseColpali bool // Default processing-mode flag sent with uploads
}

// InboxConfig configures the directory watcher
type InboxConfig struct {
	Include  string        // Glob matched against file names
	Debounce time.Duration // Quiet period before a written file is uploaded
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string // debug, info, warn, error, none
	Format     string // text or json
	Output     string // stdout, stderr, or file path
	AddSource  bool   // Include source code position in logs
	TimeFormat string // Time format for logs (empty uses RFC3339)
}

// New returns a new empty Config
func New() *Config {
	return &Config{
		Store:   StoreConfig{},
		Engine:  EngineConfig{},
		Upload:  UploadConfig{},
		Inbox:   InboxConfig{},
		Logging: LoggingConfig{},
	}
}

// ConfigDir returns the directory the configuration was loaded from
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}

	if err := c.validateEngine(); err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	if err := c.validateLogging(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// ParseLogLevel parses a log level string to a slog.Level
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "none":
		// Set to a very high level that won't be triggered
		return slog.Level(9999)
	default:
		return slog.LevelInfo
	}
}

func (c *Config) validateStore() error {
	if c.Store.URL == "" {
		return fmt.Errorf("url cannot be empty")
	}

	u, err := url.Parse(c.Store.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid url: %s", c.Store.URL)
	}

	if c.Store.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.Store.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative")
	}

	if c.Store.MaxIdleConns <= 0 {
		return fmt.Errorf("max_idle_conns must be positive")
	}

	if c.Store.MaxIdleConnsPerHost <= 0 {
		return fmt.Errorf("max_idle_conns_per_host must be positive")
	}

	if c.Store.IdleConnTimeout <= 0 {
		return fmt.Errorf("idle_conn_timeout must be positive")
	}

	return nil
}

func (c *Config) validateEngine() error {
	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}

	if c.Engine.PollConcurrency <= 0 {
		return fmt.Errorf("poll concurrency must be positive")
	}

	if c.Engine.DeleteConcurrency <= 0 {
		return fmt.Errorf("delete concurrency must be positive")
	}

	return nil
}

func (c *Config) validateLogging() error {
	level := strings.ToLower(c.Logging.Level)
	if level != "debug" && level != "info" && level != "warn" && level != "error" && level != "none" {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	format := strings.ToLower(c.Logging.Format)
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// getEnvString returns a string from the environment variable
func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvInt returns an int from the environment variable
func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool returns a bool from the environment variable
func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration returns a time.Duration from the environment variable
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getTimeFormat converts a named time format to its actual format string
func getTimeFormat(name string) string {
	switch name {
	case "RFC3339":
		return time.RFC3339
	case "RFC3339Nano":
		return time.RFC3339Nano
	case "Kitchen":
		return time.Kitchen
	case "DateTime":
		return time.DateTime
	case "DateTimeMS":
		return "2006-01-02 15:04:05.000"
	case "Time":
		return time.TimeOnly
	default:
		return name
	}
}
