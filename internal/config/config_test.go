package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// docsyncVars lists every variable LoadFromEnv reads so tests start from a clean slate
var docsyncVars = []string{
	"ENV_FILE_PATH",
	"DOCSYNC_STORE_URL", "DOCSYNC_STORE_TOKEN", "DOCSYNC_STORE_TIMEOUT", "DOCSYNC_STORE_MAX_RETRIES",
	"DOCSYNC_STORE_MAX_IDLE_CONNS", "DOCSYNC_STORE_MAX_IDLE_CONNS_PER_HOST", "DOCSYNC_STORE_IDLE_CONN_TIMEOUT",
	"DOCSYNC_STORE_REQUESTS_PER_MINUTE", "DOCSYNC_STORE_BURST_LIMIT",
	"DOCSYNC_POLL_INTERVAL", "DOCSYNC_POLL_CONCURRENCY", "DOCSYNC_DELETE_CONCURRENCY",
	"DOCSYNC_UPLOAD_USE_COLPALI", "DOCSYNC_INBOX_INCLUDE", "DOCSYNC_INBOX_DEBOUNCE",
	"DOCSYNC_LOG_LEVEL", "DOCSYNC_LOG_FORMAT", "DOCSYNC_LOG_OUTPUT", "DOCSYNC_LOG_ADD_SOURCE", "DOCSYNC_LOG_TIME_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, v := range docsyncVars {
		os.Unsetenv(v)
	}
	t.Cleanup(func() {
		for _, v := range docsyncVars {
			os.Unsetenv(v)
		}
	})
}

func TestGetEnvString(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue string
		expected     string
	}{
		{
			name:         "env not set, return default",
			envValue:     "",
			defaultValue: "default",
			expected:     "default",
		},
		{
			name:         "env set, return env value",
			envValue:     "custom",
			defaultValue: "default",
			expected:     "custom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_STRING_VALUE"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
				defer os.Unsetenv(key)
			} else {
				os.Unsetenv(key)
			}

			result := getEnvString(key, tt.defaultValue)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue int
		expected     int
	}{
		{"env not set, return default", "", 100, 100},
		{"env set to valid int, return int value", "200", 100, 200},
		{"env set to invalid int, return default", "not_an_int", 100, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_INT_VALUE"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
				defer os.Unsetenv(key)
			} else {
				os.Unsetenv(key)
			}

			assert.Equal(t, tt.expected, getEnvInt(key, tt.defaultValue))
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue bool
		expected     bool
	}{
		{"env not set, return default", "", true, true},
		{"env set to true, return true", "true", false, true},
		{"env set to false, return false", "false", true, false},
		{"env set to invalid bool, return default", "not_a_bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_BOOL_VALUE"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
				defer os.Unsetenv(key)
			} else {
				os.Unsetenv(key)
			}

			assert.Equal(t, tt.expected, getEnvBool(key, tt.defaultValue))
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name         string
		envValue     string
		defaultValue time.Duration
		expected     time.Duration
	}{
		{"env not set, return default", "", time.Second, time.Second},
		{"env set to valid duration, return duration value", "5s", time.Second, 5 * time.Second},
		{"env set to invalid duration, return default", "not_a_duration", time.Second, time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := "TEST_DURATION_VALUE"
			if tt.envValue != "" {
				os.Setenv(key, tt.envValue)
				defer os.Unsetenv(key)
			} else {
				os.Unsetenv(key)
			}

			assert.Equal(t, tt.expected, getEnvDuration(key, tt.defaultValue))
		})
	}
}

func TestNew(t *testing.T) {
	cfg := New()

	assert.Empty(t, cfg.Store.URL)
	assert.Empty(t, cfg.Store.Token)
	assert.Zero(t, cfg.Engine.PollInterval)
	assert.Empty(t, cfg.Logging.Level)
	assert.False(t, cfg.Upload.UseColpali)
}

func TestLoadFromEnvDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	cfg, err := LoadFromEnv(dir, "")
	require.NoError(t, err)

	assert.Equal(t, dir, cfg.ConfigDir())
	assert.Equal(t, "http://localhost:8000", cfg.Store.URL)
	assert.Empty(t, cfg.Store.Token, "no token means unauthenticated mode")
	assert.Equal(t, 30*time.Second, cfg.Store.Timeout)
	assert.Equal(t, 3, cfg.Store.MaxRetries)
	assert.Equal(t, 600, cfg.Store.RequestsPerMinute)
	assert.Equal(t, 5*time.Second, cfg.Engine.PollInterval)
	assert.Equal(t, 8, cfg.Engine.PollConcurrency)
	assert.True(t, cfg.Upload.UseColpali)
	assert.Equal(t, "*", cfg.Inbox.Include)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, filepath.Join(dir, "docsync.log"), cfg.Logging.Output)
	assert.Equal(t, time.RFC3339, cfg.Logging.TimeFormat)
}

func TestLoadFromEnvReadsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "DOCSYNC_STORE_URL=http://store.test:9000/\n" +
		"DOCSYNC_STORE_TOKEN=  secret-token  \n" +
		"DOCSYNC_POLL_INTERVAL=250ms\n" +
		"DOCSYNC_LOG_TIME_FORMAT=Kitchen\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0644))

	cfg, err := LoadFromEnv(dir, "")
	require.NoError(t, err)

	assert.Equal(t, "http://store.test:9000", cfg.Store.URL, "trailing slash is trimmed")
	assert.Equal(t, "secret-token", cfg.Store.Token)
	assert.Equal(t, 250*time.Millisecond, cfg.Engine.PollInterval)
	assert.Equal(t, time.Kitchen, cfg.Logging.TimeFormat)
}

func TestLoadFromEnvExplicitFileMustExist(t *testing.T) {
	clearEnv(t)
	os.Setenv("ENV_FILE_PATH", filepath.Join(t.TempDir(), "missing.env"))

	_, err := LoadFromEnv(t.TempDir(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load env file")
}

func validConfig() *Config {
	cfg := New()
	cfg.Store = StoreConfig{
		URL:                 "http://localhost:8000",
		Timeout:             time.Second,
		MaxRetries:          1,
		MaxIdleConns:        1,
		MaxIdleConnsPerHost: 1,
		IdleConnTimeout:     time.Second,
	}
	cfg.Engine = EngineConfig{PollInterval: time.Second, PollConcurrency: 1, DeleteConcurrency: 1}
	cfg.Logging = LoggingConfig{Level: "info", Format: "text"}
	return cfg
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		errPart string
	}{
		{"empty url", func(c *Config) { c.Store.URL = "" }, "store config"},
		{"relative url", func(c *Config) { c.Store.URL = "localhost" }, "invalid url"},
		{"zero timeout", func(c *Config) { c.Store.Timeout = 0 }, "timeout must be positive"},
		{"negative retries", func(c *Config) { c.Store.MaxRetries = -1 }, "max_retries"},
		{"zero poll interval", func(c *Config) { c.Engine.PollInterval = 0 }, "engine config"},
		{"zero delete concurrency", func(c *Config) { c.Engine.DeleteConcurrency = 0 }, "delete concurrency"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging config"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errPart)
		})
	}
}

func TestParseLoglevel(t *testing.T) {
	tests := []struct {
		level  string
		expect slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"none", slog.Level(9999)},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			assert.Equal(t, tt.expect, ParseLogLevel(tt.level))
		})
	}
}
