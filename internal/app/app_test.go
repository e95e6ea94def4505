package app

import (
	"flag"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/tildaslashalef/docsync/internal/config"
	"github.com/tildaslashalef/docsync/internal/engine"
	"github.com/tildaslashalef/docsync/internal/loggy"
)

func TestEngineOptions(t *testing.T) {
	cfg := config.New()
	cfg.Engine = config.EngineConfig{
		PollInterval:      2 * time.Second,
		PollConcurrency:   3,
		DeleteConcurrency: 4,
	}
	cfg.Upload.UseColpali = true

	notifier := engine.NotifierFunc(func(engine.Notification) {})
	opts := EngineOptions(cfg, notifier, engine.Hooks{}, loggy.NewNoopLogger())

	assert.Equal(t, 2*time.Second, opts.PollInterval)
	assert.Equal(t, 3, opts.PollConcurrency)
	assert.Equal(t, 4, opts.DeleteConcurrency)
	assert.True(t, opts.UseColpali)
	assert.NotNil(t, opts.Notifier)
	require.NotNil(t, opts.FilenameGenerator)
	assert.Contains(t, opts.FilenameGenerator(), ".txt")
}

func TestLoggerConfig(t *testing.T) {
	lc := LoggerConfig(config.LoggingConfig{Level: "debug", Format: "json"})
	assert.Equal(t, slog.LevelDebug, lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.False(t, lc.AddSource)

	defaults := loggy.DefaultConfig()
	assert.Equal(t, defaults.Output, lc.Output, "empty settings keep the defaults")
	assert.Equal(t, defaults.TimeFormat, lc.TimeFormat)
}

func TestFromContext(t *testing.T) {
	cliApp := cli.NewApp()
	c := cli.NewContext(cliApp, flag.NewFlagSet("test", flag.ContinueOnError), nil)

	_, err := FromContext(c)
	assert.ErrorContains(t, err, "app metadata not found")

	cliApp.Metadata = map[string]interface{}{"app": "not an app"}
	_, err = FromContext(c)
	assert.ErrorContains(t, err, "app instance not found")

	want := &App{Config: config.New()}
	cliApp.Metadata["app"] = want
	got, err := FromContext(c)
	require.NoError(t, err)
	assert.Same(t, want, got)
}
