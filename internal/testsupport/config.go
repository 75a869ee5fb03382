package testsupport

import (
	"path/filepath"
	"testing"

	"clippy/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.DownloadDir = filepath.Join(base, "downloads")
	cfg.Workflow.AwaitPollInterval = 50
	cfg.Workflow.AwaitTimeout = 5
	cfg.Workflow.NotifyWindow = 20

	for _, opt := range opts {
		opt(&cfg)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	return &cfg
}

// WithBackendURL overrides the backend base URL on the test config.
func WithBackendURL(url string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Backend.BaseURL = url
	}
}

// WithNotifyWindow overrides the observer throttle window in milliseconds.
func WithNotifyWindow(ms int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.NotifyWindow = ms
	}
}

// WithNtfyTopic points notifications at the given endpoint with both
// completion and error delivery enabled.
func WithNtfyTopic(topic string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Notifications.NtfyTopic = topic
		cfg.Notifications.Completion = true
		cfg.Notifications.Errors = true
	}
}
