package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clippy/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoadParsesFileAndKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clippy.toml")
	content := `
[paths]
state_dir = "` + filepath.Join(dir, "state") + `"
log_dir = "` + filepath.Join(dir, "logs") + `"

[backend]
base_url = "http://media.local:9000/"

[workflow]
notify_window_ms = 250

[logging]
level = "DEBUG"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to be reported as existing")
	}
	if resolved != path {
		t.Fatalf("resolved path = %q, want %q", resolved, path)
	}
	if cfg.Backend.BaseURL != "http://media.local:9000" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Backend.BaseURL)
	}
	if cfg.Workflow.NotifyWindow != 250 {
		t.Fatalf("NotifyWindow = %d, want 250", cfg.Workflow.NotifyWindow)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected level lowercased, got %q", cfg.Logging.Level)
	}
	// Unset sections keep defaults.
	def := config.Default()
	if cfg.Workflow.AwaitPollInterval != def.Workflow.AwaitPollInterval {
		t.Fatalf("AwaitPollInterval = %d, want default %d", cfg.Workflow.AwaitPollInterval, def.Workflow.AwaitPollInterval)
	}
}

func TestLoadMissingExplicitPathUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing file to be reported as absent")
	}
	def := config.Default()
	if cfg.Backend.BaseURL != def.Backend.BaseURL {
		t.Fatalf("BaseURL = %q, want default %q", cfg.Backend.BaseURL, def.Backend.BaseURL)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"empty state dir", func(c *config.Config) { c.Paths.StateDir = "" }, "state_dir"},
		{"bad backend url", func(c *config.Config) { c.Backend.BaseURL = "not-a-url" }, "base_url"},
		{"poll interval too small", func(c *config.Config) { c.Workflow.AwaitPollInterval = 10 }, "await_poll_interval_ms"},
		{"notify window too small", func(c *config.Config) { c.Workflow.NotifyWindow = 5 }, "notify_window_ms"},
		{"zero await timeout", func(c *config.Config) { c.Workflow.AwaitTimeout = 0 }, "await_timeout_seconds"},
		{"unknown level", func(c *config.Config) { c.Logging.Level = "verbose" }, "logging.level"},
		{"unknown format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample failed: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if !exists || cfg == nil {
		t.Fatal("expected sample config to load")
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error when sample already exists")
	}
}

func TestExpandPathResolvesHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	got, err := config.ExpandPath("~/videos")
	if err != nil {
		t.Fatalf("ExpandPath failed: %v", err)
	}
	if got != filepath.Join(home, "videos") {
		t.Fatalf("ExpandPath = %q, want %q", got, filepath.Join(home, "videos"))
	}
}
