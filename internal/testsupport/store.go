package testsupport

import (
	"testing"
	"time"

	"clippy/internal/config"
	"clippy/internal/jobs"
	"clippy/internal/logging"
)

// MustOpenStore opens a cache-backed jobs.Store for tests and registers
// cleanup for the cache handle.
func MustOpenStore(t testing.TB, cfg *config.Config) *jobs.Store {
	t.Helper()

	cache, err := jobs.OpenCache(cfg)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	t.Cleanup(func() {
		_ = cache.Close()
	})

	watcher := jobs.NewWatcher(time.Duration(cfg.Workflow.NotifyWindow) * time.Millisecond)
	t.Cleanup(watcher.Close)
	return jobs.NewStore(cache, watcher, logging.NewNop())
}

// NewMemoryStore builds an uncached store with the given throttle window.
// A zero window uses the default.
func NewMemoryStore(t testing.TB, window time.Duration) (*jobs.Store, *jobs.Watcher) {
	t.Helper()

	if window <= 0 {
		window = jobs.DefaultThrottleWindow
	}
	watcher := jobs.NewWatcher(window)
	t.Cleanup(watcher.Close)
	return jobs.NewStore(nil, watcher, logging.NewNop()), watcher
}
