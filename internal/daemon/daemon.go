package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"clippy/internal/backend"
	"clippy/internal/config"
	"clippy/internal/jobs"
	"clippy/internal/logging"
	"clippy/internal/notifications"
	"clippy/internal/pipeline"
	"clippy/internal/preflight"
	"clippy/internal/reconcile"
)

// Daemon wires the orchestration core together and enforces
// single-instance execution.
type Daemon struct {
	cfg    *config.Config
	logger *slog.Logger

	cache       *jobs.Cache
	watcher     *jobs.Watcher
	store       *jobs.Store
	client      backend.Client
	notifier    notifications.Service
	coordinator *pipeline.Coordinator
	aggregator  *pipeline.Aggregator
	reconciler  *reconcile.Reconciler

	lockPath  string
	lock      *flock.Flock
	sessionID string

	running atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	bus     *backend.StreamBus
	wg      sync.WaitGroup
}

// Status represents daemon runtime information.
type Status struct {
	Running   bool
	SessionID string
	JobStats  map[jobs.Status]int
	CachePath string
	LockPath  string
}

// New constructs a daemon with initialized dependencies.
func New(cfg *config.Config, logger *slog.Logger) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	cache, err := jobs.OpenCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job cache: %w", err)
	}

	watcher := jobs.NewWatcher(time.Duration(cfg.Workflow.NotifyWindow) * time.Millisecond)
	store := jobs.NewStore(cache, watcher, logger)
	client := backend.NewHTTPClient(cfg)
	notifier := notifications.NewService(cfg)

	lockPath := filepath.Join(cfg.Paths.StateDir, "clippyd.lock")
	return &Daemon{
		cfg:         cfg,
		logger:      logger,
		cache:       cache,
		watcher:     watcher,
		store:       store,
		client:      client,
		notifier:    notifier,
		coordinator: pipeline.NewCoordinator(cfg, store, client, notifier, logger),
		aggregator:  pipeline.NewAggregator(store, client, notifier, logger),
		reconciler:  reconcile.New(store, client, logger),
		lockPath:    lockPath,
		lock:        flock.New(lockPath),
		sessionID:   uuid.NewString(),
	}, nil
}

// Start acquires the daemon lock, restores cached jobs, reconciles against
// the backend, and begins consuming the event stream.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another clippy daemon instance is already running")
	}

	for _, result := range preflight.RunAll(ctx, d.cfg) {
		if result.Passed {
			d.logger.Debug("preflight check passed", logging.String("check", result.Name), logging.String("detail", result.Detail))
			continue
		}
		d.logger.Warn("preflight check failed", logging.String("check", result.Name), logging.String("detail", result.Detail))
	}

	restored, err := d.store.LoadCached(ctx)
	if err != nil {
		// Memory-only operation; nothing to recover.
		d.logger.Warn("restore cached jobs", logging.Error(err))
	} else if restored > 0 {
		d.logger.Info("restored cached jobs", logging.Int("count", restored))
	}

	if err := d.reconciler.Run(ctx); err != nil {
		d.logger.Warn("startup reconciliation", logging.Error(err))
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.bus = backend.NewStreamBus(d.ctx, d.cfg, d.logger)
	d.wg.Add(1)
	// Capture locals: Stop nils d.bus/d.ctx, and the goroutine may not be
	// scheduled until after Stop runs.
	busCtx, bus := d.ctx, d.bus
	go func() {
		defer d.wg.Done()
		d.aggregator.Run(busCtx, bus)
	}()

	d.running.Store(true)
	d.logger.Info("clippy daemon started",
		logging.String("lock", d.lockPath),
		logging.String(logging.FieldCorrelationID, d.sessionID))
	return nil
}

// Stop halts event consumption and releases the daemon lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.bus != nil {
		d.bus.Close()
		d.bus = nil
	}
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.ctx = nil
	d.running.Store(false)
	d.logger.Info("clippy daemon stopped")
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	d.watcher.Close()
	if d.cache != nil {
		return d.cache.Close()
	}
	return nil
}

// Store exposes the job store to control surfaces.
func (d *Daemon) Store() *jobs.Store {
	return d.store
}

// Watcher exposes the throttled snapshot observable to control surfaces.
func (d *Daemon) Watcher() *jobs.Watcher {
	return d.watcher
}

// Coordinator exposes the submission pipeline to control surfaces.
func (d *Daemon) Coordinator() *pipeline.Coordinator {
	return d.coordinator
}

// Config returns the active configuration.
func (d *Daemon) Config() *config.Config {
	return d.cfg
}

// Context returns the daemon run context; long-running control operations
// (job submission) attach to it so shutdown cancels them.
func (d *Daemon) Context() context.Context {
	if d.ctx != nil {
		return d.ctx
	}
	return context.Background()
}

// LogPath returns the daemon log file location.
func (d *Daemon) LogPath() string {
	return d.cfg.LogFilePath()
}

// Notifier exposes the push notification service to control surfaces.
func (d *Daemon) Notifier() notifications.Service {
	return d.notifier
}

// Status reports daemon runtime information.
func (d *Daemon) Status() Status {
	return Status{
		Running:   d.running.Load(),
		SessionID: d.sessionID,
		JobStats:  d.store.Stats(),
		CachePath: d.cache.Path(),
		LockPath:  d.lockPath,
	}
}
