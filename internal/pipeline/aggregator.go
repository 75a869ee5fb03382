package pipeline

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"clippy/internal/backend"
	"clippy/internal/jobs"
	"clippy/internal/logging"
	"clippy/internal/notifications"
)

// Aggregator consumes backend events and applies them to the store. It is
// the only writer on the event side; every entry point converts anomalies
// into logged no-ops so a malformed or stale event can never crash the
// daemon or surface an error to the backend.
type Aggregator struct {
	store    *jobs.Store
	client   backend.Client
	logger   *slog.Logger
	notifier notifications.Service
	sampler  *logging.ProgressSampler

	wg sync.WaitGroup
}

// NewAggregator constructs an aggregator. The client is used only for the
// asynchronous video-path refresh after relocating tasks complete.
func NewAggregator(store *jobs.Store, client backend.Client, notifier notifications.Service, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Aggregator{
		store:    store,
		client:   client,
		logger:   logger.With(logging.String(logging.FieldComponent, "aggregator")),
		notifier: notifier,
		sampler:  logging.NewProgressSampler(10),
	}
}

// Run consumes the bus until it closes or the context is canceled, then
// waits for in-flight refresh goroutines.
func (a *Aggregator) Run(ctx context.Context, bus backend.Bus) {
	defer a.wg.Wait()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-bus.Events():
			if !ok {
				return
			}
			a.handle(ctx, event)
		}
	}
}

func (a *Aggregator) handle(ctx context.Context, event backend.Event) {
	switch event.Kind {
	case backend.EventProgress:
		a.onProgress(ctx, event.BackendJobID, event.Percent)
	case backend.EventFailure:
		a.onFailure(ctx, event.BackendJobID, event.Message)
	case backend.EventStatus:
		a.onStatus(ctx, event)
	default:
		a.logger.Debug("unrecognized event kind", logging.String("kind", string(event.Kind)))
	}
}

func (a *Aggregator) onProgress(ctx context.Context, backendID string, percent float64) {
	rounded := int(math.Round(percent))
	result := a.store.ApplyProgress(ctx, backendID, rounded)
	if a.sampler.ShouldLog(percent, backendID) {
		a.logger.Debug("progress event",
			logging.String(logging.FieldBackendJobID, backendID),
			logging.Int("percent", rounded),
			logging.Int("tasks", len(result.Matched)))
	}
	a.afterApply(result)
}

func (a *Aggregator) onFailure(ctx context.Context, backendID, message string) {
	result := a.store.ApplyFailure(ctx, backendID, message)
	a.logger.Info("failure event",
		logging.String(logging.FieldBackendJobID, backendID),
		logging.String("message", message),
		logging.Int("tasks", len(result.Matched)))
	a.afterApply(result)
}

func (a *Aggregator) onStatus(ctx context.Context, event backend.Event) {
	status, ok := jobs.ParseStatus(event.Status)
	if !ok {
		a.logger.Warn("status event with unknown status",
			logging.String(logging.FieldBackendJobID, event.BackendJobID),
			logging.String("status", event.Status))
		return
	}
	result := a.store.ApplyStatus(ctx, event.BackendJobID, status, jobs.StatusExtra{
		VideoID:   event.VideoID,
		VideoPath: event.VideoPath,
	})
	a.logger.Info("status event",
		logging.String(logging.FieldBackendJobID, event.BackendJobID),
		logging.String("status", event.Status),
		logging.Int("tasks", len(result.Matched)))
	a.afterApply(result)
}

func (a *Aggregator) afterApply(result jobs.ApplyResult) {
	for _, ref := range result.Completed {
		if ref.Type.RelocatesVideo() {
			a.wg.Add(1)
			go a.refreshVideoPath(ref.JobID)
		}
	}
	for _, job := range result.TerminalJobs {
		a.notifyTerminal(job)
	}
}

// refreshVideoPath re-resolves a job's video location after a processing
// task may have moved the file. It runs detached from the aggregation call
// with its own deadline; failures are logged and never fail the task.
func (a *Aggregator) refreshVideoPath(jobID string) {
	defer a.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	job, ok := a.store.Job(jobID)
	if !ok {
		return
	}
	path, err := a.client.ResolveVideoPath(ctx, job.VideoID, job.VideoPath)
	if err != nil {
		a.logger.Warn("refresh video path",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
		return
	}
	if path == "" || path == job.VideoPath {
		return
	}
	if err := a.store.SetVideo(ctx, jobID, "", path); err != nil {
		a.logger.Warn("apply refreshed video path",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
	}
}

func (a *Aggregator) notifyTerminal(job *jobs.Job) {
	if a.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	switch job.OverallStatus() {
	case jobs.StatusCompleted:
		err = a.notifier.NotifyJobCompleted(ctx, job.VideoPath)
	case jobs.StatusFailed:
		err = a.notifier.NotifyJobFailed(ctx, job.VideoPath, firstTaskError(job))
	}
	if err != nil {
		a.logger.Warn("terminal notification",
			logging.String(logging.FieldJobID, job.ID),
			logging.Error(err))
	}
}

func firstTaskError(job *jobs.Job) string {
	for _, task := range job.Tasks {
		if task.Status == jobs.StatusFailed && task.Error != "" {
			return task.Error
		}
	}
	return ""
}
