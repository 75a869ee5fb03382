package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"clippy/internal/backend"
	"clippy/internal/config"
	"clippy/internal/jobs"
	"clippy/internal/logging"
	"clippy/internal/notifications"
)

// ErrSubmissionInFlight reports a duplicate Submit call for a job whose
// pipeline is still running.
var ErrSubmissionInFlight = errors.New("job submission already in flight")

// Coordinator submits jobs to the backend and sequences their tasks.
type Coordinator struct {
	store    *jobs.Store
	client   backend.Client
	logger   *slog.Logger
	notifier notifications.Service

	pollInterval time.Duration
	awaitTimeout time.Duration
	batch        bool

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewCoordinator constructs a coordinator from configuration.
func NewCoordinator(cfg *config.Config, store *jobs.Store, client backend.Client, notifier notifications.Service, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if notifier == nil {
		notifier = notifications.NewService(cfg)
	}
	return &Coordinator{
		store:        store,
		client:       client,
		logger:       logger.With(logging.String(logging.FieldComponent, "pipeline")),
		notifier:     notifier,
		pollInterval: time.Duration(cfg.Workflow.AwaitPollInterval) * time.Millisecond,
		awaitTimeout: time.Duration(cfg.Workflow.AwaitTimeout) * time.Second,
		batch:        cfg.Workflow.BatchSubmission,
		inflight:     make(map[string]struct{}),
	}
}

// Submit drives every pending task of a job through the backend. In the
// sequential mode each backend operation is awaited before the next is
// submitted, so a dependent task never starts before its predecessor
// finishes. Submission and timeout errors mark the affected task failed
// and stop the pipeline; later tasks are not attempted and nothing is
// retried automatically. Removing the job mid-wait ends the pipeline
// silently.
func (c *Coordinator) Submit(ctx context.Context, jobID string) error {
	if err := c.markInflight(jobID); err != nil {
		return err
	}
	defer c.clearInflight(jobID)

	job, ok := c.store.Job(jobID)
	if !ok {
		return jobs.ErrNotFound
	}

	logger := c.logger.With(logging.String(logging.FieldJobID, jobID))
	units := planUnits(job)

	if c.batch {
		return c.submitBatch(ctx, jobID, units, logger)
	}

	for _, unit := range units {
		// Refetch: an earlier task may have relocated the video or the
		// user may have removed the job.
		job, ok := c.store.Job(jobID)
		if !ok {
			logger.Info("job removed during submission")
			return nil
		}
		if unitTerminal(job, unit) {
			continue
		}

		if err := c.runUnit(ctx, jobID, job, unit, logger); err != nil {
			if errors.Is(err, errJobGone) {
				return nil
			}
			// Event-driven failures are already announced by the
			// aggregator; only failures recorded here need a push.
			if !errors.Is(err, ErrTaskFailed) {
				c.notifyFailure(job.VideoPath, err)
			}
			return err
		}
	}
	return nil
}

// errJobGone is an internal signal that the job vanished mid-pipeline.
var errJobGone = errors.New("job removed")

func (c *Coordinator) runUnit(ctx context.Context, jobID string, job *jobs.Job, unit submissionUnit, logger *slog.Logger) error {
	result, err := c.submitUnit(ctx, job, unit)
	if err != nil {
		cause := submissionFailure(unit.kind, err)
		if failErr := c.store.FailTask(ctx, jobID, unit.taskIDs[0], cause); failErr != nil && !errors.Is(failErr, jobs.ErrNotFound) {
			logger.Warn("record submission failure", logging.Error(failErr))
		}
		return fmt.Errorf("submit %s: %w", unit.kind, err)
	}

	if err := c.store.BindBackendJob(ctx, jobID, unit.taskIDs, result.BackendJobID); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			return errJobGone
		}
		return fmt.Errorf("bind backend job: %w", err)
	}
	if result.VideoID != "" || result.VideoPath != "" {
		if err := c.store.SetVideo(ctx, jobID, result.VideoID, result.VideoPath); err != nil && !errors.Is(err, jobs.ErrNotFound) {
			logger.Warn("apply resolved video", logging.Error(err))
		}
	}
	logger.Info("submitted backend operation",
		logging.String("kind", string(unit.kind)),
		logging.String(logging.FieldBackendJobID, result.BackendJobID))

	for _, taskID := range unit.taskIDs {
		gone, err := AwaitTask(ctx, c.store, jobID, taskID, c.pollInterval, c.awaitTimeout)
		if gone {
			logger.Info("job removed while waiting", logging.String(logging.FieldTaskID, taskID))
			return errJobGone
		}
		if errors.Is(err, ErrAwaitTimeout) {
			cause := fmt.Sprintf("timed out after %s waiting for %s", c.awaitTimeout, unit.kind)
			if failErr := c.store.FailTask(ctx, jobID, taskID, cause); failErr != nil && !errors.Is(failErr, jobs.ErrNotFound) {
				logger.Warn("record timeout failure", logging.Error(failErr))
			}
			return fmt.Errorf("await %s: %w", unit.kind, err)
		}
		if err != nil {
			return fmt.Errorf("await %s: %w", unit.kind, err)
		}
	}
	return nil
}

// submitBatch hands every unit to the backend up front; completion and
// ordering are then the backend queue's responsibility and all state
// resolution happens through event correlation.
func (c *Coordinator) submitBatch(ctx context.Context, jobID string, units []submissionUnit, logger *slog.Logger) error {
	for _, unit := range units {
		job, ok := c.store.Job(jobID)
		if !ok {
			logger.Info("job removed during submission")
			return nil
		}
		if unitTerminal(job, unit) {
			continue
		}
		result, err := c.submitUnit(ctx, job, unit)
		if err != nil {
			cause := submissionFailure(unit.kind, err)
			if failErr := c.store.FailTask(ctx, jobID, unit.taskIDs[0], cause); failErr != nil && !errors.Is(failErr, jobs.ErrNotFound) {
				logger.Warn("record submission failure", logging.Error(failErr))
			}
			c.notifyFailure(job.VideoPath, err)
			return fmt.Errorf("submit %s: %w", unit.kind, err)
		}
		if err := c.store.BindBackendJob(ctx, jobID, unit.taskIDs, result.BackendJobID); err != nil {
			if errors.Is(err, jobs.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("bind backend job: %w", err)
		}
		if result.VideoID != "" || result.VideoPath != "" {
			if err := c.store.SetVideo(ctx, jobID, result.VideoID, result.VideoPath); err != nil && !errors.Is(err, jobs.ErrNotFound) {
				logger.Warn("apply resolved video", logging.Error(err))
			}
		}
		logger.Info("submitted backend operation",
			logging.String("kind", string(unit.kind)),
			logging.String(logging.FieldBackendJobID, result.BackendJobID))
	}
	return nil
}

// Retry resets a failed or stuck task and resubmits it as a standalone
// backend operation. Retries are always an explicit caller action.
func (c *Coordinator) Retry(ctx context.Context, jobID, taskID string) error {
	if err := c.markInflight(jobID); err != nil {
		return err
	}
	defer c.clearInflight(jobID)

	if err := c.store.ResetTask(ctx, jobID, taskID); err != nil {
		return err
	}
	job, ok := c.store.Job(jobID)
	if !ok {
		return nil
	}
	task := job.Task(taskID)
	if task == nil {
		return jobs.ErrNotFound
	}

	logger := c.logger.With(
		logging.String(logging.FieldJobID, jobID),
		logging.String(logging.FieldTaskID, taskID))

	unit := submissionUnit{kind: task.Type, taskIDs: []string{taskID}}
	if err := c.runUnit(ctx, jobID, job, unit, logger); err != nil {
		if errors.Is(err, errJobGone) {
			return nil
		}
		if !errors.Is(err, ErrTaskFailed) {
			c.notifyFailure(job.VideoPath, err)
		}
		return err
	}
	return nil
}

func (c *Coordinator) notifyFailure(videoPath string, cause error) {
	notifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.notifier.NotifyJobFailed(notifyCtx, videoPath, cause.Error()); err != nil {
		c.logger.Warn("failure notification", logging.Error(err))
	}
}

func (c *Coordinator) markInflight(jobID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[jobID]; busy {
		return ErrSubmissionInFlight
	}
	c.inflight[jobID] = struct{}{}
	return nil
}

func (c *Coordinator) clearInflight(jobID string) {
	c.mu.Lock()
	delete(c.inflight, jobID)
	c.mu.Unlock()
}

func unitTerminal(job *jobs.Job, unit submissionUnit) bool {
	for _, taskID := range unit.taskIDs {
		task := job.Task(taskID)
		if task == nil || !task.Status.IsTerminal() {
			return false
		}
	}
	return true
}
