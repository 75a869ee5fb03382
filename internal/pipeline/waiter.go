package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"clippy/internal/jobs"
)

// ErrAwaitTimeout reports that a task stayed non-terminal past the
// configured bound.
var ErrAwaitTimeout = errors.New("timed out waiting for task to finish")

// ErrTaskFailed wraps the task's own error message when an awaited task
// reaches the failed status.
var ErrTaskFailed = errors.New("task failed")

// AwaitTask polls the store until the named task reaches a terminal state.
// It returns gone=true with a nil error when the job disappears mid-wait:
// removal is user cancellation, not a fault, and callers stop the pipeline
// silently. A failed task yields an error wrapping ErrTaskFailed; exceeding
// the timeout yields ErrAwaitTimeout. The poll interval bounds how quickly
// cancellation is observed.
func AwaitTask(ctx context.Context, store *jobs.Store, jobID, taskID string, poll, timeout time.Duration) (gone bool, err error) {
	if poll <= 0 {
		poll = 300 * time.Millisecond
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		task, jobExists := store.TaskSnapshot(jobID, taskID)
		if !jobExists || task == nil {
			return true, nil
		}
		switch task.Status {
		case jobs.StatusCompleted:
			return false, nil
		case jobs.StatusFailed:
			if task.Error != "" {
				return false, fmt.Errorf("%w: %s", ErrTaskFailed, task.Error)
			}
			return false, ErrTaskFailed
		}

		if timeout > 0 && time.Now().After(deadline) {
			return false, ErrAwaitTimeout
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-ticker.C:
		}
	}
}
