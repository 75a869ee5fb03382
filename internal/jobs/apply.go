package jobs

import (
	"context"

	"clippy/internal/logging"
)

// ApplyProgress locates every task bound to the backend id and applies the
// clamped progress value. Tasks whose type requires an explicit completion
// signal stay processing even at 100%; all others complete at 100%. Events
// for unknown backend ids match nothing and change no state. Jobs already
// in a terminal status ignore further events.
func (s *Store) ApplyProgress(ctx context.Context, backendID string, percent int) ApplyResult {
	percent = ClampProgress(percent)

	s.mu.Lock()
	defer s.mu.Unlock()

	var result ApplyResult
	for _, ref := range s.byBackend[backendID] {
		job, ok := s.jobs[ref.JobID]
		if !ok {
			continue
		}
		if job.OverallStatus().IsTerminal() {
			continue
		}
		task := job.Task(ref.TaskID)
		if task == nil {
			continue
		}
		result.Matched = append(result.Matched, ref)

		task.SetProgress(percent)
		if percent >= 100 && !task.Type.CompletionSignaled() {
			if task.Status != StatusCompleted {
				task.Status = StatusCompleted
				result.Completed = append(result.Completed, ref)
				result.StatusChanged = true
			}
		} else if task.Status != StatusCompleted {
			if task.Status != StatusProcessing {
				result.StatusChanged = true
			}
			task.Status = StatusProcessing
		}

		wasTerminal := job.CompletedAt != nil
		s.finalizeLocked(job)
		if !wasTerminal && job.CompletedAt != nil {
			result.TerminalJobs = append(result.TerminalJobs, job.Clone())
		}
		s.persistLocked(ctx, job)
	}

	if len(result.Matched) == 0 {
		s.logger.Debug("progress event for unknown backend job",
			logging.String(logging.FieldBackendJobID, backendID),
			logging.Int("percent", percent))
		return result
	}
	s.publishLocked(result.StatusChanged)
	return result
}

// ApplyFailure marks every task bound to the backend id failed with the
// given message. Failures are never retried automatically.
func (s *Store) ApplyFailure(ctx context.Context, backendID, message string) ApplyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result ApplyResult
	for _, ref := range s.byBackend[backendID] {
		job, ok := s.jobs[ref.JobID]
		if !ok {
			continue
		}
		if job.OverallStatus().IsTerminal() {
			continue
		}
		task := job.Task(ref.TaskID)
		if task == nil {
			continue
		}
		result.Matched = append(result.Matched, ref)
		task.SetFailed(message)
		result.StatusChanged = true

		wasTerminal := job.CompletedAt != nil
		s.finalizeLocked(job)
		if !wasTerminal && job.CompletedAt != nil {
			result.TerminalJobs = append(result.TerminalJobs, job.Clone())
		}
		s.persistLocked(ctx, job)
	}

	if len(result.Matched) == 0 {
		s.logger.Debug("failure event for unknown backend job",
			logging.String(logging.FieldBackendJobID, backendID),
			logging.String("message", message))
		return result
	}
	s.publishLocked(true)
	return result
}

// ApplyStatus handles explicit status events. A completed status finishes
// matched tasks regardless of type (this is how download and import confirm
// completion) and applies any resolved video identity to the owning job
// before the pipeline submits the next dependent task.
func (s *Store) ApplyStatus(ctx context.Context, backendID string, status Status, extra StatusExtra) ApplyResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result ApplyResult
	for _, ref := range s.byBackend[backendID] {
		job, ok := s.jobs[ref.JobID]
		if !ok {
			continue
		}
		if job.OverallStatus().IsTerminal() {
			continue
		}
		task := job.Task(ref.TaskID)
		if task == nil {
			continue
		}
		result.Matched = append(result.Matched, ref)

		if extra.VideoID != "" {
			job.VideoID = extra.VideoID
		}
		if extra.VideoPath != "" {
			job.VideoPath = extra.VideoPath
		}

		switch status {
		case StatusCompleted:
			if task.Status != StatusCompleted {
				task.Status = StatusCompleted
				task.Progress = 100
				result.Completed = append(result.Completed, ref)
				result.StatusChanged = true
			}
		case StatusFailed:
			task.SetFailed("backend reported failure")
			result.StatusChanged = true
		case StatusProcessing:
			if task.Status == StatusPending {
				task.Status = StatusProcessing
				result.StatusChanged = true
			}
		}

		wasTerminal := job.CompletedAt != nil
		s.finalizeLocked(job)
		if !wasTerminal && job.CompletedAt != nil {
			result.TerminalJobs = append(result.TerminalJobs, job.Clone())
		}
		s.persistLocked(ctx, job)
	}

	if len(result.Matched) == 0 {
		s.logger.Debug("status event for unknown backend job",
			logging.String(logging.FieldBackendJobID, backendID),
			logging.String("status", string(status)))
		return result
	}
	s.publishLocked(true)
	return result
}
