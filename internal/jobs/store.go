package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"clippy/internal/logging"
)

// ErrNotFound is returned when a job or task id does not resolve.
var ErrNotFound = errors.New("job not found")

// JobSpec describes a job to be created with all tasks pending.
type JobSpec struct {
	VideoID   string
	VideoPath string
	Tasks     []TaskSpec
}

// TaskSpec describes one task within a JobSpec.
type TaskSpec struct {
	Type          TaskType
	Download      *DownloadConfig
	Analysis      *AnalysisConfig
	Transcription *TranscriptionConfig
}

// TaskRef identifies a task within a job.
type TaskRef struct {
	JobID  string
	TaskID string
	Type   TaskType
}

// StatusExtra carries resolved video identity delivered with a status event.
type StatusExtra struct {
	VideoID   string
	VideoPath string
}

// ApplyResult reports what an event application changed.
type ApplyResult struct {
	Matched       []TaskRef
	Completed     []TaskRef
	TerminalJobs  []*Job
	StatusChanged bool
}

// Store owns all job state. Every mutation happens under one mutex, is
// mirrored best-effort into the cache, and publishes a snapshot through the
// watcher (throttled for bare progress ticks, immediate otherwise).
type Store struct {
	mu        sync.Mutex
	jobs      map[string]*Job
	byBackend map[string][]TaskRef

	cache   *Cache
	watcher *Watcher
	logger  *slog.Logger
	seq     uint64
}

// NewStore constructs a store. The cache and watcher may be nil (tests,
// read-only tooling); a nil logger falls back to a no-op logger.
func NewStore(cache *Cache, watcher *Watcher, logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Store{
		jobs:      make(map[string]*Job),
		byBackend: make(map[string][]TaskRef),
		cache:     cache,
		watcher:   watcher,
		logger:    logger.With(logging.String(logging.FieldComponent, "jobstore")),
	}
}

// LoadCached restores jobs persisted by a previous process into the
// in-memory map and rebuilds the backend correlation index. It returns the
// number of jobs restored. Cache read failures leave the store empty and
// are reported to the caller so startup can log and continue.
func (s *Store) LoadCached(ctx context.Context) (int, error) {
	if s.cache == nil {
		return 0, nil
	}
	restored, err := s.cache.LoadJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load cached jobs: %w", err)
	}

	s.mu.Lock()
	for _, job := range restored {
		s.jobs[job.ID] = job
		for _, task := range job.Tasks {
			if task.BackendJobID != "" {
				s.byBackend[task.BackendJobID] = append(s.byBackend[task.BackendJobID], TaskRef{
					JobID:  job.ID,
					TaskID: task.ID,
					Type:   task.Type,
				})
			}
		}
	}
	count := len(s.jobs)
	s.mu.Unlock()
	return count, nil
}

// AddJob constructs a job with all tasks pending, persists it, and returns
// a copy of the new job.
func (s *Store) AddJob(ctx context.Context, spec JobSpec) (*Job, error) {
	if len(spec.Tasks) == 0 {
		return nil, errors.New("job requires at least one task")
	}
	for i, taskSpec := range spec.Tasks {
		if _, ok := taskTypeSet[taskSpec.Type]; !ok {
			return nil, fmt.Errorf("unknown task type %q", taskSpec.Type)
		}
		if taskSpec.Type == TaskDownload && (taskSpec.Download == nil || taskSpec.Download.URL == "") {
			return nil, fmt.Errorf("task %d: download requires a source URL", i+1)
		}
	}
	if spec.VideoPath == "" {
		first := spec.Tasks[0].Type
		if first != TaskDownload && first != TaskImport {
			return nil, errors.New("job requires a video path unless it starts with download or import")
		}
	}

	s.mu.Lock()
	s.seq++
	job := &Job{
		ID:        fmt.Sprintf("job-%d-%04d", time.Now().UnixMilli(), s.seq),
		VideoID:   spec.VideoID,
		VideoPath: spec.VideoPath,
		CreatedAt: time.Now().UTC(),
	}
	for i, taskSpec := range spec.Tasks {
		job.Tasks = append(job.Tasks, &Task{
			ID:            fmt.Sprintf("%s-%02d", taskSpec.Type, i+1),
			Type:          taskSpec.Type,
			Status:        StatusPending,
			Download:      taskSpec.Download,
			Analysis:      taskSpec.Analysis,
			Transcription: taskSpec.Transcription,
		})
	}
	s.jobs[job.ID] = job
	s.persistLocked(ctx, job)
	s.publishLocked(true)
	result := job.Clone()
	s.mu.Unlock()
	return result, nil
}

// Job returns a copy of the job with the given id.
func (s *Store) Job(id string) (*Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// List returns copies of all jobs ordered by creation time.
func (s *Store) List() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]*Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		items = append(items, job.Clone())
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items
}

// Stats returns a count of jobs grouped by derived status.
func (s *Store) Stats() map[Status]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := make(map[Status]int)
	for _, job := range s.jobs {
		stats[job.OverallStatus()]++
	}
	return stats
}

// TaskSnapshot returns a copy of the named task. The second return reports
// whether the job still exists, which the completion waiter uses to
// distinguish removal from lookup failure.
func (s *Store) TaskSnapshot(jobID, taskID string) (*Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, false
	}
	return job.Task(taskID).Clone(), true
}

// Remove deletes a job. Subsequent events bearing its backend ids fall into
// the unknown-id path and are dropped.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	delete(s.jobs, id)
	s.dropBackendRefsLocked(job)
	s.forgetLocked(ctx, id)
	s.publishLocked(true)
	return true
}

// Clear removes all jobs and returns how many were dropped.
func (s *Store) Clear(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := len(s.jobs)
	s.jobs = make(map[string]*Job)
	s.byBackend = make(map[string][]TaskRef)
	if s.cache != nil {
		if err := s.cache.DeleteAll(ctx); err != nil {
			s.logger.Warn("clear job cache", logging.Error(err))
		}
	}
	s.publishLocked(true)
	return removed
}

// ClearCompleted removes all jobs whose derived status is completed.
func (s *Store) ClearCompleted(ctx context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, job := range s.jobs {
		if job.OverallStatus() != StatusCompleted {
			continue
		}
		delete(s.jobs, id)
		s.dropBackendRefsLocked(job)
		s.forgetLocked(ctx, id)
		removed++
	}
	if removed > 0 {
		s.publishLocked(true)
	}
	return removed
}

// ToggleExpansion flips the UI expansion flag on a job.
func (s *Store) ToggleExpansion(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return false
	}
	job.Expanded = !job.Expanded
	s.persistLocked(ctx, job)
	s.publishLocked(true)
	return true
}

// SetVideo updates the resolved video identity on a job. Empty fields are
// left untouched.
func (s *Store) SetVideo(ctx context.Context, jobID, videoID, videoPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if videoID != "" {
		job.VideoID = videoID
	}
	if videoPath != "" {
		job.VideoPath = videoPath
	}
	s.persistLocked(ctx, job)
	s.publishLocked(true)
	return nil
}

// BindBackendJob records the backend identifier on the named tasks and
// marks them processing. The same backend id may be bound to several tasks
// when the submitter fuses them into one backend operation. A task's
// binding is immutable once set.
func (s *Store) BindBackendJob(ctx context.Context, jobID string, taskIDs []string, backendID string) error {
	if backendID == "" {
		return errors.New("backend job id is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	for _, taskID := range taskIDs {
		task := job.Task(taskID)
		if task == nil {
			return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		if task.BackendJobID != "" && task.BackendJobID != backendID {
			return fmt.Errorf("task %s already bound to backend job %s", taskID, task.BackendJobID)
		}
	}
	for _, taskID := range taskIDs {
		task := job.Task(taskID)
		if task.BackendJobID == backendID {
			continue
		}
		task.BackendJobID = backendID
		task.Status = StatusProcessing
		s.byBackend[backendID] = append(s.byBackend[backendID], TaskRef{JobID: jobID, TaskID: taskID, Type: task.Type})
	}
	s.persistLocked(ctx, job)
	s.publishLocked(true)
	return nil
}

// ResetTask returns a task to pending for an explicit caller-driven retry,
// dropping its backend binding, progress, and error.
func (s *Store) ResetTask(ctx context.Context, jobID, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	task := job.Task(taskID)
	if task == nil {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	if task.BackendJobID != "" {
		s.byBackend[task.BackendJobID] = removeRef(s.byBackend[task.BackendJobID], jobID, taskID)
		if len(s.byBackend[task.BackendJobID]) == 0 {
			delete(s.byBackend, task.BackendJobID)
		}
		task.BackendJobID = ""
	}
	task.Status = StatusPending
	task.Progress = 0
	task.Error = ""
	job.CompletedAt = nil
	s.persistLocked(ctx, job)
	s.publishLocked(true)
	return nil
}

// FailTask marks a task failed with a human-readable cause. Used for
// submission errors and await timeouts, which never retry automatically.
func (s *Store) FailTask(ctx context.Context, jobID, taskID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	task := job.Task(taskID)
	if task == nil {
		return fmt.Errorf("task %s: %w", taskID, ErrNotFound)
	}
	task.SetFailed(message)
	s.finalizeLocked(job)
	s.persistLocked(ctx, job)
	s.publishLocked(true)
	return nil
}

func (s *Store) dropBackendRefsLocked(job *Job) {
	for _, task := range job.Tasks {
		if task.BackendJobID == "" {
			continue
		}
		s.byBackend[task.BackendJobID] = removeRef(s.byBackend[task.BackendJobID], job.ID, task.ID)
		if len(s.byBackend[task.BackendJobID]) == 0 {
			delete(s.byBackend, task.BackendJobID)
		}
	}
}

// finalizeLocked stamps CompletedAt the first time a job reaches a terminal
// status. The terminal state is entered exactly once and never reverts.
func (s *Store) finalizeLocked(job *Job) {
	if job.CompletedAt == nil && job.OverallStatus().IsTerminal() {
		now := time.Now().UTC()
		job.CompletedAt = &now
	}
}

func (s *Store) persistLocked(ctx context.Context, job *Job) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveJob(ctx, job); err != nil {
		s.logger.Warn("persist job", logging.String(logging.FieldJobID, job.ID), logging.Error(err))
	}
}

func (s *Store) forgetLocked(ctx context.Context, jobID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteJob(ctx, jobID); err != nil {
		s.logger.Warn("forget cached job", logging.String(logging.FieldJobID, jobID), logging.Error(err))
	}
}

func (s *Store) publishLocked(immediate bool) {
	if s.watcher == nil {
		return
	}
	snapshot := make(Snapshot, len(s.jobs))
	for id, job := range s.jobs {
		snapshot[id] = job.Clone()
	}
	s.watcher.Publish(snapshot, immediate)
}

func removeRef(refs []TaskRef, jobID, taskID string) []TaskRef {
	kept := refs[:0]
	for _, ref := range refs {
		if ref.JobID == jobID && ref.TaskID == taskID {
			continue
		}
		kept = append(kept, ref)
	}
	return kept
}
