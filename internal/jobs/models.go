package jobs

import (
	"strings"
	"time"
)

// TaskType identifies one backend operation within a job.
type TaskType string

const (
	TaskDownload         TaskType = "download"
	TaskImport           TaskType = "import"
	TaskFixAspectRatio   TaskType = "fix-aspect-ratio"
	TaskNormalizeAudio   TaskType = "normalize-audio"
	TaskProcessNormalize TaskType = "combined-process-normalize"
	TaskTranscribe       TaskType = "transcribe"
	TaskAnalyze          TaskType = "analyze"
)

var allTaskTypes = []TaskType{
	TaskDownload,
	TaskImport,
	TaskFixAspectRatio,
	TaskNormalizeAudio,
	TaskProcessNormalize,
	TaskTranscribe,
	TaskAnalyze,
}

var taskTypeSet = func() map[TaskType]struct{} {
	set := make(map[TaskType]struct{}, len(allTaskTypes))
	for _, t := range allTaskTypes {
		set[t] = struct{}{}
	}
	return set
}()

// AllTaskTypes returns the ordered list of known task types.
func AllTaskTypes() []TaskType {
	cp := make([]TaskType, len(allTaskTypes))
	copy(cp, allTaskTypes)
	return cp
}

// ParseTaskType converts a string into a known TaskType.
func ParseTaskType(value string) (TaskType, bool) {
	normalized := TaskType(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := taskTypeSet[normalized]
	return normalized, ok
}

// CompletionSignaled reports whether a task type requires an explicit
// completed status event before it may be marked completed. Download and
// import complete only once the backend reports the resolved video
// location, so a bare 100% progress tick leaves them processing.
func (t TaskType) CompletionSignaled() bool {
	return t == TaskDownload || t == TaskImport
}

// RelocatesVideo reports whether completing a task of this type may move
// the underlying video file, requiring a path refresh from the backend.
func (t TaskType) RelocatesVideo() bool {
	switch t {
	case TaskFixAspectRatio, TaskNormalizeAudio, TaskProcessNormalize:
		return true
	default:
		return false
	}
}

// Status represents the lifecycle of a task or, derived, of a whole job.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var statusSet = map[Status]struct{}{
	StatusPending:    {},
	StatusProcessing: {},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// IsTerminal reports whether the status can no longer change.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// DownloadConfig carries the payload for download tasks.
type DownloadConfig struct {
	URL       string `json:"url"`
	OutputDir string `json:"output_dir,omitempty"`
	Quality   string `json:"quality,omitempty"`
}

// AnalysisConfig carries the payload for AI analysis tasks.
type AnalysisConfig struct {
	Provider           string `json:"provider,omitempty"`
	Model              string `json:"model,omitempty"`
	APIKey             string `json:"api_key,omitempty"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

// TranscriptionConfig carries the payload for transcription tasks.
type TranscriptionConfig struct {
	Model    string `json:"model,omitempty"`
	Language string `json:"language,omitempty"`
}

// Task is one child operation within a job. Its ID is assigned at creation
// and stays stable across retries; BackendJobID is assigned by the backend
// on submission and is the sole correlation key for progress events.
type Task struct {
	ID            string               `json:"id"`
	BackendJobID  string               `json:"backend_job_id,omitempty"`
	Type          TaskType             `json:"type"`
	Status        Status               `json:"status"`
	Progress      int                  `json:"progress"`
	Error         string               `json:"error,omitempty"`
	Download      *DownloadConfig      `json:"download,omitempty"`
	Analysis      *AnalysisConfig      `json:"analysis,omitempty"`
	Transcription *TranscriptionConfig `json:"transcription,omitempty"`
}

// SetFailed marks the task failed with a human-readable cause.
func (t *Task) SetFailed(message string) {
	t.Status = StatusFailed
	t.Error = message
}

// SetProgress applies a clamped progress value without touching status.
func (t *Task) SetProgress(percent int) {
	t.Progress = ClampProgress(percent)
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	cp := *t
	if t.Download != nil {
		d := *t.Download
		cp.Download = &d
	}
	if t.Analysis != nil {
		a := *t.Analysis
		cp.Analysis = &a
	}
	if t.Transcription != nil {
		tr := *t.Transcription
		cp.Transcription = &tr
	}
	return &cp
}

// Job is the parent unit of work representing all processing steps for one
// video. Task order is the intended execution order.
type Job struct {
	ID          string     `json:"id"`
	VideoID     string     `json:"video_id,omitempty"`
	VideoPath   string     `json:"video_path"`
	Tasks       []*Task    `json:"tasks"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Expanded    bool       `json:"expanded,omitempty"`
}

// OverallProgress derives the job percentage as the mean of task progress.
func (j *Job) OverallProgress() int {
	if j == nil || len(j.Tasks) == 0 {
		return 0
	}
	total := 0
	for _, task := range j.Tasks {
		total += ClampProgress(task.Progress)
	}
	return total / len(j.Tasks)
}

// OverallStatus derives the job status from its tasks: failed if any task
// failed, completed if all tasks completed, processing if any task is
// processing, pending otherwise.
func (j *Job) OverallStatus() Status {
	if j == nil || len(j.Tasks) == 0 {
		return StatusPending
	}
	completed := 0
	processing := false
	for _, task := range j.Tasks {
		switch task.Status {
		case StatusFailed:
			return StatusFailed
		case StatusCompleted:
			completed++
		case StatusProcessing:
			processing = true
		}
	}
	if completed == len(j.Tasks) {
		return StatusCompleted
	}
	if processing {
		return StatusProcessing
	}
	return StatusPending
}

// Task returns the task with the given id, or nil.
func (j *Job) Task(taskID string) *Task {
	if j == nil {
		return nil
	}
	for _, task := range j.Tasks {
		if task.ID == taskID {
			return task
		}
	}
	return nil
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	cp.Tasks = make([]*Task, len(j.Tasks))
	for i, task := range j.Tasks {
		cp.Tasks[i] = task.Clone()
	}
	if j.CompletedAt != nil {
		done := *j.CompletedAt
		cp.CompletedAt = &done
	}
	return &cp
}

// ClampProgress bounds a percent value to [0, 100]. Regressions are applied
// as-is; only out-of-range values are corrected.
func ClampProgress(percent int) int {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}
