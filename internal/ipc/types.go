package ipc

import "time"

// TaskView is the wire representation of a single task.
type TaskView struct {
	ID           string
	BackendJobID string
	Type         string
	Status       string
	Progress     int
	Error        string
}

// JobView is the wire representation of a job and its tasks.
type JobView struct {
	ID          string
	VideoID     string
	VideoPath   string
	Status      string
	Progress    int
	CreatedAt   time.Time
	CompletedAt *time.Time
	Expanded    bool
	Tasks       []TaskView
}

// DownloadOptions carries per-task download parameters.
type DownloadOptions struct {
	URL       string
	OutputDir string
	Quality   string
}

// AnalysisOptions carries per-task analysis parameters.
type AnalysisOptions struct {
	Provider           string
	Model              string
	APIKey             string
	CustomInstructions string
}

// TranscriptionOptions carries per-task transcription parameters.
type TranscriptionOptions struct {
	Model    string
	Language string
}

// TaskRequest describes one task to create within a job.
type TaskRequest struct {
	Type          string
	Download      *DownloadOptions
	Analysis      *AnalysisOptions
	Transcription *TranscriptionOptions
}

// AddJobRequest creates a job; when Submit is set the daemon starts
// working the job immediately.
type AddJobRequest struct {
	VideoID   string
	VideoPath string
	Tasks     []TaskRequest
	Submit    bool
}

// AddJobResponse reports the created job.
type AddJobResponse struct {
	Job       JobView
	Submitted bool
}

// SubmitRequest hands an existing job to the backend.
type SubmitRequest struct {
	JobID string
}

// SubmitResponse reports whether the submission was accepted.
type SubmitResponse struct {
	Accepted bool
	Message  string
}

// ListRequest returns jobs, optionally filtered by overall status.
type ListRequest struct {
	Statuses []string
}

// ListResponse carries the matching jobs ordered by creation time.
type ListResponse struct {
	Jobs []JobView
}

// DescribeRequest returns one job with full task detail.
type DescribeRequest struct {
	JobID string
}

// DescribeResponse carries the described job.
type DescribeResponse struct {
	Job JobView
}

// RemoveRequest removes a job from tracking.
type RemoveRequest struct {
	JobID string
}

// RemoveResponse reports whether the job existed.
type RemoveResponse struct {
	Removed bool
}

// ClearRequest removes tracked jobs; CompletedOnly limits removal to
// jobs whose every task finished.
type ClearRequest struct {
	CompletedOnly bool
}

// ClearResponse reports how many jobs were removed.
type ClearResponse struct {
	Removed int
}

// RetryRequest re-queues a failed task.
type RetryRequest struct {
	JobID  string
	TaskID string
}

// RetryResponse reports whether the retry was accepted.
type RetryResponse struct {
	Accepted bool
	Message  string
}

// ToggleRequest flips a job's expanded display flag.
type ToggleRequest struct {
	JobID string
}

// ToggleResponse reports whether the job existed.
type ToggleResponse struct {
	Toggled bool
}

// StatusRequest retrieves daemon runtime information.
type StatusRequest struct{}

// StatusResponse carries daemon runtime information.
type StatusResponse struct {
	Running   bool
	SessionID string
	JobStats  map[string]int
	CachePath string
	LockPath  string
	PID       int
}

// WatchRequest long-polls the daemon's job snapshot stream. Cursor is the
// sequence number of the last snapshot the caller saw (zero for none);
// the call returns as soon as a newer snapshot exists, or empty after
// WaitMillis without one.
type WatchRequest struct {
	Cursor     uint64
	WaitMillis int
}

// WatchResponse carries the next throttled snapshot. Changed is false when
// the wait expired with no new state; the caller re-polls with the same
// cursor.
type WatchResponse struct {
	Changed bool
	Cursor  uint64
	Jobs    []JobView
}

// LogTailRequest reads daemon log lines. A negative Offset asks for the
// last Limit lines; Follow waits up to WaitMillis for new output.
type LogTailRequest struct {
	Offset     int64
	Limit      int
	Follow     bool
	WaitMillis int
}

// LogTailResponse carries log lines and the offset to resume from.
type LogTailResponse struct {
	Lines  []string
	Offset int64
}

// TestNotificationRequest triggers a notification delivery test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the outcome of the test.
type TestNotificationResponse struct {
	Sent    bool
	Message string
}
