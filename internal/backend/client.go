package backend

import "context"

// DownloadRequest asks the backend to fetch a remote video.
type DownloadRequest struct {
	URL       string `json:"url"`
	OutputDir string `json:"output_dir,omitempty"`
	Quality   string `json:"quality,omitempty"`
}

// ImportRequest asks the backend to ingest a local file into its library.
type ImportRequest struct {
	SourcePath string `json:"source_path"`
}

// ProcessRequest asks the backend to transform a video in place. When both
// flags are set the backend runs a single combined operation.
type ProcessRequest struct {
	VideoPath      string `json:"video_path"`
	FixAspectRatio bool   `json:"fix_aspect_ratio,omitempty"`
	NormalizeAudio bool   `json:"normalize_audio,omitempty"`
}

// TranscribeRequest asks the backend to transcribe a video's audio.
type TranscribeRequest struct {
	VideoPath string `json:"video_path"`
	Model     string `json:"model,omitempty"`
	Language  string `json:"language,omitempty"`
}

// AnalyzeRequest asks the backend to run AI analysis over a video.
type AnalyzeRequest struct {
	VideoPath          string `json:"video_path"`
	Provider           string `json:"provider,omitempty"`
	Model              string `json:"model,omitempty"`
	APIKey             string `json:"api_key,omitempty"`
	CustomInstructions string `json:"custom_instructions,omitempty"`
}

// SubmitResult carries the backend-assigned job identifier. Download and
// import submissions may resolve the video identity synchronously; more
// commonly it arrives later via a status event.
type SubmitResult struct {
	BackendJobID string `json:"job_id"`
	VideoID      string `json:"video_id,omitempty"`
	VideoPath    string `json:"video_path,omitempty"`
}

// QueueJob is one entry of the backend's authoritative queue snapshot.
type QueueJob struct {
	ID       string  `json:"id"`
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
}

// Client is the submission surface of the processing backend.
type Client interface {
	SubmitDownload(ctx context.Context, req DownloadRequest) (SubmitResult, error)
	SubmitImport(ctx context.Context, req ImportRequest) (SubmitResult, error)
	SubmitProcess(ctx context.Context, req ProcessRequest) (SubmitResult, error)
	SubmitTranscribe(ctx context.Context, req TranscribeRequest) (SubmitResult, error)
	SubmitAnalyze(ctx context.Context, req AnalyzeRequest) (SubmitResult, error)
	// QueueSnapshot returns the backend's view of in-flight and recently
	// terminal jobs, used only by startup reconciliation.
	QueueSnapshot(ctx context.Context) ([]QueueJob, error)
	// ResolveVideoPath returns the authoritative current location of a
	// video, which processing operations may have moved.
	ResolveVideoPath(ctx context.Context, videoID, currentPath string) (string, error)
}
