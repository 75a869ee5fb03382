package pipeline

import (
	"context"
	"fmt"

	"clippy/internal/backend"
	"clippy/internal/jobs"
)

// submissionUnit is one backend operation covering one or more tasks. The
// aspect-ratio fix and audio normalization tasks of a job are fused into a
// single combined unit; every other task maps one-to-one.
type submissionUnit struct {
	kind    jobs.TaskType
	taskIDs []string
}

// planUnits walks the job's tasks in execution order and groups them into
// backend operations. The combined unit takes the queue position of
// whichever of its two tasks comes first.
func planUnits(job *jobs.Job) []submissionUnit {
	var fixAspect, normalize *jobs.Task
	for _, task := range job.Tasks {
		switch task.Type {
		case jobs.TaskFixAspectRatio:
			fixAspect = task
		case jobs.TaskNormalizeAudio:
			normalize = task
		}
	}
	combine := fixAspect != nil && normalize != nil

	var units []submissionUnit
	combined := false
	for _, task := range job.Tasks {
		if combine && (task.Type == jobs.TaskFixAspectRatio || task.Type == jobs.TaskNormalizeAudio) {
			if combined {
				continue
			}
			combined = true
			units = append(units, submissionUnit{
				kind:    jobs.TaskProcessNormalize,
				taskIDs: []string{fixAspect.ID, normalize.ID},
			})
			continue
		}
		units = append(units, submissionUnit{kind: task.Type, taskIDs: []string{task.ID}})
	}
	return units
}

// submitUnit builds the backend request for a unit and submits it. The job
// argument must be a fresh snapshot so the request sees any video path
// update applied by an earlier task.
func (c *Coordinator) submitUnit(ctx context.Context, job *jobs.Job, unit submissionUnit) (backend.SubmitResult, error) {
	primary := job.Task(unit.taskIDs[0])
	if primary == nil {
		return backend.SubmitResult{}, fmt.Errorf("task %s: %w", unit.taskIDs[0], jobs.ErrNotFound)
	}

	switch unit.kind {
	case jobs.TaskDownload:
		req := backend.DownloadRequest{}
		if primary.Download != nil {
			req.URL = primary.Download.URL
			req.OutputDir = primary.Download.OutputDir
			req.Quality = primary.Download.Quality
		}
		return c.client.SubmitDownload(ctx, req)
	case jobs.TaskImport:
		return c.client.SubmitImport(ctx, backend.ImportRequest{SourcePath: job.VideoPath})
	case jobs.TaskFixAspectRatio:
		return c.client.SubmitProcess(ctx, backend.ProcessRequest{VideoPath: job.VideoPath, FixAspectRatio: true})
	case jobs.TaskNormalizeAudio:
		return c.client.SubmitProcess(ctx, backend.ProcessRequest{VideoPath: job.VideoPath, NormalizeAudio: true})
	case jobs.TaskProcessNormalize:
		return c.client.SubmitProcess(ctx, backend.ProcessRequest{VideoPath: job.VideoPath, FixAspectRatio: true, NormalizeAudio: true})
	case jobs.TaskTranscribe:
		req := backend.TranscribeRequest{VideoPath: job.VideoPath}
		if primary.Transcription != nil {
			req.Model = primary.Transcription.Model
			req.Language = primary.Transcription.Language
		}
		return c.client.SubmitTranscribe(ctx, req)
	case jobs.TaskAnalyze:
		req := backend.AnalyzeRequest{VideoPath: job.VideoPath}
		if primary.Analysis != nil {
			req.Provider = primary.Analysis.Provider
			req.Model = primary.Analysis.Model
			req.APIKey = primary.Analysis.APIKey
			req.CustomInstructions = primary.Analysis.CustomInstructions
		}
		return c.client.SubmitAnalyze(ctx, req)
	default:
		return backend.SubmitResult{}, fmt.Errorf("no backend operation for task type %q", unit.kind)
	}
}

// submissionFailure converts a submission error into the human-readable
// cause recorded on the failed task.
func submissionFailure(kind jobs.TaskType, err error) string {
	return fmt.Sprintf("could not submit %s: %v", kind, err)
}
