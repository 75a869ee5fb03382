package jobs_test

import (
	"context"
	"testing"

	"clippy/internal/jobs"
	"clippy/internal/testsupport"
)

func TestCacheSaveLoadDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cache, err := jobs.OpenCache(cfg)
	if err != nil {
		t.Fatalf("OpenCache failed: %v", err)
	}
	defer cache.Close()

	ctx := context.Background()
	job := &jobs.Job{
		ID:        "job-cache-1",
		VideoPath: "/videos/sample.mp4",
		Tasks: []*jobs.Task{{
			ID:           "transcribe-01",
			Type:         jobs.TaskTranscribe,
			Status:       jobs.StatusProcessing,
			Progress:     42,
			BackendJobID: "backend-1",
		}},
	}
	if err := cache.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob failed: %v", err)
	}

	// Saving again overwrites instead of duplicating.
	job.Tasks[0].Progress = 60
	if err := cache.SaveJob(ctx, job); err != nil {
		t.Fatalf("second SaveJob failed: %v", err)
	}

	loaded, err := cache.LoadJobs(ctx)
	if err != nil {
		t.Fatalf("LoadJobs failed: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("expected 1 job, got %d", len(loaded))
	}
	if loaded[0].Tasks[0].Progress != 60 {
		t.Fatalf("expected persisted progress 60, got %d", loaded[0].Tasks[0].Progress)
	}

	if err := cache.DeleteJob(ctx, job.ID); err != nil {
		t.Fatalf("DeleteJob failed: %v", err)
	}
	loaded, err = cache.LoadJobs(ctx)
	if err != nil {
		t.Fatalf("LoadJobs after delete failed: %v", err)
	}
	if len(loaded) != 0 {
		t.Fatalf("expected empty cache, got %d jobs", len(loaded))
	}
}
