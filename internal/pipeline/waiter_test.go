package pipeline_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"clippy/internal/jobs"
	"clippy/internal/pipeline"
	"clippy/internal/testsupport"
)

func addJob(t *testing.T, store *jobs.Store, types ...jobs.TaskType) *jobs.Job {
	t.Helper()
	spec := jobs.JobSpec{VideoPath: "/videos/sample.mp4"}
	for _, taskType := range types {
		taskSpec := jobs.TaskSpec{Type: taskType}
		if taskType == jobs.TaskDownload {
			taskSpec.Download = &jobs.DownloadConfig{URL: "https://example.com/v.mp4"}
		}
		spec.Tasks = append(spec.Tasks, taskSpec)
	}
	job, err := store.AddJob(context.Background(), spec)
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	return job
}

func TestAwaitTaskReturnsOnCompletion(t *testing.T) {
	store, _ := testsupport.NewMemoryStore(t, 0)
	ctx := context.Background()
	job := addJob(t, store, jobs.TaskTranscribe)
	taskID := job.Tasks[0].ID
	if err := store.BindBackendJob(ctx, job.ID, []string{taskID}, "backend-1"); err != nil {
		t.Fatalf("BindBackendJob failed: %v", err)
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		store.ApplyProgress(ctx, "backend-1", 100)
	}()

	gone, err := pipeline.AwaitTask(ctx, store, job.ID, taskID, 10*time.Millisecond, time.Second)
	if gone || err != nil {
		t.Fatalf("expected clean completion, got gone=%v err=%v", gone, err)
	}
}

func TestAwaitTaskSurfacesFailure(t *testing.T) {
	store, _ := testsupport.NewMemoryStore(t, 0)
	ctx := context.Background()
	job := addJob(t, store, jobs.TaskTranscribe)
	taskID := job.Tasks[0].ID
	if err := store.BindBackendJob(ctx, job.ID, []string{taskID}, "backend-1"); err != nil {
		t.Fatalf("BindBackendJob failed: %v", err)
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		store.ApplyFailure(ctx, "backend-1", "decoder exploded")
	}()

	gone, err := pipeline.AwaitTask(ctx, store, job.ID, taskID, 10*time.Millisecond, time.Second)
	if gone {
		t.Fatal("job did not vanish")
	}
	if !errors.Is(err, pipeline.ErrTaskFailed) {
		t.Fatalf("expected ErrTaskFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "decoder exploded") {
		t.Fatalf("expected task error in message, got %q", err)
	}
}

func TestAwaitTaskResolvesSilentlyOnRemoval(t *testing.T) {
	store, _ := testsupport.NewMemoryStore(t, 0)
	ctx := context.Background()
	job := addJob(t, store, jobs.TaskTranscribe)
	taskID := job.Tasks[0].ID

	go func() {
		time.Sleep(30 * time.Millisecond)
		store.Remove(ctx, job.ID)
	}()

	gone, err := pipeline.AwaitTask(ctx, store, job.ID, taskID, 10*time.Millisecond, time.Second)
	if !gone {
		t.Fatal("expected gone=true after removal")
	}
	if err != nil {
		t.Fatalf("removal must not produce an error, got %v", err)
	}
}

func TestAwaitTaskTimesOut(t *testing.T) {
	store, _ := testsupport.NewMemoryStore(t, 0)
	job := addJob(t, store, jobs.TaskTranscribe)

	gone, err := pipeline.AwaitTask(context.Background(), store, job.ID, job.Tasks[0].ID, 10*time.Millisecond, 50*time.Millisecond)
	if gone {
		t.Fatal("job did not vanish")
	}
	if !errors.Is(err, pipeline.ErrAwaitTimeout) {
		t.Fatalf("expected ErrAwaitTimeout, got %v", err)
	}
}

func TestAwaitTaskHonorsContextCancel(t *testing.T) {
	store, _ := testsupport.NewMemoryStore(t, 0)
	job := addJob(t, store, jobs.TaskTranscribe)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()

	_, err := pipeline.AwaitTask(ctx, store, job.ID, job.Tasks[0].ID, 10*time.Millisecond, time.Minute)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
