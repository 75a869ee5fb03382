package pipeline_test

import (
	"context"
	"testing"
	"time"

	"clippy/internal/backend"
	"clippy/internal/jobs"
	"clippy/internal/pipeline"
	"clippy/internal/testsupport"
)

func runAggregator(t *testing.T, store *jobs.Store, client *testsupport.StubClient, events ...backend.Event) {
	t.Helper()
	bus := backend.NewChannelBus(len(events))
	for _, event := range events {
		bus.Publish(event)
	}
	bus.Close()

	aggregator := pipeline.NewAggregator(store, client, nil, nil)
	done := make(chan struct{})
	go func() {
		aggregator.Run(context.Background(), bus)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("aggregator did not drain the bus")
	}
}

func TestAggregatorAppliesProgressEvents(t *testing.T) {
	store, _ := testsupport.NewMemoryStore(t, 0)
	client := testsupport.NewStubClient()
	ctx := context.Background()

	job := addJob(t, store, jobs.TaskTranscribe)
	if err := store.BindBackendJob(ctx, job.ID, []string{job.Tasks[0].ID}, "backend-1"); err != nil {
		t.Fatalf("BindBackendJob failed: %v", err)
	}

	runAggregator(t, store, client,
		backend.Event{Kind: backend.EventProgress, BackendJobID: "backend-1", Percent: 33.4},
		backend.Event{Kind: backend.EventProgress, BackendJobID: "unknown", Percent: 90},
		backend.Event{Kind: backend.EventProgress, BackendJobID: "backend-1", Percent: 66.6},
	)

	view, _ := store.Job(job.ID)
	if view.Tasks[0].Progress != 67 {
		t.Fatalf("expected rounded progress 67, got %d", view.Tasks[0].Progress)
	}
	if view.Tasks[0].Status != jobs.StatusProcessing {
		t.Fatalf("expected processing, got %s", view.Tasks[0].Status)
	}
}

func TestAggregatorAppliesFailureEvents(t *testing.T) {
	store, _ := testsupport.NewMemoryStore(t, 0)
	client := testsupport.NewStubClient()
	ctx := context.Background()

	job := addJob(t, store, jobs.TaskAnalyze)
	if err := store.BindBackendJob(ctx, job.ID, []string{job.Tasks[0].ID}, "backend-1"); err != nil {
		t.Fatalf("BindBackendJob failed: %v", err)
	}

	runAggregator(t, store, client,
		backend.Event{Kind: backend.EventFailure, BackendJobID: "backend-1", Message: "model unavailable"},
	)

	view, _ := store.Job(job.ID)
	if view.OverallStatus() != jobs.StatusFailed {
		t.Fatalf("expected failed, got %s", view.OverallStatus())
	}
	if view.Tasks[0].Error != "model unavailable" {
		t.Fatalf("expected failure message, got %q", view.Tasks[0].Error)
	}
}

func TestAggregatorIgnoresMalformedStatus(t *testing.T) {
	store, _ := testsupport.NewMemoryStore(t, 0)
	client := testsupport.NewStubClient()
	ctx := context.Background()

	job := addJob(t, store, jobs.TaskAnalyze)
	if err := store.BindBackendJob(ctx, job.ID, []string{job.Tasks[0].ID}, "backend-1"); err != nil {
		t.Fatalf("BindBackendJob failed: %v", err)
	}

	runAggregator(t, store, client,
		backend.Event{Kind: backend.EventStatus, BackendJobID: "backend-1", Status: "exploded"},
		backend.Event{Kind: "mystery", BackendJobID: "backend-1"},
	)

	view, _ := store.Job(job.ID)
	if view.Tasks[0].Status != jobs.StatusProcessing {
		t.Fatalf("malformed events must be no-ops, got %s", view.Tasks[0].Status)
	}
}

func TestAggregatorRefreshesPathAfterProcessing(t *testing.T) {
	store, _ := testsupport.NewMemoryStore(t, 0)
	client := testsupport.NewStubClient()
	client.SetVideoPath("vid-1", "/library/fixed.mp4")
	ctx := context.Background()

	spec := jobs.JobSpec{
		VideoID:   "vid-1",
		VideoPath: "/videos/original.mp4",
		Tasks: []jobs.TaskSpec{
			{Type: jobs.TaskFixAspectRatio},
			{Type: jobs.TaskNormalizeAudio},
		},
	}
	job, err := store.AddJob(ctx, spec)
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	taskIDs := []string{job.Tasks[0].ID, job.Tasks[1].ID}
	if err := store.BindBackendJob(ctx, job.ID, taskIDs, "backend-proc"); err != nil {
		t.Fatalf("BindBackendJob failed: %v", err)
	}

	// Run drains the bus and waits for the detached path refresh.
	runAggregator(t, store, client,
		backend.Event{Kind: backend.EventProgress, BackendJobID: "backend-proc", Percent: 100},
	)

	view, _ := store.Job(job.ID)
	if view.OverallStatus() != jobs.StatusCompleted {
		t.Fatalf("expected completed, got %s", view.OverallStatus())
	}
	if view.VideoPath != "/library/fixed.mp4" {
		t.Fatalf("expected refreshed path, got %q", view.VideoPath)
	}
	if len(client.Resolves) == 0 {
		t.Fatal("expected a ResolveVideoPath call")
	}
}
