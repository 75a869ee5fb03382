package daemon_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"clippy/internal/daemon"
	"clippy/internal/jobs"
	"clippy/internal/logging"
	"clippy/internal/testsupport"
)

// newBackendStub serves an empty queue and an event stream that stays open
// until the client disconnects.
func newBackendStub(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/queue", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"jobs": []any{}})
	})
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestStartAndStopLifecycle(t *testing.T) {
	backend := newBackendStub(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(backend.URL))

	d, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	defer d.Close()

	if status := d.Status(); status.Running {
		t.Fatal("daemon should not report running before Start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status()
	if !status.Running {
		t.Fatal("daemon should report running after Start")
	}
	if status.SessionID == "" {
		t.Fatal("expected a session id")
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("second Start on a running daemon should fail")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("daemon should not report running after Stop")
	}
}

func TestSecondInstanceIsRejected(t *testing.T) {
	backend := newBackendStub(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(backend.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	defer first.Close()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// A second daemon on the same state dir must refuse to start. The cache
	// is shared sqlite so it opens fine; the flock is the gate.
	second, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New for second instance failed: %v", err)
	}
	defer second.Close()

	err = second.Start(ctx)
	if err == nil {
		t.Fatal("expected second instance to be rejected")
	}
	if !strings.Contains(err.Error(), "already running") {
		t.Fatalf("unexpected rejection error: %v", err)
	}

	first.Stop()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("second instance should start after the first stops: %v", err)
	}
	second.Stop()
}

func TestStartRestoresCachedJobs(t *testing.T) {
	backend := newBackendStub(t)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(backend.URL))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New failed: %v", err)
	}
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	job, err := first.Store().AddJob(ctx, jobs.JobSpec{
		VideoID:   "vid-1",
		VideoPath: "/videos/clip.mp4",
		Tasks:     []jobs.TaskSpec{{Type: jobs.TaskImport}},
	})
	if err != nil {
		t.Fatalf("AddJob failed: %v", err)
	}
	first.Stop()
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := daemon.New(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("daemon.New after restart failed: %v", err)
	}
	defer second.Close()
	if err := second.Start(ctx); err != nil {
		t.Fatalf("Start after restart failed: %v", err)
	}
	defer second.Stop()

	restored, ok := second.Store().Job(job.ID)
	if !ok {
		t.Fatal("expected job to survive restart")
	}
	if restored.VideoID != "vid-1" {
		t.Fatalf("restored VideoID = %q, want vid-1", restored.VideoID)
	}
}
