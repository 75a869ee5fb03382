package backend_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clippy/internal/backend"
	"clippy/internal/testsupport"
)

func newTestClient(t *testing.T, handler http.Handler) *backend.HTTPClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL))
	return backend.NewHTTPClient(cfg)
}

func TestSubmitDownloadPostsPayload(t *testing.T) {
	var captured backend.DownloadRequest
	var correlation string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/jobs/download" {
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		correlation = r.Header.Get("X-Correlation-ID")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(backend.SubmitResult{BackendJobID: "backend-77"})
	}))

	result, err := client.SubmitDownload(context.Background(), backend.DownloadRequest{
		URL:     "https://example.com/v.mp4",
		Quality: "best",
	})
	if err != nil {
		t.Fatalf("SubmitDownload failed: %v", err)
	}
	if result.BackendJobID != "backend-77" {
		t.Fatalf("unexpected backend id %q", result.BackendJobID)
	}
	if captured.URL != "https://example.com/v.mp4" || captured.Quality != "best" {
		t.Fatalf("unexpected payload: %+v", captured)
	}
	if correlation == "" {
		t.Fatal("expected a correlation id header")
	}
}

func TestSubmitRejectsMissingJobID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))

	if _, err := client.SubmitTranscribe(context.Background(), backend.TranscribeRequest{VideoPath: "/v.mp4"}); err == nil {
		t.Fatal("expected error for missing job id")
	}
}

func TestSubmitSurfacesBackendErrorDetail(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "unsupported container format"})
	}))

	_, err := client.SubmitProcess(context.Background(), backend.ProcessRequest{VideoPath: "/v.mkv", FixAspectRatio: true})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "unsupported container format") {
		t.Fatalf("expected backend detail in error, got %q", err)
	}
}

func TestSubmitSummarizesUnreachableBackend(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL("http://127.0.0.1:1"))
	client := backend.NewHTTPClient(cfg)

	_, err := client.SubmitAnalyze(context.Background(), backend.AnalyzeRequest{VideoPath: "/v.mp4"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "backend unreachable") {
		t.Fatalf("expected transport summary, got %q", err)
	}
}

func TestQueueSnapshot(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/queue" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"jobs": []backend.QueueJob{
				{ID: "backend-1", Status: "processing", Progress: 50},
				{ID: "backend-2", Status: "completed", Progress: 100},
			},
		})
	}))

	snapshot, err := client.QueueSnapshot(context.Background())
	if err != nil {
		t.Fatalf("QueueSnapshot failed: %v", err)
	}
	if len(snapshot) != 2 || snapshot[0].ID != "backend-1" {
		t.Fatalf("unexpected snapshot: %+v", snapshot)
	}
}

func TestResolveVideoPath(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/videos/path" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("video_id") != "vid-1" {
			t.Fatalf("missing video_id query, got %q", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]string{"video_path": "/library/moved.mp4"})
	}))

	path, err := client.ResolveVideoPath(context.Background(), "vid-1", "/videos/old.mp4")
	if err != nil {
		t.Fatalf("ResolveVideoPath failed: %v", err)
	}
	if path != "/library/moved.mp4" {
		t.Fatalf("unexpected path %q", path)
	}
}

func TestResolveVideoPathFallsBackToCurrent(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))

	path, err := client.ResolveVideoPath(context.Background(), "vid-1", "/videos/current.mp4")
	if err != nil {
		t.Fatalf("ResolveVideoPath failed: %v", err)
	}
	if path != "/videos/current.mp4" {
		t.Fatalf("expected fallback to current path, got %q", path)
	}
}
