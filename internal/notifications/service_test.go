package notifications_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"clippy/internal/notifications"
	"clippy/internal/testsupport"
)

type recorded struct {
	title    string
	tags     string
	priority string
	body     string
}

func newRecordingServer(t *testing.T) (*httptest.Server, *[]recorded) {
	t.Helper()
	var requests []recorded
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		requests = append(requests, recorded{
			title:    r.Header.Get("Title"),
			tags:     r.Header.Get("Tags"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
	}))
	t.Cleanup(server.Close)
	return server, &requests
}

func TestNoopWhenTopicUnset(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	service := notifications.NewService(cfg)

	if err := service.NotifyJobCompleted(context.Background(), "/videos/v.mp4"); err != nil {
		t.Fatalf("noop service returned error: %v", err)
	}
	if err := service.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop service returned error: %v", err)
	}
}

func TestNotifyJobCompletedSendsNtfyRequest(t *testing.T) {
	server, requests := newRecordingServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	service := notifications.NewService(cfg)

	if err := service.NotifyJobCompleted(context.Background(), "/videos/holiday.mp4"); err != nil {
		t.Fatalf("NotifyJobCompleted failed: %v", err)
	}

	if len(*requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(*requests))
	}
	req := (*requests)[0]
	if !strings.Contains(req.title, "Complete") {
		t.Fatalf("unexpected title %q", req.title)
	}
	if !strings.Contains(req.body, "holiday.mp4") {
		t.Fatalf("expected video name in body, got %q", req.body)
	}
}

func TestNotifyJobFailedCarriesCauseAndPriority(t *testing.T) {
	server, requests := newRecordingServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	service := notifications.NewService(cfg)

	if err := service.NotifyJobFailed(context.Background(), "/videos/v.mp4", "decoder exploded"); err != nil {
		t.Fatalf("NotifyJobFailed failed: %v", err)
	}

	req := (*requests)[0]
	if req.priority != "high" {
		t.Fatalf("expected high priority, got %q", req.priority)
	}
	if !strings.Contains(req.body, "decoder exploded") {
		t.Fatalf("expected cause in body, got %q", req.body)
	}
}

func TestDisabledCategoriesAreSkipped(t *testing.T) {
	server, requests := newRecordingServer(t)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	cfg.Notifications.Completion = false
	service := notifications.NewService(cfg)

	if err := service.NotifyJobCompleted(context.Background(), "/videos/v.mp4"); err != nil {
		t.Fatalf("NotifyJobCompleted failed: %v", err)
	}
	if err := service.NotifyQueueCleared(context.Background(), 3); err != nil {
		t.Fatalf("NotifyQueueCleared failed: %v", err)
	}
	if len(*requests) != 0 {
		t.Fatalf("expected no requests for disabled category, got %d", len(*requests))
	}
}

func TestNtfyErrorStatusSurfaced(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic over quota", http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	service := notifications.NewService(cfg)

	err := service.TestNotification(context.Background())
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "topic over quota") {
		t.Fatalf("expected server detail, got %q", err)
	}
}
