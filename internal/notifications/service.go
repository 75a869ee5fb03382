package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"clippy/internal/config"
)

const userAgent = "Clippy-Go/0.1.0"

// Service defines the push notification surface exposed to the pipeline.
type Service interface {
	NotifyJobCompleted(ctx context.Context, videoPath string) error
	NotifyJobFailed(ctx context.Context, videoPath, cause string) error
	NotifyQueueCleared(ctx context.Context, removed int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:   topic,
		client:     &http.Client{Timeout: timeout},
		completion: cfg.Notifications.Completion,
		errors:     cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint   string
	client     *http.Client
	completion bool
	errors     bool
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, videoPath string) error {
	if !n.completion {
		return nil
	}
	data := payload{
		title:   "Clippy - Job Complete",
		message: fmt.Sprintf("Finished processing: %s", displayName(videoPath)),
		tags:    []string{"clippy", "job", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, videoPath, cause string) error {
	if !n.errors {
		return nil
	}
	message := fmt.Sprintf("Processing failed: %s", displayName(videoPath))
	if cause = strings.TrimSpace(cause); cause != "" {
		message += "\n" + cause
	}
	data := payload{
		title:    "Clippy - Job Failed",
		message:  message,
		tags:     []string{"clippy", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyQueueCleared(ctx context.Context, removed int) error {
	if !n.completion || removed == 0 {
		return nil
	}
	data := payload{
		title:   "Clippy - Queue Cleared",
		message: fmt.Sprintf("Removed %d job(s)", removed),
		tags:    []string{"clippy", "queue"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Clippy - Test",
		message:  "Notification system test",
		tags:     []string{"clippy", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func displayName(videoPath string) string {
	if trimmed := strings.TrimSpace(videoPath); trimmed != "" {
		return filepath.Base(trimmed)
	}
	return "video"
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string) error      { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error { return nil }
func (noopService) NotifyQueueCleared(context.Context, int) error         { return nil }
func (noopService) TestNotification(context.Context) error                { return nil }
