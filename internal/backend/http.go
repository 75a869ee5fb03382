package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"clippy/internal/config"
)

const userAgent = "Clippy-Go/0.1.0"

// HTTPClient implements Client against the backend's HTTP surface.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a client from configuration.
func NewHTTPClient(cfg *config.Config) *HTTPClient {
	timeout := time.Duration(cfg.Backend.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.Backend.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) SubmitDownload(ctx context.Context, req DownloadRequest) (SubmitResult, error) {
	return c.submit(ctx, "/jobs/download", req)
}

func (c *HTTPClient) SubmitImport(ctx context.Context, req ImportRequest) (SubmitResult, error) {
	return c.submit(ctx, "/jobs/import", req)
}

func (c *HTTPClient) SubmitProcess(ctx context.Context, req ProcessRequest) (SubmitResult, error) {
	return c.submit(ctx, "/jobs/process", req)
}

func (c *HTTPClient) SubmitTranscribe(ctx context.Context, req TranscribeRequest) (SubmitResult, error) {
	return c.submit(ctx, "/jobs/transcribe", req)
}

func (c *HTTPClient) SubmitAnalyze(ctx context.Context, req AnalyzeRequest) (SubmitResult, error) {
	return c.submit(ctx, "/jobs/analyze", req)
}

// QueueSnapshot fetches the authoritative queue state.
func (c *HTTPClient) QueueSnapshot(ctx context.Context) ([]QueueJob, error) {
	var payload struct {
		Jobs []QueueJob `json:"jobs"`
	}
	if err := c.get(ctx, "/queue", &payload); err != nil {
		return nil, fmt.Errorf("queue snapshot: %w", err)
	}
	return payload.Jobs, nil
}

// ResolveVideoPath asks the backend where a video currently lives.
func (c *HTTPClient) ResolveVideoPath(ctx context.Context, videoID, currentPath string) (string, error) {
	query := url.Values{}
	if videoID != "" {
		query.Set("video_id", videoID)
	}
	if currentPath != "" {
		query.Set("current", currentPath)
	}
	var payload struct {
		VideoPath string `json:"video_path"`
	}
	if err := c.get(ctx, "/videos/path?"+query.Encode(), &payload); err != nil {
		return "", fmt.Errorf("resolve video path: %w", err)
	}
	if payload.VideoPath == "" {
		return currentPath, nil
	}
	return payload.VideoPath, nil
}

func (c *HTTPClient) submit(ctx context.Context, path string, payload any) (SubmitResult, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Correlation-ID", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return SubmitResult{}, summarizeTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return SubmitResult{}, statusError(resp)
	}

	var result SubmitResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return SubmitResult{}, fmt.Errorf("decode response: %w", err)
	}
	if result.BackendJobID == "" {
		return SubmitResult{}, errors.New("backend did not assign a job id")
	}
	return result, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Correlation-ID", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return summarizeTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return statusError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError converts a non-2xx response into a readable error carrying
// the backend's own explanation when one is present.
func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	detail := strings.TrimSpace(string(body))
	var parsed struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Error != "" {
			detail = parsed.Error
		} else if parsed.Message != "" {
			detail = parsed.Message
		}
	}
	if detail == "" {
		return fmt.Errorf("backend returned %s", resp.Status)
	}
	return fmt.Errorf("backend returned %s: %s", resp.Status, detail)
}

// summarizeTransportError strips Go's nested url.Error noise down to a
// cause a user can act on.
func summarizeTransportError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return errors.New("backend request timed out")
		}
		return fmt.Errorf("backend unreachable: %v", urlErr.Err)
	}
	return err
}
