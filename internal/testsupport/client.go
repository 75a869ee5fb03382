package testsupport

import (
	"context"
	"fmt"
	"sync"

	"clippy/internal/backend"
)

// StubClient is a scriptable backend.Client for tests. Submissions hand out
// sequential backend job ids unless an explicit script is queued; every call
// is recorded for assertions.
type StubClient struct {
	mu sync.Mutex

	next    int
	scripts []SubmitScript
	queue   []backend.QueueJob
	paths   map[string]string

	Downloads   []backend.DownloadRequest
	Imports     []backend.ImportRequest
	Processes   []backend.ProcessRequest
	Transcribes []backend.TranscribeRequest
	Analyzes    []backend.AnalyzeRequest
	Resolves    []string
}

// SubmitScript overrides the result of one submission, in call order.
type SubmitScript struct {
	Result backend.SubmitResult
	Err    error
}

// NewStubClient builds an empty stub.
func NewStubClient() *StubClient {
	return &StubClient{paths: make(map[string]string)}
}

// Script appends submission outcomes consumed in call order.
func (c *StubClient) Script(scripts ...SubmitScript) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts = append(c.scripts, scripts...)
}

// SetQueue sets the snapshot returned by QueueSnapshot.
func (c *StubClient) SetQueue(jobRows ...backend.QueueJob) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue = append([]backend.QueueJob(nil), jobRows...)
}

// SetVideoPath sets the path returned by ResolveVideoPath for a video id.
func (c *StubClient) SetVideoPath(videoID, path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths[videoID] = path
}

func (c *StubClient) submit() (backend.SubmitResult, error) {
	if len(c.scripts) > 0 {
		script := c.scripts[0]
		c.scripts = c.scripts[1:]
		if script.Err != nil {
			return backend.SubmitResult{}, script.Err
		}
		result := script.Result
		if result.BackendJobID == "" {
			c.next++
			result.BackendJobID = fmt.Sprintf("backend-%d", c.next)
		}
		return result, nil
	}
	c.next++
	return backend.SubmitResult{BackendJobID: fmt.Sprintf("backend-%d", c.next)}, nil
}

func (c *StubClient) SubmitDownload(_ context.Context, req backend.DownloadRequest) (backend.SubmitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Downloads = append(c.Downloads, req)
	return c.submit()
}

func (c *StubClient) SubmitImport(_ context.Context, req backend.ImportRequest) (backend.SubmitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Imports = append(c.Imports, req)
	return c.submit()
}

func (c *StubClient) SubmitProcess(_ context.Context, req backend.ProcessRequest) (backend.SubmitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Processes = append(c.Processes, req)
	return c.submit()
}

func (c *StubClient) SubmitTranscribe(_ context.Context, req backend.TranscribeRequest) (backend.SubmitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Transcribes = append(c.Transcribes, req)
	return c.submit()
}

func (c *StubClient) SubmitAnalyze(_ context.Context, req backend.AnalyzeRequest) (backend.SubmitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Analyzes = append(c.Analyzes, req)
	return c.submit()
}

func (c *StubClient) QueueSnapshot(_ context.Context) ([]backend.QueueJob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]backend.QueueJob(nil), c.queue...), nil
}

func (c *StubClient) ResolveVideoPath(_ context.Context, videoID, currentPath string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Resolves = append(c.Resolves, videoID)
	if path, ok := c.paths[videoID]; ok {
		return path, nil
	}
	return currentPath, nil
}

// SubmitCount reports how many submissions of any kind were made.
func (c *StubClient) SubmitCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Downloads) + len(c.Imports) + len(c.Processes) + len(c.Transcribes) + len(c.Analyzes)
}
