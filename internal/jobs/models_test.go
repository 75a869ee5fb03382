package jobs_test

import (
	"testing"

	"clippy/internal/jobs"
)

func TestOverallStatusDerivation(t *testing.T) {
	cases := []struct {
		name     string
		statuses []jobs.Status
		expected jobs.Status
	}{
		{"empty", nil, jobs.StatusPending},
		{"all pending", []jobs.Status{jobs.StatusPending, jobs.StatusPending}, jobs.StatusPending},
		{"one processing", []jobs.Status{jobs.StatusCompleted, jobs.StatusProcessing}, jobs.StatusProcessing},
		{"all completed", []jobs.Status{jobs.StatusCompleted, jobs.StatusCompleted}, jobs.StatusCompleted},
		{"failure wins", []jobs.Status{jobs.StatusCompleted, jobs.StatusFailed, jobs.StatusProcessing}, jobs.StatusFailed},
		{"completed and pending", []jobs.Status{jobs.StatusCompleted, jobs.StatusPending}, jobs.StatusPending},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			job := &jobs.Job{ID: "job-1"}
			for i, status := range tc.statuses {
				job.Tasks = append(job.Tasks, &jobs.Task{ID: string(rune('a' + i)), Status: status})
			}
			if got := job.OverallStatus(); got != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, got)
			}
		})
	}
}

func TestOverallProgressIsMeanOfTasks(t *testing.T) {
	job := &jobs.Job{Tasks: []*jobs.Task{
		{ID: "a", Progress: 100},
		{ID: "b", Progress: 50},
		{ID: "c", Progress: 0},
	}}
	if got := job.OverallProgress(); got != 50 {
		t.Fatalf("expected 50, got %d", got)
	}

	empty := &jobs.Job{}
	if got := empty.OverallProgress(); got != 0 {
		t.Fatalf("expected 0 for empty job, got %d", got)
	}
}

func TestClampProgress(t *testing.T) {
	cases := map[int]int{-20: 0, 0: 0, 55: 55, 100: 100, 250: 100}
	for input, expected := range cases {
		if got := jobs.ClampProgress(input); got != expected {
			t.Fatalf("ClampProgress(%d): expected %d, got %d", input, expected, got)
		}
	}
}

func TestParseTaskType(t *testing.T) {
	if parsed, ok := jobs.ParseTaskType("  Fix-Aspect-Ratio "); !ok || parsed != jobs.TaskFixAspectRatio {
		t.Fatalf("unexpected parse result: %q %v", parsed, ok)
	}
	if _, ok := jobs.ParseTaskType("encode"); ok {
		t.Fatal("expected unknown task type to fail")
	}
	if _, ok := jobs.ParseTaskType(""); ok {
		t.Fatal("expected empty task type to fail")
	}
}

func TestCompletionSignaledTypes(t *testing.T) {
	for _, taskType := range jobs.AllTaskTypes() {
		signaled := taskType == jobs.TaskDownload || taskType == jobs.TaskImport
		if taskType.CompletionSignaled() != signaled {
			t.Fatalf("%s: unexpected CompletionSignaled", taskType)
		}
	}
}

func TestRelocatesVideoTypes(t *testing.T) {
	relocating := map[jobs.TaskType]bool{
		jobs.TaskFixAspectRatio:   true,
		jobs.TaskNormalizeAudio:   true,
		jobs.TaskProcessNormalize: true,
	}
	for _, taskType := range jobs.AllTaskTypes() {
		if taskType.RelocatesVideo() != relocating[taskType] {
			t.Fatalf("%s: unexpected RelocatesVideo", taskType)
		}
	}
}

func TestJobCloneIsDeep(t *testing.T) {
	job := &jobs.Job{
		ID: "job-1",
		Tasks: []*jobs.Task{{
			ID:       "download-01",
			Type:     jobs.TaskDownload,
			Download: &jobs.DownloadConfig{URL: "https://example.com/v.mp4"},
		}},
	}

	clone := job.Clone()
	clone.Tasks[0].Progress = 80
	clone.Tasks[0].Download.URL = "changed"

	if job.Tasks[0].Progress != 0 {
		t.Fatal("clone mutation leaked into original task")
	}
	if job.Tasks[0].Download.URL != "https://example.com/v.mp4" {
		t.Fatal("clone mutation leaked into original download config")
	}
}
