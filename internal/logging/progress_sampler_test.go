package logging_test

import (
	"testing"

	"clippy/internal/logging"
)

func TestProgressSamplerEmitsOnBucketBoundaries(t *testing.T) {
	sampler := logging.NewProgressSampler(5)

	if !sampler.ShouldLog(0, "backend-1") {
		t.Fatal("first sample should log")
	}
	if sampler.ShouldLog(1, "backend-1") {
		t.Fatal("same bucket should be suppressed")
	}
	if sampler.ShouldLog(4.9, "backend-1") {
		t.Fatal("same bucket should be suppressed")
	}
	if !sampler.ShouldLog(5, "backend-1") {
		t.Fatal("next bucket should log")
	}
	if !sampler.ShouldLog(23, "backend-1") {
		t.Fatal("bucket jump should log")
	}
	if sampler.ShouldLog(24, "backend-1") {
		t.Fatal("same bucket should be suppressed")
	}
}

func TestProgressSamplerKeyChangeResetsBuckets(t *testing.T) {
	sampler := logging.NewProgressSampler(5)

	if !sampler.ShouldLog(50, "backend-1") {
		t.Fatal("first sample should log")
	}
	if !sampler.ShouldLog(10, "backend-2") {
		t.Fatal("new key should log even at a lower percent")
	}
	if sampler.ShouldLog(12, "backend-2") {
		t.Fatal("same bucket on new key should be suppressed")
	}
}

func TestProgressSamplerUnknownPercent(t *testing.T) {
	sampler := logging.NewProgressSampler(5)

	if !sampler.ShouldLog(-1, "backend-1") {
		t.Fatal("unknown percent with fresh key should log")
	}
	if sampler.ShouldLog(-1, "backend-1") {
		t.Fatal("repeated unknown percent should be suppressed")
	}
}

func TestProgressSamplerCompletionClamp(t *testing.T) {
	sampler := logging.NewProgressSampler(5)

	if !sampler.ShouldLog(100, "backend-1") {
		t.Fatal("completion should log")
	}
	if sampler.ShouldLog(150, "backend-1") {
		t.Fatal("beyond-completion values share the final bucket")
	}
}

func TestProgressSamplerReset(t *testing.T) {
	sampler := logging.NewProgressSampler(5)
	sampler.ShouldLog(80, "backend-1")
	sampler.Reset()

	if !sampler.ShouldLog(80, "backend-1") {
		t.Fatal("sample after reset should log")
	}
}

func TestNilSamplerAlwaysLogs(t *testing.T) {
	var sampler *logging.ProgressSampler
	if !sampler.ShouldLog(50, "backend-1") {
		t.Fatal("nil sampler should never suppress")
	}
}
