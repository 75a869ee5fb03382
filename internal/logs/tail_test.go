package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"clippy/internal/logs"
)

func writeLog(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clippy.log")
	var data []byte
	for _, line := range lines {
		data = append(data, line...)
		data = append(data, '\n')
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}
	return path
}

func TestTailMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.log")
	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "one", "two", "three", "four", "five")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 3})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if !reflect.DeepEqual(result.Lines, []string{"three", "four", "five"}) {
		t.Fatalf("unexpected lines: %v", result.Lines)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if result.Offset != info.Size() {
		t.Fatalf("Offset = %d, want file size %d", result.Offset, info.Size())
	}
}

func TestTailLimitLargerThanFile(t *testing.T) {
	path := writeLog(t, "only")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 50})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if !reflect.DeepEqual(result.Lines, []string{"only"}) {
		t.Fatalf("unexpected lines: %v", result.Lines)
	}
}

func TestTailResumesFromOffset(t *testing.T) {
	path := writeLog(t, "first", "second")

	initial, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("initial tail failed: %v", err)
	}

	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	if _, err := file.WriteString("third\n"); err != nil {
		t.Fatalf("append: %v", err)
	}
	file.Close()

	next, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: initial.Offset})
	if err != nil {
		t.Fatalf("resume tail failed: %v", err)
	}
	if !reflect.DeepEqual(next.Lines, []string{"third"}) {
		t.Fatalf("unexpected resumed lines: %v", next.Lines)
	}
	if next.Offset <= initial.Offset {
		t.Fatalf("offset did not advance: %d -> %d", initial.Offset, next.Offset)
	}
}

func TestTailClampsOffsetBeyondEnd(t *testing.T) {
	path := writeLog(t, "line")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 1 << 20})
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(result.Lines) != 0 {
		t.Fatalf("expected no lines past end, got %v", result.Lines)
	}
}

func TestTailFollowPicksUpAppendedLines(t *testing.T) {
	path := writeLog(t, "existing")

	initial, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("initial tail failed: %v", err)
	}

	go func() {
		time.Sleep(300 * time.Millisecond)
		file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return
		}
		defer file.Close()
		_, _ = file.WriteString("late arrival\n")
	}()

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{
		Offset: initial.Offset,
		Follow: true,
		Wait:   3 * time.Second,
	})
	if err != nil {
		t.Fatalf("follow tail failed: %v", err)
	}
	if !reflect.DeepEqual(result.Lines, []string{"late arrival"}) {
		t.Fatalf("unexpected followed lines: %v", result.Lines)
	}
}

func TestTailFollowHonorsContextCancel(t *testing.T) {
	path := writeLog(t, "existing")
	initial, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("initial tail failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	_, err = logs.Tail(ctx, path, logs.TailOptions{Offset: initial.Offset, Follow: true, Wait: 10 * time.Second})
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}
