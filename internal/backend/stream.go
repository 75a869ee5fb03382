package backend

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"clippy/internal/config"
	"clippy/internal/logging"
)

const (
	streamReconnectMin = time.Second
	streamReconnectMax = 30 * time.Second
)

// StreamBus consumes the backend's server-sent event feed and exposes it as
// a Bus. It reconnects with backoff until its context is canceled; malformed
// frames are logged and skipped so one bad event cannot stall aggregation.
type StreamBus struct {
	ch     chan Event
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStreamBus starts consuming the backend event stream.
func NewStreamBus(ctx context.Context, cfg *config.Config, logger *slog.Logger) *StreamBus {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.With(logging.String(logging.FieldComponent, "eventstream"))

	streamCtx, cancel := context.WithCancel(ctx)
	bus := &StreamBus{
		ch:     make(chan Event, 64),
		cancel: cancel,
	}

	endpoint := strings.TrimRight(cfg.Backend.BaseURL, "/") + "/events"
	bus.wg.Add(1)
	go func() {
		defer bus.wg.Done()
		defer close(bus.ch)
		backoff := streamReconnectMin
		for {
			if err := bus.consume(streamCtx, endpoint); err != nil && streamCtx.Err() == nil {
				logger.Warn("event stream interrupted", logging.Error(err))
			}
			select {
			case <-streamCtx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > streamReconnectMax {
				backoff = streamReconnectMax
			}
		}
	}()
	return bus
}

// Events returns the delivery channel. It closes after Close is called and
// the consumer goroutine drains.
func (b *StreamBus) Events() <-chan Event {
	return b.ch
}

// Close stops the consumer and waits for the channel to close.
func (b *StreamBus) Close() {
	b.cancel()
	b.wg.Wait()
}

func (b *StreamBus) consume(ctx context.Context, endpoint string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/event-stream")

	// No client timeout: the stream stays open indefinitely.
	resp, err := http.DefaultTransport.RoundTrip(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return statusError(resp)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		var event Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil || event.BackendJobID == "" {
			continue
		}
		select {
		case b.ch <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
