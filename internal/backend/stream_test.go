package backend_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clippy/internal/backend"
	"clippy/internal/testsupport"
)

func TestStreamBusDeliversParsedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		fmt.Fprint(w, "data: {\"kind\":\"progress\",\"job_id\":\"backend-1\",\"percent\":25}\n\n")
		fmt.Fprint(w, ": comment line\n")
		fmt.Fprint(w, "data: not json\n\n")
		fmt.Fprint(w, "data: {\"kind\":\"status\",\"percent\":50}\n\n")
		fmt.Fprint(w, "data: {\"kind\":\"status\",\"job_id\":\"backend-1\",\"status\":\"completed\",\"video_path\":\"/library/v.mp4\"}\n\n")
		flusher.Flush()
		<-r.Context().Done()
	}))
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithBackendURL(server.URL))
	bus := backend.NewStreamBus(context.Background(), cfg, nil)
	defer bus.Close()

	var events []backend.Event
	timeout := time.After(5 * time.Second)
	for len(events) < 2 {
		select {
		case event := <-bus.Events():
			events = append(events, event)
		case <-timeout:
			t.Fatalf("timed out; got %d events", len(events))
		}
	}

	if events[0].Kind != backend.EventProgress || events[0].BackendJobID != "backend-1" || events[0].Percent != 25 {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Kind != backend.EventStatus || events[1].VideoPath != "/library/v.mp4" {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
}

func TestChannelBusCloseIsIdempotent(t *testing.T) {
	bus := backend.NewChannelBus(1)
	bus.Publish(backend.Event{Kind: backend.EventProgress, BackendJobID: "backend-1"})
	bus.Close()
	bus.Close()

	event, ok := <-bus.Events()
	if !ok || event.BackendJobID != "backend-1" {
		t.Fatalf("expected buffered event before close, got %+v ok=%v", event, ok)
	}
	if _, ok := <-bus.Events(); ok {
		t.Fatal("expected closed channel")
	}
}
