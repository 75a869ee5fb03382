package backend

import "sync"

// EventKind distinguishes the three event shapes the backend emits.
type EventKind string

const (
	// EventProgress carries a bare percentage tick.
	EventProgress EventKind = "progress"
	// EventFailure carries a terminal error for a backend job.
	EventFailure EventKind = "failure"
	// EventStatus carries an explicit status transition, optionally with
	// the resolved video identity (set on download/import completion).
	EventStatus EventKind = "status"
)

// Event is one asynchronous notification from the backend. BackendJobID is
// the sole correlation key; everything else depends on Kind.
type Event struct {
	Kind         EventKind `json:"kind"`
	BackendJobID string    `json:"job_id"`
	Percent      float64   `json:"percent,omitempty"`
	Message      string    `json:"message,omitempty"`
	Status       string    `json:"status,omitempty"`
	VideoID      string    `json:"video_id,omitempty"`
	VideoPath    string    `json:"video_path,omitempty"`
}

// Bus delivers backend events to the aggregator. Implementations close the
// channel when the underlying transport shuts down.
type Bus interface {
	Events() <-chan Event
}

// ChannelBus is an in-process Bus fed by Publish. The daemon bridges the
// real transport onto it; tests drive it directly.
type ChannelBus struct {
	ch       chan Event
	closeOne sync.Once
}

// NewChannelBus constructs a bus with the given buffer size.
func NewChannelBus(buffer int) *ChannelBus {
	if buffer < 0 {
		buffer = 0
	}
	return &ChannelBus{ch: make(chan Event, buffer)}
}

// Events returns the delivery channel.
func (b *ChannelBus) Events() <-chan Event {
	return b.ch
}

// Publish enqueues an event, blocking if the buffer is full so no event is
// ever dropped before aggregation.
func (b *ChannelBus) Publish(event Event) {
	b.ch <- event
}

// Close closes the delivery channel.
func (b *ChannelBus) Close() {
	b.closeOne.Do(func() { close(b.ch) })
}
