package jobs

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrWatcherClosed reports that the watcher shut down while a caller was
// waiting on it.
var ErrWatcherClosed = errors.New("watcher closed")

// Snapshot is a consistent copy of all jobs keyed by job id. Observers
// receive copies and may inspect them without synchronization.
type Snapshot map[string]*Job

// DefaultThrottleWindow bounds how often bare progress ticks reach
// observers.
const DefaultThrottleWindow = 250 * time.Millisecond

// Watcher fans job snapshots out to observers. Status-changing mutations
// publish synchronously; bare progress ticks are coalesced so that at most
// one publish fires per throttle window, always reflecting the latest
// state rather than replaying intermediate values.
type Watcher struct {
	window time.Duration

	mu      sync.Mutex
	subs    map[uint64]chan Snapshot
	nextSub uint64
	timer   *time.Timer
	pending Snapshot
	gen     uint64
	latest  Snapshot
	closed  bool
}

// NewWatcher constructs a watcher with the given throttle window. A
// non-positive window falls back to DefaultThrottleWindow.
func NewWatcher(window time.Duration) *Watcher {
	if window <= 0 {
		window = DefaultThrottleWindow
	}
	return &Watcher{
		window: window,
		subs:   make(map[uint64]chan Snapshot),
	}
}

// Subscribe registers an observer. The returned channel holds the latest
// snapshot; slow observers skip intermediate states instead of blocking
// publishers. The cancel function unregisters the observer and closes the
// channel.
func (w *Watcher) Subscribe() (<-chan Snapshot, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		ch := make(chan Snapshot)
		close(ch)
		return ch, func() {}
	}
	w.nextSub++
	id := w.nextSub
	ch := make(chan Snapshot, 1)
	w.subs[id] = ch
	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if sub, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(sub)
		}
	}
}

// Publish delivers a snapshot to observers. Immediate publishes go out
// synchronously and absorb any pending throttled state, since the new
// snapshot already reflects it. Throttled publishes are held until the
// window closes; later publishes within the same window replace the held
// snapshot.
func (w *Watcher) Publish(snapshot Snapshot, immediate bool) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	if immediate {
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		w.pending = nil
		w.deliverLocked(snapshot)
		w.mu.Unlock()
		return
	}

	w.pending = snapshot
	if w.timer == nil {
		w.timer = time.AfterFunc(w.window, w.flush)
	}
	w.mu.Unlock()
}

func (w *Watcher) flush() {
	w.mu.Lock()
	w.timer = nil
	snapshot := w.pending
	w.pending = nil
	if snapshot != nil && !w.closed {
		w.deliverLocked(snapshot)
	}
	w.mu.Unlock()
}

// Since returns the latest delivered snapshot together with its sequence
// number when one newer than cursor exists; otherwise it blocks until the
// next delivery, the context ends, or the watcher closes. It is the
// long-poll counterpart to Subscribe: a caller that cannot hold a channel
// across calls re-polls with the cursor it last saw and observes the same
// throttled stream.
func (w *Watcher) Since(ctx context.Context, cursor uint64) (Snapshot, uint64, error) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, cursor, ErrWatcherClosed
	}
	if w.gen > cursor {
		snapshot, gen := w.latest, w.gen
		w.mu.Unlock()
		return snapshot, gen, nil
	}
	w.nextSub++
	id := w.nextSub
	ch := make(chan Snapshot, 1)
	w.subs[id] = ch
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		if sub, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(sub)
		}
		w.mu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return nil, cursor, ctx.Err()
	case _, ok := <-ch:
		if !ok {
			return nil, cursor, ErrWatcherClosed
		}
		w.mu.Lock()
		snapshot, gen := w.latest, w.gen
		w.mu.Unlock()
		return snapshot, gen, nil
	}
}

func (w *Watcher) deliverLocked(snapshot Snapshot) {
	w.gen++
	w.latest = snapshot
	for _, ch := range w.subs {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale snapshot the observer has not consumed yet.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

// Close stops the throttle timer and closes all observer channels.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.pending = nil
	for id, ch := range w.subs {
		delete(w.subs, id)
		close(ch)
	}
}
