package ack

import (
	"context"
	"sync"
	"time"
)

// Result reports how a call to Await resolved.
type Result int

const (
	// Acknowledged means the consumer signalled playback completion in time.
	Acknowledged Result = iota
	// TimedOut means the fallback timeout elapsed with no acknowledgment.
	TimedOut
	// Cancelled means the caller's context ended before either.
	Cancelled
)

// String returns a readable name for the result, for logs.
func (r Result) String() string {
	switch r {
	case Acknowledged:
		return "acknowledged"
	case TimedOut:
		return "timed_out"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// waiter is one armed wait cycle. The channel is buffered so the resolving
// side never blocks; ownership of the send is decided under the gate mutex.
type waiter struct {
	ch    chan Result
	timer *time.Timer
}

// Gate arbitrates turn-to-turn pacing for all rooms. At most one waiter is
// pending per room at any time: arming a new wait discards any stale waiter
// and its timer, so two timers can never fire for the same logical turn.
//
// The waiter slot is cleared under the mutex before either resolution path
// delivers its result, which makes the paths mutually exclusive: a late timer
// after an acknowledgment, or a late acknowledgment after a timeout, finds
// the slot already cleared and becomes a no-op.
type Gate struct {
	mu      sync.Mutex
	waiters map[string]*waiter
}

// NewGate constructs an empty gate.
func NewGate() *Gate {
	return &Gate{waiters: make(map[string]*waiter)}
}

// Await blocks until Acknowledge is called for the room, the timeout
// elapses, or ctx is done. It returns exactly once per call.
func (g *Gate) Await(ctx context.Context, roomID string, timeout time.Duration) Result {
	w := g.arm(roomID, timeout)

	select {
	case res := <-w.ch:
		return res
	case <-ctx.Done():
		g.clear(roomID, w)
		// The waiter may have been resolved concurrently with cancellation;
		// prefer the delivered result so it is not lost.
		select {
		case res := <-w.ch:
			return res
		default:
			return Cancelled
		}
	}
}

// Acknowledge resolves the room's pending waiter, if any. It reports whether
// a waiter was pending; calling it for a room with no waiter is a no-op.
func (g *Gate) Acknowledge(roomID string) bool {
	g.mu.Lock()
	w, ok := g.waiters[roomID]
	if !ok {
		g.mu.Unlock()
		return false
	}
	delete(g.waiters, roomID)
	w.timer.Stop()
	g.mu.Unlock()

	w.ch <- Acknowledged
	return true
}

// Discard drops any lingering waiter for the room and stops its timer. The
// orchestrator calls this when a session ends so nothing leaks between runs;
// it does not resolve an in-flight Await.
func (g *Gate) Discard(roomID string) {
	g.mu.Lock()
	if w, ok := g.waiters[roomID]; ok {
		delete(g.waiters, roomID)
		w.timer.Stop()
	}
	g.mu.Unlock()
}

// Pending reports whether the room currently has an armed waiter.
func (g *Gate) Pending(roomID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.waiters[roomID]
	return ok
}

// arm installs a fresh waiter for the room, discarding any stale one first.
// The timer is created under the mutex so the waiter is never visible to
// Acknowledge without one; an immediately firing timer blocks in expire
// until arm releases the lock.
func (g *Gate) arm(roomID string, timeout time.Duration) *waiter {
	g.mu.Lock()
	if old, ok := g.waiters[roomID]; ok {
		old.timer.Stop()
	}
	w := &waiter{ch: make(chan Result, 1)}
	w.timer = time.AfterFunc(timeout, func() { g.expire(roomID, w) })
	g.waiters[roomID] = w
	g.mu.Unlock()
	return w
}

// expire resolves the waiter with TimedOut unless something else already won.
func (g *Gate) expire(roomID string, w *waiter) {
	g.mu.Lock()
	if g.waiters[roomID] != w {
		g.mu.Unlock()
		return
	}
	delete(g.waiters, roomID)
	g.mu.Unlock()

	w.ch <- TimedOut
}

// clear removes the waiter if it is still the room's current one.
func (g *Gate) clear(roomID string, w *waiter) {
	g.mu.Lock()
	if g.waiters[roomID] == w {
		delete(g.waiters, roomID)
		w.timer.Stop()
	}
	g.mu.Unlock()
}
