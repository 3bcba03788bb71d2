package availability

import (
	"context"
	"sync"
)

// Tracker discards superseded computations. Every Begin bumps a generation counter and
// cancels the context handed out by the previous Begin; a result may only be written
// back while its ticket is still current.
type Tracker struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Ticket identifies one computation started by Tracker.Begin.
type Ticket struct {
	tracker *Tracker
	gen     uint64
}

// Begin starts a computation. The returned context is cancelled when a newer
// computation begins or when Release is called.
func (t *Tracker) Begin(parent context.Context) (context.Context, *Ticket) {
	ctx, cancel := context.WithCancel(parent)

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.gen++
	t.cancel = cancel
	return ctx, &Ticket{tracker: t, gen: t.gen}
}

// Generation is the sequence number Begin assigned to this computation.
func (tk *Ticket) Generation() uint64 {
	return tk.gen
}

// Current reports whether no newer computation has begun.
func (tk *Ticket) Current() bool {
	tk.tracker.mu.Lock()
	defer tk.tracker.mu.Unlock()
	return tk.gen == tk.tracker.gen
}

// Commit runs publish only if the ticket is still current, holding the tracker lock so a
// concurrent Begin cannot interleave.
func (tk *Ticket) Commit(publish func()) bool {
	tk.tracker.mu.Lock()
	defer tk.tracker.mu.Unlock()
	if tk.gen != tk.tracker.gen {
		return false
	}
	publish()
	return true
}

// Release cancels the ticket's context if it is still the latest one.
func (tk *Ticket) Release() {
	tk.tracker.mu.Lock()
	defer tk.tracker.mu.Unlock()
	if tk.gen == tk.tracker.gen && tk.tracker.cancel != nil {
		tk.tracker.cancel()
		tk.tracker.cancel = nil
	}
}
