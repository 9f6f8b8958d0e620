package relay

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/fabian-lindhardt/ableton-ebs/internal/domain"
	"github.com/fabian-lindhardt/ableton-ebs/internal/metrics"
)

// DefaultThrottleInterval caps per-key emissions at 20Hz — smooth fader
// motion on the viewer side without flooding the rate-limited PubSub API.
const DefaultThrottleInterval = 50 * time.Millisecond

type throttleEntry struct {
	lastEmit time.Time
	timer    clockwork.Timer
	pending  domain.SyncData

	// gen invalidates an already-fired timer that lost the race against a
	// replacing Admit. Only the generation that scheduled the timer may emit.
	gen uint64
}

// Throttle enforces a minimum inter-emission interval per control key.
// Policy: leading edge if the key is idle, trailing edge if busy — the most
// recent value in a burst is always emitted, intermediate values are
// coalesced away. At most one pending timer exists per key; a new arrival
// cancels and replaces it.
//
// Admit is called from the relay actor goroutine; trailing timers fire on
// the clock's goroutine, so the entry map needs its own lock.
type Throttle struct {
	clock    clockwork.Clock
	interval time.Duration
	emit     func(domain.SyncData)

	mu      sync.Mutex
	entries map[domain.ControlKey]*throttleEntry
}

// NewThrottle creates a throttle. emit is invoked only for trailing-edge
// fires, from the timer's goroutine; leading-edge emissions are returned
// synchronously by Admit so the caller emits on its own goroutine.
func NewThrottle(clock clockwork.Clock, interval time.Duration, emit func(domain.SyncData)) *Throttle {
	return &Throttle{
		clock:    clock,
		interval: interval,
		emit:     emit,
		entries:  make(map[domain.ControlKey]*throttleEntry),
	}
}

// Admit offers a value for emission. Returns true when the value should be
// emitted immediately (the key was idle); otherwise the value becomes the
// pending trailing-edge value for its key and emit fires later. Values are
// never validated or dropped outright.
func (t *Throttle) Admit(d domain.SyncData) bool {
	key := d.Key()

	t.mu.Lock()
	entry, ok := t.entries[key]
	if !ok {
		entry = &throttleEntry{}
		t.entries[key] = entry
	}

	if entry.timer != nil {
		entry.timer.Stop()
		entry.timer = nil
		entry.gen++
		metrics.RelayCoalescedTotal.Inc()
	}

	now := t.clock.Now()
	elapsed := now.Sub(entry.lastEmit)
	if elapsed >= t.interval {
		entry.lastEmit = now
		t.mu.Unlock()
		return true
	}

	entry.pending = d
	gen := entry.gen
	entry.timer = t.clock.AfterFunc(t.interval-elapsed, func() { t.fire(key, gen) })
	t.mu.Unlock()
	return false
}

func (t *Throttle) fire(key domain.ControlKey, gen uint64) {
	t.mu.Lock()
	entry, ok := t.entries[key]
	if !ok || entry.gen != gen {
		// Superseded by a newer Admit between firing and taking the lock.
		t.mu.Unlock()
		return
	}
	entry.timer = nil
	entry.gen++
	entry.lastEmit = t.clock.Now()
	d := entry.pending
	t.mu.Unlock()

	t.emit(d)
}

// Stop cancels all pending timers. Pending values are discarded.
func (t *Throttle) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, entry := range t.entries {
		if entry.timer != nil {
			entry.timer.Stop()
			entry.timer = nil
			entry.gen++
		}
	}
}
