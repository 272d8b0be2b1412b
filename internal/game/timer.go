package game

import (
	"sync"
	"time"
)

// Timer slot names. At most one timer runs per slot per game.
const (
	TimerRon   = "ronTimer"
	TimerDoubt = "doubtTimer"
)

// TimerRegistry manages named, single-shot, cancellable timers for one room.
// It is the only source of "time passes" in the engine. The registry only
// guarantees callback-or-cancellation; state safety across the cancel/expiry
// race is enforced by the Engine's phase checks under its mutex.
type TimerRegistry struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewTimerRegistry returns an empty registry.
func NewTimerRegistry() *TimerRegistry {
	return &TimerRegistry{
		timers: make(map[string]*time.Timer),
	}
}

// Start schedules onExpire to run once after d. A timer already running
// under name is silently replaced.
func (r *TimerRegistry) Start(name string, d time.Duration, onExpire func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.timers[name]; ok {
		old.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(d, func() {
		r.mu.Lock()
		// Drop the slot only if it still refers to this timer; a Start that
		// raced the expiry owns the slot now.
		if r.timers[name] == t {
			delete(r.timers, name)
		}
		r.mu.Unlock()
		onExpire()
	})
	r.timers[name] = t
}

// Cancel stops the timer under name. Cancelling an unscheduled or
// already-fired timer is a no-op.
func (r *TimerRegistry) Cancel(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.timers[name]; ok {
		t.Stop()
		delete(r.timers, name)
	}
}

// CancelAll stops every slot. Used on terminal transitions and room
// teardown so no expiry callback fires into a destroyed room.
func (r *TimerRegistry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, t := range r.timers {
		t.Stop()
		delete(r.timers, name)
	}
}
