package coordinator

import (
	"sync"
	"time"
)

// graceTimer pairs an armed timer with the room it guards.
type graceTimer struct {
	code  string
	timer *time.Timer
}

// GraceManager arms single-shot timers that delay room deletion after a
// player disconnect. Timers are keyed by connection id and are
// cancelable, so a room deleted through any other path (idle sweep, the
// other player's grace expiry) cannot be deleted or announced twice.
type GraceManager struct {
	mu     sync.Mutex
	window time.Duration
	timers map[string]*graceTimer
}

// NewGraceManager creates a GraceManager with the given grace window.
//
// Precondition: window > 0. Panics otherwise.
func NewGraceManager(window time.Duration) *GraceManager {
	if window <= 0 {
		panic("coordinator: NewGraceManager called with window <= 0")
	}
	return &GraceManager{
		window: window,
		timers: make(map[string]*graceTimer),
	}
}

// Arm schedules fire to run after the grace window, keyed by connID.
// Arming an id that already holds a timer replaces it.
//
// Precondition: connID and code must be non-empty; fire must be non-nil.
func (g *GraceManager) Arm(connID, code string, fire func()) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if old, ok := g.timers[connID]; ok {
		old.timer.Stop()
	}

	g.timers[connID] = &graceTimer{
		code: code,
		timer: time.AfterFunc(g.window, func() {
			g.forget(connID)
			fire()
		}),
	}
}

// forget drops the bookkeeping entry for a timer that has fired.
func (g *GraceManager) forget(connID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.timers, connID)
}

// Cancel stops and removes the timer armed for connID.
//
// Postcondition: Returns true when a timer was armed.
func (g *GraceManager) Cancel(connID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	t, ok := g.timers[connID]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(g.timers, connID)
	return true
}

// CancelRoom stops every timer guarding the given room.
//
// Postcondition: Returns the number of timers canceled.
func (g *GraceManager) CancelRoom(code string) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	canceled := 0
	for connID, t := range g.timers {
		if t.code == code {
			t.timer.Stop()
			delete(g.timers, connID)
			canceled++
		}
	}
	return canceled
}

// Armed returns the number of outstanding timers.
func (g *GraceManager) Armed() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.timers)
}

// Stop cancels every outstanding timer.
//
// Postcondition: No armed timer will fire after Stop returns, except
// timers already mid-fire on another goroutine.
func (g *GraceManager) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for connID, t := range g.timers {
		t.timer.Stop()
		delete(g.timers, connID)
	}
}
