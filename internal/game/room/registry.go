package room

import (
	"fmt"
	"sync"
	"time"

	"github.com/romgon-game/coordinator/internal/protocol"
)

// Registry is the in-memory store of active rooms, keyed by room code.
// All methods are safe for concurrent use, though in practice every
// mutation arrives from the single dispatcher goroutine.
type Registry struct {
	mu      sync.RWMutex
	rooms   map[string]*Room
	codes   CodeGenerator
	retries int
	now     func() time.Time
}

// NewRegistry creates an empty Registry using the given code generator.
//
// Precondition: codes must be non-nil; retries must be >= 1.
// Postcondition: Returns a Registry with no rooms.
func NewRegistry(codes CodeGenerator, retries int) *Registry {
	if retries < 1 {
		panic("room: NewRegistry called with retries < 1")
	}
	return &Registry{
		rooms:   make(map[string]*Room),
		codes:   codes,
		retries: retries,
		now:     time.Now,
	}
}

// SetClock replaces the registry's time source. Test hook.
func (reg *Registry) SetClock(now func() time.Time) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.now = now
}

// Create allocates a fresh code, builds a room with the creator in the
// black slot, and registers it.
//
// The generator does not check uniqueness, so Create retries on the
// unlikely collision with a registered code, up to the configured bound.
//
// Precondition: hostConnID must be non-empty; state must be non-nil.
// Postcondition: Returns a registered Room whose black slot is
// hostConnID and whose white slot is empty, or an error after the retry
// budget is exhausted.
func (reg *Registry) Create(hostConnID string, state *protocol.GameState) (*Room, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	var code string
	for attempt := 0; attempt < reg.retries; attempt++ {
		candidate := reg.codes.Generate()
		if _, taken := reg.rooms[candidate]; !taken {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, fmt.Errorf("allocating room code: %d consecutive collisions", reg.retries)
	}

	now := reg.now()
	r := &Room{
		Code:         code,
		Players:      Slots{Black: hostConnID},
		State:        state,
		CreatedAt:    now,
		LastActivity: now,
		HostColor:    protocol.ColorBlack,
	}
	reg.rooms[code] = r
	return r, nil
}

// Get returns the room registered under code.
//
// Postcondition: Returns (room, true) if found, or (nil, false) otherwise.
func (reg *Registry) Get(code string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	r, ok := reg.rooms[code]
	return r, ok
}

// Delete removes the room registered under code.
//
// Postcondition: Returns true when a room was removed.
func (reg *Registry) Delete(code string) bool {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, ok := reg.rooms[code]; !ok {
		return false
	}
	delete(reg.rooms, code)
	return true
}

// Count returns the number of registered rooms.
func (reg *Registry) Count() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// ForEach invokes fn for every registered room. The snapshot is taken
// under the lock; fn runs outside it, so fn may call Delete.
func (reg *Registry) ForEach(fn func(r *Room)) {
	reg.mu.RLock()
	snapshot := make([]*Room, 0, len(reg.rooms))
	for _, r := range reg.rooms {
		snapshot = append(snapshot, r)
	}
	reg.mu.RUnlock()

	for _, r := range snapshot {
		fn(r)
	}
}
