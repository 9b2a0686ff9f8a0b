// Package room holds the in-memory room model, room-code generation,
// and the registry of active rooms.
package room

import (
	"time"

	"github.com/romgon-game/coordinator/internal/protocol"
)

// Slots holds the two authoritative player positions. An empty string
// means the slot is open.
type Slots struct {
	Black string
	White string
}

// Room is one match's shared state: two player slots, an ordered
// spectator list, and the game state, addressed by a room code.
//
// Rooms carry no lock of their own. All mutation happens on the
// dispatcher goroutine; the Registry only guards its map.
//
// Invariant: the black slot is filled at creation and never becomes
// empty before white does, except through black's own disconnect.
type Room struct {
	// Code is the room's identity.
	Code string
	// Players holds the black and white slot occupants (connection ids).
	Players Slots
	// Spectators is the ordered set of spectating connection ids.
	Spectators []string
	// State is the shared game state.
	State *protocol.GameState
	// CreatedAt is when the room was registered.
	CreatedAt time.Time
	// LastActivity is bumped on every mutating event; the idle sweeper
	// reclaims rooms whose LastActivity is too old.
	LastActivity time.Time
	// HostColor is fixed to black: the creator always takes that slot.
	HostColor string
}

// Touch records activity at the given instant.
func (r *Room) Touch(now time.Time) {
	r.LastActivity = now
}

// RoleOf returns the role the given connection holds in this room, or
// ("", false) when the connection is not a member.
//
// Postcondition: A connection holds at most one role.
func (r *Room) RoleOf(connID string) (string, bool) {
	switch connID {
	case "":
		return "", false
	case r.Players.Black:
		return protocol.ColorBlack, true
	case r.Players.White:
		return protocol.ColorWhite, true
	}
	for _, id := range r.Spectators {
		if id == connID {
			return protocol.RoleSpectator, true
		}
	}
	return "", false
}

// HoldsSlot reports whether connID currently occupies a player slot.
func (r *Room) HoldsSlot(connID string) bool {
	return connID != "" && (r.Players.Black == connID || r.Players.White == connID)
}

// AddSpectator appends connID to the spectator list.
//
// Postcondition: Returns the new spectator count.
func (r *Room) AddSpectator(connID string) int {
	r.Spectators = append(r.Spectators, connID)
	return len(r.Spectators)
}

// RemoveSpectator deletes connID from the spectator list, preserving order.
//
// Postcondition: Returns the remaining count and whether connID was present.
func (r *Room) RemoveSpectator(connID string) (int, bool) {
	for i, id := range r.Spectators {
		if id == connID {
			r.Spectators = append(r.Spectators[:i], r.Spectators[i+1:]...)
			return len(r.Spectators), true
		}
	}
	return len(r.Spectators), false
}

// Members returns every connection currently joined to the room:
// occupied player slots first, then spectators in join order.
func (r *Room) Members() []string {
	members := make([]string, 0, 2+len(r.Spectators))
	if r.Players.Black != "" {
		members = append(members, r.Players.Black)
	}
	if r.Players.White != "" {
		members = append(members, r.Players.White)
	}
	members = append(members, r.Spectators...)
	return members
}
