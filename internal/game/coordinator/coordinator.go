// Package coordinator implements the session coordinator: it binds live
// connections to rooms and roles, enforces turn authority, relays chat
// and rematch traffic, and manages disconnect grace and idle cleanup.
//
// Game rules are out of scope. Move legality, board representation, and
// win detection belong to the game-logic collaborator on the client
// side; this package relays and timestamps what it is told.
package coordinator

import (
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/romgon-game/coordinator/internal/config"
	"github.com/romgon-game/coordinator/internal/game/room"
	"github.com/romgon-game/coordinator/internal/protocol"
)

// Event is one inbound occurrence: a decoded client frame or the
// synthetic disconnect the transport emits when a connection drops.
type Event struct {
	// ConnID identifies the originating connection.
	ConnID string
	// Kind is the closed event type.
	Kind protocol.EventKind
	// Payload is the raw JSON payload, decoded per kind by the handler.
	Payload json.RawMessage
}

// session binds a live connection to a room and role.
type session struct {
	code string
	role string
}

// handlerFn processes one event on the dispatch goroutine.
type handlerFn func(c *Coordinator, ev Event)

// Coordinator owns the room registry, the connection-session table, and
// the grace timers, and processes every inbound event to completion
// before the next one begins.
//
// HandleEvent, timer expiry, and the idle sweep all serialize on one
// mutex, so room mutations are atomic with respect to each other.
type Coordinator struct {
	mu       sync.Mutex
	registry *room.Registry
	sessions map[string]session
	grace    *GraceManager
	sender   Sender
	logger   *zap.Logger
	now      func() time.Time

	idleThreshold time.Duration
	handlers      map[protocol.EventKind]handlerFn
}

// New creates a Coordinator.
//
// Precondition: registry, sender, and logger must be non-nil.
// Postcondition: Returns a Coordinator with an empty session table and a
// handler registered for every inbound event kind.
func New(cfg config.RoomConfig, registry *room.Registry, sender Sender, logger *zap.Logger) *Coordinator {
	c := &Coordinator{
		registry:      registry,
		sessions:      make(map[string]session),
		grace:         NewGraceManager(cfg.GraceWindow),
		sender:        sender,
		logger:        logger,
		now:           time.Now,
		idleThreshold: cfg.IdleThreshold,
	}
	c.handlers = map[protocol.EventKind]handlerFn{
		protocol.KindCreateSession:  (*Coordinator).handleCreateSession,
		protocol.KindJoinSession:    (*Coordinator).handleJoinSession,
		protocol.KindMakeMove:       (*Coordinator).handleMakeMove,
		protocol.KindEndTurn:        (*Coordinator).handleEndTurn,
		protocol.KindGameOver:       (*Coordinator).handleGameOver,
		protocol.KindChatMessage:    (*Coordinator).handleChat,
		protocol.KindRequestRematch: (*Coordinator).handleRequestRematch,
		protocol.KindAcceptRematch:  (*Coordinator).handleAcceptRematch,
		protocol.KindHeartbeat:      (*Coordinator).handleHeartbeat,
		protocol.KindDisconnect:     (*Coordinator).handleDisconnect,
	}
	return c
}

// SetClock replaces the coordinator's time source. Test hook.
func (c *Coordinator) SetClock(now func() time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// HandleEvent processes one inbound event to completion.
//
// Postcondition: Any state mutation and its broadcasts happen before the
// next event is admitted.
func (c *Coordinator) HandleEvent(ev Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	h, ok := c.handlers[ev.Kind]
	if !ok {
		c.logger.Warn("unhandled event kind",
			zap.String("kind", string(ev.Kind)),
			zap.String("conn_id", ev.ConnID),
		)
		return
	}
	h(c, ev)
}

// Close cancels all outstanding grace timers.
//
// Postcondition: No armed timer will fire after Close returns.
func (c *Coordinator) Close() {
	c.grace.Stop()
}

// RoomCount returns the number of registered rooms.
func (c *Coordinator) RoomCount() int {
	return c.registry.Count()
}

// sendTo delivers a single envelope to one connection.
func (c *Coordinator) sendTo(connID string, kind protocol.EventKind, payload any) {
	c.sender.Send(connID, protocol.MustEnvelope(kind, payload))
}

// broadcast delivers an envelope to every member of the room, players
// and spectators alike, skipping the connection named by except.
func (c *Coordinator) broadcast(r *room.Room, except string, kind protocol.EventKind, payload any) {
	env := protocol.MustEnvelope(kind, payload)
	for _, id := range r.Members() {
		if id == except {
			continue
		}
		c.sender.Send(id, env)
	}
}
