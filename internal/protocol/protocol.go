// Package protocol defines the wire envelope and payload types exchanged
// between clients and the coordinator over a WebSocket connection.
//
// Every frame is a JSON envelope {"type": ..., "payload": ...}. Inbound
// types form a closed set (EventKind); unknown types are rejected at the
// transport edge before they reach the dispatcher.
package protocol

import (
	"encoding/json"
	"fmt"
)

// EventKind identifies an inbound event. The set is closed: the
// dispatcher's handler table is total over these values.
type EventKind string

const (
	KindCreateSession  EventKind = "create-session"
	KindJoinSession    EventKind = "join-session"
	KindMakeMove       EventKind = "make-move"
	KindEndTurn        EventKind = "end-turn"
	KindGameOver       EventKind = "game-over"
	KindChatMessage    EventKind = "chat-message"
	KindRequestRematch EventKind = "request-rematch"
	KindAcceptRematch  EventKind = "accept-rematch"
	KindHeartbeat      EventKind = "heartbeat"

	// KindDisconnect is synthesized by the transport when a connection's
	// read side terminates. Clients never send it.
	KindDisconnect EventKind = "disconnect"
)

// inboundKinds is the set of kinds accepted from the wire.
var inboundKinds = map[EventKind]bool{
	KindCreateSession:  true,
	KindJoinSession:    true,
	KindMakeMove:       true,
	KindEndTurn:        true,
	KindGameOver:       true,
	KindChatMessage:    true,
	KindRequestRematch: true,
	KindAcceptRematch:  true,
	KindHeartbeat:      true,
}

// ValidInbound reports whether k may arrive from a client.
func ValidInbound(k EventKind) bool {
	return inboundKinds[k]
}

// Envelope is the frame wrapper for both directions. Payload stays raw
// until the handler for the specific kind decodes it.
type Envelope struct {
	Type    EventKind       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload and wraps it with the given type.
//
// Precondition: payload must be JSON-marshalable (or nil).
// Postcondition: Returns a complete Envelope or a non-nil error.
func NewEnvelope(kind EventKind, payload any) (Envelope, error) {
	if payload == nil {
		return Envelope{Type: kind}, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshalling %s payload: %w", kind, err)
	}
	return Envelope{Type: kind, Payload: raw}, nil
}

// MustEnvelope is NewEnvelope for payload types that cannot fail to
// marshal (all outbound payload structs in this package).
func MustEnvelope(kind EventKind, payload any) Envelope {
	env, err := NewEnvelope(kind, payload)
	if err != nil {
		panic(fmt.Sprintf("protocol.MustEnvelope(%s): %v", kind, err))
	}
	return env
}

// Outbound event kinds. These share the EventKind type so envelopes are
// built uniformly, but they are never accepted from the wire.
const (
	TypeSessionCreated       EventKind = "session-created"
	TypeRoomError            EventKind = "room-error"
	TypeError                EventKind = "error"
	TypeJoinedAsSpectator    EventKind = "joined-as-spectator"
	TypeSpectatorJoined      EventKind = "spectator-joined"
	TypeRoomJoined           EventKind = "room-joined"
	TypeOpponentJoined       EventKind = "opponent-joined"
	TypeGameStart            EventKind = "game-start"
	TypeMoveMade             EventKind = "move-made"
	TypeTurnEnded            EventKind = "turn-ended"
	TypeGameEnded            EventKind = "game-ended"
	TypeChatMessage          EventKind = "chat-message"
	TypeRematchRequested     EventKind = "rematch-requested"
	TypeGameReset            EventKind = "game-reset"
	TypeHeartbeatAck         EventKind = "heartbeat-ack"
	TypeOpponentDisconnected EventKind = "opponent-disconnected"
	TypeRoomClosed           EventKind = "room-closed"
	TypeSpectatorLeft        EventKind = "spectator-left"
)

// CreateSessionPayload starts a new room with the sender as black host.
type CreateSessionPayload struct {
	InitialPieces json.RawMessage `json:"initialPieces,omitempty"`
	GameMode      string          `json:"gameMode,omitempty"`
}

// JoinSessionPayload joins an existing room by code.
type JoinSessionPayload struct {
	Code string `json:"roomCode"`
}

// MakeMovePayload carries a move plus a state patch to merge.
type MakeMovePayload struct {
	Move      json.RawMessage `json:"move,omitempty"`
	GameState json.RawMessage `json:"gameState,omitempty"`
}

// EndTurnPayload carries an optional state patch accompanying the turn flip.
type EndTurnPayload struct {
	GameState json.RawMessage `json:"gameState,omitempty"`
}

// GameOverPayload reports the outcome produced by the game-logic collaborator.
type GameOverPayload struct {
	Winner string `json:"winner"`
	Reason string `json:"reason"`
}

// ChatPayload is an inbound chat message.
type ChatPayload struct {
	Message string `json:"message"`
}

// AcceptRematchPayload resets the room with fresh initial placements.
type AcceptRematchPayload struct {
	InitialPieces json.RawMessage `json:"initialPieces,omitempty"`
}

// SessionCreatedPayload answers a successful create-session.
type SessionCreatedPayload struct {
	Code   string `json:"roomCode"`
	Role   string `json:"playerColor"`
	IsHost bool   `json:"isHost"`
}

// ErrorPayload carries a human-readable failure message.
type ErrorPayload struct {
	Message string `json:"message"`
}

// JoinedAsSpectatorPayload answers a join that degraded to spectating.
type JoinedAsSpectatorPayload struct {
	Code      string     `json:"roomCode"`
	GameState *GameState `json:"gameState"`
}

// SpectatorJoinedPayload notifies the room of a new spectator.
type SpectatorJoinedPayload struct {
	SpectatorID    string `json:"spectatorId"`
	SpectatorCount int    `json:"spectatorCount"`
}

// RoomJoinedPayload answers the joiner who took the white slot.
type RoomJoinedPayload struct {
	Code       string     `json:"roomCode"`
	Role       string     `json:"playerColor"`
	OpponentID string     `json:"opponentId"`
	GameState  *GameState `json:"gameState"`
}

// OpponentJoinedPayload notifies the host that white arrived.
type OpponentJoinedPayload struct {
	Role       string `json:"playerColor"`
	OpponentID string `json:"opponentId"`
}

// GameStartPayload announces a full room.
type GameStartPayload struct {
	Black         string `json:"black"`
	White         string `json:"white"`
	CurrentPlayer string `json:"currentPlayer"`
}

// MoveMadePayload broadcasts an applied move.
type MoveMadePayload struct {
	Move      json.RawMessage `json:"move,omitempty"`
	GameState *GameState      `json:"gameState"`
	Role      string          `json:"playerColor"`
}

// TurnEndedPayload broadcasts a turn flip.
type TurnEndedPayload struct {
	CurrentPlayer string     `json:"currentPlayer"`
	GameState     *GameState `json:"gameState"`
}

// GameEndedPayload broadcasts a finished game.
type GameEndedPayload struct {
	Winner    string     `json:"winner"`
	Reason    string     `json:"reason"`
	GameState *GameState `json:"gameState"`
}

// ChatBroadcastPayload relays a chat message to the room.
type ChatBroadcastPayload struct {
	SenderID  string `json:"playerId"`
	Role      string `json:"playerColor"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// RematchRequestedPayload relays a rematch request.
type RematchRequestedPayload struct {
	SenderID string `json:"playerId"`
	Role     string `json:"playerColor"`
}

// GameResetPayload broadcasts the post-rematch state.
type GameResetPayload struct {
	GameState *GameState `json:"gameState"`
}

// OpponentDisconnectedPayload notifies a room that a player dropped.
type OpponentDisconnectedPayload struct {
	Role    string `json:"disconnectedColor"`
	Message string `json:"message"`
}

// RoomClosedPayload announces room deletion.
type RoomClosedPayload struct {
	Reason string `json:"reason"`
}

// SpectatorLeftPayload notifies the room of a spectator departure.
type SpectatorLeftPayload struct {
	SpectatorCount int `json:"spectatorCount"`
}
