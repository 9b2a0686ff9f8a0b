package coordinator

import (
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/romgon-game/coordinator/internal/game/room"
	"github.com/romgon-game/coordinator/internal/protocol"
)

// handleCreateSession builds a new room with the sender as the black
// host and answers with the assigned code and role.
func (c *Coordinator) handleCreateSession(ev Event) {
	if _, bound := c.sessions[ev.ConnID]; bound {
		c.sendTo(ev.ConnID, protocol.TypeRoomError, protocol.ErrorPayload{Message: "Already in a room"})
		return
	}

	var payload protocol.CreateSessionPayload
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			c.sendTo(ev.ConnID, protocol.TypeRoomError, protocol.ErrorPayload{Message: "Invalid create-session payload"})
			return
		}
	}

	state := protocol.NewGameState(payload.InitialPieces, payload.GameMode)
	r, err := c.registry.Create(ev.ConnID, state)
	if err != nil {
		c.logger.Error("creating room", zap.Error(err))
		c.sendTo(ev.ConnID, protocol.TypeRoomError, protocol.ErrorPayload{Message: "Could not create room"})
		return
	}

	c.sessions[ev.ConnID] = session{code: r.Code, role: protocol.ColorBlack}

	c.logger.Info("room created",
		zap.String("room", r.Code),
		zap.String("conn_id", ev.ConnID),
		zap.String("game_mode", state.GameMode),
	)

	c.sendTo(ev.ConnID, protocol.TypeSessionCreated, protocol.SessionCreatedPayload{
		Code:   r.Code,
		Role:   protocol.ColorBlack,
		IsHost: true,
	})
}

// handleJoinSession fills the white slot if it is open, otherwise
// degrades the joiner to a spectator. An unknown code is answered with
// room-error and mutates nothing.
func (c *Coordinator) handleJoinSession(ev Event) {
	if _, bound := c.sessions[ev.ConnID]; bound {
		c.sendTo(ev.ConnID, protocol.TypeRoomError, protocol.ErrorPayload{Message: "Already in a room"})
		return
	}

	var payload protocol.JoinSessionPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil || payload.Code == "" {
		c.sendTo(ev.ConnID, protocol.TypeRoomError, protocol.ErrorPayload{Message: "Room not found. Please check the code."})
		return
	}

	code := strings.ToUpper(payload.Code)
	r, ok := c.registry.Get(code)
	if !ok {
		c.sendTo(ev.ConnID, protocol.TypeRoomError, protocol.ErrorPayload{Message: "Room not found. Please check the code."})
		return
	}

	// White taken: degrade to spectator. Not an error.
	if r.Players.White != "" {
		count := r.AddSpectator(ev.ConnID)
		c.sessions[ev.ConnID] = session{code: code, role: protocol.RoleSpectator}

		c.sendTo(ev.ConnID, protocol.TypeJoinedAsSpectator, protocol.JoinedAsSpectatorPayload{
			Code:      code,
			GameState: r.State,
		})
		c.broadcast(r, "", protocol.TypeSpectatorJoined, protocol.SpectatorJoinedPayload{
			SpectatorID:    ev.ConnID,
			SpectatorCount: count,
		})

		c.logger.Info("spectator joined",
			zap.String("room", code),
			zap.String("conn_id", ev.ConnID),
			zap.Int("spectators", count),
		)
		return
	}

	r.Players.White = ev.ConnID
	r.Touch(c.now())
	c.sessions[ev.ConnID] = session{code: code, role: protocol.ColorWhite}

	c.logger.Info("player joined",
		zap.String("room", code),
		zap.String("conn_id", ev.ConnID),
		zap.String("role", protocol.ColorWhite),
	)

	c.sendTo(r.Players.Black, protocol.TypeOpponentJoined, protocol.OpponentJoinedPayload{
		Role:       protocol.ColorBlack,
		OpponentID: ev.ConnID,
	})
	c.sendTo(ev.ConnID, protocol.TypeRoomJoined, protocol.RoomJoinedPayload{
		Code:       code,
		Role:       protocol.ColorWhite,
		OpponentID: r.Players.Black,
		GameState:  r.State,
	})
	c.broadcast(r, "", protocol.TypeGameStart, protocol.GameStartPayload{
		Black:         r.Players.Black,
		White:         r.Players.White,
		CurrentPlayer: r.State.CurrentPlayer,
	})
}

// handleDisconnect reacts to a transport-level connection drop. Player
// drops notify the room immediately and arm a grace timer; the room is
// deleted only when the timer fires with the slot still unreclaimed.
// Spectator drops just shrink the spectator list.
func (c *Coordinator) handleDisconnect(ev Event) {
	sess, bound := c.sessions[ev.ConnID]
	if !bound {
		return
	}
	delete(c.sessions, ev.ConnID)

	r, ok := c.registry.Get(sess.code)
	if !ok {
		return
	}

	role, member := r.RoleOf(ev.ConnID)
	if !member {
		return
	}

	if role != protocol.RoleSpectator {
		c.broadcast(r, ev.ConnID, protocol.TypeOpponentDisconnected, protocol.OpponentDisconnectedPayload{
			Role:    role,
			Message: strings.ToUpper(role) + " player disconnected",
		})

		c.logger.Info("player disconnected",
			zap.String("room", sess.code),
			zap.String("conn_id", ev.ConnID),
			zap.String("role", role),
		)

		connID, code := ev.ConnID, sess.code
		c.grace.Arm(connID, code, func() {
			c.expireGrace(connID, code)
		})
		return
	}

	count, _ := r.RemoveSpectator(ev.ConnID)
	c.broadcast(r, "", protocol.TypeSpectatorLeft, protocol.SpectatorLeftPayload{
		SpectatorCount: count,
	})
	c.logger.Info("spectator left",
		zap.String("room", sess.code),
		zap.String("conn_id", ev.ConnID),
		zap.Int("spectators", count),
	)
}

// unbindRoom releases every member's session binding so survivors can
// create or join a fresh room immediately.
func (c *Coordinator) unbindRoom(r *room.Room) {
	for _, id := range r.Members() {
		delete(c.sessions, id)
	}
}

// expireGrace runs when a disconnect grace timer fires. If the room is
// still registered and the dropped connection still holds its slot, the
// room is deleted and the remaining members are told.
func (c *Coordinator) expireGrace(connID, code string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.registry.Get(code)
	if !ok {
		return
	}
	if !r.HoldsSlot(connID) {
		return
	}

	c.registry.Delete(code)
	c.grace.CancelRoom(code)
	c.unbindRoom(r)

	c.broadcast(r, connID, protocol.TypeRoomClosed, protocol.RoomClosedPayload{
		Reason: "Player abandoned game",
	})

	c.logger.Info("room closed after grace window",
		zap.String("room", code),
		zap.String("conn_id", connID),
	)
}

// SweepIdle deletes every room whose last activity predates the idle
// threshold at sweep time. Armed grace timers for reclaimed rooms are
// canceled so they cannot fire a second deletion.
//
// Postcondition: Returns the number of rooms reclaimed. Rooms with
// activity inside the threshold are untouched.
func (c *Coordinator) SweepIdle() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := c.now().Add(-c.idleThreshold)
	reclaimed := 0
	c.registry.ForEach(func(r *room.Room) {
		// Strictly older than the threshold; a room exactly at the
		// boundary survives this sweep.
		if !r.LastActivity.Before(cutoff) {
			return
		}
		c.registry.Delete(r.Code)
		c.grace.CancelRoom(r.Code)
		c.unbindRoom(r)
		reclaimed++
		c.logger.Info("idle room swept",
			zap.String("room", r.Code),
			zap.Time("last_activity", r.LastActivity),
		)
	})
	return reclaimed
}
