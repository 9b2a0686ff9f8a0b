package coordinator

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/romgon-game/coordinator/internal/protocol"
)

// handleMakeMove validates turn authority, merges the caller's state
// patch, and broadcasts the move. It deliberately does not flip
// CurrentPlayer: a single logical turn may span several move messages
// before the separate end-turn event closes it.
func (c *Coordinator) handleMakeMove(ev Event) {
	sess, bound := c.sessions[ev.ConnID]
	if !bound {
		c.sendTo(ev.ConnID, protocol.TypeError, protocol.ErrorPayload{Message: "Room not found"})
		return
	}
	r, ok := c.registry.Get(sess.code)
	if !ok {
		c.sendTo(ev.ConnID, protocol.TypeError, protocol.ErrorPayload{Message: "Room not found"})
		return
	}

	// Turn violation: error to the sender only, state untouched.
	if r.State.CurrentPlayer != sess.role {
		c.sendTo(ev.ConnID, protocol.TypeError, protocol.ErrorPayload{Message: "Not your turn!"})
		return
	}

	var payload protocol.MakeMovePayload
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			c.sendTo(ev.ConnID, protocol.TypeError, protocol.ErrorPayload{Message: "Invalid move payload"})
			return
		}
	}

	if err := r.State.ApplyPatch(payload.GameState); err != nil {
		c.sendTo(ev.ConnID, protocol.TypeError, protocol.ErrorPayload{Message: "Invalid game state patch"})
		return
	}
	r.Touch(c.now())

	c.broadcast(r, "", protocol.TypeMoveMade, protocol.MoveMadePayload{
		Move:      payload.Move,
		GameState: r.State,
		Role:      sess.role,
	})

	c.logger.Debug("move made",
		zap.String("room", sess.code),
		zap.String("role", sess.role),
	)
}

// handleEndTurn toggles CurrentPlayer and merges any accompanying
// patch. No role check is performed, and a missing room is a silent
// no-op; both follow the observed behavior of the reference server.
func (c *Coordinator) handleEndTurn(ev Event) {
	sess, bound := c.sessions[ev.ConnID]
	if !bound {
		return
	}
	r, ok := c.registry.Get(sess.code)
	if !ok {
		return
	}

	var payload protocol.EndTurnPayload
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return
		}
	}

	r.State.ToggleTurn()
	if err := r.State.ApplyPatch(payload.GameState); err != nil {
		c.logger.Warn("discarding bad end-turn patch",
			zap.String("room", sess.code),
			zap.Error(err),
		)
	}
	r.Touch(c.now())

	c.broadcast(r, "", protocol.TypeTurnEnded, protocol.TurnEndedPayload{
		CurrentPlayer: r.State.CurrentPlayer,
		GameState:     r.State,
	})

	c.logger.Debug("turn ended",
		zap.String("room", sess.code),
		zap.String("current_player", r.State.CurrentPlayer),
	)
}

// handleGameOver marks the state terminal with the caller's verbatim
// outcome. The room is kept alive for rematch negotiation; a missing
// room is a silent no-op.
func (c *Coordinator) handleGameOver(ev Event) {
	sess, bound := c.sessions[ev.ConnID]
	if !bound {
		return
	}
	r, ok := c.registry.Get(sess.code)
	if !ok {
		return
	}

	var payload protocol.GameOverPayload
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return
		}
	}

	r.State.SetGameOver(payload.Winner, payload.Reason)
	r.Touch(c.now())

	c.broadcast(r, "", protocol.TypeGameEnded, protocol.GameEndedPayload{
		Winner:    payload.Winner,
		Reason:    payload.Reason,
		GameState: r.State,
	})

	c.logger.Info("game over",
		zap.String("room", sess.code),
		zap.String("winner", payload.Winner),
		zap.String("reason", payload.Reason),
	)
}

// handleChat relays a chat message to the whole room with the sender's
// id, role, and a server timestamp. Connections outside any room are
// silently ignored.
func (c *Coordinator) handleChat(ev Event) {
	sess, bound := c.sessions[ev.ConnID]
	if !bound {
		return
	}
	r, ok := c.registry.Get(sess.code)
	if !ok {
		return
	}

	var payload protocol.ChatPayload
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return
		}
	}

	c.broadcast(r, "", protocol.TypeChatMessage, protocol.ChatBroadcastPayload{
		SenderID:  ev.ConnID,
		Role:      sess.role,
		Message:   payload.Message,
		Timestamp: c.now().UnixMilli(),
	})
}

// handleRequestRematch relays a rematch-requested notice. No state is
// mutated.
func (c *Coordinator) handleRequestRematch(ev Event) {
	sess, bound := c.sessions[ev.ConnID]
	if !bound {
		return
	}
	r, ok := c.registry.Get(sess.code)
	if !ok {
		return
	}

	c.broadcast(r, "", protocol.TypeRematchRequested, protocol.RematchRequestedPayload{
		SenderID: ev.ConnID,
		Role:     sess.role,
	})
}

// handleAcceptRematch replaces the game state wholesale with a fresh
// record, preserving only the game mode, and broadcasts the reset.
func (c *Coordinator) handleAcceptRematch(ev Event) {
	sess, bound := c.sessions[ev.ConnID]
	if !bound {
		return
	}
	r, ok := c.registry.Get(sess.code)
	if !ok {
		return
	}

	var payload protocol.AcceptRematchPayload
	if len(ev.Payload) > 0 {
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return
		}
	}

	r.State = r.State.ResetForRematch(payload.InitialPieces)
	r.Touch(c.now())

	c.broadcast(r, "", protocol.TypeGameReset, protocol.GameResetPayload{
		GameState: r.State,
	})

	c.logger.Info("rematch started",
		zap.String("room", sess.code),
		zap.String("game_mode", r.State.GameMode),
	)
}

// handleHeartbeat answers the sender directly. Heartbeats never touch
// room state or activity timestamps.
func (c *Coordinator) handleHeartbeat(ev Event) {
	c.sendTo(ev.ConnID, protocol.TypeHeartbeatAck, nil)
}
