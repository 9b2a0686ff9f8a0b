package protocol

import (
	"encoding/json"
	"fmt"
)

// Color tokens for the two player slots.
const (
	ColorBlack = "black"
	ColorWhite = "white"

	// RoleSpectator is the role string for read-only connections.
	RoleSpectator = "spectator"
)

// DefaultGameMode is used when a create-session omits the mode tag.
const DefaultGameMode = "full"

// OtherColor returns the opposing color token.
//
// Precondition: color is ColorBlack or ColorWhite.
// Postcondition: Returns exactly one of the two color tokens.
func OtherColor(color string) string {
	if color == ColorBlack {
		return ColorWhite
	}
	return ColorBlack
}

// GameState is the shared match state held by a room. The coordinator
// owns the well-known fields; everything the game-logic collaborator
// produces (piece placements, move history, orientation map) is opaque
// JSON relayed verbatim. Unknown client-supplied keys land in Extra.
type GameState struct {
	// CurrentPlayer is the color authorized to submit moves.
	CurrentPlayer string
	// GameOver marks the terminal state.
	GameOver bool
	// Winner and Reason are recorded verbatim from the game-over event.
	Winner string
	Reason string
	// GameMode tags the match variant. Survives a rematch reset.
	GameMode string

	// Pieces, MoveHistory, and Orientations are opaque game-logic fields.
	Pieces       json.RawMessage
	MoveHistory  json.RawMessage
	Orientations json.RawMessage

	// Extra holds any other client-supplied keys, merged verbatim.
	Extra map[string]json.RawMessage
}

var (
	emptyArray  = json.RawMessage("[]")
	emptyObject = json.RawMessage("{}")
)

// protectedKeys are owned by the coordinator's state machine and are
// never overwritten by a client patch.
var protectedKeys = map[string]bool{
	"currentPlayer": true,
	"gameOver":      true,
	"winner":        true,
	"reason":        true,
	"gameMode":      true,
}

// NewGameState builds the initial state for a fresh room.
//
// Postcondition: CurrentPlayer is black, GameOver is false, opaque
// fields are non-nil, GameMode defaults to DefaultGameMode when empty.
func NewGameState(initialPieces json.RawMessage, gameMode string) *GameState {
	if len(initialPieces) == 0 {
		initialPieces = emptyArray
	}
	if gameMode == "" {
		gameMode = DefaultGameMode
	}
	return &GameState{
		CurrentPlayer: ColorBlack,
		GameMode:      gameMode,
		Pieces:        initialPieces,
		MoveHistory:   emptyArray,
		Orientations:  emptyObject,
		Extra:         make(map[string]json.RawMessage),
	}
}

// ResetForRematch returns a fresh state preserving only the game mode.
//
// Postcondition: CurrentPlayer is black, GameOver is false, move history
// and orientations are empty, GameMode equals s.GameMode.
func (s *GameState) ResetForRematch(initialPieces json.RawMessage) *GameState {
	fresh := NewGameState(initialPieces, s.GameMode)
	return fresh
}

// ApplyPatch merges a client-supplied patch by explicit field rules:
// protected fields are ignored, known opaque fields replace wholesale
// when present, and unknown keys are stored in Extra.
//
// Precondition: patch is nil or a JSON object.
// Postcondition: Protected fields are unchanged. Returns an error only
// when patch is present and not a JSON object.
func (s *GameState) ApplyPatch(patch json.RawMessage) error {
	if len(patch) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return fmt.Errorf("decoding state patch: %w", err)
	}
	for key, raw := range fields {
		if protectedKeys[key] {
			continue
		}
		switch key {
		case "pieces":
			s.Pieces = raw
		case "moveHistory":
			s.MoveHistory = raw
		case "triangleOrientations":
			s.Orientations = raw
		default:
			if s.Extra == nil {
				s.Extra = make(map[string]json.RawMessage)
			}
			s.Extra[key] = raw
		}
	}
	return nil
}

// ToggleTurn flips CurrentPlayer between the two color tokens.
//
// Postcondition: CurrentPlayer is the other color; never a third value.
func (s *GameState) ToggleTurn() {
	s.CurrentPlayer = OtherColor(s.CurrentPlayer)
}

// SetGameOver marks the state terminal with the given outcome.
func (s *GameState) SetGameOver(winner, reason string) {
	s.GameOver = true
	s.Winner = winner
	s.Reason = reason
}

// MarshalJSON flattens the state into a single JSON object, mirroring
// the shape clients exchange: well-known fields plus extension keys.
func (s *GameState) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, 8+len(s.Extra))
	for key, raw := range s.Extra {
		out[key] = raw
	}

	cp, _ := json.Marshal(s.CurrentPlayer)
	out["currentPlayer"] = cp
	over, _ := json.Marshal(s.GameOver)
	out["gameOver"] = over
	mode, _ := json.Marshal(s.GameMode)
	out["gameMode"] = mode
	if s.Winner != "" {
		w, _ := json.Marshal(s.Winner)
		out["winner"] = w
	}
	if s.Reason != "" {
		r, _ := json.Marshal(s.Reason)
		out["reason"] = r
	}

	pieces := s.Pieces
	if len(pieces) == 0 {
		pieces = emptyArray
	}
	out["pieces"] = pieces
	history := s.MoveHistory
	if len(history) == 0 {
		history = emptyArray
	}
	out["moveHistory"] = history
	orient := s.Orientations
	if len(orient) == 0 {
		orient = emptyObject
	}
	out["triangleOrientations"] = orient

	return json.Marshal(out)
}

// UnmarshalJSON rebuilds a GameState from its flattened wire form.
func (s *GameState) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return fmt.Errorf("decoding game state: %w", err)
	}
	*s = GameState{Extra: make(map[string]json.RawMessage)}
	for key, raw := range fields {
		switch key {
		case "currentPlayer":
			if err := json.Unmarshal(raw, &s.CurrentPlayer); err != nil {
				return fmt.Errorf("decoding currentPlayer: %w", err)
			}
		case "gameOver":
			if err := json.Unmarshal(raw, &s.GameOver); err != nil {
				return fmt.Errorf("decoding gameOver: %w", err)
			}
		case "winner":
			if err := json.Unmarshal(raw, &s.Winner); err != nil {
				return fmt.Errorf("decoding winner: %w", err)
			}
		case "reason":
			if err := json.Unmarshal(raw, &s.Reason); err != nil {
				return fmt.Errorf("decoding reason: %w", err)
			}
		case "gameMode":
			if err := json.Unmarshal(raw, &s.GameMode); err != nil {
				return fmt.Errorf("decoding gameMode: %w", err)
			}
		case "pieces":
			s.Pieces = raw
		case "moveHistory":
			s.MoveHistory = raw
		case "triangleOrientations":
			s.Orientations = raw
		default:
			s.Extra[key] = raw
		}
	}
	return nil
}
