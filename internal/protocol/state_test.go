package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNewGameState_Defaults(t *testing.T) {
	s := NewGameState(nil, "")
	assert.Equal(t, ColorBlack, s.CurrentPlayer)
	assert.False(t, s.GameOver)
	assert.Equal(t, DefaultGameMode, s.GameMode)
	assert.JSONEq(t, "[]", string(s.Pieces))
	assert.JSONEq(t, "[]", string(s.MoveHistory))
	assert.JSONEq(t, "{}", string(s.Orientations))
}

func TestNewGameState_InitialPiecesAndMode(t *testing.T) {
	pieces := json.RawMessage(`[{"id":"r1","pos":"a1"}]`)
	s := NewGameState(pieces, "blitz")
	assert.Equal(t, "blitz", s.GameMode)
	assert.JSONEq(t, string(pieces), string(s.Pieces))
}

func TestApplyPatch_ProtectedFieldsUntouched(t *testing.T) {
	s := NewGameState(nil, "")
	patch := json.RawMessage(`{
		"currentPlayer": "white",
		"gameOver": true,
		"winner": "white",
		"reason": "cheated",
		"gameMode": "hacked",
		"pieces": [1,2,3]
	}`)
	require.NoError(t, s.ApplyPatch(patch))

	assert.Equal(t, ColorBlack, s.CurrentPlayer)
	assert.False(t, s.GameOver)
	assert.Empty(t, s.Winner)
	assert.Empty(t, s.Reason)
	assert.Equal(t, DefaultGameMode, s.GameMode)
	assert.JSONEq(t, "[1,2,3]", string(s.Pieces))
}

func TestApplyPatch_KnownFieldsReplaceWholesale(t *testing.T) {
	s := NewGameState(json.RawMessage(`[1]`), "")
	patch := json.RawMessage(`{
		"pieces": [2],
		"moveHistory": ["a1-b2"],
		"triangleOrientations": {"r1": 3}
	}`)
	require.NoError(t, s.ApplyPatch(patch))

	assert.JSONEq(t, "[2]", string(s.Pieces))
	assert.JSONEq(t, `["a1-b2"]`, string(s.MoveHistory))
	assert.JSONEq(t, `{"r1":3}`, string(s.Orientations))
}

func TestApplyPatch_UnknownKeysLandInExtra(t *testing.T) {
	s := NewGameState(nil, "")
	require.NoError(t, s.ApplyPatch(json.RawMessage(`{"clock": {"white": 300}}`)))
	raw, ok := s.Extra["clock"]
	require.True(t, ok)
	assert.JSONEq(t, `{"white":300}`, string(raw))
}

func TestApplyPatch_EmptyPatchIsNoop(t *testing.T) {
	s := NewGameState(nil, "")
	require.NoError(t, s.ApplyPatch(nil))
	require.NoError(t, s.ApplyPatch(json.RawMessage(``)))
	assert.Equal(t, ColorBlack, s.CurrentPlayer)
}

func TestApplyPatch_NonObjectPatchRejected(t *testing.T) {
	s := NewGameState(nil, "")
	assert.Error(t, s.ApplyPatch(json.RawMessage(`[1,2]`)))
	assert.Error(t, s.ApplyPatch(json.RawMessage(`"zap"`)))
}

func TestToggleTurn(t *testing.T) {
	s := NewGameState(nil, "")
	s.ToggleTurn()
	assert.Equal(t, ColorWhite, s.CurrentPlayer)
	s.ToggleTurn()
	assert.Equal(t, ColorBlack, s.CurrentPlayer)
}

func TestSetGameOver(t *testing.T) {
	s := NewGameState(nil, "")
	s.SetGameOver("white", "resignation")
	assert.True(t, s.GameOver)
	assert.Equal(t, "white", s.Winner)
	assert.Equal(t, "resignation", s.Reason)
}

func TestResetForRematch_PreservesOnlyGameMode(t *testing.T) {
	s := NewGameState(json.RawMessage(`[1]`), "blitz")
	s.ToggleTurn()
	s.SetGameOver("white", "capture")
	require.NoError(t, s.ApplyPatch(json.RawMessage(`{"moveHistory": ["x"], "clock": 1}`)))

	fresh := s.ResetForRematch(json.RawMessage(`[9]`))
	assert.Equal(t, ColorBlack, fresh.CurrentPlayer)
	assert.False(t, fresh.GameOver)
	assert.Empty(t, fresh.Winner)
	assert.Empty(t, fresh.Reason)
	assert.Equal(t, "blitz", fresh.GameMode)
	assert.JSONEq(t, "[9]", string(fresh.Pieces))
	assert.JSONEq(t, "[]", string(fresh.MoveHistory))
	assert.Empty(t, fresh.Extra)
}

func TestMarshalJSON_Flattened(t *testing.T) {
	s := NewGameState(json.RawMessage(`[1]`), "full")
	require.NoError(t, s.ApplyPatch(json.RawMessage(`{"clock": 5}`)))
	s.SetGameOver("black", "capture")

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	assert.JSONEq(t, `"black"`, string(fields["currentPlayer"]))
	assert.JSONEq(t, `true`, string(fields["gameOver"]))
	assert.JSONEq(t, `"black"`, string(fields["winner"]))
	assert.JSONEq(t, `"capture"`, string(fields["reason"]))
	assert.JSONEq(t, `"full"`, string(fields["gameMode"]))
	assert.JSONEq(t, `[1]`, string(fields["pieces"]))
	assert.JSONEq(t, `5`, string(fields["clock"]))
}

func TestMarshalJSON_OmitsEmptyOutcome(t *testing.T) {
	s := NewGameState(nil, "")
	data, err := json.Marshal(s)
	require.NoError(t, err)

	var fields map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &fields))
	_, hasWinner := fields["winner"]
	_, hasReason := fields["reason"]
	assert.False(t, hasWinner)
	assert.False(t, hasReason)
}

func TestUnmarshalJSON_RoundTrip(t *testing.T) {
	s := NewGameState(json.RawMessage(`[{"id":"r1"}]`), "blitz")
	require.NoError(t, s.ApplyPatch(json.RawMessage(`{"clock": 5, "moveHistory": ["m1"]}`)))
	s.ToggleTurn()

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var back GameState
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, ColorWhite, back.CurrentPlayer)
	assert.Equal(t, "blitz", back.GameMode)
	assert.JSONEq(t, `["m1"]`, string(back.MoveHistory))
	assert.JSONEq(t, `5`, string(back.Extra["clock"]))
}

func TestOtherColor(t *testing.T) {
	assert.Equal(t, ColorWhite, OtherColor(ColorBlack))
	assert.Equal(t, ColorBlack, OtherColor(ColorWhite))
}

// Property: any number of toggles leaves CurrentPlayer one of exactly two tokens.
func TestPropertyToggleStaysBinary(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := NewGameState(nil, "")
		n := rapid.IntRange(0, 100).Draw(t, "toggles")
		for i := 0; i < n; i++ {
			s.ToggleTurn()
		}
		if s.CurrentPlayer != ColorBlack && s.CurrentPlayer != ColorWhite {
			t.Fatalf("currentPlayer escaped the token set: %q", s.CurrentPlayer)
		}
		want := ColorBlack
		if n%2 == 1 {
			want = ColorWhite
		}
		assert.Equal(t, want, s.CurrentPlayer)
	})
}

// Property: no patch can move the protected fields.
func TestPropertyPatchNeverClobbersProtected(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.SampledFrom([]string{"currentPlayer", "gameOver", "winner", "reason", "gameMode"}).Draw(t, "key")
		value := rapid.StringMatching(`[a-z]{1,12}`).Draw(t, "value")
		patch, err := json.Marshal(map[string]string{key: value})
		require.NoError(t, err)

		s := NewGameState(nil, "")
		require.NoError(t, s.ApplyPatch(patch))
		assert.Equal(t, ColorBlack, s.CurrentPlayer)
		assert.False(t, s.GameOver)
		assert.Empty(t, s.Winner)
		assert.Empty(t, s.Reason)
		assert.Equal(t, DefaultGameMode, s.GameMode)
	})
}
