package room

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// CodeAlphabet is the fixed 32-symbol set room codes are drawn from.
// Visually ambiguous characters (I, O, 0, 1) are excluded so codes can
// be read aloud and typed reliably.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeGenerator produces room codes. Implementations must be safe for
// use from the dispatcher goroutine.
type CodeGenerator interface {
	// Generate returns a fresh code. Uniqueness against registered
	// rooms is the Registry's concern, not the generator's.
	Generate() string
}

// cryptoCodeGenerator samples the alphabet with crypto/rand.
type cryptoCodeGenerator struct {
	length int
}

// NewCodeGenerator returns a CodeGenerator producing codes of the given
// length over CodeAlphabet.
//
// Precondition: length > 0. Panics otherwise.
func NewCodeGenerator(length int) CodeGenerator {
	if length <= 0 {
		panic("room: NewCodeGenerator called with length <= 0")
	}
	return &cryptoCodeGenerator{length: length}
}

// Generate samples the alphabet independently with replacement.
//
// Postcondition: The result has exactly the configured length and every
// character is drawn from CodeAlphabet.
func (g *cryptoCodeGenerator) Generate() string {
	var sb strings.Builder
	sb.Grow(g.length)
	max := big.NewInt(int64(len(CodeAlphabet)))
	for i := 0; i < g.length; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic("room: crypto/rand failure: " + err.Error())
		}
		sb.WriteByte(CodeAlphabet[idx.Int64()])
	}
	return sb.String()
}
