package room

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestCodeAlphabetExcludesAmbiguousCharacters(t *testing.T) {
	assert.Len(t, CodeAlphabet, 32)
	for _, forbidden := range []string{"I", "O", "0", "1"} {
		assert.NotContains(t, CodeAlphabet, forbidden)
	}
}

func TestGenerate_Length(t *testing.T) {
	g := NewCodeGenerator(6)
	assert.Len(t, g.Generate(), 6)
}

func TestNewCodeGenerator_PanicsOnBadLength(t *testing.T) {
	assert.Panics(t, func() { NewCodeGenerator(0) })
	assert.Panics(t, func() { NewCodeGenerator(-3) })
}

// Property: every generated code has the configured length and draws
// only from the fixed alphabet.
func TestPropertyGeneratedCodesMatchAlphabet(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		length := rapid.IntRange(1, 16).Draw(t, "length")
		g := NewCodeGenerator(length)
		code := g.Generate()
		if len(code) != length {
			t.Fatalf("code %q has length %d, want %d", code, len(code), length)
		}
		for _, ch := range code {
			if !strings.ContainsRune(CodeAlphabet, ch) {
				t.Fatalf("code %q contains %q, outside the alphabet", code, ch)
			}
		}
	})
}
