// Package code produces human-enterable check codes.
package code

import (
	"crypto/rand"
	"fmt"
)

// Alphabet is the 32-symbol set used for check codes. Visually ambiguous
// glyphs (0, 1, I, O) are excluded so codes survive handwriting and phone
// keyboards.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Length is the fixed code length
const Length = 8

// Generator produces random check codes from the restricted alphabet.
// It performs no uniqueness check: the store's unique constraint on the code
// column is the sole collision guard, and a collision surfaces to the caller
// as a creation conflict.
type Generator struct{}

// NewGenerator creates a code generator backed by crypto/rand
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate returns a new 8-character code, one random byte per symbol
// reduced modulo the alphabet size.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}

	out := make([]byte, Length)
	for i, b := range buf {
		out[i] = Alphabet[int(b)%len(Alphabet)]
	}
	return string(out), nil
}
