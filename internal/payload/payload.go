// Package payload produces randomized load payloads for the stress driver.
package payload

import (
	"math/rand"
	"time"
)

// Alphabet is the restricted character set payloads are drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyz"

// DefaultLength is the default payload length in characters.
const DefaultLength = 1000

// Generator produces fixed-length random text payloads. Each call draws
// fresh randomness; collisions between payloads are acceptable because
// integrity is tracked via the stored digest, not via uniqueness.
type Generator struct {
	length int
	rng    *rand.Rand
}

// NewGenerator creates a generator producing payloads of the given length,
// seeded from the wall clock.
func NewGenerator(length int) *Generator {
	return NewSeededGenerator(length, time.Now().UnixNano())
}

// NewSeededGenerator creates a generator with a fixed seed. Used by tests
// that need reproducible payload sequences.
func NewSeededGenerator(length int, seed int64) *Generator {
	if length <= 0 {
		length = DefaultLength
	}
	return &Generator{
		length: length,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Generate returns a fresh random payload of the configured length.
func (g *Generator) Generate() string {
	buf := make([]byte, g.length)
	for i := range buf {
		buf[i] = Alphabet[g.rng.Intn(len(Alphabet))]
	}
	return string(buf)
}

// Length returns the configured payload length.
func (g *Generator) Length() int {
	return g.length
}
