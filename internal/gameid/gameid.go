// Package gameid generates sortable identifiers for blackjack games.
//
// IDs are UUIDv7 values rendered as 26 lowercase Crockford base32
// characters, so they sort by creation time and are safe in file names.
package gameid

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Crockford's base32 alphabet (no i, l, o, u)
const alphabet = "0123456789abcdefghjkmnpqrstvwxyz"

// Length of an encoded ID
const Length = 26

// Generator creates game IDs from an optional entropy source.
type Generator struct {
	entropy io.Reader
}

// NewGenerator returns a generator reading randomness from entropy. A nil
// reader uses crypto/rand via the uuid package.
func NewGenerator(entropy io.Reader) *Generator {
	return &Generator{entropy: entropy}
}

// Generate creates a new game ID using crypto randomness.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates a new game ID.
func (g *Generator) Generate() string {
	var (
		id  uuid.UUID
		err error
	)
	if g.entropy != nil {
		id, err = uuid.NewV7FromReader(g.entropy)
	} else {
		id, err = uuid.NewV7()
	}
	if err != nil {
		panic("gameid: failed to generate uuid: " + err.Error())
	}
	return encode(id)
}

// encode renders 128 bits as 26 base32 digits, most significant first. The
// leading digit carries only 3 bits, which keeps it in the range 0-7.
func encode(id uuid.UUID) string {
	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Length; i++ {
		// Bit offset from the most significant end of a 130-bit value whose
		// top two bits are zero.
		shift := 125 - i*5
		var v byte
		for bit := 0; bit < 5; bit++ {
			pos := shift + 4 - bit // position counted from the LSB of 130 bits
			if pos > 127 {
				continue
			}
			byteIdx := 15 - pos/8
			if id[byteIdx]&(1<<(pos%8)) != 0 {
				v |= 1 << (4 - bit)
			}
		}
		b.WriteByte(alphabet[v])
	}
	return b.String()
}

// Validate checks that id is a well formed game ID.
func Validate(id string) error {
	if len(id) != Length {
		return fmt.Errorf("game ID must be exactly %d characters, got %d", Length, len(id))
	}
	if id[0] > '7' {
		return fmt.Errorf("game ID first character must be 0-7, got %c", id[0])
	}
	for i, ch := range id {
		if !strings.ContainsRune(alphabet, ch) {
			return fmt.Errorf("invalid character %c at position %d", ch, i)
		}
	}
	return nil
}
