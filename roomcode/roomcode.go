// Package roomcode produces and validates the short codes players type to join a room.
package roomcode

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	Length   = 6
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Generate returns a random code of Length characters drawn from Alphabet.
// Uniqueness is the caller's concern.
func Generate() string {
	var b strings.Builder
	b.Grow(Length)

	for range Length {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is broken
			panic(err)
		}
		b.WriteByte(Alphabet[n.Int64()])
	}

	return b.String()
}

// IsValid reports whether code has the exact shape produced by Generate.
func IsValid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(Alphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

// Normalize trims surrounding space and uppercases user input before validation.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
