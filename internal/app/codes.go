package app

import (
	"math/rand"
	"strings"
	"time"
)

const (
	// RoomCodeAlphabet leaves out I, O, 0 and 1, which are easily confused when read aloud.
	RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	RoomCodeLength   = 6
	// RoomCodeSpace is len(RoomCodeAlphabet)^RoomCodeLength (32^6).
	RoomCodeSpace = 1 << 30
)

// CodeGenerator draws one candidate room code. Implementations need not be goroutine-safe;
// registries call them under their own lock.
type CodeGenerator func() string

// NewRandomCodeGenerator draws each character uniformly from RoomCodeAlphabet.
func NewRandomCodeGenerator() CodeGenerator {
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	return func() string {
		var b strings.Builder
		b.Grow(RoomCodeLength)
		for i := 0; i < RoomCodeLength; i++ {
			b.WriteByte(RoomCodeAlphabet[rnd.Intn(len(RoomCodeAlphabet))])
		}
		return b.String()
	}
}

// NormalizeCode makes user-typed codes comparable.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether code has the shape of a generated room code.
func ValidCode(code string) bool {
	if len(code) != RoomCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(RoomCodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}
