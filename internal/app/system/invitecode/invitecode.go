// Package invitecode generates the 8-character codes people use to join a
// family group.
package invitecode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// Length of every code.
	Length = 8
	// Alphabet codes are drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// DefaultMaxAttempts bounds the regenerate-on-collision loop.
	DefaultMaxAttempts = 10
)

// ErrExhausted is returned when every attempt produced a code that is
// already taken.
var ErrExhausted = errors.New("invite code generation exhausted its attempts")

// Checker reports whether a code is already held by some group.
type Checker interface {
	InviteCodeExists(ctx context.Context, code string) (bool, error)
}

// Generator produces codes that no group currently holds.
type Generator struct {
	checker     Checker
	rand        io.Reader
	maxAttempts int
}

// New returns a Generator backed by crypto/rand. maxAttempts <= 0 uses
// DefaultMaxAttempts.
func New(checker Checker, maxAttempts int) *Generator {
	return NewWithReader(checker, rand.Reader, maxAttempts)
}

// NewWithReader is New with an explicit randomness source.
func NewWithReader(checker Checker, r io.Reader, maxAttempts int) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Generator{checker: checker, rand: r, maxAttempts: maxAttempts}
}

// Generate draws codes until one is unused. The existence check is advisory;
// the unique index on invite_code is the final arbiter for concurrent
// creates.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		code, err := Random(g.rand)
		if err != nil {
			return "", err
		}
		taken, err := g.checker.InviteCodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check invite code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", fmt.Errorf("%w after %d attempts", ErrExhausted, g.maxAttempts)
}

// Random returns one code read from r. Bytes >= 252 are rejected so every
// alphabet symbol is equally likely (252 = 7*36).
func Random(r io.Reader) (string, error) {
	const limit = 252
	out := make([]byte, 0, Length)
	buf := make([]byte, Length*2)
	for len(out) < Length {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, Alphabet[int(b)%len(Alphabet)])
			if len(out) == Length {
				break
			}
		}
	}
	return string(out), nil
}

// Normalize trims and upper-cases user-entered codes.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Valid reports whether code has the right length and alphabet.
func Valid(code string) bool {
	if len(code) != Length {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(Alphabet, rune(code[i])) {
			return false
		}
	}
	return true
}
