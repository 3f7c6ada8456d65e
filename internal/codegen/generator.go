// Package codegen produces short, URL-safe link codes.
package codegen

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

const (
	alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	base     = uint64(len(alphabet))

	// RandomBytes is the amount of entropy drawn per attempt.
	RandomBytes = 6
	// MaxLength is the maximum length of a generated code.
	MaxLength = 7
	// MaxAttempts bounds the collision retry loop.
	MaxAttempts = 5
)

// ExistsFunc reports whether a candidate code is already taken.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Generator draws random codes and retries on collision.
type Generator struct {
	rand io.Reader
}

// Option configures a Generator.
type Option func(*Generator)

// WithRandom replaces the entropy source. Intended for tests.
func WithRandom(r io.Reader) Option {
	return func(g *Generator) { g.rand = r }
}

// New creates a Generator backed by crypto/rand.
func New(opts ...Option) *Generator {
	g := &Generator{rand: rand.Reader}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns the first candidate for which exists reports false.
// If every attempt collides the last candidate is returned anyway; the
// caller is expected to persist it with a conditional write.
func (g *Generator) Generate(ctx context.Context, exists ExistsFunc) (string, error) {
	var code string
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		candidate, err := g.candidate()
		if err != nil {
			return "", err
		}
		code = candidate

		taken, err := exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("check code %q: %w", code, err)
		}
		if !taken {
			return code, nil
		}
	}
	return code, nil
}

func (g *Generator) candidate() (string, error) {
	buf := make([]byte, RandomBytes)
	if _, err := io.ReadFull(g.rand, buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	code := Encode(buf)
	if len(code) > MaxLength {
		code = code[:MaxLength]
	}
	return code, nil
}

// Encode renders b, read as a big-endian unsigned integer, as a base-62
// numeral, most significant digit first. Zero encodes as "0".
// b must hold at most 8 bytes.
func Encode(b []byte) string {
	var padded [8]byte
	copy(padded[8-len(b):], b)
	return ToBase62(binary.BigEndian.Uint64(padded[:]))
}

// ToBase62 encodes n with the 0-9a-zA-Z alphabet.
func ToBase62(n uint64) string {
	if n == 0 {
		return string(alphabet[0])
	}

	var sb strings.Builder
	for n > 0 {
		sb.WriteByte(alphabet[n%base])
		n /= base
	}

	digits := []byte(sb.String())
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
