// Package slug mints the short public identifiers pages are shared under.
package slug

import (
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// DefaultLength gives 64^10 possible slugs.
	DefaultLength = 10
	// Alphabet is the URL-safe nanoid alphabet.
	Alphabet = "_-0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Func produces a new slug. The page service takes one so tests can force collisions.
type Func func() (string, error)

// Generate returns a random slug of DefaultLength characters.
func Generate() (string, error) {
	return GenerateN(DefaultLength)
}

// GenerateN returns a random slug of n characters drawn from Alphabet
// using a cryptographically secure source.
func GenerateN(n int) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("slug length must be positive, got %d", n)
	}
	id, err := gonanoid.New(n)
	if err != nil {
		return "", fmt.Errorf("generate slug: %w", err)
	}
	return id, nil
}

// Valid reports whether s has the default length and only alphabet characters.
func Valid(s string) bool {
	if len(s) != DefaultLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !inAlphabet(s[i]) {
			return false
		}
	}
	return true
}

func inAlphabet(c byte) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	}
	return false
}
