// Package sanitize cleans untrusted text before it reaches the coordinator.
package sanitize

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// DefaultMaxInputSize is 16KB, comfortably above a chat message.
	DefaultMaxInputSize = 16384
	// EnvMaxInputSize is the environment variable to override the default
	EnvMaxInputSize = "SCRIBE_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// Input cleans user input by enforcing the default size limit,
// validating UTF-8, and stripping dangerous control characters.
func Input(input string) (string, error) {
	return InputLimit(input, 0)
}

// InputLimit is Input with an explicit byte limit. A non-positive limit
// falls back to SCRIBE_MAX_INPUT_SIZE or DefaultMaxInputSize.
func InputLimit(input string, limit int) (string, error) {
	if limit <= 0 {
		limit = MaxInputSize()
	}
	// Reject rather than truncate: a cut message would segment differently.
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Newline, tab and CR survive; they are separators for the segmenter.
	// ESC, NUL, BEL and friends are removed to keep logs and terminals clean.
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

// MaxInputSize returns the effective default limit.
func MaxInputSize() int {
	if val := os.Getenv(EnvMaxInputSize); val != "" {
		if size, err := strconv.Atoi(val); err == nil && size > 0 {
			return size
		}
	}
	return DefaultMaxInputSize
}
