package task

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxSize bounds a task submission.
const DefaultMaxSize = 64 * 1024

var (
	ErrTooLarge    = errors.New("task exceeds maximum allowed size")
	ErrInvalidUTF8 = errors.New("task contains invalid UTF-8 sequences")
)

// Sanitize rejects oversized or non-UTF-8 input and strips control characters
// other than newline, tab and carriage return. maxSize <= 0 uses DefaultMaxSize.
func Sanitize(input string, maxSize int) (string, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if len(input) > maxSize {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrTooLarge, len(input), maxSize)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Fast path: if no control chars, return as is.
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
