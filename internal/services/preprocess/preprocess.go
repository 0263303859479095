// Package preprocess normalizes raw query text before it enters the
// pipeline.
package preprocess

import (
	"strings"
	"unicode"
)

// Cleaner normalizes raw input text. Clean is pure and performs no I/O.
type Cleaner struct {
	maxLength int
}

// NewCleaner creates a cleaner that truncates cleaned text to maxLength
// runes. Truncation is silent; the caller records that it occurred.
func NewCleaner(maxLength int) *Cleaner {
	return &Cleaner{maxLength: maxLength}
}

// Clean trims leading/trailing whitespace, collapses internal whitespace
// runs to single spaces, strips control characters, and truncates to the
// configured maximum length. Returns the cleaned text and whether
// truncation occurred. An empty result is the caller's validation problem,
// not an error here.
func (c *Cleaner) Clean(raw string) (string, bool) {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	// Fields splits on any whitespace run, which both trims and collapses
	cleaned := strings.Join(strings.Fields(stripped), " ")

	runes := []rune(cleaned)
	if len(runes) > c.maxLength {
		return strings.TrimRight(string(runes[:c.maxLength]), " "), true
	}

	return cleaned, false
}
