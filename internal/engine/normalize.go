// Package engine holds the pure intake computations: text normalization,
// fingerprinting, the status transition table, and work-item construction.
// Nothing in this package performs I/O.
package engine

import (
	"strings"
)

// Normalize canonicalizes raw message text for stable matching:
// CRLF becomes LF, runs of spaces and tabs collapse to one space, three or
// more consecutive newlines collapse to exactly two, the result is trimmed
// and lowercased (ASCII fold). Normalize is idempotent.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var b strings.Builder
	b.Grow(len(text))

	spaceRun := false
	newlineRun := 0
	for _, r := range text {
		switch {
		case r == ' ' || r == '\t':
			spaceRun = true
		case r == '\n':
			// A space run that ends at a newline still emits its space
			// first, matching a plain [ \t]+ -> " " substitution.
			if spaceRun {
				b.WriteByte(' ')
				spaceRun = false
				newlineRun = 0
			}
			newlineRun++
			if newlineRun <= 2 {
				b.WriteByte('\n')
			}
		default:
			if spaceRun {
				b.WriteByte(' ')
				spaceRun = false
			}
			newlineRun = 0
			b.WriteRune(r)
		}
	}
	if spaceRun {
		b.WriteByte(' ')
	}

	return strings.ToLower(strings.Trim(b.String(), " \t\n"))
}
