// Package parser reads runtime log files and separates each line's prefix from the
// message text the program formatted.
package parser

import "time"

// ParsedLine represents a single log line with extracted metadata.
type ParsedLine struct {
	// Raw is the original line content.
	Raw string

	// Message is the line with its prefix removed. It equals Raw when no prefix matched.
	Message string

	// Prefixed reports whether the line started with a recognized prefix.
	Prefixed bool

	// Timestamp is the parsed prefix timestamp. Lines without one inherit the
	// timestamp of the previous prefixed line of the same file; it is zero before the
	// first.
	Timestamp time.Time

	// Source is the file path this line came from.
	Source string

	// LineNum is the 1-based line number in the source file.
	LineNum int
}
