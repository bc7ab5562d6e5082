package parser

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultPrefixPattern matches the prefix bitcoind writes before each message: an
// RFC 3339 timestamp followed by optional bracketed thread, source location and
// category tags.
const DefaultPrefixPattern = `^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?Z) (?:\[[^\]\s]+\] )*`

// PrefixStripper removes the log prefix from lines and parses its timestamp.
type PrefixStripper struct {
	pattern *regexp.Regexp
	layout  string
}

// NewPrefixStripper creates a stripper. The first capture group of pattern, if any,
// is parsed as a timestamp with layout.
func NewPrefixStripper(pattern *regexp.Regexp, layout string) *PrefixStripper {
	return &PrefixStripper{
		pattern: pattern,
		layout:  layout,
	}
}

// DefaultPrefixStripper strips DefaultPrefixPattern.
func DefaultPrefixStripper() *PrefixStripper {
	return NewPrefixStripper(regexp.MustCompile(DefaultPrefixPattern), time.RFC3339Nano)
}

// Strip returns the message text after the prefix and the prefix timestamp.
// ok is false when the line has no prefix; the whole line is then the message.
func (s *PrefixStripper) Strip(line string) (message string, ts time.Time, ok bool) {
	if s == nil || s.pattern == nil {
		return line, time.Time{}, false
	}
	loc := s.pattern.FindStringSubmatchIndex(line)
	if loc == nil || loc[0] != 0 {
		return line, time.Time{}, false
	}

	message = line[loc[1]:]
	if len(loc) >= 4 && loc[2] >= 0 && s.layout != "" {
		ts, _ = s.parseTimestamp(line[loc[2]:loc[3]])
	}
	return message, ts, true
}

func (s *PrefixStripper) parseTimestamp(raw string) (time.Time, error) {
	ts, err := time.Parse(s.layout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", raw, err)
	}
	return ts, nil
}
