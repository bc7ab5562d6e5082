package detector

import (
	"regexp"
	"time"

	"github.com/davidgumberg/leavelogalone/pkg/parser"
)

// tags matches the bracketed thread, source location and category tags bitcoind may
// write between the timestamp and the message.
const tags = `(?:\[[^\]\s]+\] )*`

// PrefixFormat is a known runtime log prefix: a timestamp, possibly followed by tags,
// that precedes every formatted message.
type PrefixFormat struct {
	Name       string         // Human-readable name
	Pattern    *regexp.Regexp // Compiled regex (set during init)
	PatternStr string         // Pattern string for config output
	Layout     string         // Go time layout for the captured timestamp
	Examples   []string       // Example prefixes
}

// Stripper returns a prefix stripper for the format.
func (f *PrefixFormat) Stripper() *parser.PrefixStripper {
	return parser.NewPrefixStripper(f.Pattern, f.Layout)
}

// DefaultFormats returns the built-in prefix formats to detect.
// Formats are ordered roughly by specificity (more specific patterns first).
func DefaultFormats() []*PrefixFormat {
	formats := []*PrefixFormat{
		// -logtimemicros
		{
			Name:       "bitcoind with microseconds",
			PatternStr: `^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{6}Z) ` + tags,
			Layout:     time.RFC3339Nano,
			Examples:   []string{"2024-01-15T10:30:00.123456Z [msghand] "},
		},
		{
			Name:       "bitcoind",
			PatternStr: `^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}Z) ` + tags,
			Layout:     time.RFC3339,
			Examples:   []string{"2024-01-15T10:30:00Z ", "2024-01-15T10:30:00Z [net] "},
		},
		{
			Name:       "ISO 8601 with timezone",
			PatternStr: `^(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(?:\.\d+)?[+-]\d{2}:\d{2}) ` + tags,
			Layout:     time.RFC3339Nano,
			Examples:   []string{"2024-01-15T10:30:00+00:00 ", "2024-01-15T10:30:00.5-05:00 "},
		},
		{
			Name:       "Bracketed datetime",
			PatternStr: `^\[(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})\] ` + tags,
			Layout:     "2006-01-02 15:04:05",
			Examples:   []string{"[2024-01-15 10:30:00] "},
		},
		{
			Name:       "Datetime with milliseconds",
			PatternStr: `^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\.\d{3}) ` + tags,
			Layout:     "2006-01-02 15:04:05.000",
			Examples:   []string{"2024-01-15 10:30:00.123 "},
		},
		{
			Name:       "Datetime (space-separated)",
			PatternStr: `^(\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}) ` + tags,
			Layout:     "2006-01-02 15:04:05",
			Examples:   []string{"2024-01-15 10:30:00 "},
		},
		// bitcoind logging through syslog: "Jun 14 15:16:01 host bitcoind[812]: "
		{
			Name:       "Syslog (BSD)",
			PatternStr: `^(\w{3} [ \d]\d \d{2}:\d{2}:\d{2}) \S+ [^:\s]+: ` + tags,
			Layout:     "Jan _2 15:04:05",
			Examples:   []string{"Jun 14 15:16:01 node1 bitcoind[812]: ", "Jan  5 09:30:00 node1 bitcoind: "},
		},
	}

	for _, f := range formats {
		f.Pattern = regexp.MustCompile(f.PatternStr)
	}

	return formats
}
