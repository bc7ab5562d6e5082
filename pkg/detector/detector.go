// Package detector identifies the prefix format of runtime log files, so messages
// can be separated from their timestamps without configuration.
package detector

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/davidgumberg/leavelogalone/pkg/parser"
)

// DetectionResult holds the result of analyzing a log file.
type DetectionResult struct {
	Matches      []FormatMatch // Formats that matched, sorted by confidence descending
	SampledLines int           // Number of lines sampled
	ParsedLines  int           // Number of lines with detected timestamps
}

// FormatMatch represents a format that matched with its confidence score.
type FormatMatch struct {
	Format     *PrefixFormat
	Confidence float64 // 0.0 to 1.0 (percentage of lines matched)
	MatchCount int     // Number of lines that matched
	SampleLine string  // Example line that matched

	// SampleMessage is SampleLine with the prefix removed.
	SampleMessage string
	ParsedTime    time.Time
}

// Detector analyzes log files to identify prefix formats.
type Detector struct {
	formats    []*PrefixFormat
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a new Detector with default formats.
func New(opts ...Option) *Detector {
	d := &Detector{
		formats:    DefaultFormats(),
		sampleSize: 100,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile analyzes a log file and returns detected formats.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines scores every known format by the share of lines whose prefix it
// strips with a parseable timestamp. Blank lines count towards the sample but never
// match.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{SampledLines: len(lines)}
	if len(lines) == 0 {
		return result
	}

	for _, format := range d.formats {
		stripper := format.Stripper()
		var m *FormatMatch
		for _, line := range lines {
			if strings.TrimSpace(line) == "" {
				continue
			}
			message, ts, ok := stripper.Strip(line)
			if !ok || ts.IsZero() {
				continue
			}
			if m == nil {
				m = &FormatMatch{
					Format:        format,
					SampleLine:    line,
					SampleMessage: message,
					ParsedTime:    ts,
				}
			}
			m.MatchCount++
		}
		if m != nil {
			m.Confidence = float64(m.MatchCount) / float64(len(lines))
			result.Matches = append(result.Matches, *m)
		}
	}

	// Equal confidence goes to the longer, more specific pattern.
	sort.SliceStable(result.Matches, func(i, j int) bool {
		a, b := result.Matches[i], result.Matches[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return len(a.Format.PatternStr) > len(b.Format.PatternStr)
	})

	if len(result.Matches) > 0 {
		result.ParsedLines = result.Matches[0].MatchCount
	}
	return result
}

// sampleFile reads the first sampleSize non-blank lines of path.
func (d *Detector) sampleFile(ctx context.Context, path string) ([]string, error) {
	source := parser.NewFileSource([]string{path}, nil)
	defer source.Close()

	var lines []string
	for len(lines) < d.sampleSize {
		line, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(line.Raw) != "" {
			lines = append(lines, line.Raw)
		}
	}
	return lines, nil
}

// BestMatch returns the highest confidence match, or nil if none found.
func (r *DetectionResult) BestMatch() *FormatMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one format matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}

// Stripper returns a prefix stripper for the best match, or nil when nothing matched.
// A nil stripper leaves lines untouched.
func (r *DetectionResult) Stripper() *parser.PrefixStripper {
	best := r.BestMatch()
	if best == nil {
		return nil
	}
	return best.Format.Stripper()
}
