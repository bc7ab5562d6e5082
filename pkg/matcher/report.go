package matcher

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/davidgumberg/leavelogalone/pkg/logmsg"
	"github.com/davidgumberg/leavelogalone/pkg/parser"
)

// DefaultMaxUnmatched caps the unmatched lines kept in a Report.
const DefaultMaxUnmatched = 100

// TimeRange defines a time window for filtering log lines.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Unmatched is a runtime line no known message accounts for.
type Unmatched struct {
	Source  string `json:"source"`
	LineNum int    `json:"line"`
	Text    string `json:"text"`
}

// Hit counts the lines produced by one format string.
type Hit struct {
	Fmt   string              `json:"fmt"`
	Sites []logmsg.LogMessage `json:"sites"`
	Count int                 `json:"count"`
}

// Report summarizes matching a log stream against a database.
type Report struct {
	Sources        []string   `json:"sources"`
	TimeRange      *TimeRange `json:"time_range,omitempty"`
	LinesProcessed int        `json:"lines_processed"`
	LinesMatched   int        `json:"lines_matched"`

	// Hits is ordered by count, most frequent first.
	Hits []Hit `json:"hits"`

	// Unmatched holds at most the configured number of lines; UnmatchedTotal counts all
	// of them.
	Unmatched      []Unmatched `json:"unmatched"`
	UnmatchedTotal int         `json:"unmatched_total"`

	// Patterns is the number of distinct patterns that were tried.
	Patterns int `json:"patterns"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Coverage returns the fraction of the known patterns seen at least once.
func (r *Report) Coverage() float64 {
	if r.Patterns == 0 {
		return 0
	}
	return float64(len(r.Hits)) / float64(r.Patterns)
}

// HasUnmatched reports whether any line went unrecognized.
func (r *Report) HasUnmatched() bool {
	return r.UnmatchedTotal > 0
}

// RunOption configures Run.
type RunOption func(*runConfig)

type runConfig struct {
	timeRange    *TimeRange
	maxUnmatched int
	logger       *zap.Logger
}

// WithTimeRange limits matching to lines stamped within the given window. Lines
// without a timestamp are outside every window.
func WithTimeRange(start, end time.Time) RunOption {
	return func(c *runConfig) {
		c.timeRange = &TimeRange{Start: start, End: end}
	}
}

// WithMaxUnmatched sets how many unmatched lines the report keeps. Negative keeps all.
func WithMaxUnmatched(n int) RunOption {
	return func(c *runConfig) {
		c.maxUnmatched = n
	}
}

// WithLogger sets the logger unmatched lines are reported to at debug level.
func WithLogger(logger *zap.Logger) RunOption {
	return func(c *runConfig) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Run reads source to the end and matches every line's message.
func (m *Matcher) Run(ctx context.Context, source parser.LogSource, opts ...RunOption) (*Report, error) {
	cfg := runConfig{maxUnmatched: DefaultMaxUnmatched, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&cfg)
	}

	report := &Report{
		TimeRange: cfg.timeRange,
		Patterns:  m.Len(),
		StartTime: time.Now(),
	}

	sourcesMap := make(map[string]bool)
	hits := make(map[string]*Hit)

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		line, err := source.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading log source: %w", err)
		}

		if !sourcesMap[line.Source] {
			sourcesMap[line.Source] = true
			report.Sources = append(report.Sources, line.Source)
		}

		if cfg.timeRange != nil {
			if line.Timestamp.Before(cfg.timeRange.Start) || line.Timestamp.After(cfg.timeRange.End) {
				continue
			}
		}

		report.LinesProcessed++

		match, ok := m.Match(line.Message)
		if !ok {
			report.UnmatchedTotal++
			if cfg.maxUnmatched < 0 || len(report.Unmatched) < cfg.maxUnmatched {
				report.Unmatched = append(report.Unmatched, Unmatched{
					Source:  line.Source,
					LineNum: line.LineNum,
					Text:    line.Message,
				})
			}
			cfg.logger.Debug("unmatched line",
				zap.String("source", line.Source),
				zap.Int("line", line.LineNum),
				zap.String("text", line.Message))
			continue
		}

		report.LinesMatched++
		h, ok := hits[match.Fmt]
		if !ok {
			h = &Hit{Fmt: match.Fmt, Sites: match.Sites}
			hits[match.Fmt] = h
		}
		h.Count++
	}

	report.Hits = make([]Hit, 0, len(hits))
	for _, h := range hits {
		report.Hits = append(report.Hits, *h)
	}
	sort.Slice(report.Hits, func(i, j int) bool {
		if report.Hits[i].Count != report.Hits[j].Count {
			return report.Hits[i].Count > report.Hits[j].Count
		}
		return report.Hits[i].Fmt < report.Hits[j].Fmt
	})

	report.EndTime = time.Now()
	return report, nil
}
