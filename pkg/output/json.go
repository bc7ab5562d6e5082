package output

import (
	"context"
	"encoding/json"
	"io"

	"github.com/davidgumberg/leavelogalone/pkg/matcher"
)

// JSONFormatter formats summaries as JSON.
type JSONFormatter struct {
	opts FormatOptions
}

// NewJSONFormatter creates a new JSON formatter with the given options.
func NewJSONFormatter(opts FormatOptions) *JSONFormatter {
	return &JSONFormatter{opts: opts}
}

// Name returns the format name.
func (f *JSONFormatter) Name() string {
	return "json"
}

type extractQuiet struct {
	RunID    string `json:"run_id"`
	Files    int    `json:"files"`
	Messages int    `json:"messages"`
	Failures int    `json:"failures"`
}

type matchQuiet struct {
	LinesProcessed int     `json:"lines_processed"`
	LinesMatched   int     `json:"lines_matched"`
	UnmatchedTotal int     `json:"unmatched_total"`
	Coverage       float64 `json:"coverage"`
}

type matchFull struct {
	*matcher.Report
	Coverage float64 `json:"coverage"`
}

// FormatExtract renders the extraction summary as JSON.
func (f *JSONFormatter) FormatExtract(ctx context.Context, summary *ExtractSummary, w io.Writer) error {
	if f.opts.Quiet {
		return f.encode(w, extractQuiet{
			RunID:    summary.RunID,
			Files:    summary.Files,
			Messages: summary.Messages,
			Failures: len(summary.Failures),
		})
	}
	return f.encode(w, summary)
}

// FormatMatch renders the match report as JSON.
func (f *JSONFormatter) FormatMatch(ctx context.Context, report *matcher.Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.encode(w, matchQuiet{
			LinesProcessed: report.LinesProcessed,
			LinesMatched:   report.LinesMatched,
			UnmatchedTotal: report.UnmatchedTotal,
			Coverage:       report.Coverage(),
		})
	}
	return f.encode(w, matchFull{Report: report, Coverage: report.Coverage()})
}

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
