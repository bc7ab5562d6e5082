package output

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/davidgumberg/leavelogalone/pkg/logmsg"
	"github.com/davidgumberg/leavelogalone/pkg/matcher"
)

// TextFormatter formats summaries as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

type palette struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	failure lipgloss.Style
	enabled bool
}

func (f *TextFormatter) palette(w io.Writer) palette {
	r := lipgloss.NewRenderer(w)
	return palette{
		title:   r.NewStyle().Bold(true),
		muted:   r.NewStyle().Foreground(lipgloss.Color("#666666")),
		success: r.NewStyle().Foreground(lipgloss.Color("#00CC66")).Bold(true),
		failure: r.NewStyle().Foreground(lipgloss.Color("#FF0000")).Bold(true),
		enabled: f.opts.Color,
	}
}

func (p palette) render(s lipgloss.Style, text string) string {
	if !p.enabled {
		return text
	}
	return s.Render(text)
}

// FormatExtract renders the extraction summary as text.
func (f *TextFormatter) FormatExtract(ctx context.Context, s *ExtractSummary, w io.Writer) error {
	p := f.palette(w)
	if f.opts.Quiet {
		fmt.Fprintf(w, "leavelogalone: %d messages from %d files, %d failures\n",
			s.Messages, s.Parsed, len(s.Failures))
		return nil
	}

	fmt.Fprintln(w, p.render(p.title, "=== leavelogalone extraction ==="))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s %s\n", p.render(p.muted, "Root:      "), s.Root)
	fmt.Fprintf(w, "%s %d/%d\n", p.render(p.muted, "Parsed:    "), s.Parsed, s.Files)
	fmt.Fprintf(w, "%s %d (%d skipped)\n", p.render(p.muted, "Call sites:"), s.Sites, s.Skipped)
	fmt.Fprintf(w, "%s %d in %d source files\n", p.render(p.muted, "Messages:  "), s.Messages, s.SourceFiles)
	if s.Output != "" {
		fmt.Fprintf(w, "%s %s (%s)\n", p.render(p.muted, "Output:    "), s.Output, s.Format)
	}

	if len(s.ByMacro) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "By macro:")
		writeCounts(w, s.ByMacro)
	}
	if f.opts.Verbose && len(s.ByCategory) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "By category:")
		writeCounts(w, s.ByCategory)
	}

	if s.HasFailures() {
		fmt.Fprintln(w)
		fmt.Fprintln(w, p.render(p.failure, fmt.Sprintf("Failures: %d file(s)", len(s.Failures))))
		for _, failure := range s.Failures {
			fmt.Fprintf(w, "  - %s: %s\n", failure.File, failure.Error)
		}
	}

	fmt.Fprintln(w, "---")
	status := p.render(p.success, "OK")
	if s.HasFailures() {
		status = p.render(p.failure, "INCOMPLETE")
	}
	fmt.Fprintf(w, "Summary: %s, %d messages, %d failures\n", status, s.Messages, len(s.Failures))

	if f.opts.Verbose {
		fmt.Fprintf(w, "Run: %s\n", s.RunID)
		fmt.Fprintf(w, "Duration: %s\n", s.Duration.Round(1e6))
	}
	return nil
}

func writeCounts(w io.Writer, counts []Count) {
	width := 0
	for _, c := range counts {
		if len(c.Name) > width {
			width = len(c.Name)
		}
	}
	for _, c := range counts {
		fmt.Fprintf(w, "  %-*s %d\n", width, c.Name, c.Count)
	}
}

// FormatMatch renders the match report as text.
func (f *TextFormatter) FormatMatch(ctx context.Context, r *matcher.Report, w io.Writer) error {
	p := f.palette(w)
	if f.opts.Quiet {
		fmt.Fprintf(w, "leavelogalone: %d lines, %d matched, %d unmatched\n",
			r.LinesProcessed, r.LinesMatched, r.UnmatchedTotal)
		return nil
	}

	fmt.Fprintln(w, p.render(p.title, "=== leavelogalone match report ==="))
	fmt.Fprintln(w)
	if len(r.Sources) > 0 {
		fmt.Fprintf(w, "%s %s\n", p.render(p.muted, "Sources: "), strings.Join(r.Sources, ", "))
	}
	fmt.Fprintf(w, "%s %d processed, %d matched, %d unmatched\n",
		p.render(p.muted, "Lines:   "), r.LinesProcessed, r.LinesMatched, r.UnmatchedTotal)
	fmt.Fprintf(w, "%s %d of %d messages seen (%.1f%%)\n",
		p.render(p.muted, "Coverage:"), len(r.Hits), r.Patterns, r.Coverage()*100)

	if len(r.Hits) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Messages:")
		for _, h := range r.Hits {
			fmt.Fprintf(w, "  %6d  %q\n", h.Count, h.Fmt)
			if f.opts.Verbose {
				for _, site := range h.Sites {
					fmt.Fprintf(w, "          %s\n", location(site))
				}
			}
		}
	}

	if r.HasUnmatched() {
		fmt.Fprintln(w)
		header := fmt.Sprintf("Unmatched: %d line(s)", r.UnmatchedTotal)
		if len(r.Unmatched) < r.UnmatchedTotal {
			header += fmt.Sprintf(", first %d shown", len(r.Unmatched))
		}
		fmt.Fprintln(w, p.render(p.failure, header))
		for _, u := range r.Unmatched {
			fmt.Fprintf(w, "  - %s:%d: %s\n", u.Source, u.LineNum, u.Text)
		}
	}

	fmt.Fprintln(w, "---")
	if r.HasUnmatched() {
		fmt.Fprintf(w, "Summary: %s\n", p.render(p.failure, "unmatched lines found"))
	} else {
		fmt.Fprintf(w, "Summary: %s\n", p.render(p.success, "all lines matched"))
	}
	if f.opts.Verbose {
		fmt.Fprintf(w, "Duration: %s\n", r.EndTime.Sub(r.StartTime).Round(1e6))
	}
	return nil
}

func location(m logmsg.LogMessage) string {
	file, ok := m.File()
	if !ok {
		file = "<unknown>"
	}
	return fmt.Sprintf("%s:%d:%d %s", file, m.Line(), m.Column(), m.Macro())
}
