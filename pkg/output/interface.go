package output

import (
	"context"
	"fmt"
	"io"

	"github.com/davidgumberg/leavelogalone/pkg/matcher"
)

// Formatter renders run summaries in a specific format.
type Formatter interface {
	// FormatExtract renders the summary of an extraction run.
	FormatExtract(ctx context.Context, summary *ExtractSummary, w io.Writer) error

	// FormatMatch renders the result of matching runtime logs.
	FormatMatch(ctx context.Context, report *matcher.Report, w io.Writer) error

	// Name returns the format name (text, json).
	Name() string
}

// FormatOptions controls formatter behavior.
type FormatOptions struct {
	// Verbose enables detailed output including per-site locations.
	Verbose bool

	// Quiet enables minimal summary-only output.
	Quiet bool

	// Color enables styled terminal output in the text format.
	Color bool
}

// NewFormatter returns the formatter registered under name.
func NewFormatter(name string, opts FormatOptions) (Formatter, error) {
	switch name {
	case "text", "":
		return NewTextFormatter(opts), nil
	case "json":
		return NewJSONFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use text or json)", name)
	}
}
