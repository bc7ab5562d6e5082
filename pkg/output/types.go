// Package output renders run summaries and writes log message databases.
package output

import (
	"sort"
	"time"

	"github.com/davidgumberg/leavelogalone/pkg/extract"
	"github.com/davidgumberg/leavelogalone/pkg/logdb"
)

// ExtractSummary is the reportable outcome of an extraction run.
type ExtractSummary struct {
	RunID  string `json:"run_id"`
	Root   string `json:"root"`
	Output string `json:"output,omitempty"`
	Format string `json:"format,omitempty"`

	// Files is the number of translation units scheduled; Parsed the number that
	// produced a source tree.
	Files  int `json:"files"`
	Parsed int `json:"parsed"`

	Sites   int `json:"sites"`
	Skipped int `json:"skipped"`

	// Messages is the number of distinct messages in the database.
	Messages    int            `json:"messages"`
	SourceFiles int            `json:"source_files"`
	ByMacro     []Count        `json:"by_macro"`
	ByCategory  []Count        `json:"by_category"`
	Failures    []FailureEntry `json:"failures"`

	Duration time.Duration `json:"duration_ns"`
}

// Count is one named tally.
type Count struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// FailureEntry is a file that could not be processed.
type FailureEntry struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// NewExtractSummary creates a summary from a run report and the resulting database.
func NewExtractSummary(root string, report *extract.Report, stats logdb.Stats) *ExtractSummary {
	s := &ExtractSummary{
		RunID:       report.RunID,
		Root:        root,
		Files:       report.Files,
		Parsed:      report.Parsed,
		Sites:       report.Sites,
		Skipped:     report.Skipped,
		Messages:    stats.Messages,
		SourceFiles: stats.Files,
		ByMacro:     sortedCounts(stats.ByMacro),
		ByCategory:  sortedCounts(stats.ByCategory),
		Failures:    make([]FailureEntry, 0, len(report.Failures)),
		Duration:    report.Duration,
	}
	for _, f := range report.Failures {
		s.Failures = append(s.Failures, FailureEntry{File: f.File, Error: f.Err.Error()})
	}
	return s
}

// HasFailures returns true if any file failed.
func (s *ExtractSummary) HasFailures() bool {
	return len(s.Failures) > 0
}

func sortedCounts(m map[string]int) []Count {
	counts := make([]Count, 0, len(m))
	for name, n := range m {
		counts = append(counts, Count{Name: name, Count: n})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Name < counts[j].Name
	})
	return counts
}
