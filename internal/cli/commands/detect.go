package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/davidgumberg/leavelogalone/pkg/config"
	"github.com/davidgumberg/leavelogalone/pkg/detector"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	ShowAll     bool
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <log-file>",
		Short: "Detect the line prefix of a runtime log file",
		Long: `Analyze a runtime log file to detect the prefix written before each message.

Samples lines from the file and tests them against known prefix formats. Reports
the detected format with a confidence score and a ready-to-use configuration
snippet for the match command.

Optionally generates a starter config file with --write-config.

Supports:
  - bitcoind timestamps, with or without microseconds, followed by [thread] and
    [category] tags
  - ISO 8601 variants (with timezone, milliseconds)
  - Bracketed and space-separated datetimes
  - Syslog (BSD)

Example:
  leavelogalone detect ~/.bitcoin/debug.log
  leavelogalone detect --sample 500 ~/.bitcoin/debug.log
  leavelogalone detect -w leavelogalone.yaml ~/.bitcoin/debug.log`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", 100, "Number of lines to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all detected formats, not just the best match")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	logFile := args[0]
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	// Check file exists
	if _, err := os.Stat(logFile); os.IsNotExist(err) {
		return fmt.Errorf("log file not found: %s", logFile)
	}

	d := detector.New(detector.WithSampleSize(opts.SampleSize))
	result, err := d.DetectFromFile(ctx, logFile)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	// Write config file if requested
	if opts.WriteConfig != "" {
		if err := writeStarterConfig(out, result, opts.WriteConfig); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(out, result, logFile, opts)
	default:
		return outputDetectText(out, result, logFile, opts)
	}
}

func outputDetectText(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	fmt.Fprintln(w, "=== Log Prefix Detection ===")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "File: %s\n", logFile)
	fmt.Fprintf(w, "Lines sampled: %d\n", result.SampledLines)
	fmt.Fprintf(w, "Lines with a prefix: %d\n", result.ParsedLines)
	fmt.Fprintln(w)

	if !result.HasMatch() {
		fmt.Fprintln(w, "No prefix format detected.")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Tip: set match.prefix_pattern to an empty string to match whole lines,")
		fmt.Fprintln(w, "or write a pattern whose first capture group is the timestamp.")
		return nil
	}

	best := result.BestMatch()
	fmt.Fprintf(w, "Detected Format: %s\n", best.Format.Name)
	fmt.Fprintf(w, "Confidence: %.1f%% (%d/%d lines matched)\n",
		best.Confidence*100, best.MatchCount, result.SampledLines)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Sample match:\n  %s\n", best.SampleLine)
	fmt.Fprintf(w, "Parsed as: %s\n", best.ParsedTime.Format("2006-01-02 15:04:05.000000 MST"))
	fmt.Fprintf(w, "Message: %s\n", best.SampleMessage)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "--- Configuration snippet (copy to your config file) ---")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "match:")
	fmt.Fprintf(w, "  prefix_pattern: '%s'\n", best.Format.PatternStr)
	fmt.Fprintf(w, "  timestamp_layout: \"%s\"\n", best.Format.Layout)
	fmt.Fprintln(w)

	// Show alternatives if requested
	if opts.ShowAll && len(result.Matches) > 1 {
		fmt.Fprintln(w, "--- Alternative formats detected ---")
		for i, m := range result.Matches[1:] {
			fmt.Fprintf(w, "%d. %s (%.1f%% confidence)\n", i+2, m.Format.Name, m.Confidence*100)
			fmt.Fprintf(w, "   prefix_pattern: '%s'\n", m.Format.PatternStr)
			fmt.Fprintf(w, "   timestamp_layout: \"%s\"\n", m.Format.Layout)
		}
		fmt.Fprintln(w)
	}

	return nil
}

// JSONMatch represents a format match in JSON output.
type JSONMatch struct {
	Name       string  `json:"name"`
	Pattern    string  `json:"pattern"`
	Layout     string  `json:"layout"`
	Confidence float64 `json:"confidence"`
	MatchCount int     `json:"match_count"`
	SampleLine string  `json:"sample_line"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File         string      `json:"file"`
	Matches      []JSONMatch `json:"matches"`
	SampledLines int         `json:"sampled_lines"`
	ParsedLines  int         `json:"parsed_lines"`
}

func outputDetectJSON(w io.Writer, result *detector.DetectionResult, logFile string, opts *DetectOptions) error {
	output := JSONOutput{
		File:         logFile,
		SampledLines: result.SampledLines,
		ParsedLines:  result.ParsedLines,
		Matches:      make([]JSONMatch, 0),
	}

	matches := result.Matches
	if !opts.ShowAll && len(matches) > 1 {
		matches = matches[:1] // Only show best match
	}

	for _, m := range matches {
		output.Matches = append(output.Matches, JSONMatch{
			Name:       m.Format.Name,
			Pattern:    m.Format.PatternStr,
			Layout:     m.Format.Layout,
			Confidence: m.Confidence,
			MatchCount: m.MatchCount,
			SampleLine: m.SampleLine,
		})
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}

// writeStarterConfig generates a starter config file with the detected format.
func writeStarterConfig(w io.Writer, result *detector.DetectionResult, configPath string) error {
	// Check if file already exists
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	if !result.HasMatch() {
		return fmt.Errorf("cannot generate config: no prefix format detected")
	}

	content := generateStarterConfig(result.BestMatch())

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Fprintf(w, "Wrote starter config to: %s\n\n", configPath)
	return nil
}

// generateStarterConfig creates a YAML config template.
func generateStarterConfig(match *detector.FormatMatch) string {
	return fmt.Sprintf(`# leavelogalone configuration
# Generated by: leavelogalone detect
# Detected format: %s (%.0f%% confidence)

# Project root, relative to this file.
root: .
build_dir: %s

extensions:
  - .cpp

# Translation units to skip, as globs relative to root.
# exclude:
#   - src/test/**

compile_patterns: true

output:
  path: messages.json
  format: json

log:
  level: info

match:
  prefix_pattern: '%s'
  timestamp_layout: "%s"
  max_unmatched: %d

# webhooks:
#   - name: ci
#     url: https://example.com/hooks/leavelogalone
#     token: ${LEAVELOGALONE_WEBHOOK_TOKEN}
#     trigger: on_issues
`, match.Format.Name, match.Confidence*100,
		config.DefaultBuildDir,
		match.Format.PatternStr,
		match.Format.Layout,
		config.DefaultMaxUnmatched)
}
