package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidgumberg/leavelogalone/pkg/config"
	"github.com/davidgumberg/leavelogalone/pkg/detector"
	"github.com/davidgumberg/leavelogalone/pkg/matcher"
	"github.com/davidgumberg/leavelogalone/pkg/output"
	"github.com/davidgumberg/leavelogalone/pkg/parser"
	"github.com/davidgumberg/leavelogalone/pkg/webhook"
)

// MatchOptions holds command-line options for the match command.
type MatchOptions struct {
	project projectOptions
	report  reportOptions

	TimeRange    string
	Prefix       string
	Layout       string
	Detect       bool
	MaxUnmatched int
}

// NewMatchCommand creates the match command.
func NewMatchCommand() *cobra.Command {
	opts := &MatchOptions{}

	cmd := &cobra.Command{
		Use:   "match <database> <log-file-or-glob>...",
		Short: "Match runtime log lines against a message database",
		Long: `Match the lines of runtime log files against the messages of a database
written by extract.

Each line has its prefix (timestamp and tags) removed and is then matched against
every known format string, most specific first. The report counts how often each
message was seen and lists the lines no message accounts for. Several log files are
merged by timestamp.

Databases ending in .duckdb are read as DuckDB, anything else as JSON.

Example:
  leavelogalone match messages.json ~/.bitcoin/debug.log
  leavelogalone match messages.json '/tmp/test_runner_*/**/debug.log' --prefix auto

Exit codes:
  0 - Every line matched a known message
  1 - Unmatched lines found
  2 - Configuration or runtime error`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatch(cmd, args, opts)
		},
	}

	opts.project.register(cmd)
	opts.report.register(cmd)
	cmd.Flags().StringVar(&opts.TimeRange, "time-range", "", "Limit matching to a time window ending now (e.g., 2h, 24h)")
	cmd.Flags().StringVar(&opts.Prefix, "prefix", "", "Regex of the line prefix to strip, or \"auto\" to detect it")
	cmd.Flags().StringVar(&opts.Layout, "layout", "", "Go time layout of the timestamp captured by --prefix")
	cmd.Flags().BoolVar(&opts.Detect, "detect", false, "Detect the line prefix from the first log file (same as --prefix auto)")
	cmd.Flags().IntVar(&opts.MaxUnmatched, "max-unmatched", config.DefaultMaxUnmatched, "Unmatched lines to list, -1 for all")

	return cmd
}

func runMatch(cmd *cobra.Command, args []string, opts *MatchOptions) error {
	ctx := commandContext(cmd)
	dbPath, patterns := args[0], args[1:]

	cfg, _, err := opts.project.load(ctx, "", func(cfg *config.Config) {
		if cfg.Root == "" {
			cfg.Root = "."
		}
		if opts.Prefix != "" {
			cfg.Match.PrefixPattern = opts.Prefix
		}
		if opts.Layout != "" {
			cfg.Match.TimestampLayout = opts.Layout
		}
		if opts.Detect {
			cfg.Match.PrefixPattern = config.PrefixAuto
		}
		if cmd.Flags().Changed("max-unmatched") {
			cfg.Match.MaxUnmatched = opts.MaxUnmatched
		}
	})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	var runOpts []matcher.RunOption
	if opts.TimeRange != "" {
		duration, err := time.ParseDuration(opts.TimeRange)
		if err != nil {
			return fmt.Errorf("invalid time-range %q: %w", opts.TimeRange, err)
		}
		end := time.Now()
		runOpts = append(runOpts, matcher.WithTimeRange(end.Add(-duration), end))
	}

	formatter, err := opts.report.formatter()
	if err != nil {
		return err
	}

	logger, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	db, err := output.OpenDatabase(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("loading database: %w", err)
	}
	m := matcher.New(db)
	for _, s := range m.Skipped() {
		logger.Warn("skipping pattern that does not compile",
			zap.String("fmt", s.Fmt), zap.Error(s.Err))
	}

	files, err := parser.ExpandGlobs(patterns)
	if err != nil {
		return fmt.Errorf("expanding log files: %w", err)
	}

	stripper, err := prefixStripper(ctx, cfg, files[0], logger)
	if err != nil {
		return err
	}

	// Create log source with timestamp-ordered merging across files
	var source parser.LogSource
	if len(files) == 1 {
		source = parser.NewFileSource(files, stripper)
	} else {
		sources := make([]parser.LogSource, len(files))
		for i, file := range files {
			sources[i] = parser.NewFileSource([]string{file}, stripper)
		}
		source = parser.NewMergedSource(sources...)
	}
	defer source.Close()

	logger.Info("matching log files",
		zap.Int("files", len(files)),
		zap.Int("patterns", m.Len()),
		zap.String("database", dbPath))

	runOpts = append(runOpts,
		matcher.WithMaxUnmatched(cfg.Match.MaxUnmatched),
		matcher.WithLogger(logger))
	report, err := m.Run(ctx, source, runOpts...)
	if err != nil {
		return fmt.Errorf("matching failed: %w", err)
	}

	logger.Info("matching finished",
		zap.Int("lines", report.LinesProcessed),
		zap.Int("matched", report.LinesMatched),
		zap.Int("unmatched", report.UnmatchedTotal))

	if err := formatter.FormatMatch(ctx, report, cmd.OutOrStdout()); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	opts.report.notify(ctx, cfg, webhook.Event{
		Kind:      webhook.EventMatch,
		RunID:     runID,
		HasIssues: report.HasUnmatched(),
		Payload:   report,
	}, logger)

	if report.HasUnmatched() {
		ExitCode = ExitIssues
	}
	return nil
}

// prefixStripper returns the stripper the configuration asks for. With "auto" the
// prefix is detected from sample; when nothing is detected whole lines are matched.
func prefixStripper(ctx context.Context, cfg *config.Config, sample string, logger *zap.Logger) (*parser.PrefixStripper, error) {
	if !cfg.Match.AutoDetect() {
		re := cfg.Match.CompiledPrefix()
		if re == nil {
			return nil, nil
		}
		return parser.NewPrefixStripper(re, cfg.Match.TimestampLayout), nil
	}

	result, err := detector.New().DetectFromFile(ctx, sample)
	if err != nil {
		return nil, fmt.Errorf("detecting log prefix: %w", err)
	}
	if !result.HasMatch() {
		logger.Warn("no known log prefix detected, matching whole lines", zap.String("file", sample))
		return nil, nil
	}

	best := result.BestMatch()
	logger.Info("detected log prefix",
		zap.String("format", best.Format.Name),
		zap.Float64("confidence", best.Confidence))
	return result.Stripper(), nil
}
