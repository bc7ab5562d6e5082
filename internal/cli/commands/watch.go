package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidgumberg/leavelogalone/pkg/compiledb"
	"github.com/davidgumberg/leavelogalone/pkg/watch"
	"github.com/davidgumberg/leavelogalone/pkg/webhook"
)

// WatchOptions holds command-line options for the watch command.
type WatchOptions struct {
	ExtractOptions

	Debounce time.Duration
}

// NewWatchCommand creates the watch command.
func NewWatchCommand() *cobra.Command {
	opts := &WatchOptions{}

	cmd := &cobra.Command{
		Use:   "watch <src-dir> [out-path]",
		Short: "Re-run extraction whenever sources change",
		Long: `Extract once, then watch the project for changes to source files, headers
or the compilation database and extract again after each burst of changes.

Takes the same flags as extract. Stop with Ctrl-C.

Example:
  leavelogalone watch ~/bitcoin messages.json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().DurationVar(&opts.Debounce, "debounce", watch.DefaultDebounce, "Wait this long for changes to settle")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string, opts *WatchOptions) error {
	ctx := commandContext(cmd)

	cfg, err := opts.load(cmd, args)
	if err != nil {
		return err
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

	var progress io.Writer
	if opts.Progress {
		progress = cmd.ErrOrStderr()
	}
	ex, err := newExtraction(cfg, logger, progress)
	if err != nil {
		return err
	}

	extractAndReport := func(ctx context.Context) error {
		summary, err := ex.run(ctx, opts.Files)
		if err != nil {
			return err
		}
		if err := formatter.FormatExtract(ctx, summary, cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("formatting output: %w", err)
		}
		opts.report.notify(ctx, cfg, webhook.Event{
			Kind:      webhook.EventExtract,
			RunID:     summary.RunID,
			HasIssues: summary.HasFailures(),
			Payload:   summary,
		}, logger)
		return nil
	}

	// A broken setup is reported before watching starts.
	if err := extractAndReport(ctx); err != nil {
		return err
	}

	buildDir := cfg.BuildPath()
	w, err := watch.New(watch.Options{
		Root:       cfg.Root,
		Extensions: watchExtensions(cfg.Extensions),
		Files:      []string{filepath.Join(buildDir, compiledb.FileName)},
		SkipDir: func(dir string) bool {
			return dir == buildDir || ex.excluder.Excluded(dir)
		},
		Debounce: opts.Debounce,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer w.Close()

	logger.Info("watching for changes", zap.String("root", cfg.Root), zap.Int("directories", w.Dirs()))

	err = w.Run(ctx, func(ctx context.Context, changed []string) error {
		logger.Info("change detected, extracting", zap.Int("changed", len(changed)), zap.Strings("files", firstN(changed, 5)))
		if err := ex.reset(ctx); err != nil {
			return err
		}
		return extractAndReport(ctx)
	})
	if errors.Is(err, context.Canceled) {
		logger.Info("watch stopped")
		return nil
	}
	return err
}

// watchExtensions adds header extensions to the translation unit extensions, since
// a changed header changes every unit including it.
func watchExtensions(exts []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range [][]string{exts, watch.DefaultExtensions} {
		for _, e := range list {
			if !seen[e] {
				seen[e] = true
				out = append(out, e)
			}
		}
	}
	return out
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
