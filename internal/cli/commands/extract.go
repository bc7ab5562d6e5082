package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidgumberg/leavelogalone/pkg/compiledb"
	"github.com/davidgumberg/leavelogalone/pkg/config"
	"github.com/davidgumberg/leavelogalone/pkg/extract"
	"github.com/davidgumberg/leavelogalone/pkg/logdb"
	"github.com/davidgumberg/leavelogalone/pkg/output"
	"github.com/davidgumberg/leavelogalone/pkg/scope"
	"github.com/davidgumberg/leavelogalone/pkg/webhook"
)

// ExtractOptions holds command-line options for the extract command.
type ExtractOptions struct {
	project projectOptions
	report  reportOptions

	Files    []string
	Workers  int
	NoRegex  bool
	Format   string
	Progress bool
	Exclude  []string

	JoinLiterals bool
}

// NewExtractCommand creates the extract command.
func NewExtractCommand() *cobra.Command {
	opts := &ExtractOptions{}

	cmd := &cobra.Command{
		Use:   "extract <src-dir> [out-path]",
		Short: "Extract log messages from a C++ project",
		Long: `Extract every log message call site of a C++ project into a database.

The project must have been configured with CMAKE_EXPORT_COMPILE_COMMANDS=ON so that
<src-dir>/build/compile_commands.json exists. Each translation unit is scanned for
logging macro invocations; their format strings are recorded together with a regex
that matches the formatted output.

The output path defaults to output.path from the config file.

Example:
  leavelogalone extract ~/bitcoin messages.json
  leavelogalone extract ~/bitcoin messages.json --file src/init.cpp --file src/net.cpp
  leavelogalone extract ~/bitcoin messages.duckdb --format duckdb --progress

Exit codes:
  0 - Extraction finished (files that failed are listed in the summary)
  2 - Configuration or runtime error`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExtract(cmd, args, opts)
		},
	}

	opts.register(cmd)
	return cmd
}

func (o *ExtractOptions) register(cmd *cobra.Command) {
	o.project.register(cmd)
	o.report.register(cmd)
	cmd.Flags().StringArrayVarP(&o.Files, "file", "f", nil, "Extract only this translation unit (can be repeated)")
	cmd.Flags().IntVarP(&o.Workers, "workers", "j", 0, "Files processed in parallel (default one per CPU)")
	cmd.Flags().BoolVar(&o.NoRegex, "no-regex", false, "Do not compile format strings into regexes")
	cmd.Flags().BoolVar(&o.JoinLiterals, "join-literals", false, "Join adjacent string literals into one format string")
	cmd.Flags().StringVar(&o.Format, "format", "", "Database format (json|duckdb)")
	cmd.Flags().BoolVar(&o.Progress, "progress", false, "Show a progress bar")
	cmd.Flags().StringArrayVar(&o.Exclude, "exclude", nil, "Skip translation units matching this glob (can be repeated)")
}

// load resolves the configuration for an extract style command.
func (o *ExtractOptions) load(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, _, err := o.project.load(commandContext(cmd), args[0], func(cfg *config.Config) {
		if len(args) > 1 {
			cfg.Output.Path = args[1]
		}
		o.apply(cmd, cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Output.Path == "" {
		return nil, fmt.Errorf("%w: no output path given and output.path is not set", config.ErrConfiguration)
	}
	return cfg, nil
}

// apply copies command line overrides onto cfg.
func (o *ExtractOptions) apply(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("workers") {
		cfg.Workers = o.Workers
	}
	if o.NoRegex {
		cfg.CompilePatterns = false
	}
	if o.JoinLiterals {
		cfg.JoinAdjacentLiterals = true
	}
	if o.Format != "" {
		cfg.Output.Format = o.Format
	}
	cfg.Exclude = append(cfg.Exclude, o.Exclude...)
}

func runExtract(cmd *cobra.Command, args []string, opts *ExtractOptions) error {
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

// extraction runs extraction passes for one project and writes the database.
type extraction struct {
	cfg      *config.Config
	runner   *extract.Runner
	excluder *scope.Excluder
	logger   *zap.Logger

	// progress receives a progress bar per run when set.
	progress io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func newExtraction(cfg *config.Config, logger *zap.Logger, progress io.Writer) (*extraction, error) {
	excluder, err := scope.NewExcluder(cfg.Root, cfg.ExcludePatterns())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	e := &extraction{cfg: cfg, excluder: excluder, logger: logger, progress: progress}
	runner, err := extract.NewRunner(extract.Options{
		Root:                 cfg.Root,
		Workers:              cfg.Workers,
		CompilePatterns:      cfg.CompilePatterns,
		JoinAdjacentLiterals: cfg.JoinAdjacentLiterals,
		Logger:               logger,
		Progress:             e.advance,
	})
	if err != nil {
		return nil, err
	}
	e.runner = runner
	return e, nil
}

func (e *extraction) advance(done, _ int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.bar != nil {
		_ = e.bar.Set(done)
	}
}

// run extracts the planned translation units, or only files when given, and writes
// the database. A run interrupted by ctx writes nothing.
func (e *extraction) run(ctx context.Context, files []string) (*output.ExtractSummary, error) {
	compileDB, err := compiledb.Load(e.cfg.BuildPath())
	if err != nil {
		return nil, err
	}

	resolved, err := resolveFiles(compileDB, e.cfg.Root, files)
	if err != nil {
		return nil, err
	}
	cmds, err := extract.Plan(compileDB, extract.PlanOptions{
		Files:      resolved,
		Extensions: e.cfg.Extensions,
		Excluder:   e.excluder,
	})
	if err != nil {
		return nil, err
	}

	if e.progress != nil {
		e.mu.Lock()
		e.bar = newProgressBar(e.progress, len(cmds), "Extracting")
		e.mu.Unlock()
		defer func() {
			e.mu.Lock()
			_ = e.bar.Finish()
			e.bar = nil
			e.mu.Unlock()
		}()
	}

	db := logdb.New()
	report, err := e.runner.Run(ctx, cmds, db)
	if err != nil {
		return nil, fmt.Errorf("extraction interrupted: %w", err)
	}

	sink, err := output.NewSink(e.cfg.Output.Format, e.cfg.Output.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}
	if dir := filepath.Dir(e.cfg.Output.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := sink.Write(ctx, db, output.RunInfo{
		RunID:     report.RunID,
		Root:      e.cfg.Root,
		CreatedAt: time.Now(),
	}); err != nil {
		return nil, fmt.Errorf("writing %s database: %w", sink.Name(), err)
	}

	summary := output.NewExtractSummary(e.cfg.Root, report, db.Stats())
	summary.Output = e.cfg.Output.Path
	summary.Format = sink.Name()
	return summary, nil
}

// reset drops cached file contents between runs.
func (e *extraction) reset(ctx context.Context) error {
	return e.runner.Reset(ctx)
}

// resolveFiles maps each file to the translation unit it names.
func resolveFiles(db *compiledb.Database, root string, files []string) ([]string, error) {
	var out []string
	for _, f := range files {
		cmd, err := lookupFile(db, root, f)
		if err != nil {
			return nil, err
		}
		out = append(out, cmd.File)
	}
	return out, nil
}
