// Package extract drives log message extraction over the translation units of a
// compilation database.
package extract

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/davidgumberg/leavelogalone/pkg/callsite"
	"github.com/davidgumberg/leavelogalone/pkg/compiledb"
	"github.com/davidgumberg/leavelogalone/pkg/logdb"
	"github.com/davidgumberg/leavelogalone/pkg/logmsg"
	"github.com/davidgumberg/leavelogalone/pkg/pool"
	"github.com/davidgumberg/leavelogalone/pkg/scope"
	"github.com/davidgumberg/leavelogalone/pkg/source"
)

// WorkerPanicError is a panic recovered while processing one file.
type WorkerPanicError struct {
	File  string
	Value any
	Stack []byte
}

func (e *WorkerPanicError) Error() string {
	return fmt.Sprintf("worker panic while processing %s: %v", e.File, e.Value)
}

// Failure records a file that produced no messages because of an error.
type Failure struct {
	File string
	Err  error
}

// Report summarizes one extraction run.
type Report struct {
	RunID    string
	Files    int
	Parsed   int
	Sites    int
	Added    int
	Skipped  int
	Failures []Failure
	Duration time.Duration
}

// Options configures a Runner.
type Options struct {
	// Root is the project root. Call sites in files outside it are ignored and message
	// paths are made relative to it.
	Root string

	// Workers bounds how many files are processed at once. Zero means one per CPU.
	Workers int

	// CompilePatterns enables format string compilation.
	CompilePatterns bool

	// JoinAdjacentLiterals is passed through to logmsg.BuildOptions.
	JoinAdjacentLiterals bool

	Logger *zap.Logger

	// Progress, if set, is called after each file with the number of files done.
	Progress func(done, total int)
}

type parseFunc func(ctx context.Context, p *source.Parser, cmd compiledb.Command) (*source.Node, error)

// Runner distributes translation units over a bounded set of workers. Each worker
// borrows a parser from a pool, so header caches are reused across files.
type Runner struct {
	opts    Options
	filter  scope.Filter
	logger  *zap.Logger
	parsers *pool.Pool[*source.Parser]
	parse   parseFunc
}

// NewRunner creates a Runner.
func NewRunner(opts Options) (*Runner, error) {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	filter, err := scope.NewFilter(opts.Root)
	if err != nil {
		return nil, err
	}
	opts.Root = filter.Root

	parsers, err := pool.New(opts.Workers, func() *source.Parser {
		return source.NewParser(source.WithScope(filter.Contains), source.WithLogger(logger))
	})
	if err != nil {
		return nil, err
	}

	return &Runner{
		opts:    opts,
		filter:  filter,
		logger:  logger,
		parsers: parsers,
		parse: func(ctx context.Context, p *source.Parser, cmd compiledb.Command) (*source.Node, error) {
			return p.Parse(ctx, cmd)
		},
	}, nil
}

// Workers returns the effective worker count.
func (r *Runner) Workers() int {
	return r.opts.Workers
}

// Reset drops every pooled parser's file cache. Call it between runs when sources may
// have changed.
func (r *Runner) Reset(ctx context.Context) error {
	for i := 0; i < r.parsers.Size(); i++ {
		p, err := r.parsers.Acquire(ctx)
		if err != nil {
			return err
		}
		defer r.parsers.Release(p)
		p.Reset()
	}
	return nil
}

// Run extracts messages from every command into db. Failures in one file are recorded
// in the report and never stop the others. Cancelling ctx stops scheduling new files;
// Run then returns the partial report with ctx's error.
func (r *Runner) Run(ctx context.Context, cmds []compiledb.Command, db *logdb.Database) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: uuid.NewString(), Files: len(cmds)}
	logger := r.logger.With(zap.String("run_id", report.RunID))

	logger.Info("starting extraction",
		zap.Int("files", len(cmds)),
		zap.Int("workers", r.opts.Workers),
		zap.String("root", r.opts.Root))

	var mu sync.Mutex
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(r.opts.Workers)

	for _, cmd := range cmds {
		cmd := cmd
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			defer func() {
				n := done.Add(1)
				if r.opts.Progress != nil {
					r.opts.Progress(int(n), len(cmds))
				}
			}()
			if ctx.Err() != nil {
				return nil
			}

			result, err := r.processFile(ctx, cmd, db, logger)

			mu.Lock()
			defer mu.Unlock()
			report.Sites += result.sites
			report.Added += result.added
			report.Skipped += result.skipped
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					report.Failures = append(report.Failures, Failure{File: cmd.File, Err: err})
				}
				return nil
			}
			report.Parsed++
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].File < report.Failures[j].File
	})
	report.Duration = time.Since(start)

	logger.Info("extraction finished",
		zap.Int("parsed", report.Parsed),
		zap.Int("failed", len(report.Failures)),
		zap.Int("sites", report.Sites),
		zap.Int("messages", db.Len()),
		zap.Int("idle_parsers", r.parsers.Available()),
		zap.Duration("duration", report.Duration))

	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

type fileResult struct {
	sites   int
	added   int
	skipped int
}

// processFile parses one translation unit and adds its messages to db. A panic is
// converted to a *WorkerPanicError.
func (r *Runner) processFile(ctx context.Context, cmd compiledb.Command, db *logdb.Database, logger *zap.Logger) (res fileResult, err error) {
	logger = logger.With(zap.String("file", cmd.File))

	defer func() {
		if v := recover(); v != nil {
			stack := debug.Stack()
			err = &WorkerPanicError{File: cmd.File, Value: v, Stack: stack}
			logger.Error("worker panic", zap.Any("panic", v), zap.ByteString("stack", stack))
		}
	}()

	sites, err := pool.With(ctx, r.parsers, func(p *source.Parser) ([]callsite.Site, error) {
		tree, err := r.parse(ctx, p, cmd)
		if err != nil {
			return nil, err
		}
		return source.Sites(tree, r.filter.Contains), nil
	})
	if err != nil {
		var perr *source.ParseError
		if errors.As(err, &perr) {
			logger.Warn("skipping file", zap.Error(err))
		}
		return res, err
	}

	opts := logmsg.BuildOptions{
		Root:                 r.opts.Root,
		CompilePatterns:      r.opts.CompilePatterns,
		JoinAdjacentLiterals: r.opts.JoinAdjacentLiterals,
	}
	for _, site := range sites {
		res.sites++
		m, err := logmsg.Build(site, opts)
		if err != nil {
			res.skipped++
			logSkip(logger, site, err)
			continue
		}
		if db.Add(m) {
			res.added++
		}
	}

	logger.Debug("file done", zap.Int("sites", res.sites), zap.Int("added", res.added))
	return res, nil
}

func logSkip(logger *zap.Logger, site callsite.Site, err error) {
	fields := []zap.Field{
		zap.String("macro", string(site.Kind)),
		zap.String("site_file", site.File),
		zap.Int("line", site.Line),
		zap.Int("column", site.Column),
	}

	var nonLit *callsite.NonLiteralError
	switch {
	case errors.As(err, &nonLit):
		logger.Warn("format string is not a literal, skipped", append(fields, zap.String("text", nonLit.Text))...)
	default:
		logger.Debug("skipping call site", append(fields, zap.Error(err))...)
	}
}
