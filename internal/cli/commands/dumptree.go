package commands

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/davidgumberg/leavelogalone/pkg/compiledb"
	"github.com/davidgumberg/leavelogalone/pkg/scope"
	"github.com/davidgumberg/leavelogalone/pkg/source"
)

// DumpTreeOptions holds command-line options for the dump-tree command.
type DumpTreeOptions struct {
	project projectOptions

	// All expands headers outside the project root too.
	All bool
}

// NewDumpTreeCommand creates the dump-tree command.
func NewDumpTreeCommand() *cobra.Command {
	opts := &DumpTreeOptions{}

	cmd := &cobra.Command{
		Use:   "dump-tree <src-dir> <file>",
		Short: "Print the include and macro tree of one translation unit",
		Long: `Print the tree extraction walks for one translation unit: the files it
includes, in order, and the macro invocations found in each.

Headers outside the project root are listed but not expanded unless --all is given.
The file may be given relative to the current directory or to <src-dir>.

Example:
  leavelogalone dump-tree ~/bitcoin src/init.cpp`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDumpTree(cmd, args, opts)
		},
	}

	opts.project.register(cmd)
	cmd.Flags().BoolVar(&opts.All, "all", false, "Also expand headers outside the project root")

	return cmd
}

func runDumpTree(cmd *cobra.Command, args []string, opts *DumpTreeOptions) error {
	ctx := commandContext(cmd)

	cfg, _, err := opts.project.load(ctx, args[0], nil)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }()

	db, err := compiledb.Load(cfg.BuildPath())
	if err != nil {
		return err
	}
	compileCmd, err := lookupFile(db, cfg.Root, args[1])
	if err != nil {
		return err
	}

	parserOpts := []source.Option{source.WithLogger(logger)}
	if !opts.All {
		filter, err := scope.NewFilter(cfg.Root)
		if err != nil {
			return err
		}
		parserOpts = append(parserOpts, source.WithScope(filter.Contains))
	}

	tree, err := source.NewParser(parserOpts...).Parse(ctx, compileCmd)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", compileCmd.File, err)
	}
	return source.Dump(cmd.OutOrStdout(), tree)
}

// lookupFile finds file in db, trying it relative to root when the path as given is
// not a translation unit.
func lookupFile(db *compiledb.Database, root, file string) (compiledb.Command, error) {
	cmd, err := db.Lookup(file)
	if err == nil || filepath.IsAbs(file) || !errors.Is(err, compiledb.ErrNoCommand) {
		return cmd, err
	}
	if rooted, rerr := db.Lookup(filepath.Join(root, file)); rerr == nil {
		return rooted, nil
	}
	return cmd, err
}
