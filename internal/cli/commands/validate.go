package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/davidgumberg/leavelogalone/pkg/compiledb"
	"github.com/davidgumberg/leavelogalone/pkg/config"
	"github.com/davidgumberg/leavelogalone/pkg/extract"
	"github.com/davidgumberg/leavelogalone/pkg/scope"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a leavelogalone configuration file without running extraction.

Checks:
  - YAML syntax and unknown fields
  - Required fields
  - Exclude glob and prefix pattern validity
  - Webhook settings
  - Compilation database presence (warning only)`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	excluder, err := scope.NewExcluder(cfg.Root, cfg.ExcludePatterns())
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Root:        %s\n", cfg.Root)
	fmt.Fprintf(out, "  Build dir:   %s\n", cfg.BuildPath())
	fmt.Fprintf(out, "  Extensions:  %v\n", cfg.Extensions)
	fmt.Fprintf(out, "  Exclude:     %s\n", strings.Join(excluder.Patterns(), ", "))
	if cfg.Output.Path != "" {
		fmt.Fprintf(out, "  Output:      %s (%s)\n", cfg.Output.Path, cfg.Output.Format)
	}
	fmt.Fprintf(out, "  Webhooks:    %d\n", len(cfg.Webhooks))

	// The compilation database is only needed at extraction time.
	db, err := compiledb.Load(cfg.BuildPath())
	if err != nil {
		fmt.Fprintf(out, "\nWarning: %v\n", err)
		return nil
	}

	cmds, err := extract.Plan(db, extract.PlanOptions{Extensions: cfg.Extensions, Excluder: excluder})
	if err != nil {
		fmt.Fprintf(out, "\nWarning: %v\n", err)
		return nil
	}

	fmt.Fprintf(out, "\nCompilation database: %s\n", db.Path())
	fmt.Fprintf(out, "  Entries:            %d\n", db.Len())
	candidates := len(db.Files(cfg.Extensions))
	fmt.Fprintf(out, "  Translation units:  %d to extract (%d excluded)\n", len(cmds), candidates-len(cmds))
	if len(cmds) == 0 {
		fmt.Fprintf(out, "\nWarning: no translation units match the configured extensions\n")
	}

	return nil
}
