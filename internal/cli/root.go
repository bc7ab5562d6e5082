// Package cli provides the command-line interface for leavelogalone.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/davidgumberg/leavelogalone/internal/cli/commands"
	"github.com/davidgumberg/leavelogalone/internal/cli/plugins"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	return ExecuteArgs(os.Args[1:])
}

// ExecuteArgs runs the root command with args and returns the exit code.
func ExecuteArgs(args []string) int {
	rootCmd := NewRootCommand()
	commands.ExitCode = commands.ExitOK

	// Check if the first argument might be a plugin command
	if len(args) > 0 {
		potentialCommand := args[0]
		// Skip flags (start with -)
		if len(potentialCommand) > 0 && potentialCommand[0] != '-' && !isBuiltinCommand(rootCmd, potentialCommand) {
			if pluginPath, err := plugins.FindPlugin(potentialCommand); err == nil {
				return plugins.Execute(pluginPath, args[1:])
			}
			// Plugin not found - will fall through to Cobra which will show error
		}
	}

	// Ctrl-C stops scheduling new work; files already being parsed finish.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if len(args) > 0 {
			potentialCommand := args[0]
			if len(potentialCommand) > 0 && potentialCommand[0] != '-' && !isBuiltinCommand(rootCmd, potentialCommand) {
				_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), plugins.FormatNotFoundError(potentialCommand))
				return commands.ExitError
			}
		}
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		if errors.Is(err, context.Canceled) {
			_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), "Interrupted; nothing was written.")
		}
		return commands.ExitError
	}
	return commands.ExitCode
}

// isBuiltinCommand checks if a command name is a built-in cobra command.
func isBuiltinCommand(rootCmd *cobra.Command, name string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == name || cmd.HasAlias(name) {
			return true
		}
	}
	// Also check for special commands like help and completion
	return name == "help" || name == "completion"
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "leavelogalone",
		Short: "Extract log messages from C++ sources and match logs against them",
		Long: `leavelogalone builds a database of every log message a C++ project can emit.

For each LogInfo, LogDebug, LogPrintf (and related) call site it records:
  - The literal format string
  - A regex that matches the formatted output, with typed fields
  - The file, line, column, macro and log category

The database can be written as JSON or DuckDB, and the match command uses it to
recognize the lines of runtime logs and report the ones no message accounts for.

PLUGINS:
  leavelogalone supports plugins for extended functionality. Plugins are
  standalone binaries named leavelogalone-<command> that are automatically
  discovered and invoked.

  Plugin locations (searched in order):
    1. Same directory as the leavelogalone binary
    2. ~/.leavelogalone/plugins/
    3. Anywhere in PATH`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add subcommands
	rootCmd.AddCommand(commands.NewExtractCommand())
	rootCmd.AddCommand(commands.NewMatchCommand())
	rootCmd.AddCommand(commands.NewWatchCommand())
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewDumpTreeCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
