// Package commands implements the leavelogalone subcommands.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/davidgumberg/leavelogalone/internal/logging"
	"github.com/davidgumberg/leavelogalone/pkg/config"
	"github.com/davidgumberg/leavelogalone/pkg/output"
	"github.com/davidgumberg/leavelogalone/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// Exit codes.
const (
	ExitOK     = 0
	ExitIssues = 1
	ExitError  = 2
)

// projectOptions are the flags of commands that load a project configuration.
type projectOptions struct {
	ConfigPath string
	LogLevel   string
	LogFile    string
}

func (o *projectOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.ConfigPath, "config", "c", "", "Config file (default <src-dir>/"+config.DefaultFileName+" if present)")
	cmd.Flags().StringVar(&o.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.Flags().StringVar(&o.LogFile, "log-file", "", "Also write JSON logs to this file")
}

// load discovers the configuration for root, applies flag overrides and validates
// the result. A non-empty root replaces the configured one. It also returns the
// config file that was read, if any.
func (o *projectOptions) load(ctx context.Context, root string, override func(*config.Config)) (*config.Config, string, error) {
	cfg, used, err := config.Discover(ctx, root, o.ConfigPath)
	if err != nil {
		return nil, used, err
	}
	if root != "" {
		cfg.Root = root
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFile != "" {
		cfg.Log.File = o.LogFile
	}
	if override != nil {
		override(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, used, err
	}
	return cfg, used, nil
}

// reportOptions control how a command prints its summary.
type reportOptions struct {
	Output  string
	Verbose bool
	Quiet   bool
	Color   bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

func (o *reportOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.Output, "output", "o", "text", "Summary format (text|json)")
	cmd.Flags().BoolVarP(&o.Verbose, "verbose", "v", false, "Show details, not just totals")
	cmd.Flags().BoolVarP(&o.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().BoolVar(&o.Color, "color", false, "Force colored text output")

	cmd.Flags().StringVar(&o.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&o.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&o.WebhookTrigger, "webhook-trigger", "on_issues", "When to fire webhook (on_issues|always|never)")
}

func (o *reportOptions) formatter() (output.Formatter, error) {
	return output.NewFormatter(o.Output, output.FormatOptions{
		Verbose: o.Verbose,
		Quiet:   o.Quiet,
		Color:   o.Color,
	})
}

// webhooks merges config file webhooks with the one given on the command line.
func (o *reportOptions) webhooks(cfg *config.Config) ([]config.WebhookConfig, error) {
	hooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	hooks = append(hooks, cfg.Webhooks...)

	if o.WebhookURL != "" {
		trigger := config.WebhookTrigger(o.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnIssues
		}
		hook := config.WebhookConfig{
			Name:    "cli",
			URL:     o.WebhookURL,
			Token:   o.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		}
		if err := hook.Validate(); err != nil {
			return nil, fmt.Errorf("%w: --webhook-url: %w", config.ErrConfiguration, err)
		}
		hooks = append(hooks, hook)
	}
	return hooks, nil
}

// notify sends event to the configured webhooks. Failures are logged only.
func (o *reportOptions) notify(ctx context.Context, cfg *config.Config, event webhook.Event, logger *zap.Logger) {
	hooks, err := o.webhooks(cfg)
	if err != nil {
		logger.Warn("webhook skipped", zap.Error(err))
		return
	}
	if len(hooks) == 0 {
		return
	}
	webhook.NewClient().Notify(ctx, hooks, event, logger)
}

func newLogger(cmd *cobra.Command, cfg *config.Config) (*zap.Logger, func() error, error) {
	return logging.New(logging.Config{
		Level:    cfg.Log.Level,
		FilePath: cfg.Log.File,
		Console:  cmd.ErrOrStderr(),
	})
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
