// Package config provides configuration loading and validation for leavelogalone.
package config

import (
	"regexp"
	"time"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// Root is the project root. Call sites outside it are never extracted.
	Root string `yaml:"root"`

	// BuildDir holds compile_commands.json. Relative paths are resolved against Root.
	BuildDir string `yaml:"build_dir"`

	// Extensions selects which translation units are scheduled.
	Extensions []string `yaml:"extensions"`

	// Exclude lists doublestar globs, relative to Root, of translation units to skip.
	Exclude []string `yaml:"exclude"`

	// Workers bounds concurrent parsing. Zero means one per CPU.
	Workers int `yaml:"workers"`

	// CompilePatterns enables format string compilation into regexes.
	CompilePatterns bool `yaml:"compile_patterns"`

	// JoinAdjacentLiterals joins adjacent string literals of a format argument into
	// one format string instead of extracting them as written.
	JoinAdjacentLiterals bool `yaml:"join_adjacent_literals"`

	Output   OutputConfig    `yaml:"output"`
	Log      LogConfig       `yaml:"log"`
	Match    MatchConfig     `yaml:"match"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
}

// OutputConfig controls where the database is written.
type OutputConfig struct {
	Path string `yaml:"path"`

	// Format is json or duckdb.
	Format string `yaml:"format"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	// Level is debug, info, warn or error.
	Level string `yaml:"level"`

	// File, if set, also receives JSON logs with rotation.
	File string `yaml:"file,omitempty"`
}

// PrefixAuto selects the runtime log prefix by sampling the log files.
const PrefixAuto = "auto"

// MatchConfig controls how runtime log lines are read before matching.
type MatchConfig struct {
	// PrefixPattern is a regex matching the prefix written before each message. Its
	// first capture group, if any, is the timestamp. "auto" detects it from the logs.
	PrefixPattern string `yaml:"prefix_pattern"`

	// TimestampLayout is the Go time layout of the captured timestamp.
	TimestampLayout string `yaml:"timestamp_layout"`

	// MaxUnmatched caps the unmatched lines listed in a report. Negative lists all.
	MaxUnmatched int `yaml:"max_unmatched"`

	// compiledPrefix is the pre-compiled regex (populated during validation).
	compiledPrefix *regexp.Regexp
}

// CompiledPrefix returns the pre-compiled prefix pattern, or nil for "auto".
func (m *MatchConfig) CompiledPrefix() *regexp.Regexp {
	return m.compiledPrefix
}

// AutoDetect reports whether the prefix should be detected from the logs.
func (m *MatchConfig) AutoDetect() bool {
	return m.PrefixPattern == PrefixAuto
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnIssues fires only when a run has failures or unmatched lines
	// (default).
	WebhookTriggerOnIssues WebhookTrigger = "on_issues"
	// WebhookTriggerAlways fires after every run.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending run summaries.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_issues" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// ShouldFire reports whether the webhook fires for a run with or without issues.
func (w *WebhookConfig) ShouldFire(hasIssues bool) bool {
	switch w.Trigger {
	case WebhookTriggerAlways:
		return true
	case WebhookTriggerNever:
		return false
	default:
		return hasIssues
	}
}
