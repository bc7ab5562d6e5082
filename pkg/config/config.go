package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"gopkg.in/yaml.v3"
)

// ErrConfiguration marks errors in the configuration. They are fatal before any
// work starts.
var ErrConfiguration = errors.New("invalid configuration")

var (
	validFormats   = []string{"json", "duckdb"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

// Parse decodes YAML configuration on top of the defaults and applies environment
// overrides. A relative root is resolved against dir. The result is not validated.
func Parse(data []byte, dir string) (*Config, error) {
	cfg := DefaultConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: parsing config file: %w", ErrConfiguration, err)
	}

	if cfg.Root != "" && !filepath.IsAbs(cfg.Root) && dir != "" {
		cfg.Root = filepath.Join(dir, cfg.Root)
	}

	if err := cfg.applyEnvironmentOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read reads a configuration file without validating it.
func Read(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("%w: reading config file: %w", ErrConfiguration, err)
	}
	return Parse(data, filepath.Dir(path))
}

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Discover returns the configuration for a project root: path if given, otherwise
// DefaultFileName inside root if present, otherwise the defaults. It also returns the
// file it read, if any. The result is not validated so that command line flags can
// still be applied.
func Discover(_ context.Context, root, path string) (*Config, string, error) {
	if path == "" && root != "" {
		candidate := filepath.Join(root, DefaultFileName)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
		}
	}

	if path == "" {
		cfg, err := Parse(nil, "")
		return cfg, "", err
	}

	cfg, err := Read(path)
	return cfg, path, err
}

// Validate checks a configuration for errors, makes paths absolute and compiles
// regex patterns.
func Validate(cfg *Config) error {
	if cfg.Root == "" {
		return fieldError("root", "is required")
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return fieldError("root", "%v", err)
	}
	cfg.Root = root

	if cfg.BuildDir == "" {
		cfg.BuildDir = DefaultBuildDir
	}

	if len(cfg.Extensions) == 0 {
		return fieldError("extensions", "at least one extension is required")
	}
	for i, ext := range cfg.Extensions {
		if !strings.HasPrefix(ext, ".") {
			return fieldError(fmt.Sprintf("extensions[%d]", i), "%q must start with a dot", ext)
		}
	}

	for i, pattern := range cfg.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fieldError(fmt.Sprintf("exclude[%d]", i), "invalid glob %q", pattern)
		}
	}

	if cfg.Workers < 0 {
		return fieldError("workers", "must be >= 0")
	}

	if cfg.Output.Format == "" {
		cfg.Output.Format = DefaultOutputFormat
	}
	if !contains(validFormats, cfg.Output.Format) {
		return fieldError("output.format", "invalid format %q (must be json or duckdb)", cfg.Output.Format)
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if !contains(validLogLevels, cfg.Log.Level) {
		return fieldError("log.level", "invalid level %q (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	if err := validateMatch(&cfg.Match); err != nil {
		return err
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := cfg.Webhooks[i].Validate(); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("%w: webhooks[%d] (%s): %w", ErrConfiguration, i, name, err)
		}
	}

	return nil
}

// BuildPath returns the directory holding compile_commands.json.
func (c *Config) BuildPath() string {
	if filepath.IsAbs(c.BuildDir) {
		return c.BuildDir
	}
	return filepath.Join(c.Root, c.BuildDir)
}

// ExcludePatterns returns the configured exclude globs plus one for the build
// directory when it lies inside Root.
func (c *Config) ExcludePatterns() []string {
	patterns := append([]string(nil), c.Exclude...)
	rel, err := filepath.Rel(c.Root, c.BuildPath())
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return patterns
	}
	pattern := filepath.ToSlash(rel) + "/**"
	for _, p := range patterns {
		if p == pattern {
			return patterns
		}
	}
	return append(patterns, pattern)
}

func validateMatch(m *MatchConfig) error {
	if m.PrefixPattern == "" || m.AutoDetect() {
		m.compiledPrefix = nil
		return nil
	}

	re, err := regexp.Compile(m.PrefixPattern)
	if err != nil {
		return fieldError("match.prefix_pattern", "invalid pattern: %v", err)
	}
	m.compiledPrefix = re

	if re.NumSubexp() >= 1 && m.TimestampLayout == "" {
		return fieldError("match.timestamp_layout", "is required when prefix_pattern captures a timestamp")
	}
	return nil
}

// Validate checks a webhook and fills in its defaults.
func (wh *WebhookConfig) Validate() error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	wh.Token = expandEnvVar(wh.Token)

	if wh.Trigger != "" {
		switch wh.Trigger {
		case WebhookTriggerOnIssues, WebhookTriggerAlways, WebhookTriggerNever:
		default:
			return fmt.Errorf("invalid trigger %q (must be on_issues, always, or never)", wh.Trigger)
		}
	} else {
		wh.Trigger = WebhookTriggerOnIssues
	}

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		return os.Getenv(s[2 : len(s)-1])
	}

	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		return os.Getenv(s[1:])
	}

	return s
}

func fieldError(field, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrConfiguration, field, fmt.Sprintf(format, args...))
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
