package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/davidgumberg/leavelogalone/pkg/parser"
	"github.com/davidgumberg/leavelogalone/pkg/scope"
)

// Default values for configuration.
const (
	DefaultFileName        = "leavelogalone.yaml"
	DefaultBuildDir        = "build"
	DefaultOutputFormat    = "json"
	DefaultLogLevel        = "info"
	DefaultWebhookTimeout  = 10 * time.Second
	DefaultTimestampLayout = time.RFC3339Nano
	DefaultMaxUnmatched    = 100
)

// Environment variable names.
const (
	EnvRoot     = "LEAVELOGALONE_ROOT"
	EnvWorkers  = "LEAVELOGALONE_WORKERS"
	EnvLogLevel = "LEAVELOGALONE_LOG_LEVEL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BuildDir:        DefaultBuildDir,
		Extensions:      []string{".cpp"},
		Exclude:         append([]string(nil), scope.DefaultExcludes...),
		CompilePatterns: true,
		Output: OutputConfig{
			Format: DefaultOutputFormat,
		},
		Log: LogConfig{
			Level: DefaultLogLevel,
		},
		Match: MatchConfig{
			PrefixPattern:   parser.DefaultPrefixPattern,
			TimestampLayout: DefaultTimestampLayout,
			MaxUnmatched:    DefaultMaxUnmatched,
		},
	}
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() error {
	if root := os.Getenv(EnvRoot); root != "" {
		c.Root = root
	}
	if workers := os.Getenv(EnvWorkers); workers != "" {
		n, err := strconv.Atoi(workers)
		if err != nil {
			return fmt.Errorf("%w: %s: %q is not a number", ErrConfiguration, EnvWorkers, workers)
		}
		c.Workers = n
	}
	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Log.Level = level
	}
	return nil
}
