// Package logging builds the zap logger used by the command line tool.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger construction.
type Config struct {
	// Level is debug, info, warn or error.
	Level string

	// FilePath, if set, also writes JSON logs to a rotated file.
	FilePath string

	// Console receives human-readable logs. Defaults to stderr.
	Console io.Writer
}

// RotationConfig controls log file rotation.
type RotationConfig struct {
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// DefaultRotationConfig returns the rotation used when none is given.
func DefaultRotationConfig() RotationConfig {
	return RotationConfig{
		MaxSize:    50,
		MaxBackups: 3,
		MaxAge:     14,
		Compress:   true,
	}
}

// ParseLevel converts a level name to a zap level.
func ParseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// New creates a logger writing to the console and, when configured, to a file. The
// returned closer flushes and closes the file output.
func New(cfg Config, rotation ...RotationConfig) (*zap.Logger, func() error, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	atomic := zap.NewAtomicLevelAt(level)

	console := cfg.Console
	if console == nil {
		console = os.Stderr
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.AddSync(console), atomic),
	}

	closeFile := func() error { return nil }
	if cfg.FilePath != "" {
		rc := DefaultRotationConfig()
		if len(rotation) > 0 {
			rc = rotation[0]
		}

		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		file := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    rc.MaxSize,
			MaxBackups: rc.MaxBackups,
			MaxAge:     rc.MaxAge,
			Compress:   rc.Compress,
		}
		fileConfig := zap.NewProductionEncoderConfig()
		fileConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(fileConfig), zapcore.AddSync(file), atomic))
		closeFile = file.Close
	}

	logger := zap.New(zapcore.NewTee(cores...), zap.ErrorOutput(zapcore.AddSync(console)))
	closer := func() error {
		_ = logger.Sync()
		return closeFile()
	}
	return logger, closer, nil
}
