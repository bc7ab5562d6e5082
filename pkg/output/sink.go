package output

import (
	"context"
	"fmt"
	"time"

	"github.com/davidgumberg/leavelogalone/pkg/logdb"
)

// Sink formats supported by NewSink.
const (
	SinkJSON   = "json"
	SinkDuckDB = "duckdb"
)

// RunInfo identifies the run that produced a database.
type RunInfo struct {
	RunID     string
	Root      string
	CreatedAt time.Time
}

// Sink persists a log message database.
type Sink interface {
	// Write stores every message of db, replacing whatever the destination held.
	Write(ctx context.Context, db *logdb.Database, info RunInfo) error

	// Name returns the sink format name.
	Name() string
}

// NewSink returns the sink for format writing to path.
func NewSink(format, path string) (Sink, error) {
	switch format {
	case SinkJSON, "":
		return &JSONSink{Path: path}, nil
	case SinkDuckDB:
		return &DuckDBSink{Path: path}, nil
	default:
		return nil, fmt.Errorf("unknown database format %q (use %s or %s)", format, SinkJSON, SinkDuckDB)
	}
}

// JSONSink writes the database as a JSON array of message records.
type JSONSink struct {
	Path string
}

// Name returns the sink format name.
func (s *JSONSink) Name() string {
	return SinkJSON
}

// Write saves db to the sink's path.
func (s *JSONSink) Write(ctx context.Context, db *logdb.Database, info RunInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return db.Save(s.Path)
}
