package output

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/davidgumberg/leavelogalone/pkg/callsite"
	"github.com/davidgumberg/leavelogalone/pkg/format"
	"github.com/davidgumberg/leavelogalone/pkg/logdb"
	"github.com/davidgumberg/leavelogalone/pkg/logmsg"
)

// duckdbExtensions mark files OpenDatabase reads as DuckDB.
var duckdbExtensions = []string{".duckdb", ".ddb"}

var duckdbSchema = []string{`
	CREATE TABLE log_messages (
		id VARCHAR PRIMARY KEY,
		fmt VARCHAR NOT NULL,
		regex VARCHAR,
		regex_types VARCHAR,
		file VARCHAR,
		line INTEGER NOT NULL,
		"column" INTEGER NOT NULL,
		macro VARCHAR NOT NULL,
		category VARCHAR
	)`, `
	CREATE TABLE runs (
		run_id VARCHAR NOT NULL,
		root VARCHAR,
		created_at TIMESTAMP NOT NULL,
		messages INTEGER NOT NULL
	)`,
}

// DuckDBSink writes the database to a DuckDB file with a log_messages table and a
// runs table holding the producing run.
type DuckDBSink struct {
	Path string
}

// Name returns the sink format name.
func (s *DuckDBSink) Name() string {
	return SinkDuckDB
}

// Write replaces the file at the sink's path with a fresh DuckDB database.
func (s *DuckDBSink) Write(ctx context.Context, db *logdb.Database, info RunInfo) error {
	for _, path := range []string{s.Path, s.Path + ".wal"} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}

	conn, err := sql.Open("duckdb", s.Path)
	if err != nil {
		return fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer conn.Close()

	for _, ddl := range duckdbSchema {
		if _, err := conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create tables: %w", err)
		}
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO log_messages (id, fmt, regex, regex_types, file, line, "column", macro, category)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	messages := db.Messages()
	for _, m := range messages {
		row, err := duckdbRow(m)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return fmt.Errorf("failed to insert message %q: %w", m.Fmt(), err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, root, created_at, messages) VALUES (?, ?, ?, ?)`,
		info.RunID, info.Root, info.CreatedAt.UTC(), len(messages)); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func duckdbRow(m logmsg.LogMessage) ([]any, error) {
	r := m.Record()

	var regexTypes any
	if r.RegexTypes != nil {
		b, err := json.Marshal(*r.RegexTypes)
		if err != nil {
			return nil, fmt.Errorf("encoding field kinds: %w", err)
		}
		regexTypes = string(b)
	}

	return []any{
		strconv.FormatUint(m.ID(), 16),
		r.Fmt,
		nullable(r.Regex),
		regexTypes,
		nullable(r.File),
		r.Line,
		r.Column,
		string(r.Macro),
		nullable(r.Category),
	}, nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

// OpenDatabase loads a database written by either sink. Files with a DuckDB extension
// are read as DuckDB, everything else as JSON.
func OpenDatabase(ctx context.Context, path string) (*logdb.Database, error) {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range duckdbExtensions {
		if ext == e {
			return ReadDuckDB(ctx, path)
		}
	}
	return logdb.Load(path)
}

// ReadDuckDB loads the log_messages table of a DuckDB file written by DuckDBSink.
func ReadDuckDB(ctx context.Context, path string) (*logdb.Database, error) {
	// Opening a missing file would create an empty database.
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	conn, err := sql.Open("duckdb", path+"?access_mode=read_only")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	defer conn.Close()

	rows, err := conn.QueryContext(ctx, `
		SELECT fmt, regex, regex_types, file, line, "column", macro, category
		FROM log_messages
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query log_messages: %w", err)
	}
	defer rows.Close()

	db := logdb.New()
	for rows.Next() {
		var (
			r                                 logmsg.Record
			regex, regexTypes, file, category sql.NullString
			macro                             string
		)
		if err := rows.Scan(&r.Fmt, &regex, &regexTypes, &file, &r.Line, &r.Column, &macro, &category); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		r.Regex = fromNullable(regex)
		r.File = fromNullable(file)
		r.Category = fromNullable(category)
		r.Macro = callsite.CallKind(macro)
		if regexTypes.Valid {
			var kinds []format.FieldKind
			if err := json.Unmarshal([]byte(regexTypes.String), &kinds); err != nil {
				return nil, fmt.Errorf("decoding field kinds of %q: %w", r.Fmt, err)
			}
			r.RegexTypes = &kinds
		}

		m, err := logmsg.FromRecord(r)
		if err != nil {
			return nil, fmt.Errorf("row %q: %w", r.Fmt, err)
		}
		db.Add(m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}
	return db, nil
}

func fromNullable(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}
