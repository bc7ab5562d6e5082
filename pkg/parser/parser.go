package parser

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// FileSource reads the lines of one or more log files in order.
type FileSource struct {
	files    []string
	stripper *PrefixStripper
	next     int

	file   *os.File
	reader *bufio.Reader
	path   string
	line   int
	last   time.Time // timestamp of the last prefixed line in the current file
}

// NewFileSource creates a LogSource that reads files one after another. A nil
// stripper leaves lines untouched.
func NewFileSource(files []string, stripper *PrefixStripper) *FileSource {
	return &FileSource{
		files:    files,
		stripper: stripper,
	}
}

// Next returns the next line, or io.EOF once every file is exhausted. A line without
// a prefix, such as the continuation of a message that contained a newline, carries
// the timestamp of the prefixed line before it.
func (s *FileSource) Next(ctx context.Context) (*ParsedLine, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if s.reader == nil {
			if err := s.open(); err != nil {
				return nil, err
			}
		}

		raw, err := s.reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("reading %s: %w", s.path, err)
		}
		if raw == "" && err != nil {
			if err := s.closeFile(); err != nil {
				return nil, err
			}
			continue
		}

		s.line++
		raw = strings.TrimRight(raw, "\r\n")
		parsed := &ParsedLine{
			Raw:     raw,
			Message: raw,
			Source:  s.path,
			LineNum: s.line,
		}
		if message, ts, ok := s.stripper.Strip(raw); ok {
			parsed.Message = message
			parsed.Prefixed = true
			if !ts.IsZero() {
				s.last = ts
			}
		}
		parsed.Timestamp = s.last
		return parsed, nil
	}
}

// Close releases the open file, if any.
func (s *FileSource) Close() error {
	return s.closeFile()
}

func (s *FileSource) open() error {
	if s.next >= len(s.files) {
		return io.EOF
	}
	path := s.files[s.next]
	s.next++

	f, err := os.Open(path) // #nosec G304 -- user-provided paths are expected
	if err != nil {
		return fmt.Errorf("opening log file %s: %w", path, err)
	}

	s.file = f
	s.reader = bufio.NewReaderSize(f, 64*1024)
	s.path = path
	s.line = 0
	s.last = time.Time{}
	return nil
}

func (s *FileSource) closeFile() error {
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.reader = nil
	return err
}
