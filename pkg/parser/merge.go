package parser

import (
	"context"
	"errors"
	"io"
)

// MergedSource interleaves the logs of several processes, e.g. the nodes of one
// functional test, oldest line first. Lines with equal timestamps come from the
// earlier source first.
type MergedSource struct {
	sources []LogSource

	// heads holds the next unread line of each source; nil once it is exhausted.
	heads  []*ParsedLine
	primed bool
}

// NewMergedSource merges sources by timestamp.
func NewMergedSource(sources ...LogSource) *MergedSource {
	return &MergedSource{
		sources: sources,
		heads:   make([]*ParsedLine, len(sources)),
	}
}

// Next returns the oldest pending line across all sources, or io.EOF once they are
// all exhausted. The number of sources is small, so the oldest head is found by a
// linear scan.
func (m *MergedSource) Next(ctx context.Context) (*ParsedLine, error) {
	if !m.primed {
		for i := range m.sources {
			if err := m.advance(ctx, i); err != nil {
				return nil, err
			}
		}
		m.primed = true
	}

	oldest := -1
	for i, head := range m.heads {
		if head == nil {
			continue
		}
		if oldest < 0 || head.Timestamp.Before(m.heads[oldest].Timestamp) {
			oldest = i
		}
	}
	if oldest < 0 {
		return nil, io.EOF
	}

	line := m.heads[oldest]
	if err := m.advance(ctx, oldest); err != nil {
		return nil, err
	}
	return line, nil
}

// advance replaces the head of source i with its next line.
func (m *MergedSource) advance(ctx context.Context, i int) error {
	line, err := m.sources[i].Next(ctx)
	if errors.Is(err, io.EOF) {
		m.heads[i] = nil
		return nil
	}
	if err != nil {
		return err
	}
	m.heads[i] = line
	return nil
}

// Close closes every source and returns the first error.
func (m *MergedSource) Close() error {
	var first error
	for _, src := range m.sources {
		if err := src.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
