package parser

import (
	"context"
	"io"
	"testing"
	"time"
)

func TestMergedSource_Next(t *testing.T) {
	node0 := writeLog(t, "node0.log", `2024-01-15T10:00:00Z A first
2024-01-15T10:00:02Z A second
2024-01-15T10:00:04Z A third
`)
	node1 := writeLog(t, "node1.log", `2024-01-15T10:00:01Z B first
2024-01-15T10:00:03Z B second
`)

	merged := NewMergedSource(
		NewFileSource([]string{node0}, DefaultPrefixStripper()),
		NewFileSource([]string{node1}, DefaultPrefixStripper()),
	)
	defer merged.Close()

	lines := readAll(t, merged)
	if len(lines) != 5 {
		t.Fatalf("Got %d lines, want 5", len(lines))
	}

	want := []string{"A first", "B first", "A second", "B second", "A third"}
	for i, w := range want {
		if lines[i].Message != w {
			t.Errorf("line %d = %q, want %q", i, lines[i].Message, w)
		}
	}

	if !lines[4].Timestamp.Equal(time.Date(2024, 1, 15, 10, 0, 4, 0, time.UTC)) {
		t.Errorf("last timestamp = %v", lines[4].Timestamp)
	}
}

func TestMergedSource_EqualTimestampsKeepSourceOrder(t *testing.T) {
	a := writeLog(t, "a.log", "same time a1\nsame time a2\n")
	b := writeLog(t, "b.log", "same time b1\n")

	merged := NewMergedSource(NewFileSource([]string{a}, nil), NewFileSource([]string{b}, nil))
	defer merged.Close()

	lines := readAll(t, merged)
	want := []string{"same time a1", "same time a2", "same time b1"}
	if len(lines) != len(want) {
		t.Fatalf("Got %d lines, want %d", len(lines), len(want))
	}
	for i, w := range want {
		if lines[i].Message != w {
			t.Errorf("line %d = %q, want %q", i, lines[i].Message, w)
		}
	}
}

func TestMergedSource_EmptySources(t *testing.T) {
	merged := NewMergedSource()
	defer merged.Close()

	_, err := merged.Next(context.Background())
	if err != io.EOF {
		t.Errorf("Next() error = %v, want io.EOF", err)
	}
}

func TestMergedSource_ExhaustedStaysExhausted(t *testing.T) {
	a := writeLog(t, "a.log", "2024-01-15T10:00:00Z only line\n")

	merged := NewMergedSource(NewFileSource([]string{a}, DefaultPrefixStripper()))
	defer merged.Close()

	ctx := context.Background()
	if _, err := merged.Next(ctx); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := merged.Next(ctx); err != io.EOF {
			t.Errorf("Next() error = %v, want io.EOF", err)
		}
	}
}

func TestMergedSource_PropagatesErrors(t *testing.T) {
	merged := NewMergedSource(NewFileSource([]string{"/nonexistent/debug.log"}, nil))
	defer merged.Close()

	if _, err := merged.Next(context.Background()); err == nil || err == io.EOF {
		t.Errorf("Next() error = %v, want open error", err)
	}
}
