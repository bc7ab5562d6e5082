package output

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestNewTextFormatter(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	if f == nil {
		t.Fatal("NewTextFormatter() returned nil")
	}
	if f.Name() != "text" {
		t.Errorf("Name() = %q, want %q", f.Name(), "text")
	}
}

func TestTextFormatter_FormatExtract(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})

	var buf bytes.Buffer
	if err := f.FormatExtract(context.Background(), createTestSummary(), &buf); err != nil {
		t.Fatalf("FormatExtract() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"leavelogalone extraction",
		"2/3",
		"38 in 5 source files",
		"LogPrintf 30",
		"Failures: 1 file(s)",
		"src/net.cpp: parsing failed",
		"Summary: INCOMPLETE",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q:\n%s", want, output)
		}
	}
	if strings.Contains(output, "BCLog::NET") {
		t.Error("categories should only be listed in verbose mode")
	}
	if strings.Contains(output, "\x1b[") {
		t.Error("Output contains escape sequences without Color")
	}
}

func TestTextFormatter_FormatExtract_Verbose(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Verbose: true})

	var buf bytes.Buffer
	if err := f.FormatExtract(context.Background(), createTestSummary(), &buf); err != nil {
		t.Fatalf("FormatExtract() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{"By category:", "BCLog::NET", "Run: 6f1c0f5e", "Duration: 1.5s"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q", want)
		}
	}
}

func TestTextFormatter_FormatExtract_Quiet(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Quiet: true})

	var buf bytes.Buffer
	if err := f.FormatExtract(context.Background(), createTestSummary(), &buf); err != nil {
		t.Fatalf("FormatExtract() error = %v", err)
	}

	want := "leavelogalone: 38 messages from 2 files, 1 failures\n"
	if buf.String() != want {
		t.Errorf("Output = %q, want %q", buf.String(), want)
	}
}

func TestTextFormatter_FormatMatch(t *testing.T) {
	f := NewTextFormatter(FormatOptions{Verbose: true})

	var buf bytes.Buffer
	if err := f.FormatMatch(context.Background(), createTestMatchReport(t), &buf); err != nil {
		t.Fatalf("FormatMatch() error = %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"Sources:  node0/debug.log",
		"4 processed, 3 matched, 1 unmatched",
		"1 of 4 messages seen (25.0%)",
		`"UpdateTip: height=%d\n"`,
		"src/validation.cpp:2801:5 LogPrintf",
		"node0/debug.log:2: mystery line",
		"Summary: unmatched lines found",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q:\n%s", want, output)
		}
	}
}

func TestTextFormatter_FormatMatch_AllMatched(t *testing.T) {
	f := NewTextFormatter(FormatOptions{})
	report := createTestMatchReport(t)
	report.Unmatched = nil
	report.UnmatchedTotal = 0

	var buf bytes.Buffer
	if err := f.FormatMatch(context.Background(), report, &buf); err != nil {
		t.Fatalf("FormatMatch() error = %v", err)
	}
	if !strings.Contains(buf.String(), "Summary: all lines matched") {
		t.Errorf("Output = %s", buf.String())
	}
	if strings.Contains(buf.String(), "src/validation.cpp") {
		t.Error("sites should only be listed in verbose mode")
	}
}
