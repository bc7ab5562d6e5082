package detector

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDetector_DetectFromLines_Bitcoind(t *testing.T) {
	lines := []string{
		"2024-01-15T10:30:00Z Bitcoin Core version v27.0.0",
		"2024-01-15T10:30:05Z [net] Added connection peer=0",
		"2024-01-15T10:30:10Z [msghand] [validation.cpp:2801] [UpdateTip] UpdateTip: height=1",
	}

	d := New()
	result := d.DetectFromLines(lines)

	if !result.HasMatch() {
		t.Fatal("Expected to detect a format")
	}

	best := result.BestMatch()
	if best.Format.Name != "bitcoind" {
		t.Errorf("Expected bitcoind, got %s", best.Format.Name)
	}

	if best.Confidence != 1.0 {
		t.Errorf("Expected 100%% confidence, got %.1f%%", best.Confidence*100)
	}
	if result.ParsedLines != 3 {
		t.Errorf("Expected 3 parsed lines, got %d", result.ParsedLines)
	}
}

func TestDetector_DetectFromLines_Microseconds(t *testing.T) {
	lines := []string{
		"2024-01-15T10:30:00.123456Z [init] Using data directory /tmp/node0",
		"2024-01-15T10:30:00.223456Z [init] Loaded 12 addresses",
	}

	best := New().DetectFromLines(lines).BestMatch()
	if best == nil || best.Format.Name != "bitcoind with microseconds" {
		t.Fatalf("Expected bitcoind with microseconds, got %+v", best)
	}
	want := time.Date(2024, 1, 15, 10, 30, 0, 123456000, time.UTC)
	if !best.ParsedTime.Equal(want) {
		t.Errorf("ParsedTime = %v, want %v", best.ParsedTime, want)
	}
}

func TestDetector_DetectFromLines_Syslog(t *testing.T) {
	lines := []string{
		"Jun 14 15:16:01 node1 bitcoind[812]: Loaded best chain",
		"Jun 14 15:16:02 node1 bitcoind[812]: init message: Done loading",
		"Jun  4 15:16:03 node1 bitcoind: Shutdown: done",
	}

	best := New().DetectFromLines(lines).BestMatch()
	if best == nil {
		t.Fatal("Expected to detect a format")
	}
	if best.Format.Name != "Syslog (BSD)" {
		t.Errorf("Expected Syslog (BSD), got %s", best.Format.Name)
	}
	if best.MatchCount != 3 {
		t.Errorf("Expected 3 matches, got %d", best.MatchCount)
	}
}

func TestDetector_DetectFromLines_Bracketed(t *testing.T) {
	lines := []string{
		"[2024-01-15 10:30:00] Application started",
		"[2024-01-15 10:30:05] Processing request",
	}

	best := New().DetectFromLines(lines).BestMatch()
	if best == nil || best.Format.Name != "Bracketed datetime" {
		t.Fatalf("Expected Bracketed datetime, got %+v", best)
	}
}

func TestDetector_DetectFromLines_NoMatch(t *testing.T) {
	lines := []string{
		"no timestamp here",
		"Loaded block index",
	}

	result := New().DetectFromLines(lines)
	if result.HasMatch() {
		t.Errorf("Expected no match, got %s", result.BestMatch().Format.Name)
	}
	if result.Stripper() != nil {
		t.Error("Stripper() should be nil without a match")
	}
}

func TestDetector_DetectFromLines_EmptyInput(t *testing.T) {
	result := New().DetectFromLines(nil)
	if result.HasMatch() {
		t.Error("Expected no match for empty input")
	}
	if result.SampledLines != 0 {
		t.Errorf("Expected 0 sampled lines, got %d", result.SampledLines)
	}
}

func TestDetector_DetectFromLines_MixedFormats(t *testing.T) {
	lines := []string{
		"2024-01-15T10:30:00Z one",
		"2024-01-15T10:30:01Z two",
		"2024-01-15T10:30:02Z three",
		"[2024-01-15 10:30:03] four",
	}

	result := New().DetectFromLines(lines)
	if len(result.Matches) != 2 {
		t.Fatalf("Expected 2 formats, got %d", len(result.Matches))
	}
	best := result.BestMatch()
	if best.Format.Name != "bitcoind" {
		t.Errorf("Expected bitcoind first, got %s", best.Format.Name)
	}
	if best.Confidence != 0.75 {
		t.Errorf("Expected 75%% confidence, got %.1f%%", best.Confidence*100)
	}
}

func TestDetectionResult_Stripper(t *testing.T) {
	lines := []string{"2024-01-15T10:30:05Z [net] [net.cpp:100] Added connection peer=0"}

	stripper := New().DetectFromLines(lines).Stripper()
	if stripper == nil {
		t.Fatal("Stripper() returned nil")
	}

	message, ts, ok := stripper.Strip(lines[0])
	if !ok {
		t.Fatal("Strip() did not match the detected prefix")
	}
	if message != "Added connection peer=0" {
		t.Errorf("message = %q", message)
	}
	if ts.Second() != 5 {
		t.Errorf("timestamp = %v", ts)
	}
}

func TestDetector_WithSampleSize(t *testing.T) {
	d := New(WithSampleSize(50))
	if d.sampleSize != 50 {
		t.Errorf("Expected sample size 50, got %d", d.sampleSize)
	}
}

func TestDetector_WithSampleSize_Invalid(t *testing.T) {
	d := New(WithSampleSize(-1))
	if d.sampleSize != 100 {
		t.Errorf("Expected default sample size 100, got %d", d.sampleSize)
	}
}

func TestDetector_DetectFromFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "debug.log")

	content := "2024-01-15T10:30:00Z Started\n\n2024-01-15T10:30:01Z Processing\n2024-01-15T10:30:02Z Done\n"
	if err := os.WriteFile(tmpFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temp file: %v", err)
	}

	d := New(WithSampleSize(2))
	result, err := d.DetectFromFile(context.Background(), tmpFile)
	if err != nil {
		t.Fatalf("DetectFromFile failed: %v", err)
	}

	if result.SampledLines != 2 {
		t.Errorf("Expected 2 sampled lines, got %d", result.SampledLines)
	}
	if best := result.BestMatch(); best == nil || best.Format.Name != "bitcoind" {
		t.Errorf("Expected bitcoind, got %+v", best)
	}
}

func TestDetector_DetectFromFile_NotFound(t *testing.T) {
	_, err := New().DetectFromFile(context.Background(), "/nonexistent/debug.log")
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
}

func TestDefaultFormats(t *testing.T) {
	for _, f := range DefaultFormats() {
		if f.Pattern == nil {
			t.Errorf("%s: pattern not compiled", f.Name)
			continue
		}
		if f.Pattern.NumSubexp() < 1 {
			t.Errorf("%s: pattern has no timestamp group", f.Name)
		}
		for _, example := range f.Examples {
			line := example + "message"
			m := f.Pattern.FindStringSubmatch(line)
			if m == nil {
				t.Errorf("%s: example %q does not match", f.Name, example)
				continue
			}
			if _, err := time.Parse(f.Layout, m[1]); err != nil {
				t.Errorf("%s: example %q does not parse: %v", f.Name, example, err)
			}
		}
	}
}
