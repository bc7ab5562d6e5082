package parser

import (
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("2024-01-15T10:00:00Z Loaded 3 blocks\n"), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestExpandGlobs_SingleFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "debug.log")
	touch(t, file)

	result, err := ExpandGlobs([]string{file})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 || result[0] != file {
		t.Errorf("ExpandGlobs() = %v, want [%s]", result, file)
	}
}

func TestExpandGlobs_RecursivePattern(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "node0", "regtest", "debug.log"))
	touch(t, filepath.Join(dir, "node1", "regtest", "debug.log"))
	touch(t, filepath.Join(dir, "node1", "regtest", "peers.dat"))

	result, err := ExpandGlobs([]string{filepath.Join(dir, "**", "debug.log")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 2 {
		t.Errorf("ExpandGlobs() returned %v, want 2 debug.log files", result)
	}
}

func TestExpandGlobs_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "a.log"))
	if err := os.Mkdir(filepath.Join(dir, "dir.log"), 0755); err != nil {
		t.Fatal(err)
	}

	result, err := ExpandGlobs([]string{filepath.Join(dir, "*.log")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 {
		t.Errorf("ExpandGlobs() = %v, want only the file", result)
	}
}

func TestExpandGlobs_NoMatch(t *testing.T) {
	pattern := filepath.Join(t.TempDir(), "*.nonexistent")

	result, err := ExpandGlobs([]string{pattern})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	// Should return the pattern as-is when no match
	if len(result) != 1 || result[0] != pattern {
		t.Errorf("ExpandGlobs() = %v, want [%s]", result, pattern)
	}
}

func TestExpandGlobs_Deduplication(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "debug.log")
	touch(t, file)

	result, err := ExpandGlobs([]string{file, filepath.Join(dir, "*.log")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 1 {
		t.Errorf("ExpandGlobs() returned %d files, want 1 (deduplicated)", len(result))
	}
}

func TestExpandGlobs_InvalidPattern(t *testing.T) {
	_, err := ExpandGlobs([]string{"[invalid"})
	if err == nil {
		t.Error("ExpandGlobs() expected error for invalid pattern")
	}
}

func TestExpandGlobs_Sorted(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"c.log", "a.log", "b.log"} {
		touch(t, filepath.Join(dir, f))
	}

	result, err := ExpandGlobs([]string{filepath.Join(dir, "*.log")})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	for i := 1; i < len(result); i++ {
		if result[i-1] > result[i] {
			t.Errorf("ExpandGlobs() result not sorted: %v", result)
			break
		}
	}
}

func TestExpandGlobs_EmptyInput(t *testing.T) {
	result, err := ExpandGlobs([]string{})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	if len(result) != 0 {
		t.Errorf("ExpandGlobs([]) = %v, want empty", result)
	}
}

func TestExpandGlobs_Directory(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "node0", "regtest", "debug.log"))
	touch(t, filepath.Join(dir, "node1", "regtest", "debug.log"))
	touch(t, filepath.Join(dir, "node1", "regtest", "wallet.log"))

	result, err := ExpandGlobs([]string{dir})
	if err != nil {
		t.Fatalf("ExpandGlobs() error = %v", err)
	}
	want := []string{
		filepath.Join(dir, "node0", "regtest", "debug.log"),
		filepath.Join(dir, "node1", "regtest", "debug.log"),
	}
	if len(result) != 2 || result[0] != want[0] || result[1] != want[1] {
		t.Errorf("ExpandGlobs() = %v, want %v", result, want)
	}
}
