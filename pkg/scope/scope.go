// Package scope decides which source files belong to the project being scanned.
package scope

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultExcludes are project-relative globs for trees that hold no production log
// calls. The build directory is added by the configuration, wherever it is.
var DefaultExcludes = []string{
	"src/bench/**",
	"src/test/**",
	"src/ipc/test/**",
	"src/qt/test/**",
	"src/wallet/test/**",
}

// Filter keeps files that lie inside Root. The zero Filter accepts everything.
type Filter struct {
	Root string
}

// NewFilter returns a Filter for root, made absolute and cleaned.
func NewFilter(root string) (Filter, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Filter{}, fmt.Errorf("resolving root %s: %w", root, err)
	}
	return Filter{Root: abs}, nil
}

// Contains reports whether path is Root itself or below it. The check works on path
// components, so /src/project2 is not inside /src/project.
func (f Filter) Contains(path string) bool {
	if f.Root == "" {
		return true
	}
	if path == "" {
		return false
	}
	rel, err := filepath.Rel(f.Root, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Excluder matches project-relative paths against doublestar globs.
type Excluder struct {
	root     string
	patterns []string
}

// NewExcluder validates patterns and returns an Excluder for paths below root.
func NewExcluder(root string, patterns []string) (*Excluder, error) {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid exclude pattern %q", p)
		}
	}
	return &Excluder{root: root, patterns: append([]string(nil), patterns...)}, nil
}

// Excluded reports whether path matches any pattern. Absolute paths are made relative
// to the root first; paths outside the root are never excluded.
func (e *Excluder) Excluded(path string) bool {
	rel := path
	if filepath.IsAbs(path) {
		r, err := filepath.Rel(e.root, path)
		if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
			return false
		}
		rel = r
	}
	rel = filepath.ToSlash(rel)

	for _, p := range e.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// Patterns returns the configured globs.
func (e *Excluder) Patterns() []string {
	return append([]string(nil), e.patterns...)
}
