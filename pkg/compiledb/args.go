package compiledb

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
)

// skippedPrefixes are flags that only affect code generation and diagnostics.
var skippedPrefixes = []string{"-O", "-W", "-g", "-f"}

// CleanArgs drops the compiler, code generation and warning flags, and the -c <file>
// pair from a command line. It stops at "--" and ends the result with -fsyntax-only.
func CleanArgs(args []string) []string {
	return append(frontendArgs(args), "-fsyntax-only")
}

// frontendArgs is CleanArgs without the trailing -fsyntax-only.
func frontendArgs(args []string) []string {
	clean := []string{}
	if len(args) == 0 {
		return clean
	}

	skipNext := false
	for _, a := range args[1:] {
		if a == "--" {
			break
		}
		if skipNext {
			skipNext = false
			continue
		}
		if a == "-c" {
			skipNext = true
			continue
		}
		if hasAnyPrefix(a, skippedPrefixes) {
			continue
		}
		clean = append(clean, a)
	}
	return clean
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}

// SearchPath holds the include directories of one command, in lookup order.
type SearchPath struct {
	// Quote directories are searched only for "header" includes, after the directory of
	// the including file.
	Quote []string

	// Angled directories are searched for both include forms.
	Angled []string
}

// SearchPath extracts the include directories from the cleaned command line.
// Relative directories are resolved against the command's working directory.
func (c Command) SearchPath() SearchPath {
	var quote, user, system, after []string
	args := frontendArgs(c.Arguments)

	for i := 0; i < len(args); i++ {
		a := args[i]
		var dst *[]string
		var flag string
		switch {
		case strings.HasPrefix(a, "-iquote"):
			dst, flag = &quote, "-iquote"
		case strings.HasPrefix(a, "-isystem"):
			dst, flag = &system, "-isystem"
		case strings.HasPrefix(a, "-idirafter"):
			dst, flag = &after, "-idirafter"
		case strings.HasPrefix(a, "-I"):
			dst, flag = &user, "-I"
		default:
			continue
		}

		dir := strings.TrimPrefix(a, flag)
		if dir == "" {
			if i+1 >= len(args) {
				break
			}
			i++
			dir = args[i]
		}
		*dst = append(*dst, c.resolve(dir))
	}

	angled := make([]string, 0, len(user)+len(system)+len(after))
	angled = append(angled, user...)
	angled = append(angled, system...)
	angled = append(angled, after...)
	return SearchPath{Quote: quote, Angled: angled}
}

func (c Command) resolve(dir string) string {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(c.Directory, dir)
	}
	return filepath.Clean(dir)
}

// SplitCommand splits the command field of a compilation database entry into words.
// Environment variables and backticks are left alone. A command chained with a shell
// operator (;, &&, |, redirections) is rejected rather than cut short.
func SplitCommand(cmd string) ([]string, error) {
	p := shellwords.NewParser()
	words, err := p.Parse(cmd)
	if err != nil {
		return nil, fmt.Errorf("splitting command: %w", err)
	}
	if p.Position >= 0 {
		return nil, fmt.Errorf("splitting command: shell operator at offset %d", p.Position)
	}
	return words, nil
}
