// Package compiledb reads a clang JSON compilation database (compile_commands.json).
package compiledb

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// FileName is the compilation database file looked up inside the build directory.
const FileName = "compile_commands.json"

var (
	// ErrNotFound means the build directory holds no compilation database.
	ErrNotFound = errors.New("compilation database not found")

	// ErrNoCommand means a requested file has no entry in the database.
	ErrNoCommand = errors.New("file not found in compilation database")
)

// entry mirrors one object of compile_commands.json.
type entry struct {
	Directory string   `json:"directory"`
	File      string   `json:"file"`
	Arguments []string `json:"arguments"`
	Command   string   `json:"command"`
	Output    string   `json:"output"`
}

// Command is how one translation unit is compiled.
type Command struct {
	// Directory is the working directory of the compiler invocation.
	Directory string

	// File is the absolute, cleaned path of the translation unit.
	File string

	// Arguments is the full compiler command line, compiler included.
	Arguments []string
}

// Database is a loaded compilation database. It is read-only after Load.
type Database struct {
	path     string
	commands []Command
	byFile   map[string]int
}

// Load reads <buildDir>/compile_commands.json.
func Load(buildDir string) (*Database, error) {
	path := filepath.Join(buildDir, FileName)
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from user configuration
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: expected %s; check that the build directory exists and "+
				"that the project was configured with CMAKE_EXPORT_COMPILE_COMMANDS=ON", ErrNotFound, path)
		}
		return nil, fmt.Errorf("reading compilation database: %w", err)
	}

	db, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	db.path = path
	return db, nil
}

// Parse decodes a compilation database from its JSON form.
func Parse(data []byte) (*Database, error) {
	var entries []entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing compilation database: %w", err)
	}

	db := &Database{byFile: make(map[string]int, len(entries))}
	for i, e := range entries {
		if e.File == "" {
			return nil, fmt.Errorf("entry %d: missing file", i)
		}

		args := e.Arguments
		if len(args) == 0 && e.Command != "" {
			split, err := SplitCommand(e.Command)
			if err != nil {
				return nil, fmt.Errorf("entry %d (%s): %w", i, e.File, err)
			}
			args = split
		}

		file := e.File
		if !filepath.IsAbs(file) {
			file = filepath.Join(e.Directory, file)
		}
		file = filepath.Clean(file)

		// The first command for a file wins.
		if _, ok := db.byFile[file]; ok {
			continue
		}
		db.byFile[file] = len(db.commands)
		db.commands = append(db.commands, Command{
			Directory: e.Directory,
			File:      file,
			Arguments: args,
		})
	}
	return db, nil
}

// Path returns the file the database was loaded from, or "" if it was parsed from memory.
func (d *Database) Path() string {
	return d.path
}

// Len returns the number of distinct translation units.
func (d *Database) Len() int {
	return len(d.commands)
}

// Commands returns every command, one per translation unit, in database order.
func (d *Database) Commands() []Command {
	out := make([]Command, len(d.commands))
	copy(out, d.commands)
	return out
}

// Lookup finds the command for file. Relative paths are resolved against the current
// directory.
func (d *Database) Lookup(file string) (Command, error) {
	abs, err := filepath.Abs(file)
	if err != nil {
		return Command{}, fmt.Errorf("resolving %s: %w", file, err)
	}
	i, ok := d.byFile[abs]
	if !ok {
		return Command{}, fmt.Errorf("%w: %s", ErrNoCommand, file)
	}
	return d.commands[i], nil
}

// Files lists the translation units whose extension is in exts, sorted.
func (d *Database) Files(exts []string) []string {
	var out []string
	for _, c := range d.commands {
		if hasExtension(c.File, exts) {
			out = append(out, c.File)
		}
	}
	sort.Strings(out)
	return out
}

// HasExtension reports whether the translation unit's extension is one of exts,
// ignoring case.
func (c Command) HasExtension(exts []string) bool {
	return hasExtension(c.File, exts)
}

func hasExtension(file string, exts []string) bool {
	ext := filepath.Ext(file)
	for _, e := range exts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
