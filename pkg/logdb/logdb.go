// Package logdb collects log messages into a deduplicated database and reads and
// writes its JSON form.
package logdb

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/davidgumberg/leavelogalone/pkg/format"
	"github.com/davidgumberg/leavelogalone/pkg/logmsg"
)

// Database is a set of log messages keyed by call site. It is safe for concurrent use.
type Database struct {
	mu   sync.RWMutex
	byID map[uint64]logmsg.LogMessage
}

// New returns an empty database.
func New() *Database {
	return &Database{byID: make(map[uint64]logmsg.LogMessage)}
}

// Add inserts m and reports whether it was new. A call site seen again, e.g. through a
// header shared by several translation units, is ignored.
func (d *Database) Add(m logmsg.LogMessage) bool {
	id := m.ID()

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.byID[id]; ok {
		return false
	}
	d.byID[id] = m
	return true
}

// Len returns the number of distinct messages.
func (d *Database) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.byID)
}

// Messages returns every message sorted by file, line, column and format.
func (d *Database) Messages() []logmsg.LogMessage {
	d.mu.RLock()
	out := make([]logmsg.LogMessage, 0, len(d.byID))
	for _, m := range d.byID {
		out = append(out, m)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

func less(a, b logmsg.LogMessage) bool {
	af, aok := a.File()
	bf, bok := b.File()
	if aok != bok {
		// Messages without a file sort last.
		return aok
	}
	if af != bf {
		return af < bf
	}
	if a.Line() != b.Line() {
		return a.Line() < b.Line()
	}
	if a.Column() != b.Column() {
		return a.Column() < b.Column()
	}
	if a.Fmt() != b.Fmt() {
		return a.Fmt() < b.Fmt()
	}
	return a.Macro() < b.Macro()
}

// Stats summarizes a database.
type Stats struct {
	Messages   int
	Files      int
	ByMacro    map[string]int
	ByCategory map[string]int
}

// Stats counts messages per macro, per category and distinct files.
func (d *Database) Stats() Stats {
	s := Stats{ByMacro: map[string]int{}, ByCategory: map[string]int{}}
	files := map[string]bool{}
	for _, m := range d.Messages() {
		s.Messages++
		s.ByMacro[string(m.Macro())]++
		if c, ok := m.Category(); ok {
			s.ByCategory[c]++
		}
		if f, ok := m.File(); ok {
			files[f] = true
		}
	}
	s.Files = len(files)
	return s
}

// Encode writes the database as an indented JSON array in Messages order.
func (d *Database) Encode(w io.Writer) error {
	records := make([]logmsg.Record, 0, d.Len())
	for _, m := range d.Messages() {
		records = append(records, m.Record())
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(records)
}

// Save writes the database to path. The file is replaced atomically.
func (d *Database) Save(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating database file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := d.Encode(tmp); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing database: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing database: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}
	return nil
}

// Decode reads a JSON database. Records without a pattern get one compiled from their
// format string.
func Decode(r io.Reader) (*Database, error) {
	var records []logmsg.Record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decoding database: %w", err)
	}

	d := New()
	for i, rec := range records {
		if rec.Regex == nil {
			compiled := format.Compile(rec.Fmt)
			rec.Regex = &compiled.Pattern
			rec.RegexTypes = &compiled.Kinds
		}
		m, err := logmsg.FromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		d.Add(m)
	}
	return d, nil
}

// Load reads the JSON database at path.
func Load(path string) (*Database, error) {
	f, err := os.Open(path) // #nosec G304 -- user-provided path
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	defer f.Close()

	d, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return d, nil
}
