// Package logmsg defines the record produced for every recognized log call site.
package logmsg

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/zeebo/xxh3"

	"github.com/davidgumberg/leavelogalone/pkg/callsite"
	"github.com/davidgumberg/leavelogalone/pkg/format"
)

// ErrCategoryMismatch is returned when a category is given for a plain macro or
// missing for a category-bearing one.
var ErrCategoryMismatch = errors.New("category does not match macro kind")

// LogMessage describes one log call site. It is immutable: build it with New and read
// it through its accessors.
type LogMessage struct {
	fmt      string
	pattern  *string
	kinds    []format.FieldKind
	file     *string
	line     int
	column   int
	macro    callsite.CallKind
	category *string
}

// Params are the inputs to New. Pattern and FieldKinds are left empty when pattern
// compilation is disabled.
type Params struct {
	Fmt        string
	Pattern    *string
	FieldKinds []format.FieldKind
	File       *string
	Line       int
	Column     int
	Macro      callsite.CallKind
	Category   *string
}

// New validates p and builds a LogMessage from it. Slices and pointers are copied.
func New(p Params) (LogMessage, error) {
	if _, ok := callsite.ParseCallKind(string(p.Macro)); !ok {
		return LogMessage{}, fmt.Errorf("unknown macro %q", p.Macro)
	}
	if p.Macro.HasCategory() != (p.Category != nil) {
		return LogMessage{}, fmt.Errorf("%w: macro %s, category set: %t", ErrCategoryMismatch, p.Macro, p.Category != nil)
	}

	m := LogMessage{
		fmt:      p.Fmt,
		pattern:  copyString(p.Pattern),
		file:     copyString(p.File),
		line:     p.Line,
		column:   p.Column,
		macro:    p.Macro,
		category: copyString(p.Category),
	}
	if p.Pattern != nil {
		m.kinds = append([]format.FieldKind{}, p.FieldKinds...)
	}
	return m, nil
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// Fmt returns the format string without its surrounding quotes.
func (m LogMessage) Fmt() string { return m.fmt }

// Pattern returns the compiled matching pattern, if compilation was enabled.
func (m LogMessage) Pattern() (string, bool) {
	if m.pattern == nil {
		return "", false
	}
	return *m.pattern, true
}

// FieldKinds returns the kinds of the pattern's capture groups.
func (m LogMessage) FieldKinds() []format.FieldKind {
	return append([]format.FieldKind(nil), m.kinds...)
}

// File returns the source path relative to the project root, if known.
func (m LogMessage) File() (string, bool) {
	if m.file == nil {
		return "", false
	}
	return *m.file, true
}

func (m LogMessage) Line() int { return m.line }

func (m LogMessage) Column() int { return m.column }

func (m LogMessage) Macro() callsite.CallKind { return m.macro }

// Category returns the category label of LogDebug and LogTrace calls.
func (m LogMessage) Category() (string, bool) {
	if m.category == nil {
		return "", false
	}
	return *m.category, true
}

// ID identifies the call site. Two messages with the same ID describe the same call,
// e.g. a header seen from several translation units.
func (m LogMessage) ID() uint64 {
	h := xxh3.New()
	if m.file != nil {
		_, _ = h.WriteString(*m.file)
	}
	_, _ = h.WriteString("\x00" + strconv.Itoa(m.line) + ":" + strconv.Itoa(m.column) + "\x00")
	_, _ = h.WriteString(string(m.macro) + "\x00")
	_, _ = h.WriteString(m.fmt)
	return h.Sum64()
}

// Record is the JSON form of a LogMessage.
type Record struct {
	Fmt        string              `json:"fmt"`
	Regex      *string             `json:"regex,omitempty"`
	RegexTypes *[]format.FieldKind `json:"regex_types,omitempty"`
	File       *string             `json:"file"`
	Line       int                 `json:"line"`
	Column     int                 `json:"column"`
	Macro      callsite.CallKind   `json:"macro"`
	Category   *string             `json:"category"`
}

// Record converts the message to its serialized form.
func (m LogMessage) Record() Record {
	r := Record{
		Fmt:      m.fmt,
		Regex:    copyString(m.pattern),
		File:     copyString(m.file),
		Line:     m.line,
		Column:   m.column,
		Macro:    m.macro,
		Category: copyString(m.category),
	}
	if m.pattern != nil {
		kinds := m.FieldKinds()
		if kinds == nil {
			kinds = []format.FieldKind{}
		}
		r.RegexTypes = &kinds
	}
	return r
}

// FromRecord validates a serialized record and turns it back into a LogMessage.
func FromRecord(r Record) (LogMessage, error) {
	p := Params{
		Fmt:      r.Fmt,
		Pattern:  r.Regex,
		File:     r.File,
		Line:     r.Line,
		Column:   r.Column,
		Macro:    r.Macro,
		Category: r.Category,
	}
	if r.RegexTypes != nil {
		p.FieldKinds = *r.RegexTypes
	}
	return New(p)
}

// MarshalJSON encodes the message as a Record.
func (m LogMessage) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Record())
}
