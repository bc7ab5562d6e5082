// Package matcher recognizes runtime log lines as instances of the messages in a
// log database.
package matcher

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/davidgumberg/leavelogalone/pkg/format"
	"github.com/davidgumberg/leavelogalone/pkg/logdb"
	"github.com/davidgumberg/leavelogalone/pkg/logmsg"
)

// Field is one captured conversion of a matched line.
type Field struct {
	Kind format.FieldKind
	Text string
}

// Match is the result of recognizing one message.
type Match struct {
	// Fmt is the format string that produced the line.
	Fmt string

	// Sites lists every call site using that format string.
	Sites []logmsg.LogMessage

	Fields []Field
}

// group holds the call sites that share one pattern.
type group struct {
	fmt         string
	re          *regexp.Regexp
	prefix      string
	kinds       []format.FieldKind
	specificity int
	sites       []logmsg.LogMessage
}

// Skipped is a stored pattern that does not compile. Its call sites never match.
type Skipped struct {
	Fmt     string
	Pattern string
	Err     error
}

// Matcher holds compiled patterns, most specific first. It is safe for concurrent use.
type Matcher struct {
	groups  []*group
	skipped []Skipped
}

// New compiles the patterns of every message in db. Messages without a pattern get
// one compiled from their format string. A pattern that fails to compile is left out
// and reported by Skipped.
func New(db *logdb.Database) *Matcher {
	byPattern := make(map[string]*group)
	bad := make(map[string]bool)
	m := &Matcher{}
	var order []*group

	for _, msg := range db.Messages() {
		pattern, ok := msg.Pattern()
		kinds := msg.FieldKinds()
		if !ok {
			compiled := format.Compile(msg.Fmt())
			pattern, kinds = compiled.Pattern, compiled.Kinds
		}
		if bad[pattern] {
			continue
		}

		g, ok := byPattern[pattern]
		if !ok {
			var err error
			g, err = newGroup(msg.Fmt(), pattern, kinds)
			if err != nil {
				bad[pattern] = true
				m.skipped = append(m.skipped, Skipped{Fmt: msg.Fmt(), Pattern: pattern, Err: err})
				continue
			}
			byPattern[pattern] = g
			order = append(order, g)
		}
		g.sites = append(g.sites, msg)
	}

	sort.SliceStable(order, func(i, j int) bool {
		if order[i].specificity != order[j].specificity {
			return order[i].specificity > order[j].specificity
		}
		return order[i].fmt < order[j].fmt
	})
	m.groups = order
	return m
}

func newGroup(fmtStr, pattern string, kinds []format.FieldKind) (*group, error) {
	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern for %q: %w", fmtStr, err)
	}
	unanchored, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern for %q: %w", fmtStr, err)
	}
	prefix, _ := unanchored.LiteralPrefix()
	// U+FFFD in a pattern stands for an invalid input byte, which HasPrefix cannot see.
	if i := strings.IndexRune(prefix, utf8.RuneError); i >= 0 {
		prefix = prefix[:i]
	}

	return &group{
		fmt:         fmtStr,
		re:          re,
		prefix:      prefix,
		kinds:       kinds,
		specificity: format.Compile(fmtStr).Literal,
	}, nil
}

// Len returns the number of distinct patterns.
func (m *Matcher) Len() int {
	return len(m.groups)
}

// Skipped lists the patterns left out because they do not compile.
func (m *Matcher) Skipped() []Skipped {
	return m.skipped
}

// Match finds the most specific message whose pattern matches the whole of text.
// Formats usually end in a newline that the line reader strips, so text is also
// tried with a trailing newline.
func (m *Matcher) Match(text string) (Match, bool) {
	withNewline := text + "\n"
	for _, g := range m.groups {
		if g.prefix != "" && !strings.HasPrefix(text, g.prefix) {
			continue
		}
		sub := g.re.FindStringSubmatch(text)
		if sub == nil {
			sub = g.re.FindStringSubmatch(withNewline)
		}
		if sub == nil {
			continue
		}
		return g.result(sub), true
	}
	return Match{}, false
}

func (g *group) result(sub []string) Match {
	fields := make([]Field, 0, len(sub)-1)
	for i, text := range sub[1:] {
		kind := format.Unknown
		if i < len(g.kinds) {
			kind = g.kinds[i]
		}
		fields = append(fields, Field{Kind: kind, Text: text})
	}
	return Match{
		Fmt:    g.fmt,
		Sites:  append([]logmsg.LogMessage(nil), g.sites...),
		Fields: fields,
	}
}
