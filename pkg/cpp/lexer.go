// Package cpp tokenizes C++ source well enough to find macro invocations and #include
// directives. It does not preprocess: directives are recorded or skipped, conditional
// blocks are all scanned, and macros are never expanded.
package cpp

import (
	"bytes"
	"strings"

	"github.com/davidgumberg/leavelogalone/pkg/token"
)

// Include is one #include (or #include_next / #import) directive.
type Include struct {
	// Path is the header name without its delimiters.
	Path string

	// Angled is true for <header> includes.
	Angled bool

	Line int
}

// File is the lexed form of one source file.
type File struct {
	Tokens   []token.Token
	Includes []Include
}

// punctuators sorted longest first so the first match wins.
var punctuators = []string{
	"...", "<<=", ">>=", "->*", "<=>",
	"::", "->", "++", "--", "<<", ">>", "<=", ">=", "==", "!=", "&&", "||",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "##", ".*",
}

var stringPrefixes = map[string]bool{
	"L": true, "u": true, "U": true, "u8": true,
	"R": true, "LR": true, "uR": true, "UR": true, "u8R": true,
}

// Lex tokenizes src. Lexing never fails; unterminated literals and comments end at the
// end of their line or of the input.
func Lex(src []byte) File {
	l := &lexer{src: src, line: 1, col: 1, bol: true}
	l.run()
	return File{Tokens: l.tokens, Includes: l.includes}
}

type lexer struct {
	src      []byte
	pos      int
	line     int
	col      int
	bol      bool // only whitespace seen since the last newline
	tokens   []token.Token
	includes []Include
}

func (l *lexer) peek(off int) byte {
	if l.pos+off < len(l.src) {
		return l.src[l.pos+off]
	}
	return 0
}

func (l *lexer) advance(n int) {
	for i := 0; i < n && l.pos < len(l.src); i++ {
		if l.src[l.pos] == '\n' {
			l.line++
			l.col = 1
			l.bol = true
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *lexer) emit(kind token.Kind, start, line, col int) {
	l.tokens = append(l.tokens, token.Token{
		Kind:     kind,
		Spelling: string(l.src[start:l.pos]),
		Line:     line,
		Column:   col,
	})
	l.bol = false
}

func (l *lexer) run() {
	for l.pos < len(l.src) {
		c := l.peek(0)
		switch {
		case c == '\\' && l.peek(1) == '\n':
			l.advance(2)
		case c == '\\' && l.peek(1) == '\r' && l.peek(2) == '\n':
			l.advance(3)
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == '\v':
			l.advance(1)
		case c == '/' && l.peek(1) == '/':
			l.skipLineComment()
		case c == '/' && l.peek(1) == '*':
			l.skipBlockComment()
		case c == '#' && l.bol:
			l.directive()
		case isIdentStart(c):
			l.identifier()
		case isDigit(c) || (c == '.' && isDigit(l.peek(1))):
			l.number()
		case c == '"':
			l.quoted(l.pos, l.line, l.col, '"', token.KindString)
		case c == '\'':
			l.quoted(l.pos, l.line, l.col, '\'', token.KindChar)
		default:
			l.punct()
		}
	}
}

func (l *lexer) skipLineComment() {
	for l.pos < len(l.src) {
		if l.peek(0) == '\\' && l.peek(1) == '\n' {
			l.advance(2)
			continue
		}
		if l.peek(0) == '\n' {
			return
		}
		l.advance(1)
	}
}

// skipBlockComment leaves bol untouched: "/* x */ #define" is still a directive.
func (l *lexer) skipBlockComment() {
	l.advance(2)
	for l.pos < len(l.src) {
		if l.peek(0) == '*' && l.peek(1) == '/' {
			l.advance(2)
			return
		}
		l.advance(1)
	}
}

func (l *lexer) identifier() {
	start, line, col := l.pos, l.line, l.col
	for l.pos < len(l.src) && isIdentChar(l.peek(0)) {
		l.advance(1)
	}
	word := string(l.src[start:l.pos])

	if stringPrefixes[word] {
		switch {
		case l.peek(0) == '"' && strings.HasSuffix(word, "R"):
			l.rawString(start, line, col)
			return
		case l.peek(0) == '"':
			l.quoted(start, line, col, '"', token.KindString)
			return
		case l.peek(0) == '\'' && !strings.HasSuffix(word, "R"):
			l.quoted(start, line, col, '\'', token.KindChar)
			return
		}
	}
	l.emit(token.KindIdentifier, start, line, col)
}

func (l *lexer) number() {
	start, line, col := l.pos, l.line, l.col
	for l.pos < len(l.src) {
		c := l.peek(0)
		switch {
		case (c == '+' || c == '-') && strings.IndexByte("eEpP", l.src[l.pos-1]) >= 0:
			l.advance(1)
		case c == '\'' && isIdentChar(l.peek(1)):
			l.advance(1)
		case isIdentChar(c) || c == '.':
			l.advance(1)
		default:
			l.emit(token.KindNumber, start, line, col)
			return
		}
	}
	l.emit(token.KindNumber, start, line, col)
}

// quoted lexes a string or character literal whose opening quote is at l.pos, plus
// any user-defined literal suffix.
func (l *lexer) quoted(start, line, col int, quote byte, kind token.Kind) {
	l.advance(1)
	for l.pos < len(l.src) {
		c := l.peek(0)
		if c == '\\' && l.pos+1 < len(l.src) {
			l.advance(2)
			continue
		}
		if c == '\n' {
			break
		}
		l.advance(1)
		if c == quote {
			break
		}
	}
	l.suffix()
	l.emit(kind, start, line, col)
}

// rawString lexes R"delim( ... )delim" with the opening quote at l.pos.
func (l *lexer) rawString(start, line, col int) {
	l.advance(1)
	open := l.pos
	for l.pos < len(l.src) && l.peek(0) != '(' && l.peek(0) != '\n' && l.pos-open <= 16 {
		l.advance(1)
	}
	if l.peek(0) != '(' {
		l.emit(token.KindString, start, line, col)
		return
	}
	closer := ")" + string(l.src[open:l.pos]) + `"`
	l.advance(1)
	if end := strings.Index(string(l.src[l.pos:]), closer); end >= 0 {
		l.advance(end + len(closer))
	} else {
		l.advance(len(l.src) - l.pos)
	}
	l.suffix()
	l.emit(token.KindString, start, line, col)
}

func (l *lexer) suffix() {
	if !isIdentStart(l.peek(0)) {
		return
	}
	for l.pos < len(l.src) && isIdentChar(l.peek(0)) {
		l.advance(1)
	}
}

func (l *lexer) punct() {
	start, line, col := l.pos, l.line, l.col
	rest := l.src[l.pos:]
	for _, p := range punctuators {
		if bytes.HasPrefix(rest, []byte(p)) {
			l.advance(len(p))
			l.emit(token.KindPunct, start, line, col)
			return
		}
	}
	c := l.peek(0)
	l.advance(1)
	if strings.IndexByte("{}[]()<>;:,.?~!+-*/%^&|=#", c) >= 0 {
		l.emit(token.KindPunct, start, line, col)
		return
	}
	l.emit(token.KindOther, start, line, col)
}

// directive consumes a preprocessor line. Include directives are recorded; everything
// else, #define bodies included, produces no tokens.
func (l *lexer) directive() {
	line := l.line
	l.advance(1)
	text := l.logicalLine()

	name, rest := splitDirective(text)
	switch name {
	case "include", "include_next", "import":
		if inc, ok := parseInclude(rest); ok {
			inc.Line = line
			l.includes = append(l.includes, inc)
		}
	}
}

// logicalLine reads up to the end of the line, joining backslash continuations and
// dropping comments.
func (l *lexer) logicalLine() string {
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.peek(0)
		switch {
		case c == '\\' && l.peek(1) == '\n':
			l.advance(2)
		case c == '\\' && l.peek(1) == '\r' && l.peek(2) == '\n':
			l.advance(3)
		case c == '\n':
			return b.String()
		case c == '/' && l.peek(1) == '/':
			l.skipLineComment()
		case c == '/' && l.peek(1) == '*':
			l.skipBlockComment()
			b.WriteByte(' ')
		default:
			b.WriteByte(c)
			l.advance(1)
		}
	}
	return b.String()
}

func splitDirective(text string) (string, string) {
	text = strings.TrimLeft(text, " \t")
	i := 0
	for i < len(text) && isIdentChar(text[i]) {
		i++
	}
	return text[:i], strings.TrimSpace(text[i:])
}

func parseInclude(rest string) (Include, bool) {
	if len(rest) < 2 {
		return Include{}, false
	}
	var closer byte
	switch rest[0] {
	case '"':
		closer = '"'
	case '<':
		closer = '>'
	default:
		// Computed includes (#include MACRO) cannot be resolved without expansion.
		return Include{}, false
	}
	end := strings.IndexByte(rest[1:], closer)
	if end <= 0 {
		return Include{}, false
	}
	return Include{Path: rest[1 : end+1], Angled: closer == '>'}, true
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
