// Package format compiles printf-style format strings into regular expressions that
// recognize the text those formats produce.
package format

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Result is a compiled format string. Pattern holds one capture group per conversion,
// in the order the conversions appear, and Kinds[i] describes group i+1.
type Result struct {
	Pattern string
	Kinds   []FieldKind

	// Literal is the number of bytes of decoded literal text, a rough measure of how
	// specific the pattern is.
	Literal int
}

// Regexp compiles the pattern.
func (r Result) Regexp() (*regexp.Regexp, error) {
	return regexp.Compile(r.Pattern)
}

const floatBody = `(?:(?:\d+(?:\.\d*)?|\.\d+)(?:[eE][-+]?\d+)?|[iI][nN][fF]|[nN][aA][nN])`

// lengthModifiers are tried in order, so two-letter forms come first.
var lengthModifiers = []string{"hh", "ll", "h", "l", "L", "q", "j", "z", "Z", "t"}

// Compile translates a format string (the body of a C string literal, escapes
// included) into a pattern and the kinds of its fields.
//
// Literal text is copied with regexp meta-characters quoted and whitespace untouched.
// Conversions the compiler does not understand become Unknown fields; compilation
// itself never fails.
func Compile(format string) Result {
	text := DecodeEscapes(format)

	var b strings.Builder
	kinds := []FieldKind{}
	lit, literal := 0, 0

	for i := 0; i < len(text); {
		if text[i] != '%' {
			i++
			continue
		}

		spec, n := parseSpec(text[i:])
		if n == 0 {
			// Not a conversion; the '%' stays in the literal run.
			i++
			continue
		}

		quoteLiteral(&b, text[lit:i])
		literal += i - lit
		if spec.conv == '%' {
			b.WriteByte('%')
			literal++
		} else {
			kind, pat := spec.translate()
			kinds = append(kinds, kind)
			b.WriteString(pat)
		}
		i += n
		lit = i
	}
	quoteLiteral(&b, text[lit:])
	literal += len(text) - lit

	return Result{Pattern: b.String(), Kinds: kinds, Literal: literal}
}

// quoteLiteral writes s with regexp meta-characters quoted. Bytes that are not valid
// UTF-8 (from octal or hex escapes) cannot appear in a pattern; they are written as
// U+FFFD, which is what the regexp engine reads such input bytes as.
func quoteLiteral(b *strings.Builder, s string) {
	for len(s) > 0 {
		n := 0
		for n < len(s) {
			r, size := utf8.DecodeRuneInString(s[n:])
			if r == utf8.RuneError && size == 1 {
				break
			}
			n += size
		}
		b.WriteString(regexp.QuoteMeta(s[:n]))
		if n < len(s) {
			b.WriteString(`\x{FFFD}`)
			n++
		}
		s = s[n:]
	}
}

type spec struct {
	flags string
	width bool
	conv  byte
}

// parseSpec reads one conversion specification at the start of s (s[0] == '%') and
// returns it with its length, or a zero length if s does not start with one.
func parseSpec(s string) (spec, int) {
	var sp spec
	i := 1

	// %N$ positional argument.
	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	if j > i && j < len(s) && s[j] == '$' {
		i = j + 1
	}

	start := i
	for i < len(s) && strings.IndexByte("-+ #0'", s[i]) >= 0 {
		i++
	}
	sp.flags = s[start:i]

	if i < len(s) && s[i] == '*' {
		sp.width = true
		i++
	} else {
		for i < len(s) && isDigit(s[i]) {
			sp.width = true
			i++
		}
	}

	if i < len(s) && s[i] == '.' {
		i++
		if i < len(s) && s[i] == '*' {
			i++
		} else {
			for i < len(s) && isDigit(s[i]) {
				i++
			}
		}
	}

	for _, mod := range lengthModifiers {
		if strings.HasPrefix(s[i:], mod) {
			i += len(mod)
			break
		}
	}

	if i >= len(s) {
		return spec{}, 0
	}
	c := s[i]
	if c != '%' && !isLetter(c) {
		return spec{}, 0
	}
	sp.conv = c
	return sp, i + 1
}

func (s spec) has(flag byte) bool {
	return strings.IndexByte(s.flags, flag) >= 0
}

// translate maps the conversion to its field kind and capture group.
func (s spec) translate() (FieldKind, string) {
	sign := `[-+]?`
	if s.has(' ') {
		sign = `[-+ ]?`
	}

	kind, body := Unknown, `.*?`
	switch s.conv {
	case 'd', 'i':
		kind, body = Integer, sign+`\d+`
	case 'u':
		kind, body = Integer, `\d+`
	case 'x':
		kind, body = Integer, `[0-9a-f]+`
		if s.has('#') {
			body = `0x[0-9a-f]+`
		}
	case 'X':
		kind, body = Integer, `[0-9A-F]+`
		if s.has('#') {
			body = `0X[0-9A-F]+`
		}
	case 'o':
		kind, body = Integer, `[0-7]+`
	case 'p':
		kind, body = Integer, `0x[0-9a-f]+`
	case 'f', 'F', 'e', 'E', 'g', 'G':
		kind, body = Float, sign+floatBody
	case 'a', 'A':
		kind, body = Float, sign+`0[xX][0-9a-fA-F]*(?:\.[0-9a-fA-F]*)?(?:[pP][-+]?\d+)?`
	case 's':
		kind, body = String, `\S+`
	case 'c':
		kind, body = Character, `.`
	}

	group := "(" + body + ")"
	if s.width {
		switch {
		case s.has('-'):
			group += " *"
		case !s.has('0'):
			group = " *" + group
		}
	}
	return kind, group
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
