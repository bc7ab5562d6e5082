// Package token defines the lexical units that make up a call site's token stream.
package token

import "strings"

// Kind classifies a token.
type Kind uint8

const (
	KindIdentifier Kind = iota
	KindNumber
	KindString
	KindChar
	KindPunct
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindIdentifier:
		return "identifier"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindChar:
		return "char"
	case KindPunct:
		return "punct"
	default:
		return "other"
	}
}

// Token is a single lexical unit with its source spelling and 1-based position.
type Token struct {
	Kind     Kind
	Spelling string
	Line     int
	Column   int
}

// Is reports whether the token is the punctuator p.
func (t Token) Is(p string) bool {
	return t.Kind == KindPunct && t.Spelling == p
}

// Join concatenates the spellings of toks without separators.
func Join(toks []Token) string {
	var b strings.Builder
	for _, t := range toks {
		b.WriteString(t.Spelling)
	}
	return b.String()
}
