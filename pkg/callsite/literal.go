package callsite

import (
	"fmt"
	"strings"

	"github.com/davidgumberg/leavelogalone/pkg/token"
)

// NonLiteralError reports a format argument that is not a string literal.
type NonLiteralError struct {
	Text string
}

func (e *NonLiteralError) Error() string {
	return fmt.Sprintf("format string is not a literal: %s", e.Text)
}

// ExtractLiteral returns the contents of a string-literal argument. The argument is
// judged on its reconstructed text, which must start and end with a double quote;
// those two characters are stripped. Adjacent literals ("a" "b") therefore come out
// as a""b.
func ExtractLiteral(g ArgumentGroup) (string, error) {
	text := g.Text()
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		return text[1 : len(text)-1], nil
	}
	return "", &NonLiteralError{Text: text}
}

// JoinAdjacentLiterals joins the contents of two or more plain string literals the way
// the compiler concatenates them. It reports false for any other group.
func JoinAdjacentLiterals(g ArgumentGroup) (string, bool) {
	if len(g) < 2 || !allPlainStrings(g) {
		return "", false
	}
	var b strings.Builder
	for _, t := range g {
		b.WriteString(t.Spelling[1 : len(t.Spelling)-1])
	}
	return b.String(), true
}

func allPlainStrings(g ArgumentGroup) bool {
	for _, t := range g {
		if t.Kind != token.KindString || len(t.Spelling) < 2 || t.Spelling[0] != '"' {
			return false
		}
	}
	return true
}
