package callsite

import (
	"errors"
	"fmt"

	"github.com/davidgumberg/leavelogalone/pkg/token"
)

var (
	// ErrMalformedCall is returned when the closing parenthesis of a call is never reached.
	ErrMalformedCall = errors.New("malformed call: no terminating ')'")

	// ErrBadCallShape means the token stream does not start with NAME '('. This is a
	// bug in whatever produced the stream, not a problem in the scanned source.
	ErrBadCallShape = errors.New("token stream is not a macro call")
)

// ArgumentGroup holds the tokens of one outermost comma-separated argument.
type ArgumentGroup []token.Token

// Text reconstructs the argument's source text from its token spellings.
func (g ArgumentGroup) Text() string {
	return token.Join(g)
}

// Segment splits the token stream of a single macro call into argument groups.
// toks[0] must be the macro name and toks[1] the opening parenthesis.
//
// Nested '(' tokens only raise the depth and are dropped, while their matching ')'
// tokens are kept, so "f(x)" reconstructs as "fx)".
func Segment(name string, toks []token.Token) ([]ArgumentGroup, error) {
	if len(toks) < 2 {
		return nil, fmt.Errorf("%w: %d tokens", ErrBadCallShape, len(toks))
	}
	if toks[0].Spelling != name {
		return nil, fmt.Errorf("%w: first token %q, want %q", ErrBadCallShape, toks[0].Spelling, name)
	}
	if toks[1].Spelling != "(" {
		return nil, fmt.Errorf("%w: second token %q, want \"(\"", ErrBadCallShape, toks[1].Spelling)
	}

	var args []ArgumentGroup
	var current ArgumentGroup
	depth := 0

	for _, tok := range toks[2:] {
		switch {
		case tok.Spelling == "(":
			depth++
		case tok.Spelling == ")":
			if depth == 0 {
				return append(args, current), nil
			}
			depth--
			current = append(current, tok)
		case tok.Spelling == "," && depth == 0:
			args = append(args, current)
			current = nil
		default:
			current = append(current, tok)
		}
	}

	return []ArgumentGroup{}, ErrMalformedCall
}
