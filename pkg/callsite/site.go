package callsite

import "github.com/davidgumberg/leavelogalone/pkg/token"

// Site is one detected invocation of a log macro: its kind, the tokens from the macro
// name through the closing parenthesis, and where the name appears in the source.
// File is empty when the location is unknown.
type Site struct {
	Kind   CallKind
	Tokens []token.Token
	File   string
	Line   int
	Column int
}
