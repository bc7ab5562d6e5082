package callsite

import (
	"errors"
	"fmt"
)

// ErrMissingArgument means the call has fewer arguments than its macro requires.
var ErrMissingArgument = errors.New("missing macro argument")

// Classify returns the category label (nil for plain macros) and the index of the
// format-string argument.
func Classify(kind CallKind, args []ArgumentGroup) (*string, int, error) {
	if kind.HasCategory() {
		if len(args) < 2 {
			return nil, 0, fmt.Errorf("%w: %s needs a category and a format string, got %d argument(s)",
				ErrMissingArgument, kind, len(args))
		}
		category := args[0].Text()
		return &category, 1, nil
	}

	if len(args) < 1 {
		return nil, 0, fmt.Errorf("%w: %s needs a format string", ErrMissingArgument, kind)
	}
	return nil, 0, nil
}
