package extract

import (
	"sort"

	"github.com/davidgumberg/leavelogalone/pkg/compiledb"
	"github.com/davidgumberg/leavelogalone/pkg/scope"
)

// PlanOptions selects which translation units a run processes.
type PlanOptions struct {
	// Files, when set, are processed instead of the whole database. Each must have a
	// compile command.
	Files []string

	// Extensions of translation units to schedule, e.g. ".cpp".
	Extensions []string

	// Excluder drops translation units under excluded trees. Nil excludes nothing.
	Excluder *scope.Excluder
}

// Plan returns the commands to run, sorted by file. Explicitly requested files bypass
// the extension and exclude filters.
func Plan(db *compiledb.Database, opts PlanOptions) ([]compiledb.Command, error) {
	var out []compiledb.Command

	if len(opts.Files) > 0 {
		seen := make(map[string]bool, len(opts.Files))
		for _, f := range opts.Files {
			cmd, err := db.Lookup(f)
			if err != nil {
				return nil, err
			}
			if seen[cmd.File] {
				continue
			}
			seen[cmd.File] = true
			out = append(out, cmd)
		}
	} else {
		for _, cmd := range db.Commands() {
			if !cmd.HasExtension(opts.Extensions) {
				continue
			}
			if opts.Excluder != nil && opts.Excluder.Excluded(cmd.File) {
				continue
			}
			out = append(out, cmd)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out, nil
}
