package logmsg

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/davidgumberg/leavelogalone/pkg/callsite"
	"github.com/davidgumberg/leavelogalone/pkg/format"
)

// BuildOptions controls how call sites become messages.
type BuildOptions struct {
	// Root is the project root that file paths are made relative to.
	Root string

	// CompilePatterns enables format-to-pattern compilation. When false only the raw
	// format string is kept.
	CompilePatterns bool

	// JoinAdjacentLiterals joins the contents of adjacent string literals ("a" "b"
	// gives ab). When false they are extracted as written, giving a""b.
	JoinAdjacentLiterals bool
}

// Build turns a call site into a LogMessage.
//
// Segmentation failures wrap callsite.ErrMalformedCall or callsite.ErrMissingArgument
// and a non-literal format argument returns *callsite.NonLiteralError. The caller is
// expected to skip the site in all of these cases.
func Build(site callsite.Site, opts BuildOptions) (LogMessage, error) {
	args, err := callsite.Segment(string(site.Kind), site.Tokens)
	if err != nil {
		return LogMessage{}, fmt.Errorf("segmenting %s arguments: %w", site.Kind, err)
	}

	category, idx, err := callsite.Classify(site.Kind, args)
	if err != nil {
		return LogMessage{}, err
	}

	fmtStr, joined := "", false
	if opts.JoinAdjacentLiterals {
		fmtStr, joined = callsite.JoinAdjacentLiterals(args[idx])
	}
	if !joined {
		fmtStr, err = callsite.ExtractLiteral(args[idx])
		if err != nil {
			return LogMessage{}, err
		}
	}

	p := Params{
		Fmt:      fmtStr,
		File:     RelativePath(opts.Root, site.File),
		Line:     site.Line,
		Column:   site.Column,
		Macro:    site.Kind,
		Category: category,
	}
	if opts.CompilePatterns {
		compiled := format.Compile(fmtStr)
		p.Pattern = &compiled.Pattern
		p.FieldKinds = compiled.Kinds
	}

	return New(p)
}

// RelativePath expresses file relative to root. It returns nil for an unknown file and
// the cleaned path unchanged when file is not below root.
func RelativePath(root, file string) *string {
	if file == "" {
		return nil
	}
	out := filepath.Clean(file)
	if root != "" {
		if rel, err := filepath.Rel(root, out); err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			out = rel
		}
	}
	out = filepath.ToSlash(out)
	return &out
}
