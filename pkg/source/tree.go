// Package source builds a per-translation-unit tree of files and log macro
// instantiations, and walks it to collect call sites.
package source

import (
	"github.com/davidgumberg/leavelogalone/pkg/callsite"
	"github.com/davidgumberg/leavelogalone/pkg/token"
)

// NodeKind identifies what a tree node stands for.
type NodeKind int

const (
	// KindTranslationUnit is the root of a tree.
	KindTranslationUnit NodeKind = iota

	// KindFile is a source file: the main file or a header reached through #include.
	KindFile

	// KindMacroInstantiation is one invocation of a recognized log macro.
	KindMacroInstantiation
)

func (k NodeKind) String() string {
	switch k {
	case KindTranslationUnit:
		return "TRANSLATION_UNIT"
	case KindFile:
		return "FILE"
	case KindMacroInstantiation:
		return "MACRO_INSTANTIATION"
	default:
		return "UNKNOWN"
	}
}

// Node is one element of a translation unit tree.
type Node struct {
	Kind NodeKind

	// Path is the absolute file path. For a macro instantiation it is the file the
	// call appears in. It is empty for an include that could not be resolved.
	Path string

	// Name is the header name as written for included files, and the macro name for
	// macro instantiations.
	Name string

	// Line and Column locate the #include directive or the macro name.
	Line   int
	Column int

	// Expanded is set on file nodes whose contents were scanned.
	Expanded bool

	// Tokens of a macro instantiation, from the macro name through the closing
	// parenthesis (or the end of the file for an unterminated call).
	Tokens []token.Token

	Children []*Node
}

// Site converts a macro instantiation node into a call site.
func (n *Node) Site() (callsite.Site, bool) {
	if n.Kind != KindMacroInstantiation {
		return callsite.Site{}, false
	}
	kind, ok := callsite.ParseCallKind(n.Name)
	if !ok {
		return callsite.Site{}, false
	}
	return callsite.Site{
		Kind:   kind,
		Tokens: n.Tokens,
		File:   n.Path,
		Line:   n.Line,
		Column: n.Column,
	}, true
}

// InScope reports whether a path belongs to the scanned project.
type InScope func(path string) bool

// Sites walks the tree depth first and returns its macro instantiations in source
// order. File nodes for which inScope is false are pruned along with everything below
// them. A nil inScope keeps every file.
func Sites(root *Node, inScope InScope) []callsite.Site {
	var sites []callsite.Site
	stack := []*Node{root}

	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		switch n.Kind {
		case KindFile:
			if n.Path == "" || (inScope != nil && !inScope(n.Path)) {
				continue
			}
		case KindMacroInstantiation:
			if s, ok := n.Site(); ok {
				sites = append(sites, s)
			}
			continue
		}

		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
	return sites
}
