package source

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes the tree one node per line, indented by depth.
func Dump(w io.Writer, root *Node) error {
	type frame struct {
		node  *Node
		depth int
	}
	stack := []frame{{node: root}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", f.depth), describe(f.node)); err != nil {
			return err
		}
		for i := len(f.node.Children) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: f.node.Children[i], depth: f.depth + 1})
		}
	}
	return nil
}

func describe(n *Node) string {
	switch n.Kind {
	case KindFile:
		switch {
		case n.Path == "":
			return fmt.Sprintf("%s : '%s' (unresolved)", n.Kind, n.Name)
		case !n.Expanded:
			return fmt.Sprintf("%s : '%s' (%s, not expanded)", n.Kind, n.Name, n.Path)
		default:
			return fmt.Sprintf("%s : '%s' (%s)", n.Kind, n.Name, n.Path)
		}
	case KindMacroInstantiation:
		return fmt.Sprintf("%s : '%s' (%d:%d)", n.Kind, n.Name, n.Line, n.Column)
	default:
		return fmt.Sprintf("%s : '%s'", n.Kind, n.Path)
	}
}
