package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/davidgumberg/leavelogalone/pkg/callsite"
	"github.com/davidgumberg/leavelogalone/pkg/compiledb"
	"github.com/davidgumberg/leavelogalone/pkg/cpp"
	"github.com/davidgumberg/leavelogalone/pkg/token"
)

// ParseError reports a translation unit that could not be read.
type ParseError struct {
	File string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.File, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parser turns compile commands into translation unit trees. It caches lexed files and
// include lookups, so one Parser must not be used from several goroutines at once;
// share parsers through a pool instead.
type Parser struct {
	inScope InScope
	logger  *zap.Logger

	files  map[string]*cpp.File
	exists map[string]bool
}

// Option configures a Parser.
type Option func(*Parser)

// WithScope limits which included files are expanded. Out of scope headers still
// appear in the tree, unexpanded.
func WithScope(inScope InScope) Option {
	return func(p *Parser) {
		p.inScope = inScope
	}
}

// WithLogger sets the logger used for unreadable headers.
func WithLogger(l *zap.Logger) Option {
	return func(p *Parser) {
		p.logger = l
	}
}

// NewParser creates a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		logger: zap.NewNop(),
		files:  make(map[string]*cpp.File),
		exists: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse builds the tree for the translation unit compiled by cmd. Each file is
// expanded at most once per translation unit, as if every header had an include guard.
// Only a failure to read the main file is an error; unreadable or unresolved headers
// are left unexpanded.
func (p *Parser) Parse(ctx context.Context, cmd compiledb.Command) (*Node, error) {
	mainFile, err := p.lex(cmd.File)
	if err != nil {
		return nil, &ParseError{File: cmd.File, Err: err}
	}

	search := cmd.SearchPath()
	root := &Node{Kind: KindTranslationUnit, Path: cmd.File, Name: filepath.Base(cmd.File)}
	main := &Node{Kind: KindFile, Path: cmd.File, Name: filepath.Base(cmd.File)}
	root.Children = []*Node{main}

	visited := map[string]bool{cmd.File: true}
	type pending struct {
		node *Node
		file *cpp.File
	}
	stack := []pending{{node: main, file: mainFile}}

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		cur.node.Expanded = true
		cur.node.Children = p.children(cur.node.Path, cur.file, search)

		for i := len(cur.node.Children) - 1; i >= 0; i-- {
			child := cur.node.Children[i]
			if child.Kind != KindFile || child.Path == "" || visited[child.Path] {
				continue
			}
			if p.inScope != nil && !p.inScope(child.Path) {
				continue
			}
			visited[child.Path] = true

			f, err := p.lex(child.Path)
			if err != nil {
				p.logger.Debug("skipping unreadable header",
					zap.String("file", child.Path), zap.Error(err))
				continue
			}
			stack = append(stack, pending{node: child, file: f})
		}
	}

	return root, nil
}

// children lists the includes and macro instantiations of one file in source order.
func (p *Parser) children(path string, f *cpp.File, search compiledb.SearchPath) []*Node {
	var out []*Node

	for _, inc := range f.Includes {
		resolved, _ := p.resolve(path, inc, search)
		out = append(out, &Node{
			Kind: KindFile,
			Path: resolved,
			Name: inc.Path,
			Line: inc.Line,
		})
	}

	for _, m := range FindMacros(f.Tokens) {
		m.Path = path
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Line != out[j].Line {
			return out[i].Line < out[j].Line
		}
		return out[i].Column < out[j].Column
	})
	return out
}

// FindMacros scans a token stream for invocations of recognized log macros: a
// recognized name directly followed by '('. Member accesses, qualified names and
// declarations (a name preceded by a type, as in "void LogPrintFormatInternal(" or
// "template <...> LogInfo(") are ignored. Each node's tokens run through the balancing
// ')' or to the end of the stream. Scanning resumes right after the name, so calls
// nested in the arguments of another call are found too.
func FindMacros(toks []token.Token) []*Node {
	var out []*Node
	for i, tok := range toks {
		if tok.Kind != token.KindIdentifier || i+1 >= len(toks) || !toks[i+1].Is("(") {
			continue
		}
		if _, ok := callsite.ParseCallKind(tok.Spelling); !ok {
			continue
		}
		if i > 0 && (toks[i-1].Is(".") || toks[i-1].Is("->") || toks[i-1].Is("::")) {
			continue
		}
		if i > 0 && declares(toks[i-1]) {
			continue
		}

		end := len(toks) - 1
		depth := 0
	scan:
		for j := i + 1; j < len(toks); j++ {
			switch {
			case toks[j].Is("("):
				depth++
			case toks[j].Is(")"):
				depth--
				if depth == 0 {
					end = j
					break scan
				}
			}
		}

		out = append(out, &Node{
			Kind:   KindMacroInstantiation,
			Name:   tok.Spelling,
			Line:   tok.Line,
			Column: tok.Column,
			Tokens: toks[i : end+1],
		})
	}
	return out
}

// statementKeywords may directly precede a call in a statement.
var statementKeywords = map[string]bool{
	"return":    true,
	"else":      true,
	"do":        true,
	"throw":     true,
	"co_return": true,
	"co_yield":  true,
	"co_await":  true,
}

// declares reports whether prev, the token before a macro name, makes the name part of
// a declaration rather than a call.
func declares(prev token.Token) bool {
	if prev.Is(">") {
		return true
	}
	return prev.Kind == token.KindIdentifier && !statementKeywords[prev.Spelling]
}

// resolve finds the file an include refers to: the including file's directory first
// for quoted includes, then the -iquote directories, then -I, -isystem and -idirafter.
func (p *Parser) resolve(from string, inc cpp.Include, search compiledb.SearchPath) (string, bool) {
	if filepath.IsAbs(inc.Path) {
		if p.isFile(inc.Path) {
			return filepath.Clean(inc.Path), true
		}
		return "", false
	}

	var dirs []string
	if !inc.Angled {
		dirs = append(dirs, filepath.Dir(from))
		dirs = append(dirs, search.Quote...)
	}
	dirs = append(dirs, search.Angled...)

	for _, dir := range dirs {
		candidate := filepath.Join(dir, inc.Path)
		if p.isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (p *Parser) isFile(path string) bool {
	if ok, seen := p.exists[path]; seen {
		return ok
	}
	info, err := os.Stat(path)
	ok := err == nil && info.Mode().IsRegular()
	p.exists[path] = ok
	return ok
}

func (p *Parser) lex(path string) (*cpp.File, error) {
	if f, ok := p.files[path]; ok {
		return f, nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- paths come from the compilation database
	if err != nil {
		return nil, err
	}
	f := cpp.Lex(data)
	p.files[path] = &f
	return &f, nil
}

// Reset drops cached files, e.g. after sources changed on disk.
func (p *Parser) Reset() {
	p.files = make(map[string]*cpp.File)
	p.exists = make(map[string]bool)
}
