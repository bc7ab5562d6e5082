package source

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidgumberg/leavelogalone/pkg/callsite"
	"github.com/davidgumberg/leavelogalone/pkg/compiledb"
	"github.com/davidgumberg/leavelogalone/pkg/cpp"
	"github.com/davidgumberg/leavelogalone/pkg/scope"
)

const mainSource = `#include "logging.h"
#include <vector>
#include "util/helper.h"
#include <ext.h>

void f() {
    LogPrintf("Starting %s\n", name);
    LogDebug(BCLog::NET, "peer=%d\n", id);
    obj.LogInfo("member");
}
`

type project struct {
	root    string
	ext     string
	command compiledb.Command
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newProject(t *testing.T) project {
	t.Helper()
	base := t.TempDir()
	root := filepath.Join(base, "proj")
	ext := filepath.Join(base, "external")

	writeFile(t, filepath.Join(root, "src", "init.cpp"), mainSource)
	writeFile(t, filepath.Join(root, "src", "logging.h"),
		"#define LogPrintf(...) LogInfo(__VA_ARGS__)\ninline void g() { LogInfo(\"from header\"); }\n")
	writeFile(t, filepath.Join(root, "src", "util", "helper.h"),
		"#include \"../logging.h\"\ninline void h() { LogError(\"helper %u\", 1); }\n")
	writeFile(t, filepath.Join(ext, "ext.h"), "inline void x() { LogWarning(\"outside\"); }\n")

	return project{
		root: root,
		ext:  ext,
		command: compiledb.Command{
			Directory: root,
			File:      filepath.Join(root, "src", "init.cpp"),
			Arguments: []string{"c++", "-I" + ext, "-c", "src/init.cpp"},
		},
	}
}

func names(sites []callsite.Site) []callsite.CallKind {
	out := make([]callsite.CallKind, len(sites))
	for i, s := range sites {
		out[i] = s.Kind
	}
	return out
}

func TestParse_SitesInSourceOrder(t *testing.T) {
	p := newProject(t)
	filter := scope.Filter{Root: p.root}

	tree, err := NewParser(WithScope(filter.Contains)).Parse(context.Background(), p.command)
	require.NoError(t, err)

	sites := Sites(tree, filter.Contains)
	assert.Equal(t, []callsite.CallKind{
		callsite.KindLogInfo,
		callsite.KindLogError,
		callsite.KindLogPrintf,
		callsite.KindLogDebug,
	}, names(sites))

	printf := sites[2]
	assert.Equal(t, p.command.File, printf.File)
	assert.Equal(t, 7, printf.Line)
	assert.Equal(t, 5, printf.Column)
	assert.Equal(t, "LogPrintf", printf.Tokens[0].Spelling)
	assert.Equal(t, ")", printf.Tokens[len(printf.Tokens)-1].Spelling)

	assert.Equal(t, filepath.Join(p.root, "src", "logging.h"), sites[0].File)
}

func TestSites_PrunesOutOfScopeFiles(t *testing.T) {
	p := newProject(t)

	tree, err := NewParser().Parse(context.Background(), p.command)
	require.NoError(t, err)

	all := Sites(tree, nil)
	assert.Contains(t, names(all), callsite.KindLogWarning)

	filter := scope.Filter{Root: p.root}
	for _, s := range Sites(tree, filter.Contains) {
		assert.True(t, filter.Contains(s.File), s.File)
		assert.NotEqual(t, callsite.KindLogWarning, s.Kind)
	}
}

func TestSites_MainFileOutOfScope(t *testing.T) {
	p := newProject(t)

	tree, err := NewParser().Parse(context.Background(), p.command)
	require.NoError(t, err)

	other := scope.Filter{Root: p.ext}
	assert.Empty(t, Sites(tree, other.Contains))
}

func TestParse_HeaderExpandedOnce(t *testing.T) {
	p := newProject(t)
	tree, err := NewParser().Parse(context.Background(), p.command)
	require.NoError(t, err)

	count := 0
	for _, s := range Sites(tree, nil) {
		if s.Kind == callsite.KindLogInfo {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestParse_MissingMainFile(t *testing.T) {
	cmd := compiledb.Command{File: filepath.Join(t.TempDir(), "gone.cpp")}
	_, err := NewParser().Parse(context.Background(), cmd)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, cmd.File, perr.File)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestParse_Cancelled(t *testing.T) {
	p := newProject(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewParser().Parse(ctx, p.command)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParser_Reset(t *testing.T) {
	p := newProject(t)
	parser := NewParser()

	_, err := parser.Parse(context.Background(), p.command)
	require.NoError(t, err)

	writeFile(t, p.command.File, "void f() { LogInfo(\"changed\"); }\n")

	tree, err := parser.Parse(context.Background(), p.command)
	require.NoError(t, err)
	assert.Len(t, Sites(tree, nil), 5, "cached contents are reused until Reset")

	parser.Reset()
	tree, err = parser.Parse(context.Background(), p.command)
	require.NoError(t, err)
	assert.Len(t, Sites(tree, nil), 1)
}

func TestDump(t *testing.T) {
	p := newProject(t)
	filter := scope.Filter{Root: p.root}
	tree, err := NewParser(WithScope(filter.Contains)).Parse(context.Background(), p.command)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Dump(&buf, tree))
	out := buf.String()

	assert.Contains(t, out, "TRANSLATION_UNIT : '"+p.command.File+"'")
	assert.Contains(t, out, "  FILE : 'init.cpp'")
	assert.Contains(t, out, "    MACRO_INSTANTIATION : 'LogPrintf' (7:5)")
	assert.Contains(t, out, "FILE : 'vector' (unresolved)")
	assert.Contains(t, out, "FILE : 'ext.h' ("+filepath.Join(p.ext, "ext.h")+", not expanded)")
	assert.Contains(t, out, "      MACRO_INSTANTIATION : 'LogInfo' (2:19)")
}

func TestFindMacros(t *testing.T) {
	f := cpp.Lex([]byte(`LogDebug(cat, "a %s", LogPrintf("b")); x->LogInfo("no"); Log::LogError("no"); LogWarning;`))
	nodes := FindMacros(f.Tokens)
	require.Len(t, nodes, 2)

	assert.Equal(t, "LogDebug", nodes[0].Name)
	assert.Equal(t, `LogDebug(cat,"a %s",LogPrintf("b"))`, joinSpellings(nodes[0]))
	assert.Equal(t, "LogPrintf", nodes[1].Name)
	assert.Equal(t, `LogPrintf("b")`, joinSpellings(nodes[1]))
}

func TestFindMacros_SkipsDeclarations(t *testing.T) {
	f := cpp.Lex([]byte(`
template <typename... Args>
inline void LogPrintFormatInternal(std::source_location&& loc, Args&&... args)
{
    LogPrintFormatInternal(loc, "inner %s", args...);
}
std::vector<int> LogWarning(int n);
bool Check() {
    if (!ok) return LogError("failed %d", n);
    else LogInfo("fine");
}
`))
	nodes := FindMacros(f.Tokens)
	require.Len(t, nodes, 3)
	assert.Equal(t, "LogPrintFormatInternal", nodes[0].Name)
	assert.Equal(t, 5, nodes[0].Line)
	assert.Equal(t, "LogError", nodes[1].Name)
	assert.Equal(t, "LogInfo", nodes[2].Name)
}

func TestFindMacros_Unterminated(t *testing.T) {
	f := cpp.Lex([]byte(`LogInfo("x", f(1)`))
	nodes := FindMacros(f.Tokens)
	require.Len(t, nodes, 1)

	s, ok := nodes[0].Site()
	require.True(t, ok)
	_, err := callsite.Segment(string(s.Kind), s.Tokens)
	assert.ErrorIs(t, err, callsite.ErrMalformedCall)
}

func joinSpellings(n *Node) string {
	var b bytes.Buffer
	for _, t := range n.Tokens {
		b.WriteString(t.Spelling)
	}
	return b.String()
}
