package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilter_Contains(t *testing.T) {
	f := Filter{Root: "/src/project"}

	assert.True(t, f.Contains("/src/project"))
	assert.True(t, f.Contains("/src/project/src/init.cpp"))
	assert.True(t, f.Contains("/src/project/./src/../src/net.h"))

	assert.False(t, f.Contains("/src/project2/a.cpp"))
	assert.False(t, f.Contains("/usr/include/stdio.h"))
	assert.False(t, f.Contains("/src/project/../other/a.cpp"))
	assert.False(t, f.Contains(""))
}

func TestFilter_ZeroAcceptsAll(t *testing.T) {
	assert.True(t, Filter{}.Contains("/anything"))
}

func TestNewFilter_MakesAbsolute(t *testing.T) {
	f, err := NewFilter("relative/dir")
	require.NoError(t, err)
	assert.True(t, len(f.Root) > 0 && f.Root[0] == '/')
}

func TestExcluder_Defaults(t *testing.T) {
	e, err := NewExcluder("/p", DefaultExcludes)
	require.NoError(t, err)

	assert.True(t, e.Excluded("/p/src/test/util_tests.cpp"))
	assert.True(t, e.Excluded("/p/src/wallet/test/db_tests.cpp"))
	assert.True(t, e.Excluded("src/bench/bench.cpp"))

	assert.False(t, e.Excluded("/p/src/wallet/wallet.cpp"))
	assert.False(t, e.Excluded("/p/src/testing.cpp"))
	assert.False(t, e.Excluded("/p/build/src/generated.cpp"))
	assert.False(t, e.Excluded("/elsewhere/src/test/a.cpp"))
}

func TestExcluder_InvalidPattern(t *testing.T) {
	_, err := NewExcluder("/p", []string{"src/[unclosed"})
	assert.Error(t, err)
}

func TestExcluder_Patterns(t *testing.T) {
	e, err := NewExcluder("/p", []string{"a/**"})
	require.NoError(t, err)

	got := e.Patterns()
	got[0] = "changed"
	assert.Equal(t, []string{"a/**"}, e.Patterns())
}
