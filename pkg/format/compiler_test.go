package format

import (
	"encoding/json"
	"regexp"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRegexp(t *testing.T, r Result) *regexp.Regexp {
	t.Helper()
	re, err := r.Regexp()
	require.NoError(t, err, "pattern %q", r.Pattern)
	return re
}

func TestCompile_IntegerDashString(t *testing.T) {
	r := Compile("%d-%s")
	assert.Equal(t, []FieldKind{Integer, String}, r.Kinds)

	re := mustRegexp(t, r)
	assert.True(t, re.MatchString("3-foo"))
	assert.False(t, re.MatchString("foo-3"))

	m := re.FindStringSubmatch("-42-bar")
	require.Len(t, m, 3)
	assert.Equal(t, "-42", m[1])
	assert.Equal(t, "bar", m[2])
}

func TestCompile_Deterministic(t *testing.T) {
	const f = "Loaded %i blocks from disk in %.2fs (%s)\n"
	assert.Equal(t, Compile(f), Compile(f))
}

func TestCompile_Kinds(t *testing.T) {
	tests := []struct {
		format string
		kinds  []FieldKind
	}{
		{"%d %i %u %lu %zu %lld", []FieldKind{Integer, Integer, Integer, Integer, Integer, Integer}},
		{"%x %X %#x %08x %o %p", []FieldKind{Integer, Integer, Integer, Integer, Integer, Integer}},
		{"%f %.2f %e %g %5.1f %a", []FieldKind{Float, Float, Float, Float, Float, Float}},
		{"%s %-10s %c", []FieldKind{String, String, Character}},
		{"%y %n", []FieldKind{Unknown, Unknown}},
		{"%1$s %2$d", []FieldKind{String, Integer}},
		{"no conversions here", []FieldKind{}},
		{"100%% done", []FieldKind{}},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			r := Compile(tt.format)
			assert.Equal(t, tt.kinds, r.Kinds)
			re := mustRegexp(t, r)
			assert.Equal(t, len(tt.kinds), re.NumSubexp())
		})
	}
}

func TestCompile_LiteralTextIsQuoted(t *testing.T) {
	r := Compile("cost (approx.) = $%d [ok]?")
	re := mustRegexp(t, r)
	assert.True(t, re.MatchString("cost (approx.) = $12 [ok]?"))
	assert.False(t, re.MatchString("cost Xapprox.) = $12 [ok]?"))
}

func TestCompile_WhitespacePreserved(t *testing.T) {
	r := Compile("a  b\t%d")
	assert.Equal(t, "a  b\t"+`([-+]?\d+)`, r.Pattern)

	re := mustRegexp(t, r)
	assert.True(t, re.MatchString("a  b\t7"))
	assert.False(t, re.MatchString("a b 7"))
}

func TestCompile_PercentLiteral(t *testing.T) {
	re := mustRegexp(t, Compile("progress %d%%"))
	assert.True(t, re.MatchString("progress 50%"))

	// A trailing lone '%' is literal text.
	r := Compile("rate 5%")
	assert.Empty(t, r.Kinds)
	assert.True(t, mustRegexp(t, r).MatchString("rate 5%"))
}

func TestCompile_EscapesDecoded(t *testing.T) {
	r := Compile(`peer=%d disconnected\n`)
	re := mustRegexp(t, r)
	assert.True(t, re.MatchString("peer=3 disconnected\n"))
	assert.False(t, re.MatchString(`peer=3 disconnected\n`))

	re = mustRegexp(t, Compile(`\"%s\"`))
	assert.True(t, re.MatchString(`"wallet.dat"`))
}

func TestCompile_WidthPadding(t *testing.T) {
	re := mustRegexp(t, Compile("[%5d]"))
	assert.True(t, re.MatchString("[   42]"))

	re = mustRegexp(t, Compile("[%-6s]"))
	assert.True(t, re.MatchString("[abc   ]"))

	re = mustRegexp(t, Compile("%05d"))
	assert.True(t, re.MatchString("00042"))
}

func TestCompile_Hex(t *testing.T) {
	re := mustRegexp(t, Compile("flags=%#x mask=%X"))
	assert.True(t, re.MatchString("flags=0x1f mask=FF"))
	assert.False(t, re.MatchString("flags=1f mask=FF"))
}

func TestCompile_Floats(t *testing.T) {
	re := mustRegexp(t, Compile("^%f$"))
	for _, s := range []string{"1.5", "-0.25", "3", ".5", "1e10", "2.5E-3", "inf", "nan"} {
		assert.True(t, re.MatchString("^"+s+"$"), s)
	}
}

func TestCompile_Character(t *testing.T) {
	r := Compile("mode=%c")
	assert.Equal(t, []FieldKind{Character}, r.Kinds)
	assert.True(t, mustRegexp(t, r).MatchString("mode=r"))
}

func TestDecodeEscapes(t *testing.T) {
	tests := map[string]string{
		`plain`:       "plain",
		`a\nb`:        "a\nb",
		`tab\there`:   "tab\there",
		`q\"q`:        `q"q`,
		`back\\slash`: `back\slash`,
		`oct\101`:     "octA",
		`hex\x41!`:    "hexA!",
		`uni\u00e9`:   "unié",
		`bad\x`:       "badx",
		`trailing\`:   `trailing\`,
		`unknown\q`:   "unknownq",
		`short\u12`:   "shortu12",
		`hex\x4142`:   "hexA42",
		`oct\400`:     "oct 0",
		`oct\1012`:    "octA2",
	}
	for in, want := range tests {
		assert.Equal(t, want, DecodeEscapes(in), in)
	}
}

func TestCompile_InvalidUTF8Byte(t *testing.T) {
	r := Compile(`byte=\xff %d`)
	assert.True(t, utf8.ValidString(r.Pattern))
	assert.Equal(t, `byte=\x{FFFD} ([-+]?\d+)`, r.Pattern)

	re, err := r.Regexp()
	require.NoError(t, err)
	assert.Equal(t, []string{"byte=\xff 7", "7"}, re.FindStringSubmatch("byte=\xff 7"))

	r = Compile(`\303\251t\351`)
	assert.Equal(t, `ét\x{FFFD}`, r.Pattern)
	_, err = r.Regexp()
	assert.NoError(t, err)
}

func TestFieldKind_JSON(t *testing.T) {
	b, err := json.Marshal([]FieldKind{Integer, Float, String, Character, Unknown})
	require.NoError(t, err)
	assert.JSONEq(t, `["integer","float","string","character","unknown"]`, string(b))

	var back []FieldKind
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, []FieldKind{Integer, Float, String, Character, Unknown}, back)

	var k FieldKind
	assert.Error(t, k.UnmarshalText([]byte("bool")))
}

func TestCompile_LiteralLength(t *testing.T) {
	assert.Equal(t, 0, Compile("%s").Literal)
	assert.Equal(t, len("peer=")+1, Compile("peer=%d\n").Literal)
	assert.Equal(t, len("progress ")+1, Compile("progress %d%%").Literal)
	assert.Greater(t, Compile("Loaded block %s height=%d").Literal, Compile("%s %d").Literal)
}
