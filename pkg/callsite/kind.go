// Package callsite splits a log macro invocation into its arguments and pulls out the
// category label and format literal.
package callsite

import "fmt"

// CallKind identifies a recognized log-emitting macro.
type CallKind string

const (
	KindLogDebug               CallKind = "LogDebug"
	KindLogTrace               CallKind = "LogTrace"
	KindLogPrintf              CallKind = "LogPrintf"
	KindLogPrint               CallKind = "LogPrint"
	KindLogInfo                CallKind = "LogInfo"
	KindLogError               CallKind = "LogError"
	KindLogWarning             CallKind = "LogWarning"
	KindLogPrintFormatInternal CallKind = "LogPrintFormatInternal"
)

var allKinds = []CallKind{
	KindLogDebug,
	KindLogTrace,
	KindLogPrintf,
	KindLogPrint,
	KindLogInfo,
	KindLogError,
	KindLogWarning,
	KindLogPrintFormatInternal,
}

var kindsBySpelling = func() map[string]CallKind {
	m := make(map[string]CallKind, len(allKinds))
	for _, k := range allKinds {
		m[string(k)] = k
	}
	return m
}()

// Kinds returns every recognized call kind.
func Kinds() []CallKind {
	out := make([]CallKind, len(allKinds))
	copy(out, allKinds)
	return out
}

// ParseCallKind classifies a raw identifier spelling.
func ParseCallKind(spelling string) (CallKind, bool) {
	k, ok := kindsBySpelling[spelling]
	return k, ok
}

// HasCategory reports whether the first argument of this macro is a category label.
func (k CallKind) HasCategory() bool {
	return k == KindLogDebug || k == KindLogTrace
}

// UnmarshalText rejects spellings outside the closed set.
func (k *CallKind) UnmarshalText(b []byte) error {
	parsed, ok := ParseCallKind(string(b))
	if !ok {
		return fmt.Errorf("unknown log macro %q", string(b))
	}
	*k = parsed
	return nil
}
