package external

import "strings"

// DisabledPrefix marks a test that is skipped unless explicitly selected.
const DisabledPrefix = "DISABLED_"

// NormalizeTestName strips DisabledPrefix from name.
//
// A disabled test only reaches the runner when it was force-enabled, so the
// marker carries no information for paths or failure messages. Whether the
// test runs is decided by the caller, never here.
func NormalizeTestName(name string) string {
	return strings.TrimPrefix(name, DisabledPrefix)
}

// Invocation identifies one external test run.
type Invocation struct {
	Suite string
	Test  string
}

// NewInvocation returns the invocation for suite and test with the test
// name normalized.
func NewInvocation(suite, test string) Invocation {
	return Invocation{Suite: suite, Test: NormalizeTestName(test)}
}

// String returns "<suite>/<test>".
func (i Invocation) String() string {
	return i.Suite + "/" + i.Test
}
