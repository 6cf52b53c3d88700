package suppress

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lockverify/internal/detect"
	"github.com/roach88/lockverify/internal/lockgraph"
)

// twoLockCycle builds A<B, B<A and returns the single detected cycle.
// Lock 0/0 is created at test.c:10, 0/1 at test.c:11; the order sites
// are test.c:20 and test.c:21.
func twoLockCycle(t *testing.T) *detect.Cycle {
	t.Helper()
	g := lockgraph.New()
	a, b := lockgraph.LockID{Thr: 0, Instance: 0}, lockgraph.LockID{Thr: 0, Instance: 1}
	require.NoError(t, g.RegisterCreation(a, lockgraph.Site{File: "test.c", Line: 10}))
	require.NoError(t, g.RegisterCreation(b, lockgraph.Site{File: "test.c", Line: 11}))
	require.NoError(t, g.RecordOrder(a, b, lockgraph.Site{File: "test.c", Line: 20}))
	require.NoError(t, g.RecordOrder(b, a, lockgraph.Site{File: "test.c", Line: 21}))
	res := (&detect.Detector{}).Run(g)
	require.Equal(t, 1, res.Errors())
	return res.Cycles[0]
}

func TestParse_Empty(t *testing.T) {
	rules, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, rules.Len())
}

func TestParse_UnknownFieldRejected(t *testing.T) {
	doc := `
suppressions:
  - reason: oops
    lock: ["0/0"]
`
	_, err := Parse(strings.NewReader(doc))
	require.Error(t, err, "misspelled field must not silently disable the rule")
}

func TestParse_RuleNeedsLocksOrSites(t *testing.T) {
	doc := `
suppressions:
  - reason: matches everything
`
	_, err := Parse(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one")
}

func TestParse_BadLockID(t *testing.T) {
	doc := `
suppressions:
  - locks: ["zero"]
`
	_, err := Parse(strings.NewReader(doc))
	require.Error(t, err)
}

func TestRules_Match_ByLockSet(t *testing.T) {
	doc := `
suppressions:
  - reason: known init-order artifact
    locks: ["0/1", "0/0"]
`
	rules, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	reason, ok := rules.Match(twoLockCycle(t))
	assert.True(t, ok, "lock order in the rule must not matter")
	assert.Equal(t, "known init-order artifact", reason)
}

func TestRules_Match_LockSetMustBeExact(t *testing.T) {
	doc := `
suppressions:
  - locks: ["0/0", "0/1", "5/5"]
`
	rules, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	_, ok := rules.Match(twoLockCycle(t))
	assert.False(t, ok, "a superset of the cycle's locks is not a match")
}

func TestRules_Match_BySite(t *testing.T) {
	doc := `
suppressions:
  - reason: acquisition in generated code
    sites: ["test.c:20", "test.c:21"]
`
	rules, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	_, ok := rules.Match(twoLockCycle(t))
	assert.True(t, ok)
}

func TestRules_Match_SiteMissing(t *testing.T) {
	doc := `
suppressions:
  - sites: ["test.c:20", "other.c:1"]
`
	rules, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	_, ok := rules.Match(twoLockCycle(t))
	assert.False(t, ok, "every listed site must appear in the cycle")
}

func TestRules_Match_NFCNormalizedSites(t *testing.T) {
	// "é" written as U+0065 U+0301 (decomposed) in the rule must match
	// the precomposed U+00E9 coming from the trace.
	g := lockgraph.New()
	a := lockgraph.LockID{Thr: 0, Instance: 0}
	require.NoError(t, g.RegisterCreation(a, lockgraph.Site{File: "café.c", Line: 1}))
	require.NoError(t, g.RecordOrder(a, a, lockgraph.Site{File: "café.c", Line: 5}))
	res := (&detect.Detector{}).Run(g)
	require.Equal(t, 1, res.Errors())

	doc := "suppressions:\n  - sites: [\"café.c:5\"]\n"
	rules, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	_, ok := rules.Match(res.Cycles[0])
	assert.True(t, ok)
}

func TestRules_Match_LocksAndSitesBothRequired(t *testing.T) {
	doc := `
suppressions:
  - locks: ["0/0", "0/1"]
    sites: ["elsewhere.c:9"]
`
	rules, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	_, ok := rules.Match(twoLockCycle(t))
	assert.False(t, ok, "both fields of one rule must match together")
}
