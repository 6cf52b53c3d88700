package detect

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/lockverify/internal/lockgraph"
)

// Cycle is one detected ordering inconsistency: a chain of "locked
// before" observations that returns to its starting lock.
type Cycle struct {
	// Witness is the repeated lock the chain closes on.
	Witness *lockgraph.Node

	// Hops walk from the detection point back to the witness. The last
	// hop's Next is always the witness again.
	Hops []Hop
}

// Hop is one edge of the witness chain: From was observed locked at At
// while Next was the lock acquired after it on the path.
type Hop struct {
	From *lockgraph.Node
	At   lockgraph.Site
	Next *lockgraph.Node
}

// Length returns the number of edges in the cycle. A self-loop has
// length 1.
func (c *Cycle) Length() int {
	return len(c.Hops)
}

// LockIDs returns the distinct locks participating in the cycle, in
// ascending order. Used to fingerprint a cycle for suppression matching.
func (c *Cycle) LockIDs() []lockgraph.LockID {
	seen := make(map[lockgraph.LockID]bool)
	var ids []lockgraph.LockID
	for _, h := range c.Hops {
		if !seen[h.From.ID] {
			seen[h.From.ID] = true
			ids = append(ids, h.From.ID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// Sites returns every site referenced by the cycle: each hop's
// acquisition site and the creation site of each participating lock.
func (c *Cycle) Sites() []lockgraph.Site {
	var sites []lockgraph.Site
	for _, h := range c.Hops {
		sites = append(sites, h.At, h.From.CreatedAt)
	}
	return sites
}

// Render formats the cycle report: the witness lock with its creation
// site, then the numbered chain of acquisition observations, each with
// the creation site of the lock entered.
func (c *Cycle) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found inconsistent locking order of length %d\n", c.Length())
	fmt.Fprintf(&b, "for lock %s created at %s\n", c.Witness.ID, c.Witness.CreatedAt)
	b.WriteString("sequence is:\n")
	for i, h := range c.Hops {
		fmt.Fprintf(&b, "[%d] locked at %s before lock %s\n", i, h.At, h.Next.ID)
		fmt.Fprintf(&b, "[%d] lock %s created at %s\n", i, h.Next.ID, h.Next.CreatedAt)
	}
	return b.String()
}
