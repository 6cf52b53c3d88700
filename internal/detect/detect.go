package detect

import (
	"fmt"
	"io"

	"github.com/roach88/lockverify/internal/lockgraph"
)

// Detector runs cycle detection over a lock-order graph.
//
// Detection mutates each node's Visited flag, so a Detector must not be
// run twice over the same graph instance. Run on a freshly built graph
// always yields the same result for the same input events.
type Detector struct {
	// Progress, when non-nil, receives one line per checked root in the
	// style "[i/n] checking lock 0/2 created at file.c:10".
	Progress io.Writer
}

// Result is the outcome of one detection pass.
type Result struct {
	// LocksChecked is the total number of locks in the graph.
	LocksChecked int

	// Cycles holds one entry per top-level search that found a cycle,
	// in root iteration order.
	Cycles []*Cycle
}

// Errors returns the number of detected cycles.
func (r *Result) Errors() int {
	return len(r.Cycles)
}

// pathEntry is one node on the current search path. At is the site of
// the order observation that led the search into Node; for the root it is
// the lock's creation site.
type pathEntry struct {
	node *lockgraph.Node
	at   lockgraph.Site
}

// search carries the state of one top-level rooted search.
type search struct {
	path  []pathEntry
	found *Cycle
}

// Run checks every lock in the graph in ascending LockID order and
// returns all detected cycles. At most one cycle is reported per search
// root; detection continues with the remaining unvisited roots after a
// finding.
func (d *Detector) Run(g *lockgraph.Graph) *Result {
	res := &Result{LocksChecked: g.Len()}
	nodes := g.NodesSorted()
	for i, node := range nodes {
		if d.Progress != nil {
			fmt.Fprintf(d.Progress, "[%d/%d] checking lock %s created at %s\n",
				i+1, len(nodes), node.ID, node.CreatedAt)
		}
		if node.Visited {
			continue
		}
		s := &search{path: []pathEntry{{node: node, at: node.CreatedAt}}}
		s.visit(node, 0, 0)
		if s.found != nil {
			res.Cycles = append(res.Cycles, s.found)
		}
	}
	return res
}

// visit explores node at the given depth. frontier is the path index of
// the deepest ancestor that was unvisited when the search reached it.
//
// The membership scan covers the whole current path so that re-entering
// a previously explored cyclic region terminates instead of orbiting it.
// Only a repeat at or before the frontier is reported: a repeat beyond
// it closes a loop entirely among visited nodes, and that cycle was
// already reported when those nodes were first explored.
func (s *search) visit(node *lockgraph.Node, depth, frontier int) {
	if s.found != nil {
		return
	}
	if depth > 0 {
		for j := depth - 1; j >= 0; j-- {
			if s.path[j].node == node {
				if j <= frontier {
					s.found = s.buildCycle(j, depth)
				}
				return
			}
		}
	}
	next := frontier
	if !node.Visited {
		next = depth
	}
	for _, e := range node.PredecessorsSorted() {
		if s.found != nil {
			break
		}
		s.path = append(s.path, pathEntry{node: e.Pred, at: e.At})
		s.visit(e.Pred, depth+1, next)
		s.path = s.path[:len(s.path)-1]
	}
	node.Visited = true
}

// buildCycle assembles the witness chain for a cycle detected at depth,
// where path[j] is the repeated node. The chain walks from the detection
// point back up the path and closes on the repeated node itself, so its
// length is exactly depth-j hops.
func (s *search) buildCycle(j, depth int) *Cycle {
	c := &Cycle{Witness: s.path[j].node}
	for k := depth; k > j; k-- {
		c.Hops = append(c.Hops, Hop{
			From: s.path[k].node,
			At:   s.path[k].at,
			Next: s.path[k-1].node,
		})
	}
	return c
}
