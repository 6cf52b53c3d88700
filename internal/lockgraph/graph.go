package lockgraph

import "sort"

// Node is one lock in the order graph.
//
// The predecessor set holds every lock observed acquired strictly before
// this one, at most one edge per distinct predecessor. Visited belongs to
// the cycle detector: once true, every predecessor chain through this node
// has been cross-checked in some earlier search and the node never needs
// to serve as a search root again.
type Node struct {
	// ID is the lock's identity.
	ID LockID

	// CreatedAt is where the lock was created.
	CreatedAt Site

	// Visited is traversal-scoped state owned by the detect package.
	Visited bool

	preds map[LockID]Edge
}

// Edge records that Pred was held when the owning node's lock was
// acquired at Site At.
type Edge struct {
	Pred *Node
	At   Site
}

// PredecessorsSorted returns the node's predecessor edges in ascending
// predecessor LockID order. The detector relies on this order being
// stable so that the same graph always yields the same reports.
func (n *Node) PredecessorsSorted() []Edge {
	edges := make([]Edge, 0, len(n.preds))
	for _, e := range n.preds {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		return edges[i].Pred.ID.Less(edges[j].Pred.ID)
	})
	return edges
}

// HasPredecessor reports whether an edge from pred already exists.
func (n *Node) HasPredecessor(pred LockID) bool {
	_, ok := n.preds[pred]
	return ok
}

// Graph is the lock registry and order graph combined: every lock the
// trace created, and the "acquired before" relation among them.
type Graph struct {
	nodes map[LockID]*Node
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{nodes: make(map[LockID]*Node)}
}

// RegisterCreation adds a node for a newly created lock.
//
// A second creation of the same id returns a GraphError with
// DUPLICATE_LOCK: the trace recorded the same (thread, instance) pair
// twice, which means the trace files are malformed.
func (g *Graph) RegisterCreation(id LockID, at Site) error {
	if _, ok := g.nodes[id]; ok {
		return &GraphError{Code: ErrCodeDuplicateLock, Lock: id, Site: at}
	}
	g.nodes[id] = &Node{
		ID:        id,
		CreatedAt: at,
		preds:     make(map[LockID]Edge),
	}
	return nil
}

// RecordOrder records that earlier was held when later was acquired at
// the given site.
//
// Both locks must already be registered; an unknown id returns a
// GraphError with UNKNOWN_LOCK. Recording a pair that is already known is
// a no-op: the relation was established before, and the first observed
// site is kept as its provenance.
func (g *Graph) RecordOrder(earlier, later LockID, at Site) error {
	prev, ok := g.nodes[earlier]
	if !ok {
		return &GraphError{Code: ErrCodeUnknownLock, Lock: earlier, Site: at}
	}
	now, ok := g.nodes[later]
	if !ok {
		return &GraphError{Code: ErrCodeUnknownLock, Lock: later, Site: at}
	}
	if _, ok := now.preds[earlier]; ok {
		return nil
	}
	now.preds[earlier] = Edge{Pred: prev, At: at}
	return nil
}

// Lookup returns the node for id, if registered.
func (g *Graph) Lookup(id LockID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of registered locks.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// NodesSorted returns all nodes in ascending LockID order.
func (g *Graph) NodesSorted() []*Node {
	nodes := make([]*Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ID.Less(nodes[j].ID)
	})
	return nodes
}
