// Package detect searches the lock-order graph for cycles.
//
// A cycle means no single global acquisition order is consistent with all
// observed traces: thread A locked X before Y somewhere while thread B
// locked Y before X, so running both orderings at the same time can
// deadlock.
//
// The search is a rooted depth-first traversal with two pieces of
// bookkeeping:
//
//   - A per-node visited flag. Once a node's predecessor chains have been
//     cross-checked in one top-level search, it is skipped as a root of
//     later searches.
//   - A frontier index into the current ancestor path, marking the
//     deepest ancestor that was unvisited when the search passed through
//     it. A repeated node at or before the frontier is a new cycle; a
//     repeat beyond it loops only through visited nodes, whose cycle was
//     reported by the search that first explored them, so that branch is
//     cut without a report. Everything pushed after an already-visited
//     node was cross-checked by the search that visited it, which keeps
//     repeated chain scans from going quadratic.
//
// Each top-level search reports at most one cycle, anchored at the first
// repeated node found. The reported chain is a cycle through that node,
// not necessarily the shortest one in the graph.
package detect
