// Package lockgraph models the lock-order graph built from acquisition
// traces.
//
// Every dynamically created lock becomes a Node, keyed by its LockID
// (creating thread, instance number). Each Node carries the set of locks
// observed acquired strictly before it, together with the source site
// where that ordering was first seen.
//
// The graph is write-once: nodes and edges are created during ingestion
// and never mutated afterwards, except for the Visited flag owned by the
// cycle detector. Ingestion is single-threaded and detection is read-only,
// so the package does no locking of its own.
//
// A cycle in this graph means the traced program acquired locks in
// inconsistent orders across threads, which is the precondition for
// deadlock. Finding those cycles is the detect package's job; this package
// only builds and serves the graph.
package lockgraph
