package lockgraph

import "fmt"

// LockID uniquely identifies one dynamically created lock: the thread
// that created it and the creation instance number within that thread.
type LockID struct {
	Thr      int32
	Instance int32
}

// Less orders LockIDs lexicographically on (Thr, Instance). This is the
// total order used for deterministic graph iteration, so cycle reports
// are reproducible across runs.
func (id LockID) Less(other LockID) bool {
	if id.Thr != other.Thr {
		return id.Thr < other.Thr
	}
	return id.Instance < other.Instance
}

// String renders the id as "thr/instance".
func (id LockID) String() string {
	return fmt.Sprintf("%d/%d", id.Thr, id.Instance)
}

// Site is a source location recorded in the trace: where a lock was
// created, or where an acquisition order was observed.
type Site struct {
	File string
	Line int32
}

// String renders the site as "file:line".
func (s Site) String() string {
	return fmt.Sprintf("%s:%d", s.File, s.Line)
}
