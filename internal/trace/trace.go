package trace

import "github.com/roach88/lockverify/internal/lockgraph"

// createMarker introduces a creation record. Order records reuse the
// marker slot for the previous lock's thread id, so -1 can never be a
// valid thread number.
const createMarker int32 = -1

// maxString bounds filename strings in a record, terminator included.
const maxString = 1024

// Header identifies one trace file: when the trace started, which
// thread wrote it, and the pid of the traced process.
type Header struct {
	Time   int64
	Thread int32
	PID    int32
}

// Event is one decoded trace record, either a Create or an Order.
type Event interface {
	isEvent()
}

// Create records the creation of a new lock.
type Create struct {
	ID lockgraph.LockID
	At lockgraph.Site
}

func (Create) isEvent() {}

// Order records that Earlier was held when Later was acquired at At.
type Order struct {
	Earlier lockgraph.LockID
	Later   lockgraph.LockID
	At      lockgraph.Site
}

func (Order) isEvent() {}

// Apply feeds one event into the graph. Graph errors (duplicate
// creation, unknown lock) pass through unchanged; they mean the trace
// set is internally inconsistent and the run should stop.
func Apply(g *lockgraph.Graph, ev Event) error {
	switch e := ev.(type) {
	case Create:
		return g.RegisterCreation(e.ID, e.At)
	case Order:
		return g.RecordOrder(e.Earlier, e.Later, e.At)
	}
	return nil
}
