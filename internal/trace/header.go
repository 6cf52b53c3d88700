package trace

import "fmt"

// maxTimeSkew is how far apart trace-file creation times may be while
// still belonging to one run.
const maxTimeSkew = 3600

// HeaderSet cross-validates headers when several trace files are merged
// into one graph. The first admitted header fixes the run's pid and
// reference time.
type HeaderSet struct {
	have    bool
	time    int64
	pid     int32
	threads map[int32]bool
}

// NewHeaderSet creates an empty header set.
func NewHeaderSet() *HeaderSet {
	return &HeaderSet{threads: make(map[int32]bool)}
}

// Admit checks h against the headers seen so far.
//
// A pid mismatch means the file belongs to a different process: the file
// is skipped (ok=false), which is a notice, not an error. A repeated
// thread number or a creation time more than an hour from the first
// file's is a FormatError: the input set is corrupt and the run must
// stop.
func (s *HeaderSet) Admit(h Header) (ok bool, err error) {
	if !s.have {
		s.have = true
		s.time = h.Time
		s.pid = h.PID
		s.threads[h.Thread] = true
		return true, nil
	}
	if h.PID != s.pid {
		return false, nil
	}
	if s.threads[h.Thread] {
		return false, &FormatError{
			Code:   ErrCodeDuplicateThread,
			Detail: fmt.Sprintf("thread %d appears in two trace files", h.Thread),
		}
	}
	skew := s.time - h.Time
	if skew < 0 {
		skew = -skew
	}
	if skew > maxTimeSkew {
		return false, &FormatError{
			Code:   ErrCodeTimeSkew,
			Detail: fmt.Sprintf("trace times %d and %d are from different runs", s.time, h.Time),
		}
	}
	s.threads[h.Thread] = true
	return true, nil
}

// PID returns the run's pid. Only meaningful after the first Admit.
func (s *HeaderSet) PID() int32 {
	return s.pid
}
