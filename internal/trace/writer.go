package trace

import (
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Writer encodes trace files in the format Reader decodes. The verifier
// itself never writes traces; the Writer exists for tests and for
// generating fixture files.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w for encoding.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteHeader encodes the file header. Must be called first.
func (w *Writer) WriteHeader(h Header) error {
	if err := binary.Write(w.w, binary.LittleEndian, h.Time); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(w.w, binary.LittleEndian, h.Thread); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := binary.Write(w.w, binary.LittleEndian, h.PID); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// WriteEvent encodes one creation or order record.
func (w *Writer) WriteEvent(ev Event) error {
	switch e := ev.(type) {
	case Create:
		return w.writeCreate(e)
	case Order:
		return w.writeOrder(e)
	}
	return fmt.Errorf("write event: unknown event type %T", ev)
}

func (w *Writer) writeCreate(e Create) error {
	ints := []int32{createMarker, e.ID.Thr, e.ID.Instance}
	if err := w.writeInts(ints); err != nil {
		return err
	}
	if err := w.writeString(e.At.File); err != nil {
		return err
	}
	return w.writeInts([]int32{e.At.Line})
}

func (w *Writer) writeOrder(e Order) error {
	if e.Earlier.Thr == createMarker {
		return fmt.Errorf("write event: thread id %d collides with the creation marker", e.Earlier.Thr)
	}
	ints := []int32{e.Earlier.Thr, e.Earlier.Instance, e.Later.Thr, e.Later.Instance}
	if err := w.writeInts(ints); err != nil {
		return err
	}
	if err := w.writeString(e.At.File); err != nil {
		return err
	}
	return w.writeInts([]int32{e.At.Line})
}

func (w *Writer) writeInts(vs []int32) error {
	for _, v := range vs {
		if err := binary.Write(w.w, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	return nil
}

func (w *Writer) writeString(s string) error {
	if len(s) >= maxString {
		return fmt.Errorf("write record: string exceeds %d bytes", maxString-1)
	}
	if strings.ContainsRune(s, 0) {
		return fmt.Errorf("write record: string contains NUL")
	}
	if _, err := io.WriteString(w.w, s); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	if _, err := w.w.Write([]byte{0}); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}
