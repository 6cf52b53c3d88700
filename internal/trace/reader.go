package trace

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/lockverify/internal/lockgraph"
)

// Reader decodes one trace file.
//
// Usage: NewReader, ReadHeader once, then Next until io.EOF. Any other
// error is a FormatError; the stream is not recoverable past one.
type Reader struct {
	br   *bufio.Reader
	name string
}

// NewReader wraps r for decoding. name is used in error messages only.
func NewReader(r io.Reader, name string) *Reader {
	return &Reader{br: bufio.NewReader(r), name: name}
}

// ReadHeader decodes the file header. Must be called before Next.
func (r *Reader) ReadHeader() (Header, error) {
	var h Header
	if err := r.readInt64(&h.Time); err != nil {
		return Header{}, r.truncated("header time")
	}
	if err := r.readInt32(&h.Thread); err != nil {
		return Header{}, r.truncated("header thread")
	}
	if err := r.readInt32(&h.PID); err != nil {
		return Header{}, r.truncated("header pid")
	}
	return h, nil
}

// Next decodes the next record. Returns io.EOF at a clean end of file;
// a file ending mid-record is a FormatError.
func (r *Reader) Next() (Event, error) {
	var marker int32
	if err := r.readInt32(&marker); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, r.truncated("record marker")
	}
	if marker == createMarker {
		return r.readCreate()
	}
	return r.readOrder(marker)
}

func (r *Reader) readCreate() (Event, error) {
	var ev Create
	if err := r.readInt32(&ev.ID.Thr); err != nil {
		return nil, r.truncated("creation record")
	}
	if err := r.readInt32(&ev.ID.Instance); err != nil {
		return nil, r.truncated("creation record")
	}
	file, err := r.readString()
	if err != nil {
		return nil, err
	}
	ev.At.File = file
	if err := r.readInt32(&ev.At.Line); err != nil {
		return nil, r.truncated("creation record")
	}
	return ev, nil
}

func (r *Reader) readOrder(prevThr int32) (Event, error) {
	ev := Order{Earlier: lockgraph.LockID{Thr: prevThr}}
	if err := r.readInt32(&ev.Earlier.Instance); err != nil {
		return nil, r.truncated("order record")
	}
	if err := r.readInt32(&ev.Later.Thr); err != nil {
		return nil, r.truncated("order record")
	}
	if err := r.readInt32(&ev.Later.Instance); err != nil {
		return nil, r.truncated("order record")
	}
	file, err := r.readString()
	if err != nil {
		return nil, err
	}
	ev.At.File = file
	if err := r.readInt32(&ev.At.Line); err != nil {
		return nil, r.truncated("order record")
	}
	return ev, nil
}

// readString reads a NUL-terminated string of fewer than maxString
// bytes, terminator included.
func (r *Reader) readString() (string, error) {
	buf := make([]byte, 0, 64)
	for {
		c, err := r.br.ReadByte()
		if err != nil {
			return "", r.truncated("string")
		}
		if c == 0 {
			return string(buf), nil
		}
		buf = append(buf, c)
		if len(buf) == maxString {
			return "", &FormatError{
				Code:   ErrCodeStringTooLong,
				File:   r.name,
				Detail: fmt.Sprintf("string exceeds %d bytes", maxString-1),
			}
		}
	}
}

func (r *Reader) readInt32(v *int32) error {
	return binary.Read(r.br, binary.LittleEndian, v)
}

func (r *Reader) readInt64(v *int64) error {
	return binary.Read(r.br, binary.LittleEndian, v)
}

func (r *Reader) truncated(what string) error {
	return &FormatError{
		Code:   ErrCodeTruncated,
		File:   r.name,
		Detail: "file too short reading " + what,
	}
}
