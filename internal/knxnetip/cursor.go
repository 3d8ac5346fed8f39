package knxnetip

import (
	"encoding/binary"
	"fmt"
)

// Reader is a read cursor over a byte slice.
//
// Values are stored by name in the frame on top of a scratch stack.
// PushStack opens a nested frame and PopStack folds it into a single value
// in its parent, which is how composite fields are read. The first error is
// sticky: later calls are no-ops and Err reports it.
type Reader struct {
	buf   []byte
	off   int
	stack []map[string]any
	err   error
}

// NewReader returns a Reader positioned at the start of b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b, stack: []map[string]any{{}}}
}

// PushStack opens a new, empty scratch frame.
func (r *Reader) PushStack() *Reader {
	r.stack = append(r.stack, map[string]any{})
	return r
}

// PopStack closes the top frame and stores it under name in the parent
// frame, passed through reduce when reduce is non-nil.
func (r *Reader) PopStack(name string, reduce func(map[string]any) any) *Reader {
	if len(r.stack) < 2 { //nolint:mnd // root frame is never popped
		r.fail(fmt.Errorf("knxnetip: PopStack(%q) without matching PushStack", name))
		return r
	}
	top := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	if r.err != nil {
		return r
	}

	var v any = top
	if reduce != nil {
		v = reduce(top)
	}
	r.Frame()[name] = v
	return r
}

// Raw reads n bytes into name. The stored slice is a copy.
func (r *Reader) Raw(name string, n int) *Reader {
	b := r.take(name, n)
	if b != nil {
		r.Frame()[name] = append([]byte(nil), b...)
	}
	return r
}

// Uint8 reads one byte into name as an int.
func (r *Reader) Uint8(name string) *Reader {
	b := r.take(name, 1)
	if b != nil {
		r.Frame()[name] = int(b[0])
	}
	return r
}

// Uint16BE reads a big-endian uint16 into name as an int.
func (r *Reader) Uint16BE(name string) *Reader {
	b := r.take(name, 2) //nolint:mnd // uint16
	if b != nil {
		r.Frame()[name] = int(binary.BigEndian.Uint16(b))
	}
	return r
}

// Tap calls fn with the current frame unless an error is pending.
// An error from fn becomes the reader's error.
func (r *Reader) Tap(fn func(frame map[string]any) error) *Reader {
	if r.err != nil {
		return r
	}
	if err := fn(r.Frame()); err != nil {
		r.fail(err)
	}
	return r
}

// Frame returns the frame on top of the stack.
func (r *Reader) Frame() map[string]any {
	return r.stack[len(r.stack)-1]
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Offset returns the number of bytes consumed.
func (r *Reader) Offset() int {
	return r.off
}

// Err returns the first error encountered.
func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) take(name string, n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.fail(fmt.Errorf("%w: %s needs %d bytes at offset %d, have %d", ErrShortBuffer, name, n, r.off, r.Remaining()))
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// Writer is an append-only write cursor.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity for size bytes.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

// Raw writes exactly n bytes of b, zero-padding or truncating as needed.
func (w *Writer) Raw(b []byte, n int) *Writer {
	if n <= len(b) {
		w.buf = append(w.buf, b[:n]...)
		return w
	}
	w.buf = append(w.buf, b...)
	w.buf = append(w.buf, make([]byte, n-len(b))...)
	return w
}

// Uint8 writes one byte.
func (w *Writer) Uint8(v uint8) *Writer {
	w.buf = append(w.buf, v)
	return w
}

// Uint16BE writes a big-endian uint16.
func (w *Writer) Uint16BE(v uint16) *Writer {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
	return w
}

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}
