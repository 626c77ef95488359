package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// SuccessMarker trails every frame on the wire.
var SuccessMarker = [4]byte{0xFF, 0xFF, 0xFF, 0xFF}

var (
	ErrTruncated             = errors.New("frame: truncated")
	ErrVariableTooLarge      = errors.New("frame: variable-width field too large")
	ErrSuccessMarkerMismatch = errors.New("frame: success marker mismatch")
)

// Limits constrains frame decode memory use.
type Limits struct {
	MaxVariableBytes uint32
}

func DefaultLimits() Limits {
	return Limits{
		MaxVariableBytes: 256 * 1024 * 1024,
	}
}

// Reader decodes frame primitives from a byte stream.
type Reader struct {
	r      io.Reader
	limits Limits
	buf    [4]byte
}

func NewReader(r io.Reader, limits Limits) *Reader {
	if limits.MaxVariableBytes == 0 {
		limits = DefaultLimits()
	}
	return &Reader{r: r, limits: limits}
}

// ReadUint32 returns io.EOF only when the stream ends before the first byte.
func (r *Reader) ReadUint32() (uint32, error) {
	if _, err := io.ReadFull(r.r, r.buf[:]); err != nil {
		return 0, mapReadErr(err)
	}
	return binary.BigEndian.Uint32(r.buf[:]), nil
}

// ReadVariable reads a u32 length prefix followed by that many bytes.
func (r *Reader) ReadVariable() ([]byte, error) {
	n, err := r.ReadUint32()
	if err != nil {
		return nil, midFrame(err)
	}
	if n > r.limits.MaxVariableBytes {
		return nil, fmt.Errorf("%w: %d > %d", ErrVariableTooLarge, n, r.limits.MaxVariableBytes)
	}
	out := make([]byte, n)
	if n == 0 {
		return out, nil
	}
	if _, err := io.ReadFull(r.r, out); err != nil {
		return nil, midFrame(mapReadErr(err))
	}
	return out, nil
}

func (r *Reader) ReadSuccessMarker() error {
	if _, err := io.ReadFull(r.r, r.buf[:]); err != nil {
		return midFrame(mapReadErr(err))
	}
	if r.buf != SuccessMarker {
		return fmt.Errorf("%w: got %x", ErrSuccessMarkerMismatch, r.buf[:])
	}
	return nil
}

// Writer encodes frame primitives. The first write error sticks and turns
// later writes into no-ops.
type Writer struct {
	w   io.Writer
	buf [4]byte
	err error
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) WriteUint32(v uint32) {
	if w.err != nil {
		return
	}
	binary.BigEndian.PutUint32(w.buf[:], v)
	_, w.err = w.w.Write(w.buf[:])
}

func (w *Writer) WriteVariable(b []byte) {
	if w.err != nil {
		return
	}
	if uint64(len(b)) > uint64(^uint32(0)) {
		w.err = fmt.Errorf("%w: %d bytes", ErrVariableTooLarge, len(b))
		return
	}
	w.WriteUint32(uint32(len(b)))
	if w.err != nil || len(b) == 0 {
		return
	}
	_, w.err = w.w.Write(b)
}

func (w *Writer) WriteSuccessMarker() {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(SuccessMarker[:])
}

func (w *Writer) Err() error {
	return w.err
}

func mapReadErr(err error) error {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrTruncated
	}
	return err
}

// midFrame upgrades a clean EOF to ErrTruncated once a frame has started.
func midFrame(err error) error {
	if errors.Is(err, io.EOF) {
		return ErrTruncated
	}
	return err
}
