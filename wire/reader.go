package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrBadLength is returned when a string length prefix cannot be decoded or
// points past the end of the input.
var ErrBadLength = errors.New("wire: bad string length prefix")

// Reader consumes primitives from a byte slice, advancing a cursor shared by
// every codec that reads from it.
type Reader struct {
	data []byte
	off  int
}

// NewReader returns a Reader positioned at the start of data.
func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset is the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining is the number of bytes left to read.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

func (r *Reader) take(n int, what string) ([]byte, error) {
	if n < 0 || r.Remaining() < n {
		return nil, fmt.Errorf("wire: reading %s at offset %d: %w", what, r.off, io.ErrUnexpectedEOF)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

// Int32 reads four little-endian bytes.
func (r *Reader) Int32() (int32, error) {
	b, err := r.take(4, "int32")
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// Bool reads one byte; any non-zero value is true.
func (r *Reader) Bool() (bool, error) {
	b, err := r.take(1, "bool")
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// String reads a uvarint byte length and that many bytes. The returned string
// does not alias the input.
func (r *Reader) String() (string, error) {
	n, size := binary.Uvarint(r.data[r.off:])
	switch {
	case size == 0:
		return "", fmt.Errorf("wire: reading string length at offset %d: %w", r.off, io.ErrUnexpectedEOF)
	case size < 0 || n > MaxStringLen:
		return "", fmt.Errorf("%w at offset %d", ErrBadLength, r.off)
	}
	start := r.off
	r.off += size
	if uint64(r.Remaining()) < n {
		r.off = start
		return "", fmt.Errorf("%w at offset %d: %d bytes declared, %d left: %w",
			ErrBadLength, start, n, r.Remaining()-size, io.ErrUnexpectedEOF)
	}
	b, err := r.take(int(n), "string")
	if err != nil {
		return "", err
	}
	return string(b), nil
}
