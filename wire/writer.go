package wire

import (
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/valyala/bytebufferpool"
)

// MaxStringLen is the largest string byte length the format can carry.
const MaxStringLen = math.MaxInt32

var bufferPool bytebufferpool.Pool

// Writer appends primitives to a pooled buffer. Callers must Release it once
// they have taken what they need with Bytes.
type Writer struct {
	buf *bytebufferpool.ByteBuffer
}

// NewWriter returns a Writer backed by a buffer from the shared pool.
func NewWriter() *Writer {
	return &Writer{buf: bufferPool.Get()}
}

// Int32 appends v as four little-endian bytes.
func (w *Writer) Int32(v int32) {
	w.buf.B = binary.LittleEndian.AppendUint32(w.buf.B, uint32(v))
}

// Bool appends a single 0 or 1 byte.
func (w *Writer) Bool(v bool) {
	if v {
		w.buf.B = append(w.buf.B, 1)
		return
	}
	w.buf.B = append(w.buf.B, 0)
}

// String appends the byte length of s as a uvarint followed by its bytes.
func (w *Writer) String(s string) error {
	if !utf8.ValidString(s) {
		return fmt.Errorf("wire: string is not valid UTF-8")
	}
	if len(s) > MaxStringLen {
		return fmt.Errorf("wire: string of %d bytes exceeds the format limit", len(s))
	}
	w.buf.B = binary.AppendUvarint(w.buf.B, uint64(len(s)))
	w.buf.B = append(w.buf.B, s...)
	return nil
}

// Len reports the number of bytes written so far.
func (w *Writer) Len() int {
	return w.buf.Len()
}

// Bytes returns a copy of the written bytes that stays valid after Release.
func (w *Writer) Bytes() []byte {
	out := make([]byte, w.buf.Len())
	copy(out, w.buf.B)
	return out
}

// Release hands the buffer back to the pool. The Writer must not be used
// afterwards.
func (w *Writer) Release() {
	if w.buf == nil {
		return
	}
	bufferPool.Put(w.buf)
	w.buf = nil
}
