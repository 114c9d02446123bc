package binary

import (
	"bytes"
	"encoding/binary"
)

// Writer accumulates little-endian encoded data
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer {
	return &Writer{}
}

// Bytes returns the encoded data written so far
func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}

func (w *Writer) PutUint8(v uint8) {
	_ = w.buf.WriteByte(v)
}

func (w *Writer) PutUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, _ = w.buf.Write(b[:])
}

func (w *Writer) PutUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, _ = w.buf.Write(b[:])
}

func (w *Writer) PutUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, _ = w.buf.Write(b[:])
}

func (w *Writer) PutBool(v bool) {
	if v {
		w.PutUint8(1)
	} else {
		w.PutUint8(0)
	}
}

// PutString writes a u32 length prefixed string
func (w *Writer) PutString(v string) {
	w.PutUint32(uint32(len(v)))
	_, _ = w.buf.WriteString(v)
}

func (w *Writer) PutBytes(v []byte) {
	_, _ = w.buf.Write(v)
}
