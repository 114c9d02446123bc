package binary

import (
	"crypto/ed25519"
	"encoding/binary"

	"github.com/pkg/errors"
)

// ErrUnexpectedEOF indicates a read extends past the end of the underlying data
var ErrUnexpectedEOF = errors.New("unexpected end of data")

// Reader is a forward-only cursor over little-endian encoded data. Every Get
// advances the offset by exactly the number of bytes it consumes, and fails
// without advancing if fewer bytes remain than requested.
type Reader struct {
	data   []byte
	offset int
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

// Offset returns the number of bytes consumed so far
func (r *Reader) Offset() int {
	return r.offset
}

// Remaining returns the number of unread bytes
func (r *Reader) Remaining() int {
	return len(r.data) - r.offset
}

// Next returns the next n bytes without copying them
func (r *Reader) Next(n int) ([]byte, error) {
	if n < 0 || n > r.Remaining() {
		return nil, errors.Wrapf(ErrUnexpectedEOF, "need %d bytes, have %d", n, r.Remaining())
	}

	b := r.data[r.offset : r.offset+n]
	r.offset += n
	return b, nil
}

// GetBytes returns a copy of the next n bytes
func (r *Reader) GetBytes(n int) ([]byte, error) {
	b, err := r.Next(n)
	if err != nil {
		return nil, err
	}

	dst := make([]byte, n)
	copy(dst, b)
	return dst, nil
}

// GetRemaining returns a copy of every unread byte
func (r *Reader) GetRemaining() []byte {
	dst, _ := r.GetBytes(r.Remaining())
	return dst
}

func (r *Reader) GetUint8() (uint8, error) {
	b, err := r.Next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *Reader) GetUint16() (uint16, error) {
	b, err := r.Next(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) GetUint32() (uint32, error) {
	b, err := r.Next(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) GetUint64() (uint64, error) {
	b, err := r.Next(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// GetUint128 reads a 16 byte little-endian integer as its low and high words
func (r *Reader) GetUint128() (lo, hi uint64, err error) {
	b, err := r.Next(16)
	if err != nil {
		return 0, 0, err
	}
	return binary.LittleEndian.Uint64(b[:8]), binary.LittleEndian.Uint64(b[8:]), nil
}

func (r *Reader) GetKey32() (ed25519.PublicKey, error) {
	b, err := r.GetBytes(ed25519.PublicKeySize)
	if err != nil {
		return nil, err
	}
	return ed25519.PublicKey(b), nil
}

// GetString reads a u32 length prefixed string. No UTF-8 validation is done.
func (r *Reader) GetString() (string, error) {
	size, err := r.GetUint32()
	if err != nil {
		return "", err
	}

	b, err := r.Next(int(size))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
