package prover

import (
	"encoding/binary"
	"fmt"
)

// reader decodes the canonical big-endian encodings of the package. It keeps
// the first error; later reads return zero values. Counts read from the
// input are bounded by the remaining bytes before anything is allocated.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) fail(format string, args ...interface{}) {
	if r.err == nil {
		r.err = fmt.Errorf(format, args...)
	}
}

func (r *reader) remaining() int {
	return len(r.data) - r.off
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.remaining() < n {
		r.fail("truncated input at offset %d: need %d bytes, have %d", r.off, n, r.remaining())
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) magic(m string) {
	if b := r.take(len(m)); b != nil && string(b) != m {
		r.fail("bad magic %q, want %q", b, m)
	}
}

func (r *reader) uint8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) uint16() uint16 {
	if b := r.take(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) uint32() uint32 {
	if b := r.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (r *reader) uint64() uint64 {
	if b := r.take(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

func (r *reader) digest() (d Digest) {
	if b := r.take(len(d)); b != nil {
		copy(d[:], b)
	}
	return d
}

// count reads a u32 count of items of at least minSize bytes each.
func (r *reader) count(minSize int) int {
	n := r.uint32()
	if r.err != nil {
		return 0
	}
	if minSize > 0 && uint64(n)*uint64(minSize) > uint64(r.remaining()) {
		r.fail("count %d exceeds the %d remaining bytes", n, r.remaining())
		return 0
	}
	return int(n)
}

// bytes32 reads a u32 length-prefixed byte string and copies it.
func (r *reader) bytes32() []byte {
	n := r.count(1)
	b := r.take(n)
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// bytes16 reads a u16 length-prefixed byte string and copies it.
func (r *reader) bytes16() []byte {
	n := int(r.uint16())
	b := r.take(n)
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *reader) finish() error {
	if r.err == nil && r.remaining() != 0 {
		r.fail("%d trailing bytes", r.remaining())
	}
	return r.err
}

func appendBytes32(buf, b []byte) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(b)))
	return append(buf, b...)
}

func appendBytes16(buf, b []byte) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(b)))
	return append(buf, b...)
}
