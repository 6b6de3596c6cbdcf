package bfv

import (
	"encoding/binary"
	"fmt"

	"VoteProof/crypto/ring"
)

// Binary layout, big-endian:
//
//	Ciphertext: 'C' | version | epoch u64 | noiseBound u64 | 2 x (len u32 | len x u64)
//	PublicKey:  'P' | version | epoch u64 | 2 x (len u32 | len x u64)
//	SecretKey:  'S' | version | epoch u64 | len u32 | len x u64
const (
	tagCiphertext byte = 'C'
	tagPublicKey  byte = 'P'
	tagSecretKey  byte = 'S'

	codecVersion byte = 1

	headerSize = 2 + 8
)

func polySize(N int) int {
	return 4 + 8*N
}

// CiphertextSize returns the exact size of a marshaled ciphertext.
func CiphertextSize(params *Parameters) int {
	return headerSize + 8 + 2*polySize(params.N())
}

// PublicKeySize returns the exact size of a marshaled public key.
func PublicKeySize(params *Parameters) int {
	return headerSize + 2*polySize(params.N())
}

// SecretKeySize returns the exact size of a marshaled secret key.
func SecretKeySize(params *Parameters) int {
	return headerSize + polySize(params.N())
}

func appendHeader(buf []byte, tag byte, epoch uint64) []byte {
	buf = append(buf, tag, codecVersion)
	return binary.BigEndian.AppendUint64(buf, epoch)
}

func appendPoly(buf []byte, p *ring.Poly) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(p.N()))
	return p.AppendBinary(buf)
}

// MarshalBinary encodes the ciphertext on a slice of bytes.
func (ct *Ciphertext) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 0, headerSize+8+2*polySize(ct.Value[0].N()))
	data = appendHeader(data, tagCiphertext, ct.Epoch)
	data = binary.BigEndian.AppendUint64(data, ct.NoiseBound)
	data = appendPoly(data, ct.Value[0])
	data = appendPoly(data, ct.Value[1])
	return data, nil
}

// MarshalBinary encodes the public key on a slice of bytes.
func (pk *PublicKey) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 0, headerSize+2*polySize(pk.Value[0].N()))
	data = appendHeader(data, tagPublicKey, pk.Epoch)
	data = appendPoly(data, pk.Value[0])
	data = appendPoly(data, pk.Value[1])
	return data, nil
}

// MarshalBinary encodes the secret key on a slice of bytes.
func (sk *SecretKey) MarshalBinary() (data []byte, err error) {
	data = make([]byte, 0, headerSize+polySize(sk.Value.N()))
	data = appendHeader(data, tagSecretKey, sk.Epoch)
	data = appendPoly(data, sk.Value)
	return data, nil
}

// UnmarshalCiphertext decodes a ciphertext for params. The declared lengths
// are checked against the ring degree and the input size before any
// allocation. Every violation wraps ErrMalformedCiphertext.
func UnmarshalCiphertext(params *Parameters, data []byte) (*Ciphertext, error) {
	d := &decoder{data: data, ringQ: params.RingQ()}
	ct := &Ciphertext{}
	ct.Epoch = d.header(tagCiphertext)
	ct.NoiseBound = d.uint64()
	ct.Value[0] = d.poly()
	ct.Value[1] = d.poly()
	if err := d.finish(); err != nil {
		return nil, fmt.Errorf("cannot UnmarshalCiphertext: %w", err)
	}
	if ct.NoiseBound < params.FreshNoiseBound() {
		return nil, fmt.Errorf("cannot UnmarshalCiphertext: noise bound %d below fresh bound: %w", ct.NoiseBound, ErrMalformedCiphertext)
	}
	return ct, nil
}

// UnmarshalPublicKey decodes a public key for params and checks that its
// epoch matches its coefficients.
func UnmarshalPublicKey(params *Parameters, data []byte) (*PublicKey, error) {
	d := &decoder{data: data, ringQ: params.RingQ()}
	pk := &PublicKey{}
	pk.Epoch = d.header(tagPublicKey)
	pk.Value[0] = d.poly()
	pk.Value[1] = d.poly()
	if err := d.finish(); err != nil {
		return nil, fmt.Errorf("cannot UnmarshalPublicKey: %w", err)
	}
	if epochOf(params, pk) != pk.Epoch {
		return nil, fmt.Errorf("cannot UnmarshalPublicKey: epoch does not match key: %w", ErrMalformedCiphertext)
	}
	return pk, nil
}

// UnmarshalSecretKey decodes a secret key for params. Coefficients must be ternary.
func UnmarshalSecretKey(params *Parameters, data []byte) (*SecretKey, error) {
	d := &decoder{data: data, ringQ: params.RingQ()}
	sk := &SecretKey{}
	sk.Epoch = d.header(tagSecretKey)
	sk.Value = d.poly()
	if err := d.finish(); err != nil {
		return nil, fmt.Errorf("cannot UnmarshalSecretKey: %w", err)
	}
	q := params.Q()
	for i, c := range sk.Value.Coeffs {
		if c > 1 && c != q-1 {
			sk.Wipe()
			return nil, fmt.Errorf("cannot UnmarshalSecretKey: coefficient %d is not ternary: %w", i, ErrMalformedCiphertext)
		}
	}
	return sk, nil
}

// decoder reads a byte slice and keeps the first error. Reads after an
// error are no-ops returning zero values.
type decoder struct {
	data  []byte
	off   int
	ringQ *ring.Ring
	err   error
}

func (d *decoder) fail(format string, args ...interface{}) {
	if d.err == nil {
		d.err = fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrMalformedCiphertext)
	}
}

func (d *decoder) remaining() int {
	return len(d.data) - d.off
}

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.remaining() < n {
		d.fail("truncated input: need %d bytes at offset %d, have %d", n, d.off, d.remaining())
		return nil
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b
}

func (d *decoder) header(tag byte) (epoch uint64) {
	b := d.take(2)
	if b == nil {
		return 0
	}
	if b[0] != tag {
		d.fail("unexpected tag %q, want %q", b[0], tag)
		return 0
	}
	if b[1] != codecVersion {
		d.fail("unsupported version %d", b[1])
		return 0
	}
	return d.uint64()
}

func (d *decoder) uint32() uint32 {
	if b := d.take(4); b != nil {
		return binary.BigEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) uint64() uint64 {
	if b := d.take(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}

// poly reads a length-prefixed polynomial. The length must equal the ring
// degree and be backed by enough input before the buffer is allocated.
func (d *decoder) poly() *ring.Poly {
	n := d.uint32()
	if d.err != nil {
		return nil
	}
	if uint64(n) != uint64(d.ringQ.N) {
		d.fail("declared length %d, ring degree is %d", n, d.ringQ.N)
		return nil
	}
	if d.remaining() < 8*d.ringQ.N {
		d.fail("truncated polynomial: need %d bytes, have %d", 8*d.ringQ.N, d.remaining())
		return nil
	}
	p := d.ringQ.NewPoly()
	for i := range p.Coeffs {
		c := d.uint64()
		if c >= d.ringQ.Modulus {
			d.fail("coefficient %d not reduced modulo %d", i, d.ringQ.Modulus)
			return nil
		}
		p.Coeffs[i] = c
	}
	return p
}

func (d *decoder) finish() error {
	if d.err == nil && d.remaining() != 0 {
		d.fail("%d trailing bytes", d.remaining())
	}
	return d.err
}
