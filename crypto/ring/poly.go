package ring

import "encoding/binary"

// Poly is a polynomial stored as its coefficient vector.
type Poly struct {
	Coeffs []uint64
}

// N returns the number of coefficients.
func (p *Poly) N() int {
	return len(p.Coeffs)
}

// Zero sets all coefficients to zero.
func (p *Poly) Zero() {
	for i := range p.Coeffs {
		p.Coeffs[i] = 0
	}
}

// CopyNew returns a deep copy of p.
func (p *Poly) CopyNew() *Poly {
	q := &Poly{Coeffs: make([]uint64, len(p.Coeffs))}
	copy(q.Coeffs, p.Coeffs)
	return q
}

// Copy copies the coefficients of other on p. Both must have the same length.
func (p *Poly) Copy(other *Poly) {
	if len(p.Coeffs) != len(other.Coeffs) {
		panic("cannot Copy: polynomials have different lengths")
	}
	copy(p.Coeffs, other.Coeffs)
}

// Equal reports whether p and other have the same coefficients.
func (p *Poly) Equal(other *Poly) bool {
	if p == other {
		return true
	}
	if p == nil || other == nil || len(p.Coeffs) != len(other.Coeffs) {
		return false
	}
	for i := range p.Coeffs {
		if p.Coeffs[i] != other.Coeffs[i] {
			return false
		}
	}
	return true
}

// AppendBinary appends the big-endian coefficients of p to buf.
func (p *Poly) AppendBinary(buf []byte) []byte {
	var b [8]byte
	for _, c := range p.Coeffs {
		binary.BigEndian.PutUint64(b[:], c)
		buf = append(buf, b[:]...)
	}
	return buf
}
