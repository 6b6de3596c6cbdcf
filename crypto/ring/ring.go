// Package ring implements arithmetic over the polynomial ring Z_Q[X]/(X^N + 1)
// with a single modulus, using only fixed-size integer buffers.
//
// Every operation reduces its output into [0, Q). The package never resizes a
// polynomial: lengths come from the Ring, never from the data.
package ring

import (
	"fmt"
	"math/bits"
)

// MaxModulus bounds Q so that the sum of two reduced coefficients never wraps a uint64.
const MaxModulus = uint64(1) << 62

// Ring is the quotient ring Z_Q[X]/(X^N + 1).
type Ring struct {
	N       int
	Modulus uint64
}

// NewRing creates a new Ring of degree N and modulus Q.
// N must be a power of two and 2 <= Q <= 2^62.
func NewRing(N int, Q uint64) (*Ring, error) {
	if N < 1 || N&(N-1) != 0 {
		return nil, fmt.Errorf("cannot NewRing: N=%d is not a power of two", N)
	}
	if Q < 2 || Q > MaxModulus {
		return nil, fmt.Errorf("cannot NewRing: modulus %d not in [2, 2^62]", Q)
	}
	return &Ring{N: N, Modulus: Q}, nil
}

// LogN returns log2(N).
func (r *Ring) LogN() int {
	return bits.Len(uint(r.N)) - 1
}

// NewPoly allocates a zero polynomial with exactly N coefficients.
func (r *Ring) NewPoly() *Poly {
	return &Poly{Coeffs: make([]uint64, r.N)}
}

// NewPolyFromCoeffs returns a copy of coeffs reduced modulo Q.
func (r *Ring) NewPolyFromCoeffs(coeffs []uint64) (*Poly, error) {
	if len(coeffs) != r.N {
		return nil, fmt.Errorf("cannot NewPolyFromCoeffs: %d coefficients given, ring degree is %d", len(coeffs), r.N)
	}
	p := r.NewPoly()
	for i, c := range coeffs {
		p.Coeffs[i] = c % r.Modulus
	}
	return p, nil
}

// FromSigned maps a centered integer into [0, Q).
func (r *Ring) FromSigned(v int64) uint64 {
	if v >= 0 {
		return uint64(v) % r.Modulus
	}
	m := uint64(-v) % r.Modulus
	if m == 0 {
		return 0
	}
	return r.Modulus - m
}

// ToSigned maps a coefficient in [0, Q) to its centered representative.
func (r *Ring) ToSigned(c uint64) int64 {
	if c > r.Modulus>>1 {
		return -int64(r.Modulus - c)
	}
	return int64(c)
}

func (r *Ring) check(method string, polys ...*Poly) {
	for _, p := range polys {
		if len(p.Coeffs) != r.N {
			panic(fmt.Errorf("cannot %s: polynomial has %d coefficients, ring degree is %d", method, len(p.Coeffs), r.N))
		}
	}
}
