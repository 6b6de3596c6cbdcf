package ring

import "math/bits"

// Add evaluates pOut = p1 + p2 mod Q.
func (r *Ring) Add(p1, p2, pOut *Poly) {
	r.check("Add", p1, p2, pOut)
	q := r.Modulus
	for i := 0; i < r.N; i++ {
		pOut.Coeffs[i] = addMod(p1.Coeffs[i], p2.Coeffs[i], q)
	}
}

// Sub evaluates pOut = p1 - p2 mod Q.
func (r *Ring) Sub(p1, p2, pOut *Poly) {
	r.check("Sub", p1, p2, pOut)
	q := r.Modulus
	for i := 0; i < r.N; i++ {
		pOut.Coeffs[i] = subMod(p1.Coeffs[i], p2.Coeffs[i], q)
	}
}

// Neg evaluates pOut = -p1 mod Q.
func (r *Ring) Neg(p1, pOut *Poly) {
	r.check("Neg", p1, pOut)
	q := r.Modulus
	for i := 0; i < r.N; i++ {
		if c := p1.Coeffs[i]; c == 0 {
			pOut.Coeffs[i] = 0
		} else {
			pOut.Coeffs[i] = q - c
		}
	}
}

// Reduce evaluates pOut = p1 mod Q for arbitrary uint64 coefficients.
func (r *Ring) Reduce(p1, pOut *Poly) {
	r.check("Reduce", p1, pOut)
	for i := 0; i < r.N; i++ {
		pOut.Coeffs[i] = p1.Coeffs[i] % r.Modulus
	}
}

// IsReduced reports whether p has N coefficients, all in [0, Q).
func (r *Ring) IsReduced(p *Poly) bool {
	if p == nil || len(p.Coeffs) != r.N {
		return false
	}
	for _, c := range p.Coeffs {
		if c >= r.Modulus {
			return false
		}
	}
	return true
}

// MulScalar evaluates pOut = scalar * p1 mod Q.
func (r *Ring) MulScalar(p1 *Poly, scalar uint64, pOut *Poly) {
	r.check("MulScalar", p1, pOut)
	q := r.Modulus
	s := scalar % q
	for i := 0; i < r.N; i++ {
		pOut.Coeffs[i] = mulMod(p1.Coeffs[i], s, q)
	}
}

// AddScalar evaluates pOut = p1 + scalar (constant term only) mod Q.
func (r *Ring) AddScalar(p1 *Poly, scalar uint64, pOut *Poly) {
	r.check("AddScalar", p1, pOut)
	if p1 != pOut {
		copy(pOut.Coeffs, p1.Coeffs)
	}
	pOut.Coeffs[0] = addMod(pOut.Coeffs[0], scalar%r.Modulus, r.Modulus)
}

// MulPoly evaluates pOut = p1 * p2 in Z_Q[X]/(X^N + 1) with the schoolbook
// negacyclic product. pOut may alias p1 or p2.
func (r *Ring) MulPoly(p1, p2, pOut *Poly) {
	r.check("MulPoly", p1, p2, pOut)
	q, N := r.Modulus, r.N
	acc := make([]uint64, N)
	for i := 0; i < N; i++ {
		a := p1.Coeffs[i]
		if a == 0 {
			continue
		}
		for j := 0; j < N; j++ {
			prod := mulMod(a, p2.Coeffs[j], q)
			if k := i + j; k < N {
				acc[k] = addMod(acc[k], prod, q)
			} else {
				// X^N = -1
				acc[k-N] = subMod(acc[k-N], prod, q)
			}
		}
	}
	copy(pOut.Coeffs, acc)
}

// MulPolyAndAdd evaluates pOut = pOut + p1 * p2.
func (r *Ring) MulPolyAndAdd(p1, p2, pOut *Poly) {
	tmp := r.NewPoly()
	r.MulPoly(p1, p2, tmp)
	r.Add(pOut, tmp, pOut)
}

func addMod(a, b, q uint64) uint64 {
	s := a + b
	if s >= q {
		s -= q
	}
	return s
}

func subMod(a, b, q uint64) uint64 {
	if a >= b {
		return a - b
	}
	return a + q - b
}

func mulMod(a, b, q uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	return bits.Rem64(hi, lo, q)
}
