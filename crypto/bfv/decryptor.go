package bfv

import (
	"fmt"
	"math/bits"

	"VoteProof/crypto/ring"
)

// Decryptor decrypts ciphertexts of the epoch of its secret key.
type Decryptor struct {
	params *Parameters
	sk     *SecretKey
}

// NewDecryptor creates a new Decryptor.
func NewDecryptor(params *Parameters, sk *SecretKey) *Decryptor {
	return &Decryptor{params: params, sk: sk}
}

// Decrypt computes v = c0 + c1*s and rounds T*v/Q to the nearest integer mod T.
//
// The result is rejected with ErrNoiseOverflow when the tracked noise bound
// exceeds the budget, when a coefficient does not round within Q/4 of a valid
// residue, or when a non-constant coefficient decodes to a non-zero value.
func (dec *Decryptor) Decrypt(ct *Ciphertext) (PlaintextValue, error) {
	if ct.Epoch != dec.sk.Epoch {
		return PlaintextValue{}, fmt.Errorf("cannot Decrypt: ciphertext epoch %016x, key epoch %016x: %w", ct.Epoch, dec.sk.Epoch, ErrKeyMismatch)
	}
	if ct.NoiseBound > dec.params.NoiseBudget() {
		return PlaintextValue{}, fmt.Errorf("cannot Decrypt: noise bound %d over budget %d: %w", ct.NoiseBound, dec.params.NoiseBudget(), ErrNoiseOverflow)
	}

	phase := dec.phase(ct)
	q, t := dec.params.Q(), dec.params.T()
	half, quarter := q>>1, q>>2

	var m0 uint64
	for j, v := range phase.Coeffs {
		m, dist := roundScaled(v, t, q, half)
		if dist > quarter {
			return PlaintextValue{}, fmt.Errorf("cannot Decrypt: coefficient %d off by %d: %w", j, dist, ErrNoiseOverflow)
		}
		if j == 0 {
			m0 = m
		} else if m != 0 {
			return PlaintextValue{}, fmt.Errorf("cannot Decrypt: coefficient %d decodes to %d: %w", j, m, ErrNoiseOverflow)
		}
	}
	return plaintextFromResidue(dec.params, m0), nil
}

// Noise returns the largest absolute distance between a coefficient of
// c0 + c1*s and the scaled plaintext it decodes to.
func (dec *Decryptor) Noise(ct *Ciphertext) (uint64, error) {
	if ct.Epoch != dec.sk.Epoch {
		return 0, fmt.Errorf("cannot Noise: %w", ErrKeyMismatch)
	}
	ringQ := dec.params.RingQ()
	phase := dec.phase(ct)
	q, t, delta := dec.params.Q(), dec.params.T(), dec.params.Delta()

	var maxNoise uint64
	for _, v := range phase.Coeffs {
		m, _ := roundScaled(v, t, q, q>>1)
		noise := ringQ.ToSigned(subModQ(v, delta*m, q))
		abs := uint64(noise)
		if noise < 0 {
			abs = uint64(-noise)
		}
		if abs > maxNoise {
			maxNoise = abs
		}
	}
	return maxNoise, nil
}

func (dec *Decryptor) phase(ct *Ciphertext) *ring.Poly {
	ringQ := dec.params.RingQ()
	phase := ringQ.NewPoly()
	ringQ.MulPoly(ct.Value[1], dec.sk.Value, phase)
	ringQ.Add(phase, ct.Value[0], phase)
	return phase
}

// roundScaled returns m = round(t*v/q) mod t and the distance of the
// fractional part to one half, scaled by q.
func roundScaled(v, t, q, half uint64) (m, dist uint64) {
	hi, lo := bits.Mul64(t, v)
	lo, carry := bits.Add64(lo, half, 0)
	hi += carry
	quo, rem := bits.Div64(hi, lo, q)
	if rem >= half {
		dist = rem - half
	} else {
		dist = half - rem
	}
	return quo % t, dist
}

func subModQ(a, b, q uint64) uint64 {
	b %= q
	if a >= b {
		return a - b
	}
	return a + q - b
}
