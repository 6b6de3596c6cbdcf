// Package bfv implements a BFV-style additively homomorphic cryptosystem over
// the ring Z_Q[X]/(X^N + 1) with a single modulus Q.
//
// Only the operations needed for an encrypted tally are provided: key
// generation, public-key encryption, homomorphic addition, decryption and a
// binary codec. Every computation is integer-only so that it can run inside a
// deterministic execution environment without floating point.
package bfv

import (
	"fmt"

	"VoteProof/crypto/ring"
)

const (
	// MaxLogN is the largest supported ring degree exponent.
	MaxLogN = 10
	// MaxT is the largest supported plaintext modulus.
	MaxT = uint64(1) << 31
)

// ParametersLiteral is the user-facing description of a parameter set.
type ParametersLiteral struct {
	LogN     int    `json:"logN" yaml:"logN"`
	T        uint64 `json:"t" yaml:"t"`
	Q        uint64 `json:"q" yaml:"q"`
	NoiseEta int    `json:"noiseEta" yaml:"noiseEta"`
}

// Name of the different default parameter sets
const (
	PN5T65537Q58 = iota
	PN3T1024Q40
	PN5T257Q24
)

// DefaultParams is a set of default BFV parameters ensuring correctness of
// additions for the demo and test workloads. They are not meant to be secure.
var DefaultParams = []ParametersLiteral{
	{LogN: 5, T: 65537, Q: 1 << 58, NoiseEta: 20},
	{LogN: 3, T: 1024, Q: 1 << 40, NoiseEta: 20},
	{LogN: 5, T: 257, Q: 1 << 24, NoiseEta: 4},
}

// DefaultParamsNames maps the names of the default sets to their index in DefaultParams.
var DefaultParamsNames = map[string]int{
	"PN5T65537Q58": PN5T65537Q58,
	"PN3T1024Q40":  PN3T1024Q40,
	"PN5T257Q24":   PN5T257Q24,
}

// Parameters is a validated, immutable parameter set.
type Parameters struct {
	ringQ  *ring.Ring
	t      uint64
	eta    int
	delta  uint64
	budget uint64
	fresh  uint64
}

// NewParametersFromLiteral validates lit and derives the noise budget.
func NewParametersFromLiteral(lit ParametersLiteral) (*Parameters, error) {
	if lit.LogN < 1 || lit.LogN > MaxLogN {
		return nil, fmt.Errorf("cannot NewParameters: logN=%d not in [1, %d]", lit.LogN, MaxLogN)
	}
	if lit.T < 2 || lit.T > MaxT {
		return nil, fmt.Errorf("cannot NewParameters: t=%d not in [2, 2^31]", lit.T)
	}
	if lit.Q <= lit.T || lit.Q > ring.MaxModulus {
		return nil, fmt.Errorf("cannot NewParameters: q=%d must satisfy t < q <= 2^62", lit.Q)
	}
	if lit.T*lit.T >= lit.Q>>2 {
		return nil, fmt.Errorf("cannot NewParameters: t^2 must be smaller than q/4")
	}
	if lit.NoiseEta < 1 || lit.NoiseEta > ring.MaxBinomialEta {
		return nil, fmt.Errorf("cannot NewParameters: noiseEta=%d not in [1, %d]", lit.NoiseEta, ring.MaxBinomialEta)
	}

	ringQ, err := ring.NewRing(1<<lit.LogN, lit.Q)
	if err != nil {
		return nil, fmt.Errorf("cannot NewParameters: %w", err)
	}

	params := &Parameters{
		ringQ: ringQ,
		t:     lit.T,
		eta:   lit.NoiseEta,
		delta: lit.Q / lit.T,
		// |e*u + e1 + e2*s| <= N*eta + eta + N*eta with u, s ternary
		fresh: uint64(2*ringQ.N+1) * uint64(lit.NoiseEta),
		// T*noise + T^2 <= Q/4 keeps the rounding distance under Q/4
		budget: ((lit.Q >> 2) - lit.T*lit.T) / lit.T,
	}
	if params.budget < params.fresh {
		return nil, fmt.Errorf("cannot NewParameters: noise budget %d below fresh noise %d", params.budget, params.fresh)
	}
	return params, nil
}

// ParamsByName returns the default parameter set registered under name.
func ParamsByName(name string) (*Parameters, error) {
	idx, ok := DefaultParamsNames[name]
	if !ok {
		return nil, fmt.Errorf("cannot ParamsByName: unknown parameter set %q", name)
	}
	return NewParametersFromLiteral(DefaultParams[idx])
}

// RingQ returns the ciphertext ring.
func (p *Parameters) RingQ() *ring.Ring {
	return p.ringQ
}

// N returns the ring degree.
func (p *Parameters) N() int {
	return p.ringQ.N
}

// LogN returns log2 of the ring degree.
func (p *Parameters) LogN() int {
	return p.ringQ.LogN()
}

// T returns the plaintext modulus.
func (p *Parameters) T() uint64 {
	return p.t
}

// Q returns the ciphertext modulus.
func (p *Parameters) Q() uint64 {
	return p.ringQ.Modulus
}

// NoiseEta returns the parameter of the centered binomial error distribution.
func (p *Parameters) NoiseEta() int {
	return p.eta
}

// Delta returns floor(Q/T), the plaintext scaling factor.
func (p *Parameters) Delta() uint64 {
	return p.delta
}

// NoiseBudget returns the largest noise magnitude that still decrypts correctly.
func (p *Parameters) NoiseBudget() uint64 {
	return p.budget
}

// FreshNoiseBound returns the worst-case noise of a fresh encryption.
func (p *Parameters) FreshNoiseBound() uint64 {
	return p.fresh
}

// MaxAdditions returns how many homomorphic additions of fresh ciphertexts
// are guaranteed to stay within the noise budget.
func (p *Parameters) MaxAdditions() int {
	return int(p.budget/p.fresh) - 1
}

// PlaintextRange returns the inclusive signed range of valid plaintexts.
func (p *Parameters) PlaintextRange() (lo, hi int64) {
	lo = -int64((p.t - 1) / 2)
	hi = lo + int64(p.t) - 1
	return
}

// Literal returns the literal the parameters were built from.
func (p *Parameters) Literal() ParametersLiteral {
	return ParametersLiteral{LogN: p.LogN(), T: p.t, Q: p.Q(), NoiseEta: p.eta}
}

// ID returns a stable identifier of the parameter set.
func (p *Parameters) ID() string {
	return fmt.Sprintf("BFV/N=%d/T=%d/Q=%d/eta=%d", p.N(), p.t, p.Q(), p.eta)
}

func (p *Parameters) String() string {
	return p.ID()
}

// Equal compares two parameter sets.
func (p *Parameters) Equal(other *Parameters) bool {
	if p == nil || other == nil {
		return p == other
	}
	return p.Literal() == other.Literal()
}

func (p *Parameters) newNoiseSampler(prng ring.PRNG) *ring.BinomialSampler {
	s, err := ring.NewBinomialSampler(prng, p.ringQ, p.eta)
	if err != nil {
		// eta is checked by NewParametersFromLiteral
		panic(err)
	}
	return s
}
