package bfv

import (
	"fmt"

	"VoteProof/crypto/ring"
)

// Ciphertext is the pair (c0, c1) of polynomials in R_Q, tagged with the epoch
// of the public key it was encrypted under and a worst-case bound on its noise.
type Ciphertext struct {
	Value      [2]*ring.Poly
	Epoch      uint64
	NoiseBound uint64
}

// NewCiphertext creates a new zero ciphertext.
func NewCiphertext(params *Parameters) (ciphertext *Ciphertext) {
	ringQ := params.RingQ()
	return &Ciphertext{Value: [2]*ring.Poly{ringQ.NewPoly(), ringQ.NewPoly()}}
}

// NewCiphertextRandom generates a new uniformly distributed ciphertext for the given epoch.
// It decrypts to an arbitrary value and is meant for codec and arithmetic tests.
func NewCiphertextRandom(prng ring.PRNG, params *Parameters, epoch uint64) (ciphertext *Ciphertext, err error) {
	ciphertext = NewCiphertext(params)
	sampler := ring.NewUniformSampler(prng, params.RingQ())
	for i := range ciphertext.Value {
		if err = sampler.Read(ciphertext.Value[i]); err != nil {
			return nil, fmt.Errorf("cannot NewCiphertextRandom: %w", err)
		}
	}
	ciphertext.Epoch = epoch
	ciphertext.NoiseBound = params.FreshNoiseBound()
	return ciphertext, nil
}

// CopyNew returns a deep copy of the ciphertext.
func (ct *Ciphertext) CopyNew() *Ciphertext {
	return &Ciphertext{
		Value:      [2]*ring.Poly{ct.Value[0].CopyNew(), ct.Value[1].CopyNew()},
		Epoch:      ct.Epoch,
		NoiseBound: ct.NoiseBound,
	}
}

// Equal reports whether both ciphertexts are identical, metadata included.
func (ct *Ciphertext) Equal(other *Ciphertext) bool {
	return ct.Epoch == other.Epoch &&
		ct.NoiseBound == other.NoiseBound &&
		ct.Value[0].Equal(other.Value[0]) &&
		ct.Value[1].Equal(other.Value[1])
}
