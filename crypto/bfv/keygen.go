package bfv

import (
	"fmt"

	"VoteProof/crypto/ring"
)

// KeyGenerator samples key pairs. It is not safe for concurrent use.
type KeyGenerator struct {
	params         *Parameters
	uniformSampler *ring.UniformSampler
	ternarySampler *ring.TernarySampler
	noiseSampler   *ring.BinomialSampler
}

// NewKeyGenerator creates a KeyGenerator reading from the system CSPRNG.
func NewKeyGenerator(params *Parameters) *KeyGenerator {
	return NewKeyGeneratorWithPRNG(params, ring.NewPRNG())
}

// NewKeyGeneratorWithPRNG creates a KeyGenerator reading from prng. With a
// KeyedPRNG the generated keys are a deterministic function of the key.
func NewKeyGeneratorWithPRNG(params *Parameters, prng ring.PRNG) *KeyGenerator {
	return &KeyGenerator{
		params:         params,
		uniformSampler: ring.NewUniformSampler(prng, params.RingQ()),
		ternarySampler: ring.NewTernarySampler(prng, params.RingQ()),
		noiseSampler:   params.newNoiseSampler(prng),
	}
}

// GenKeyPair generates a new secret key s and the public key (-(a*s) + e, a).
// Both keys carry the epoch derived from the public key.
func (keygen *KeyGenerator) GenKeyPair() (sk *SecretKey, pk *PublicKey, err error) {
	ringQ := keygen.params.RingQ()

	sk = NewSecretKey(keygen.params)
	if err = keygen.ternarySampler.Read(sk.Value); err != nil {
		return nil, nil, fmt.Errorf("cannot GenKeyPair: %w: %w", ErrKeyGeneration, err)
	}

	pk = NewPublicKey(keygen.params)
	if err = keygen.uniformSampler.Read(pk.Value[1]); err != nil {
		sk.Wipe()
		return nil, nil, fmt.Errorf("cannot GenKeyPair: %w: %w", ErrKeyGeneration, err)
	}
	if err = keygen.noiseSampler.Read(pk.Value[0]); err != nil {
		sk.Wipe()
		return nil, nil, fmt.Errorf("cannot GenKeyPair: %w: %w", ErrKeyGeneration, err)
	}

	as := ringQ.NewPoly()
	ringQ.MulPoly(pk.Value[1], sk.Value, as)
	ringQ.Sub(pk.Value[0], as, pk.Value[0])

	pk.Epoch = epochOf(keygen.params, pk)
	sk.Epoch = pk.Epoch
	return sk, pk, nil
}
