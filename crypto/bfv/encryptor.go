package bfv

import (
	"fmt"

	"VoteProof/crypto/ring"
)

// Encryptor encrypts plaintexts under a public key. It is not safe for
// concurrent use; create one per goroutine.
type Encryptor struct {
	params         *Parameters
	pk             *PublicKey
	ternarySampler *ring.TernarySampler
	noiseSampler   *ring.BinomialSampler
}

// NewEncryptor creates an Encryptor reading its randomness from the system CSPRNG.
func NewEncryptor(params *Parameters, pk *PublicKey) *Encryptor {
	return NewEncryptorWithPRNG(params, pk, ring.NewPRNG())
}

// NewEncryptorWithPRNG creates an Encryptor reading its randomness from prng.
func NewEncryptorWithPRNG(params *Parameters, pk *PublicKey, prng ring.PRNG) *Encryptor {
	return &Encryptor{
		params:         params,
		pk:             pk,
		ternarySampler: ring.NewTernarySampler(prng, params.RingQ()),
		noiseSampler:   params.newNoiseSampler(prng),
	}
}

// PublicKey returns the key the Encryptor encrypts under.
func (enc *Encryptor) PublicKey() *PublicKey {
	return enc.pk
}

// Encrypt returns c0 = pk0*u + e1 + Delta*m, c1 = pk1*u + e2 with fresh u, e1, e2.
// Two encryptions of the same plaintext differ with overwhelming probability.
func (enc *Encryptor) Encrypt(pt PlaintextValue) (*Ciphertext, error) {
	ringQ := enc.params.RingQ()

	u := ringQ.NewPoly()
	if err := enc.ternarySampler.Read(u); err != nil {
		return nil, fmt.Errorf("cannot Encrypt: %w", err)
	}

	ct := NewCiphertext(enc.params)
	if err := enc.noiseSampler.Read(ct.Value[0]); err != nil {
		return nil, fmt.Errorf("cannot Encrypt: %w", err)
	}
	if err := enc.noiseSampler.Read(ct.Value[1]); err != nil {
		return nil, fmt.Errorf("cannot Encrypt: %w", err)
	}

	ringQ.MulPolyAndAdd(enc.pk.Value[0], u, ct.Value[0])
	ringQ.MulPolyAndAdd(enc.pk.Value[1], u, ct.Value[1])
	ringQ.AddScalar(ct.Value[0], enc.params.Delta()*pt.Residue(), ct.Value[0])
	u.Zero()

	ct.Epoch = enc.pk.Epoch
	ct.NoiseBound = enc.params.FreshNoiseBound()
	return ct, nil
}

// EncryptInt validates v and encrypts it.
func (enc *Encryptor) EncryptInt(v int64) (*Ciphertext, error) {
	pt, err := NewPlaintextValue(enc.params, v)
	if err != nil {
		return nil, err
	}
	return enc.Encrypt(pt)
}
