package bfv

import (
	"encoding/binary"

	"github.com/zeebo/blake3"

	"VoteProof/crypto/ring"
)

// SecretKey is the ternary polynomial s of a key epoch.
type SecretKey struct {
	Value *ring.Poly
	Epoch uint64
}

// PublicKey is the pair (-(a*s) + e, a). Its Epoch identifies every
// ciphertext encrypted under it.
type PublicKey struct {
	Value [2]*ring.Poly
	Epoch uint64
}

// NewSecretKey allocates an empty secret key.
func NewSecretKey(params *Parameters) *SecretKey {
	return &SecretKey{Value: params.RingQ().NewPoly()}
}

// NewPublicKey allocates an empty public key.
func NewPublicKey(params *Parameters) *PublicKey {
	return &PublicKey{Value: [2]*ring.Poly{params.RingQ().NewPoly(), params.RingQ().NewPoly()}}
}

// Wipe zeroes the secret coefficients.
func (sk *SecretKey) Wipe() {
	if sk != nil && sk.Value != nil {
		sk.Value.Zero()
	}
}

// CopyNew returns a deep copy of the public key.
func (pk *PublicKey) CopyNew() *PublicKey {
	return &PublicKey{Value: [2]*ring.Poly{pk.Value[0].CopyNew(), pk.Value[1].CopyNew()}, Epoch: pk.Epoch}
}

// Equal reports whether both keys have the same epoch and coefficients.
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return pk.Epoch == other.Epoch && pk.Value[0].Equal(other.Value[0]) && pk.Value[1].Equal(other.Value[1])
}

// epochOf derives the key epoch from the parameters and the public key coefficients.
func epochOf(params *Parameters, pk *PublicKey) uint64 {
	h := blake3.New()
	_, _ = h.Write([]byte(params.ID()))
	buf := make([]byte, 0, 16*params.N())
	buf = pk.Value[0].AppendBinary(buf)
	buf = pk.Value[1].AppendBinary(buf)
	_, _ = h.Write(buf)
	return binary.BigEndian.Uint64(h.Sum(nil)[:8])
}
