package ring

import (
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// PRNG is a source of random bytes for the samplers.
type PRNG interface {
	io.Reader
}

type systemPRNG struct{}

// NewPRNG returns a PRNG backed by the operating system CSPRNG.
func NewPRNG() PRNG {
	return systemPRNG{}
}

func (systemPRNG) Read(p []byte) (int, error) {
	return rand.Read(p)
}

// KeyedPRNG deterministically expands a key into a byte stream with the
// blake2b XOF. Two KeyedPRNG built from the same key produce the same stream.
// It must not be shared between goroutines.
type KeyedPRNG struct {
	key []byte
	xof blake2b.XOF
}

// NewKeyedPRNG creates a KeyedPRNG from a key of at most 64 bytes.
func NewKeyedPRNG(key []byte) (*KeyedPRNG, error) {
	xof, err := blake2b.NewXOF(blake2b.OutputLengthUnknown, key)
	if err != nil {
		return nil, fmt.Errorf("cannot NewKeyedPRNG: %w", err)
	}
	prng := &KeyedPRNG{key: make([]byte, len(key)), xof: xof}
	copy(prng.key, key)
	return prng, nil
}

// Key returns a copy of the key used to seed the PRNG.
func (prng *KeyedPRNG) Key() []byte {
	key := make([]byte, len(prng.key))
	copy(key, prng.key)
	return key
}

// Read fills sum with the next bytes of the stream.
func (prng *KeyedPRNG) Read(sum []byte) (n int, err error) {
	return prng.xof.Read(sum)
}

// Reset rewinds the stream to its beginning.
func (prng *KeyedPRNG) Reset() {
	prng.xof.Reset()
}
