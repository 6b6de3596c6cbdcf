package bfv

import "errors"

var (
	// ErrPlaintextRange is returned when a plaintext does not fit the plaintext modulus.
	ErrPlaintextRange = errors.New("plaintext out of range")
	// ErrMalformedCiphertext is returned by the codec on any size or format violation.
	ErrMalformedCiphertext = errors.New("malformed ciphertext")
	// ErrKeyMismatch is returned when objects from different key epochs are combined.
	ErrKeyMismatch = errors.New("key epoch mismatch")
	// ErrNoiseOverflow is returned when a ciphertext no longer decrypts cleanly.
	ErrNoiseOverflow = errors.New("noise budget exceeded")
	// ErrKeyGeneration is returned when the randomness source fails during key generation.
	ErrKeyGeneration = errors.New("key generation failed")
)
