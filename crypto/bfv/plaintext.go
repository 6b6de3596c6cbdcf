package bfv

import "fmt"

// PlaintextValue is a signed integer in the plaintext range of a parameter set.
type PlaintextValue struct {
	value   int64
	residue uint64
}

// NewPlaintextValue checks that v lies in params.PlaintextRange().
func NewPlaintextValue(params *Parameters, v int64) (PlaintextValue, error) {
	lo, hi := params.PlaintextRange()
	if v < lo || v > hi {
		return PlaintextValue{}, fmt.Errorf("cannot NewPlaintextValue: %d not in [%d, %d]: %w", v, lo, hi, ErrPlaintextRange)
	}
	return PlaintextValue{value: v, residue: residue(v, params.T())}, nil
}

// plaintextFromResidue maps m in [0, T) to its signed representative.
func plaintextFromResidue(params *Parameters, m uint64) PlaintextValue {
	_, hi := params.PlaintextRange()
	v := int64(m)
	if v > hi {
		v -= int64(params.T())
	}
	return PlaintextValue{value: v, residue: m}
}

// Int64 returns the signed value.
func (pt PlaintextValue) Int64() int64 {
	return pt.value
}

// Residue returns the value reduced in [0, T).
func (pt PlaintextValue) Residue() uint64 {
	return pt.residue
}

func residue(v int64, t uint64) uint64 {
	if v >= 0 {
		return uint64(v) % t
	}
	m := uint64(-v) % t
	if m == 0 {
		return 0
	}
	return t - m
}
