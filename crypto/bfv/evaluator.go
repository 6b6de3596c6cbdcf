package bfv

import (
	"fmt"
	"math"
)

// Evaluator performs homomorphic additions. It holds no mutable state and is
// safe for concurrent use.
type Evaluator struct {
	params *Parameters
}

// NewEvaluator creates a new Evaluator.
func NewEvaluator(params *Parameters) *Evaluator {
	return &Evaluator{params: params}
}

// Add evaluates ctOut = ct0 + ct1. Both operands must belong to the same key
// epoch, otherwise ErrKeyMismatch is returned and ctOut is left untouched.
// ctOut may alias an operand.
func (eval *Evaluator) Add(ct0, ct1, ctOut *Ciphertext) error {
	if ct0.Epoch != ct1.Epoch {
		return fmt.Errorf("cannot Add: epochs %016x and %016x: %w", ct0.Epoch, ct1.Epoch, ErrKeyMismatch)
	}
	ringQ := eval.params.RingQ()
	ringQ.Add(ct0.Value[0], ct1.Value[0], ctOut.Value[0])
	ringQ.Add(ct0.Value[1], ct1.Value[1], ctOut.Value[1])
	ctOut.Epoch = ct0.Epoch
	ctOut.NoiseBound = addSaturate(ct0.NoiseBound, ct1.NoiseBound)
	return nil
}

// AddNew evaluates ct0 + ct1 on a new ciphertext.
func (eval *Evaluator) AddNew(ct0, ct1 *Ciphertext) (*Ciphertext, error) {
	ctOut := NewCiphertext(eval.params)
	if err := eval.Add(ct0, ct1, ctOut); err != nil {
		return nil, err
	}
	return ctOut, nil
}

// Sum folds the ciphertexts with Add. It fails on an empty input.
func (eval *Evaluator) Sum(cts ...*Ciphertext) (*Ciphertext, error) {
	if len(cts) == 0 {
		return nil, fmt.Errorf("cannot Sum: no ciphertext")
	}
	acc := cts[0].CopyNew()
	for i, ct := range cts[1:] {
		if err := eval.Add(acc, ct, acc); err != nil {
			return nil, fmt.Errorf("cannot Sum: operand %d: %w", i+1, err)
		}
	}
	return acc, nil
}

func addSaturate(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
