// Package noise summarizes the decryption noise measured on ciphertexts.
// It is a host-side diagnostic and is never used inside the guest.
package noise

import (
	"fmt"
	"math"

	"github.com/montanaflynn/stats"

	"VoteProof/crypto/bfv"
)

// Summary describes a set of noise measurements against a noise budget.
type Summary struct {
	Samples      int
	Mean         float64
	StdDev       float64
	Max          float64
	P95          float64
	Budget       uint64
	HeadroomBits float64
}

// Measure returns the measured noise of every ciphertext.
func Measure(dec *bfv.Decryptor, cts []*bfv.Ciphertext) ([]uint64, error) {
	out := make([]uint64, len(cts))
	for i, ct := range cts {
		n, err := dec.Noise(ct)
		if err != nil {
			return nil, fmt.Errorf("cannot Measure: ciphertext %d: %w", i, err)
		}
		out[i] = n
	}
	return out, nil
}

// Summarize computes statistics over samples.
func Summarize(samples []uint64, budget uint64) (Summary, error) {
	if len(samples) == 0 {
		return Summary{}, fmt.Errorf("cannot Summarize: no samples")
	}
	data := make(stats.Float64Data, len(samples))
	for i, s := range samples {
		data[i] = float64(s)
	}

	var err error
	sum := Summary{Samples: len(samples), Budget: budget}
	if sum.Mean, err = data.Mean(); err != nil {
		return Summary{}, fmt.Errorf("cannot Summarize: %w", err)
	}
	if sum.StdDev, err = data.StandardDeviation(); err != nil {
		return Summary{}, fmt.Errorf("cannot Summarize: %w", err)
	}
	if sum.Max, err = data.Max(); err != nil {
		return Summary{}, fmt.Errorf("cannot Summarize: %w", err)
	}
	if sum.P95, err = data.Percentile(95); err != nil {
		return Summary{}, fmt.Errorf("cannot Summarize: %w", err)
	}
	sum.HeadroomBits = math.Log2(float64(budget)) - math.Log2(math.Max(sum.Max, 1))
	return sum, nil
}

// Exhausted reports whether the largest sample exceeds the budget.
func (s Summary) Exhausted() bool {
	return s.Max > float64(s.Budget)
}

func (s Summary) String() string {
	return fmt.Sprintf("samples=%d mean=%.1f std=%.1f p95=%.1f max=%.0f budget=%d headroom=%.2f bits",
		s.Samples, s.Mean, s.StdDev, s.P95, s.Max, s.Budget, s.HeadroomBits)
}
