package ring

import (
	"encoding/binary"
	"fmt"
	"io"
	"math/bits"
)

const samplerBufferSize = 1024

// baseSampler buffers reads from the PRNG.
type baseSampler struct {
	prng io.Reader
	ring *Ring
	buf  [samplerBufferSize]byte
	ptr  int
}

func newBaseSampler(prng io.Reader, r *Ring) baseSampler {
	return baseSampler{prng: prng, ring: r, ptr: samplerBufferSize}
}

func (s *baseSampler) next(n int) ([]byte, error) {
	if s.ptr+n > samplerBufferSize {
		if _, err := io.ReadFull(s.prng, s.buf[:]); err != nil {
			return nil, err
		}
		s.ptr = 0
	}
	b := s.buf[s.ptr : s.ptr+n]
	s.ptr += n
	return b, nil
}

// UniformSampler samples coefficients uniformly in [0, Q).
type UniformSampler struct {
	baseSampler
}

// NewUniformSampler creates a UniformSampler reading from prng.
func NewUniformSampler(prng io.Reader, r *Ring) *UniformSampler {
	return &UniformSampler{newBaseSampler(prng, r)}
}

// Read samples a uniform polynomial on pol.
func (s *UniformSampler) Read(pol *Poly) error {
	s.ring.check("UniformSampler.Read", pol)
	q := s.ring.Modulus
	mask := uint64(1)<<bits.Len64(q-1) - 1
	for i := 0; i < s.ring.N; {
		b, err := s.next(8)
		if err != nil {
			return fmt.Errorf("cannot sample uniform polynomial: %w", err)
		}
		if v := binary.LittleEndian.Uint64(b) & mask; v < q {
			pol.Coeffs[i] = v
			i++
		}
	}
	return nil
}

// ReadNew samples a new uniform polynomial.
func (s *UniformSampler) ReadNew() (*Poly, error) {
	pol := s.ring.NewPoly()
	return pol, s.Read(pol)
}

// TernarySampler samples coefficients uniformly in {-1, 0, 1}.
type TernarySampler struct {
	baseSampler
}

// NewTernarySampler creates a TernarySampler reading from prng.
func NewTernarySampler(prng io.Reader, r *Ring) *TernarySampler {
	return &TernarySampler{newBaseSampler(prng, r)}
}

// Read samples a ternary polynomial on pol.
func (s *TernarySampler) Read(pol *Poly) error {
	s.ring.check("TernarySampler.Read", pol)
	q := s.ring.Modulus
	for i := 0; i < s.ring.N; {
		b, err := s.next(1)
		if err != nil {
			return fmt.Errorf("cannot sample ternary polynomial: %w", err)
		}
		// 255 = 3*85, rejecting it keeps the three classes equiprobable
		if b[0] == 255 {
			continue
		}
		switch b[0] % 3 {
		case 0:
			pol.Coeffs[i] = 0
		case 1:
			pol.Coeffs[i] = 1
		default:
			pol.Coeffs[i] = q - 1
		}
		i++
	}
	return nil
}

// ReadNew samples a new ternary polynomial.
func (s *TernarySampler) ReadNew() (*Poly, error) {
	pol := s.ring.NewPoly()
	return pol, s.Read(pol)
}

// MaxBinomialEta is the largest supported parameter of the centered binomial distribution.
const MaxBinomialEta = 32

// BinomialSampler samples coefficients from the centered binomial
// distribution of parameter Eta: the difference of the Hamming weights of two
// Eta-bit strings. Its support is [-Eta, Eta] and its standard deviation is
// sqrt(Eta/2). No floating point is involved.
type BinomialSampler struct {
	baseSampler
	eta int
}

// NewBinomialSampler creates a BinomialSampler with parameter eta in [1, 32].
func NewBinomialSampler(prng io.Reader, r *Ring, eta int) (*BinomialSampler, error) {
	if eta < 1 || eta > MaxBinomialEta {
		return nil, fmt.Errorf("cannot NewBinomialSampler: eta=%d not in [1, %d]", eta, MaxBinomialEta)
	}
	return &BinomialSampler{newBaseSampler(prng, r), eta}, nil
}

// Eta returns the parameter of the distribution.
func (s *BinomialSampler) Eta() int {
	return s.eta
}

// Read samples a small error polynomial on pol.
func (s *BinomialSampler) Read(pol *Poly) error {
	s.ring.check("BinomialSampler.Read", pol)
	mask := uint64(1)<<uint(s.eta) - 1
	for i := 0; i < s.ring.N; i++ {
		b, err := s.next(8)
		if err != nil {
			return fmt.Errorf("cannot sample binomial polynomial: %w", err)
		}
		x := binary.LittleEndian.Uint64(b)
		e := bits.OnesCount64(x&mask) - bits.OnesCount64((x>>uint(s.eta))&mask)
		pol.Coeffs[i] = s.ring.FromSigned(int64(e))
	}
	return nil
}

// ReadNew samples a new error polynomial.
func (s *BinomialSampler) ReadNew() (*Poly, error) {
	pol := s.ring.NewPoly()
	return pol, s.Read(pol)
}
