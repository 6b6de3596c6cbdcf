package bfv

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/bits"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"VoteProof/crypto/ring"
)

func testString(opname string, params *Parameters) string {
	return fmt.Sprintf("%s/logN=%d/T=%d/logQ=%d", opname, params.LogN(), params.T(), bits.Len64(params.Q())-1)
}

type testContext struct {
	params *Parameters
	sk     *SecretKey
	pk     *PublicKey
	enc    *Encryptor
	dec    *Decryptor
	eval   *Evaluator
}

func genTestContext(t *testing.T, params *Parameters) *testContext {
	sk, pk, err := NewKeyGenerator(params).GenKeyPair()
	require.NoError(t, err)
	return &testContext{
		params: params,
		sk:     sk,
		pk:     pk,
		enc:    NewEncryptor(params, pk),
		dec:    NewDecryptor(params, sk),
		eval:   NewEvaluator(params),
	}
}

func (tc *testContext) encrypt(t *testing.T, v int64) *Ciphertext {
	ct, err := tc.enc.EncryptInt(v)
	require.NoError(t, err)
	return ct
}

func TestBFV(t *testing.T) {
	for _, lit := range DefaultParams {
		params, err := NewParametersFromLiteral(lit)
		require.NoError(t, err)
		tc := genTestContext(t, params)

		testEncryptDecrypt(t, tc)
		testAdd(t, tc)
		testKeyMismatch(t, tc)
		testMarshal(t, tc)
	}
}

func testEncryptDecrypt(t *testing.T, tc *testContext) {
	lo, hi := tc.params.PlaintextRange()

	t.Run(testString("Encrypt/Decrypt", tc.params), func(t *testing.T) {
		for _, v := range []int64{0, 1, -1, 5, lo, hi} {
			ct := tc.encrypt(t, v)
			pt, err := tc.dec.Decrypt(ct)
			require.NoError(t, err)
			require.Equal(t, v, pt.Int64())
		}
	})

	t.Run(testString("Encrypt/Randomized", tc.params), func(t *testing.T) {
		ct0, ct1 := tc.encrypt(t, 5), tc.encrypt(t, 5)
		require.False(t, ct0.Value[0].Equal(ct1.Value[0]))
		require.False(t, ct0.Value[1].Equal(ct1.Value[1]))
		for _, ct := range []*Ciphertext{ct0, ct1} {
			pt, err := tc.dec.Decrypt(ct)
			require.NoError(t, err)
			require.Equal(t, int64(5), pt.Int64())
		}
	})

	t.Run(testString("Encrypt/Range", tc.params), func(t *testing.T) {
		_, err := tc.enc.EncryptInt(hi + 1)
		require.True(t, errors.Is(err, ErrPlaintextRange))
		_, err = tc.enc.EncryptInt(lo - 1)
		require.True(t, errors.Is(err, ErrPlaintextRange))
	})

	t.Run(testString("Encrypt/FreshNoise", tc.params), func(t *testing.T) {
		ct := tc.encrypt(t, 3)
		require.Equal(t, tc.params.FreshNoiseBound(), ct.NoiseBound)
		require.Equal(t, tc.pk.Epoch, ct.Epoch)
		noise, err := tc.dec.Noise(ct)
		require.NoError(t, err)
		require.LessOrEqual(t, noise, ct.NoiseBound+tc.params.T())
	})
}

func testAdd(t *testing.T, tc *testContext) {
	lo, hi := tc.params.PlaintextRange()

	t.Run(testString("Evaluator/Add", tc.params), func(t *testing.T) {
		cases := [][2]int64{{5, 3}, {42, 13}, {0, 9}, {100, 200}, {-7, 3}}
		for _, c := range cases {
			if c[0]+c[1] > hi || c[0]+c[1] < lo {
				continue
			}
			sum, err := tc.eval.AddNew(tc.encrypt(t, c[0]), tc.encrypt(t, c[1]))
			require.NoError(t, err)
			pt, err := tc.dec.Decrypt(sum)
			require.NoError(t, err)
			require.Equal(t, c[0]+c[1], pt.Int64())
			require.Equal(t, 2*tc.params.FreshNoiseBound(), sum.NoiseBound)
		}
	})

	t.Run(testString("Evaluator/Wrap", tc.params), func(t *testing.T) {
		sum, err := tc.eval.AddNew(tc.encrypt(t, hi), tc.encrypt(t, 1))
		require.NoError(t, err)
		pt, err := tc.dec.Decrypt(sum)
		require.NoError(t, err)
		require.Equal(t, lo, pt.Int64())
	})

	t.Run(testString("Evaluator/Sum", tc.params), func(t *testing.T) {
		cts := []*Ciphertext{tc.encrypt(t, 1), tc.encrypt(t, 0), tc.encrypt(t, 1), tc.encrypt(t, 1)}
		sum, err := tc.eval.Sum(cts...)
		require.NoError(t, err)
		pt, err := tc.dec.Decrypt(sum)
		require.NoError(t, err)
		require.Equal(t, int64(3), pt.Int64())

		_, err = tc.eval.Sum()
		require.Error(t, err)
	})
}

func testKeyMismatch(t *testing.T, tc *testContext) {
	t.Run(testString("KeyMismatch", tc.params), func(t *testing.T) {
		other := genTestContext(t, tc.params)
		require.NotEqual(t, tc.pk.Epoch, other.pk.Epoch)

		ct0, ct1 := tc.encrypt(t, 1), other.encrypt(t, 1)
		out := NewCiphertext(tc.params)
		err := tc.eval.Add(ct0, ct1, out)
		require.True(t, errors.Is(err, ErrKeyMismatch))
		require.True(t, cmp.Equal(make([]uint64, tc.params.N()), out.Value[0].Coeffs))

		_, err = tc.eval.Sum(ct0, ct0, ct1)
		require.True(t, errors.Is(err, ErrKeyMismatch))

		_, err = tc.dec.Decrypt(ct1)
		require.True(t, errors.Is(err, ErrKeyMismatch))
		_, err = tc.dec.Noise(ct1)
		require.True(t, errors.Is(err, ErrKeyMismatch))
	})
}

func testMarshal(t *testing.T, tc *testContext) {
	t.Run(testString("Marshal/Ciphertext", tc.params), func(t *testing.T) {
		ct := tc.encrypt(t, 7)
		data, err := ct.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, data, CiphertextSize(tc.params))

		ct2, err := UnmarshalCiphertext(tc.params, data)
		require.NoError(t, err)
		require.True(t, cmp.Equal(ct, ct2))

		pt, err := tc.dec.Decrypt(ct2)
		require.NoError(t, err)
		require.Equal(t, int64(7), pt.Int64())
	})

	t.Run(testString("Marshal/CiphertextRandom", tc.params), func(t *testing.T) {
		ct, err := NewCiphertextRandom(ring.NewPRNG(), tc.params, tc.pk.Epoch)
		require.NoError(t, err)
		data, err := ct.MarshalBinary()
		require.NoError(t, err)
		ct2, err := UnmarshalCiphertext(tc.params, data)
		require.NoError(t, err)
		require.True(t, ct.Equal(ct2))
	})

	t.Run(testString("Marshal/Keys", tc.params), func(t *testing.T) {
		data, err := tc.pk.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, data, PublicKeySize(tc.params))
		pk, err := UnmarshalPublicKey(tc.params, data)
		require.NoError(t, err)
		require.True(t, pk.Equal(tc.pk))

		data, err = tc.sk.MarshalBinary()
		require.NoError(t, err)
		require.Len(t, data, SecretKeySize(tc.params))
		sk, err := UnmarshalSecretKey(tc.params, data)
		require.NoError(t, err)
		require.True(t, cmp.Equal(tc.sk, sk))
	})
}

func TestParameters(t *testing.T) {
	t.Run("Derived", func(t *testing.T) {
		params, err := ParamsByName("PN5T257Q24")
		require.NoError(t, err)
		require.Equal(t, 32, params.N())
		require.Equal(t, uint64(16777216/257), params.Delta())
		require.Equal(t, uint64(16063), params.NoiseBudget())
		require.Equal(t, uint64(260), params.FreshNoiseBound())
		require.Equal(t, 60, params.MaxAdditions())
		require.Equal(t, "BFV/N=32/T=257/Q=16777216/eta=4", params.ID())

		lo, hi := params.PlaintextRange()
		require.Equal(t, int64(-128), lo)
		require.Equal(t, int64(128), hi)
	})

	t.Run("EvenT", func(t *testing.T) {
		params, err := ParamsByName("PN3T1024Q40")
		require.NoError(t, err)
		lo, hi := params.PlaintextRange()
		require.Equal(t, int64(-511), lo)
		require.Equal(t, int64(512), hi)
	})

	t.Run("Invalid", func(t *testing.T) {
		for _, lit := range []ParametersLiteral{
			{LogN: 0, T: 257, Q: 1 << 24, NoiseEta: 4},
			{LogN: 11, T: 257, Q: 1 << 24, NoiseEta: 4},
			{LogN: 5, T: 1, Q: 1 << 24, NoiseEta: 4},
			{LogN: 5, T: 257, Q: 1 << 63, NoiseEta: 4},
			{LogN: 5, T: 4096, Q: 1 << 24, NoiseEta: 4},
			{LogN: 5, T: 257, Q: 1 << 24, NoiseEta: 0},
			{LogN: 5, T: 257, Q: 1 << 24, NoiseEta: 33},
			{LogN: 10, T: 257, Q: 1 << 20, NoiseEta: 32},
		} {
			_, err := NewParametersFromLiteral(lit)
			require.Error(t, err, "%+v", lit)
		}
		_, err := ParamsByName("PN15QP880")
		require.Error(t, err)
	})

	t.Run("Equal", func(t *testing.T) {
		p0, err := NewParametersFromLiteral(DefaultParams[PN5T65537Q58])
		require.NoError(t, err)
		p1, err := ParamsByName("PN5T65537Q58")
		require.NoError(t, err)
		require.True(t, p0.Equal(p1))
		require.Equal(t, DefaultParams[PN5T65537Q58], p1.Literal())
	})
}

func TestNoiseBudget(t *testing.T) {
	params, err := ParamsByName("PN5T257Q24")
	require.NoError(t, err)
	tc := genTestContext(t, params)

	limit := params.MaxAdditions() + 1
	cts := make([]*Ciphertext, limit+1)
	for i := range cts {
		cts[i] = tc.encrypt(t, 1)
	}

	sum, err := tc.eval.Sum(cts[:limit]...)
	require.NoError(t, err)
	pt, err := tc.dec.Decrypt(sum)
	require.NoError(t, err)
	require.Equal(t, int64(limit), pt.Int64())

	require.NoError(t, tc.eval.Add(sum, cts[limit], sum))
	require.Greater(t, sum.NoiseBound, params.NoiseBudget())
	_, err = tc.dec.Decrypt(sum)
	require.True(t, errors.Is(err, ErrNoiseOverflow))
}

func TestDecryptDetectsCorruption(t *testing.T) {
	params, err := ParamsByName("PN5T65537Q58")
	require.NoError(t, err)
	tc := genTestContext(t, params)
	ringQ := params.RingQ()

	t.Run("HalfStep", func(t *testing.T) {
		ct := tc.encrypt(t, 0)
		ct.Value[0].Coeffs[1] = (ct.Value[0].Coeffs[1] + params.Q()/2) % params.Q()
		_, err := tc.dec.Decrypt(ct)
		require.True(t, errors.Is(err, ErrNoiseOverflow))
	})

	t.Run("NonConstant", func(t *testing.T) {
		ct := tc.encrypt(t, 0)
		shift := ringQ.NewPoly()
		shift.Coeffs[2] = params.Delta()
		ringQ.Add(ct.Value[0], shift, ct.Value[0])
		_, err := tc.dec.Decrypt(ct)
		require.True(t, errors.Is(err, ErrNoiseOverflow))
	})
}

func TestKeyGeneration(t *testing.T) {
	params, err := ParamsByName("PN3T1024Q40")
	require.NoError(t, err)

	t.Run("Deterministic", func(t *testing.T) {
		var pks [2]*PublicKey
		for i := range pks {
			prng, err := ring.NewKeyedPRNG([]byte("epoch-1"))
			require.NoError(t, err)
			_, pks[i], err = NewKeyGeneratorWithPRNG(params, prng).GenKeyPair()
			require.NoError(t, err)
		}
		require.True(t, pks[0].Equal(pks[1]))
	})

	t.Run("Epoch", func(t *testing.T) {
		sk, pk, err := NewKeyGenerator(params).GenKeyPair()
		require.NoError(t, err)
		require.Equal(t, pk.Epoch, sk.Epoch)
		require.Equal(t, epochOf(params, pk), pk.Epoch)
	})

	t.Run("Entropy", func(t *testing.T) {
		_, _, err := NewKeyGeneratorWithPRNG(params, failingReader{}).GenKeyPair()
		require.True(t, errors.Is(err, ErrKeyGeneration))
	})

	t.Run("Wipe", func(t *testing.T) {
		sk, _, err := NewKeyGenerator(params).GenKeyPair()
		require.NoError(t, err)
		sk.Wipe()
		require.True(t, cmp.Equal(make([]uint64, params.N()), sk.Value.Coeffs))
	})
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("no entropy")
}

func TestUnmarshalMalformed(t *testing.T) {
	params, err := ParamsByName("PN5T65537Q58")
	require.NoError(t, err)
	tc := genTestContext(t, params)

	data, err := tc.encrypt(t, 1).MarshalBinary()
	require.NoError(t, err)

	corrupt := func(f func(b []byte) []byte) []byte {
		b := make([]byte, len(data))
		copy(b, data)
		return f(b)
	}

	t.Run("Truncated", func(t *testing.T) {
		for n := 0; n < len(data); n++ {
			_, err := UnmarshalCiphertext(params, data[:n])
			require.True(t, errors.Is(err, ErrMalformedCiphertext), "prefix %d", n)
		}
	})

	cases := map[string][]byte{
		"OverLength": corrupt(func(b []byte) []byte { return append(b, 0) }),
		"Tag":        corrupt(func(b []byte) []byte { b[0] = tagPublicKey; return b }),
		"Version":    corrupt(func(b []byte) []byte { b[1] = 2; return b }),
		"NoiseBound": corrupt(func(b []byte) []byte {
			binary.BigEndian.PutUint64(b[10:18], 1)
			return b
		}),
		"HugeLength": corrupt(func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[18:22], 0xFFFFFFFF)
			return b
		}),
		"ShortLength": corrupt(func(b []byte) []byte {
			binary.BigEndian.PutUint32(b[18:22], uint32(params.N()-1))
			return b
		}),
		"Unreduced": corrupt(func(b []byte) []byte {
			binary.BigEndian.PutUint64(b[22:30], params.Q())
			return b
		}),
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := UnmarshalCiphertext(params, b)
			require.True(t, errors.Is(err, ErrMalformedCiphertext))
		})
	}

	t.Run("OtherRing", func(t *testing.T) {
		small, err := ParamsByName("PN3T1024Q40")
		require.NoError(t, err)
		_, err = UnmarshalCiphertext(small, data)
		require.True(t, errors.Is(err, ErrMalformedCiphertext))
	})

	t.Run("PublicKeyEpoch", func(t *testing.T) {
		pkData, err := tc.pk.MarshalBinary()
		require.NoError(t, err)
		pkData[9] ^= 1
		_, err = UnmarshalPublicKey(params, pkData)
		require.True(t, errors.Is(err, ErrMalformedCiphertext))
	})

	t.Run("SecretKeyNotTernary", func(t *testing.T) {
		skData, err := tc.sk.MarshalBinary()
		require.NoError(t, err)
		binary.BigEndian.PutUint64(skData[headerSize+4:headerSize+12], 2)
		_, err = UnmarshalSecretKey(params, skData)
		require.True(t, errors.Is(err, ErrMalformedCiphertext))
	})
}
