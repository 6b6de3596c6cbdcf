package party

import (
	"errors"
	"fmt"
	"io"

	"VoteProof/crypto/bfv"
	"VoteProof/crypto/noise"
	"VoteProof/crypto/ring"
	"VoteProof/log"
)

// ErrChallengeFailed is returned when a challenge result does not decrypt to the expected sum.
var ErrChallengeFailed = errors.New("challenge verification failed")

// KeyHolder is the single owner of the secret key of an epoch. It hands out
// polls to voters and decrypts tallies outside of any untrusted executor.
type KeyHolder struct {
	params *bfv.Parameters
	prng   ring.PRNG
	sk     *bfv.SecretKey
	pk     *bfv.PublicKey
	enc    *bfv.Encryptor
	dec    *bfv.Decryptor
}

// NewKeyHolder generates the key pair of a new epoch from prng.
func NewKeyHolder(params *bfv.Parameters, prng ring.PRNG) (*KeyHolder, error) {
	sk, pk, err := bfv.NewKeyGeneratorWithPRNG(params, prng).GenKeyPair()
	if err != nil {
		return nil, fmt.Errorf("cannot NewKeyHolder: %w", err)
	}
	log.Logger.Infof("key holder opened epoch %016x with %s", pk.Epoch, params.ID())
	return &KeyHolder{
		params: params,
		prng:   prng,
		sk:     sk,
		pk:     pk,
		enc:    bfv.NewEncryptorWithPRNG(params, pk, prng),
		dec:    bfv.NewDecryptor(params, sk),
	}, nil
}

// Params returns the parameters of the epoch.
func (kh *KeyHolder) Params() *bfv.Parameters {
	return kh.params
}

// PublicKey returns the public key of the epoch.
func (kh *KeyHolder) PublicKey() *bfv.PublicKey {
	return kh.pk
}

// Epoch returns the key epoch.
func (kh *KeyHolder) Epoch() uint64 {
	return kh.pk.Epoch
}

// NewPoll returns a poll over candidates under the epoch key.
func (kh *KeyHolder) NewPoll(candidates []string) *Poll {
	return NewPoll(kh.params, kh.pk, candidates)
}

// SecretKeyBytes serializes the secret key for a run whose executor is
// trusted with it. Whoever runs that computation sees the key.
func (kh *KeyHolder) SecretKeyBytes() ([]byte, error) {
	data, err := kh.sk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("cannot SecretKeyBytes: %w", err)
	}
	log.Logger.Warnf("secret key of epoch %016x released to an executor", kh.pk.Epoch)
	return data, nil
}

// DecryptTallies decrypts the encrypted column sums committed by a run.
func (kh *KeyHolder) DecryptTallies(encTallies [][]byte) ([]int64, error) {
	out := make([]int64, len(encTallies))
	for i, data := range encTallies {
		ct, err := bfv.UnmarshalCiphertext(kh.params, data)
		if err != nil {
			return nil, fmt.Errorf("cannot DecryptTallies: column %d: %w", i, err)
		}
		pt, err := kh.dec.Decrypt(ct)
		if err != nil {
			return nil, fmt.Errorf("cannot DecryptTallies: column %d: %w", i, err)
		}
		out[i] = pt.Int64()
	}
	return out, nil
}

// NoiseReport summarizes the measured noise of serialized ciphertexts.
func (kh *KeyHolder) NoiseReport(encTallies [][]byte) (noise.Summary, error) {
	cts := make([]*bfv.Ciphertext, len(encTallies))
	for i, data := range encTallies {
		ct, err := bfv.UnmarshalCiphertext(kh.params, data)
		if err != nil {
			return noise.Summary{}, fmt.Errorf("cannot NoiseReport: column %d: %w", i, err)
		}
		cts[i] = ct
	}
	samples, err := noise.Measure(kh.dec, cts)
	if err != nil {
		return noise.Summary{}, fmt.Errorf("cannot NoiseReport: %w", err)
	}
	return noise.Summarize(samples, kh.params.NoiseBudget())
}

// Challenge is a batch of encryptions of known plaintexts used to check an
// executor: the encrypted sum it returns must decrypt to Expected.
type Challenge struct {
	Plaintexts []int64
	Ballots    [][]byte
	Expected   int64
}

// CreateChallenge encrypts n random plaintexts in {0, 1, 2}.
func (kh *KeyHolder) CreateChallenge(n int) (*Challenge, error) {
	if n < 1 {
		return nil, fmt.Errorf("cannot CreateChallenge: n=%d", n)
	}
	ch := &Challenge{Plaintexts: make([]int64, n), Ballots: make([][]byte, n)}
	buf := make([]byte, 1)
	for i := 0; i < n; {
		if _, err := io.ReadFull(kh.prng, buf); err != nil {
			return nil, fmt.Errorf("cannot CreateChallenge: %w", err)
		}
		// 255 = 3*85
		if buf[0] == 255 {
			continue
		}
		v := int64(buf[0] % 3)
		ct, err := kh.enc.EncryptInt(v)
		if err != nil {
			return nil, fmt.Errorf("cannot CreateChallenge: %w", err)
		}
		if ch.Ballots[i], err = ct.MarshalBinary(); err != nil {
			return nil, fmt.Errorf("cannot CreateChallenge: %w", err)
		}
		ch.Plaintexts[i] = v
		ch.Expected += v
		i++
	}
	log.Logger.Debugf("challenge of %d ciphertexts created, expected sum %d", n, ch.Expected)
	return ch, nil
}

// VerifyChallenge decrypts the encrypted sum returned for ch and compares
// it with the expected plaintext sum.
func (kh *KeyHolder) VerifyChallenge(ch *Challenge, encSum []byte) error {
	got, err := kh.DecryptTallies([][]byte{encSum})
	if err != nil {
		return fmt.Errorf("cannot VerifyChallenge: %w", err)
	}
	if got[0] != ch.Expected {
		log.Logger.Warnf("challenge mismatch: expected %d, decrypted %d", ch.Expected, got[0])
		return fmt.Errorf("cannot VerifyChallenge: expected %d, decrypted %d: %w", ch.Expected, got[0], ErrChallengeFailed)
	}
	return nil
}

// Close wipes the secret key. The KeyHolder cannot decrypt afterwards.
func (kh *KeyHolder) Close() {
	kh.sk.Wipe()
}
