package party

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"VoteProof/crypto/bfv"
	"VoteProof/crypto/ring"
)

var candidates = []string{"alice", "bob", "carol"}

func newTestKeyHolder(t *testing.T) *KeyHolder {
	params, err := bfv.ParamsByName("PN5T65537Q58")
	require.NoError(t, err)
	kh, err := NewKeyHolder(params, ring.NewPRNG())
	require.NoError(t, err)
	return kh
}

func sumColumns(t *testing.T, params *bfv.Parameters, ballots [][]*bfv.Ciphertext) [][]byte {
	eval := bfv.NewEvaluator(params)
	out := make([][]byte, len(ballots[0]))
	for col := range out {
		column := make([]*bfv.Ciphertext, len(ballots))
		for i, b := range ballots {
			column[i] = b[col]
		}
		sum, err := eval.Sum(column...)
		require.NoError(t, err)
		out[col], err = sum.MarshalBinary()
		require.NoError(t, err)
	}
	return out
}

func TestPollMarshal(t *testing.T) {
	kh := newTestKeyHolder(t)
	poll := kh.NewPoll(candidates)

	data, err := poll.MarshalBinary()
	require.NoError(t, err)

	decoded := new(Poll)
	require.NoError(t, decoded.UnmarshalBinary(data))
	require.True(t, decoded.Params.Equal(poll.Params))
	require.True(t, decoded.PublicKey.Equal(poll.PublicKey))
	require.Equal(t, candidates, decoded.Candidates)
	require.Equal(t, kh.Epoch(), decoded.Epoch())

	require.Error(t, new(Poll).UnmarshalBinary(data[:len(data)-1]))
	require.Error(t, new(Poll).UnmarshalBinary(append(data, 0)))
	require.Error(t, new(Poll).UnmarshalBinary(data[:20]))
}

func TestVoteAndTally(t *testing.T) {
	kh := newTestKeyHolder(t)
	poll := kh.NewPoll(candidates)

	tickets := [][]int64{{1, 0, 0}, {0, 1, 0}, {1, 0, 0}, {0, 0, 1}, {0, 1, 0}, {1, 0, 0}, {0, 1, 0}}
	ballots := make([][]*bfv.Ciphertext, len(tickets))
	for i, ticket := range tickets {
		voter := NewParty(uint64(i), poll)
		rows, err := voter.EncryptBallot(ticket)
		require.NoError(t, err)
		ballots[i], err = UnmarshalBallot(poll, rows)
		require.NoError(t, err)
	}

	tallies, err := kh.DecryptTallies(sumColumns(t, poll.Params, ballots))
	require.NoError(t, err)
	require.Equal(t, []int64{3, 3, 1}, tallies)

	report, err := kh.NoiseReport(sumColumns(t, poll.Params, ballots))
	require.NoError(t, err)
	require.Equal(t, 3, report.Samples)
	require.False(t, report.Exhausted())
}

func TestPartyErrors(t *testing.T) {
	kh := newTestKeyHolder(t)
	poll := kh.NewPoll(candidates)
	voter := NewParty(1, poll)

	_, err := voter.Encrypt([]int64{1, 0})
	require.Error(t, err)

	_, err = voter.Encrypt([]int64{1, 0, 1 << 20})
	require.True(t, errors.Is(err, bfv.ErrPlaintextRange))

	other := newTestKeyHolder(t)
	rows, err := NewParty(2, other.NewPoll(candidates)).EncryptBallot([]int64{0, 0, 1})
	require.NoError(t, err)
	_, err = UnmarshalBallot(poll, rows)
	require.True(t, errors.Is(err, bfv.ErrKeyMismatch))

	_, err = UnmarshalBallot(poll, rows[:2])
	require.Error(t, err)

	rows[0] = rows[0][:10]
	_, err = UnmarshalBallot(other.NewPoll(candidates), rows)
	require.True(t, errors.Is(err, bfv.ErrMalformedCiphertext))
}

func TestChallenge(t *testing.T) {
	kh := newTestKeyHolder(t)

	ch, err := kh.CreateChallenge(10)
	require.NoError(t, err)
	require.Len(t, ch.Ballots, 10)

	var expected int64
	cts := make([]*bfv.Ciphertext, len(ch.Ballots))
	for i, b := range ch.Ballots {
		require.Contains(t, []int64{0, 1, 2}, ch.Plaintexts[i])
		expected += ch.Plaintexts[i]
		cts[i], err = bfv.UnmarshalCiphertext(kh.Params(), b)
		require.NoError(t, err)
	}
	require.Equal(t, expected, ch.Expected)

	sum, err := bfv.NewEvaluator(kh.Params()).Sum(cts...)
	require.NoError(t, err)
	encSum, err := sum.MarshalBinary()
	require.NoError(t, err)
	require.NoError(t, kh.VerifyChallenge(ch, encSum))

	// off by one
	ch.Expected++
	require.True(t, errors.Is(kh.VerifyChallenge(ch, encSum), ErrChallengeFailed))

	_, err = kh.CreateChallenge(0)
	require.Error(t, err)
}

func TestSecretKeyBytes(t *testing.T) {
	kh := newTestKeyHolder(t)
	data, err := kh.SecretKeyBytes()
	require.NoError(t, err)
	sk, err := bfv.UnmarshalSecretKey(kh.Params(), data)
	require.NoError(t, err)
	require.Equal(t, kh.Epoch(), sk.Epoch)

	kh.Close()
	require.Equal(t, make([]uint64, kh.Params().N()), kh.sk.Value.Coeffs)
}
