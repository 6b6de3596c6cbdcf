package vote

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"VoteProof/prover"
)

func TestEncodeChoice(t *testing.T) {
	ticket, err := EncodeChoice(1, 3)
	require.NoError(t, err)
	require.Equal(t, []int64{0, 1, 0}, ticket)

	_, err = EncodeChoice(3, 3)
	require.Error(t, err)
	_, err = EncodeChoice(-1, 3)
	require.Error(t, err)
	_, err = EncodeChoice(0, 0)
	require.Error(t, err)
}

func TestVoterAddress(t *testing.T) {
	// keccak256("") = c5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470
	require.Equal(t, "0xdcc703c0e500b653ca82273b7bfad8045d85a470", VoterAddress(""))

	a := VoterAddress("alice")
	require.True(t, strings.HasPrefix(a, "0x"))
	require.Len(t, a, 42)
	require.Equal(t, a, VoterAddress("alice"))
	require.NotEqual(t, a, VoterAddress("bob"))
}

func TestElection(t *testing.T) {
	e := NewElection("organizer", "board", []string{"yes", "no", "abstain"})
	require.True(t, strings.HasPrefix(e.Topic, "P2P"))
	topic := e.Topic
	e.SetTopic()
	require.Equal(t, topic, e.Topic)

	require.False(t, e.Closed(time.Now()))
	e.Deadline = time.Now().Add(-time.Minute)
	require.True(t, e.Closed(time.Now()))

	row := [][]byte{{1}, {2}, {3}}
	require.NoError(t, e.AddBallot("0xa", row))
	require.NoError(t, e.AddBallot("0xb", row))
	require.True(t, errors.Is(e.AddBallot("0xa", row), ErrDuplicateBallot))
	require.Error(t, e.AddBallot("0xc", row[:2]))
	require.Len(t, e.BallotRows(), 2)
	require.Equal(t, []string{"0xa", "0xb"}, e.Voters)

	require.Error(t, e.ApplyTallies([]int64{1, 1}, 2))
	require.Error(t, e.ApplyTallies([]int64{2, 1, 0}, 2))
	require.Error(t, e.ApplyTallies([]int64{-1, 1, 0}, 2))

	require.NoError(t, e.ApplyJournal(&prover.Journal{Tallies: []int64{1, 1, 0}, BallotCount: 2}))
	require.Equal(t, map[string]int64{"yes": 1, "no": 1, "abstain": 0}, e.Result)
	require.Equal(t, int64(2), e.Total)
	require.Equal(t, []string{"no", "yes"}, e.Winners())

	require.Error(t, e.ApplyJournal(&prover.Journal{Mode: prover.ModeEncryptedTally, EncryptedTallies: [][]byte{{1}}}))
}

func TestWinners(t *testing.T) {
	e := NewElection("o", "t", []string{"alice", "bob", "carol"})
	require.Nil(t, e.Winners())
	require.NoError(t, e.ApplyTallies([]int64{3, 3, 1}, 7))
	require.Equal(t, []string{"alice", "bob"}, e.Winners())
	require.NoError(t, e.ApplyTallies([]int64{1, 0, 4}, 7))
	require.Equal(t, []string{"carol"}, e.Winners())
}
