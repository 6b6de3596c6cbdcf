package vote

import (
	"errors"
	"fmt"
	"sort"
	"time"

	util "github.com/ipfs/go-ipfs-util"
	"golang.org/x/exp/maps"

	"VoteProof/prover"
)

// ErrDuplicateBallot is returned when a voter casts a second ballot.
var ErrDuplicateBallot = errors.New("voter already cast a ballot")

// Election is the record kept by the organizer: who votes, the encrypted
// ballots collected so far and the proven result.
type Election struct {
	Title      string    // election title
	From       string    // organizer ID
	StartTime  time.Time // creation time
	Deadline   time.Time
	Brief      string
	Topic      string   // hash(Title+StartTime+From), identifies the election
	Candidates []string // one ciphertext column each
	Voters     []string // voter addresses, in ballot order
	Ballots    map[string][][]byte
	Result     map[string]int64
	Total      int64
}

// NewElection creates an election started now by from.
func NewElection(from, title string, candidates []string) *Election {
	t, _ := time.Parse("2006-01-02 15:04:05", time.Now().UTC().Format("2006-01-02 15:04:05"))
	e := &Election{
		Title:      title,
		From:       from,
		StartTime:  t,
		Candidates: append([]string(nil), candidates...),
		Ballots:    make(map[string][][]byte),
	}
	e.SetTopic()
	return e
}

// SetTopic derives the topic of the election.
func (e *Election) SetTopic() {
	// Topic=hash(Title+StartTime+From)
	data := []byte(e.Title + e.StartTime.String() + e.From)
	e.Topic = "P2P" + util.Hash(data).B58String()
}

// Closed reports whether the deadline has passed at now.
func (e *Election) Closed(now time.Time) bool {
	return !e.Deadline.IsZero() && now.After(e.Deadline)
}

// AddBallot records the serialized ballot of voter.
func (e *Election) AddBallot(voter string, rows [][]byte) error {
	if _, ok := e.Ballots[voter]; ok {
		return fmt.Errorf("cannot AddBallot: %s: %w", voter, ErrDuplicateBallot)
	}
	if len(rows) != len(e.Candidates) {
		return fmt.Errorf("cannot AddBallot: %d columns, %d candidates", len(rows), len(e.Candidates))
	}
	e.Ballots[voter] = rows
	e.Voters = append(e.Voters, voter)
	return nil
}

// BallotRows returns the ballots in the order they were cast.
func (e *Election) BallotRows() [][][]byte {
	out := make([][][]byte, len(e.Voters))
	for i, v := range e.Voters {
		out[i] = e.Ballots[v]
	}
	return out
}

// ApplyJournal records the decrypted tallies committed in journal.
func (e *Election) ApplyJournal(journal *prover.Journal) error {
	if journal.Tallies == nil {
		return fmt.Errorf("cannot ApplyJournal: journal of a %s run carries no plaintext tally", journal.Mode)
	}
	return e.ApplyTallies(journal.Tallies, int(journal.BallotCount))
}

// ApplyTallies maps tallies to candidates. Each tally must be non-negative
// and their total cannot exceed the number of ballots.
func (e *Election) ApplyTallies(tallies []int64, ballots int) error {
	if len(tallies) != len(e.Candidates) {
		return fmt.Errorf("cannot ApplyTallies: %d tallies for %d candidates", len(tallies), len(e.Candidates))
	}
	var total int64
	for i, v := range tallies {
		if v < 0 {
			return fmt.Errorf("cannot ApplyTallies: negative tally %d for %s", v, e.Candidates[i])
		}
		total += v
	}
	if total > int64(ballots) {
		return fmt.Errorf("cannot ApplyTallies: %d votes from %d ballots", total, ballots)
	}
	e.Result = make(map[string]int64, len(tallies))
	for i, c := range e.Candidates {
		e.Result[c] = tallies[i]
	}
	e.Total = total
	return nil
}

// Winners returns the candidates with the most votes, sorted by name.
func (e *Election) Winners() []string {
	if len(e.Result) == 0 {
		return nil
	}
	names := maps.Keys(e.Result)
	sort.Strings(names)
	sort.SliceStable(names, func(i, j int) bool {
		return e.Result[names[i]] > e.Result[names[j]]
	})
	best := e.Result[names[0]]
	n := 1
	for n < len(names) && e.Result[names[n]] == best {
		n++
	}
	return names[:n]
}
