package main

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/exp/maps"

	"VoteProof/crypto/party"
	"VoteProof/log"
	"VoteProof/message"
	"VoteProof/prover"
	"VoteProof/vote"
)

var errUnknownElection = errors.New("unknown election")

// audit is what an auditor knows of one election.
type audit struct {
	election *vote.Election
	poll     *party.Poll
	imageID  prover.Digest
	journal  *prover.Journal
	verified bool
	fault    string
}

// auditor follows elections from their messages and checks every published
// result against its proof.
type auditor struct {
	self      string
	elections map[string]*audit
}

func newAuditor(self string) *auditor {
	return &auditor{self: self, elections: make(map[string]*audit)}
}

// listen handles the messages of ch until ctx is done.
func (a *auditor) listen(ctx context.Context, ch <-chan message.Message) {
	for {
		select {
		case <-ctx.Done():
			log.Logger.Infof("auditor stopped, %d elections followed", len(a.elections))
			return
		case msg := <-ch:
			if err := a.HandleMessage(msg); err != nil {
				log.Logger.Warnf("message type %d from %s: %v", msg.GetType(), msg.GetFrom(), err)
			}
		}
	}
}

func (a *auditor) HandleMessage(msg message.Message) error {
	if msg.GetFrom() == a.self {
		return nil
	}
	switch m := msg.(type) {
	case *message.PollMessage:
		return a.handlePoll(m)
	case *message.BallotMessage:
		return a.handleBallot(m)
	case *message.ResultMessage:
		return a.handleResult(m)
	case *message.FaultMessage:
		return a.handleFault(m)
	default:
		return fmt.Errorf("unhandled message type %d", msg.GetType())
	}
}

func (a *auditor) handlePoll(m *message.PollMessage) error {
	poll := new(party.Poll)
	if err := poll.UnmarshalBinary(m.Poll); err != nil {
		return err
	}
	imageID, err := prover.ParseDigest(m.ImageID)
	if err != nil {
		return fmt.Errorf("poll image: %w", err)
	}
	e := vote.NewElection(m.From, m.Title, m.Candidates)
	e.Brief, e.StartTime, e.Deadline, e.Topic = m.Brief, m.StartTime, m.Deadline, m.Topic
	a.elections[m.Topic] = &audit{
		election: e,
		poll:     poll,
		imageID:  imageID,
	}
	log.Logger.Infof("following election %q on %s, image %s", m.Title, m.Topic, a.elections[m.Topic].imageID)
	return nil
}

func (a *auditor) handleBallot(m *message.BallotMessage) error {
	au, ok := a.elections[m.Topic]
	if !ok {
		return errUnknownElection
	}
	if _, err := party.UnmarshalBallot(au.poll, m.Ballot); err != nil {
		return err
	}
	return au.election.AddBallot(m.Voter, m.Ballot)
}

func (a *auditor) handleResult(m *message.ResultMessage) error {
	au, ok := a.elections[m.Topic]
	if !ok {
		return errUnknownElection
	}
	if m.ImageID != au.imageID.String() {
		return fmt.Errorf("result for image %s, expected %s: %w", m.ImageID, au.imageID, prover.ErrProofVerification)
	}
	journal, err := message.VerifyResult(m, au.imageID)
	if err != nil {
		return err
	}
	if journal.Mode != prover.ModeSelfContained && journal.KeyEpoch != au.poll.Epoch() {
		return fmt.Errorf("journal of key epoch %x, poll epoch %x: %w", journal.KeyEpoch, au.poll.Epoch(), prover.ErrProofVerification)
	}
	if n := len(au.election.Voters); n > 0 && int(journal.BallotCount) != n {
		log.Logger.Warnf("%s: %d ballots proven, %d seen", m.Topic, journal.BallotCount, n)
	}
	if journal.Tallies != nil {
		if err := au.election.ApplyJournal(journal); err != nil {
			return err
		}
		if !maps.Equal(au.election.Result, m.Result) {
			return fmt.Errorf("claimed result %v, proven %v: %w", m.Result, au.election.Result, prover.ErrProofVerification)
		}
	}
	au.journal, au.verified = journal, true
	log.Logger.Infof("%s: result verified, %d ballots", m.Topic, journal.BallotCount)
	return nil
}

func (a *auditor) handleFault(m *message.FaultMessage) error {
	au, ok := a.elections[m.Topic]
	if !ok {
		return errUnknownElection
	}
	au.fault = m.Reason
	log.Logger.Warnf("%s: tally failed at %s: %s", m.Topic, m.Stage, m.Reason)
	return nil
}
