package message

import (
	"errors"

	"VoteProof/crypto/party"
	"VoteProof/prover"
	"VoteProof/vote"
)

const (
	RootTopic = "P2P_vote_proof_root_topic"
)

func GenPollMessage(e *vote.Election, p *party.Poll, imageID prover.Digest) (Message, error) {
	poll, err := p.MarshalBinary()
	if err != nil {
		return nil, err
	}
	msg := &PollMessage{
		Type:       PollType,
		From:       e.From,
		To:         RootTopic,
		Topic:      e.Topic,
		Title:      e.Title,
		Brief:      e.Brief,
		StartTime:  e.StartTime,
		Deadline:   e.Deadline,
		Candidates: e.Candidates,
		ImageID:    imageID.String(),
		Poll:       poll,
	}
	return msg, nil
}

func GenBallotMessage(e *vote.Election, from, voter string, ballot [][]byte) Message {
	msg := &BallotMessage{
		Type:   BallotType,
		From:   from,
		To:     e.From,
		Topic:  e.Topic,
		Voter:  voter,
		Ballot: ballot,
	}
	return msg
}

func GenResultMessage(e *vote.Election, from string, imageID prover.Digest, journal *prover.Journal, proof *prover.Proof) (Message, error) {
	j, err := journal.MarshalBinary()
	if err != nil {
		return nil, err
	}
	p, err := proof.MarshalBinary()
	if err != nil {
		return nil, err
	}
	msg := &ResultMessage{
		Type:    ResultType,
		From:    from,
		To:      e.Topic,
		Topic:   e.Topic,
		ImageID: imageID.String(),
		Result:  e.Result,
		Journal: j,
		Proof:   p,
	}
	return msg, nil
}

func GenFaultMessage(e *vote.Election, from string, err error) Message {
	msg := &FaultMessage{
		Type:   FaultType,
		From:   from,
		To:     e.Topic,
		Topic:  e.Topic,
		Reason: err.Error(),
	}
	if stage, ok := stageOf(err); ok {
		msg.Stage = stage.String()
	}
	return msg
}

func stageOf(err error) (prover.State, bool) {
	var se *prover.StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return 0, false
}

// VerifyResult decodes the journal and proof of a result message and checks
// them against the image the receiver expects.
func VerifyResult(msg *ResultMessage, imageID prover.Digest) (*prover.Journal, error) {
	journal, err := prover.UnmarshalJournal(msg.Journal)
	if err != nil {
		return nil, err
	}
	proof, err := prover.UnmarshalProof(msg.Proof)
	if err != nil {
		return nil, err
	}
	if err := prover.VerifyProof(proof, journal, imageID); err != nil {
		return nil, err
	}
	return journal, nil
}
