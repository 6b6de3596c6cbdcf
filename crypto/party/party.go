package party

import (
	"fmt"

	"VoteProof/crypto/bfv"
	"VoteProof/log"
)

// Party is a voter of a poll. It only holds the public key of the epoch.
type Party struct {
	ID        uint64
	poll      *Poll
	encryptor *bfv.Encryptor
}

// NewParty creates a voter identified by ID for poll.
func NewParty(ID uint64, poll *Poll) *Party {
	return &Party{
		ID:        ID,
		poll:      poll,
		encryptor: bfv.NewEncryptor(poll.Params, poll.PublicKey),
	}
}

// Poll returns the poll the voter takes part in.
func (voter *Party) Poll() *Poll {
	return voter.poll
}

// Encrypt encrypts ticket, one ciphertext per candidate column.
func (voter *Party) Encrypt(ticket []int64) ([]*bfv.Ciphertext, error) {
	if len(ticket) != voter.poll.Columns() {
		return nil, fmt.Errorf("cannot Encrypt: ticket has %d entries, poll has %d candidates", len(ticket), voter.poll.Columns())
	}
	cts := make([]*bfv.Ciphertext, len(ticket))
	for i, v := range ticket {
		ct, err := voter.encryptor.EncryptInt(v)
		if err != nil {
			return nil, fmt.Errorf("cannot Encrypt: column %d: %w", i, err)
		}
		cts[i] = ct
	}
	log.Logger.Debugf("voter %d encrypted a ballot of %d columns under epoch %016x", voter.ID, len(cts), voter.poll.Epoch())
	return cts, nil
}

// MarshalBallot serializes every column of a ballot.
func (voter *Party) MarshalBallot(cts []*bfv.Ciphertext) ([][]byte, error) {
	rows := make([][]byte, len(cts))
	for i, ct := range cts {
		data, err := ct.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("cannot MarshalBallot: %w", err)
		}
		rows[i] = data
	}
	return rows, nil
}

// EncryptBallot encrypts ticket and serializes it.
func (voter *Party) EncryptBallot(ticket []int64) ([][]byte, error) {
	cts, err := voter.Encrypt(ticket)
	if err != nil {
		return nil, err
	}
	return voter.MarshalBallot(cts)
}

// UnmarshalBallot decodes a serialized ballot of poll. Every column must
// belong to the epoch of the poll.
func UnmarshalBallot(poll *Poll, rows [][]byte) ([]*bfv.Ciphertext, error) {
	if len(rows) != poll.Columns() {
		return nil, fmt.Errorf("cannot UnmarshalBallot: %d columns, poll has %d candidates", len(rows), poll.Columns())
	}
	cts := make([]*bfv.Ciphertext, len(rows))
	for i, row := range rows {
		ct, err := bfv.UnmarshalCiphertext(poll.Params, row)
		if err != nil {
			return nil, fmt.Errorf("cannot UnmarshalBallot: column %d: %w", i, err)
		}
		if ct.Epoch != poll.Epoch() {
			return nil, fmt.Errorf("cannot UnmarshalBallot: column %d: %w", i, bfv.ErrKeyMismatch)
		}
		cts[i] = ct
	}
	return cts, nil
}
