package prover

import (
	"context"
	"fmt"
	"sync"
	"time"

	"VoteProof/log"
)

// State is the state of a Session.
type State int

const (
	StateIdle State = iota
	StateWitnessAssembled
	StateExecuting
	StateCommitted
	StateProofGenerated
	StateVerified
	StateFailed
)

var stateNames = [...]string{
	StateIdle:             "Idle",
	StateWitnessAssembled: "WitnessAssembled",
	StateExecuting:        "Executing",
	StateCommitted:        "Committed",
	StateProofGenerated:   "ProofGenerated",
	StateVerified:         "Verified",
	StateFailed:           "Failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Session drives one run at a time through
// Idle -> WitnessAssembled -> Executing -> Committed -> ProofGenerated -> Verified | Failed.
// Reset takes a Verified or Failed run back to Idle. The StageError of a
// failed run stays readable until then.
type Session struct {
	mu      sync.Mutex
	prover  *Prover
	id      int
	run     int
	state   State
	witness *Witness
	input   []byte
	journal *Journal
	trace   *Trace
	exec    *execution
	proof   *Proof
	err     *StageError
}

func (s *Session) transition(to State) {
	log.Logger.Debugf("session %d run %d: %s -> %s", s.id, s.run, s.state, to)
	s.state = to
}

func (s *Session) fail(stage State, err error) error {
	s.discard()
	s.exec.wipe()
	s.exec = nil
	s.err = &StageError{Stage: stage, Err: err}
	log.Logger.Warnf("session %d run %d: %v", s.id, s.run, s.err)
	s.transition(StateFailed)
	return s.err
}

func (s *Session) expect(method string, states ...State) error {
	for _, st := range states {
		if s.state == st {
			return nil
		}
	}
	return fmt.Errorf("cannot %s in state %s: %w", method, s.state, ErrInvalidTransition)
}

// discard drops the secret material of the run.
func (s *Session) discard() {
	if s.witness != nil {
		s.witness.DiscardSecrets()
	}
	zero(s.input)
	s.input = nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure of the run, or nil.
func (s *Session) Err() *StageError {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Journal returns the committed journal, or nil before Committed.
func (s *Session) Journal() *Journal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.journal
}

// Proof returns the proof, or nil before ProofGenerated.
func (s *Session) Proof() *Proof {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.proof
}

// Assemble serializes the witness for the run. The session takes ownership of
// w: its secrets are discarded once the run commits or fails. The private
// inputs of the proof are wiped once it is generated.
func (s *Session) Assemble(w *Witness) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect("Assemble", StateIdle); err != nil {
		return err
	}
	s.run++
	input, err := w.MarshalBinary()
	if err != nil {
		s.witness = w
		return s.fail(StateIdle, err)
	}
	s.witness, s.input = w, input
	log.Logger.Infof("session %d run %d: witness of %d ballots in %s mode, %d bytes", s.id, s.run, w.BallotCount(), w.Mode, len(input))
	s.transition(StateWitnessAssembled)
	return nil
}

// Execute hands the witness to the guest and waits for its journal. The
// context is only checked before the guest starts: a started run is never
// interrupted.
func (s *Session) Execute(ctx context.Context) (*Journal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect("Execute", StateWitnessAssembled); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, s.fail(StateWitnessAssembled, err)
	}
	s.transition(StateExecuting)

	journal, trace, exec, err := execute(s.prover.keys.program, s.input)
	if err != nil {
		return nil, s.fail(StateExecuting, err)
	}
	s.journal, s.trace, s.exec = journal, trace, exec
	s.discard()
	log.Logger.Infof("session %d run %d: committed %d ballots in %d cycles, tallies %v", s.id, s.run, journal.BallotCount, trace.Cycles, journal.Tallies)
	s.transition(StateCommitted)
	return journal, nil
}

// Prove computes the Groth16 proof of the committed journal.
func (s *Session) Prove() (*Proof, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect("Prove", StateCommitted); err != nil {
		return nil, err
	}
	start := time.Now()
	proof, err := s.prover.keys.prove(s.exec, s.journal, s.trace)
	if err != nil {
		return nil, s.fail(StateCommitted, err)
	}
	s.exec.wipe()
	s.proof, s.exec = proof, nil
	log.Logger.Infof("session %d run %d: proof of %d bytes for image %s in %s", s.id, s.run, len(proof.SNARK), proof.ImageID, time.Since(start).Round(time.Millisecond))
	s.transition(StateProofGenerated)
	return proof, nil
}

// Verify checks the proof of the run against its own journal.
func (s *Session) Verify() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect("Verify", StateProofGenerated); err != nil {
		return err
	}
	v := &Verifier{ImageID: s.prover.ImageID()}
	if err := v.Verify(s.proof, s.journal); err != nil {
		return s.fail(StateProofGenerated, err)
	}
	s.transition(StateVerified)
	return nil
}

// Reset clears a verified or failed run and returns to Idle.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect("Reset", StateVerified, StateFailed, StateIdle); err != nil {
		return err
	}
	s.witness, s.journal, s.trace, s.proof, s.err = nil, nil, nil, nil, nil
	s.transition(StateIdle)
	return nil
}

// Abandon fails the run. A proof, once generated, cannot be retracted.
func (s *Session) Abandon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.expect("Abandon", StateIdle, StateWitnessAssembled, StateCommitted); err != nil {
		return err
	}
	s.journal = nil
	return s.fail(s.state, ErrAbandoned)
}
