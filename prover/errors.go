package prover

import (
	"errors"
	"fmt"
)

var (
	// ErrProofVerification is wrapped by every verification failure.
	ErrProofVerification = errors.New("proof verification failed")
	// ErrInvalidTransition is returned when a session method is called in the wrong state.
	ErrInvalidTransition = errors.New("invalid session transition")
	// ErrAbandoned is recorded when a run is abandoned before a proof exists.
	ErrAbandoned = errors.New("run abandoned")
	// ErrMalformedWitness is wrapped when a witness cannot be decoded.
	ErrMalformedWitness = errors.New("malformed witness")
	// ErrCapacity is wrapped when a witness holds more ballots than the program.
	ErrCapacity = errors.New("ballots over program capacity")
)

// WitnessValidationError reports a ballot rejected while assembling a witness.
// Column is -1 when the whole ballot is rejected.
type WitnessValidationError struct {
	Ballot int
	Column int
	Err    error
}

func (e *WitnessValidationError) Error() string {
	if e.Column < 0 {
		return fmt.Sprintf("ballot %d rejected: %v", e.Ballot, e.Err)
	}
	return fmt.Sprintf("ballot %d column %d rejected: %v", e.Ballot, e.Column, e.Err)
}

func (e *WitnessValidationError) Unwrap() error {
	return e.Err
}

// ExecutionFault reports the guest operation that halted a run. Ballot and
// Column are -1 when the operation is not tied to one.
type ExecutionFault struct {
	Op     Op
	Ballot int
	Column int
	Err    error
}

func (e *ExecutionFault) Error() string {
	return fmt.Sprintf("execution fault in %s (ballot %d, column %d): %v", e.Op, e.Ballot, e.Column, e.Err)
}

func (e *ExecutionFault) Unwrap() error {
	return e.Err
}

// StageError records the state a session was in when its run failed.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("run failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
