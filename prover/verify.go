package prover

import (
	"bytes"
	"fmt"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
)

// Verify reports whether proof attests that journal is the output of the
// program identified by imageID. It is pure and needs no network access.
func Verify(proof *Proof, journal *Journal, imageID Digest) bool {
	return VerifyProof(proof, journal, imageID) == nil
}

// VerifyProof is Verify returning the reason of a rejection, wrapped in
// ErrProofVerification.
func VerifyProof(proof *Proof, journal *Journal, imageID Digest) error {
	return (&Verifier{ImageID: imageID}).Verify(proof, journal)
}

// Verifier checks proofs for one program image.
type Verifier struct {
	ImageID Digest
}

// Verify checks the SNARK of proof against the verifying key of the image,
// on the public inputs taken from the statement and the expected journal.
func (v *Verifier) Verify(proof *Proof, journal *Journal) error {
	if proof == nil || journal == nil {
		return fmt.Errorf("missing proof or journal: %w", ErrProofVerification)
	}
	if proof.ImageID != v.ImageID {
		return fmt.Errorf("image %s, expected %s: %w", proof.ImageID, v.ImageID, ErrProofVerification)
	}
	if imageOf(proof.Program, proof.Key) != v.ImageID {
		return fmt.Errorf("program and verifying key do not match image %s: %w", v.ImageID, ErrProofVerification)
	}
	s, params, err := shapeOf(proof.Program)
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrProofVerification)
	}
	vk, err := verifyingKey(v.ImageID, proof.Key)
	if err != nil {
		return fmt.Errorf("verifying key: %v: %w", err, ErrProofVerification)
	}
	in, err := newInstance(params, s, &proof.Statement, journal, proof.trace())
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrProofVerification)
	}
	public, err := frontend.NewWitness(s.assignment(in, nil), ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("public inputs: %v: %w", err, ErrProofVerification)
	}
	snark := groth16.NewProof(ecc.BN254)
	if _, err := snark.ReadFrom(bytes.NewReader(proof.SNARK)); err != nil {
		return fmt.Errorf("snark: %v: %w", err, ErrProofVerification)
	}
	if err := groth16.Verify(snark, vk, public); err != nil {
		return fmt.Errorf("snark: %v: %w", err, ErrProofVerification)
	}
	return nil
}

// VerifyByReplay re-executes the program of the proof on the witness and
// checks that the run reproduces a journal and a trace the proof holds for.
// It returns the replayed journal. Only auditors holding the witness can
// use it.
func VerifyByReplay(proof *Proof, witnessBytes []byte, imageID Digest) (*Journal, error) {
	if proof == nil {
		return nil, fmt.Errorf("missing proof: %w", ErrProofVerification)
	}
	journal, trace, err := Run(proof.Program, witnessBytes)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	if trace.Root != proof.TraceRoot || trace.Cycles != proof.Cycles {
		return nil, fmt.Errorf("replayed trace differs: %w", ErrProofVerification)
	}
	if err := VerifyProof(proof, journal, imageID); err != nil {
		return nil, err
	}
	return journal, nil
}
