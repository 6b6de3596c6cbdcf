package prover

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"

	"VoteProof/crypto/bfv"
	"VoteProof/log"
)

// Keys are the compiled circuit of a program and its Groth16 keys.
type Keys struct {
	program Program
	shape   shape
	params  *bfv.Parameters
	ccs     constraint.ConstraintSystem
	pk      groth16.ProvingKey
	vk      groth16.VerifyingKey
	vkBytes []byte
	image   Digest
}

var setups = struct {
	sync.Mutex
	keys map[Digest]*Keys
}{keys: make(map[Digest]*Keys)}

// verifyingKeys caches the decoded verifying keys by image ID.
var verifyingKeys sync.Map

// Setup compiles the circuit of program and generates its proving and
// verifying keys. Keys are cached per program for the life of the process.
// Whoever runs the setup knows its trapdoor and can forge proofs for the
// image: verifiers pin an image set up by a party they trust with it.
func Setup(program Program) (*Keys, error) {
	s, params, err := shapeOf(program)
	if err != nil {
		return nil, fmt.Errorf("cannot Setup: %w", err)
	}
	id := program.Digest()

	setups.Lock()
	defer setups.Unlock()
	if k, ok := setups.keys[id]; ok {
		return k, nil
	}

	start := time.Now()
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, s.circuit())
	if err != nil {
		return nil, fmt.Errorf("cannot Setup: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("cannot Setup: %w", err)
	}
	var buf bytes.Buffer
	if _, err := vk.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("cannot Setup: %w", err)
	}
	k := &Keys{
		program: program,
		shape:   s,
		params:  params,
		ccs:     ccs,
		pk:      pk,
		vk:      vk,
		vkBytes: buf.Bytes(),
		image:   imageOf(program, buf.Bytes()),
	}
	verifyingKeys.Store(k.image, vk)
	setups.keys[id] = k
	log.Logger.Infof("setup of %s: %d constraints in %s, image %s", program, ccs.GetNbConstraints(), time.Since(start).Round(time.Millisecond), k.image)
	return k, nil
}

// ImageID returns the image ID binding the program to the verifying key.
func (k *Keys) ImageID() Digest {
	return k.image
}

// Program returns the program the keys were set up for.
func (k *Keys) Program() Program {
	return k.program
}

// prove computes the proof of a committed run from its execution.
func (k *Keys) prove(exec *execution, journal *Journal, trace *Trace) (*Proof, error) {
	in, err := newInstance(k.params, k.shape, &exec.statement, journal, *trace)
	if err != nil {
		return nil, fmt.Errorf("cannot prove: %w", err)
	}
	w, err := frontend.NewWitness(k.shape.assignment(in, exec), ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("cannot prove: %w", err)
	}
	snark, err := groth16.Prove(k.ccs, k.pk, w)
	if err != nil {
		return nil, fmt.Errorf("cannot prove: %w", err)
	}
	var buf bytes.Buffer
	if _, err := snark.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("cannot prove: %w", err)
	}
	return &Proof{
		ImageID:   k.image,
		Program:   k.program,
		TraceRoot: trace.Root,
		Cycles:    trace.Cycles,
		Statement: exec.statement,
		Key:       k.vkBytes,
		SNARK:     buf.Bytes(),
	}, nil
}

// verifyingKey decodes the verifying key of a proof whose image was checked.
func verifyingKey(image Digest, data []byte) (groth16.VerifyingKey, error) {
	if vk, ok := verifyingKeys.Load(image); ok {
		return vk.(groth16.VerifyingKey), nil
	}
	vk := groth16.NewVerifyingKey(ecc.BN254)
	if _, err := vk.ReadFrom(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	verifyingKeys.Store(image, vk)
	return vk, nil
}
