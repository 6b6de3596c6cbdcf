package prover

import (
	"fmt"

	"github.com/zeebo/blake3"
	"golang.org/x/exp/slices"

	"VoteProof/crypto/bfv"
	"VoteProof/crypto/ring"
)

// Run executes the guest program on the serialized witness. It is a pure
// function of its arguments: single-threaded, no I/O, no logging, and no
// randomness other than the witness seed in ModeSelfContained. Any failure
// aborts the whole run with an *ExecutionFault and no journal.
func Run(program Program, witnessBytes []byte) (*Journal, *Trace, error) {
	journal, trace, exec, err := execute(program, witnessBytes)
	if err != nil {
		return nil, nil, err
	}
	exec.wipe()
	return journal, trace, nil
}

// execute is Run keeping what the proof of the run is computed from.
func execute(program Program, witnessBytes []byte) (*Journal, *Trace, *execution, error) {
	g := &guest{tracer: newTracer(program.Digest())}
	journal, err := g.run(program, witnessBytes)
	if err != nil {
		return nil, nil, nil, err
	}
	return journal, g.trace(), g.exec, nil
}

// execution holds the private inputs of a proof: the secret key in
// ModeDecrypt, the seed and the plaintext residues in ModeSelfContained.
type execution struct {
	statement Statement
	secret    []int64
	seed      []byte
	plain     [][]uint64
}

func (e *execution) wipe() {
	if e == nil {
		return
	}
	for i := range e.secret {
		e.secret[i] = 0
	}
	zero(e.seed)
	for _, row := range e.plain {
		for j := range row {
			row[j] = 0
		}
	}
}

type guest struct {
	*tracer
	params *bfv.Parameters
	pk     *bfv.PublicKey
	sk     *bfv.SecretKey
	exec   *execution
}

func fault(op Op, ballot, column int, err error) *ExecutionFault {
	return &ExecutionFault{Op: op, Ballot: ballot, Column: column, Err: err}
}

func (g *guest) run(program Program, witnessBytes []byte) (journal *Journal, err error) {
	witnessDigest := Digest(blake3.Sum256(witnessBytes))

	w, err := UnmarshalWitness(witnessBytes)
	if err != nil {
		return nil, fault(OpDecodeWitness, -1, -1, err)
	}
	defer w.DiscardSecrets()
	if g.params, err = bfv.NewParametersFromLiteral(program.Params); err != nil {
		return nil, fault(OpDecodeWitness, -1, -1, err)
	}
	if w.ParamsID != g.params.ID() {
		return nil, fault(OpDecodeWitness, -1, -1, fmt.Errorf("witness for %s, program runs %s: %w", w.ParamsID, g.params.ID(), ErrMalformedWitness))
	}
	if w.Mode != program.Mode || w.Columns != program.Columns {
		return nil, fault(OpDecodeWitness, -1, -1, fmt.Errorf("witness of %d columns in %s mode, program runs %d in %s: %w", w.Columns, w.Mode, program.Columns, program.Mode, ErrMalformedWitness))
	}
	if w.BallotCount() == 0 {
		return nil, fault(OpDecodeWitness, -1, -1, fmt.Errorf("no ballot: %w", ErrMalformedWitness))
	}
	if w.BallotCount() > program.MaxBallots {
		return nil, fault(OpDecodeWitness, -1, -1, fmt.Errorf("%d ballots over %d: %w", w.BallotCount(), program.MaxBallots, ErrCapacity))
	}
	g.record(OpDecodeWitness, -1, -1, witnessDigest)
	g.exec = &execution{}
	defer func() {
		g.sk.Wipe()
		if err != nil {
			g.exec.wipe()
		}
	}()

	var ballots [][]*bfv.Ciphertext
	switch w.Mode {
	case ModeDecrypt, ModeEncryptedTally:
		if err = g.loadKeys(w); err != nil {
			return nil, err
		}
		if ballots, err = g.decodeBallots(w); err != nil {
			return nil, err
		}
		g.exec.statement = Statement{PublicKey: w.PublicKey, Ballots: w.Ballots}
	case ModeSelfContained:
		if ballots, err = g.encryptBallots(w); err != nil {
			return nil, err
		}
	}

	sums, err := g.sumColumns(ballots, w.Columns)
	if err != nil {
		return nil, err
	}

	journal = &Journal{
		WitnessDigest: witnessDigest,
		Mode:          w.Mode,
		KeyEpoch:      g.pk.Epoch,
		BallotCount:   uint32(len(ballots)),
	}
	if w.Mode == ModeEncryptedTally {
		journal.EncryptedTallies = make([][]byte, len(sums))
		for j, sum := range sums {
			if journal.EncryptedTallies[j], err = sum.MarshalBinary(); err != nil {
				return nil, fault(OpCommit, -1, j, err)
			}
		}
	} else {
		dec := bfv.NewDecryptor(g.params, g.sk)
		journal.Tallies = make([]int64, len(sums))
		for j, sum := range sums {
			pt, err := dec.Decrypt(sum)
			if err != nil {
				return nil, fault(OpDecrypt, -1, j, err)
			}
			journal.Tallies[j] = pt.Int64()
			journal.Total += pt.Int64()
			g.record(OpDecrypt, -1, j, digestInt(pt.Int64()))
		}
	}

	if w.Mode == ModeSelfContained {
		if g.exec.plain, err = plainResidues(g.params, w.Plain); err != nil {
			return nil, fault(OpCommit, -1, -1, err)
		}
		g.exec.seed = slices.Clone(w.KeySeed)
		if journal.InputDigest, err = commitPlain(program.MaxBallots, program.Columns, g.exec.seed, g.exec.plain); err != nil {
			return nil, fault(OpCommit, -1, -1, err)
		}
	} else {
		journal.InputDigest = g.exec.statement.Digest()
	}
	if w.Mode == ModeDecrypt {
		ringQ := g.params.RingQ()
		g.exec.secret = make([]int64, len(g.sk.Value.Coeffs))
		for i, c := range g.sk.Value.Coeffs {
			g.exec.secret[i] = ringQ.ToSigned(c)
		}
	}
	g.record(OpCommit, -1, -1, journal.Digest())
	return journal, nil
}

func (g *guest) loadKeys(w *Witness) (err error) {
	if g.pk, err = bfv.UnmarshalPublicKey(g.params, w.PublicKey); err != nil {
		return fault(OpDecodeKey, -1, -1, err)
	}
	g.record(OpDecodeKey, -1, -1, blake3.Sum256(w.PublicKey))

	if w.Mode != ModeDecrypt {
		return nil
	}
	if g.sk, err = bfv.UnmarshalSecretKey(g.params, w.SecretKey); err != nil {
		return fault(OpDecodeKey, -1, -1, err)
	}
	if g.sk.Epoch != g.pk.Epoch {
		g.sk.Wipe()
		return fault(OpDecodeKey, -1, -1, bfv.ErrKeyMismatch)
	}
	// the secret key never enters the trace
	g.record(OpDecodeKey, -1, -1, digestInt(int64(g.sk.Epoch)))
	return nil
}

func (g *guest) decodeBallots(w *Witness) ([][]*bfv.Ciphertext, error) {
	ballots := make([][]*bfv.Ciphertext, len(w.Ballots))
	for i, rows := range w.Ballots {
		ballots[i] = make([]*bfv.Ciphertext, len(rows))
		for j, row := range rows {
			ct, err := bfv.UnmarshalCiphertext(g.params, row)
			if err != nil {
				return nil, fault(OpDecodeCiphertext, i, j, err)
			}
			if ct.Epoch != g.pk.Epoch {
				return nil, fault(OpDecodeCiphertext, i, j, bfv.ErrKeyMismatch)
			}
			ballots[i][j] = ct
			g.record(OpDecodeCiphertext, i, j, blake3.Sum256(row))
		}
	}
	return ballots, nil
}

func (g *guest) encryptBallots(w *Witness) ([][]*bfv.Ciphertext, error) {
	prng, err := ring.NewKeyedPRNG(w.KeySeed)
	if err != nil {
		return nil, fault(OpKeyGen, -1, -1, err)
	}
	if g.sk, g.pk, err = bfv.NewKeyGeneratorWithPRNG(g.params, prng).GenKeyPair(); err != nil {
		return nil, fault(OpKeyGen, -1, -1, err)
	}
	g.record(OpKeyGen, -1, -1, digestInt(int64(g.pk.Epoch)))

	enc := bfv.NewEncryptorWithPRNG(g.params, g.pk, prng)
	ballots := make([][]*bfv.Ciphertext, len(w.Plain))
	for i, row := range w.Plain {
		ballots[i] = make([]*bfv.Ciphertext, len(row))
		for j, v := range row {
			ct, err := enc.EncryptInt(v)
			if err != nil {
				g.sk.Wipe()
				return nil, fault(OpEncrypt, i, j, err)
			}
			ballots[i][j] = ct
			g.record(OpEncrypt, i, j, digestCiphertext(ct))
		}
	}
	return ballots, nil
}

func (g *guest) sumColumns(ballots [][]*bfv.Ciphertext, columns int) ([]*bfv.Ciphertext, error) {
	eval := bfv.NewEvaluator(g.params)
	sums := make([]*bfv.Ciphertext, columns)
	for j := range sums {
		sums[j] = ballots[0][j].CopyNew()
	}
	for i, ballot := range ballots[1:] {
		for j, ct := range ballot {
			if err := eval.Add(sums[j], ct, sums[j]); err != nil {
				return nil, fault(OpAdd, i+1, j, err)
			}
			if sums[j].NoiseBound > g.params.NoiseBudget() {
				return nil, fault(OpAdd, i+1, j, bfv.ErrNoiseOverflow)
			}
			g.record(OpAdd, i+1, j, digestCiphertext(sums[j]))
		}
	}
	return sums, nil
}

func digestCiphertext(ct *bfv.Ciphertext) Digest {
	data, _ := ct.MarshalBinary()
	return blake3.Sum256(data)
}

func digestInt(v int64) (d Digest) {
	for i := 0; i < 8; i++ {
		d[i] = byte(uint64(v) >> (56 - 8*i))
	}
	return d
}
