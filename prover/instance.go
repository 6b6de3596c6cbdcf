package prover

import (
	"encoding/binary"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/frontend"
	"github.com/zeebo/blake3"

	"VoteProof/crypto/bfv"
	"VoteProof/crypto/ring"
)

// seedElements is the number of field elements a seed is committed as: its
// length, then 31-byte chunks.
const seedElements = 1 + (MaxSeedSize+30)/31

// instance is the public input of a proof, decoded from the statement, the
// journal and the trace of the run.
type instance struct {
	binding    Digest
	pk         *bfv.PublicKey
	ballots    [][]*bfv.Ciphertext
	sums       []*bfv.Ciphertext
	residues   []uint64
	count      uint32
	commitment *big.Int
}

// bindingOf ties the proof to every byte of the journal and to the trace.
func bindingOf(journal *Journal, trace Trace) Digest {
	jd := journal.Digest()
	buf := append([]byte("VoteProof/binding/v1"), jd[:]...)
	buf = append(buf, trace.Root[:]...)
	buf = binary.BigEndian.AppendUint64(buf, trace.Cycles)
	return blake3.Sum256(buf)
}

// newInstance checks that journal can be the output of a run of the shape on
// statement and decodes the public inputs.
func newInstance(params *bfv.Parameters, s shape, statement *Statement, journal *Journal, trace Trace) (*instance, error) {
	if journal.Mode != s.mode {
		return nil, fmt.Errorf("journal in %s mode, program runs %s", journal.Mode, s.mode)
	}
	if journal.BallotCount == 0 || int(journal.BallotCount) > s.capacity {
		return nil, fmt.Errorf("%d ballots not in [1, %d]", journal.BallotCount, s.capacity)
	}
	in := &instance{binding: bindingOf(journal, trace), count: journal.BallotCount}

	if s.mode == ModeEncryptedTally {
		if len(journal.Tallies) != 0 || journal.Total != 0 {
			return nil, fmt.Errorf("plaintext tallies in %s mode", s.mode)
		}
	} else {
		if len(journal.EncryptedTallies) != 0 {
			return nil, fmt.Errorf("encrypted tallies in %s mode", s.mode)
		}
		if err := in.decodeTallies(params, s, journal); err != nil {
			return nil, err
		}
	}

	if s.mode == ModeSelfContained {
		if !statement.IsEmpty() {
			return nil, fmt.Errorf("statement in %s mode", s.mode)
		}
		in.commitment = new(big.Int).SetBytes(journal.InputDigest[:])
		if in.commitment.Cmp(ecc.BN254.ScalarField()) >= 0 {
			return nil, fmt.Errorf("commitment %s out of the field", journal.InputDigest)
		}
		return in, nil
	}

	if statement.Digest() != journal.InputDigest {
		return nil, fmt.Errorf("statement does not match the journal input %s", journal.InputDigest)
	}
	if err := in.decodeStatement(params, s, statement, journal); err != nil {
		return nil, err
	}
	if s.mode == ModeEncryptedTally {
		return in, in.decodeSums(params, s, journal)
	}
	return in, nil
}

func (in *instance) decodeTallies(params *bfv.Parameters, s shape, journal *Journal) error {
	if len(journal.Tallies) != s.columns {
		return fmt.Errorf("%d tallies for %d columns", len(journal.Tallies), s.columns)
	}
	var total int64
	in.residues = make([]uint64, s.columns)
	for j, v := range journal.Tallies {
		pt, err := bfv.NewPlaintextValue(params, v)
		if err != nil {
			return fmt.Errorf("tally %d: %w", j, err)
		}
		in.residues[j] = pt.Residue()
		total += v
	}
	if total != journal.Total {
		return fmt.Errorf("total %d, tallies add up to %d", journal.Total, total)
	}
	return nil
}

func (in *instance) decodeStatement(params *bfv.Parameters, s shape, statement *Statement, journal *Journal) (err error) {
	if in.pk, err = bfv.UnmarshalPublicKey(params, statement.PublicKey); err != nil {
		return err
	}
	if in.pk.Epoch != journal.KeyEpoch {
		return fmt.Errorf("journal of epoch %016x, key of epoch %016x", journal.KeyEpoch, in.pk.Epoch)
	}
	if len(statement.Ballots) != int(journal.BallotCount) {
		return fmt.Errorf("%d ballots in the statement, %d in the journal", len(statement.Ballots), journal.BallotCount)
	}
	in.ballots = make([][]*bfv.Ciphertext, len(statement.Ballots))
	for i, rows := range statement.Ballots {
		if len(rows) != s.columns {
			return fmt.Errorf("ballot %d of %d columns, want %d", i, len(rows), s.columns)
		}
		in.ballots[i] = make([]*bfv.Ciphertext, len(rows))
		for j, row := range rows {
			ct, err := bfv.UnmarshalCiphertext(params, row)
			if err != nil {
				return fmt.Errorf("ballot %d column %d: %w", i, j, err)
			}
			if ct.Epoch != in.pk.Epoch {
				return fmt.Errorf("ballot %d column %d: %w", i, j, bfv.ErrKeyMismatch)
			}
			in.ballots[i][j] = ct
		}
	}
	return nil
}

// decodeSums also checks the noise bounds the guest tracked.
func (in *instance) decodeSums(params *bfv.Parameters, s shape, journal *Journal) error {
	if len(journal.EncryptedTallies) != s.columns {
		return fmt.Errorf("%d encrypted tallies for %d columns", len(journal.EncryptedTallies), s.columns)
	}
	eval := bfv.NewEvaluator(params)
	column := make([]*bfv.Ciphertext, len(in.ballots))
	in.sums = make([]*bfv.Ciphertext, s.columns)
	for j, data := range journal.EncryptedTallies {
		ct, err := bfv.UnmarshalCiphertext(params, data)
		if err != nil {
			return fmt.Errorf("encrypted tally %d: %w", j, err)
		}
		if ct.Epoch != in.pk.Epoch {
			return fmt.Errorf("encrypted tally %d: %w", j, bfv.ErrKeyMismatch)
		}
		for i := range in.ballots {
			column[i] = in.ballots[i][j]
		}
		sum, err := eval.Sum(column...)
		if err != nil {
			return err
		}
		if ct.NoiseBound != sum.NoiseBound || ct.NoiseBound > params.NoiseBudget() {
			return fmt.Errorf("encrypted tally %d: noise bound %d, ballots add up to %d: %w", j, ct.NoiseBound, sum.NoiseBound, bfv.ErrNoiseOverflow)
		}
		in.sums[j] = ct
	}
	return nil
}

func fieldOf(d Digest) *big.Int {
	return new(big.Int).SetBytes(d[:31])
}

func polyValues(p *ring.Poly) []frontend.Variable {
	out := make([]frontend.Variable, len(p.Coeffs))
	for i, c := range p.Coeffs {
		out[i] = c
	}
	return out
}

func zeroValues(n int) []frontend.Variable {
	out := make([]frontend.Variable, n)
	for i := range out {
		out[i] = 0
	}
	return out
}

func ciphertextValues(v [2]*ring.Poly) [2][]frontend.Variable {
	return [2][]frontend.Variable{polyValues(v[0]), polyValues(v[1])}
}

func uintValues(v []uint64) []frontend.Variable {
	out := make([]frontend.Variable, len(v))
	for i, x := range v {
		out[i] = x
	}
	return out
}

// ballotValues pads the ballots with zero ciphertexts up to the capacity.
func (s shape) ballotValues(ballots [][]*bfv.Ciphertext) [][][2][]frontend.Variable {
	out := make([][][2][]frontend.Variable, s.capacity)
	for i := range out {
		out[i] = make([][2][]frontend.Variable, s.columns)
		for j := range out[i] {
			if i < len(ballots) {
				out[i][j] = ciphertextValues(ballots[i][j].Value)
			} else {
				out[i][j] = [2][]frontend.Variable{zeroValues(s.n), zeroValues(s.n)}
			}
		}
	}
	return out
}

// assignment fills the circuit of the shape with in. Without an execution
// only the public inputs are set, as a verifier does.
func (s shape) assignment(in *instance, exec *execution) frontend.Circuit {
	binding := fieldOf(in.binding)
	var square frontend.Variable
	if exec != nil {
		sq := new(big.Int).Mul(binding, binding)
		square = sq.Mod(sq, ecc.BN254.ScalarField())
	}

	switch s.mode {
	case ModeDecrypt:
		c := &decryptCircuit{
			Binding:   binding,
			PublicKey: ciphertextValues(in.pk.Value),
			Ballots:   s.ballotValues(in.ballots),
			Tallies:   uintValues(in.residues),
		}
		if exec != nil {
			c.BindingSquare = square
			c.Secret = make([]frontend.Variable, len(exec.secret))
			for i, v := range exec.secret {
				c.Secret[i] = v
			}
		}
		return c
	case ModeEncryptedTally:
		c := &sumCircuit{
			Binding: binding,
			Ballots: s.ballotValues(in.ballots),
			Sums:    make([][2][]frontend.Variable, len(in.sums)),
		}
		for j, ct := range in.sums {
			c.Sums[j] = ciphertextValues(ct.Value)
		}
		if exec != nil {
			c.BindingSquare = square
		}
		return c
	default:
		c := &plainCircuit{
			Binding:    binding,
			Commitment: in.commitment,
			Count:      in.count,
			Tallies:    uintValues(in.residues),
		}
		if exec != nil {
			c.BindingSquare = square
			c.Seed = make([]frontend.Variable, seedElements)
			for i, e := range seedValues(exec.seed) {
				c.Seed[i] = e
			}
			c.Plain = make([][]frontend.Variable, s.capacity)
			for i := range c.Plain {
				if i < len(exec.plain) {
					c.Plain[i] = uintValues(exec.plain[i])
				} else {
					c.Plain[i] = zeroValues(s.columns)
				}
			}
		}
		return c
	}
}

// seedValues splits the seed into seedElements field elements.
func seedValues(seed []byte) []*big.Int {
	out := make([]*big.Int, seedElements)
	out[0] = big.NewInt(int64(len(seed)))
	for i := 1; i < seedElements; i++ {
		lo := (i - 1) * 31
		hi := lo + 31
		if lo > len(seed) {
			lo = len(seed)
		}
		if hi > len(seed) {
			hi = len(seed)
		}
		out[i] = new(big.Int).SetBytes(seed[lo:hi])
	}
	return out
}

// plainResidues reduces the plaintexts in [0, T).
func plainResidues(params *bfv.Parameters, plain [][]int64) ([][]uint64, error) {
	out := make([][]uint64, len(plain))
	for i, row := range plain {
		out[i] = make([]uint64, len(row))
		for j, v := range row {
			pt, err := bfv.NewPlaintextValue(params, v)
			if err != nil {
				return nil, fmt.Errorf("ballot %d column %d: %w", i, j, err)
			}
			out[i][j] = pt.Residue()
		}
	}
	return out, nil
}

// commitPlain returns the MiMC commitment to the ballot count, the seed and
// the plaintext residues padded to capacity rows.
func commitPlain(capacity, columns int, seed []byte, residues [][]uint64) (Digest, error) {
	if len(residues) > capacity {
		return Digest{}, fmt.Errorf("%d ballots over capacity %d: %w", len(residues), capacity, ErrCapacity)
	}
	h := mimc.NewMiMC()
	var e fr.Element
	write := func(x *fr.Element) error {
		b := x.Bytes()
		_, err := h.Write(b[:])
		return err
	}
	if err := write(e.SetUint64(uint64(len(residues)))); err != nil {
		return Digest{}, err
	}
	for _, v := range seedValues(seed) {
		if err := write(e.SetBigInt(v)); err != nil {
			return Digest{}, err
		}
	}
	for i := 0; i < capacity; i++ {
		for j := 0; j < columns; j++ {
			var v uint64
			if i < len(residues) {
				v = residues[i][j]
			}
			if err := write(e.SetUint64(v)); err != nil {
				return Digest{}, err
			}
		}
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}

// CommitPlaintexts returns the commitment a ModeSelfContained run of
// program publishes as its journal input, so that a holder of the seed and
// the plaintexts can check it.
func CommitPlaintexts(program Program, seed []byte, plain [][]int64) (Digest, error) {
	_, params, err := shapeOf(program)
	if err != nil {
		return Digest{}, fmt.Errorf("cannot CommitPlaintexts: %w", err)
	}
	residues, err := plainResidues(params, plain)
	if err != nil {
		return Digest{}, fmt.Errorf("cannot CommitPlaintexts: %w", err)
	}
	for i, row := range residues {
		if len(row) != program.Columns {
			return Digest{}, fmt.Errorf("cannot CommitPlaintexts: ballot %d of %d columns", i, len(row))
		}
	}
	d, err := commitPlain(program.MaxBallots, program.Columns, seed, residues)
	if err != nil {
		return Digest{}, fmt.Errorf("cannot CommitPlaintexts: %w", err)
	}
	return d, nil
}
