package prover

import (
	"context"
	"errors"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"VoteProof/crypto/bfv"
	"VoteProof/crypto/party"
	"VoteProof/crypto/ring"
)

var tickets = [][]int64{
	{1, 0, 0},
	{0, 1, 0},
	{1, 0, 0},
	{0, 0, 1},
	{0, 1, 0},
	{1, 0, 0},
	{0, 1, 0},
}

type fixture struct {
	params  *bfv.Parameters
	kh      *party.KeyHolder
	poll    *party.Poll
	provers map[Mode]*Prover
}

func newFixture(t *testing.T, paramsName string, columns int) *fixture {
	params, err := bfv.ParamsByName(paramsName)
	require.NoError(t, err)
	kh, err := party.NewKeyHolder(params, ring.NewPRNG())
	require.NoError(t, err)
	candidates := []string{"alice", "bob", "carol"}[:columns]
	return &fixture{params: params, kh: kh, poll: kh.NewPoll(candidates), provers: make(map[Mode]*Prover)}
}

func (f *fixture) program(mode Mode) Program {
	return TallyProgram(f.params, mode, f.poll.Columns())
}

func (f *fixture) prover(t *testing.T, mode Mode) *Prover {
	if p, ok := f.provers[mode]; ok {
		return p
	}
	p, err := NewProver(f.program(mode), 2)
	require.NoError(t, err)
	f.provers[mode] = p
	return p
}

func (f *fixture) ballots(t *testing.T, tickets [][]int64) [][][]byte {
	out := make([][][]byte, len(tickets))
	for i, ticket := range tickets {
		rows, err := party.NewParty(uint64(i), f.poll).EncryptBallot(ticket)
		require.NoError(t, err)
		out[i] = rows
	}
	return out
}

func (f *fixture) witness(t *testing.T, mode Mode, tickets [][]int64) *Witness {
	if mode == ModeSelfContained {
		w, err := NewSelfContainedWitness(f.params, []byte("demo-seed"), tickets)
		require.NoError(t, err)
		return w
	}
	pk, err := f.poll.PublicKey.MarshalBinary()
	require.NoError(t, err)
	b, err := NewWitnessBuilder(f.params, mode, f.poll.Columns(), pk)
	require.NoError(t, err)
	for _, rows := range f.ballots(t, tickets) {
		require.NoError(t, b.AddBallot(rows))
	}
	if mode == ModeDecrypt {
		sk, err := f.kh.SecretKeyBytes()
		require.NoError(t, err)
		require.NoError(t, b.WithSecretKey(sk))
	}
	w, err := b.Build()
	require.NoError(t, err)
	return w
}

func (f *fixture) prove(t *testing.T, w *Witness) (*Journal, *Proof) {
	s := f.prover(t, w.Mode).NewSession()
	require.NoError(t, s.Assemble(w))
	journal, err := s.Execute(context.Background())
	require.NoError(t, err)
	proof, err := s.Prove()
	require.NoError(t, err)
	require.NoError(t, s.Verify())
	return journal, proof
}

func TestEndToEnd(t *testing.T) {
	for _, mode := range []Mode{ModeDecrypt, ModeSelfContained} {
		t.Run(mode.String(), func(t *testing.T) {
			f := newFixture(t, "PN5T65537Q58", 3)
			journal, proof := f.prove(t, f.witness(t, mode, tickets))

			require.Equal(t, []int64{3, 3, 1}, journal.Tallies)
			require.Equal(t, int64(7), journal.Total)
			require.Equal(t, uint32(7), journal.BallotCount)
			require.Equal(t, mode, journal.Mode)

			image := f.prover(t, mode).ImageID()
			require.True(t, Verify(proof, journal.WithTallies([]int64{3, 3, 1}), image))
			require.False(t, Verify(proof, journal.WithTallies([]int64{3, 3, 2}), image))
		})
	}

	t.Run("DemoParams", func(t *testing.T) {
		f := newFixture(t, "PN3T1024Q40", 3)
		journal, proof := f.prove(t, f.witness(t, ModeSelfContained, tickets))
		require.Equal(t, []int64{3, 3, 1}, journal.Tallies)
		require.True(t, Verify(proof, journal, f.prover(t, ModeSelfContained).ImageID()))
		require.True(t, proof.Statement.IsEmpty())

		commitment, err := CommitPlaintexts(f.program(ModeSelfContained), []byte("demo-seed"), tickets)
		require.NoError(t, err)
		require.Equal(t, commitment, journal.InputDigest)
		other, err := CommitPlaintexts(f.program(ModeSelfContained), []byte("demo-seed"), tickets[1:])
		require.NoError(t, err)
		require.NotEqual(t, commitment, other)
	})

	t.Run(ModeEncryptedTally.String(), func(t *testing.T) {
		f := newFixture(t, "PN5T65537Q58", 3)
		journal, proof := f.prove(t, f.witness(t, ModeEncryptedTally, tickets))
		require.Nil(t, journal.Tallies)
		require.Len(t, journal.EncryptedTallies, 3)
		require.Equal(t, f.kh.Epoch(), journal.KeyEpoch)
		require.Equal(t, proof.Statement.Digest(), journal.InputDigest)
		require.True(t, Verify(proof, journal, f.prover(t, ModeEncryptedTally).ImageID()))

		tallies, err := f.kh.DecryptTallies(journal.EncryptedTallies)
		require.NoError(t, err)
		require.Equal(t, []int64{3, 3, 1}, tallies)
	})
}

func TestGuestDeterminism(t *testing.T) {
	f := newFixture(t, "PN5T65537Q58", 3)
	for _, mode := range []Mode{ModeDecrypt, ModeEncryptedTally, ModeSelfContained} {
		data, err := f.witness(t, mode, tickets).MarshalBinary()
		require.NoError(t, err)

		j0, t0, err := Run(f.program(mode), data)
		require.NoError(t, err)
		j1, t1, err := Run(f.program(mode), data)
		require.NoError(t, err)

		require.True(t, j0.Equal(j1), mode.String())
		require.Equal(t, t0, t1, mode.String())
		require.NotZero(t, t0.Cycles)
	}
}

func TestVerifyRejects(t *testing.T) {
	f := newFixture(t, "PN5T65537Q58", 3)
	w := f.witness(t, ModeDecrypt, tickets)
	journal, proof := f.prove(t, w)
	image := f.prover(t, ModeDecrypt).ImageID()

	tamper := func(mut func(p *Proof)) *Proof {
		data, err := proof.MarshalBinary()
		require.NoError(t, err)
		p, err := UnmarshalProof(data)
		require.NoError(t, err)
		mut(p)
		return p
	}
	retouch := func(mut func(j *Journal)) *Journal {
		j := journal.Clone()
		mut(j)
		return j
	}

	cases := map[string]struct {
		proof   *Proof
		journal *Journal
		image   Digest
	}{
		"SNARK":         {tamper(func(p *Proof) { p.SNARK[len(p.SNARK)-1] ^= 1 }), journal, image},
		"TraceRoot":     {tamper(func(p *Proof) { p.TraceRoot[0] ^= 1 }), journal, image},
		"Cycles":        {tamper(func(p *Proof) { p.Cycles++ }), journal, image},
		"Image":         {proof, journal, Digest{1}},
		"Program":       {tamper(func(p *Proof) { p.Program.MaxBallots++ }), journal, image},
		"Key":           {tamper(func(p *Proof) { p.Key = p.Key[:len(p.Key)-1] }), journal, image},
		"Journal":       {proof, journal.WithTallies([]int64{4, 2, 1}), image},
		"WitnessDigest": {proof, retouch(func(j *Journal) { j.WitnessDigest[0] ^= 1 }), image},
		"InputDigest":   {proof, retouch(func(j *Journal) { j.InputDigest[0] ^= 1 }), image},
		"KeyEpoch":      {proof, retouch(func(j *Journal) { j.KeyEpoch++ }), image},
		"BallotCount":   {proof, retouch(func(j *Journal) { j.BallotCount-- }), image},
		"Nil":           {nil, journal, image},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			require.False(t, Verify(c.proof, c.journal, c.image))
			require.True(t, errors.Is(VerifyProof(c.proof, c.journal, c.image), ErrProofVerification))
		})
	}

	t.Run("ReorderedBallots", func(t *testing.T) {
		// the sums do not change, the statement the journal commits to does
		p := tamper(func(p *Proof) {
			b := p.Statement.Ballots
			b[0], b[1] = b[1], b[0]
		})
		j := retouch(func(j *Journal) { j.InputDigest = p.Statement.Digest() })
		require.False(t, Verify(p, j, image))
	})

	t.Run("FabricatedJournal", func(t *testing.T) {
		fake := &Journal{
			WitnessDigest: Digest{7},
			InputDigest:   journal.InputDigest,
			Mode:          ModeDecrypt,
			KeyEpoch:      journal.KeyEpoch,
			BallotCount:   journal.BallotCount,
			Tallies:       []int64{0, 0, 7},
			Total:         7,
		}
		require.False(t, Verify(proof, fake, image))

		forged := tamper(func(p *Proof) { p.SNARK = make([]byte, len(p.SNARK)) })
		require.False(t, Verify(forged, fake, image))

		// an honest execution cannot prove other tallies either
		_, trace, exec, err := execute(f.program(ModeDecrypt), mustMarshal(t, f.witness(t, ModeDecrypt, tickets)))
		require.NoError(t, err)
		fake.InputDigest = exec.statement.Digest()
		_, err = f.prover(t, ModeDecrypt).keys.prove(exec, fake, trace)
		require.Error(t, err)
	})

	t.Run("Codec", func(t *testing.T) {
		data, err := proof.MarshalBinary()
		require.NoError(t, err)
		decoded, err := UnmarshalProof(data)
		require.NoError(t, err)
		require.Equal(t, proof, decoded)

		jdata, err := journal.MarshalBinary()
		require.NoError(t, err)
		jdecoded, err := UnmarshalJournal(jdata)
		require.NoError(t, err)
		require.True(t, journal.Equal(jdecoded))
		require.True(t, Verify(decoded, jdecoded, image))

		_, err = UnmarshalProof(data[:len(data)-1])
		require.Error(t, err)
		_, err = UnmarshalJournal(append(jdata, 0))
		require.Error(t, err)
	})
}

func TestCircuit(t *testing.T) {
	f := newFixture(t, "PN3T1024Q40", 3)
	for _, mode := range []Mode{ModeDecrypt, ModeEncryptedTally, ModeSelfContained} {
		t.Run(mode.String(), func(t *testing.T) {
			program := f.program(mode)
			s, params, err := shapeOf(program)
			require.NoError(t, err)
			journal, trace, exec, err := execute(program, mustMarshal(t, f.witness(t, mode, tickets)))
			require.NoError(t, err)

			in, err := newInstance(params, s, &exec.statement, journal, *trace)
			require.NoError(t, err)
			require.NoError(t, test.IsSolved(s.circuit(), s.assignment(in, exec), ecc.BN254.ScalarField()))

			if mode == ModeEncryptedTally {
				in.sums[0], in.sums[1] = in.sums[1], in.sums[0]
			} else {
				in.residues[2] = 5
			}
			require.Error(t, test.IsSolved(s.circuit(), s.assignment(in, exec), ecc.BN254.ScalarField()))
		})
	}

	t.Run("OtherSecretKey", func(t *testing.T) {
		program := f.program(ModeDecrypt)
		s, params, err := shapeOf(program)
		require.NoError(t, err)
		journal, trace, exec, err := execute(program, mustMarshal(t, f.witness(t, ModeDecrypt, tickets)))
		require.NoError(t, err)
		in, err := newInstance(params, s, &exec.statement, journal, *trace)
		require.NoError(t, err)

		// flipping a key coefficient breaks the relation with the public key
		exec.secret[0] = 1 - exec.secret[0]*exec.secret[0]
		require.Error(t, test.IsSolved(s.circuit(), s.assignment(in, exec), ecc.BN254.ScalarField()))
	})

	t.Run("Capacity", func(t *testing.T) {
		program := f.program(ModeEncryptedTally)
		program.MaxBallots = 1
		s, _, err := shapeOf(program)
		require.NoError(t, err)
		require.NotNil(t, s.circuit())

		_, _, err = Run(program, mustMarshal(t, f.witness(t, ModeEncryptedTally, tickets[:2])))
		require.True(t, errors.Is(err, ErrCapacity))
	})
}

func TestVerifyByReplay(t *testing.T) {
	f := newFixture(t, "PN5T65537Q58", 3)
	image := f.prover(t, ModeEncryptedTally).ImageID()

	w := f.witness(t, ModeEncryptedTally, tickets)
	data, err := w.MarshalBinary()
	require.NoError(t, err)
	journal, proof := f.prove(t, w)

	replayed, err := VerifyByReplay(proof, data, image)
	require.NoError(t, err)
	require.True(t, journal.Equal(replayed))

	otherData, err := f.witness(t, ModeEncryptedTally, tickets[:6]).MarshalBinary()
	require.NoError(t, err)
	_, err = VerifyByReplay(proof, otherData, image)
	require.True(t, errors.Is(err, ErrProofVerification))
}

func TestGuestFaults(t *testing.T) {
	t.Run("KeyMismatch", func(t *testing.T) {
		f := newFixture(t, "PN5T65537Q58", 3)
		w := f.witness(t, ModeEncryptedTally, tickets)

		// a ballot under another epoch, smuggled past the builder
		other := newFixture(t, "PN5T65537Q58", 3)
		w.Ballots[4] = other.ballots(t, tickets[:1])[0]
		data, err := w.MarshalBinary()
		require.NoError(t, err)

		journal, trace, err := Run(f.program(ModeEncryptedTally), data)
		require.Nil(t, journal)
		require.Nil(t, trace)
		var fault *ExecutionFault
		require.True(t, errors.As(err, &fault))
		assert.Equal(t, OpDecodeCiphertext, fault.Op)
		assert.Equal(t, 4, fault.Ballot)
		assert.Equal(t, 0, fault.Column)
		assert.True(t, errors.Is(err, bfv.ErrKeyMismatch))
		assert.False(t, errors.Is(err, ErrProofVerification))
	})

	t.Run("SecretKeyWipedOnFault", func(t *testing.T) {
		f := newFixture(t, "PN5T65537Q58", 3)
		w := f.witness(t, ModeDecrypt, tickets)
		other := newFixture(t, "PN5T65537Q58", 3)
		w.Ballots[2] = other.ballots(t, tickets[:1])[0]

		g := &guest{tracer: newTracer(f.program(ModeDecrypt).Digest())}
		_, err := g.run(f.program(ModeDecrypt), mustMarshal(t, w))
		require.True(t, errors.Is(err, bfv.ErrKeyMismatch))
		require.NotNil(t, g.sk)
		require.Equal(t, make([]uint64, f.params.N()), g.sk.Value.Coeffs)
	})

	t.Run("NoiseOverflow", func(t *testing.T) {
		f := newFixture(t, "PN5T257Q24", 1)
		n := f.params.MaxAdditions() + 2
		program := f.program(ModeDecrypt)
		program.MaxBallots = n
		ones := make([][]int64, n)
		for i := range ones {
			ones[i] = []int64{1}
		}
		data, err := f.witness(t, ModeDecrypt, ones).MarshalBinary()
		require.NoError(t, err)

		_, _, err = Run(program, data)
		var fault *ExecutionFault
		require.True(t, errors.As(err, &fault))
		assert.Equal(t, OpAdd, fault.Op)
		assert.Equal(t, n-1, fault.Ballot)
		assert.True(t, errors.Is(err, bfv.ErrNoiseOverflow))

		journal, _, err := Run(program, mustMarshal(t, f.witness(t, ModeDecrypt, ones[:n-1])))
		require.NoError(t, err)
		require.Equal(t, []int64{int64(n - 1)}, journal.Tallies)
	})

	t.Run("WrongProgram", func(t *testing.T) {
		f := newFixture(t, "PN5T65537Q58", 3)
		data := mustMarshal(t, f.witness(t, ModeSelfContained, tickets))
		small, err := bfv.ParamsByName("PN3T1024Q40")
		require.NoError(t, err)

		programs := map[string]Program{
			"Params":  TallyProgram(small, ModeSelfContained, 3),
			"Mode":    f.program(ModeDecrypt),
			"Columns": TallyProgram(f.params, ModeSelfContained, 2),
		}
		for name, program := range programs {
			_, _, err = Run(program, data)
			var fault *ExecutionFault
			require.True(t, errors.As(err, &fault), name)
			assert.Equal(t, OpDecodeWitness, fault.Op, name)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		f := newFixture(t, "PN5T65537Q58", 3)
		_, _, err := Run(f.program(ModeDecrypt), []byte("VPW1\x01\xff\xff\xff\xff"))
		require.True(t, errors.Is(err, ErrMalformedWitness))
	})
}

func mustMarshal(t *testing.T, w *Witness) []byte {
	data, err := w.MarshalBinary()
	require.NoError(t, err)
	return data
}

func TestWitness(t *testing.T) {
	f := newFixture(t, "PN5T65537Q58", 3)
	pk, err := f.poll.PublicKey.MarshalBinary()
	require.NoError(t, err)

	t.Run("Builder", func(t *testing.T) {
		b, err := NewWitnessBuilder(f.params, ModeDecrypt, 3, pk)
		require.NoError(t, err)

		good := f.ballots(t, tickets[:2])
		require.NoError(t, b.AddBallot(good[0]))

		var verr *WitnessValidationError
		require.True(t, errors.As(b.AddBallot(good[1][:2]), &verr))
		assert.Equal(t, 1, verr.Ballot)
		assert.Equal(t, -1, verr.Column)

		truncated := [][]byte{good[1][0], good[1][1][:40], good[1][2]}
		require.True(t, errors.As(b.AddBallot(truncated), &verr))
		assert.Equal(t, 2, verr.Ballot)
		assert.Equal(t, 1, verr.Column)
		assert.True(t, errors.Is(verr, bfv.ErrMalformedCiphertext))

		other := newFixture(t, "PN5T65537Q58", 3)
		err = b.AddBallot(other.ballots(t, tickets[:1])[0])
		assert.True(t, errors.Is(err, bfv.ErrKeyMismatch))

		require.NoError(t, b.AddBallot(good[1]))
		assert.Equal(t, 2, b.Accepted())
		assert.Len(t, b.Rejected(), 3)

		_, err = b.Build()
		require.Error(t, err)

		otherSK, err := other.kh.SecretKeyBytes()
		require.NoError(t, err)
		require.True(t, errors.Is(b.WithSecretKey(otherSK), bfv.ErrKeyMismatch))

		sk, err := f.kh.SecretKeyBytes()
		require.NoError(t, err)
		require.NoError(t, b.WithSecretKey(sk))
		w, err := b.Build()
		require.NoError(t, err)
		require.Equal(t, 2, w.BallotCount())
	})

	t.Run("Empty", func(t *testing.T) {
		b, err := NewWitnessBuilder(f.params, ModeEncryptedTally, 3, pk)
		require.NoError(t, err)
		_, err = b.Build()
		require.Error(t, err)

		_, err = NewWitnessBuilder(f.params, ModeSelfContained, 3, pk)
		require.Error(t, err)
		_, err = NewWitnessBuilder(f.params, ModeEncryptedTally, 0, pk)
		require.Error(t, err)
		_, err = NewWitnessBuilder(f.params, ModeEncryptedTally, 3, pk[:20])
		require.Error(t, err)
	})

	t.Run("SelfContained", func(t *testing.T) {
		_, err := NewSelfContainedWitness(f.params, nil, tickets)
		require.Error(t, err)
		_, err = NewSelfContainedWitness(f.params, []byte("seed"), [][]int64{{1, 0}, {1}})
		var verr *WitnessValidationError
		require.True(t, errors.As(err, &verr))
		_, err = NewSelfContainedWitness(f.params, []byte("seed"), [][]int64{{1 << 40}})
		require.True(t, errors.Is(err, bfv.ErrPlaintextRange))
	})

	t.Run("Codec", func(t *testing.T) {
		for _, mode := range []Mode{ModeDecrypt, ModeEncryptedTally, ModeSelfContained} {
			w := f.witness(t, mode, tickets)
			data := mustMarshal(t, w)
			decoded, err := UnmarshalWitness(data)
			require.NoError(t, err)
			require.Equal(t, w, decoded)

			for _, n := range []int{0, 3, 9, len(data) / 2, len(data) - 1} {
				_, err := UnmarshalWitness(data[:n])
				require.True(t, errors.Is(err, ErrMalformedWitness))
			}
		}
	})

	t.Run("DiscardSecrets", func(t *testing.T) {
		w := f.witness(t, ModeDecrypt, tickets)
		key := w.SecretKey
		require.True(t, w.HasSecrets())
		w.DiscardSecrets()
		require.False(t, w.HasSecrets())
		require.Equal(t, make([]byte, len(key)), key)
	})
}

func TestSession(t *testing.T) {
	f := newFixture(t, "PN5T65537Q58", 3)

	t.Run("Lifecycle", func(t *testing.T) {
		s := f.prover(t, ModeDecrypt).NewSession()
		require.Equal(t, StateIdle, s.State())

		_, err := s.Execute(context.Background())
		require.True(t, errors.Is(err, ErrInvalidTransition))

		w := f.witness(t, ModeDecrypt, tickets)
		require.NoError(t, s.Assemble(w))
		require.Equal(t, StateWitnessAssembled, s.State())

		journal, err := s.Execute(context.Background())
		require.NoError(t, err)
		require.Equal(t, StateCommitted, s.State())
		require.False(t, w.HasSecrets())
		require.Equal(t, []int64{3, 3, 1}, s.Journal().Tallies)

		require.True(t, errors.Is(s.Verify(), ErrInvalidTransition))

		secret := s.exec.secret
		proof, err := s.Prove()
		require.NoError(t, err)
		require.Equal(t, StateProofGenerated, s.State())
		require.Equal(t, make([]int64, len(secret)), secret)
		require.True(t, errors.Is(s.Abandon(), ErrInvalidTransition))

		require.NoError(t, s.Verify())
		require.Equal(t, StateVerified, s.State())
		require.True(t, Verify(proof, journal, f.prover(t, ModeDecrypt).ImageID()))

		require.NoError(t, s.Reset())
		require.Equal(t, StateIdle, s.State())
		require.Nil(t, s.Proof())

		require.NoError(t, s.Assemble(f.witness(t, ModeDecrypt, tickets[:3])))
		journal, err = s.Execute(context.Background())
		require.NoError(t, err)
		require.Equal(t, []int64{2, 1, 0}, journal.Tallies)
	})

	t.Run("ExecutionFault", func(t *testing.T) {
		w := f.witness(t, ModeEncryptedTally, tickets)
		w.Ballots[2][1] = w.Ballots[2][1][:30]

		s := f.prover(t, ModeEncryptedTally).NewSession()
		require.NoError(t, s.Assemble(w))
		_, err := s.Execute(context.Background())
		require.Error(t, err)
		require.Equal(t, StateFailed, s.State())
		require.Equal(t, StateExecuting, s.Err().Stage)
		require.Nil(t, s.Journal())

		var fault *ExecutionFault
		require.True(t, errors.As(err, &fault))
		assert.Equal(t, 2, fault.Ballot)
		assert.Equal(t, 1, fault.Column)

		_, err = s.Prove()
		require.True(t, errors.Is(err, ErrInvalidTransition))
		require.Equal(t, StateExecuting, s.Err().Stage)

		require.NoError(t, s.Reset())
		require.Equal(t, StateIdle, s.State())
		require.Nil(t, s.Err())

		require.NoError(t, s.Assemble(f.witness(t, ModeEncryptedTally, tickets)))
		journal, err := s.Execute(context.Background())
		require.NoError(t, err)
		require.Len(t, journal.EncryptedTallies, 3)
		_, err = s.Prove()
		require.NoError(t, err)
		require.NoError(t, s.Verify())
	})

	t.Run("Abandon", func(t *testing.T) {
		w := f.witness(t, ModeDecrypt, tickets)
		s := f.prover(t, ModeDecrypt).NewSession()
		require.NoError(t, s.Assemble(w))
		require.True(t, errors.Is(s.Abandon(), ErrAbandoned))
		require.Equal(t, StateFailed, s.State())
		require.Equal(t, StateWitnessAssembled, s.Err().Stage)
		require.False(t, w.HasSecrets())
	})

	t.Run("AbandonCommitted", func(t *testing.T) {
		s := f.prover(t, ModeDecrypt).NewSession()
		require.NoError(t, s.Assemble(f.witness(t, ModeDecrypt, tickets)))
		_, err := s.Execute(context.Background())
		require.NoError(t, err)
		secret := s.exec.secret
		require.True(t, errors.Is(s.Abandon(), ErrAbandoned))
		require.Equal(t, make([]int64, len(secret)), secret)
		require.Nil(t, s.exec)
	})

	t.Run("Canceled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		s := f.prover(t, ModeDecrypt).NewSession()
		require.NoError(t, s.Assemble(f.witness(t, ModeDecrypt, tickets)))
		_, err := s.Execute(ctx)
		require.True(t, errors.Is(err, context.Canceled))
		require.Equal(t, StateWitnessAssembled, s.Err().Stage)
	})
}

func TestProveAll(t *testing.T) {
	f := newFixture(t, "PN5T65537Q58", 3)
	p := f.prover(t, ModeDecrypt)
	witnesses := []*Witness{
		f.witness(t, ModeDecrypt, tickets),
		f.witness(t, ModeDecrypt, tickets[:4]),
		f.witness(t, ModeDecrypt, tickets[:1]),
	}

	results := p.ProveAll(context.Background(), witnesses)
	require.Len(t, results, len(witnesses))
	for i, res := range results {
		require.Equal(t, i, res.Index)
		require.NoError(t, res.Err)
		require.True(t, Verify(res.Proof, res.Journal, p.ImageID()))
	}
	require.Equal(t, []int64{3, 3, 1}, results[0].Journal.Tallies)
	require.Equal(t, []int64{2, 1, 1}, results[1].Journal.Tallies)
	require.Equal(t, []int64{1, 0, 0}, results[2].Journal.Tallies)
	require.False(t, Verify(results[0].Proof, results[1].Journal, p.ImageID()))

	mixed := p.ProveAll(context.Background(), []*Witness{f.witness(t, ModeEncryptedTally, tickets)})
	require.True(t, errors.Is(mixed[0].Err, ErrMalformedWitness))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for _, res := range p.ProveAll(ctx, []*Witness{f.witness(t, ModeDecrypt, tickets)}) {
		require.Error(t, res.Err)
	}
}

func TestProgram(t *testing.T) {
	for _, m := range []Mode{ModeDecrypt, ModeEncryptedTally, ModeSelfContained} {
		parsed, err := ParseMode(m.String())
		require.NoError(t, err)
		require.Equal(t, m, parsed)
	}
	_, err := ParseMode("homomorphic-multiplication")
	require.Error(t, err)
	require.False(t, Mode(0).Valid())

	program := TallyProgram(mustParams(t), ModeDecrypt, 3)
	d := program.Digest()
	parsed, err := ParseDigest(d.String())
	require.NoError(t, err)
	require.Equal(t, d, parsed)
	require.False(t, d.IsZero())
	_, err = ParseDigest("abcd")
	require.Error(t, err)

	data, err := program.MarshalBinary()
	require.NoError(t, err)
	decoded, err := UnmarshalProgram(data)
	require.NoError(t, err)
	require.Equal(t, program, decoded)

	other := program
	other.MaxBallots = 9
	require.NotEqual(t, d, other.Digest())
	require.NotEqual(t, imageOf(program, []byte{1}), imageOf(other, []byte{1}))
	require.NotEqual(t, imageOf(program, []byte{1}), imageOf(program, []byte{2}))

	for _, bad := range []Program{
		TallyProgram(mustParams(t), Mode(9), 3),
		TallyProgram(mustParams(t), ModeDecrypt, 0),
		func() Program { p := program; p.MaxBallots = MaxCapacity + 1; return p }(),
	} {
		require.Error(t, bad.Validate())
		_, err := bad.MarshalBinary()
		require.Error(t, err)
	}

	require.Equal(t, "Executing", StateExecuting.String())
	require.Equal(t, "Add", OpAdd.String())
}

func mustParams(t *testing.T) *bfv.Parameters {
	params, err := bfv.ParamsByName("PN5T65537Q58")
	require.NoError(t, err)
	return params
}
