package prover

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
)

const (
	proofMagic     = "VPP2"
	statementMagic = "VPS1"
)

// Statement is the public input of a run that the journal only commits to:
// the public key and the ballots, as the witness carries them. It is empty
// in ModeSelfContained.
type Statement struct {
	PublicKey []byte
	Ballots   [][][]byte
}

// MarshalBinary encodes the statement:
//
//	"VPS1" | key (u32 len) | ballots u32 | per ballot: columns u32 | columns x (u32 len | ciphertext)
func (s *Statement) MarshalBinary() ([]byte, error) {
	buf := []byte(statementMagic)
	buf = appendBytes32(buf, s.PublicKey)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s.Ballots)))
	for _, rows := range s.Ballots {
		buf = binary.BigEndian.AppendUint32(buf, uint32(len(rows)))
		for _, row := range rows {
			buf = appendBytes32(buf, row)
		}
	}
	return buf, nil
}

func (r *reader) statement() Statement {
	var s Statement
	r.magic(statementMagic)
	s.PublicKey = r.bytes32()
	if n := r.count(4); n > 0 {
		s.Ballots = make([][][]byte, n)
		for i := range s.Ballots {
			s.Ballots[i] = make([][]byte, r.count(4))
			for j := range s.Ballots[i] {
				s.Ballots[i][j] = r.bytes32()
			}
		}
	}
	return s
}

// Digest returns the blake3 digest of the encoding. The journal of a run
// over ciphertexts commits to it.
func (s *Statement) Digest() Digest {
	data, _ := s.MarshalBinary()
	return blake3.Sum256(append([]byte("VoteProof/input/v1"), data...))
}

// IsEmpty reports whether the statement holds neither key nor ballot.
func (s *Statement) IsEmpty() bool {
	return len(s.PublicKey) == 0 && len(s.Ballots) == 0
}

// Proof is a Groth16 proof over BN254 that a journal is the output of a
// program on a statement. It carries the program and the verifying key of
// its circuit, both bound by ImageID. TraceRoot and Cycles describe the run
// and are bound to the proof, VerifyByReplay checks them. A Proof is never
// mutated once produced.
type Proof struct {
	ImageID   Digest
	Program   Program
	TraceRoot Digest
	Cycles    uint64
	Statement Statement
	Key       []byte
	SNARK     []byte
}

func (p *Proof) trace() Trace {
	return Trace{Root: p.TraceRoot, Cycles: p.Cycles}
}

// MarshalBinary encodes the proof:
//
//	"VPP2" | image | program | trace root | cycles u64 | statement |
//	verifying key (u32 len) | snark (u16 len)
func (p *Proof) MarshalBinary() ([]byte, error) {
	if len(p.SNARK) > 0xFFFF {
		return nil, fmt.Errorf("cannot MarshalBinary: snark of %d bytes", len(p.SNARK))
	}
	if err := p.Program.Validate(); err != nil {
		return nil, fmt.Errorf("cannot MarshalBinary: %w", err)
	}
	statement, err := p.Statement.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("cannot MarshalBinary: %w", err)
	}
	buf := []byte(proofMagic)
	buf = append(buf, p.ImageID[:]...)
	buf = p.Program.appendBinary(buf)
	buf = append(buf, p.TraceRoot[:]...)
	buf = binary.BigEndian.AppendUint64(buf, p.Cycles)
	buf = append(buf, statement...)
	buf = appendBytes32(buf, p.Key)
	buf = appendBytes16(buf, p.SNARK)
	return buf, nil
}

// UnmarshalProof decodes a proof.
func UnmarshalProof(data []byte) (*Proof, error) {
	r := &reader{data: data}
	p := &Proof{}
	r.magic(proofMagic)
	p.ImageID = r.digest()
	p.Program = r.program()
	p.TraceRoot = r.digest()
	p.Cycles = r.uint64()
	p.Statement = r.statement()
	p.Key = r.bytes32()
	p.SNARK = r.bytes16()
	if err := r.finish(); err != nil {
		return nil, fmt.Errorf("cannot UnmarshalProof: %w", err)
	}
	return p, nil
}
