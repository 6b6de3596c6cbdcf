// Package prover is the verifiable execution harness of the tally.
//
// The host assembles a Witness of serialized ciphertexts and keys, the guest
// (Run) turns it into a Journal while recording a Trace of every operation,
// and the Prover proves with a Groth16 circuit over BN254 that the journal
// is the tally of the ballots. Anyone holding the Proof, the Journal and the
// expected image ID can check the result with Verify, without the witness.
package prover

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"

	"VoteProof/crypto/bfv"
)

// Digest is a 32-byte blake3 digest.
type Digest [32]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// IsZero reports whether d is the zero digest.
func (d Digest) IsZero() bool {
	return d == Digest{}
}

// ParseDigest decodes a hex encoded digest.
func ParseDigest(s string) (d Digest, err error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("cannot ParseDigest: %w", err)
	}
	if len(b) != len(d) {
		return d, fmt.Errorf("cannot ParseDigest: %d bytes", len(b))
	}
	copy(d[:], b)
	return d, nil
}

// Mode selects which steps the guest performs.
type Mode uint8

const (
	// ModeDecrypt adds the ballots and decrypts the column sums with the
	// secret key carried by the witness.
	ModeDecrypt Mode = iota + 1
	// ModeEncryptedTally adds the ballots and commits the encrypted column
	// sums. Decryption happens outside, at the key holder.
	ModeEncryptedTally
	// ModeSelfContained generates the key pair from a seed, encrypts the
	// plaintext ballots, adds and decrypts, all inside the guest.
	ModeSelfContained
)

var modeNames = map[Mode]string{
	ModeDecrypt:        "decrypt",
	ModeEncryptedTally: "encrypted-tally",
	ModeSelfContained:  "self-contained",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", uint8(m))
}

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

// ParseMode returns the mode named s.
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("cannot ParseMode: unknown mode %q", s)
}

const (
	// DefaultMaxBallots is the ballot capacity of TallyProgram.
	DefaultMaxBallots = 8
	// MaxCapacity bounds the ballot capacity of a program.
	MaxCapacity = 1024
)

// Program identifies the guest computation and fixes the shape of the
// circuit proving its runs. A run fails on a witness of another mode, of
// another number of columns, or of more than MaxBallots ballots.
type Program struct {
	Name       string
	Version    uint32
	Params     bfv.ParametersLiteral
	Mode       Mode
	Columns    int
	MaxBallots int
}

// TallyProgram is the guest tallying up to DefaultMaxBallots ballots of
// columns ciphertexts under params.
func TallyProgram(params *bfv.Parameters, mode Mode, columns int) Program {
	return Program{
		Name:       "vote-tally",
		Version:    2,
		Params:     params.Literal(),
		Mode:       mode,
		Columns:    columns,
		MaxBallots: DefaultMaxBallots,
	}
}

// Validate checks the shape of the program.
func (p Program) Validate() error {
	if len(p.Name) > 0xFFFF {
		return fmt.Errorf("program name of %d bytes", len(p.Name))
	}
	if _, err := bfv.NewParametersFromLiteral(p.Params); err != nil {
		return err
	}
	if !p.Mode.Valid() {
		return fmt.Errorf("program of unknown %s", p.Mode)
	}
	if p.Columns < 1 || p.Columns > MaxColumns {
		return fmt.Errorf("program of %d columns not in [1, %d]", p.Columns, MaxColumns)
	}
	if p.MaxBallots < 1 || p.MaxBallots > MaxCapacity {
		return fmt.Errorf("program capacity %d not in [1, %d]", p.MaxBallots, MaxCapacity)
	}
	return nil
}

// MarshalBinary returns the canonical encoding of the program:
//
//	name (u16 len) | version u32 | logN u64 | T u64 | Q u64 | eta u64 | mode u8 | columns u16 | capacity u32
func (p Program) MarshalBinary() ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("cannot MarshalBinary: %w", err)
	}
	return p.appendBinary(nil), nil
}

func (p Program) appendBinary(buf []byte) []byte {
	buf = appendBytes16(buf, []byte(p.Name))
	buf = binary.BigEndian.AppendUint32(buf, p.Version)
	buf = binary.BigEndian.AppendUint64(buf, uint64(p.Params.LogN))
	buf = binary.BigEndian.AppendUint64(buf, p.Params.T)
	buf = binary.BigEndian.AppendUint64(buf, p.Params.Q)
	buf = binary.BigEndian.AppendUint64(buf, uint64(p.Params.NoiseEta))
	buf = append(buf, byte(p.Mode))
	buf = binary.BigEndian.AppendUint16(buf, uint16(p.Columns))
	return binary.BigEndian.AppendUint32(buf, uint32(p.MaxBallots))
}

func (r *reader) program() Program {
	p := Program{Name: string(r.bytes16()), Version: r.uint32()}
	p.Params.LogN = int(r.uint64())
	p.Params.T = r.uint64()
	p.Params.Q = r.uint64()
	p.Params.NoiseEta = int(r.uint64())
	p.Mode = Mode(r.uint8())
	p.Columns = int(r.uint16())
	p.MaxBallots = int(r.uint32())
	return p
}

// UnmarshalProgram decodes and validates a program.
func UnmarshalProgram(data []byte) (Program, error) {
	r := &reader{data: data}
	p := r.program()
	if err := r.finish(); err != nil {
		return Program{}, fmt.Errorf("cannot UnmarshalProgram: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Program{}, fmt.Errorf("cannot UnmarshalProgram: %w", err)
	}
	return p, nil
}

// Digest returns the blake3 digest of the program encoding. Traces start
// from it.
func (p Program) Digest() Digest {
	buf := p.appendBinary([]byte("VoteProof/program/v2"))
	return blake3.Sum256(buf)
}

// imageOf binds a program to the verifying key of its circuit. The result
// is the image ID verifiers pin.
func imageOf(p Program, vk []byte) Digest {
	buf := p.appendBinary([]byte("VoteProof/image/v2"))
	buf = appendBytes32(buf, vk)
	return blake3.Sum256(buf)
}

func (p Program) String() string {
	return fmt.Sprintf("%s@v%d/%s/%dx%d", p.Name, p.Version, p.Mode, p.MaxBallots, p.Columns)
}
