package prover

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
)

// Op is a guest operation recorded in the trace.
type Op uint8

const (
	OpDecodeWitness Op = iota + 1
	OpDecodeKey
	OpKeyGen
	OpEncrypt
	OpDecodeCiphertext
	OpAdd
	OpDecrypt
	OpCommit
)

var opNames = [...]string{
	OpDecodeWitness:    "DecodeWitness",
	OpDecodeKey:        "DecodeKey",
	OpKeyGen:           "KeyGen",
	OpEncrypt:          "Encrypt",
	OpDecodeCiphertext: "DecodeCiphertext",
	OpAdd:              "Add",
	OpDecrypt:          "Decrypt",
	OpCommit:           "Commit",
}

func (op Op) String() string {
	if int(op) < len(opNames) && opNames[op] != "" {
		return opNames[op]
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// Trace is the outcome of the hash chain over the guest operations of a run.
type Trace struct {
	Root   Digest
	Cycles uint64
}

// tracer chains h_i = blake3(h_{i-1} | op | ballot | column | digest),
// starting from the program digest.
type tracer struct {
	head   Digest
	cycles uint64
	buf    []byte
}

func newTracer(program Digest) *tracer {
	return &tracer{head: program, buf: make([]byte, 0, 32+1+4+4+32)}
}

func (t *tracer) record(op Op, ballot, column int, digest Digest) {
	b := append(t.buf[:0], t.head[:]...)
	b = append(b, byte(op))
	b = binary.BigEndian.AppendUint32(b, uint32(int32(ballot)))
	b = binary.BigEndian.AppendUint32(b, uint32(int32(column)))
	b = append(b, digest[:]...)
	t.head = blake3.Sum256(b)
	t.cycles++
}

func (t *tracer) trace() *Trace {
	return &Trace{Root: t.head, Cycles: t.cycles}
}
