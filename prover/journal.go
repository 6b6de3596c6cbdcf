package prover

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"
	"golang.org/x/exp/slices"
)

const journalMagic = "VPJ2"

// Journal is the public output committed by a run. InputDigest commits to
// the public key and ballots of the run, or in ModeSelfContained to the seed
// and plaintexts. Tallies holds the decrypted column sums, EncryptedTallies
// the serialized encrypted sums when the guest does not hold the key.
type Journal struct {
	WitnessDigest    Digest
	InputDigest      Digest
	Mode             Mode
	KeyEpoch         uint64
	BallotCount      uint32
	Tallies          []int64
	Total            int64
	EncryptedTallies [][]byte
}

// MarshalBinary returns the canonical encoding of the journal:
//
//	"VPJ2" | witness digest | input digest | mode u8 | epoch u64 | ballots u32 | total i64 |
//	tallies u32 | tallies x i64 | encrypted u32 | encrypted x (u32 len | ciphertext)
func (j *Journal) MarshalBinary() ([]byte, error) {
	buf := []byte(journalMagic)
	buf = append(buf, j.WitnessDigest[:]...)
	buf = append(buf, j.InputDigest[:]...)
	buf = append(buf, byte(j.Mode))
	buf = binary.BigEndian.AppendUint64(buf, j.KeyEpoch)
	buf = binary.BigEndian.AppendUint32(buf, j.BallotCount)
	buf = binary.BigEndian.AppendUint64(buf, uint64(j.Total))
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(j.Tallies)))
	for _, v := range j.Tallies {
		buf = binary.BigEndian.AppendUint64(buf, uint64(v))
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(j.EncryptedTallies)))
	for _, ct := range j.EncryptedTallies {
		buf = appendBytes32(buf, ct)
	}
	return buf, nil
}

// UnmarshalJournal decodes a journal.
func UnmarshalJournal(data []byte) (*Journal, error) {
	r := &reader{data: data}
	j := &Journal{}
	r.magic(journalMagic)
	j.WitnessDigest = r.digest()
	j.InputDigest = r.digest()
	j.Mode = Mode(r.uint8())
	j.KeyEpoch = r.uint64()
	j.BallotCount = r.uint32()
	j.Total = int64(r.uint64())

	if n := r.count(8); n > 0 {
		j.Tallies = make([]int64, n)
		for i := range j.Tallies {
			j.Tallies[i] = int64(r.uint64())
		}
	}
	if n := r.count(4); n > 0 {
		j.EncryptedTallies = make([][]byte, n)
		for i := range j.EncryptedTallies {
			j.EncryptedTallies[i] = r.bytes32()
		}
	}
	if err := r.finish(); err != nil {
		return nil, fmt.Errorf("cannot UnmarshalJournal: %w", err)
	}
	return j, nil
}

// Digest returns the blake3 digest of the canonical encoding.
func (j *Journal) Digest() Digest {
	data, _ := j.MarshalBinary()
	return blake3.Sum256(data)
}

// Clone returns a deep copy of the journal.
func (j *Journal) Clone() *Journal {
	c := *j
	c.Tallies = slices.Clone(j.Tallies)
	if j.EncryptedTallies != nil {
		c.EncryptedTallies = make([][]byte, len(j.EncryptedTallies))
		for i, ct := range j.EncryptedTallies {
			c.EncryptedTallies[i] = slices.Clone(ct)
		}
	}
	return &c
}

// Equal reports whether both journals commit to the same output.
func (j *Journal) Equal(other *Journal) bool {
	if j.WitnessDigest != other.WitnessDigest ||
		j.InputDigest != other.InputDigest ||
		j.Mode != other.Mode ||
		j.KeyEpoch != other.KeyEpoch ||
		j.BallotCount != other.BallotCount ||
		j.Total != other.Total ||
		!slices.Equal(j.Tallies, other.Tallies) ||
		len(j.EncryptedTallies) != len(other.EncryptedTallies) {
		return false
	}
	for i := range j.EncryptedTallies {
		if !bytes.Equal(j.EncryptedTallies[i], other.EncryptedTallies[i]) {
			return false
		}
	}
	return true
}

// WithTallies returns a copy of the journal claiming other tallies, as a
// verifier does to check an expected outcome against a proof.
func (j *Journal) WithTallies(tallies []int64) *Journal {
	c := j.Clone()
	c.Tallies = slices.Clone(tallies)
	c.Total = 0
	for _, v := range tallies {
		c.Total += v
	}
	return c
}
