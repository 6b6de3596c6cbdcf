package prover

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/blake3"

	"VoteProof/crypto/bfv"
)

const (
	witnessMagic = "VPW1"
	// MaxColumns bounds the number of ciphertexts in one ballot.
	MaxColumns = 256
	// MaxSeedSize is the largest key generation seed, the blake2b key limit.
	MaxSeedSize = 64
)

// Witness is the complete input of one run. Ballots[i][j] is the serialized
// ciphertext of column j of ballot i. SecretKey is only set in ModeDecrypt,
// KeySeed and Plain only in ModeSelfContained.
type Witness struct {
	ParamsID  string
	Mode      Mode
	Columns   int
	PublicKey []byte
	Ballots   [][][]byte
	SecretKey []byte
	KeySeed   []byte
	Plain     [][]int64
}

// MarshalBinary returns the canonical encoding of the witness:
//
//	"VPW1" | mode u8 | columns u32 | paramsID (u16 len) | public key (u32 len) |
//	ballots u32 | ballots x columns x (u32 len | ciphertext) | secret key (u32 len) |
//	seed (u16 len) | rows u32 | rows x columns x i64
func (w *Witness) MarshalBinary() ([]byte, error) {
	if w.Columns < 1 || w.Columns > MaxColumns {
		return nil, fmt.Errorf("cannot MarshalBinary: %d columns", w.Columns)
	}
	buf := []byte(witnessMagic)
	buf = append(buf, byte(w.Mode))
	buf = binary.BigEndian.AppendUint32(buf, uint32(w.Columns))
	buf = appendBytes16(buf, []byte(w.ParamsID))
	buf = appendBytes32(buf, w.PublicKey)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(w.Ballots)))
	for i, ballot := range w.Ballots {
		if len(ballot) != w.Columns {
			return nil, fmt.Errorf("cannot MarshalBinary: ballot %d has %d columns, want %d", i, len(ballot), w.Columns)
		}
		for _, ct := range ballot {
			buf = appendBytes32(buf, ct)
		}
	}

	buf = appendBytes32(buf, w.SecretKey)
	buf = appendBytes16(buf, w.KeySeed)

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(w.Plain)))
	for i, row := range w.Plain {
		if len(row) != w.Columns {
			return nil, fmt.Errorf("cannot MarshalBinary: row %d has %d columns, want %d", i, len(row), w.Columns)
		}
		for _, v := range row {
			buf = binary.BigEndian.AppendUint64(buf, uint64(v))
		}
	}
	return buf, nil
}

// UnmarshalWitness decodes a witness. Every count is checked against the
// remaining input before allocation.
func UnmarshalWitness(data []byte) (*Witness, error) {
	r := &reader{data: data}
	w := &Witness{}
	r.magic(witnessMagic)
	w.Mode = Mode(r.uint8())
	w.Columns = int(r.uint32())
	if r.err == nil && (w.Columns < 1 || w.Columns > MaxColumns) {
		r.fail("%d columns", w.Columns)
	}
	w.ParamsID = string(r.bytes16())
	w.PublicKey = r.bytes32()

	// a serialized ciphertext takes at least its 4-byte length
	nBallots := r.count(4 * w.Columns)
	if nBallots > 0 {
		w.Ballots = make([][][]byte, nBallots)
	}
	for i := 0; i < nBallots && r.err == nil; i++ {
		w.Ballots[i] = make([][]byte, w.Columns)
		for j := range w.Ballots[i] {
			w.Ballots[i][j] = r.bytes32()
		}
	}

	w.SecretKey = r.bytes32()
	w.KeySeed = r.bytes16()

	nRows := r.count(8 * w.Columns)
	if nRows > 0 {
		w.Plain = make([][]int64, nRows)
	}
	for i := 0; i < nRows && r.err == nil; i++ {
		w.Plain[i] = make([]int64, w.Columns)
		for j := range w.Plain[i] {
			w.Plain[i][j] = int64(r.uint64())
		}
	}

	if err := r.finish(); err != nil {
		return nil, fmt.Errorf("cannot UnmarshalWitness: %v: %w", err, ErrMalformedWitness)
	}
	if !w.Mode.Valid() {
		return nil, fmt.Errorf("cannot UnmarshalWitness: %s: %w", w.Mode, ErrMalformedWitness)
	}
	return w, nil
}

// Digest returns the blake3 digest of the canonical encoding.
func (w *Witness) Digest() (Digest, error) {
	data, err := w.MarshalBinary()
	if err != nil {
		return Digest{}, err
	}
	return blake3.Sum256(data), nil
}

// BallotCount returns the number of ballots, encrypted or plain.
func (w *Witness) BallotCount() int {
	if w.Mode == ModeSelfContained {
		return len(w.Plain)
	}
	return len(w.Ballots)
}

// HasSecrets reports whether the witness still carries secret material.
func (w *Witness) HasSecrets() bool {
	return len(w.SecretKey) > 0 || len(w.KeySeed) > 0 || len(w.Plain) > 0
}

// DiscardSecrets zeroes and drops the secret key, the key seed and the
// plaintext ballots.
func (w *Witness) DiscardSecrets() {
	zero(w.SecretKey)
	zero(w.KeySeed)
	for _, row := range w.Plain {
		for i := range row {
			row[i] = 0
		}
	}
	w.SecretKey, w.KeySeed, w.Plain = nil, nil, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// WitnessBuilder assembles the witness of a run from serialized ballots.
// Invalid ballots are rejected one by one and the rest is kept.
type WitnessBuilder struct {
	params   *bfv.Parameters
	pk       *bfv.PublicKey
	witness  Witness
	received int
	rejected []*WitnessValidationError
}

// NewWitnessBuilder starts a witness for ballots of columns ciphertexts
// encrypted under the serialized public key pk.
func NewWitnessBuilder(params *bfv.Parameters, mode Mode, columns int, pk []byte) (*WitnessBuilder, error) {
	if mode != ModeDecrypt && mode != ModeEncryptedTally {
		return nil, fmt.Errorf("cannot NewWitnessBuilder: mode %s does not take ciphertexts", mode)
	}
	if columns < 1 || columns > MaxColumns {
		return nil, fmt.Errorf("cannot NewWitnessBuilder: %d columns not in [1, %d]", columns, MaxColumns)
	}
	publicKey, err := bfv.UnmarshalPublicKey(params, pk)
	if err != nil {
		return nil, fmt.Errorf("cannot NewWitnessBuilder: %w", err)
	}
	b := &WitnessBuilder{params: params, pk: publicKey}
	b.witness = Witness{
		ParamsID:  params.ID(),
		Mode:      mode,
		Columns:   columns,
		PublicKey: append([]byte(nil), pk...),
	}
	return b, nil
}

// AddBallot validates every column of a serialized ballot and appends it to
// the witness. A rejected ballot is recorded and reported with a
// *WitnessValidationError; the witness is left unchanged.
func (b *WitnessBuilder) AddBallot(rows [][]byte) error {
	index := b.received
	b.received++

	if len(rows) != b.witness.Columns {
		return b.reject(index, -1, fmt.Errorf("%d columns, want %d", len(rows), b.witness.Columns))
	}
	ballot := make([][]byte, len(rows))
	for j, row := range rows {
		ct, err := bfv.UnmarshalCiphertext(b.params, row)
		if err != nil {
			return b.reject(index, j, err)
		}
		if ct.Epoch != b.pk.Epoch {
			return b.reject(index, j, fmt.Errorf("ciphertext epoch %016x, key epoch %016x: %w", ct.Epoch, b.pk.Epoch, bfv.ErrKeyMismatch))
		}
		ballot[j] = append([]byte(nil), row...)
	}
	b.witness.Ballots = append(b.witness.Ballots, ballot)
	return nil
}

func (b *WitnessBuilder) reject(ballot, column int, err error) error {
	e := &WitnessValidationError{Ballot: ballot, Column: column, Err: err}
	b.rejected = append(b.rejected, e)
	return e
}

// WithSecretKey attaches the serialized secret key of the epoch. Only valid
// in ModeDecrypt.
func (b *WitnessBuilder) WithSecretKey(sk []byte) error {
	if b.witness.Mode != ModeDecrypt {
		return fmt.Errorf("cannot WithSecretKey: mode %s", b.witness.Mode)
	}
	key, err := bfv.UnmarshalSecretKey(b.params, sk)
	if err != nil {
		return fmt.Errorf("cannot WithSecretKey: %w", err)
	}
	defer key.Wipe()
	if key.Epoch != b.pk.Epoch {
		return fmt.Errorf("cannot WithSecretKey: %w", bfv.ErrKeyMismatch)
	}
	b.witness.SecretKey = append([]byte(nil), sk...)
	return nil
}

// Accepted returns the number of ballots in the witness.
func (b *WitnessBuilder) Accepted() int {
	return len(b.witness.Ballots)
}

// Rejected returns the ballots rejected so far.
func (b *WitnessBuilder) Rejected() []*WitnessValidationError {
	return b.rejected
}

// Build returns the assembled witness.
func (b *WitnessBuilder) Build() (*Witness, error) {
	if len(b.witness.Ballots) == 0 {
		return nil, fmt.Errorf("cannot Build: no valid ballot out of %d", b.received)
	}
	if b.witness.Mode == ModeDecrypt && len(b.witness.SecretKey) == 0 {
		return nil, fmt.Errorf("cannot Build: mode %s needs a secret key", b.witness.Mode)
	}
	w := b.witness
	return &w, nil
}

// NewSelfContainedWitness builds the witness of a run that generates its own
// key pair from seed and encrypts the plaintext ballots inside the guest.
func NewSelfContainedWitness(params *bfv.Parameters, seed []byte, plain [][]int64) (*Witness, error) {
	if len(seed) == 0 || len(seed) > MaxSeedSize {
		return nil, fmt.Errorf("cannot NewSelfContainedWitness: seed of %d bytes not in [1, %d]", len(seed), MaxSeedSize)
	}
	if len(plain) == 0 {
		return nil, fmt.Errorf("cannot NewSelfContainedWitness: no ballot")
	}
	columns := len(plain[0])
	if columns < 1 || columns > MaxColumns {
		return nil, fmt.Errorf("cannot NewSelfContainedWitness: %d columns not in [1, %d]", columns, MaxColumns)
	}
	rows := make([][]int64, len(plain))
	for i, row := range plain {
		if len(row) != columns {
			return nil, &WitnessValidationError{Ballot: i, Column: -1, Err: fmt.Errorf("%d columns, want %d", len(row), columns)}
		}
		for j, v := range row {
			if _, err := bfv.NewPlaintextValue(params, v); err != nil {
				return nil, &WitnessValidationError{Ballot: i, Column: j, Err: err}
			}
		}
		rows[i] = append([]int64(nil), row...)
	}
	return &Witness{
		ParamsID: params.ID(),
		Mode:     ModeSelfContained,
		Columns:  columns,
		KeySeed:  append([]byte(nil), seed...),
		Plain:    rows,
	}, nil
}
