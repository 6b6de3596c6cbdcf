package party

import (
	"encoding/binary"
	"fmt"

	"VoteProof/crypto/bfv"
)

// Poll is the public description of an encrypted poll: the parameters of the
// key epoch, its public key and the candidates, one ciphertext column each.
type Poll struct {
	Params     *bfv.Parameters
	PublicKey  *bfv.PublicKey
	Candidates []string
}

// NewPoll creates a poll over candidates encrypted under pk.
func NewPoll(params *bfv.Parameters, pk *bfv.PublicKey, candidates []string) *Poll {
	c := make([]string, len(candidates))
	copy(c, candidates)
	return &Poll{Params: params, PublicKey: pk, Candidates: c}
}

// Columns returns the number of ciphertexts in a ballot.
func (poll *Poll) Columns() int {
	return len(poll.Candidates)
}

// Epoch returns the key epoch of the poll.
func (poll *Poll) Epoch() uint64 {
	return poll.PublicKey.Epoch
}

// MarshalBinary encodes the poll on a slice of bytes.
//
//	logN u64 | t u64 | q u64 | eta u64 | len u32 | public key | count u32 | count x (len u16 | name)
func (poll *Poll) MarshalBinary() (data []byte, err error) {
	lit := poll.Params.Literal()
	data = make([]byte, 32, 32+bfv.PublicKeySize(poll.Params)+64)
	binary.BigEndian.PutUint64(data[0:8], uint64(lit.LogN))
	binary.BigEndian.PutUint64(data[8:16], lit.T)
	binary.BigEndian.PutUint64(data[16:24], lit.Q)
	binary.BigEndian.PutUint64(data[24:32], uint64(lit.NoiseEta))

	pk, err := poll.PublicKey.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("cannot MarshalBinary: %w", err)
	}
	data = binary.BigEndian.AppendUint32(data, uint32(len(pk)))
	data = append(data, pk...)

	data = binary.BigEndian.AppendUint32(data, uint32(len(poll.Candidates)))
	for _, c := range poll.Candidates {
		if len(c) > 0xFFFF {
			return nil, fmt.Errorf("cannot MarshalBinary: candidate name too long")
		}
		data = binary.BigEndian.AppendUint16(data, uint16(len(c)))
		data = append(data, c...)
	}
	return data, nil
}

// UnmarshalBinary decodes a slice of bytes on the poll.
func (poll *Poll) UnmarshalBinary(data []byte) error {
	if len(data) < 36 {
		return fmt.Errorf("cannot UnmarshalBinary: poll too short")
	}
	lit := bfv.ParametersLiteral{
		LogN:     int(binary.BigEndian.Uint64(data[0:8])),
		T:        binary.BigEndian.Uint64(data[8:16]),
		Q:        binary.BigEndian.Uint64(data[16:24]),
		NoiseEta: int(binary.BigEndian.Uint64(data[24:32])),
	}
	params, err := bfv.NewParametersFromLiteral(lit)
	if err != nil {
		return fmt.Errorf("cannot UnmarshalBinary: %w", err)
	}

	pointer := 32
	pkLen := int(binary.BigEndian.Uint32(data[pointer : pointer+4]))
	pointer += 4
	if pkLen != bfv.PublicKeySize(params) || len(data) < pointer+pkLen+4 {
		return fmt.Errorf("cannot UnmarshalBinary: public key length %d: %w", pkLen, bfv.ErrMalformedCiphertext)
	}
	pk, err := bfv.UnmarshalPublicKey(params, data[pointer:pointer+pkLen])
	if err != nil {
		return fmt.Errorf("cannot UnmarshalBinary: %w", err)
	}
	pointer += pkLen

	count := int(binary.BigEndian.Uint32(data[pointer : pointer+4]))
	pointer += 4
	// every name takes at least its 2-byte length
	if count > (len(data)-pointer)/2 {
		return fmt.Errorf("cannot UnmarshalBinary: %d candidates in %d bytes", count, len(data)-pointer)
	}
	candidates := make([]string, count)
	for i := range candidates {
		if len(data) < pointer+2 {
			return fmt.Errorf("cannot UnmarshalBinary: truncated candidate %d", i)
		}
		n := int(binary.BigEndian.Uint16(data[pointer : pointer+2]))
		pointer += 2
		if len(data) < pointer+n {
			return fmt.Errorf("cannot UnmarshalBinary: truncated candidate %d", i)
		}
		candidates[i] = string(data[pointer : pointer+n])
		pointer += n
	}
	if pointer != len(data) {
		return fmt.Errorf("cannot UnmarshalBinary: %d trailing bytes", len(data)-pointer)
	}

	poll.Params = params
	poll.PublicKey = pk
	poll.Candidates = candidates
	return nil
}
