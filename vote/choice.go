package vote

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// EncodeChoice returns the one-hot ballot vector selecting candidate choice
// out of candidates.
func EncodeChoice(choice, candidates int) ([]int64, error) {
	if candidates < 1 {
		return nil, fmt.Errorf("cannot EncodeChoice: %d candidates", candidates)
	}
	if choice < 0 || choice >= candidates {
		return nil, fmt.Errorf("cannot EncodeChoice: choice %d not in [0, %d)", choice, candidates)
	}
	ticket := make([]int64, candidates)
	ticket[choice] = 1
	return ticket, nil
}

// VoterAddress derives an Ethereum-style address from a voter seed: the last
// 20 bytes of its keccak256 digest, hex encoded.
func VoterAddress(seed string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(seed))
	sum := h.Sum(nil)
	return "0x" + hex.EncodeToString(sum[len(sum)-20:])
}
