package block

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/dispersal/dispersal/field"
)

// Summary is a read-only structural view of a block, suitable for logging
// and CLI display. Digests are truncated keccak256 prefixes, not the full
// hashes; they identify a block to a human, not to a verifier.
type Summary struct {
	Kind         string
	CodeLength   int
	DataElements int
	SizeHint     uint64
	Combination  []string
	DataDigest   string
	CommitDigest string
	ProofDigest  string
	ProofBytes   int
}

// Inspect summarizes a block without verifying it.
func Inspect(b Block) Summary {
	comb := make([]string, len(b.Shard.Combination))
	for i, c := range b.Shard.Combination {
		v := c.BigInt()
		u, overflow := uint256.FromBig(v)
		if overflow {
			u = new(uint256.Int)
		}
		comb[i] = u.Hex()
	}

	data := make([]byte, 0, len(b.Shard.Data)*field.ElementBytes)
	for _, e := range b.Shard.Data {
		eb := e.Bytes()
		data = append(data, eb[:]...)
	}

	return Summary{
		Kind:         b.Commitment.Kind.String(),
		CodeLength:   len(b.Shard.Combination),
		DataElements: len(b.Shard.Data),
		SizeHint:     b.Shard.SizeHint,
		Combination:  comb,
		DataDigest:   shortDigest(data),
		CommitDigest: shortDigest(b.Commitment.Data),
		ProofDigest:  shortDigest(b.Proof.Data),
		ProofBytes:   len(b.Proof.Data),
	}
}

func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "block kind=%s k=%d elems=%d size=%d\n", s.Kind, s.CodeLength, s.DataElements, s.SizeHint)
	fmt.Fprintf(&sb, "  combination: [%s]\n", strings.Join(s.Combination, " "))
	fmt.Fprintf(&sb, "  data:   %s\n", s.DataDigest)
	fmt.Fprintf(&sb, "  commit: %s\n", s.CommitDigest)
	fmt.Fprintf(&sb, "  proof:  %s (%d bytes)", s.ProofDigest, s.ProofBytes)
	return sb.String()
}

func shortDigest(b []byte) string {
	if len(b) == 0 {
		return "(empty)"
	}
	h := crypto.Keccak256(b)
	return fmt.Sprintf("%x", h[:8])
}
