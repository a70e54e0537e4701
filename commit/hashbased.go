package commit

// Hash-based scheme: a SHA3-256 Merkle tree over the n encoded columns.
// Leaf j hashes the shard index together with its combination and data
// vectors; the commitment is the root and the proof is the authentication
// path. No public parameters, no group arithmetic, no trusted setup.
// Commitment and proof sizes grow with the number of leaves, not with the
// field.

import (
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"

	"github.com/dispersal/dispersal/fec"
	"github.com/dispersal/dispersal/field"
	"github.com/dispersal/dispersal/matrix"
)

// Domain separators for leaf and interior node hashing.
var (
	hashDomainLeaf  = []byte{0x20}
	hashDomainNode  = []byte{0x21}
	hashDomainEmpty = []byte{0x22}
)

const hashSize = 32

type hashScheme struct{}

func (hashScheme) Kind() Kind { return KindHash }

func (hashScheme) Setup(maxElements int, rng io.Reader) (*PublicParams, error) {
	// Nothing beyond the hash function itself.
	return &PublicParams{MaxElements: maxElements}, nil
}

func (hashScheme) Commit(source, coeffs *matrix.Matrix, pp *PublicParams) (Commitment, error) {
	leaves, err := hashLeaves(source, coeffs)
	if err != nil {
		return Commitment{}, err
	}
	root := merkleRoot(leaves)
	return Commitment{Kind: KindHash, Data: root[:]}, nil
}

func (hashScheme) Prove(source, coeffs *matrix.Matrix, index int, c Commitment, pp *PublicParams) (Proof, error) {
	n := coeffs.Width()
	if index < 0 || index >= n {
		return Proof{}, fmt.Errorf("%w: shard index %d out of range [0,%d)",
			ErrMalformed, index, n)
	}
	leaves, err := hashLeaves(source, coeffs)
	if err != nil {
		return Proof{}, err
	}
	siblings := merklePath(leaves, index)
	return Proof{Kind: KindHash, Data: encodeHashProof(uint32(index), siblings)}, nil
}

func (hashScheme) Verify(s fec.Shard, c Commitment, p Proof, pp *PublicParams) (bool, error) {
	if c.Kind != KindHash || p.Kind != KindHash {
		return false, nil
	}
	if len(c.Data) != hashSize {
		return false, nil
	}
	index, siblings, err := decodeHashProof(p.Data)
	if err != nil {
		return false, nil
	}

	node := leafHash(index, s.Combination, s.Data)
	pos := index
	for _, sib := range siblings {
		if pos&1 == 1 {
			node = nodeHash(sib, node)
		} else {
			node = nodeHash(node, sib)
		}
		pos >>= 1
	}

	var root [hashSize]byte
	copy(root[:], c.Data)
	return node == root, nil
}

func (hashScheme) SupportsRecoding() bool { return false }

func (hashScheme) CombineProofs(a, b Proof, w0, w1 field.Element) (Proof, error) {
	// A recoded shard is not a leaf of the committed tree.
	return Proof{}, ErrUnsupportedOperation
}

// hashLeaves re-derives the n encoded columns and hashes each into a leaf.
func hashLeaves(source, coeffs *matrix.Matrix) ([][hashSize]byte, error) {
	product, err := coeffs.Transpose().Mul(source)
	if err != nil {
		return nil, err
	}
	n := coeffs.Width()
	leaves := make([][hashSize]byte, n)
	for j := 0; j < n; j++ {
		leaves[j] = leafHash(uint32(j), coeffs.Column(j), product.Row(j))
	}
	return leaves, nil
}

func leafHash(index uint32, combination, data []field.Element) [hashSize]byte {
	h := sha3.New256()
	h.Write(hashDomainLeaf)
	var idx [4]byte
	binary.BigEndian.PutUint32(idx[:], index)
	h.Write(idx[:])
	for _, e := range combination {
		b := e.Bytes()
		h.Write(b[:])
	}
	for _, e := range data {
		b := e.Bytes()
		h.Write(b[:])
	}
	var out [hashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

func nodeHash(left, right [hashSize]byte) [hashSize]byte {
	h := sha3.New256()
	h.Write(hashDomainNode)
	h.Write(left[:])
	h.Write(right[:])
	var out [hashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

func emptyLeafHash() [hashSize]byte {
	h := sha3.New256()
	h.Write(hashDomainEmpty)
	var out [hashSize]byte
	copy(out[:], h.Sum(nil))
	return out
}

// padLeaves extends the leaf set to the next power of two with the empty
// leaf hash.
func padLeaves(leaves [][hashSize]byte) [][hashSize]byte {
	size := nextPow2(max(len(leaves), 1))
	if len(leaves) == size {
		return leaves
	}
	padded := make([][hashSize]byte, size)
	copy(padded, leaves)
	empty := emptyLeafHash()
	for i := len(leaves); i < size; i++ {
		padded[i] = empty
	}
	return padded
}

// merkleRoot computes the root of the padded leaf set.
func merkleRoot(leaves [][hashSize]byte) [hashSize]byte {
	level := padLeaves(leaves)
	for len(level) > 1 {
		next := make([][hashSize]byte, len(level)/2)
		for i := range next {
			next[i] = nodeHash(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

// merklePath returns the authentication path for leaf index, bottom-up.
func merklePath(leaves [][hashSize]byte, index int) [][hashSize]byte {
	level := padLeaves(leaves)
	var path [][hashSize]byte
	pos := index
	for len(level) > 1 {
		path = append(path, level[pos^1])
		next := make([][hashSize]byte, len(level)/2)
		for i := range next {
			next[i] = nodeHash(level[2*i], level[2*i+1])
		}
		level = next
		pos >>= 1
	}
	return path
}

// Proof wire format: index(4) | depth(1) | sibling 32B x depth.
func encodeHashProof(index uint32, siblings [][hashSize]byte) []byte {
	buf := make([]byte, 0, 5+len(siblings)*hashSize)
	buf = binary.BigEndian.AppendUint32(buf, index)
	buf = append(buf, byte(len(siblings)))
	for _, s := range siblings {
		buf = append(buf, s[:]...)
	}
	return buf
}

func decodeHashProof(data []byte) (uint32, [][hashSize]byte, error) {
	if len(data) < 5 {
		return 0, nil, fmt.Errorf("%w: hash proof too short", ErrMalformed)
	}
	index := binary.BigEndian.Uint32(data[:4])
	depth := int(data[4])
	if len(data) != 5+depth*hashSize {
		return 0, nil, fmt.Errorf("%w: hash proof length %d, want %d",
			ErrMalformed, len(data), 5+depth*hashSize)
	}
	siblings := make([][hashSize]byte, depth)
	for i := range siblings {
		copy(siblings[i][:], data[5+i*hashSize:])
	}
	return index, siblings, nil
}
