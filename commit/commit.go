// Package commit implements the polynomial-commitment schemes that bind
// shards to the payload they were encoded from. Four interchangeable schemes
// share one contract: an SRS-based scheme with constant-size opening proofs,
// a folding scheme with logarithmic proofs and super-linear proving cost, a
// homomorphic scheme whose linear verification equation survives recoding,
// and a hash-based scheme with no public parameters at all.
//
// Commitments and proofs are kind-tagged byte strings so blocks stay
// self-contained when exchanged between peers.
package commit

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/dispersal/dispersal/fec"
	"github.com/dispersal/dispersal/field"
	"github.com/dispersal/dispersal/matrix"
)

var (
	// ErrUnsupportedOperation reports a recoding request against a scheme
	// that cannot synthesize proofs without the source payload.
	ErrUnsupportedOperation = errors.New("commit: operation not supported by scheme")

	// ErrPayloadTooLarge reports a payload row wider than the public
	// parameters were set up for.
	ErrPayloadTooLarge = errors.New("commit: payload exceeds public parameters")

	// ErrMalformed reports commitment or proof bytes that do not parse.
	ErrMalformed = errors.New("commit: malformed commitment or proof")

	// ErrUnknownKind reports an unrecognized scheme tag.
	ErrUnknownKind = errors.New("commit: unknown scheme kind")
)

// Kind identifies a commitment scheme.
type Kind uint8

const (
	// KindKZG is the SRS-based scheme: per-row polynomial commitments and
	// a single constant-size quotient opening per shard.
	KindKZG Kind = iota + 1

	// KindFolding is the inner-product-argument scheme: Pedersen row
	// commitments plus a recursively halved folding proof.
	KindFolding

	// KindHomomorphic is the Semi-AVID style scheme: Pedersen row
	// commitments, no proof, fully linear verification. The only scheme
	// that supports recoding.
	KindHomomorphic

	// KindHash is the Merkle scheme over the encoded columns: no public
	// parameters and no group arithmetic.
	KindHash
)

// String returns the kind's wire name.
func (k Kind) String() string {
	switch k {
	case KindKZG:
		return "kzg"
	case KindFolding:
		return "folding"
	case KindHomomorphic:
		return "homomorphic"
	case KindHash:
		return "hash"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// KindFromName parses a wire name back into a Kind.
func KindFromName(name string) (Kind, error) {
	switch name {
	case "kzg":
		return KindKZG, nil
	case "folding":
		return KindFolding, nil
	case "homomorphic":
		return KindHomomorphic, nil
	case "hash":
		return KindHash, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// Commitment binds a full payload matrix. It is identical for every shard
// derived from the same payload and encoding.
type Commitment struct {
	Kind Kind
	Data []byte
}

// Equal reports whether two commitments are byte-identical.
func (c Commitment) Equal(o Commitment) bool {
	return c.Kind == o.Kind && bytes.Equal(c.Data, o.Data)
}

// Proof is per-shard evidence binding that shard to a Commitment.
type Proof struct {
	Kind Kind
	Data []byte
}

// Scheme is the common contract of all commitment schemes. Commit and Prove
// receive both the source matrix and the encoding matrix: SRS and Pedersen
// schemes commit to the source rows and ignore the encoding, while the hash
// scheme commits to the encoded columns.
//
// Commit and Prove are deterministic given (source, coeffs, params);
// randomness is confined to Setup.
type Scheme interface {
	// Kind returns the scheme tag.
	Kind() Kind

	// Setup generates public parameters sized for payloads of up to
	// maxElements field elements per source row.
	Setup(maxElements int, rng io.Reader) (*PublicParams, error)

	// Commit produces the commitment shared by all shards of an encoding.
	Commit(source, coeffs *matrix.Matrix, pp *PublicParams) (Commitment, error)

	// Prove produces the proof for shard index of the encoding.
	Prove(source, coeffs *matrix.Matrix, index int, c Commitment, pp *PublicParams) (Proof, error)

	// Verify checks one shard against commitment and proof. An invalid
	// shard is a normal false return, not an error; errors are reserved
	// for unusable parameters.
	Verify(s fec.Shard, c Commitment, p Proof, pp *PublicParams) (bool, error)

	// SupportsRecoding reports whether proofs can be combined linearly
	// without the source payload.
	SupportsRecoding() bool

	// CombineProofs derives the proof for a recoded shard from two parent
	// proofs. Schemes without recoding return ErrUnsupportedOperation.
	CombineProofs(a, b Proof, w0, w1 field.Element) (Proof, error)
}

// ForKind returns the scheme implementation for a tag.
func ForKind(k Kind) (Scheme, error) {
	switch k {
	case KindKZG:
		return kzgScheme{}, nil
	case KindFolding:
		return foldingScheme{}, nil
	case KindHomomorphic:
		return homomorphicScheme{}, nil
	case KindHash:
		return hashScheme{}, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(k))
	}
}

// shardPolynomial computes the data vector of shard index directly from the
// source and encoding matrices: q[l] = sum_i coeffs[i][index] * source[i][l].
// This is what provers evaluate instead of re-running the full encode.
func shardPolynomial(source, coeffs *matrix.Matrix, index int) []field.Element {
	k := source.Height()
	m := source.Width()
	q := make([]field.Element, m)
	for i := 0; i < k; i++ {
		w := coeffs.At(i, index)
		for l := 0; l < m; l++ {
			q[l] = q[l].Add(w.Mul(source.At(i, l)))
		}
	}
	return q
}
