package commit

// Homomorphic scheme, in the Semi-AVID style. The commitment is the list of
// Pedersen row commitments C_i; a shard with combination vector c and data d
// verifies by the linear equation
//
//	sum_i c[i] * C_i == sum_l d[l] * Basis[l]
//
// No per-shard proof is needed, and because both sides are linear in the
// shard, a weighted combination of two valid shards verifies against the
// same commitment. This is the only scheme that lets recoding propagate to
// the block level without the source payload.

import (
	"fmt"
	"io"

	"github.com/dispersal/dispersal/fec"
	"github.com/dispersal/dispersal/field"
	"github.com/dispersal/dispersal/group"
	"github.com/dispersal/dispersal/matrix"
)

type homomorphicScheme struct{}

func (homomorphicScheme) Kind() Kind { return KindHomomorphic }

func (homomorphicScheme) Setup(maxElements int, rng io.Reader) (*PublicParams, error) {
	if maxElements < 0 {
		return nil, fmt.Errorf("%w: negative setup size", ErrPayloadTooLarge)
	}
	basis, err := generateBasis(nextPow2(maxElements))
	if err != nil {
		return nil, err
	}
	return &PublicParams{MaxElements: maxElements, Basis: basis}, nil
}

func (homomorphicScheme) Commit(source, coeffs *matrix.Matrix, pp *PublicParams) (Commitment, error) {
	if err := checkBasis(source.Width(), pp); err != nil {
		return Commitment{}, err
	}
	rows, err := pedersenRows(source, pp.Basis)
	if err != nil {
		return Commitment{}, err
	}
	return Commitment{Kind: KindHomomorphic, Data: encodePoints(rows)}, nil
}

func (homomorphicScheme) Prove(source, coeffs *matrix.Matrix, index int, c Commitment, pp *PublicParams) (Proof, error) {
	// The linear verification equation needs no per-shard evidence.
	return Proof{Kind: KindHomomorphic}, nil
}

func (homomorphicScheme) Verify(s fec.Shard, c Commitment, p Proof, pp *PublicParams) (bool, error) {
	m := len(s.Data)
	if err := checkBasis(m, pp); err != nil {
		return false, err
	}
	if c.Kind != KindHomomorphic || p.Kind != KindHomomorphic {
		return false, nil
	}
	if len(p.Data) != 0 {
		return false, nil
	}
	rows, err := decodePoints(c.Data)
	if err != nil {
		return false, nil
	}
	if len(rows) != len(s.Combination) {
		return false, nil
	}

	lhs, err := group.MSM(rows, s.Combination)
	if err != nil {
		return false, err
	}
	rhs, err := group.MSM(pp.Basis[:m], s.Data)
	if err != nil {
		return false, err
	}
	return lhs.Equal(rhs), nil
}

func (homomorphicScheme) SupportsRecoding() bool { return true }

func (homomorphicScheme) CombineProofs(a, b Proof, w0, w1 field.Element) (Proof, error) {
	if a.Kind != KindHomomorphic || b.Kind != KindHomomorphic {
		return Proof{}, ErrUnsupportedOperation
	}
	return Proof{Kind: KindHomomorphic}, nil
}
