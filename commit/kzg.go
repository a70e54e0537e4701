package commit

// SRS-based scheme. Each source row i is read as a polynomial p_i(X) and
// committed as C_i = [p_i(tau)]G1 under the power series from Setup. Shard j
// carries the combined polynomial q_j = sum_i coeffs[i][j] p_i, whose
// commitment the verifier derives linearly from the row commitments. The
// proof is a single quotient opening of q_j at a Fiat-Shamir challenge z:
//
//	pi = [(q_j(tau) - q_j(z)) / (tau - z)]G1
//
// verified with the pairing equation
//
//	e(C_q - [y]G1, G2) == e(pi, [tau]G2 - [z]G2)
//
// Proof size is one G1 point regardless of payload size; Setup cost and
// parameter size grow with the maximum payload.

import (
	"fmt"
	"io"

	"github.com/dispersal/dispersal/fec"
	"github.com/dispersal/dispersal/field"
	"github.com/dispersal/dispersal/group"
	"github.com/dispersal/dispersal/matrix"
	"github.com/dispersal/dispersal/poly"
)

const kzgChallengeLabel = "dispersal:kzg:open"

type kzgScheme struct{}

func (kzgScheme) Kind() Kind { return KindKZG }

func (kzgScheme) Setup(maxElements int, rng io.Reader) (*PublicParams, error) {
	if maxElements < 0 {
		return nil, fmt.Errorf("%w: negative setup size", ErrPayloadTooLarge)
	}
	powers, tauG2, err := generateSRS(maxElements, rng)
	if err != nil {
		return nil, err
	}
	return &PublicParams{
		MaxElements: maxElements,
		G1Powers:    powers,
		TauG2:       tauG2,
		HasSRS:      true,
	}, nil
}

func (kzgScheme) Commit(source, coeffs *matrix.Matrix, pp *PublicParams) (Commitment, error) {
	if !pp.HasSRS {
		return Commitment{}, fmt.Errorf("%w: params carry no SRS", ErrMalformed)
	}
	m := source.Width()
	if err := pp.checkWidth(m); err != nil {
		return Commitment{}, err
	}
	rows := make([]group.Element, source.Height())
	for i := range rows {
		c, err := group.MSM(pp.G1Powers[:m], source.Row(i))
		if err != nil {
			return Commitment{}, err
		}
		rows[i] = c
	}
	return Commitment{Kind: KindKZG, Data: encodePoints(rows)}, nil
}

func (kzgScheme) Prove(source, coeffs *matrix.Matrix, index int, c Commitment, pp *PublicParams) (Proof, error) {
	if !pp.HasSRS {
		return Proof{}, fmt.Errorf("%w: params carry no SRS", ErrMalformed)
	}
	m := source.Width()
	if err := pp.checkWidth(m); err != nil {
		return Proof{}, err
	}

	q := shardPolynomial(source, coeffs, index)
	combination := coeffs.Column(index)
	z := shardChallenge(kzgChallengeLabel, c, combination, q)

	quotient := kzgQuotient(q, z)
	pi, err := group.MSM(pp.G1Powers[:len(quotient)], quotient)
	if err != nil {
		return Proof{}, err
	}
	b := pi.Bytes()
	return Proof{Kind: KindKZG, Data: b[:]}, nil
}

func (kzgScheme) Verify(s fec.Shard, c Commitment, p Proof, pp *PublicParams) (bool, error) {
	if !pp.HasSRS {
		return false, fmt.Errorf("%w: params carry no SRS", ErrMalformed)
	}
	if c.Kind != KindKZG || p.Kind != KindKZG {
		return false, nil
	}
	if len(s.Data) > pp.MaxElements {
		return false, nil
	}
	rows, err := decodePoints(c.Data)
	if err != nil {
		return false, nil
	}
	if len(rows) != len(s.Combination) {
		return false, nil
	}
	pi, err := group.ElementFromBytes(p.Data)
	if err != nil {
		return false, nil
	}

	// Derive the combined commitment from the row commitments, then check
	// the opening at the transcript challenge.
	cq, err := group.MSM(rows, s.Combination)
	if err != nil {
		return false, err
	}
	z := shardChallenge(kzgChallengeLabel, c, s.Combination, s.Data)
	y := poly.Eval(s.Data, z)

	// e(C_q - yG1, G2) * e(-pi, tauG2 - zG2) == 1
	lhs := cq.Sub(group.Generator().ScalarMul(y))
	rhsG2 := pp.TauG2.Sub(group.G2Generator().ScalarMul(z))
	return group.PairingCheck(
		[]group.Element{lhs, pi.Neg()},
		[]group.G2Element{group.G2Generator(), rhsG2},
	)
}

func (kzgScheme) SupportsRecoding() bool { return false }

func (kzgScheme) CombineProofs(a, b Proof, w0, w1 field.Element) (Proof, error) {
	// Quotient openings are bound to a per-shard challenge; a recoded
	// shard would need a fresh opening against the source payload.
	return Proof{}, ErrUnsupportedOperation
}

// kzgQuotient computes the coefficients of (q(X) - q(z)) / (X - z) by
// synthetic division. The remainder is q(z) and is discarded.
func kzgQuotient(q []field.Element, z field.Element) []field.Element {
	m := len(q)
	if m <= 1 {
		return nil
	}
	out := make([]field.Element, m-1)
	out[m-2] = q[m-1]
	for l := m - 2; l >= 1; l-- {
		out[l-1] = q[l].Add(z.Mul(out[l]))
	}
	return out
}
