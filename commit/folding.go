package commit

// Folding scheme: Pedersen row commitments plus a Bulletproofs-style inner
// product argument. The shard's data vector a opens the folded commitment
// C_q = sum_i comb[i] C_i, and its claimed evaluation v = <a, b> at the
// transcript challenge (b the power vector of z) rides a second independent
// generator Q: the argument runs over P = C_q + v Q, with each round's
// cross terms
//
//	L = <aLo, gHi> + <aLo, bHi> Q
//	R = <aHi, gLo> + <aHi, bLo> Q
//
// preserving P' = <a', G'> + <a', b'> Q = P + x^-1 L + x R. The final check
// binds both the opening and the evaluation to the same vector; data that
// disagrees with the committed vector leaves a nonzero discrepancy on Q
// that no choice of cross terms can cancel.
//
// Proofs are O(log m) group elements, but each round pays two multi-scalar
// multiplications over the shrinking vector, so proving cost grows
// super-linearly with payload size. That trade-off is the point of the
// scheme and is deliberately not optimized away.

import (
	"fmt"
	"io"

	"github.com/dispersal/dispersal/fec"
	"github.com/dispersal/dispersal/field"
	"github.com/dispersal/dispersal/group"
	"github.com/dispersal/dispersal/matrix"
	"github.com/dispersal/dispersal/poly"
)

const (
	foldChallengeLabel  = "dispersal:fold:open"
	foldTranscriptLabel = "dispersal:fold:ipa"
)

// evalDST is the hash-to-curve domain for the evaluation generator Q.
// Distinct from pedersenDST, so Q is independent of every basis point.
var evalDST = []byte("DISPERSAL_FOLD_EVAL_BLS12381G1_SHA3")

// evalGenerator derives the generator carrying the claimed evaluation in
// the folding argument.
func evalGenerator() (group.Element, error) {
	return group.HashToPoint([]byte("eval"), evalDST)
}

type foldingScheme struct{}

func (foldingScheme) Kind() Kind { return KindFolding }

func (foldingScheme) Setup(maxElements int, rng io.Reader) (*PublicParams, error) {
	if maxElements < 0 {
		return nil, fmt.Errorf("%w: negative setup size", ErrPayloadTooLarge)
	}
	// Basis length is a power of two so every folding round halves evenly.
	basis, err := generateBasis(nextPow2(maxElements))
	if err != nil {
		return nil, err
	}
	return &PublicParams{MaxElements: maxElements, Basis: basis}, nil
}

func (foldingScheme) Commit(source, coeffs *matrix.Matrix, pp *PublicParams) (Commitment, error) {
	if err := checkBasis(source.Width(), pp); err != nil {
		return Commitment{}, err
	}
	rows, err := pedersenRows(source, pp.Basis)
	if err != nil {
		return Commitment{}, err
	}
	return Commitment{Kind: KindFolding, Data: encodePoints(rows)}, nil
}

func (foldingScheme) Prove(source, coeffs *matrix.Matrix, index int, c Commitment, pp *PublicParams) (Proof, error) {
	m := source.Width()
	if err := checkBasis(m, pp); err != nil {
		return Proof{}, err
	}

	q := shardPolynomial(source, coeffs, index)
	combination := coeffs.Column(index)
	z := shardChallenge(foldChallengeLabel, c, combination, q)

	// Zero-pad the opening vector to the folding width; padding does not
	// change the Pedersen commitment.
	width := nextPow2(max(m, 1))
	a := make([]field.Element, width)
	copy(a, q)
	b := poly.Powers(z, width)
	gens := make([]group.Element, width)
	copy(gens, pp.Basis[:width])

	qGen, err := evalGenerator()
	if err != nil {
		return Proof{}, err
	}
	cq, err := group.MSM(pp.Basis[:m], q)
	if err != nil {
		return Proof{}, err
	}
	v := poly.Eval(q, z)

	tr := newTranscript(foldTranscriptLabel)
	tr.absorbPoint(cq)
	tr.absorbScalar(v)

	var ls, rs []group.Element
	for n := width; n > 1; n /= 2 {
		half := n / 2
		aLo, aHi := a[:half], a[half:n]
		bLo, bHi := b[:half], b[half:n]
		gLo, gHi := gens[:half], gens[half:n]

		l, err := group.MSM(gHi, aLo)
		if err != nil {
			return Proof{}, err
		}
		l = l.Add(qGen.ScalarMul(innerProduct(aLo, bHi)))
		r, err := group.MSM(gLo, aHi)
		if err != nil {
			return Proof{}, err
		}
		r = r.Add(qGen.ScalarMul(innerProduct(aHi, bLo)))
		ls = append(ls, l)
		rs = append(rs, r)

		tr.absorbPoint(l)
		tr.absorbPoint(r)
		x := tr.challenge()
		xInv := x.Inv()

		// a' = aLo + x aHi; b' = bLo + x^-1 bHi; G' = gLo + x^-1 gHi.
		for i := 0; i < half; i++ {
			a[i] = aLo[i].Add(x.Mul(aHi[i]))
			b[i] = bLo[i].Add(xInv.Mul(bHi[i]))
			gens[i] = gLo[i].Add(gHi[i].ScalarMul(xInv))
		}
	}

	return Proof{Kind: KindFolding, Data: encodeFoldProof(ls, rs, a[0])}, nil
}

func (foldingScheme) Verify(s fec.Shard, c Commitment, p Proof, pp *PublicParams) (bool, error) {
	m := len(s.Data)
	if err := checkBasis(m, pp); err != nil {
		return false, err
	}
	if c.Kind != KindFolding || p.Kind != KindFolding {
		return false, nil
	}
	rows, err := decodePoints(c.Data)
	if err != nil {
		return false, nil
	}
	if len(rows) != len(s.Combination) {
		return false, nil
	}
	ls, rs, final, err := decodeFoldProof(p.Data)
	if err != nil {
		return false, nil
	}

	width := nextPow2(max(m, 1))
	rounds := 0
	for n := width; n > 1; n /= 2 {
		rounds++
	}
	if len(ls) != rounds || len(rs) != rounds {
		return false, nil
	}

	qGen, err := evalGenerator()
	if err != nil {
		return false, err
	}
	cq, err := group.MSM(rows, s.Combination)
	if err != nil {
		return false, err
	}
	z := shardChallenge(foldChallengeLabel, c, s.Combination, s.Data)
	v := poly.Eval(s.Data, z)

	// Replay the transcript to recover the round challenges.
	tr := newTranscript(foldTranscriptLabel)
	tr.absorbPoint(cq)
	tr.absorbScalar(v)
	challenges := make([]field.Element, rounds)
	for i := 0; i < rounds; i++ {
		tr.absorbPoint(ls[i])
		tr.absorbPoint(rs[i])
		challenges[i] = tr.challenge()
	}

	// Fold the generators and the public power vector with the same
	// schedule as the prover.
	gens := make([]group.Element, width)
	copy(gens, pp.Basis[:width])
	b := poly.Powers(z, width)
	n := width
	for _, x := range challenges {
		half := n / 2
		xInv := x.Inv()
		for i := 0; i < half; i++ {
			gens[i] = gens[i].Add(gens[half+i].ScalarMul(xInv))
			b[i] = b[i].Add(xInv.Mul(b[half+i]))
		}
		n = half
	}

	// Fold P = C_q + v Q with the proof cross terms, then the final scalar
	// must open both the folded generator and the folded inner product:
	// P + sum x^-1 L + x R == final G' + (final b') Q.
	folded := cq.Add(qGen.ScalarMul(v))
	for i, x := range challenges {
		folded = folded.Add(ls[i].ScalarMul(x.Inv())).Add(rs[i].ScalarMul(x))
	}
	want := gens[0].ScalarMul(final).Add(qGen.ScalarMul(final.Mul(b[0])))
	return folded.Equal(want), nil
}

func (foldingScheme) SupportsRecoding() bool { return false }

func (foldingScheme) CombineProofs(a, b Proof, w0, w1 field.Element) (Proof, error) {
	// Round challenges bind each proof to one shard's transcript; folding
	// transcripts of two shards do not compose.
	return Proof{}, ErrUnsupportedOperation
}

// innerProduct computes <a, b> over equal-length slices.
func innerProduct(a, b []field.Element) field.Element {
	s := field.Zero()
	for i := range a {
		s = s.Add(a[i].Mul(b[i]))
	}
	return s
}

// checkBasis verifies a row width against the Pedersen basis.
func checkBasis(m int, pp *PublicParams) error {
	if err := pp.checkWidth(m); err != nil {
		return err
	}
	if nextPow2(max(m, 1)) > len(pp.Basis) {
		return fmt.Errorf("%w: basis has %d points, need %d",
			ErrPayloadTooLarge, len(pp.Basis), nextPow2(max(m, 1)))
	}
	return nil
}

// Proof wire format: rounds(1) | (L 48B | R 48B) x rounds | final 32B.
func encodeFoldProof(ls, rs []group.Element, final field.Element) []byte {
	buf := make([]byte, 0, 1+len(ls)*2*group.ElementBytes+field.ElementBytes)
	buf = append(buf, byte(len(ls)))
	for i := range ls {
		l := ls[i].Bytes()
		r := rs[i].Bytes()
		buf = append(buf, l[:]...)
		buf = append(buf, r[:]...)
	}
	f := final.Bytes()
	return append(buf, f[:]...)
}

func decodeFoldProof(data []byte) (ls, rs []group.Element, final field.Element, err error) {
	if len(data) < 1+field.ElementBytes {
		return nil, nil, field.Element{}, fmt.Errorf("%w: folding proof too short", ErrMalformed)
	}
	rounds := int(data[0])
	want := 1 + rounds*2*group.ElementBytes + field.ElementBytes
	if len(data) != want {
		return nil, nil, field.Element{}, fmt.Errorf("%w: folding proof length %d, want %d",
			ErrMalformed, len(data), want)
	}
	off := 1
	for i := 0; i < rounds; i++ {
		l, err := group.ElementFromBytes(data[off : off+group.ElementBytes])
		if err != nil {
			return nil, nil, field.Element{}, fmt.Errorf("%w: bad L point %d: %v", ErrMalformed, i, err)
		}
		off += group.ElementBytes
		r, err := group.ElementFromBytes(data[off : off+group.ElementBytes])
		if err != nil {
			return nil, nil, field.Element{}, fmt.Errorf("%w: bad R point %d: %v", ErrMalformed, i, err)
		}
		off += group.ElementBytes
		ls = append(ls, l)
		rs = append(rs, r)
	}
	return ls, rs, field.FromBytes(data[off:]), nil
}
