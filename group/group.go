// Package group provides the additive group used by the commitment schemes:
// BLS12-381 G1 for commitments and proofs, G2 and a pairing check for the
// structured-reference-string scheme. Like field.Element, group elements are
// immutable value types.
package group

import (
	"errors"

	"github.com/consensys/gnark-crypto/ecc"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	fr "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"

	"github.com/dispersal/dispersal/field"
)

// Serialized sizes of compressed group elements.
const (
	ElementBytes   = bls12381.SizeOfG1AffineCompressed
	G2ElementBytes = bls12381.SizeOfG2AffineCompressed
)

var errMSMLength = errors.New("group: point and scalar counts differ")

// Element is a point on BLS12-381 G1. The zero value is the point at
// infinity, which is the group identity.
type Element struct {
	p bls12381.G1Affine
}

// Generator returns the standard G1 generator.
func Generator() Element {
	_, _, g1, _ := bls12381.Generators()
	return Element{p: g1}
}

// Infinity returns the group identity.
func Infinity() Element {
	return Element{}
}

// Add returns a + b.
func (a Element) Add(b Element) Element {
	var ja, jb bls12381.G1Jac
	ja.FromAffine(&a.p)
	jb.FromAffine(&b.p)
	ja.AddAssign(&jb)
	var r Element
	r.p.FromJacobian(&ja)
	return r
}

// Sub returns a - b.
func (a Element) Sub(b Element) Element {
	return a.Add(b.Neg())
}

// Neg returns -a.
func (a Element) Neg() Element {
	var r Element
	r.p.Neg(&a.p)
	return r
}

// ScalarMul returns s * a.
func (a Element) ScalarMul(s field.Element) Element {
	var r Element
	r.p.ScalarMultiplication(&a.p, s.BigInt())
	return r
}

// Equal returns true if two elements are the same point.
func (a Element) Equal(b Element) bool {
	return a.p.Equal(&b.p)
}

// IsInfinity returns true if a is the group identity.
func (a Element) IsInfinity() bool {
	return a.p.IsInfinity()
}

// Bytes returns the 48-byte compressed encoding.
func (a Element) Bytes() [ElementBytes]byte {
	return a.p.Bytes()
}

// ElementFromBytes decodes a 48-byte compressed G1 point. It rejects
// encodings that are not on the curve or not in the prime-order subgroup.
func ElementFromBytes(data []byte) (Element, error) {
	var e Element
	if _, err := e.p.SetBytes(data); err != nil {
		return Element{}, err
	}
	return e, nil
}

// MSM computes the multi-scalar multiplication sum_i scalars[i] * points[i].
// Empty inputs yield the group identity.
func MSM(points []Element, scalars []field.Element) (Element, error) {
	if len(points) != len(scalars) {
		return Element{}, errMSMLength
	}
	if len(points) == 0 {
		return Infinity(), nil
	}
	ps := make([]bls12381.G1Affine, len(points))
	ss := make([]fr.Element, len(scalars))
	for i := range points {
		ps[i] = points[i].p
		ss[i] = scalars[i].Raw()
	}
	var r Element
	if _, err := r.p.MultiExp(ps, ss, ecc.MultiExpConfig{}); err != nil {
		return Element{}, err
	}
	return r, nil
}

// HashToPoint derives a point with unknown discrete log from a seed, using
// the standard hash-to-curve map. Used for nothing-up-my-sleeve Pedersen
// bases.
func HashToPoint(msg, dst []byte) (Element, error) {
	p, err := bls12381.HashToG1(msg, dst)
	if err != nil {
		return Element{}, err
	}
	return Element{p: p}, nil
}

// G2Element is a point on BLS12-381 G2, needed only for the pairing side of
// SRS-based verification.
type G2Element struct {
	p bls12381.G2Affine
}

// G2Generator returns the standard G2 generator.
func G2Generator() G2Element {
	_, _, _, g2 := bls12381.Generators()
	return G2Element{p: g2}
}

// Add returns a + b in G2.
func (a G2Element) Add(b G2Element) G2Element {
	var ja, jb bls12381.G2Jac
	ja.FromAffine(&a.p)
	jb.FromAffine(&b.p)
	ja.AddAssign(&jb)
	var r G2Element
	r.p.FromJacobian(&ja)
	return r
}

// Sub returns a - b in G2.
func (a G2Element) Sub(b G2Element) G2Element {
	var n bls12381.G2Affine
	n.Neg(&b.p)
	return a.Add(G2Element{p: n})
}

// ScalarMul returns s * a in G2.
func (a G2Element) ScalarMul(s field.Element) G2Element {
	var r G2Element
	r.p.ScalarMultiplication(&a.p, s.BigInt())
	return r
}

// Equal returns true if two G2 elements are the same point.
func (a G2Element) Equal(b G2Element) bool {
	return a.p.Equal(&b.p)
}

// Bytes returns the 96-byte compressed encoding.
func (a G2Element) Bytes() [G2ElementBytes]byte {
	return a.p.Bytes()
}

// G2ElementFromBytes decodes a 96-byte compressed G2 point.
func G2ElementFromBytes(data []byte) (G2Element, error) {
	var e G2Element
	if _, err := e.p.SetBytes(data); err != nil {
		return G2Element{}, err
	}
	return e, nil
}

// PairingCheck reports whether prod_i e(g1s[i], g2s[i]) equals the identity
// in GT. This is the verification primitive for SRS-based openings.
func PairingCheck(g1s []Element, g2s []G2Element) (bool, error) {
	ps := make([]bls12381.G1Affine, len(g1s))
	qs := make([]bls12381.G2Affine, len(g2s))
	for i := range g1s {
		ps[i] = g1s[i].p
	}
	for i := range g2s {
		qs[i] = g2s[i].p
	}
	return bls12381.PairingCheck(ps, qs)
}
