// Package field provides scalar arithmetic over the BLS12-381 scalar field,
// the prime field underlying both the erasure code and the commitment
// schemes. Elements are immutable value types; every operation returns a new
// element and never mutates its operands.
package field

import (
	"errors"
	"io"
	"math/big"

	fr "github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// ElementBytes is the size of a serialized field element.
const ElementBytes = 32

// ErrShortRead is returned when the supplied entropy source cannot provide
// enough bytes for uniform sampling.
var ErrShortRead = errors.New("field: short read from entropy source")

// Element represents an element of the BLS12-381 scalar field.
// The zero value is the additive identity.
type Element struct {
	v fr.Element
}

// Zero returns the additive identity.
func Zero() Element {
	return Element{}
}

// One returns the multiplicative identity.
func One() Element {
	var e Element
	e.v.SetOne()
	return e
}

// FromUint64 creates an Element from a uint64.
func FromUint64(x uint64) Element {
	var e Element
	e.v.SetUint64(x)
	return e
}

// FromBigInt creates an Element from a big.Int, reducing mod the field order.
func FromBigInt(x *big.Int) Element {
	var e Element
	e.v.SetBigInt(x)
	return e
}

// FromBytes creates an Element from a big-endian byte slice, reducing mod
// the field order.
func FromBytes(data []byte) Element {
	var e Element
	e.v.SetBytes(data)
	return e
}

// FromRaw creates an Element from a raw fr.Element. It is intended for the
// group package, which shares the same scalar field.
func FromRaw(v fr.Element) Element {
	return Element{v: v}
}

// Random samples a uniformly random Element from rng. Randomness is always
// explicit: callers that need determinism pass a seeded reader.
func Random(rng io.Reader) (Element, error) {
	// 16 extra bytes over the 32-byte field size keep the mod-r bias
	// negligible.
	var buf [48]byte
	if _, err := io.ReadFull(rng, buf[:]); err != nil {
		return Element{}, errors.Join(ErrShortRead, err)
	}
	return FromBigInt(new(big.Int).SetBytes(buf[:])), nil
}

// Modulus returns the field order r as a big.Int.
func Modulus() *big.Int {
	return fr.Modulus()
}

// Raw returns the underlying fr.Element.
func (a Element) Raw() fr.Element {
	return a.v
}

// Add returns a + b.
func (a Element) Add(b Element) Element {
	var r Element
	r.v.Add(&a.v, &b.v)
	return r
}

// Sub returns a - b.
func (a Element) Sub(b Element) Element {
	var r Element
	r.v.Sub(&a.v, &b.v)
	return r
}

// Mul returns a * b.
func (a Element) Mul(b Element) Element {
	var r Element
	r.v.Mul(&a.v, &b.v)
	return r
}

// Div returns a / b, i.e. a * b^{-1}. Division by zero returns zero.
func (a Element) Div(b Element) Element {
	return a.Mul(b.Inv())
}

// Neg returns -a.
func (a Element) Neg() Element {
	var r Element
	r.v.Neg(&a.v)
	return r
}

// Inv returns the multiplicative inverse a^{-1}. The inverse of zero is zero.
func (a Element) Inv() Element {
	var r Element
	r.v.Inverse(&a.v)
	return r
}

// Exp returns a^k.
func (a Element) Exp(k *big.Int) Element {
	var r Element
	r.v.Exp(a.v, k)
	return r
}

// IsZero returns true if a is the additive identity.
func (a Element) IsZero() bool {
	return a.v.IsZero()
}

// IsOne returns true if a is the multiplicative identity.
func (a Element) IsOne() bool {
	return a.v.IsOne()
}

// Equal returns true if two elements are equal.
func (a Element) Equal(b Element) bool {
	return a.v.Equal(&b.v)
}

// Bytes returns the canonical 32-byte big-endian representation.
func (a Element) Bytes() [ElementBytes]byte {
	return a.v.Bytes()
}

// BigInt returns the element as a big.Int in [0, r).
func (a Element) BigInt() *big.Int {
	return a.v.BigInt(new(big.Int))
}

// String returns the decimal representation.
func (a Element) String() string {
	return a.v.String()
}
