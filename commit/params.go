package commit

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dispersal/dispersal/field"
	"github.com/dispersal/dispersal/group"
)

// pedersenDST is the hash-to-curve domain for the nothing-up-my-sleeve
// Pedersen basis shared by the folding and homomorphic schemes.
var pedersenDST = []byte("DISPERSAL_PEDERSEN_BASIS_BLS12381G1_SHA3")

// PublicParams holds scheme public material generated once by Setup and
// reused read-only by every subsequent Commit, Prove and Verify. Which
// fields are populated depends on the scheme: the SRS powers and tau-G2
// point for KZG, the Pedersen basis for folding and homomorphic, nothing
// beyond MaxElements for the hash scheme.
type PublicParams struct {
	// MaxElements is the widest source row the parameters support.
	MaxElements int

	// G1Powers is the SRS [tau^0 G1, tau^1 G1, ...]; the secret tau is
	// discarded at Setup.
	G1Powers []group.Element

	// TauG2 is [tau]G2, the pairing side of the SRS.
	TauG2 group.G2Element

	// HasSRS reports whether G1Powers/TauG2 are populated.
	HasSRS bool

	// Basis is the Pedersen generator basis, length rounded up to the next
	// power of two so folding rounds always halve cleanly.
	Basis []group.Element
}

// nextPow2 returns the smallest power of two >= n, minimum 1.
func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// generateSRS samples a secret tau from rng, computes the G1 power series
// and [tau]G2, and discards tau.
func generateSRS(maxElements int, rng io.Reader) ([]group.Element, group.G2Element, error) {
	tau, err := field.Random(rng)
	if err != nil {
		return nil, group.G2Element{}, err
	}

	powers := make([]group.Element, maxElements)
	g := group.Generator()
	acc := field.One()
	for i := range powers {
		powers[i] = g.ScalarMul(acc)
		acc = acc.Mul(tau)
	}
	tauG2 := group.G2Generator().ScalarMul(tau)
	return powers, tauG2, nil
}

// generateBasis derives size independent Pedersen generators by hashing to
// the curve. Deterministic: no trusted setup and nothing to discard.
func generateBasis(size int) ([]group.Element, error) {
	basis := make([]group.Element, size)
	var seed [8]byte
	for i := range basis {
		binary.BigEndian.PutUint64(seed[:], uint64(i))
		p, err := group.HashToPoint(seed[:], pedersenDST)
		if err != nil {
			return nil, err
		}
		basis[i] = p
	}
	return basis, nil
}

// checkWidth verifies a source-row width against the parameters.
func (pp *PublicParams) checkWidth(m int) error {
	if m > pp.MaxElements {
		return fmt.Errorf("%w: row width %d exceeds setup size %d",
			ErrPayloadTooLarge, m, pp.MaxElements)
	}
	return nil
}

// Serialization format, length-prefixed and versioned:
//
//	version(1) | maxElements(8) | hasSRS(1) |
//	[ nPowers(8) | 48B each | tauG2 96B ]  when hasSRS
//	nBasis(8) | 48B each
const paramsVersion = 1

// MarshalBinary serializes the parameters opaquely, as required for reuse
// across sessions.
func (pp *PublicParams) MarshalBinary() ([]byte, error) {
	var buf []byte
	buf = append(buf, paramsVersion)
	buf = binary.BigEndian.AppendUint64(buf, uint64(pp.MaxElements))
	if pp.HasSRS {
		buf = append(buf, 1)
		buf = binary.BigEndian.AppendUint64(buf, uint64(len(pp.G1Powers)))
		for _, p := range pp.G1Powers {
			b := p.Bytes()
			buf = append(buf, b[:]...)
		}
		t := pp.TauG2.Bytes()
		buf = append(buf, t[:]...)
	} else {
		buf = append(buf, 0)
	}
	buf = binary.BigEndian.AppendUint64(buf, uint64(len(pp.Basis)))
	for _, p := range pp.Basis {
		b := p.Bytes()
		buf = append(buf, b[:]...)
	}
	return buf, nil
}

// UnmarshalBinary restores parameters serialized by MarshalBinary.
func (pp *PublicParams) UnmarshalBinary(data []byte) error {
	r := &byteReader{data: data}
	ver, err := r.byte()
	if err != nil {
		return err
	}
	if ver != paramsVersion {
		return fmt.Errorf("%w: unknown params version %d", ErrMalformed, ver)
	}
	maxEl, err := r.uint64()
	if err != nil {
		return err
	}
	pp.MaxElements = int(maxEl)

	hasSRS, err := r.byte()
	if err != nil {
		return err
	}
	pp.HasSRS = hasSRS == 1
	pp.G1Powers = nil
	if pp.HasSRS {
		n, err := r.uint64()
		if err != nil {
			return err
		}
		// Bound the count by the bytes actually present before allocating.
		if n > uint64(r.remaining()/group.ElementBytes) {
			return fmt.Errorf("%w: SRS count %d exceeds buffer", ErrMalformed, n)
		}
		pp.G1Powers = make([]group.Element, n)
		for i := range pp.G1Powers {
			raw, err := r.take(group.ElementBytes)
			if err != nil {
				return err
			}
			pp.G1Powers[i], err = group.ElementFromBytes(raw)
			if err != nil {
				return fmt.Errorf("%w: bad SRS point %d: %v", ErrMalformed, i, err)
			}
		}
		raw, err := r.take(group.G2ElementBytes)
		if err != nil {
			return err
		}
		pp.TauG2, err = group.G2ElementFromBytes(raw)
		if err != nil {
			return fmt.Errorf("%w: bad tau-G2 point: %v", ErrMalformed, err)
		}
	}

	n, err := r.uint64()
	if err != nil {
		return err
	}
	if n > uint64(r.remaining()/group.ElementBytes) {
		return fmt.Errorf("%w: basis count %d exceeds buffer", ErrMalformed, n)
	}
	pp.Basis = make([]group.Element, n)
	for i := range pp.Basis {
		raw, err := r.take(group.ElementBytes)
		if err != nil {
			return err
		}
		pp.Basis[i], err = group.ElementFromBytes(raw)
		if err != nil {
			return fmt.Errorf("%w: bad basis point %d: %v", ErrMalformed, i, err)
		}
	}
	if r.remaining() != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrMalformed, r.remaining())
	}
	return nil
}

// byteReader is a bounds-checked cursor over a serialized buffer.
type byteReader struct {
	data []byte
	off  int
}

func (r *byteReader) remaining() int { return len(r.data) - r.off }

func (r *byteReader) take(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, fmt.Errorf("%w: truncated at offset %d", ErrMalformed, r.off)
	}
	out := r.data[r.off : r.off+n]
	r.off += n
	return out, nil
}

func (r *byteReader) byte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *byteReader) uint64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}
