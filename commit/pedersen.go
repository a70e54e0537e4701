package commit

import (
	"fmt"

	"github.com/dispersal/dispersal/group"
	"github.com/dispersal/dispersal/matrix"
)

// Pedersen row commitments shared by the folding and homomorphic schemes:
// row i of the source matrix commits as C_i = sum_l source[i][l] * Basis[l].
// The commitment for the whole payload is the ordered list of row points,
// identical for every shard of the encoding.

// pedersenRows commits every source row against the basis prefix.
func pedersenRows(source *matrix.Matrix, basis []group.Element) ([]group.Element, error) {
	m := source.Width()
	rows := make([]group.Element, source.Height())
	for i := range rows {
		c, err := group.MSM(basis[:m], source.Row(i))
		if err != nil {
			return nil, err
		}
		rows[i] = c
	}
	return rows, nil
}

// encodePoints serializes points as concatenated compressed encodings.
func encodePoints(points []group.Element) []byte {
	out := make([]byte, 0, len(points)*group.ElementBytes)
	for _, p := range points {
		b := p.Bytes()
		out = append(out, b[:]...)
	}
	return out
}

// decodePoints parses concatenated compressed encodings.
func decodePoints(data []byte) ([]group.Element, error) {
	if len(data)%group.ElementBytes != 0 {
		return nil, fmt.Errorf("%w: %d bytes is not a whole number of points",
			ErrMalformed, len(data))
	}
	points := make([]group.Element, len(data)/group.ElementBytes)
	for i := range points {
		p, err := group.ElementFromBytes(data[i*group.ElementBytes : (i+1)*group.ElementBytes])
		if err != nil {
			return nil, fmt.Errorf("%w: bad point %d: %v", ErrMalformed, i, err)
		}
		points[i] = p
	}
	return points, nil
}
