// Package matrix implements dense matrices over the BLS12-381 scalar field:
// construction (explicit, random, Vandermonde), transpose, multiplication
// and Gauss-Jordan inversion. These are the linear-algebra primitives behind
// both erasure coding and commitment-input arrangement.
package matrix

import (
	"errors"
	"fmt"
	"io"

	"github.com/dispersal/dispersal/field"
)

var (
	// ErrDimensionMismatch reports an operation on incompatible shapes.
	ErrDimensionMismatch = errors.New("matrix: dimension mismatch")

	// ErrNotInvertible reports a singular matrix: some pivot reduced to
	// zero during elimination. For decoding this is the designed failure
	// mode for linearly dependent shard subsets.
	ErrNotInvertible = errors.New("matrix: not invertible")
)

// Matrix is a height x width array of field elements. All rows have equal
// width. The zero Matrix is empty.
type Matrix struct {
	h, w int
	rows [][]field.Element
}

// New returns a zero-filled h x w matrix.
func New(h, w int) *Matrix {
	if h < 0 || w < 0 {
		panic("matrix: negative dimension")
	}
	rows := make([][]field.Element, h)
	for i := range rows {
		rows[i] = make([]field.Element, w)
	}
	return &Matrix{h: h, w: w, rows: rows}
}

// FromRows builds a matrix from explicit row data. All rows must have equal
// width.
func FromRows(rows [][]field.Element) (*Matrix, error) {
	h := len(rows)
	w := 0
	if h > 0 {
		w = len(rows[0])
	}
	m := New(h, w)
	for i, r := range rows {
		if len(r) != w {
			return nil, fmt.Errorf("%w: row %d has width %d, row 0 has %d",
				ErrDimensionMismatch, i, len(r), w)
		}
		copy(m.rows[i], r)
	}
	return m, nil
}

// Random returns an h x w matrix with entries sampled uniformly from rng.
func Random(h, w int, rng io.Reader) (*Matrix, error) {
	m := New(h, w)
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			e, err := field.Random(rng)
			if err != nil {
				return nil, err
			}
			m.rows[i][j] = e
		}
	}
	return m, nil
}

// Vandermonde returns the k x n matrix V with V[i][j] = (j+1)^i. The
// evaluation points 1..n are distinct and non-zero, so any k of the n
// columns form an invertible k x k submatrix (the MDS property). This is
// what guarantees recovery from any k shards, unlike the random variant
// where independence is only probabilistic.
func Vandermonde(k, n int) *Matrix {
	m := New(k, n)
	for j := 0; j < n; j++ {
		x := field.FromUint64(uint64(j + 1))
		acc := field.One()
		for i := 0; i < k; i++ {
			m.rows[i][j] = acc
			acc = acc.Mul(x)
		}
	}
	return m
}

// Identity returns the n x n identity matrix.
func Identity(n int) *Matrix {
	m := New(n, n)
	for i := 0; i < n; i++ {
		m.rows[i][i] = field.One()
	}
	return m
}

// Height returns the number of rows.
func (m *Matrix) Height() int { return m.h }

// Width returns the number of columns.
func (m *Matrix) Width() int { return m.w }

// At returns the element at row i, column j.
func (m *Matrix) At(i, j int) field.Element {
	return m.rows[i][j]
}

// Set assigns the element at row i, column j.
func (m *Matrix) Set(i, j int, v field.Element) {
	m.rows[i][j] = v
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []field.Element {
	out := make([]field.Element, m.w)
	copy(out, m.rows[i])
	return out
}

// Column returns a copy of column j.
func (m *Matrix) Column(j int) []field.Element {
	out := make([]field.Element, m.h)
	for i := 0; i < m.h; i++ {
		out[i] = m.rows[i][j]
	}
	return out
}

// Transpose returns a new matrix that is the transpose of m.
func (m *Matrix) Transpose() *Matrix {
	t := New(m.w, m.h)
	for i := 0; i < m.h; i++ {
		for j := 0; j < m.w; j++ {
			t.rows[j][i] = m.rows[i][j]
		}
	}
	return t
}

// Mul returns the product m x other. The inner dimensions must agree.
func (m *Matrix) Mul(other *Matrix) (*Matrix, error) {
	if m.w != other.h {
		return nil, fmt.Errorf("%w: %dx%d x %dx%d",
			ErrDimensionMismatch, m.h, m.w, other.h, other.w)
	}
	out := New(m.h, other.w)
	for i := 0; i < m.h; i++ {
		for j := 0; j < other.w; j++ {
			acc := field.Zero()
			for l := 0; l < m.w; l++ {
				acc = acc.Add(m.rows[i][l].Mul(other.rows[l][j]))
			}
			out.rows[i][j] = acc
		}
	}
	return out, nil
}

// Invert returns the inverse of a square matrix via Gauss-Jordan
// elimination with row pivoting. Returns ErrNotInvertible if the matrix is
// singular and ErrDimensionMismatch if it is not square.
func (m *Matrix) Invert() (*Matrix, error) {
	if m.h != m.w {
		return nil, fmt.Errorf("%w: cannot invert %dx%d",
			ErrDimensionMismatch, m.h, m.w)
	}
	n := m.h

	// Augmented working copy [A | I].
	work := New(n, n)
	for i := 0; i < n; i++ {
		copy(work.rows[i], m.rows[i])
	}
	inv := Identity(n)

	for col := 0; col < n; col++ {
		// Find a non-zero pivot at or below the diagonal.
		pivot := -1
		for r := col; r < n; r++ {
			if !work.rows[r][col].IsZero() {
				pivot = r
				break
			}
		}
		if pivot < 0 {
			return nil, fmt.Errorf("%w: zero pivot at column %d",
				ErrNotInvertible, col)
		}
		if pivot != col {
			work.rows[col], work.rows[pivot] = work.rows[pivot], work.rows[col]
			inv.rows[col], inv.rows[pivot] = inv.rows[pivot], inv.rows[col]
		}

		// Normalize the pivot row.
		pinv := work.rows[col][col].Inv()
		for j := 0; j < n; j++ {
			work.rows[col][j] = work.rows[col][j].Mul(pinv)
			inv.rows[col][j] = inv.rows[col][j].Mul(pinv)
		}

		// Eliminate the column from every other row.
		for r := 0; r < n; r++ {
			if r == col || work.rows[r][col].IsZero() {
				continue
			}
			factor := work.rows[r][col]
			for j := 0; j < n; j++ {
				work.rows[r][j] = work.rows[r][j].Sub(factor.Mul(work.rows[col][j]))
				inv.rows[r][j] = inv.rows[r][j].Sub(factor.Mul(inv.rows[col][j]))
			}
		}
	}
	return inv, nil
}

// Equal reports whether two matrices have identical shape and entries.
func (m *Matrix) Equal(other *Matrix) bool {
	if m.h != other.h || m.w != other.w {
		return false
	}
	for i := 0; i < m.h; i++ {
		for j := 0; j < m.w; j++ {
			if !m.rows[i][j].Equal(other.rows[i][j]) {
				return false
			}
		}
	}
	return true
}
