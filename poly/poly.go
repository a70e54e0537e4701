// Package poly represents sequences of field elements as coefficients of a
// univariate polynomial. Rows and columns of a payload matrix are
// reinterpreted as polynomials when feeding the commitment schemes.
package poly

import (
	"github.com/dispersal/dispersal/field"
	"github.com/dispersal/dispersal/matrix"
)

// Polynomial holds coefficients in ascending degree order: coeffs[0] is the
// constant term. An empty Polynomial is the zero polynomial.
type Polynomial struct {
	coeffs []field.Element
}

// New builds a polynomial from a coefficient slice. The slice is copied.
func New(coeffs []field.Element) Polynomial {
	c := make([]field.Element, len(coeffs))
	copy(c, coeffs)
	return Polynomial{coeffs: c}
}

// FromRow reinterprets row i of m as polynomial coefficients.
func FromRow(m *matrix.Matrix, i int) Polynomial {
	return Polynomial{coeffs: m.Row(i)}
}

// FromColumn reinterprets column j of m as polynomial coefficients.
func FromColumn(m *matrix.Matrix, j int) Polynomial {
	return Polynomial{coeffs: m.Column(j)}
}

// Degree returns the nominal degree, len(coeffs) - 1. The zero polynomial
// has degree -1. Leading zero coefficients are not stripped.
func (p Polynomial) Degree() int {
	return len(p.coeffs) - 1
}

// Coefficients returns a copy of the coefficient slice.
func (p Polynomial) Coefficients() []field.Element {
	out := make([]field.Element, len(p.coeffs))
	copy(out, p.coeffs)
	return out
}

// Evaluate computes p(x) by Horner's method.
func (p Polynomial) Evaluate(x field.Element) field.Element {
	return Eval(p.coeffs, x)
}

// Eval computes the value at x of the polynomial with the given ascending
// coefficients, by Horner's method.
func Eval(coeffs []field.Element, x field.Element) field.Element {
	if len(coeffs) == 0 {
		return field.Zero()
	}
	acc := coeffs[len(coeffs)-1]
	for i := len(coeffs) - 2; i >= 0; i-- {
		acc = acc.Mul(x).Add(coeffs[i])
	}
	return acc
}

// Powers returns [1, x, x^2, ..., x^{n-1}].
func Powers(x field.Element, n int) []field.Element {
	out := make([]field.Element, n)
	if n == 0 {
		return out
	}
	out[0] = field.One()
	for i := 1; i < n; i++ {
		out[i] = out[i-1].Mul(x)
	}
	return out
}
