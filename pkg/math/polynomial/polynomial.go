// Package polynomial implements the secret sharing arithmetic: random
// polynomials over the group order, Feldman commitments in the exponent, and
// Lagrange interpolation.
package polynomial

import (
	"crypto/rand"

	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/math/sample"
)

// Polynomial is a polynomial over the scalar field. The constant term is the
// secret being shared; the whole structure only ever exists inside the party
// performing a dealing step.
type Polynomial struct {
	group        curve.Curve
	coefficients []curve.Scalar
}

// NewPolynomial samples a random polynomial of the given degree. If constant
// is non-nil it becomes the constant term, otherwise the constant term is
// random too.
func NewPolynomial(group curve.Curve, degree int, constant curve.Scalar) *Polynomial {
	coefficients := make([]curve.Scalar, degree+1)
	if constant == nil {
		constant = sample.Scalar(rand.Reader, group)
	}
	coefficients[0] = group.NewScalar().Set(constant)
	for i := 1; i <= degree; i++ {
		coefficients[i] = sample.Scalar(rand.Reader, group)
	}
	return &Polynomial{group: group, coefficients: coefficients}
}

// Evaluate returns the value of the polynomial at x, using Horner's method.
// Evaluating at zero would return the secret itself, so it is forbidden.
func (p *Polynomial) Evaluate(x curve.Scalar) curve.Scalar {
	if x.IsZero() {
		panic("polynomial: attempt to leak secret by evaluating at zero")
	}
	result := p.group.NewScalar()
	for i := len(p.coefficients) - 1; i >= 0; i-- {
		result.Mul(x).Add(p.coefficients[i])
	}
	return result
}

// Constant returns a copy of the constant term.
func (p *Polynomial) Constant() curve.Scalar {
	return p.group.NewScalar().Set(p.coefficients[0])
}

// Degree returns the degree of the polynomial.
func (p *Polynomial) Degree() int {
	return len(p.coefficients) - 1
}

// Zeroize overwrites all coefficients. The polynomial is unusable afterwards.
func (p *Polynomial) Zeroize() {
	for _, c := range p.coefficients {
		c.Zeroize()
	}
	p.coefficients = nil
}
