package polynomial

import (
	"errors"
	"fmt"

	"github.com/luxfi/consortium/pkg/math/curve"
)

const pointByteSize = 33

// Exponent is a polynomial whose coefficients are commitments g^aᵢ to the
// coefficients of a Polynomial. Broadcasting an Exponent lets every receiver
// verify its share without learning the polynomial (Feldman verification).
type Exponent struct {
	group        curve.Curve
	coefficients []curve.Point
}

// NewPolynomialExponent commits to every coefficient of p.
func NewPolynomialExponent(p *Polynomial) *Exponent {
	coefficients := make([]curve.Point, len(p.coefficients))
	for i, c := range p.coefficients {
		coefficients[i] = c.ActOnBase()
	}
	return &Exponent{group: p.group, coefficients: coefficients}
}

// EmptyExponent returns an Exponent ready for unmarshalling.
func EmptyExponent(group curve.Curve) *Exponent {
	return &Exponent{group: group}
}

// Evaluate computes g^f(x) from the coefficient commitments using Horner's
// method in the exponent.
func (e *Exponent) Evaluate(x curve.Scalar) curve.Point {
	result := e.group.NewPoint()
	for i := len(e.coefficients) - 1; i >= 0; i-- {
		result = x.Act(result).Add(e.coefficients[i])
	}
	return result
}

// Constant returns the commitment to the constant term.
func (e *Exponent) Constant() curve.Point {
	return e.coefficients[0]
}

// Degree returns the degree of the committed polynomial.
func (e *Exponent) Degree() int {
	return len(e.coefficients) - 1
}

// VerifyShare checks that share is consistent with the committed polynomial
// evaluated at x. A mismatch is an expected, non-fatal outcome used to
// identify a misbehaving dealer, so the result is a bool rather than an
// error.
func (e *Exponent) VerifyShare(share curve.Scalar, x curve.Scalar) bool {
	return share.ActOnBase().Equal(e.Evaluate(x))
}

// MarshalBinary encodes the commitments as a flat sequence of fixed-width
// points.
func (e *Exponent) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, len(e.coefficients)*pointByteSize)
	for _, c := range e.coefficients {
		b, err := c.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("polynomial: marshal exponent: %w", err)
		}
		out = append(out, b...)
	}
	return out, nil
}

// UnmarshalBinary decodes a sequence of fixed-width points.
func (e *Exponent) UnmarshalBinary(data []byte) error {
	if len(data) == 0 || len(data)%pointByteSize != 0 {
		return errors.New("polynomial: invalid exponent encoding")
	}
	n := len(data) / pointByteSize
	coefficients := make([]curve.Point, n)
	for i := 0; i < n; i++ {
		p := e.group.NewPoint()
		if err := p.UnmarshalBinary(data[i*pointByteSize : (i+1)*pointByteSize]); err != nil {
			return fmt.Errorf("polynomial: unmarshal exponent: %w", err)
		}
		coefficients[i] = p
	}
	e.coefficients = coefficients
	return nil
}

// Domain implements hash.WriterToHash.
func (e *Exponent) Domain() string { return "polynomial.Exponent" }
