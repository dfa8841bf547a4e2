// Package curve defines the abstract group used by the threshold protocols,
// together with a secp256k1 implementation.
package curve

import (
	"encoding"
	"errors"

	"github.com/cronokirby/saferith"
)

// ErrNonInvertible is returned by Scalar.Invert for the zero scalar.
// A well-formed nonzero scalar always has an inverse modulo the prime group
// order, so callers must treat this as a fatal consistency violation rather
// than a retryable condition.
var ErrNonInvertible = errors.New("curve: scalar is not invertible")

// Curve represents the group we use for secret sharing and signing.
type Curve interface {
	// NewPoint returns the identity element.
	NewPoint() Point
	// NewBasePoint returns the generator.
	NewBasePoint() Point
	// NewScalar returns the zero scalar.
	NewScalar() Scalar
	// Name returns the name of the curve.
	Name() string
	// Order returns the group order as a modulus for field arithmetic.
	Order() *saferith.Modulus
	// ScalarBits returns the number of significant bits of the order.
	ScalarBits() int
	// SafeScalarBytes returns the number of random bytes required to sample
	// a scalar with negligible bias.
	SafeScalarBytes() int
}

// Scalar is an integer modulo the group order. All secret-bearing scalars are
// reduced at creation, and arithmetic goes through saferith so the usual
// operations are constant-time with respect to the value.
//
// Arithmetic methods mutate and return the receiver.
type Scalar interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler

	Curve() Curve
	Add(Scalar) Scalar
	Sub(Scalar) Scalar
	Mul(Scalar) Scalar
	Negate() Scalar
	// Invert returns a fresh scalar holding the modular inverse.
	// It fails with ErrNonInvertible only for the zero scalar.
	Invert() (Scalar, error)
	Equal(Scalar) bool
	IsZero() bool
	Set(Scalar) Scalar
	SetNat(*saferith.Nat) Scalar
	SetUInt32(uint32) Scalar
	// Act returns the scalar multiple of the given point.
	Act(Point) Point
	// ActOnBase returns the scalar multiple of the generator.
	ActOnBase() Point
	// Zeroize overwrites the scalar with zero.
	Zeroize()
}

// Point is an element of the group. Methods never mutate the receiver.
type Point interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler

	Curve() Curve
	Add(Point) Point
	Sub(Point) Point
	Negate() Point
	Equal(Point) bool
	IsIdentity() bool
	// XBytes returns the fixed-width affine x coordinate.
	// It fails for the identity element.
	XBytes() ([]byte, error)
}

// FromBytes decodes a scalar from its fixed-width encoding.
func FromBytes(group Curve, data []byte) (Scalar, error) {
	s := group.NewScalar()
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return s, nil
}

// PointFromBytes decodes a point from its fixed-width encoding.
func PointFromBytes(group Curve, data []byte) (Point, error) {
	p := group.NewPoint()
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return p, nil
}
