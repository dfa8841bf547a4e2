package polynomial

import (
	"errors"
	"fmt"

	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
)

var (
	// ErrInsufficientShares indicates fewer shares than the threshold were
	// supplied to an interpolation.
	ErrInsufficientShares = errors.New("polynomial: insufficient shares")
	// ErrDuplicateShare indicates the same member index appeared twice in an
	// interpolation set.
	ErrDuplicateShare = errors.New("polynomial: duplicate share index")
)

// Lagrange returns the Lagrange coefficients at 0 for the polynomial
// determined by the given interpolation points. Multiplying each party's
// share by its coefficient and summing yields the value at 0.
func Lagrange(group curve.Curve, ids []party.ID) (map[party.ID]curve.Scalar, error) {
	return LagrangeAt(group, ids, group.NewScalar())
}

// LagrangeAt returns the Lagrange coefficients for evaluating at an arbitrary
// point x.
func LagrangeAt(group curve.Curve, ids []party.ID, x curve.Scalar) (map[party.ID]curve.Scalar, error) {
	seen := make(map[party.ID]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return nil, fmt.Errorf("%w: %v", ErrDuplicateShare, id)
		}
		seen[id] = true
	}

	coefficients := make(map[party.ID]curve.Scalar, len(ids))
	for _, i := range ids {
		xi := i.Scalar(group)
		numerator := group.NewScalar().SetUInt32(1)
		denominator := group.NewScalar().SetUInt32(1)
		for _, j := range ids {
			if i == j {
				continue
			}
			xj := j.Scalar(group)
			// numerator *= (x - xj), denominator *= (xi - xj)
			numerator.Mul(group.NewScalar().Set(x).Sub(xj))
			denominator.Mul(group.NewScalar().Set(xi).Sub(xj))
		}
		inv, err := denominator.Invert()
		if err != nil {
			// Distinct indices always yield nonzero denominators, so this is
			// a consistency violation, not a recoverable condition.
			return nil, fmt.Errorf("polynomial: lagrange coefficient for %v: %w", i, err)
		}
		coefficients[i] = numerator.Mul(inv)
	}
	return coefficients, nil
}

// Interpolate reconstructs the shared value at 0 from the given shares.
// At least threshold shares are required.
func Interpolate(group curve.Curve, shares map[party.ID]curve.Scalar, threshold int) (curve.Scalar, error) {
	return InterpolateAt(group, shares, threshold, group.NewScalar())
}

// InterpolateAt reconstructs the shared polynomial's value at an arbitrary
// point from the given shares.
func InterpolateAt(group curve.Curve, shares map[party.ID]curve.Scalar, threshold int, x curve.Scalar) (curve.Scalar, error) {
	if len(shares) < threshold {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientShares, len(shares), threshold)
	}
	ids := make([]party.ID, 0, len(shares))
	for id := range shares {
		ids = append(ids, id)
	}
	coefficients, err := LagrangeAt(group, ids, x)
	if err != nil {
		return nil, err
	}
	result := group.NewScalar()
	for id, share := range shares {
		result.Add(group.NewScalar().Set(share).Mul(coefficients[id]))
	}
	return result, nil
}
