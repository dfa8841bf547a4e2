package polynomial_test

import (
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/consortium/internal/test"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/math/polynomial"
	"github.com/luxfi/consortium/pkg/party"
)

func TestLagrange(t *testing.T) {
	group := curve.Secp256k1{}

	N := 10
	allIDs := test.PartyIDs(N)
	coefsEven, err := polynomial.Lagrange(group, allIDs)
	require.NoError(t, err)
	coefsOdd, err := polynomial.Lagrange(group, allIDs[:N-1])
	require.NoError(t, err)
	sumEven := group.NewScalar()
	sumOdd := group.NewScalar()
	one := group.NewScalar().SetNat(new(saferith.Nat).SetUint64(1))
	for _, c := range coefsEven {
		sumEven.Add(c)
	}
	for _, c := range coefsOdd {
		sumOdd.Add(c)
	}
	assert.True(t, sumEven.Equal(one))
	assert.True(t, sumOdd.Equal(one))
}

func TestLagrangeDuplicate(t *testing.T) {
	group := curve.Secp256k1{}
	ids := []party.ID{"a", "b", "a"}
	_, err := polynomial.Lagrange(group, ids)
	assert.ErrorIs(t, err, polynomial.ErrDuplicateShare)
}

func TestInterpolate(t *testing.T) {
	group := curve.Secp256k1{}
	threshold := 4
	ids := test.PartyIDs(7)

	secret := group.NewScalar().SetUInt32(0xC0FFEE)
	poly := polynomial.NewPolynomial(group, threshold-1, secret)

	shares := make(map[party.ID]curve.Scalar, len(ids))
	for _, id := range ids {
		shares[id] = poly.Evaluate(id.Scalar(group))
	}

	// any subset of exactly threshold shares recovers the secret
	subset := make(map[party.ID]curve.Scalar, threshold)
	for _, id := range ids[2 : 2+threshold] {
		subset[id] = shares[id]
	}
	recovered, err := polynomial.Interpolate(group, subset, threshold)
	require.NoError(t, err)
	assert.True(t, recovered.Equal(secret))

	// all shares work too
	recovered, err = polynomial.Interpolate(group, shares, threshold)
	require.NoError(t, err)
	assert.True(t, recovered.Equal(secret))

	// threshold-1 shares are refused
	small := make(map[party.ID]curve.Scalar, threshold-1)
	for _, id := range ids[:threshold-1] {
		small[id] = shares[id]
	}
	_, err = polynomial.Interpolate(group, small, threshold)
	assert.ErrorIs(t, err, polynomial.ErrInsufficientShares)
}

func TestInterpolateAt(t *testing.T) {
	group := curve.Secp256k1{}
	threshold := 3
	ids := test.PartyIDs(threshold)

	poly := polynomial.NewPolynomial(group, threshold-1, nil)
	shares := make(map[party.ID]curve.Scalar, len(ids))
	for _, id := range ids {
		shares[id] = poly.Evaluate(id.Scalar(group))
	}

	x := group.NewScalar().SetUInt32(0xDEAD)
	want := poly.Evaluate(x)
	got, err := polynomial.InterpolateAt(group, shares, threshold, x)
	require.NoError(t, err)
	assert.True(t, got.Equal(want))
}

func TestEvaluateZeroPanics(t *testing.T) {
	group := curve.Secp256k1{}
	poly := polynomial.NewPolynomial(group, 2, nil)
	assert.Panics(t, func() {
		poly.Evaluate(group.NewScalar())
	})
}

func TestExponent(t *testing.T) {
	group := curve.Secp256k1{}
	poly := polynomial.NewPolynomial(group, 3, nil)
	vss := polynomial.NewPolynomialExponent(poly)

	assert.Equal(t, poly.Degree(), vss.Degree())
	assert.True(t, poly.Constant().ActOnBase().Equal(vss.Constant()))

	x := party.ID("member").Scalar(group)
	share := poly.Evaluate(x)
	assert.True(t, share.ActOnBase().Equal(vss.Evaluate(x)))
	assert.True(t, vss.VerifyShare(share, x))

	// a perturbed share must not verify
	bad := group.NewScalar().Set(share).Add(group.NewScalar().SetUInt32(1))
	assert.False(t, vss.VerifyShare(bad, x))
}

func TestExponentMarshal(t *testing.T) {
	group := curve.Secp256k1{}
	poly := polynomial.NewPolynomial(group, 4, nil)
	vss := polynomial.NewPolynomialExponent(poly)

	data, err := vss.MarshalBinary()
	require.NoError(t, err)

	decoded := polynomial.EmptyExponent(group)
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, vss.Degree(), decoded.Degree())

	x := party.ID("x").Scalar(group)
	assert.True(t, vss.Evaluate(x).Equal(decoded.Evaluate(x)))
}
