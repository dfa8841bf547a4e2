package curve_test

import (
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/consortium/pkg/math/curve"
)

func TestScalarArithmetic(t *testing.T) {
	group := curve.Secp256k1{}

	a := group.NewScalar().SetUInt32(7)
	b := group.NewScalar().SetUInt32(5)

	sum := group.NewScalar().Set(a).Add(b)
	assert.True(t, sum.Equal(group.NewScalar().SetUInt32(12)))

	diff := group.NewScalar().Set(a).Sub(b)
	assert.True(t, diff.Equal(group.NewScalar().SetUInt32(2)))

	prod := group.NewScalar().Set(a).Mul(b)
	assert.True(t, prod.Equal(group.NewScalar().SetUInt32(35)))

	neg := group.NewScalar().Set(a).Negate()
	assert.True(t, group.NewScalar().Set(a).Add(neg).IsZero())
}

func TestScalarInvert(t *testing.T) {
	group := curve.Secp256k1{}

	a := group.NewScalar().SetUInt32(42)
	inv, err := a.Invert()
	require.NoError(t, err)
	assert.True(t, group.NewScalar().Set(a).Mul(inv).Equal(group.NewScalar().SetUInt32(1)))

	_, err = group.NewScalar().Invert()
	assert.ErrorIs(t, err, curve.ErrNonInvertible)
}

func TestScalarReduction(t *testing.T) {
	group := curve.Secp256k1{}

	// order + 1 reduces to 1
	order := new(saferith.Nat).SetBytes(group.Order().Bytes())
	overflow := new(saferith.Nat).Add(order, new(saferith.Nat).SetUint64(1), 264)
	s := group.NewScalar().SetNat(overflow)
	assert.True(t, s.Equal(group.NewScalar().SetUInt32(1)))
}

func TestScalarMarshal(t *testing.T) {
	group := curve.Secp256k1{}
	a := group.NewScalar().SetUInt32(0xBEEF)
	data, err := a.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, 32)

	b, err := curve.FromBytes(group, data)
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestPointArithmetic(t *testing.T) {
	group := curve.Secp256k1{}

	g := group.NewBasePoint()
	two := group.NewScalar().SetUInt32(2)

	doubled := two.Act(g)
	assert.True(t, doubled.Equal(g.Add(g)))
	assert.True(t, doubled.Equal(two.ActOnBase()))

	assert.True(t, g.Sub(g).IsIdentity())
	assert.True(t, g.Add(g.Negate()).IsIdentity())

	identity := group.NewPoint()
	assert.True(t, identity.IsIdentity())
	assert.True(t, g.Add(identity).Equal(g))
}

func TestPointMarshal(t *testing.T) {
	group := curve.Secp256k1{}

	p := group.NewScalar().SetUInt32(123456).ActOnBase()
	data, err := p.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, 33)

	q, err := curve.PointFromBytes(group, data)
	require.NoError(t, err)
	assert.True(t, p.Equal(q))

	// identity round-trips through its all-zero encoding
	identity := group.NewPoint()
	data, err = identity.MarshalBinary()
	require.NoError(t, err)
	q, err = curve.PointFromBytes(group, data)
	require.NoError(t, err)
	assert.True(t, q.IsIdentity())

	_, err = curve.PointFromBytes(group, make([]byte, 5))
	assert.Error(t, err)
}
