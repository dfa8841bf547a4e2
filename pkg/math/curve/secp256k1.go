package curve

import (
	"errors"
	"fmt"

	"github.com/cronokirby/saferith"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

const (
	scalarByteSize = 32
	pointByteSize  = 33
)

var secp256k1Order *saferith.Modulus

func init() {
	secp256k1Order = saferith.ModulusFromBytes(secp256k1.S256().N.Bytes())
}

// Secp256k1 implements Curve over the secp256k1 group.
type Secp256k1 struct{}

func (Secp256k1) Name() string { return "secp256k1" }

func (Secp256k1) Order() *saferith.Modulus { return secp256k1Order }

func (Secp256k1) ScalarBits() int { return 256 }

// SafeScalarBytes adds 16 bytes of slack so reduction bias is negligible.
func (Secp256k1) SafeScalarBytes() int { return scalarByteSize + 16 }

func (Secp256k1) NewScalar() Scalar {
	return &secp256k1Scalar{value: new(saferith.Nat).SetUint64(0)}
}

func (Secp256k1) NewPoint() Point {
	// The zero value of a Jacobian point is the point at infinity.
	return &secp256k1Point{}
}

func (Secp256k1) NewBasePoint() Point {
	p := &secp256k1Point{}
	one := new(secp256k1.ModNScalar)
	one.SetInt(1)
	secp256k1.ScalarBaseMultNonConst(one, &p.value)
	return p
}

type secp256k1Scalar struct {
	value *saferith.Nat
}

func (s *secp256k1Scalar) Curve() Curve { return Secp256k1{} }

func (s *secp256k1Scalar) Add(other Scalar) Scalar {
	o := other.(*secp256k1Scalar)
	s.value.ModAdd(s.value, o.value, secp256k1Order)
	return s
}

func (s *secp256k1Scalar) Sub(other Scalar) Scalar {
	o := other.(*secp256k1Scalar)
	neg := new(saferith.Nat).ModNeg(o.value, secp256k1Order)
	s.value.ModAdd(s.value, neg, secp256k1Order)
	return s
}

func (s *secp256k1Scalar) Mul(other Scalar) Scalar {
	o := other.(*secp256k1Scalar)
	s.value.ModMul(s.value, o.value, secp256k1Order)
	return s
}

func (s *secp256k1Scalar) Negate() Scalar {
	s.value.ModNeg(s.value, secp256k1Order)
	return s
}

func (s *secp256k1Scalar) Invert() (Scalar, error) {
	if s.IsZero() {
		return nil, ErrNonInvertible
	}
	inv := new(saferith.Nat).ModInverse(s.value, secp256k1Order)
	return &secp256k1Scalar{value: inv}, nil
}

func (s *secp256k1Scalar) Equal(other Scalar) bool {
	o := other.(*secp256k1Scalar)
	return s.value.Eq(o.value) == 1
}

func (s *secp256k1Scalar) IsZero() bool {
	zero := new(saferith.Nat).SetUint64(0)
	return s.value.Eq(zero) == 1
}

func (s *secp256k1Scalar) Set(other Scalar) Scalar {
	o := other.(*secp256k1Scalar)
	s.value = o.value.Clone()
	return s
}

func (s *secp256k1Scalar) SetNat(n *saferith.Nat) Scalar {
	s.value = new(saferith.Nat).Mod(n, secp256k1Order)
	return s
}

func (s *secp256k1Scalar) SetUInt32(v uint32) Scalar {
	return s.SetNat(new(saferith.Nat).SetUint64(uint64(v)))
}

func (s *secp256k1Scalar) Act(p Point) Point {
	q := p.(*secp256k1Point)
	k := s.modN()
	result := &secp256k1Point{}
	if q.IsIdentity() {
		return result
	}
	secp256k1.ScalarMultNonConst(k, &q.value, &result.value)
	return result
}

func (s *secp256k1Scalar) ActOnBase() Point {
	k := s.modN()
	result := &secp256k1Point{}
	secp256k1.ScalarBaseMultNonConst(k, &result.value)
	return result
}

func (s *secp256k1Scalar) Zeroize() {
	s.value = new(saferith.Nat).SetUint64(0)
}

func (s *secp256k1Scalar) MarshalBinary() ([]byte, error) {
	buf := make([]byte, scalarByteSize)
	b := s.value.Bytes()
	if len(b) > scalarByteSize {
		// Reduced scalars never exceed 32 bytes; anything longer is a bug.
		return nil, errors.New("curve: scalar overflows fixed-width encoding")
	}
	copy(buf[scalarByteSize-len(b):], b)
	return buf, nil
}

func (s *secp256k1Scalar) UnmarshalBinary(data []byte) error {
	if len(data) != scalarByteSize {
		return fmt.Errorf("curve: invalid scalar length %d", len(data))
	}
	s.SetNat(new(saferith.Nat).SetBytes(data))
	return nil
}

// modN converts the scalar to the representation used for point arithmetic.
func (s *secp256k1Scalar) modN() *secp256k1.ModNScalar {
	buf, _ := s.MarshalBinary()
	k := new(secp256k1.ModNScalar)
	k.SetByteSlice(buf)
	return k
}

type secp256k1Point struct {
	value secp256k1.JacobianPoint
}

func (p *secp256k1Point) Curve() Curve { return Secp256k1{} }

func (p *secp256k1Point) Add(other Point) Point {
	o := other.(*secp256k1Point)
	result := &secp256k1Point{}
	secp256k1.AddNonConst(&p.value, &o.value, &result.value)
	return result
}

func (p *secp256k1Point) Sub(other Point) Point {
	return p.Add(other.Negate())
}

func (p *secp256k1Point) Negate() Point {
	result := &secp256k1Point{}
	result.value.Set(&p.value)
	result.value.Y.Normalize()
	result.value.Y.Negate(1).Normalize()
	return result
}

func (p *secp256k1Point) Equal(other Point) bool {
	o := other.(*secp256k1Point)
	if p.IsIdentity() || o.IsIdentity() {
		return p.IsIdentity() && o.IsIdentity()
	}
	a, b := p.affine(), o.affine()
	return a.X.Equals(&b.X) && a.Y.Equals(&b.Y)
}

func (p *secp256k1Point) IsIdentity() bool {
	z := new(secp256k1.FieldVal).Set(&p.value.Z)
	return z.Normalize().IsZero()
}

func (p *secp256k1Point) XBytes() ([]byte, error) {
	if p.IsIdentity() {
		return nil, errors.New("curve: identity point has no x coordinate")
	}
	a := p.affine()
	x := a.X.Bytes()
	return x[:], nil
}

func (p *secp256k1Point) MarshalBinary() ([]byte, error) {
	if p.IsIdentity() {
		// The identity has no SEC1 encoding; use all zeros.
		return make([]byte, pointByteSize), nil
	}
	a := p.affine()
	pub := secp256k1.NewPublicKey(&a.X, &a.Y)
	return pub.SerializeCompressed(), nil
}

func (p *secp256k1Point) UnmarshalBinary(data []byte) error {
	if len(data) != pointByteSize {
		return fmt.Errorf("curve: invalid point length %d", len(data))
	}
	allZero := true
	for _, b := range data {
		if b != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		p.value = secp256k1.JacobianPoint{}
		return nil
	}
	pub, err := secp256k1.ParsePubKey(data)
	if err != nil {
		return fmt.Errorf("curve: invalid point encoding: %w", err)
	}
	pub.AsJacobian(&p.value)
	return nil
}

// affine returns a normalized affine copy of the point.
func (p *secp256k1Point) affine() *secp256k1.JacobianPoint {
	a := new(secp256k1.JacobianPoint)
	a.Set(&p.value)
	a.ToAffine()
	a.X.Normalize()
	a.Y.Normalize()
	return a
}
