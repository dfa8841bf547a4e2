// Package schnorr implements Schnorr signatures over the module's curve
// abstraction, with the challenge derived from a domain-separated transcript.
package schnorr

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/luxfi/consortium/pkg/hash"
	"github.com/luxfi/consortium/pkg/math/curve"
)

// Signature is a Schnorr signature (R, z) satisfying g^z = R + c*Q where
// c = Challenge(R, Q, digest).
type Signature struct {
	// R is the public nonce commitment.
	R curve.Point
	// Z is the response scalar.
	Z curve.Scalar
}

// EmptySignature returns a Signature with allocated fields, ready for
// unmarshaling.
func EmptySignature(group curve.Curve) Signature {
	return Signature{R: group.NewPoint(), Z: group.NewScalar()}
}

// MessageDigest hashes an arbitrary-length message down to the fixed-size
// digest that signing operates on.
func MessageDigest(message []byte) []byte {
	digest := sha3.Sum256(message)
	return digest[:]
}

// Challenge computes the signature challenge c = H(R, Q, digest) as a scalar.
func Challenge(group curve.Curve, R, publicKey curve.Point, digest []byte) curve.Scalar {
	return hash.New(
		hash.BytesWithDomain{TheDomain: "Schnorr-Challenge", Bytes: nil},
		R,
		publicKey,
		hash.BytesWithDomain{TheDomain: "Digest", Bytes: digest},
	).Scalar(group)
}

// Verify reports whether the signature is valid for the given public key and
// digest.
func (sig Signature) Verify(publicKey curve.Point, digest []byte) bool {
	if sig.R == nil || sig.Z == nil || sig.R.IsIdentity() || sig.Z.IsZero() {
		return false
	}
	group := publicKey.Curve()
	c := Challenge(group, sig.R, publicKey, digest)
	lhs := sig.Z.ActOnBase()
	rhs := sig.R.Add(c.Act(publicKey))
	return lhs.Equal(rhs)
}

// MarshalBinary encodes the signature as R || z in compressed form.
func (sig Signature) MarshalBinary() ([]byte, error) {
	r, err := sig.R.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("schnorr: %w", err)
	}
	z, err := sig.Z.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("schnorr: %w", err)
	}
	return append(r, z...), nil
}

// UnmarshalBinary decodes a signature produced by MarshalBinary. The
// receiver's fields must be allocated, as by EmptySignature.
func (sig *Signature) UnmarshalBinary(data []byte) error {
	if sig.R == nil || sig.Z == nil {
		return errors.New("schnorr: unmarshal into empty signature")
	}
	rLen := 33
	if len(data) != rLen+32 {
		return fmt.Errorf("schnorr: invalid signature length %d", len(data))
	}
	if err := sig.R.UnmarshalBinary(data[:rLen]); err != nil {
		return fmt.Errorf("schnorr: %w", err)
	}
	if err := sig.Z.UnmarshalBinary(data[rLen:]); err != nil {
		return fmt.Errorf("schnorr: %w", err)
	}
	return nil
}
