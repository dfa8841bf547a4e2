// Package types holds small shared types used across the protocols.
package types

import (
	"errors"
	"fmt"
	"io"
)

// RIDLength is the byte length of a RID.
const RIDLength = 32

// RID is a random identifier binding a protocol run's outputs together.
type RID []byte

// NewRID samples a fresh RID from the given source of randomness.
func NewRID(rand io.Reader) (RID, error) {
	rid := make(RID, RIDLength)
	if _, err := io.ReadFull(rand, rid); err != nil {
		return nil, fmt.Errorf("types: failed to sample RID: %w", err)
	}
	return rid, nil
}

// Validate checks the RID has the expected length and is not all zero.
func (rid RID) Validate() error {
	if len(rid) != RIDLength {
		return fmt.Errorf("types: RID has invalid length %d", len(rid))
	}
	for _, b := range rid {
		if b != 0 {
			return nil
		}
	}
	return errors.New("types: RID is zero")
}

// XOR mixes another RID into this one in place.
func (rid RID) XOR(other RID) {
	for i := range rid {
		rid[i] ^= other[i]
	}
}

// Copy returns a copy of the RID.
func (rid RID) Copy() RID {
	out := make(RID, len(rid))
	copy(out, rid)
	return out
}

// Domain implements hash.WriterToHash.
func (rid RID) Domain() string { return "types.RID" }

// MarshalBinary implements encoding.BinaryMarshaler.
func (rid RID) MarshalBinary() ([]byte, error) { return rid, nil }
