// Package sample provides uniform random sampling of scalars.
package sample

import (
	"fmt"
	"io"

	"github.com/cronokirby/saferith"

	"github.com/luxfi/consortium/pkg/math/curve"
)

const maxIterations = 255

// Scalar samples a uniform nonzero scalar from the given source of
// randomness.
func Scalar(rand io.Reader, group curve.Curve) curve.Scalar {
	buf := make([]byte, group.SafeScalarBytes())
	for i := 0; i < maxIterations; i++ {
		if _, err := io.ReadFull(rand, buf); err != nil {
			panic(fmt.Sprintf("sample: failed to read randomness: %v", err))
		}
		s := group.NewScalar().SetNat(new(saferith.Nat).SetBytes(buf))
		if !s.IsZero() {
			return s
		}
	}
	panic("sample: exhausted iterations looking for a nonzero scalar")
}
