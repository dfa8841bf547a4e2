// Package party defines the identifiers used to address consortium members.
package party

import (
	"sort"

	"github.com/cronokirby/saferith"

	"github.com/luxfi/consortium/pkg/math/curve"
)

// ID identifies a consortium member. IDs double as the evaluation points of
// the secret sharing polynomials, so they must be non-empty and unique.
type ID string

// Scalar returns the evaluation point associated with this ID.
// It is never zero for a non-empty ID.
func (id ID) Scalar(group curve.Curve) curve.Scalar {
	return group.NewScalar().SetNat(new(saferith.Nat).SetBytes([]byte(id)))
}

// Bytes returns the raw bytes of the ID.
func (id ID) Bytes() []byte {
	return []byte(id)
}

// Domain implements hash.WriterToHash.
func (id ID) Domain() string {
	return "party.ID"
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (id ID) MarshalBinary() ([]byte, error) {
	return []byte(id), nil
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (id *ID) UnmarshalBinary(data []byte) error {
	*id = ID(data)
	return nil
}

// IDSlice is a sorted set of party IDs.
type IDSlice []ID

// NewIDSlice returns a sorted copy of ids with duplicates removed.
func NewIDSlice(ids []ID) IDSlice {
	out := make(IDSlice, 0, len(ids))
	seen := make(map[ID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Contains reports whether every given ID is present in the slice.
func (ids IDSlice) Contains(queries ...ID) bool {
	for _, q := range queries {
		i := sort.Search(len(ids), func(i int) bool { return ids[i] >= q })
		if i >= len(ids) || ids[i] != q {
			return false
		}
	}
	return true
}

// Remove returns a copy of the slice without the given ID.
func (ids IDSlice) Remove(id ID) IDSlice {
	out := make(IDSlice, 0, len(ids))
	for _, other := range ids {
		if other != id {
			out = append(out, other)
		}
	}
	return out
}

// Union returns the sorted union of both slices.
func (ids IDSlice) Union(others IDSlice) IDSlice {
	all := make([]ID, 0, len(ids)+len(others))
	all = append(all, ids...)
	all = append(all, others...)
	return NewIDSlice(all)
}

// Intersect returns the sorted intersection of both slices.
func (ids IDSlice) Intersect(others IDSlice) IDSlice {
	out := make([]ID, 0, len(ids))
	for _, id := range ids {
		if others.Contains(id) {
			out = append(out, id)
		}
	}
	return NewIDSlice(out)
}

// Copy returns a copy of the slice.
func (ids IDSlice) Copy() IDSlice {
	out := make(IDSlice, len(ids))
	copy(out, ids)
	return out
}
