package party_test

import (
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
)

func TestIDScalarNonZero(t *testing.T) {
	group := curve.Secp256k1{}
	for _, id := range []party.ID{"1", "alice", "member-42"} {
		assert.False(t, id.Scalar(group).IsZero(), "ID %q must map to a usable evaluation point", id)
	}
}

func TestNewIDSlice(t *testing.T) {
	ids := party.NewIDSlice([]party.ID{"c", "a", "b", "a"})
	assert.Equal(t, party.IDSlice{"a", "b", "c"}, ids)
	assert.True(t, ids.Contains("a", "c"))
	assert.False(t, ids.Contains("d"))
}

func TestSetOperations(t *testing.T) {
	a := party.NewIDSlice([]party.ID{"1", "2", "3"})
	b := party.NewIDSlice([]party.ID{"3", "4"})

	assert.Equal(t, party.IDSlice{"1", "2", "3", "4"}, a.Union(b))
	assert.Equal(t, party.IDSlice{"3"}, a.Intersect(b))
	assert.Equal(t, party.IDSlice{"1", "3"}, a.Remove("2"))

	// Remove does not mutate the receiver
	assert.Equal(t, party.IDSlice{"1", "2", "3"}, a)
}

// IDs appear as struct fields and slice elements inside wire messages, so the
// binary codec must round-trip in both positions.
func TestIDWireRoundTrip(t *testing.T) {
	type envelope struct {
		From     party.ID
		Accepted []party.ID
	}
	in := envelope{From: "alice", Accepted: []party.ID{"1", "2", "bob"}}

	data, err := cbor.Marshal(in)
	require.NoError(t, err)

	var out envelope
	require.NoError(t, cbor.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}
