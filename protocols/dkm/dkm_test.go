package dkm_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/consortium/internal/test"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/pkg/schnorr"
	"github.com/luxfi/consortium/protocols/dkm"
)

func TestGroupLifecycle(t *testing.T) {
	group := curve.Secp256k1{}
	founders := test.PartyIDs(5)
	threshold := 3

	g, err := dkm.NewGroup(group, founders, threshold)
	require.NoError(t, err)
	assert.Equal(t, founders, g.Members())
	assert.Equal(t, threshold, g.Threshold())
	assert.EqualValues(t, 0, g.Generation())

	originalKey := g.GroupKey()
	message := []byte("treasury transfer 1")

	sig, err := g.Sign(founders[:threshold], message)
	require.NoError(t, err)
	assert.True(t, sig.Verify(originalKey, schnorr.MessageDigest(message)))

	// admit a member
	joined := founders.Union(party.IDSlice{"6"})
	require.NoError(t, g.RequestTransition(joined, threshold))
	assert.EqualValues(t, 1, g.Generation())
	assert.Equal(t, joined, g.Members())
	assert.True(t, g.GroupKey().Equal(originalKey), "group key must survive admission")

	// remove a founder
	reduced := joined.Remove("1")
	require.NoError(t, g.RequestTransition(reduced, threshold))
	assert.EqualValues(t, 2, g.Generation())
	assert.True(t, g.GroupKey().Equal(originalKey), "group key must survive removal")

	// the new generation signs under the original key
	message = []byte("treasury transfer 2")
	sig, err = g.Sign(reduced[:threshold], message)
	require.NoError(t, err)
	assert.True(t, sig.Verify(originalKey, schnorr.MessageDigest(message)))

	// the removed member is gone
	_, err = g.Sign(party.IDSlice{"1", "2", "3"}, message)
	assert.Error(t, err)
	_, err = g.Config("1")
	assert.Error(t, err)
}

func TestGroupThresholdChange(t *testing.T) {
	group := curve.Secp256k1{}
	members := test.PartyIDs(4)

	g, err := dkm.NewGroup(group, members, 2)
	require.NoError(t, err)
	originalKey := g.GroupKey()

	require.NoError(t, g.RequestTransition(members, 3))
	assert.Equal(t, 3, g.Threshold())
	assert.True(t, g.GroupKey().Equal(originalKey))

	// the old quorum size is no longer enough
	_, err = g.Sign(members[:2], []byte("m"))
	assert.Error(t, err)

	sig, err := g.Sign(members[:3], []byte("m"))
	require.NoError(t, err)
	assert.True(t, sig.Verify(originalKey, schnorr.MessageDigest([]byte("m"))))
}

func TestGroupSharesChangeEachGeneration(t *testing.T) {
	group := curve.Secp256k1{}
	members := test.PartyIDs(3)

	g, err := dkm.NewGroup(group, members, 2)
	require.NoError(t, err)

	before, err := g.Config("2")
	require.NoError(t, err)

	require.NoError(t, g.RequestTransition(members, 2))

	after, err := g.Config("2")
	require.NoError(t, err)
	assert.False(t, after.SecretShare.Equal(before.SecretShare))
	assert.True(t, after.GroupKey.Equal(before.GroupKey))
}

func TestGroupTransitionsSerialized(t *testing.T) {
	group := curve.Secp256k1{}
	members := test.PartyIDs(4)

	g, err := dkm.NewGroup(group, members, 2)
	require.NoError(t, err)

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			errs <- g.RequestTransition(members, 2)
		}()
	}
	var failures, successes int
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			assert.ErrorIs(t, err, dkm.ErrTransitionInProgress)
			failures++
		} else {
			successes++
		}
	}
	assert.GreaterOrEqual(t, successes, 1)
	assert.LessOrEqual(t, failures, 1)
}

func TestGroupSessionTimeout(t *testing.T) {
	group := curve.Secp256k1{}
	members := test.PartyIDs(7)

	var sawTimeout bool
	for i := 0; i < 5 && !sawTimeout; i++ {
		_, err := dkm.NewGroup(group, members, 4, dkm.WithTimeout(time.Nanosecond))
		if err != nil {
			assert.ErrorIs(t, err, dkm.ErrSessionTimeout)
			sawTimeout = true
		}
	}
	assert.True(t, sawTimeout, "a nanosecond deadline should interrupt key generation")
}

func TestGroupFromConfigs(t *testing.T) {
	group := curve.Secp256k1{}
	members := test.PartyIDs(3)

	g, err := dkm.NewGroup(group, members, 2)
	require.NoError(t, err)

	var configs []*dkm.Config
	for _, id := range members {
		c, err := g.Config(id)
		require.NoError(t, err)
		configs = append(configs, c)
	}

	restored, err := dkm.NewGroupFromConfigs(configs)
	require.NoError(t, err)
	assert.True(t, restored.GroupKey().Equal(g.GroupKey()))

	sig, err := restored.Sign(members[:2], []byte("restored"))
	require.NoError(t, err)
	assert.True(t, sig.Verify(g.GroupKey(), schnorr.MessageDigest([]byte("restored"))))
}
