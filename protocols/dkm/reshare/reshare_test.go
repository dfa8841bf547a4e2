package reshare_test

import (
	"crypto/rand"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/consortium/internal/fabric"
	"github.com/luxfi/consortium/internal/test"
	"github.com/luxfi/consortium/internal/types"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/math/polynomial"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/pkg/protocol"
	"github.com/luxfi/consortium/protocols/dkm/config"
	"github.com/luxfi/consortium/protocols/dkm/reshare"
)

// newConfigs deals a fresh key directly so transitions can be tested
// without running the key generation protocol.
func newConfigs(t *testing.T, n, threshold int) map[party.ID]*config.Config {
	t.Helper()
	group := curve.Secp256k1{}
	ids := test.PartyIDs(n)

	poly := polynomial.NewPolynomial(group, threshold-1, nil)
	rid, err := types.NewRID(rand.Reader)
	require.NoError(t, err)

	public := make(map[party.ID]curve.Point, n)
	for _, id := range ids {
		public[id] = poly.Evaluate(id.Scalar(group)).ActOnBase()
	}
	groupKey := poly.Constant().ActOnBase()

	configs := make(map[party.ID]*config.Config, n)
	for _, id := range ids {
		configs[id] = &config.Config{
			ID:          id,
			Group:       group,
			Threshold:   threshold,
			Generation:  0,
			SecretShare: poly.Evaluate(id.Scalar(group)),
			Public:      public,
			GroupKey:    groupKey,
			RID:         rid.Copy(),
		}
		require.NoError(t, configs[id].Validate())
	}
	return configs
}

// runTransition executes a full membership transition and returns the new
// configs of the next generation's members and the results of departing
// members. The optional rule rewrites messages in flight.
func runTransition(t *testing.T, old map[party.ID]*config.Config, dealers, newMembers party.IDSlice, newThreshold int, rule fabric.Rule) (map[party.ID]*config.Config, map[party.ID]*config.PublicConfig) {
	t.Helper()
	participants := dealers.Union(newMembers)
	network := fabric.NewNetwork(participants)
	network.SetRule(rule)

	var anyOld *config.Config
	for _, c := range old {
		anyOld = c
		break
	}
	public := anyOld.PublicConfig()

	var mtx sync.Mutex
	var wg sync.WaitGroup
	next := make(map[party.ID]*config.Config)
	departed := make(map[party.ID]*config.PublicConfig)
	for _, id := range participants {
		var start protocol.StartFunc
		if c, ok := old[id]; ok && dealers.Contains(id) {
			start = reshare.Start(c, dealers, newMembers, newThreshold, nil)
		} else {
			start = reshare.StartNew(public, id, dealers, newMembers, newThreshold, nil)
		}
		h, err := protocol.NewMultiHandler(start, nil)
		require.NoError(t, err)
		wg.Add(1)
		go func(id party.ID, h protocol.Handler) {
			defer wg.Done()
			fabric.HandlerLoop(id, h, network)
			r, err := h.Result()
			assert.NoError(t, err)
			if err != nil {
				return
			}
			mtx.Lock()
			defer mtx.Unlock()
			switch c := r.(type) {
			case *config.Config:
				next[id] = c
			case *config.PublicConfig:
				departed[id] = c
			}
		}(id, h)
	}
	wg.Wait()
	return next, departed
}

func TestReshareAddMember(t *testing.T) {
	group := curve.Secp256k1{}
	n, threshold := 4, 3
	old := newConfigs(t, n, threshold)
	oldKey := old["1"].GroupKey

	dealers := test.PartyIDs(n)
	newMembers := dealers.Union(party.IDSlice{"5"})
	next, departed := runTransition(t, old, dealers, newMembers, threshold, nil)

	require.Len(t, next, n+1)
	require.Empty(t, departed)
	for id, c := range next {
		require.NoError(t, c.Validate())
		assert.True(t, c.GroupKey.Equal(oldKey), "group key must be preserved")
		assert.EqualValues(t, 1, c.Generation)
		if oldC, ok := old[id]; ok {
			assert.False(t, c.SecretShare.Equal(oldC.SecretShare), "share of %v must change", id)
		}
	}

	// the new shares reconstruct the same secret
	shares := make(map[party.ID]curve.Scalar, threshold)
	for id, c := range next {
		if len(shares) == threshold {
			break
		}
		shares[id] = c.SecretShare
	}
	secret, err := polynomial.Interpolate(group, shares, threshold)
	require.NoError(t, err)
	assert.True(t, secret.ActOnBase().Equal(oldKey))
}

func TestReshareRemoveMember(t *testing.T) {
	n, threshold := 4, 2
	old := newConfigs(t, n, threshold)
	oldKey := old["1"].GroupKey

	dealers := test.PartyIDs(n)
	newMembers := dealers.Remove("4")
	next, departed := runTransition(t, old, dealers, newMembers, threshold, nil)

	require.Len(t, next, n-1)
	require.Len(t, departed, 1)
	_, stays := next["4"]
	assert.False(t, stays)

	gone := departed["4"]
	require.NotNil(t, gone)
	assert.True(t, gone.GroupKey.Equal(oldKey))
	assert.EqualValues(t, 1, gone.Generation)

	for _, c := range next {
		require.NoError(t, c.Validate())
		assert.True(t, c.GroupKey.Equal(oldKey))
		_, known := c.Public["4"]
		assert.False(t, known, "removed member must not appear in the new generation")
	}
}

func TestReshareChangeThreshold(t *testing.T) {
	n, oldThreshold, newThreshold := 5, 2, 4
	old := newConfigs(t, n, oldThreshold)
	oldKey := old["1"].GroupKey

	members := test.PartyIDs(n)
	next, _ := runTransition(t, old, members, members, newThreshold, nil)

	require.Len(t, next, n)
	for _, c := range next {
		require.NoError(t, c.Validate())
		assert.Equal(t, newThreshold, c.Threshold)
		assert.True(t, c.GroupKey.Equal(oldKey))
	}
}

func TestReshareDealerSubset(t *testing.T) {
	// an offline member can be removed as long as a quorum of dealers acts
	n, threshold := 5, 3
	old := newConfigs(t, n, threshold)
	oldKey := old["1"].GroupKey

	dealers := test.PartyIDs(n).Remove("5")
	newMembers := dealers
	next, _ := runTransition(t, old, dealers, newMembers, threshold, nil)

	require.Len(t, next, n-1)
	for _, c := range next {
		require.NoError(t, c.Validate())
		assert.True(t, c.GroupKey.Equal(oldKey))
	}
}

func TestReshareInsufficientDealers(t *testing.T) {
	n, threshold := 5, 3
	old := newConfigs(t, n, threshold)

	dealers := test.PartyIDs(n)[:threshold-1]
	_, err := reshare.Start(old["1"], dealers, test.PartyIDs(n), threshold, nil)(nil)
	assert.ErrorIs(t, err, reshare.ErrInsufficientDealers)
}

func TestReshareInvalidRoles(t *testing.T) {
	n, threshold := 3, 2
	old := newConfigs(t, n, threshold)
	dealers := test.PartyIDs(n)

	// a candidate cannot claim a dealer's identity
	_, err := reshare.StartNew(old["1"].PublicConfig(), "1", dealers, dealers, threshold, nil)(nil)
	assert.Error(t, err)

	// a dealer must belong to the current membership
	_, err = reshare.Start(old["1"], dealers.Union(party.IDSlice{"9"}), dealers, threshold, nil)(nil)
	assert.Error(t, err)
}

func TestReshareExcludesFaultyDealer(t *testing.T) {
	group := curve.Secp256k1{}
	n, threshold := 4, 2
	old := newConfigs(t, n, threshold)
	oldKey := old["1"].GroupKey
	members := test.PartyIDs(n)

	// dealer 1 sends member 2 a sub-share that does not match its commitments
	rule := func(msg *protocol.Message) *protocol.Message {
		if msg.From != "1" || msg.To != "2" || msg.RoundNumber != 3 || msg.Broadcast {
			return msg
		}
		out := *msg
		out.Data = append([]byte(nil), msg.Data...)
		out.Data[len(out.Data)-1] ^= 1
		return &out
	}
	next, departed := runTransition(t, old, members, members, threshold, rule)

	// enough honest dealers remain, so the transition completes without 1's dealing
	require.Len(t, next, n)
	require.Empty(t, departed)
	for _, c := range next {
		require.NoError(t, c.Validate())
		assert.True(t, c.GroupKey.Equal(oldKey))
		assert.EqualValues(t, 1, c.Generation)
	}

	shares := map[party.ID]curve.Scalar{
		"1": next["1"].SecretShare,
		"2": next["2"].SecretShare,
	}
	secret, err := polynomial.Interpolate(group, shares, threshold)
	require.NoError(t, err)
	assert.True(t, secret.ActOnBase().Equal(oldKey))
}

func TestReshareInsufficientDealersMidRun(t *testing.T) {
	n, threshold := 3, 3
	old := newConfigs(t, n, threshold)
	members := test.PartyIDs(n)

	// with no dealer to spare, excluding dealer 1 leaves too few to
	// reconstruct, and every participant must settle on the same failure
	network := fabric.NewNetwork(members)
	network.SetRule(func(msg *protocol.Message) *protocol.Message {
		if msg.From != "1" || msg.RoundNumber != 3 || msg.Broadcast {
			return msg
		}
		out := *msg
		out.Data = append([]byte(nil), msg.Data...)
		out.Data[len(out.Data)-1] ^= 1
		return &out
	})

	var mtx sync.Mutex
	var wg sync.WaitGroup
	errs := make(map[party.ID]error, n)
	for _, id := range members {
		h, err := protocol.NewMultiHandler(reshare.Start(old[id], members, members, threshold, nil), nil)
		require.NoError(t, err)
		wg.Add(1)
		go func(id party.ID, h protocol.Handler) {
			defer wg.Done()
			fabric.HandlerLoop(id, h, network)
			_, err := h.Result()
			mtx.Lock()
			errs[id] = err
			mtx.Unlock()
		}(id, h)
	}
	wg.Wait()

	// every member fails; whoever settles first reports the cause, the rest
	// may only see that peer's abort notification
	var insufficient int
	for _, id := range members {
		require.Error(t, errs[id], "member %v must not emit key material", id)
		if errors.Is(errs[id], reshare.ErrInsufficientDealers) {
			insufficient++
		}
	}
	assert.GreaterOrEqual(t, insufficient, 1)
}
