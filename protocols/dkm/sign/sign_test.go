package sign_test

import (
	"crypto/rand"
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
	"github.com/luxfi/consortium/pkg/schnorr"
	"github.com/luxfi/consortium/protocols/dkm/config"
	"github.com/luxfi/consortium/protocols/dkm/sign"
)

// newConfigs deals a fresh key directly so signing can be tested without
// running the key generation protocol.
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

func runSign(t *testing.T, configs map[party.ID]*config.Config, signers party.IDSlice, message []byte) *schnorr.Signature {
	t.Helper()
	network := fabric.NewNetwork(signers)

	var mtx sync.Mutex
	var wg sync.WaitGroup
	var signature *schnorr.Signature
	for _, id := range signers {
		h, err := protocol.NewMultiHandler(sign.Start(configs[id], signers, message, nil), nil)
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
			signature = r.(*schnorr.Signature)
			mtx.Unlock()
		}(id, h)
	}
	wg.Wait()
	require.NotNil(t, signature)
	return signature
}

func TestSign(t *testing.T) {
	n, threshold := 5, 3
	configs := newConfigs(t, n, threshold)
	message := []byte("spend proposal 7")

	quorum := test.PartyIDs(n)[:threshold]
	sig := runSign(t, configs, quorum, message)

	groupKey := configs[quorum[0]].GroupKey
	assert.True(t, sig.Verify(groupKey, schnorr.MessageDigest(message)))
	assert.False(t, sig.Verify(groupKey, schnorr.MessageDigest([]byte("a different message"))))
}

func TestSignLargerQuorum(t *testing.T) {
	n, threshold := 5, 3
	configs := newConfigs(t, n, threshold)
	message := []byte("all hands on deck")

	// more signers than the threshold is fine
	quorum := test.PartyIDs(n)
	sig := runSign(t, configs, quorum, message)
	assert.True(t, sig.Verify(configs[quorum[0]].GroupKey, schnorr.MessageDigest(message)))
}

func TestSignDistinctQuorumsSameKey(t *testing.T) {
	n, threshold := 5, 3
	configs := newConfigs(t, n, threshold)
	message := []byte("either quorum works")
	ids := test.PartyIDs(n)

	sigA := runSign(t, configs, ids[:threshold], message)
	sigB := runSign(t, configs, ids[n-threshold:], message)

	digest := schnorr.MessageDigest(message)
	groupKey := configs[ids[0]].GroupKey
	assert.True(t, sigA.Verify(groupKey, digest))
	assert.True(t, sigB.Verify(groupKey, digest))
}

func TestSignBelowThreshold(t *testing.T) {
	n, threshold := 5, 3
	configs := newConfigs(t, n, threshold)
	quorum := test.PartyIDs(n)[:threshold-1]

	_, err := sign.Start(configs[quorum[0]], quorum, []byte("m"), nil)(nil)
	assert.Error(t, err)
}

func TestSignUnknownSigner(t *testing.T) {
	configs := newConfigs(t, 3, 2)
	quorum := party.IDSlice{"1", "stranger"}

	_, err := sign.Start(configs["1"], quorum, []byte("m"), nil)(nil)
	assert.Error(t, err)
}

func TestSignSessionBinding(t *testing.T) {
	configs := newConfigs(t, 3, 2)
	quorum := party.IDSlice{"1", "2"}
	message := []byte("pay the auditor")

	h, err := protocol.NewMultiHandler(sign.Start(configs["2"], quorum, message, nil), nil)
	require.NoError(t, err)
	commitment := <-h.Listen()
	require.NotNil(t, commitment)

	// the commitment belongs to a session over the same key and message
	same, err := protocol.NewMultiHandler(sign.Start(configs["1"], quorum, message, nil), nil)
	require.NoError(t, err)
	assert.True(t, same.CanAccept(commitment))

	// replaying it into a session over a different message is rejected
	other, err := protocol.NewMultiHandler(sign.Start(configs["1"], quorum, []byte("pay someone else"), nil), nil)
	require.NoError(t, err)
	assert.False(t, other.CanAccept(commitment))

	// an explicit session ID separates otherwise identical runs
	tagged, err := protocol.NewMultiHandler(sign.Start(configs["1"], quorum, message, nil), []byte("run-2"))
	require.NoError(t, err)
	assert.False(t, tagged.CanAccept(commitment))

	// a signer on a different key generation is rejected too
	stale := configs["1"].Copy()
	stale.Generation++
	ahead, err := protocol.NewMultiHandler(sign.Start(stale, quorum, message, nil), nil)
	require.NoError(t, err)
	assert.False(t, ahead.CanAccept(commitment))
}

func TestSignInvalidPartialSignature(t *testing.T) {
	n, threshold := 4, 3
	configs := newConfigs(t, n, threshold)
	signers := test.PartyIDs(n)[:threshold]

	network := fabric.NewNetwork(signers)
	// signer 1 reveals a response that does not match its commitment
	network.SetRule(func(msg *protocol.Message) *protocol.Message {
		if msg.From != "1" || msg.RoundNumber != 3 || !msg.Broadcast {
			return msg
		}
		out := *msg
		out.Data = append([]byte(nil), msg.Data...)
		out.Data[len(out.Data)-1] ^= 1
		return &out
	})

	var mtx sync.Mutex
	var wg sync.WaitGroup
	errs := make(map[party.ID]error, threshold)
	for _, id := range signers {
		h, err := protocol.NewMultiHandler(sign.Start(configs[id], signers, []byte("m"), nil), nil)
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

	for _, id := range signers {
		if id == "1" {
			continue
		}
		err := errs[id]
		require.Error(t, err, "signer %v must reject the bad partial signature", id)
		assert.ErrorIs(t, err, sign.ErrInvalidPartialSignature)
		var protocolErr protocol.Error
		require.ErrorAs(t, err, &protocolErr)
		assert.Equal(t, []party.ID{"1"}, protocolErr.Culprits)
	}
}
