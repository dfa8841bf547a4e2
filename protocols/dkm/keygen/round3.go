package keygen

import (
	"fmt"

	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/internal/types"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/protocols/dkm/config"
)

// round3 verifies the received sub-shares against the dealers' commitments
// and assembles the final key material.
type round3 struct {
	*round2
	shares map[party.ID]curve.Scalar
}

// VerifyMessage implements round.Session. A sub-share that does not match
// the dealer's own commitments proves the dealer misbehaved, so the protocol
// aborts naming it.
func (r *round3) VerifyMessage(msg round.Message) error {
	body, ok := msg.Content.(*message3)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	share, err := curve.FromBytes(r.Group(), body.Share)
	if err != nil {
		return fmt.Errorf("share from %v: %w", msg.From, err)
	}
	if !r.vss[msg.From].VerifyShare(share, r.SelfID().Scalar(r.Group())) {
		return fmt.Errorf("dealer %v: share does not match commitments", msg.From)
	}
	return nil
}

// StoreMessage implements round.Session.
func (r *round3) StoreMessage(msg round.Message) error {
	body := msg.Content.(*message3)
	share, err := curve.FromBytes(r.Group(), body.Share)
	if err != nil {
		return err
	}
	r.shares[msg.From] = share
	return nil
}

// Finalize implements round.Session.
func (r *round3) Finalize(chan<- *round.Message) (round.Session, error) {
	group := r.Group()

	// x_j = sum over dealers i of f_i(j)
	secretShare := group.NewScalar()
	for _, share := range r.shares {
		secretShare.Add(share)
		share.Zeroize()
	}

	// the share images and group key follow from the summed commitments
	images := make([]curve.Point, r.N())
	r.Pool().Parallelize(r.N(), func(i int) {
		x := r.PartyIDs()[i].Scalar(group)
		sum := group.NewPoint()
		for _, vss := range r.vss {
			sum = sum.Add(vss.Evaluate(x))
		}
		images[i] = sum
	})
	public := make(map[party.ID]curve.Point, r.N())
	for i, id := range r.PartyIDs() {
		public[id] = images[i]
	}

	groupKey := group.NewPoint()
	for _, vss := range r.vss {
		groupKey = groupKey.Add(vss.Constant())
	}

	rid := make(types.RID, types.RIDLength)
	for _, contribution := range r.rids {
		rid.XOR(contribution)
	}

	c := &config.Config{
		ID:          r.SelfID(),
		Group:       group,
		Threshold:   r.Threshold(),
		Generation:  0,
		SecretShare: secretShare,
		Public:      public,
		GroupKey:    groupKey,
		RID:         rid,
	}
	if err := c.Validate(); err != nil {
		return r.AbortRound(fmt.Errorf("generated key material is inconsistent: %w", err)), nil
	}
	return r.ResultRound(c), nil
}

// MessageContent implements round.Session.
func (round3) MessageContent() round.Content { return &message3{} }

// BroadcastContent overrides the method inherited from round2: this round
// consumes no broadcasts.
func (round3) BroadcastContent() round.BroadcastContent { return nil }

// Number implements round.Session.
func (round3) Number() round.Number { return 3 }
