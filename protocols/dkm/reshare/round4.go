package reshare

import (
	"fmt"

	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/math/polynomial"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/protocols/dkm/config"
)

// round4 intersects the accepted-dealer announcements so every participant
// settles on the same dealer set, then derives the next generation's key
// material from that set.
type round4 struct {
	*round3
	accepted map[party.ID]party.IDSlice
}

// StoreBroadcastMessage implements round.BroadcastRound.
func (r *round4) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast4)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	accepted := party.NewIDSlice(body.Accepted)
	for _, id := range accepted {
		if !r.dealers.Contains(id) {
			return fmt.Errorf("%v accepted %v, which is not a dealer", msg.From, id)
		}
	}
	r.accepted[msg.From] = accepted
	return nil
}

// VerifyMessage implements round.Session.
func (r *round4) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Session.
func (r *round4) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Session.
func (r *round4) Finalize(chan<- *round.Message) (round.Session, error) {
	group := r.Group()

	dealerSet := r.dealers.Copy()
	for _, accepted := range r.accepted {
		dealerSet = dealerSet.Intersect(accepted)
	}
	if len(dealerSet) < r.public.Threshold {
		return r.AbortRound(fmt.Errorf("%w: have %d, need %d", ErrInsufficientDealers, len(dealerSet), r.public.Threshold)), nil
	}

	// weights reconstructing the old secret from the surviving dealers'
	// constant terms
	lagrange, err := polynomial.Lagrange(group, dealerSet)
	if err != nil {
		return r.AbortRound(err), nil
	}

	images := make([]curve.Point, len(r.newIDs))
	r.Pool().Parallelize(len(r.newIDs), func(i int) {
		x := r.newIDs[i].Scalar(group)
		sum := group.NewPoint()
		for _, id := range dealerSet {
			sum = sum.Add(lagrange[id].Act(r.vss[id].Evaluate(x)))
		}
		images[i] = sum
	})
	public := make(map[party.ID]curve.Point, len(r.newIDs))
	for i, id := range r.newIDs {
		public[id] = images[i]
	}

	groupKey := group.NewPoint()
	for _, id := range dealerSet {
		groupKey = groupKey.Add(lagrange[id].Act(r.vss[id].Constant()))
	}
	if !groupKey.Equal(r.public.GroupKey) {
		return r.AbortRound(config.ErrKeyInvariance), nil
	}

	if !r.isNewMember() {
		return r.ResultRound(&config.PublicConfig{
			Group:      group,
			Threshold:  r.Threshold(),
			Generation: r.public.Generation + 1,
			Public:     public,
			GroupKey:   groupKey,
			RID:        r.public.RID.Copy(),
		}), nil
	}

	// x'_j = sum over surviving dealers i of lambda_i * f_i(j)
	secretShare := group.NewScalar()
	for _, id := range dealerSet {
		secretShare.Add(group.NewScalar().Set(lagrange[id]).Mul(r.shares[id]))
	}
	for _, share := range r.shares {
		share.Zeroize()
	}

	c := &config.Config{
		ID:          r.SelfID(),
		Group:       group,
		Threshold:   r.Threshold(),
		Generation:  r.public.Generation + 1,
		SecretShare: secretShare,
		Public:      public,
		GroupKey:    groupKey,
		RID:         r.public.RID.Copy(),
	}
	if err := c.Validate(); err != nil {
		return r.AbortRound(fmt.Errorf("reshared key material is inconsistent: %w", err)), nil
	}
	return r.ResultRound(c), nil
}

// BroadcastContent implements round.BroadcastRound.
func (round4) BroadcastContent() round.BroadcastContent { return &broadcast4{} }

// MessageContent implements round.Session.
func (round4) MessageContent() round.Content { return nil }

// Number implements round.Session.
func (round4) Number() round.Number { return 4 }
