package reshare

import (
	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
)

// round3 checks the received sub-shares against the dealers' commitments.
// A failed check excludes the dealer rather than aborting: only the
// recipient can observe it, so every member instead announces which dealers
// it accepted, and round4 intersects the announcements.
type round3 struct {
	*round2
	// shares holds the verified sub-shares, keyed by dealer.
	shares map[party.ID]curve.Scalar
}

// broadcast4 announces the dealers whose sub-shares this member accepted.
type broadcast4 struct {
	round.NormalBroadcastContent
	Accepted []party.ID
}

// VerifyMessage implements round.Session.
func (r *round3) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Session. Malformed or mismatching
// sub-shares leave the dealer out of our accepted set.
func (r *round3) StoreMessage(msg round.Message) error {
	body, ok := msg.Content.(*message3)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if !r.isNewMember() || !r.dealers.Contains(msg.From) || len(body.Share) == 0 {
		return nil
	}
	share, err := curve.FromBytes(r.Group(), body.Share)
	if err != nil {
		return nil
	}
	if !r.vss[msg.From].VerifyShare(share, r.SelfID().Scalar(r.Group())) {
		return nil
	}
	r.shares[msg.From] = share
	return nil
}

// Finalize implements round.Session.
func (r *round3) Finalize(out chan<- *round.Message) (round.Session, error) {
	var accepted party.IDSlice
	if r.isNewMember() {
		ids := make([]party.ID, 0, len(r.shares))
		for id := range r.shares {
			ids = append(ids, id)
		}
		accepted = party.NewIDSlice(ids)
	} else {
		// departing members receive no sub-shares; they accept every dealer
		// whose commitments passed the broadcast checks
		accepted = r.dealers.Copy()
	}

	if err := r.BroadcastMessage(out, &broadcast4{Accepted: accepted}); err != nil {
		return r.AbortRound(err), nil
	}
	return &round4{
		round3:   r,
		accepted: map[party.ID]party.IDSlice{r.SelfID(): accepted},
	}, nil
}

// MessageContent implements round.Session.
func (round3) MessageContent() round.Content { return &message3{} }

// BroadcastContent overrides the method inherited from round2: this round
// consumes no broadcasts.
func (round3) BroadcastContent() round.BroadcastContent { return nil }

// RoundNumber implements round.Content.
func (broadcast4) RoundNumber() round.Number { return 4 }

// Number implements round.Session.
func (round3) Number() round.Number { return 3 }
