package reshare

import (
	"fmt"

	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/math/polynomial"
	"github.com/luxfi/consortium/pkg/party"
)

// round2 validates every dealer's commitments against the previous
// generation's share images, then distributes the sub-shares.
type round2 struct {
	*round1
	// secret is our own dealing polynomial, nil for candidates.
	secret *polynomial.Polynomial
	vss    map[party.ID]*polynomial.Exponent
}

// message3 carries the sub-share f_i(j) from dealer i to new member j.
// Share is empty on the padding messages sent between other pairs.
type message3 struct {
	Share []byte
}

// StoreBroadcastMessage implements round.BroadcastRound. A dealer whose
// commitment constant does not match its previous share image is trying to
// change the group key, which every participant can see identically, so the
// protocol aborts naming it.
func (r *round2) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast2)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if !r.dealers.Contains(msg.From) {
		if len(body.VSS) != 0 {
			return fmt.Errorf("candidate %v sent dealer commitments", msg.From)
		}
		return nil
	}
	vss := polynomial.EmptyExponent(r.Group())
	if err := vss.UnmarshalBinary(body.VSS); err != nil {
		return fmt.Errorf("commitments from %v: %w", msg.From, err)
	}
	if vss.Degree() != r.Threshold()-1 {
		return fmt.Errorf("dealer %v committed to degree %d, want %d", msg.From, vss.Degree(), r.Threshold()-1)
	}
	if !vss.Constant().Equal(r.public.Public[msg.From]) {
		return fmt.Errorf("dealer %v: %w", msg.From, ErrInvalidShareProof)
	}
	r.vss[msg.From] = vss
	return nil
}

// VerifyMessage implements round.Session.
func (r *round2) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Session.
func (r *round2) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Session.
func (r *round2) Finalize(out chan<- *round.Message) (round.Session, error) {
	for _, id := range r.OtherPartyIDs() {
		content := &message3{}
		if r.isDealer() && r.newIDs.Contains(id) {
			share := r.secret.Evaluate(id.Scalar(r.Group()))
			shareBytes, err := share.MarshalBinary()
			if err != nil {
				return r.AbortRound(err), nil
			}
			share.Zeroize()
			content.Share = shareBytes
		}
		if err := r.SendMessage(out, content, id); err != nil {
			return r.AbortRound(err), nil
		}
	}

	next := &round3{
		round2: r,
		shares: make(map[party.ID]curve.Scalar, len(r.dealers)),
	}
	if r.isDealer() && r.isNewMember() {
		next.shares[r.SelfID()] = r.secret.Evaluate(r.SelfID().Scalar(r.Group()))
	}
	if r.secret != nil {
		r.secret.Zeroize()
	}
	return next, nil
}

// BroadcastContent implements round.BroadcastRound.
func (round2) BroadcastContent() round.BroadcastContent { return &broadcast2{} }

// MessageContent implements round.Session.
func (round2) MessageContent() round.Content { return nil }

// RoundNumber implements round.Content.
func (message3) RoundNumber() round.Number { return 3 }

// Number implements round.Session.
func (round2) Number() round.Number { return 2 }
