package keygen

import (
	"fmt"

	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/internal/types"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/math/polynomial"
	"github.com/luxfi/consortium/pkg/party"
)

// round2 collects every dealer's commitments, then distributes the secret
// sub-shares point to point.
type round2 struct {
	*round1
	// secret is our own sharing polynomial, discarded after the sub-shares
	// are sent.
	secret *polynomial.Polynomial
	vss    map[party.ID]*polynomial.Exponent
	rids   map[party.ID]types.RID
}

// message3 carries the sub-share f_i(j) from dealer i to member j.
type message3 struct {
	Share []byte
}

// StoreBroadcastMessage implements round.BroadcastRound.
func (r *round2) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast2)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	if err := types.RID(body.RID).Validate(); err != nil {
		return err
	}
	vss := polynomial.EmptyExponent(r.Group())
	if err := vss.UnmarshalBinary(body.VSS); err != nil {
		return fmt.Errorf("commitments from %v: %w", msg.From, err)
	}
	if vss.Degree() != r.Threshold()-1 {
		return fmt.Errorf("dealer %v committed to degree %d, want %d", msg.From, vss.Degree(), r.Threshold()-1)
	}
	r.vss[msg.From] = vss
	r.rids[msg.From] = types.RID(body.RID).Copy()
	return nil
}

// VerifyMessage implements round.Session.
func (r *round2) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Session.
func (r *round2) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Session.
func (r *round2) Finalize(out chan<- *round.Message) (round.Session, error) {
	for _, id := range r.OtherPartyIDs() {
		share := r.secret.Evaluate(id.Scalar(r.Group()))
		shareBytes, err := share.MarshalBinary()
		if err != nil {
			return r.AbortRound(err), nil
		}
		share.Zeroize()
		if err := r.SendMessage(out, &message3{Share: shareBytes}, id); err != nil {
			return r.AbortRound(err), nil
		}
	}

	selfShare := r.secret.Evaluate(r.SelfID().Scalar(r.Group()))
	r.secret.Zeroize()

	return &round3{
		round2: r,
		shares: map[party.ID]curve.Scalar{r.SelfID(): selfShare},
	}, nil
}

// BroadcastContent implements round.BroadcastRound.
func (round2) BroadcastContent() round.BroadcastContent { return &broadcast2{} }

// MessageContent implements round.Session.
func (round2) MessageContent() round.Content { return nil }

// RoundNumber implements round.Content.
func (message3) RoundNumber() round.Number { return 3 }

// Number implements round.Session.
func (round2) Number() round.Number { return 2 }
