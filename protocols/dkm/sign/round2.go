package sign

import (
	"fmt"

	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/pkg/schnorr"
)

// round2 collects the nonce commitments, fixes the aggregate nonce and the
// challenge, and broadcasts this signer's partial signature.
type round2 struct {
	*round1
	// nonce is our secret nonce k_i, discarded after the partial signature
	// is produced.
	nonce       curve.Scalar
	commitments map[party.ID]curve.Point
}

// broadcast3 carries a signer's partial signature response.
type broadcast3 struct {
	round.NormalBroadcastContent
	Z []byte
}

// StoreBroadcastMessage implements round.BroadcastRound.
func (r *round2) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast2)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	commitment, err := curve.PointFromBytes(r.Group(), body.K)
	if err != nil {
		return fmt.Errorf("nonce commitment from %v: %w", msg.From, err)
	}
	if commitment.IsIdentity() {
		return fmt.Errorf("nonce commitment from %v is the identity", msg.From)
	}
	r.commitments[msg.From] = commitment
	return nil
}

// VerifyMessage implements round.Session.
func (r *round2) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Session.
func (r *round2) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Session.
func (r *round2) Finalize(out chan<- *round.Message) (round.Session, error) {
	group := r.Group()

	// R = sum of all commitments; fixed from here on
	aggregate := group.NewPoint()
	for _, commitment := range r.commitments {
		aggregate = aggregate.Add(commitment)
	}
	challenge := schnorr.Challenge(group, aggregate, r.config.GroupKey, r.digest)

	// z_i = k_i + c * lambda_i * x_i
	response := group.NewScalar().Set(challenge).
		Mul(r.lagrange[r.SelfID()]).
		Mul(r.config.SecretShare).
		Add(r.nonce)
	r.nonce.Zeroize()

	responseBytes, err := response.MarshalBinary()
	if err != nil {
		return r.AbortRound(err), nil
	}
	if err := r.BroadcastMessage(out, &broadcast3{Z: responseBytes}); err != nil {
		return r.AbortRound(err), nil
	}

	return &round3{
		round2:    r,
		aggregate: aggregate,
		challenge: challenge,
		responses: map[party.ID]curve.Scalar{r.SelfID(): response},
	}, nil
}

// BroadcastContent implements round.BroadcastRound.
func (round2) BroadcastContent() round.BroadcastContent { return &broadcast2{} }

// MessageContent implements round.Session.
func (round2) MessageContent() round.Content { return nil }

// RoundNumber implements round.Content.
func (broadcast3) RoundNumber() round.Number { return 3 }

// Number implements round.Session.
func (round2) Number() round.Number { return 2 }
