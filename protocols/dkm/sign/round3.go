package sign

import (
	"fmt"

	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/pkg/schnorr"
)

// round3 verifies every partial signature against the signer's commitment
// and public share, then assembles the final signature.
type round3 struct {
	*round2
	aggregate curve.Point
	challenge curve.Scalar
	responses map[party.ID]curve.Scalar
}

// StoreBroadcastMessage implements round.BroadcastRound. A partial signature
// that fails its check proves the signer misbehaved; the aggregate nonce is
// already fixed, so the only option is to abort naming it.
func (r *round3) StoreBroadcastMessage(msg round.Message) error {
	body, ok := msg.Content.(*broadcast3)
	if !ok || body == nil {
		return round.ErrInvalidContent
	}
	response, err := curve.FromBytes(r.Group(), body.Z)
	if err != nil {
		return fmt.Errorf("response from %v: %w", msg.From, err)
	}

	// g^{z_i} == K_i + c * lambda_i * Y_i
	group := r.Group()
	expected := r.commitments[msg.From].Add(
		group.NewScalar().Set(r.challenge).Mul(r.lagrange[msg.From]).Act(r.config.Public[msg.From]),
	)
	if !response.ActOnBase().Equal(expected) {
		return fmt.Errorf("%w: signer %v", ErrInvalidPartialSignature, msg.From)
	}
	r.responses[msg.From] = response
	return nil
}

// VerifyMessage implements round.Session.
func (r *round3) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Session.
func (r *round3) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Session.
func (r *round3) Finalize(chan<- *round.Message) (round.Session, error) {
	z := r.Group().NewScalar()
	for _, response := range r.responses {
		z.Add(response)
	}

	sig := schnorr.Signature{R: r.aggregate, Z: z}
	if !sig.Verify(r.config.GroupKey, r.digest) {
		// every partial verified, so the combined signature must too
		return r.AbortRound(fmt.Errorf("sign: combined signature does not verify")), nil
	}
	return r.ResultRound(&sig), nil
}

// BroadcastContent implements round.BroadcastRound.
func (round3) BroadcastContent() round.BroadcastContent { return &broadcast3{} }

// MessageContent implements round.Session.
func (round3) MessageContent() round.Content { return nil }

// Number implements round.Session.
func (round3) Number() round.Number { return 3 }
