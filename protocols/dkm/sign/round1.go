package sign

import (
	"crypto/rand"

	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/math/sample"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/protocols/dkm/config"
)

// round1 samples this signer's nonce and broadcasts its commitment. It
// consumes no messages.
type round1 struct {
	*round.Helper
	config *config.Config
	digest []byte
	// lagrange holds the interpolation weights of the quorum at zero.
	lagrange map[party.ID]curve.Scalar
}

// broadcast2 carries a signer's public nonce commitment.
type broadcast2 struct {
	round.NormalBroadcastContent
	K []byte
}

// VerifyMessage implements round.Session.
func (r *round1) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Session.
func (r *round1) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Session.
func (r *round1) Finalize(out chan<- *round.Message) (round.Session, error) {
	nonce := sample.Scalar(rand.Reader, r.Group())
	commitment := nonce.ActOnBase()

	commitmentBytes, err := commitment.MarshalBinary()
	if err != nil {
		return r.AbortRound(err), nil
	}
	if err := r.BroadcastMessage(out, &broadcast2{K: commitmentBytes}); err != nil {
		return r.AbortRound(err), nil
	}

	return &round2{
		round1:      r,
		nonce:       nonce,
		commitments: map[party.ID]curve.Point{r.SelfID(): commitment},
	}, nil
}

// MessageContent implements round.Session.
func (round1) MessageContent() round.Content { return nil }

// RoundNumber implements round.Content.
func (broadcast2) RoundNumber() round.Number { return 2 }

// Number implements round.Session.
func (round1) Number() round.Number { return 1 }
