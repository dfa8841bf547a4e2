package keygen

import (
	"crypto/rand"

	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/internal/types"
	"github.com/luxfi/consortium/pkg/math/polynomial"
	"github.com/luxfi/consortium/pkg/party"
)

// round1 samples this member's sharing polynomial and broadcasts its
// commitments. It consumes no messages.
type round1 struct {
	*round.Helper
}

// broadcast2 carries one dealer's verification commitments and its
// contribution to the shared random identifier.
type broadcast2 struct {
	round.NormalBroadcastContent
	// VSS is the serialized commitment polynomial.
	VSS []byte
	// RID is this dealer's random identifier contribution.
	RID []byte
}

// VerifyMessage implements round.Session.
func (r *round1) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Session.
func (r *round1) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Session.
func (r *round1) Finalize(out chan<- *round.Message) (round.Session, error) {
	// f_i of degree threshold-1 with a random constant term; the constant is
	// this member's additive contribution to the group secret
	secret := polynomial.NewPolynomial(r.Group(), r.Threshold()-1, nil)
	vss := polynomial.NewPolynomialExponent(secret)

	rid, err := types.NewRID(rand.Reader)
	if err != nil {
		return r.AbortRound(err), nil
	}

	vssBytes, err := vss.MarshalBinary()
	if err != nil {
		return r.AbortRound(err), nil
	}
	if err := r.BroadcastMessage(out, &broadcast2{VSS: vssBytes, RID: rid}); err != nil {
		return r.AbortRound(err), nil
	}

	return &round2{
		round1: r,
		secret: secret,
		vss:    map[party.ID]*polynomial.Exponent{r.SelfID(): vss},
		rids:   map[party.ID]types.RID{r.SelfID(): rid},
	}, nil
}

// MessageContent implements round.Session.
func (round1) MessageContent() round.Content { return nil }

// RoundNumber implements round.Content.
func (broadcast2) RoundNumber() round.Number { return 2 }

// Number implements round.Session.
func (round1) Number() round.Number { return 1 }
