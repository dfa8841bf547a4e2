package reshare

import (
	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/math/polynomial"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/protocols/dkm/config"
)

// round1 has each dealer commit to a fresh sharing of its existing share.
// It consumes no messages.
type round1 struct {
	*round.Helper
	public *config.PublicConfig
	// oldShare is our share of the previous generation, nil for candidates.
	oldShare curve.Scalar
	// dealers are the old members participating in the transition.
	dealers party.IDSlice
	// newIDs is the membership of the next generation.
	newIDs party.IDSlice
}

// broadcast2 carries a dealer's verification commitments. Candidates
// broadcast an empty VSS so that every participant's view of the round is
// complete.
type broadcast2 struct {
	round.NormalBroadcastContent
	VSS []byte
}

func (r *round1) isDealer() bool    { return r.dealers.Contains(r.SelfID()) }
func (r *round1) isNewMember() bool { return r.newIDs.Contains(r.SelfID()) }

// VerifyMessage implements round.Session.
func (r *round1) VerifyMessage(round.Message) error { return nil }

// StoreMessage implements round.Session.
func (r *round1) StoreMessage(round.Message) error { return nil }

// Finalize implements round.Session.
func (r *round1) Finalize(out chan<- *round.Message) (round.Session, error) {
	next := &round2{
		round1: r,
		vss:    make(map[party.ID]*polynomial.Exponent, len(r.dealers)),
	}

	content := &broadcast2{}
	if r.isDealer() {
		// f_i of degree threshold'-1 with constant term equal to our current
		// share, so the new sharing interpolates to the same group secret
		next.secret = polynomial.NewPolynomial(r.Group(), r.Threshold()-1, r.oldShare)
		vss := polynomial.NewPolynomialExponent(next.secret)
		vssBytes, err := vss.MarshalBinary()
		if err != nil {
			return r.AbortRound(err), nil
		}
		content.VSS = vssBytes
		next.vss[r.SelfID()] = vss
	}
	if err := r.BroadcastMessage(out, content); err != nil {
		return r.AbortRound(err), nil
	}
	return next, nil
}

// MessageContent implements round.Session.
func (round1) MessageContent() round.Content { return nil }

// RoundNumber implements round.Content.
func (broadcast2) RoundNumber() round.Number { return 2 }

// Number implements round.Session.
func (round1) Number() round.Number { return 1 }
