// Package keygen implements distributed key generation for a consortium.
// Every founding member deals a random sharing; the group secret is the sum
// of the dealt constants and is never assembled by any party.
package keygen

import (
	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/pkg/pool"
	"github.com/luxfi/consortium/pkg/protocol"
)

const (
	// protocolID distinguishes keygen transcripts from other protocols.
	protocolID = "dkm/keygen"
	// rounds is the number of rounds in the protocol.
	rounds round.Number = 3
)

// Start returns a StartFunc for distributed key generation among the given
// members. threshold is the minimum number of members required to sign.
func Start(group curve.Curve, selfID party.ID, participants []party.ID, threshold int, pl *pool.Pool) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		info := round.Info{
			ProtocolID:       protocolID,
			FinalRoundNumber: rounds,
			SelfID:           selfID,
			PartyIDs:         participants,
			Threshold:        threshold,
			Group:            group,
		}
		helper, err := round.NewSession(info, sessionID, pl)
		if err != nil {
			return nil, err
		}
		return &round1{Helper: helper}, nil
	}
}
