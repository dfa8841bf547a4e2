// Package reshare implements dealerless membership transitions. Every
// participating member of the old generation deals a fresh sharing of its
// own share; the new members combine the sub-shares with Lagrange weights so
// that the group public key is preserved while every share changes.
//
// Members of the new generation receive a *config.Config; departing members
// receive the new generation's *config.PublicConfig.
package reshare

import (
	"errors"
	"fmt"

	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/pkg/hash"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/pkg/pool"
	"github.com/luxfi/consortium/pkg/protocol"
	"github.com/luxfi/consortium/protocols/dkm/config"
)

const (
	protocolID = "dkm/reshare"
	// rounds is the number of rounds in the protocol.
	rounds round.Number = 4
)

var (
	// ErrInsufficientDealers is returned when fewer dealers than the old
	// threshold remain after excluding those whose sub-shares failed
	// verification.
	ErrInsufficientDealers = errors.New("reshare: insufficient dealers for reconstruction")
	// ErrInvalidShareProof is returned when a dealer's commitments do not
	// bind to its share image from the previous generation.
	ErrInvalidShareProof = errors.New("reshare: commitments do not bind to previous share image")
)

// Start returns a StartFunc for a member of the old generation. dealers
// lists the old members participating in the transition and must include
// ourselves; newMembers is the membership of the next generation.
func Start(c *config.Config, dealers, newMembers []party.ID, newThreshold int, pl *pool.Pool) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		oldShare := c.Group.NewScalar().Set(c.SecretShare)
		return start(c.PublicConfig(), c.ID, oldShare, dealers, newMembers, newThreshold, pl, sessionID)
	}
}

// StartNew returns a StartFunc for a candidate member joining the
// consortium. public is the current generation's public key material,
// obtained out of band from an existing member.
func StartNew(public *config.PublicConfig, selfID party.ID, dealers, newMembers []party.ID, newThreshold int, pl *pool.Pool) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		return start(public, selfID, nil, dealers, newMembers, newThreshold, pl, sessionID)
	}
}

// start builds the first round shared by old and new members. oldShare is
// nil for joining candidates.
func start(public *config.PublicConfig, selfID party.ID, oldShare curve.Scalar, dealers, newMembers []party.ID, newThreshold int, pl *pool.Pool, sessionID []byte) (round.Session, error) {
	dealerIDs := party.NewIDSlice(dealers)
	newIDs := party.NewIDSlice(newMembers)
	oldIDs := public.PartyIDs()

	if len(dealerIDs) < public.Threshold {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrInsufficientDealers, len(dealerIDs), public.Threshold)
	}
	for _, id := range dealerIDs {
		if !oldIDs.Contains(id) {
			return nil, fmt.Errorf("reshare: dealer %v is not a member of the current generation", id)
		}
	}
	if newThreshold < 1 || newThreshold > len(newIDs) {
		return nil, fmt.Errorf("reshare: invalid threshold %d for %d members", newThreshold, len(newIDs))
	}
	isDealer := dealerIDs.Contains(selfID)
	if isDealer == (oldShare == nil) {
		return nil, errors.New("reshare: dealers must hold a share, candidates must not")
	}

	// bind the previous generation's public key material into the transcript
	previous := hash.New()
	if err := public.WriteToHash(previous); err != nil {
		return nil, err
	}

	info := round.Info{
		ProtocolID:       protocolID,
		FinalRoundNumber: rounds,
		SelfID:           selfID,
		PartyIDs:         dealerIDs.Union(newIDs),
		Threshold:        newThreshold,
		Group:            public.Group,
	}
	helper, err := round.NewSession(info, sessionID, pl,
		hash.BytesWithDomain{TheDomain: "PreviousGeneration", Bytes: previous.Sum()},
	)
	if err != nil {
		return nil, err
	}
	return &round1{
		Helper:   helper,
		public:   public,
		oldShare: oldShare,
		dealers:  dealerIDs,
		newIDs:   newIDs,
	}, nil
}
