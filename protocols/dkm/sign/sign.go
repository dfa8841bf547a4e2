// Package sign implements threshold Schnorr signing. A quorum of members
// each contributes a nonce and a partial signature weighted by its Lagrange
// coefficient; the combined signature verifies under the group public key
// and is indistinguishable from a single-signer Schnorr signature.
package sign

import (
	"errors"
	"fmt"

	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/pkg/hash"
	"github.com/luxfi/consortium/pkg/math/polynomial"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/pkg/pool"
	"github.com/luxfi/consortium/pkg/protocol"
	"github.com/luxfi/consortium/pkg/schnorr"
	"github.com/luxfi/consortium/protocols/dkm/config"
)

const (
	protocolID = "dkm/sign"
	// rounds is the number of rounds in the protocol.
	rounds round.Number = 3
)

// ErrInvalidPartialSignature is returned when a signer's partial signature
// does not verify against its nonce commitment and public share. The
// protocol aborts naming the signer: the aggregate nonce is already fixed,
// so the signer cannot simply be excluded.
var ErrInvalidPartialSignature = errors.New("sign: partial signature does not verify")

// Start returns a StartFunc producing a Schnorr signature over message by
// the given quorum. All signers must hold a Config of the same generation.
func Start(c *config.Config, signers []party.ID, message []byte, pl *pool.Pool) protocol.StartFunc {
	return func(sessionID []byte) (round.Session, error) {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		signerIDs := party.NewIDSlice(signers)
		if !c.CanSign(signerIDs) {
			return nil, fmt.Errorf("sign: invalid quorum %v for threshold %d", signerIDs, c.Threshold)
		}

		digest := schnorr.MessageDigest(message)

		// bind the key generation and the digest so that partial signatures
		// from stale members or other messages never validate here
		keyMaterial := hash.New()
		if err := c.WriteToHash(keyMaterial); err != nil {
			return nil, err
		}

		info := round.Info{
			ProtocolID:       protocolID,
			FinalRoundNumber: rounds,
			SelfID:           c.ID,
			PartyIDs:         signerIDs,
			Threshold:        c.Threshold,
			Group:            c.Group,
		}
		helper, err := round.NewSession(info, sessionID, pl,
			hash.BytesWithDomain{TheDomain: "KeyMaterial", Bytes: keyMaterial.Sum()},
			hash.BytesWithDomain{TheDomain: "MessageDigest", Bytes: digest},
		)
		if err != nil {
			return nil, err
		}

		lagrange, err := polynomial.Lagrange(c.Group, signerIDs)
		if err != nil {
			return nil, err
		}

		return &round1{
			Helper:   helper,
			config:   c,
			digest:   digest,
			lagrange: lagrange,
		}, nil
	}
}
