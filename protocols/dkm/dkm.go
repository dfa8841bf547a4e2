// Package dkm provides dynamic threshold key management for a consortium:
// distributed key generation, dealerless membership transitions that
// preserve the group public key, and threshold Schnorr signing.
package dkm

import (
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/pkg/pool"
	"github.com/luxfi/consortium/pkg/protocol"
	"github.com/luxfi/consortium/protocols/dkm/config"
	"github.com/luxfi/consortium/protocols/dkm/keygen"
	"github.com/luxfi/consortium/protocols/dkm/reshare"
	"github.com/luxfi/consortium/protocols/dkm/sign"
)

// Config is one member's key material. Re-exported for convenience.
type Config = config.Config

// PublicConfig is the secret-free key material handed to candidates.
type PublicConfig = config.PublicConfig

// Keygen returns a StartFunc generating a fresh threshold key among the
// given members. The result is a *Config at generation zero.
func Keygen(group curve.Curve, selfID party.ID, participants []party.ID, threshold int, pl *pool.Pool) protocol.StartFunc {
	return keygen.Start(group, selfID, participants, threshold, pl)
}

// Reshare returns a StartFunc for an existing member taking part in a
// membership transition. dealers are the old members participating;
// newMembers and newThreshold describe the next generation. Members of the
// new generation obtain a *Config, departing members a *PublicConfig.
func Reshare(c *Config, dealers, newMembers []party.ID, newThreshold int, pl *pool.Pool) protocol.StartFunc {
	return reshare.Start(c, dealers, newMembers, newThreshold, pl)
}

// ReshareJoin returns a StartFunc for a candidate joining the consortium
// during a membership transition. The result is a *Config for the new
// generation.
func ReshareJoin(public *PublicConfig, selfID party.ID, dealers, newMembers []party.ID, newThreshold int, pl *pool.Pool) protocol.StartFunc {
	return reshare.StartNew(public, selfID, dealers, newMembers, newThreshold, pl)
}

// Sign returns a StartFunc producing a Schnorr signature over message by the
// given quorum. The result is a *schnorr.Signature.
func Sign(c *Config, signers []party.ID, message []byte, pl *pool.Pool) protocol.StartFunc {
	return sign.Start(c, signers, message, pl)
}
