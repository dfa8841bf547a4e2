// Package config defines the per-member key material produced by key
// generation and updated by every membership transition.
package config

import (
	"errors"
	"fmt"

	"github.com/luxfi/consortium/internal/types"
	"github.com/luxfi/consortium/pkg/hash"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/math/polynomial"
	"github.com/luxfi/consortium/pkg/party"
)

// ErrKeyInvariance is returned when a membership transition would change the
// group public key. The transition must be discarded when this happens.
var ErrKeyInvariance = errors.New("config: transition would change the group public key")

// Config holds one member's view of the consortium key at a given generation.
// SecretShare is the only secret field; everything else is public and shared
// by all members of the same generation.
type Config struct {
	// ID is this member's identifier and polynomial evaluation point.
	ID party.ID
	// Group is the curve the key lives on.
	Group curve.Curve
	// Threshold is the minimum number of members required to sign.
	Threshold int
	// Generation counts completed membership transitions since key
	// generation.
	Generation uint64
	// SecretShare is this member's share of the group secret.
	SecretShare curve.Scalar
	// Public maps every current member to the public image of its share.
	Public map[party.ID]curve.Point
	// GroupKey is the group public key. It is identical across generations.
	GroupKey curve.Point
	// RID is a random identifier agreed on during key generation.
	RID types.RID
}

// PartyIDs returns the sorted IDs of the current membership.
func (c *Config) PartyIDs() party.IDSlice {
	ids := make([]party.ID, 0, len(c.Public))
	for id := range c.Public {
		ids = append(ids, id)
	}
	return party.NewIDSlice(ids)
}

// Validate checks internal consistency: the share belongs to this member,
// the public key interpolates from the share images, and all fields are
// populated.
func (c *Config) Validate() error {
	if c.Group == nil {
		return errors.New("config: missing group")
	}
	if c.Threshold < 1 || c.Threshold > len(c.Public) {
		return fmt.Errorf("config: invalid threshold %d for %d members", c.Threshold, len(c.Public))
	}
	if err := c.RID.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.SecretShare == nil || c.SecretShare.IsZero() {
		return errors.New("config: missing secret share")
	}
	public, ok := c.Public[c.ID]
	if !ok {
		return fmt.Errorf("config: member %v not in public map", c.ID)
	}
	if !c.SecretShare.ActOnBase().Equal(public) {
		return errors.New("config: secret share does not match public share")
	}
	if c.GroupKey == nil || c.GroupKey.IsIdentity() {
		return errors.New("config: missing group key")
	}
	derived, err := c.PublicPoint()
	if err != nil {
		return err
	}
	if !derived.Equal(c.GroupKey) {
		return errors.New("config: public shares do not interpolate to the group key")
	}
	return nil
}

// PublicPoint interpolates the group public key from the first Threshold
// public shares. A valid Config yields the same point for any subset, so
// comparing against GroupKey detects corrupted share images.
func (c *Config) PublicPoint() (curve.Point, error) {
	ids := c.PartyIDs()[:c.Threshold]
	coefficients, err := polynomial.Lagrange(c.Group, ids)
	if err != nil {
		return nil, err
	}
	sum := c.Group.NewPoint()
	for _, id := range ids {
		sum = sum.Add(coefficients[id].Act(c.Public[id]))
	}
	return sum, nil
}

// CanSign reports whether the given signers form a valid signing quorum for
// this generation: all current members, no duplicates, at least Threshold of
// them, and including ourselves.
func (c *Config) CanSign(signers party.IDSlice) bool {
	if len(signers) < c.Threshold {
		return false
	}
	if !signers.Contains(c.ID) {
		return false
	}
	for _, id := range signers {
		if _, ok := c.Public[id]; !ok {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of the Config.
func (c *Config) Copy() *Config {
	public := make(map[party.ID]curve.Point, len(c.Public))
	for id, p := range c.Public {
		public[id] = p
	}
	return &Config{
		ID:          c.ID,
		Group:       c.Group,
		Threshold:   c.Threshold,
		Generation:  c.Generation,
		SecretShare: c.Group.NewScalar().Set(c.SecretShare),
		Public:      public,
		GroupKey:    c.GroupKey,
		RID:         c.RID.Copy(),
	}
}

// PublicConfig is the secret-free portion of a Config, handed to candidate
// members so they can join a transition for a key they do not yet share.
type PublicConfig struct {
	Group      curve.Curve
	Threshold  int
	Generation uint64
	Public     map[party.ID]curve.Point
	GroupKey   curve.Point
	RID        types.RID
}

// PublicConfig strips the secret share from the Config.
func (c *Config) PublicConfig() *PublicConfig {
	public := make(map[party.ID]curve.Point, len(c.Public))
	for id, p := range c.Public {
		public[id] = p
	}
	return &PublicConfig{
		Group:      c.Group,
		Threshold:  c.Threshold,
		Generation: c.Generation,
		Public:     public,
		GroupKey:   c.GroupKey,
		RID:        c.RID.Copy(),
	}
}

// PartyIDs returns the sorted IDs of the membership described by the public
// config.
func (c *PublicConfig) PartyIDs() party.IDSlice {
	ids := make([]party.ID, 0, len(c.Public))
	for id := range c.Public {
		ids = append(ids, id)
	}
	return party.NewIDSlice(ids)
}

// WriteToHash commits the public key parameters to a transcript.
func (c *Config) WriteToHash(h *hash.Hash) error {
	return writePublicToHash(h, c.Generation, uint64(c.Threshold), c.GroupKey, c.RID, c.PartyIDs(), c.Public)
}

// WriteToHash commits the public key parameters to a transcript.
func (c *PublicConfig) WriteToHash(h *hash.Hash) error {
	return writePublicToHash(h, c.Generation, uint64(c.Threshold), c.GroupKey, c.RID, c.PartyIDs(), c.Public)
}

func writePublicToHash(h *hash.Hash, generation, threshold uint64, groupKey curve.Point, rid types.RID, ids party.IDSlice, public map[party.ID]curve.Point) error {
	if err := h.WriteAny(generation, threshold, groupKey, rid); err != nil {
		return err
	}
	for _, id := range ids {
		if err := h.WriteAny(id, public[id]); err != nil {
			return err
		}
	}
	return nil
}
