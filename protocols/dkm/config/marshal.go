package config

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/consortium/internal/types"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
)

// configWire is the CBOR representation of a Config. Curve elements travel
// as their fixed-width encodings.
type configWire struct {
	ID          party.ID
	Curve       string
	Threshold   int
	Generation  uint64
	SecretShare []byte
	Public      map[party.ID][]byte
	GroupKey    []byte
	RID         []byte
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (c *Config) MarshalBinary() ([]byte, error) {
	share, err := c.SecretShare.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	public := make(map[party.ID][]byte, len(c.Public))
	for id, p := range c.Public {
		b, err := p.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		public[id] = b
	}
	groupKey, err := c.GroupKey.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cbor.Marshal(configWire{
		ID:          c.ID,
		Curve:       c.Group.Name(),
		Threshold:   c.Threshold,
		Generation:  c.Generation,
		SecretShare: share,
		Public:      public,
		GroupKey:    groupKey,
		RID:         c.RID,
	})
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler. The receiver's
// Group must be set beforehand so curve elements can be decoded.
func (c *Config) UnmarshalBinary(data []byte) error {
	if c.Group == nil {
		return fmt.Errorf("config: unmarshal requires the group to be set")
	}
	var w configWire
	if err := cbor.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if w.Curve != c.Group.Name() {
		return fmt.Errorf("config: curve mismatch: have %s, want %s", w.Curve, c.Group.Name())
	}
	share, err := curve.FromBytes(c.Group, w.SecretShare)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	public := make(map[party.ID]curve.Point, len(w.Public))
	for id, b := range w.Public {
		p, err := curve.PointFromBytes(c.Group, b)
		if err != nil {
			return fmt.Errorf("config: public share of %v: %w", id, err)
		}
		public[id] = p
	}
	groupKey, err := curve.PointFromBytes(c.Group, w.GroupKey)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	c.ID = w.ID
	c.Threshold = w.Threshold
	c.Generation = w.Generation
	c.SecretShare = share
	c.Public = public
	c.GroupKey = groupKey
	c.RID = types.RID(w.RID)
	return c.Validate()
}
