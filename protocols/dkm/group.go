package dkm

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/luxfi/consortium/internal/fabric"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/pkg/pool"
	"github.com/luxfi/consortium/pkg/protocol"
	"github.com/luxfi/consortium/pkg/schnorr"
	"github.com/luxfi/consortium/protocols/dkm/config"
)

// Group coordinates the members of a consortium running in a single
// process: it executes key generation, serializes membership transitions,
// and runs signing sessions against a snapshot of the current generation.
type Group struct {
	mtx           sync.Mutex
	group         curve.Curve
	pl            *pool.Pool
	timeout       time.Duration
	transitioning bool
	configs       map[party.ID]*config.Config
}

// Option configures a Group.
type Option func(*Group)

// WithTimeout bounds the duration of each protocol session. Sessions that
// exceed it fail with ErrSessionTimeout. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(g *Group) { g.timeout = d }
}

// WithPool attaches a worker pool used for parallel curve operations.
func WithPool(pl *pool.Pool) Option {
	return func(g *Group) { g.pl = pl }
}

// NewGroup generates a threshold key among the given founding members and
// returns the coordinator holding their key material.
func NewGroup(group curve.Curve, members []party.ID, threshold int, opts ...Option) (*Group, error) {
	g := &Group{group: group}
	for _, opt := range opts {
		opt(g)
	}

	ids := party.NewIDSlice(members)
	starts := make(map[party.ID]protocol.StartFunc, len(ids))
	for _, id := range ids {
		starts[id] = Keygen(group, id, ids, threshold, g.pl)
	}
	results, err := g.runAll(ids, starts)
	if err != nil {
		return nil, err
	}

	g.configs = make(map[party.ID]*config.Config, len(ids))
	for id, result := range results {
		c, ok := result.(*config.Config)
		if !ok {
			return nil, fmt.Errorf("dkm: unexpected keygen result %T", result)
		}
		g.configs[id] = c
	}
	return g, nil
}

// NewGroupFromConfigs rebuilds a coordinator from previously generated key
// material. All configs must belong to the same generation.
func NewGroupFromConfigs(configs []*config.Config, opts ...Option) (*Group, error) {
	if len(configs) == 0 {
		return nil, fmt.Errorf("dkm: no configs given")
	}
	g := &Group{group: configs[0].Group}
	for _, opt := range opts {
		opt(g)
	}
	g.configs = make(map[party.ID]*config.Config, len(configs))
	for _, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if c.Generation != configs[0].Generation {
			return nil, fmt.Errorf("dkm: config generations differ: %d and %d", c.Generation, configs[0].Generation)
		}
		if _, ok := g.configs[c.ID]; ok {
			return nil, fmt.Errorf("dkm: duplicate config for %v", c.ID)
		}
		g.configs[c.ID] = c.Copy()
	}
	return g, nil
}

// Members returns the current membership.
func (g *Group) Members() party.IDSlice {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	ids := make([]party.ID, 0, len(g.configs))
	for id := range g.configs {
		ids = append(ids, id)
	}
	return party.NewIDSlice(ids)
}

// Threshold returns the current signing threshold.
func (g *Group) Threshold() int {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.anyConfig().Threshold
}

// Generation returns the number of completed membership transitions.
func (g *Group) Generation() uint64 {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.anyConfig().Generation
}

// GroupKey returns the group public key. It is invariant across
// membership transitions.
func (g *Group) GroupKey() curve.Point {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return g.anyConfig().GroupKey
}

// Config returns a copy of the given member's key material.
func (g *Group) Config(id party.ID) (*config.Config, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	c, ok := g.configs[id]
	if !ok {
		return nil, fmt.Errorf("dkm: %v is not a member", id)
	}
	return c.Copy(), nil
}

func (g *Group) anyConfig() *config.Config {
	for _, c := range g.configs {
		return c
	}
	panic("dkm: group has no members")
}

// RequestTransition replaces the membership with newMembers at
// newThreshold. Every current member acts as a dealer; the group public key
// is preserved and the generation is incremented. Transitions are
// serialized: a second request while one is running fails with
// ErrTransitionInProgress.
func (g *Group) RequestTransition(newMembers []party.ID, newThreshold int) error {
	g.mtx.Lock()
	if g.transitioning {
		g.mtx.Unlock()
		return ErrTransitionInProgress
	}
	g.transitioning = true
	old := make(map[party.ID]*config.Config, len(g.configs))
	for id, c := range g.configs {
		old[id] = c.Copy()
	}
	g.mtx.Unlock()
	defer func() {
		g.mtx.Lock()
		g.transitioning = false
		g.mtx.Unlock()
	}()

	dealers := make([]party.ID, 0, len(old))
	for id := range old {
		dealers = append(dealers, id)
	}
	dealerIDs := party.NewIDSlice(dealers)
	newIDs := party.NewIDSlice(newMembers)
	participants := dealerIDs.Union(newIDs)
	public := old[dealerIDs[0]].PublicConfig()
	oldKey := public.GroupKey

	starts := make(map[party.ID]protocol.StartFunc, len(participants))
	for _, id := range participants {
		if c, ok := old[id]; ok {
			starts[id] = Reshare(c, dealerIDs, newIDs, newThreshold, g.pl)
		} else {
			starts[id] = ReshareJoin(public, id, dealerIDs, newIDs, newThreshold, g.pl)
		}
	}
	results, err := g.runAll(participants, starts)
	if err != nil {
		return err
	}

	next := make(map[party.ID]*config.Config, len(newIDs))
	for id, result := range results {
		switch r := result.(type) {
		case *config.Config:
			next[id] = r
		case *config.PublicConfig:
			// departing member, nothing to keep
		default:
			return fmt.Errorf("dkm: unexpected reshare result %T", result)
		}
	}
	for _, id := range newIDs {
		c, ok := next[id]
		if !ok {
			return fmt.Errorf("dkm: member %v produced no key material", id)
		}
		if !c.GroupKey.Equal(oldKey) {
			return config.ErrKeyInvariance
		}
	}

	g.mtx.Lock()
	g.configs = next
	g.mtx.Unlock()
	return nil
}

// Sign produces a Schnorr signature over message using the given quorum.
// It operates on a snapshot of the current generation, so it may run
// concurrently with other signing sessions.
func (g *Group) Sign(signers []party.ID, message []byte) (*schnorr.Signature, error) {
	quorum := party.NewIDSlice(signers)

	g.mtx.Lock()
	snapshot := make(map[party.ID]*config.Config, len(quorum))
	for _, id := range quorum {
		c, ok := g.configs[id]
		if !ok {
			g.mtx.Unlock()
			return nil, fmt.Errorf("dkm: signer %v is not a member", id)
		}
		snapshot[id] = c.Copy()
	}
	g.mtx.Unlock()

	starts := make(map[party.ID]protocol.StartFunc, len(quorum))
	for _, id := range quorum {
		starts[id] = Sign(snapshot[id], quorum, message, g.pl)
	}
	results, err := g.runAll(quorum, starts)
	if err != nil {
		return nil, err
	}

	for _, result := range results {
		if sig, ok := result.(*schnorr.Signature); ok {
			return sig, nil
		}
	}
	return nil, fmt.Errorf("dkm: signing produced no signature")
}

// runAll executes one protocol session across all participants in-process
// and collects their results.
func (g *Group) runAll(participants party.IDSlice, starts map[party.ID]protocol.StartFunc) (map[party.ID]interface{}, error) {
	network := fabric.NewNetwork(participants)

	handlers := make(map[party.ID]*protocol.MultiHandler, len(participants))
	for _, id := range participants {
		h, err := protocol.NewMultiHandler(starts[id], nil)
		if err != nil {
			return nil, err
		}
		handlers[id] = h
	}

	var timedOut atomic.Bool
	if g.timeout > 0 {
		timer := time.AfterFunc(g.timeout, func() {
			timedOut.Store(true)
			for _, h := range handlers {
				h.Stop()
			}
		})
		defer timer.Stop()
	}

	var mtx sync.Mutex
	results := make(map[party.ID]interface{}, len(participants))
	eg := new(errgroup.Group)
	for _, id := range participants {
		id := id
		h := handlers[id]
		eg.Go(func() error {
			fabric.HandlerLoop(id, h, network)
			result, err := h.Result()
			if err != nil {
				if timedOut.Load() {
					return ErrSessionTimeout
				}
				return err
			}
			mtx.Lock()
			results[id] = result
			mtx.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
