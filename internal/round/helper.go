package round

import (
	"errors"
	"fmt"

	"github.com/luxfi/consortium/pkg/hash"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/pkg/pool"
)

// Info contains the static parameters of a protocol execution.
type Info struct {
	// ProtocolID uniquely identifies the protocol.
	ProtocolID string
	// FinalRoundNumber is the number of the last round producing output.
	FinalRoundNumber Number
	// SelfID is this party's ID.
	SelfID party.ID
	// PartyIDs lists all participants.
	PartyIDs []party.ID
	// Threshold is the minimum number of parties required.
	Threshold int
	// Group is the curve the protocol operates over.
	Group curve.Curve
}

// Helper implements the static part of Session; concrete rounds embed it.
type Helper struct {
	info Info

	partyIDs      party.IDSlice
	otherPartyIDs party.IDSlice

	ssid []byte
	hash *hash.Hash

	pool *pool.Pool
}

// NewSession builds a Helper for the protocol described by info. The optional
// sessionID is mixed into the transcript so that concurrent executions remain
// distinguishable; auxiliary values bind run-specific data such as the
// message digest or the key generation.
func NewSession(info Info, sessionID []byte, pl *pool.Pool, aux ...interface{}) (*Helper, error) {
	partyIDs := party.NewIDSlice(info.PartyIDs)
	if len(partyIDs) == 0 {
		return nil, errors.New("round: no participants")
	}
	if len(partyIDs) != len(info.PartyIDs) {
		return nil, errors.New("round: duplicate participants")
	}
	if !partyIDs.Contains(info.SelfID) {
		return nil, fmt.Errorf("round: self ID %v is not a participant", info.SelfID)
	}
	if info.Threshold < 1 || info.Threshold > len(partyIDs) {
		return nil, fmt.Errorf("round: invalid threshold %d for %d parties", info.Threshold, len(partyIDs))
	}

	h := hash.New()
	if err := h.WriteAny(info.ProtocolID, info.Group.Name(), uint64(info.Threshold)); err != nil {
		return nil, err
	}
	if sessionID != nil {
		if err := h.WriteAny(hash.BytesWithDomain{TheDomain: "SessionID", Bytes: sessionID}); err != nil {
			return nil, err
		}
	}
	for _, id := range partyIDs {
		if err := h.WriteAny(id); err != nil {
			return nil, err
		}
	}
	if err := h.WriteAny(aux...); err != nil {
		return nil, err
	}

	return &Helper{
		info:          info,
		partyIDs:      partyIDs,
		otherPartyIDs: partyIDs.Remove(info.SelfID),
		ssid:          h.Clone().Sum(),
		hash:          h,
		pool:          pl,
	}, nil
}

// Group implements Session.
func (h *Helper) Group() curve.Curve { return h.info.Group }

// Hash returns a clone of the session transcript.
func (h *Helper) Hash() *hash.Hash { return h.hash.Clone() }

// ProtocolID implements Session.
func (h *Helper) ProtocolID() string { return h.info.ProtocolID }

// SSID implements Session.
func (h *Helper) SSID() []byte { return h.ssid }

// FinalRoundNumber implements Session.
func (h *Helper) FinalRoundNumber() Number { return h.info.FinalRoundNumber }

// SelfID implements Session.
func (h *Helper) SelfID() party.ID { return h.info.SelfID }

// PartyIDs implements Session.
func (h *Helper) PartyIDs() party.IDSlice { return h.partyIDs }

// OtherPartyIDs implements Session.
func (h *Helper) OtherPartyIDs() party.IDSlice { return h.otherPartyIDs }

// Threshold implements Session.
func (h *Helper) Threshold() int { return h.info.Threshold }

// N implements Session.
func (h *Helper) N() int { return len(h.partyIDs) }

// Pool returns the attached worker pool, possibly nil.
func (h *Helper) Pool() *pool.Pool { return h.pool }

// BroadcastMessage emits a broadcast message to all participants.
func (h *Helper) BroadcastMessage(out chan<- *Message, content BroadcastContent) error {
	select {
	case out <- &Message{From: h.info.SelfID, Broadcast: true, Content: content}:
		return nil
	default:
		return errors.New("round: failed to emit broadcast message")
	}
}

// SendMessage emits a point-to-point message to a single participant.
func (h *Helper) SendMessage(out chan<- *Message, content Content, to party.ID) error {
	select {
	case out <- &Message{From: h.info.SelfID, To: to, Content: content}:
		return nil
	default:
		return errors.New("round: failed to emit message")
	}
}

// ResultRound wraps a protocol result in a terminal Session.
func (h *Helper) ResultRound(result interface{}) Session {
	return &Output{Helper: h, Result: result}
}

// AbortRound wraps a protocol failure in a terminal Session, naming the
// parties responsible when known.
func (h *Helper) AbortRound(err error, culprits ...party.ID) Session {
	return &Abort{Helper: h, Err: err, Culprits: culprits}
}
