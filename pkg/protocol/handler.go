// Package protocol drives multi-round protocol executions: it validates and
// queues incoming messages, advances the underlying round state machine, and
// surfaces outgoing messages and the final result.
package protocol

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/pkg/hash"
	"github.com/luxfi/consortium/pkg/party"
)

// StartFunc creates the first round of a protocol, initialized with the
// session information. The optional sessionID distinguishes concurrent
// executions of the same protocol.
type StartFunc func(sessionID []byte) (round.Session, error)

// Handler drives a protocol execution for a single party.
type Handler interface {
	// Result returns the protocol output, or an error if the execution
	// failed or has not finished.
	Result() (interface{}, error)
	// Listen returns the channel of outgoing messages. It is closed once
	// the protocol completes or aborts.
	Listen() <-chan *Message
	// Stop aborts the execution and notifies the other parties.
	Stop()
	// CanAccept reports whether the message belongs to this execution.
	CanAccept(msg *Message) bool
	// Accept processes an incoming message, advancing the protocol when a
	// round completes.
	Accept(msg *Message)
}

// MultiHandler is the Handler for the round-based protocols in this module.
// The first round consumes no messages and is finalized at creation; every
// message is tagged with the round that consumes it.
type MultiHandler struct {
	currentRound    round.Session
	rounds          map[round.Number]round.Session
	err             *Error
	result          interface{}
	messages        map[round.Number]map[party.ID]*Message
	broadcast       map[round.Number]map[party.ID]*Message
	broadcastHashes map[round.Number][]byte
	out             chan *Message
	mtx             sync.Mutex
}

// NewMultiHandler starts a protocol execution from the given StartFunc.
func NewMultiHandler(create StartFunc, sessionID []byte) (*MultiHandler, error) {
	r, err := create(sessionID)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to create round: %w", err)
	}
	h := &MultiHandler{
		currentRound:    r,
		rounds:          map[round.Number]round.Session{},
		messages:        newQueue(r.OtherPartyIDs(), r.FinalRoundNumber()),
		broadcast:       newQueue(r.PartyIDs(), r.FinalRoundNumber()),
		broadcastHashes: map[round.Number][]byte{},
		out:             make(chan *Message, 2*r.N()),
	}
	h.finalize()
	return h, nil
}

// Result implements Handler.
func (h *MultiHandler) Result() (interface{}, error) {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.result != nil {
		return h.result, nil
	}
	if h.err != nil {
		return nil, *h.err
	}
	return nil, errors.New("protocol: not finished")
}

// Listen implements Handler. Messages with Broadcast set must be delivered
// to all parties over a reliable broadcast channel.
func (h *MultiHandler) Listen() <-chan *Message {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	return h.out
}

// CanAccept implements Handler.
func (h *MultiHandler) CanAccept(msg *Message) bool {
	r := h.currentRound
	if msg == nil {
		return false
	}
	if !msg.IsFor(r.SelfID()) {
		return false
	}
	if msg.Protocol != r.ProtocolID() {
		return false
	}
	if !bytes.Equal(msg.SSID, r.SSID()) {
		return false
	}
	if !r.PartyIDs().Contains(msg.From) {
		return false
	}
	if msg.Data == nil {
		return false
	}
	// RoundNumber 0 signals an abort by the sender; everything else must be
	// a round we have not yet finished.
	if msg.RoundNumber == 0 {
		return true
	}
	if msg.RoundNumber > r.FinalRoundNumber() || msg.RoundNumber < r.Number() {
		return false
	}
	return true
}

// Accept implements Handler. It may be called concurrently; calls block
// until previous ones have finished.
func (h *MultiHandler) Accept(msg *Message) {
	h.mtx.Lock()
	defer h.mtx.Unlock()

	if !h.CanAccept(msg) || h.err != nil || h.result != nil || h.duplicate(msg) {
		return
	}

	if msg.RoundNumber == 0 {
		h.abort(fmt.Errorf("aborted by %v: %q", msg.From, msg.Data), msg.From)
		return
	}

	h.store(msg)
	if h.currentRound.Number() != msg.RoundNumber {
		return
	}

	if msg.Broadcast {
		if err := h.verifyBroadcastMessage(msg); err != nil {
			h.abort(err, msg.From)
			return
		}
	} else {
		if err := h.verifyMessage(msg); err != nil {
			h.abort(err, msg.From)
			return
		}
	}

	h.finalize()
}

func (h *MultiHandler) verifyBroadcastMessage(msg *Message) error {
	r, ok := h.rounds[msg.RoundNumber]
	if !ok {
		return nil
	}

	roundMsg, err := getRoundMessage(msg, r)
	if err != nil {
		return err
	}

	b, ok := broadcastRound(r)
	if !ok {
		return errors.New("got broadcast message when none was expected")
	}
	if err = b.StoreBroadcastMessage(roundMsg); err != nil {
		return fmt.Errorf("round %d: %w", r.Number(), err)
	}

	// a round expecting both message types defers the p2p message until the
	// broadcast from the same sender has arrived
	if !expectsNormalMessage(r) {
		return nil
	}
	if queued := h.messages[msg.RoundNumber][msg.From]; queued != nil {
		return h.verifyMessage(queued)
	}
	return nil
}

func (h *MultiHandler) verifyMessage(msg *Message) error {
	r, ok := h.rounds[msg.RoundNumber]
	if !ok {
		return nil
	}

	// hold the p2p message until the sender's broadcast has been stored
	if _, ok = broadcastRound(r); ok {
		if h.broadcast[msg.RoundNumber][msg.From] == nil {
			return nil
		}
	}

	roundMsg, err := getRoundMessage(msg, r)
	if err != nil {
		return err
	}
	if err = r.VerifyMessage(roundMsg); err != nil {
		return fmt.Errorf("round %d: %w", r.Number(), err)
	}
	if err = r.StoreMessage(roundMsg); err != nil {
		return fmt.Errorf("round %d: %w", r.Number(), err)
	}
	return nil
}

func (h *MultiHandler) finalize() {
	if !h.receivedAll() {
		return
	}
	if !h.checkBroadcastHash() {
		h.abort(errors.New("broadcast verification failed"))
		return
	}

	out := make(chan *round.Message, h.currentRound.N()+1)
	r, err := h.currentRound.Finalize(out)
	close(out)
	if err != nil || r == nil {
		h.abort(err, h.currentRound.SelfID())
		return
	}

	for roundMsg := range out {
		data, err := cbor.Marshal(roundMsg.Content)
		if err != nil {
			h.abort(fmt.Errorf("failed to marshal message: %w", err), h.currentRound.SelfID())
			return
		}
		msg := &Message{
			SSID:                  r.SSID(),
			From:                  r.SelfID(),
			To:                    roundMsg.To,
			Protocol:              r.ProtocolID(),
			RoundNumber:           roundMsg.Content.RoundNumber(),
			Data:                  data,
			Broadcast:             roundMsg.Broadcast,
			BroadcastVerification: h.broadcastHashes[r.Number()-1],
		}
		if msg.Broadcast {
			h.store(msg)
		}
		h.out <- msg
	}

	roundNumber := r.Number()
	if _, ok := h.rounds[roundNumber]; ok {
		return
	}
	h.rounds[roundNumber] = r
	h.currentRound = r

	switch R := r.(type) {
	case *round.Abort:
		h.abort(R.Err, R.Culprits...)
		return
	case *round.Output:
		h.result = R.Result
		h.abort(nil)
		return
	}

	// replay messages that arrived before we reached this round
	if _, ok := broadcastRound(r); ok {
		for id, m := range h.broadcast[roundNumber] {
			if m == nil || id == r.SelfID() {
				continue
			}
			if err = h.verifyBroadcastMessage(m); err != nil {
				h.abort(err, m.From)
				return
			}
		}
	} else {
		for _, m := range h.messages[roundNumber] {
			if m == nil {
				continue
			}
			if err = h.verifyMessage(m); err != nil {
				h.abort(err, m.From)
				return
			}
		}
	}

	h.finalize()
}

func (h *MultiHandler) abort(err error, culprits ...party.ID) {
	if err != nil {
		h.err = &Error{Culprits: culprits, Err: err}
		select {
		case h.out <- &Message{
			SSID:     h.currentRound.SSID(),
			From:     h.currentRound.SelfID(),
			Protocol: h.currentRound.ProtocolID(),
			Data:     []byte(h.err.Error()),
		}:
		default:
		}
	}
	close(h.out)
}

// Stop implements Handler.
func (h *MultiHandler) Stop() {
	h.mtx.Lock()
	defer h.mtx.Unlock()
	if h.err == nil && h.result == nil {
		h.abort(errors.New("aborted by user"), h.currentRound.SelfID())
	}
}

func expectsNormalMessage(r round.Session) bool {
	return r.MessageContent() != nil
}

// broadcastRound reports whether r consumes broadcast messages. Rounds
// embed their predecessors, so the interface assertion alone is not enough:
// a round inheriting BroadcastContent from an earlier round overrides it to
// return nil.
func broadcastRound(r round.Session) (round.BroadcastRound, bool) {
	b, ok := r.(round.BroadcastRound)
	if !ok || b.BroadcastContent() == nil {
		return nil, false
	}
	return b, true
}

func (h *MultiHandler) receivedAll() bool {
	r := h.currentRound
	number := r.Number()

	if _, ok := broadcastRound(r); ok {
		for _, id := range r.PartyIDs() {
			if h.broadcast[number][id] == nil {
				return false
			}
		}
		// all broadcasts are in; fix the hash the next round's messages must echo
		if h.broadcastHashes[number] == nil {
			state := r.Hash()
			for _, id := range r.PartyIDs() {
				_ = state.WriteAny(hash.BytesWithDomain{
					TheDomain: "Message",
					Bytes:     h.broadcast[number][id].Hash(),
				})
			}
			h.broadcastHashes[number] = state.Sum()
		}
	}

	if expectsNormalMessage(r) {
		for _, id := range r.OtherPartyIDs() {
			if h.messages[number][id] == nil {
				return false
			}
		}
	}
	return true
}

func (h *MultiHandler) duplicate(msg *Message) bool {
	if msg.RoundNumber == 0 {
		return false
	}
	var q map[party.ID]*Message
	if msg.Broadcast {
		q = h.broadcast[msg.RoundNumber]
	} else {
		q = h.messages[msg.RoundNumber]
	}
	if q == nil {
		return true
	}
	_, expected := q[msg.From]
	return !expected || q[msg.From] != nil
}

func (h *MultiHandler) store(msg *Message) {
	var q map[party.ID]*Message
	if msg.Broadcast {
		q = h.broadcast[msg.RoundNumber]
	} else {
		q = h.messages[msg.RoundNumber]
	}
	if q == nil || q[msg.From] != nil {
		return
	}
	q[msg.From] = msg
}

// getRoundMessage decodes a raw message into the content type expected by r.
func getRoundMessage(msg *Message, r round.Session) (round.Message, error) {
	var content round.Content
	if msg.Broadcast {
		b, ok := broadcastRound(r)
		if !ok {
			return round.Message{}, errors.New("got broadcast message when none was expected")
		}
		content = b.BroadcastContent()
	} else {
		content = r.MessageContent()
	}
	if err := cbor.Unmarshal(msg.Data, content); err != nil {
		return round.Message{}, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return round.Message{
		From:      msg.From,
		To:        msg.To,
		Broadcast: msg.Broadcast,
		Content:   content,
	}, nil
}

// checkBroadcastHash verifies that every message consumed in the current
// round echoed the same view of the previous round's broadcasts.
func (h *MultiHandler) checkBroadcastHash() bool {
	number := h.currentRound.Number()
	previousHash := h.broadcastHashes[number-1]
	if previousHash == nil {
		return true
	}
	for _, msg := range h.messages[number] {
		if msg != nil && !bytes.Equal(previousHash, msg.BroadcastVerification) {
			return false
		}
	}
	for _, msg := range h.broadcast[number] {
		if msg != nil && !bytes.Equal(previousHash, msg.BroadcastVerification) {
			return false
		}
	}
	return true
}

func newQueue(senders party.IDSlice, rounds round.Number) map[round.Number]map[party.ID]*Message {
	q := make(map[round.Number]map[party.ID]*Message, rounds)
	for i := round.Number(2); i <= rounds; i++ {
		q[i] = make(map[party.ID]*Message, len(senders))
		for _, id := range senders {
			q[i][id] = nil
		}
	}
	return q
}

func (h *MultiHandler) String() string {
	return fmt.Sprintf("party: %s, protocol: %s", h.currentRound.SelfID(), h.currentRound.ProtocolID())
}
