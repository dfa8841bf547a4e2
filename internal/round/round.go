// Package round defines the framework shared by all multi-round protocols:
// a Session advances round by round, consuming the messages produced by the
// previous round and emitting messages for the next.
package round

import (
	"errors"

	"github.com/luxfi/consortium/pkg/hash"
	"github.com/luxfi/consortium/pkg/math/curve"
	"github.com/luxfi/consortium/pkg/party"
)

// Number designates the position of a round within a protocol. Messages carry
// the number of the round that consumes them.
type Number uint16

// ErrInvalidContent is returned when a message's content has the wrong type
// for the current round.
var ErrInvalidContent = errors.New("round: message content has invalid type")

// Content is the payload of a protocol message.
type Content interface {
	// RoundNumber is the round in which this content is processed.
	RoundNumber() Number
}

// BroadcastContent is Content delivered to every participant. The handler
// additionally verifies that all participants received identical broadcasts.
type BroadcastContent interface {
	Content
	Reliable() bool
}

// NormalBroadcastContent can be embedded to mark a message as requiring
// reliable broadcast.
type NormalBroadcastContent struct{}

// Reliable implements BroadcastContent.
func (NormalBroadcastContent) Reliable() bool { return true }

// Message is a routed protocol message. An empty To means broadcast.
type Message struct {
	From, To  party.ID
	Broadcast bool
	Content   Content
}

// Session represents the state of a party within one round of a protocol
// execution.
type Session interface {
	// Group returns the curve the protocol operates over.
	Group() curve.Curve
	// Hash returns a clone of the session transcript.
	Hash() *hash.Hash
	// ProtocolID uniquely identifies the protocol.
	ProtocolID() string
	// SSID identifies this execution of the protocol.
	SSID() []byte
	// FinalRoundNumber is the number of the last round producing output.
	FinalRoundNumber() Number
	// SelfID is this party's ID.
	SelfID() party.ID
	// PartyIDs lists all participants.
	PartyIDs() party.IDSlice
	// OtherPartyIDs lists all participants except ourselves.
	OtherPartyIDs() party.IDSlice
	// Threshold is the minimum number of parties required to produce output.
	Threshold() int
	// N is the number of participants.
	N() int

	// Number is this round's position in the protocol.
	Number() Number
	// MessageContent returns an empty prototype of this round's
	// point-to-point message, or nil if the round expects none.
	MessageContent() Content
	// VerifyMessage checks a point-to-point message before it is stored.
	VerifyMessage(Message) error
	// StoreMessage saves a verified point-to-point message.
	StoreMessage(Message) error
	// Finalize runs once all of this round's messages are in. It emits the
	// next round's messages on out and returns the next Session.
	Finalize(out chan<- *Message) (Session, error)
}

// BroadcastRound is implemented by rounds that expect broadcast messages.
type BroadcastRound interface {
	// BroadcastContent returns an empty prototype of this round's broadcast
	// message.
	BroadcastContent() BroadcastContent
	// StoreBroadcastMessage validates and saves a broadcast message.
	StoreBroadcastMessage(Message) error
}
