package protocol

import (
	"github.com/luxfi/consortium/internal/round"
	"github.com/luxfi/consortium/pkg/hash"
	"github.com/luxfi/consortium/pkg/party"
)

// Message is the raw envelope exchanged between parties during a protocol
// execution. Data is the CBOR-encoded round content.
type Message struct {
	// SSID identifies the protocol execution this message belongs to.
	SSID []byte
	// From is the sender.
	From party.ID
	// To is the intended recipient; empty for broadcast messages.
	To party.ID
	// Protocol identifies the protocol being executed.
	Protocol string
	// RoundNumber is the round that consumes this message.
	RoundNumber round.Number
	// Data is the serialized content.
	Data []byte
	// Broadcast indicates the message must be delivered to all parties,
	// reliably, so that everyone agrees on its content.
	Broadcast bool
	// BroadcastVerification is the hash of all broadcast messages from the
	// previous round, echoed so that parties can detect inconsistent
	// broadcasts.
	BroadcastVerification []byte
}

// IsFor reports whether the message should be processed by the given party.
// An empty To addresses everyone, including abort notifications.
func (m *Message) IsFor(id party.ID) bool {
	if m.From == id {
		return false
	}
	return m.To == "" || m.To == id
}

// Hash returns a digest of the message contents, used for broadcast echo
// verification.
func (m *Message) Hash() []byte {
	h := hash.New(
		hash.BytesWithDomain{TheDomain: "SSID", Bytes: m.SSID},
		m.From,
		hash.BytesWithDomain{TheDomain: "Protocol", Bytes: []byte(m.Protocol)},
		uint64(m.RoundNumber),
		hash.BytesWithDomain{TheDomain: "Data", Bytes: m.Data},
	)
	return h.Sum()
}
