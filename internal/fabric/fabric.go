// Package fabric provides the in-process message transport used to run
// protocol executions across parties sharing an address space.
package fabric

import (
	"sync"

	"github.com/luxfi/consortium/pkg/party"
	"github.com/luxfi/consortium/pkg/protocol"
)

// Rule rewrites a message in flight, simulating a faulty or adversarial
// sender. Returning nil drops the message. Rules must not modify msg in
// place: the same message may be delivered to several recipients.
type Rule func(msg *protocol.Message) *protocol.Message

// Network routes messages between in-process parties over buffered channels.
// Broadcast messages are delivered to every registered party except the
// sender.
type Network struct {
	parties          party.IDSlice
	listenChannels   map[party.ID]chan *protocol.Message
	done             chan struct{}
	closedListenChan chan *protocol.Message
	rule             Rule
	mtx              sync.Mutex
}

// NewNetwork creates a network connecting the given parties.
func NewNetwork(parties party.IDSlice) *Network {
	closed := make(chan *protocol.Message)
	close(closed)
	c := &Network{
		parties:          parties,
		listenChannels:   make(map[party.ID]chan *protocol.Message, 2*len(parties)),
		closedListenChan: closed,
	}
	return c
}

func (n *Network) init() {
	N := len(n.parties)
	for _, id := range n.parties {
		n.listenChannels[id] = make(chan *protocol.Message, N*N)
	}
	n.done = make(chan struct{})
}

// SetRule installs a rule applied to every subsequently sent message.
func (n *Network) SetRule(rule Rule) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.rule = rule
}

// Next returns the channel on which the given party receives messages.
func (n *Network) Next(id party.ID) <-chan *protocol.Message {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if len(n.listenChannels) == 0 {
		n.init()
	}
	c, ok := n.listenChannels[id]
	if !ok {
		return n.closedListenChan
	}
	return c
}

// Send routes a message to its recipients.
func (n *Network) Send(msg *protocol.Message) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if n.rule != nil {
		if msg = n.rule(msg); msg == nil {
			return
		}
	}
	for id, c := range n.listenChannels {
		if msg.IsFor(id) && c != nil {
			c <- msg
		}
	}
}

// Done unregisters a party once its handler has finished. The returned
// channel is closed when every party has finished.
func (n *Network) Done(id party.ID) chan struct{} {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	if _, ok := n.listenChannels[id]; ok {
		close(n.listenChannels[id])
		delete(n.listenChannels, id)
	}
	if len(n.listenChannels) == 0 {
		close(n.done)
	}
	return n.done
}

// Quit removes a party from the network before the run completes.
func (n *Network) Quit(id party.ID) {
	n.mtx.Lock()
	defer n.mtx.Unlock()
	n.parties = n.parties.Remove(id)
}

// HandlerLoop pumps messages between a handler and the network until the
// protocol completes.
func HandlerLoop(id party.ID, h protocol.Handler, network *Network) {
	for {
		select {
		// outgoing messages
		case msg, ok := <-h.Listen():
			if !ok {
				<-network.Done(id)
				// the handler has stopped communicating, the result is ready
				return
			}
			go network.Send(msg)

		// incoming messages
		case msg := <-network.Next(id):
			h.Accept(msg)
		}
	}
}
