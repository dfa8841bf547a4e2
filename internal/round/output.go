package round

import "github.com/luxfi/consortium/pkg/party"

// Output is the terminal session of a successful protocol execution.
type Output struct {
	*Helper
	Result interface{}
}

// Number implements Session.
func (Output) Number() Number { return 0 }

// MessageContent implements Session.
func (Output) MessageContent() Content { return nil }

// VerifyMessage implements Session.
func (Output) VerifyMessage(Message) error { return nil }

// StoreMessage implements Session.
func (Output) StoreMessage(Message) error { return nil }

// Finalize implements Session.
func (r *Output) Finalize(chan<- *Message) (Session, error) { return r, nil }

// Abort is the terminal session of a failed protocol execution. Culprits
// names the parties whose misbehavior caused the failure, when identifiable.
type Abort struct {
	*Helper
	Err      error
	Culprits []party.ID
}

// Number implements Session.
func (Abort) Number() Number { return 0 }

// MessageContent implements Session.
func (Abort) MessageContent() Content { return nil }

// VerifyMessage implements Session.
func (Abort) VerifyMessage(Message) error { return nil }

// StoreMessage implements Session.
func (Abort) StoreMessage(Message) error { return nil }

// Finalize implements Session.
func (r *Abort) Finalize(chan<- *Message) (Session, error) { return r, nil }
