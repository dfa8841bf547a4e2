package protocol

import (
	"fmt"

	"github.com/luxfi/consortium/pkg/party"
)

// Error is the failure result of a protocol execution. Culprits names the
// parties whose misbehavior caused the abort, when they could be identified.
type Error struct {
	Culprits []party.ID
	Err      error
}

// Error implements error.
func (e Error) Error() string {
	if len(e.Culprits) == 0 {
		return fmt.Sprintf("protocol: %s", e.Err)
	}
	return fmt.Sprintf("protocol: culprits %v: %s", e.Culprits, e.Err)
}

// Unwrap returns the underlying cause.
func (e Error) Unwrap() error { return e.Err }
