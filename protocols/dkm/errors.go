package dkm

import "errors"

var (
	// ErrTransitionInProgress is returned when a membership transition is
	// requested while another one has not yet completed. Transitions are
	// strictly serialized.
	ErrTransitionInProgress = errors.New("dkm: a membership transition is already in progress")
	// ErrSessionTimeout is returned when a protocol execution does not
	// complete within the configured deadline.
	ErrSessionTimeout = errors.New("dkm: protocol session timed out")
)
