// Package test provides helpers shared by the protocol tests.
package test

import (
	"fmt"

	"github.com/luxfi/consortium/pkg/party"
)

// PartyIDs returns n distinct party IDs "1" through "n".
func PartyIDs(n int) party.IDSlice {
	ids := make([]party.ID, n)
	for i := range ids {
		ids[i] = party.ID(fmt.Sprint(i + 1))
	}
	return party.NewIDSlice(ids)
}
