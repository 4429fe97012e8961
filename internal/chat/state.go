package chat

import (
	"fmt"
	"slices"
)

// State is the chat session controller's thread-selection state. The search
// overlay is orthogonal and tracked separately.
type State string

const (
	Closed         State = "CLOSED"
	OpenNoTarget   State = "OPEN_NO_TARGET"
	OpenWithTarget State = "OPEN_WITH_TARGET"
)

// validTransitions defines allowed state transitions. Re-opening the contact
// list while it is already showing is handled as a guarded no-op by the
// controller rather than a transition.
var validTransitions = map[State][]State{
	Closed:         {OpenNoTarget, OpenWithTarget},
	OpenNoTarget:   {OpenWithTarget, Closed},
	OpenWithTarget: {OpenWithTarget, OpenNoTarget, Closed},
}

func (s State) canTransition(to State) error {
	if !slices.Contains(validTransitions[s], to) {
		return fmt.Errorf("invalid transition from %s to %s", s, to)
	}
	return nil
}
